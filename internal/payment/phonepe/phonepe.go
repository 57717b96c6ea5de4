package phonepe

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.phonepe.com/apis/hermes"

	payPath    = "/pg/v1/pay"
	statusPath = "/pg/v1/status"
	refundPath = "/pg/v1/refund"
)

// 交易终态与中间态
const (
	StateCompleted = "COMPLETED"
	StatePending   = "PENDING"
	StateFailed    = "FAILED"

	CodePaymentSuccess = "PAYMENT_SUCCESS"
	CodePaymentPending = "PAYMENT_PENDING"
	CodePaymentError   = "PAYMENT_ERROR"
)

var (
	ErrConfigInvalid    = errors.New("phonepe config invalid")
	ErrRequestFailed    = errors.New("phonepe request failed")
	ErrResponseInvalid  = errors.New("phonepe response invalid")
	ErrSignatureInvalid = errors.New("phonepe signature invalid")
)

// Config PhonePe 网关配置
type Config struct {
	MerchantID  string `json:"merchant_id"`  // 商户号
	SaltKey     string `json:"salt_key"`     // 签名盐值
	SaltIndex   string `json:"salt_index"`   // 盐值序号
	BaseURL     string `json:"base_url"`     // 网关地址
	RedirectURL string `json:"redirect_url"` // 支付完成跳转地址
	CallbackURL string `json:"callback_url"` // 服务端回调地址
}

// CreateInput PhonePe 下单输入
type CreateInput struct {
	MerchantTransactionID string
	MerchantUserID        string
	AmountPaise           int64
	RedirectURL           string
	CallbackURL           string
	MobileNumber          string
}

// CreateResult PhonePe 下单结果
type CreateResult struct {
	PaymentURL    string
	TransactionID string
	Raw           map[string]interface{}
}

// StatusResult PhonePe 状态查询结果
type StatusResult struct {
	Code          string
	State         string
	TransactionID string
	AmountPaise   int64
	Raw           map[string]interface{}
}

// CallbackPayload PhonePe 回调解码结果
type CallbackPayload struct {
	Success               bool
	Code                  string
	MerchantID            string
	MerchantTransactionID string
	TransactionID         string
	AmountPaise           int64
	State                 string
	Raw                   map[string]interface{}
}

// RefundInput PhonePe 退款输入
type RefundInput struct {
	MerchantTransactionID string
	OriginalTransactionID string
	AmountPaise           int64
	CallbackURL           string
}

// RefundResult PhonePe 退款结果
type RefundResult struct {
	Code          string
	State         string
	TransactionID string
	Raw           map[string]interface{}
}

// ValidateConfig 校验 PhonePe 配置完整性
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.MerchantID) == "" {
		return fmt.Errorf("%w: merchant_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.SaltKey) == "" {
		return fmt.Errorf("%w: salt_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.SaltIndex) == "" {
		return fmt.Errorf("%w: salt_index is required", ErrConfigInvalid)
	}
	return nil
}

// CreatePayment 发起支付页（PAY_PAGE）下单
func CreatePayment(ctx context.Context, cfg *Config, input CreateInput) (*CreateResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if input.MerchantTransactionID == "" || input.AmountPaise <= 0 {
		return nil, ErrConfigInvalid
	}
	redirectURL := firstNonEmpty(input.RedirectURL, cfg.RedirectURL)
	callbackURL := firstNonEmpty(input.CallbackURL, cfg.CallbackURL)
	if redirectURL == "" || callbackURL == "" {
		return nil, fmt.Errorf("%w: redirect_url and callback_url are required", ErrConfigInvalid)
	}

	payload := map[string]interface{}{
		"merchantId":            cfg.MerchantID,
		"merchantTransactionId": input.MerchantTransactionID,
		"merchantUserId":        input.MerchantUserID,
		"amount":                input.AmountPaise,
		"redirectUrl":           redirectURL,
		"redirectMode":          "POST",
		"callbackUrl":           callbackURL,
		"paymentInstrument": map[string]interface{}{
			"type": "PAY_PAGE",
		},
	}
	if mobile := strings.TrimSpace(input.MobileNumber); mobile != "" {
		payload["mobileNumber"] = mobile
	}

	encoded, err := encodePayload(payload)
	if err != nil {
		return nil, ErrRequestFailed
	}
	xVerify := SignRequest(cfg, encoded, payPath)

	respBytes, err := postJSON(ctx, cfg, payPath, map[string]string{"request": encoded}, xVerify)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	var resp struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Data    struct {
			MerchantTransactionID string `json:"merchantTransactionId"`
			InstrumentResponse    struct {
				Type         string `json:"type"`
				RedirectInfo struct {
					URL    string `json:"url"`
					Method string `json:"method"`
				} `json:"redirectInfo"`
			} `json:"instrumentResponse"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, ErrResponseInvalid
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Message)
	}
	payURL := strings.TrimSpace(resp.Data.InstrumentResponse.RedirectInfo.URL)
	if payURL == "" {
		return nil, fmt.Errorf("%w: missing pay page url", ErrResponseInvalid)
	}
	return &CreateResult{
		PaymentURL:    payURL,
		TransactionID: strings.TrimSpace(resp.Data.MerchantTransactionID),
		Raw:           raw,
	}, nil
}

// CheckStatus 查询交易状态
func CheckStatus(ctx context.Context, cfg *Config, merchantTransactionID string) (*StatusResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	merchantTransactionID = strings.TrimSpace(merchantTransactionID)
	if merchantTransactionID == "" {
		return nil, ErrConfigInvalid
	}

	path := fmt.Sprintf("%s/%s/%s", statusPath, cfg.MerchantID, merchantTransactionID)
	xVerify := signContent(cfg, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, buildEndpoint(cfg.BaseURL, path), nil)
	if err != nil {
		return nil, ErrRequestFailed
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-VERIFY", xVerify)
	req.Header.Set("X-MERCHANT-ID", cfg.MerchantID)

	respBytes, err := execute(req)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	var resp struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Data    struct {
			TransactionID string `json:"transactionId"`
			State         string `json:"state"`
			Amount        int64  `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, ErrResponseInvalid
	}
	return &StatusResult{
		Code:          strings.TrimSpace(resp.Code),
		State:         strings.ToUpper(strings.TrimSpace(resp.Data.State)),
		TransactionID: strings.TrimSpace(resp.Data.TransactionID),
		AmountPaise:   resp.Data.Amount,
		Raw:           raw,
	}, nil
}

// VerifyCallback 验证回调 X-VERIFY 头
// 期望值为 sha256(base64Body + saltKey) 的十六进制拼接 "###" 与盐值序号。
func VerifyCallback(cfg *Config, xVerify, base64Body string) error {
	if cfg == nil || strings.TrimSpace(cfg.SaltKey) == "" {
		return ErrConfigInvalid
	}
	if strings.TrimSpace(xVerify) == "" || strings.TrimSpace(base64Body) == "" {
		return ErrSignatureInvalid
	}
	expected := signContent(cfg, base64Body)
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(xVerify))) {
		return ErrSignatureInvalid
	}
	return nil
}

// DecodeCallback 解码 base64 回调体
func DecodeCallback(base64Body string) (*CallbackPayload, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(base64Body))
	if err != nil {
		return nil, ErrResponseInvalid
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(decoded, &raw)
	var resp struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Data    struct {
			MerchantID            string `json:"merchantId"`
			MerchantTransactionID string `json:"merchantTransactionId"`
			TransactionID         string `json:"transactionId"`
			Amount                int64  `json:"amount"`
			State                 string `json:"state"`
		} `json:"data"`
	}
	if err := json.Unmarshal(decoded, &resp); err != nil {
		return nil, ErrResponseInvalid
	}
	if resp.Data.MerchantTransactionID == "" {
		return nil, fmt.Errorf("%w: missing merchant transaction id", ErrResponseInvalid)
	}
	return &CallbackPayload{
		Success:               resp.Success,
		Code:                  strings.TrimSpace(resp.Code),
		MerchantID:            strings.TrimSpace(resp.Data.MerchantID),
		MerchantTransactionID: strings.TrimSpace(resp.Data.MerchantTransactionID),
		TransactionID:         strings.TrimSpace(resp.Data.TransactionID),
		AmountPaise:           resp.Data.Amount,
		State:                 strings.ToUpper(strings.TrimSpace(resp.Data.State)),
		Raw:                   raw,
	}, nil
}

// Refund 发起退款
func Refund(ctx context.Context, cfg *Config, input RefundInput) (*RefundResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if input.MerchantTransactionID == "" || input.OriginalTransactionID == "" || input.AmountPaise <= 0 {
		return nil, ErrConfigInvalid
	}

	payload := map[string]interface{}{
		"merchantId":            cfg.MerchantID,
		"merchantTransactionId": input.MerchantTransactionID,
		"originalTransactionId": input.OriginalTransactionID,
		"amount":                input.AmountPaise,
	}
	if callbackURL := firstNonEmpty(input.CallbackURL, cfg.CallbackURL); callbackURL != "" {
		payload["callbackUrl"] = callbackURL
	}

	encoded, err := encodePayload(payload)
	if err != nil {
		return nil, ErrRequestFailed
	}
	xVerify := SignRequest(cfg, encoded, refundPath)

	respBytes, err := postJSON(ctx, cfg, refundPath, map[string]string{"request": encoded}, xVerify)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	var resp struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Data    struct {
			TransactionID string `json:"transactionId"`
			State         string `json:"state"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, ErrResponseInvalid
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Message)
	}
	return &RefundResult{
		Code:          strings.TrimSpace(resp.Code),
		State:         strings.ToUpper(strings.TrimSpace(resp.Data.State)),
		TransactionID: strings.TrimSpace(resp.Data.TransactionID),
		Raw:           raw,
	}, nil
}

// SignRequest 计算请求签名：sha256(base64Payload + apiPath + saltKey) + "###" + saltIndex
func SignRequest(cfg *Config, encodedPayload, apiPath string) string {
	return signContent(cfg, encodedPayload+apiPath)
}

func signContent(cfg *Config, content string) string {
	sum := sha256.Sum256([]byte(content + cfg.SaltKey))
	return hex.EncodeToString(sum[:]) + "###" + cfg.SaltIndex
}

func encodePayload(payload map[string]interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func postJSON(ctx context.Context, cfg *Config, path string, body map[string]string, xVerify string) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, ErrRequestFailed
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, buildEndpoint(cfg.BaseURL, path), bytes.NewReader(data))
	if err != nil {
		return nil, ErrRequestFailed
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-VERIFY", xVerify)
	return execute(req)
}

func execute(req *http.Request) ([]byte, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, ErrRequestFailed
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrRequestFailed
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBytes, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrRequestFailed, apiErr.Message)
		}
		return nil, ErrRequestFailed
	}
	return respBytes, nil
}

func buildEndpoint(baseURL, path string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
