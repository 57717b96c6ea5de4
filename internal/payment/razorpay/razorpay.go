package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.razorpay.com"

var (
	ErrConfigInvalid    = errors.New("razorpay config invalid")
	ErrRequestFailed    = errors.New("razorpay request failed")
	ErrResponseInvalid  = errors.New("razorpay response invalid")
	ErrSignatureInvalid = errors.New("razorpay signature invalid")
)

// Config Razorpay 网关配置
type Config struct {
	KeyID         string `json:"key_id"`         // API Key ID
	KeySecret     string `json:"key_secret"`     // API Key Secret（签名密钥）
	WebhookSecret string `json:"webhook_secret"` // Webhook 签名密钥
	BaseURL       string `json:"base_url"`       // 网关地址
}

// CreateOrderInput Razorpay 下单输入
type CreateOrderInput struct {
	Receipt     string
	AmountPaise int64
	Currency    string
	Notes       map[string]string
}

// CreateOrderResult Razorpay 下单结果
type CreateOrderResult struct {
	OrderID     string
	AmountPaise int64
	Currency    string
	Status      string
	Raw         map[string]interface{}
}

// PaymentEntity Razorpay 支付单详情
type PaymentEntity struct {
	PaymentID   string
	OrderID     string
	AmountPaise int64
	Currency    string
	Status      string
	Raw         map[string]interface{}
}

// RefundResult Razorpay 退款结果
type RefundResult struct {
	RefundID    string
	PaymentID   string
	AmountPaise int64
	Status      string
	Raw         map[string]interface{}
}

// ValidateConfig 校验 Razorpay 配置完整性
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.KeyID) == "" {
		return fmt.Errorf("%w: key_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.KeySecret) == "" {
		return fmt.Errorf("%w: key_secret is required", ErrConfigInvalid)
	}
	return nil
}

// CreateOrder 创建 Razorpay 订单，金额单位为 paise
func CreateOrder(ctx context.Context, cfg *Config, input CreateOrderInput) (*CreateOrderResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if input.Receipt == "" || input.AmountPaise <= 0 {
		return nil, ErrConfigInvalid
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "INR"
	}

	payload := map[string]interface{}{
		"amount":   input.AmountPaise,
		"currency": currency,
		"receipt":  input.Receipt,
	}
	if len(input.Notes) > 0 {
		payload["notes"] = input.Notes
	}

	respBytes, err := doRequest(ctx, cfg, http.MethodPost, "/v1/orders", payload)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	var resp struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, ErrResponseInvalid
	}
	if strings.TrimSpace(resp.ID) == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrResponseInvalid)
	}
	return &CreateOrderResult{
		OrderID:     strings.TrimSpace(resp.ID),
		AmountPaise: resp.Amount,
		Currency:    resp.Currency,
		Status:      resp.Status,
		Raw:         raw,
	}, nil
}

// FetchPayment 查询 Razorpay 支付单详情
func FetchPayment(ctx context.Context, cfg *Config, paymentID string) (*PaymentEntity, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, ErrConfigInvalid
	}

	respBytes, err := doRequest(ctx, cfg, http.MethodGet, "/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	var resp struct {
		ID       string `json:"id"`
		OrderID  string `json:"order_id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, ErrResponseInvalid
	}
	if strings.TrimSpace(resp.ID) == "" {
		return nil, fmt.Errorf("%w: missing payment id", ErrResponseInvalid)
	}
	return &PaymentEntity{
		PaymentID:   strings.TrimSpace(resp.ID),
		OrderID:     strings.TrimSpace(resp.OrderID),
		AmountPaise: resp.Amount,
		Currency:    resp.Currency,
		Status:      resp.Status,
		Raw:         raw,
	}, nil
}

// VerifyPaymentSignature 验证 Checkout 回传签名
// 签名串为 "<order_id>|<payment_id>"，HMAC-SHA256 后十六进制输出。
func VerifyPaymentSignature(cfg *Config, orderID, paymentID, signature string) error {
	if cfg == nil || strings.TrimSpace(cfg.KeySecret) == "" {
		return ErrConfigInvalid
	}
	if orderID == "" || paymentID == "" || signature == "" {
		return ErrSignatureInvalid
	}
	expected := hmacSHA256Hex(cfg.KeySecret, orderID+"|"+paymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrSignatureInvalid
	}
	return nil
}

// VerifyWebhookSignature 验证 Webhook 签名，内容为原始请求体
func VerifyWebhookSignature(cfg *Config, body []byte, signature string) error {
	if cfg == nil || strings.TrimSpace(cfg.WebhookSecret) == "" {
		return ErrConfigInvalid
	}
	if len(body) == 0 || signature == "" {
		return ErrSignatureInvalid
	}
	expected := hmacSHA256Hex(cfg.WebhookSecret, string(body))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrSignatureInvalid
	}
	return nil
}

// CreateRefund 对已捕获的支付发起退款，amountPaise 为 0 时全额退款
func CreateRefund(ctx context.Context, cfg *Config, paymentID string, amountPaise int64) (*RefundResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, ErrConfigInvalid
	}

	payload := map[string]interface{}{}
	if amountPaise > 0 {
		payload["amount"] = amountPaise
	}

	respBytes, err := doRequest(ctx, cfg, http.MethodPost, "/v1/payments/"+paymentID+"/refund", payload)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	var resp struct {
		ID        string `json:"id"`
		PaymentID string `json:"payment_id"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, ErrResponseInvalid
	}
	if strings.TrimSpace(resp.ID) == "" {
		return nil, fmt.Errorf("%w: missing refund id", ErrResponseInvalid)
	}
	return &RefundResult{
		RefundID:    strings.TrimSpace(resp.ID),
		PaymentID:   strings.TrimSpace(resp.PaymentID),
		AmountPaise: resp.Amount,
		Status:      resp.Status,
		Raw:         raw,
	}, nil
}

func doRequest(ctx context.Context, cfg *Config, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, ErrRequestFailed
		}
		body = bytes.NewReader(data)
	}
	endpoint := buildEndpoint(cfg.BaseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, ErrRequestFailed
	}
	req.SetBasicAuth(cfg.KeyID, cfg.KeySecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

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
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		if json.Unmarshal(respBytes, &apiErr) == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("%w: %s", ErrRequestFailed, apiErr.Error.Description)
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

func hmacSHA256Hex(secret, content string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(content))
	return hex.EncodeToString(mac.Sum(nil))
}
