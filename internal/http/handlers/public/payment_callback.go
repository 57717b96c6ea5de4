package public

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
)

const callbackLogValueLimit = 4096

// RazorpayCallbackRequest Razorpay Checkout 成功后回传的验签字段
type RazorpayCallbackRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// phonepeCallbackEnvelope PhonePe 服务端回调的信封结构
type phonepeCallbackEnvelope struct {
	Response string `json:"response"`
}

func truncateCallbackLogValue(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= callbackLogValueLimit {
		return raw
	}
	return raw[:callbackLogValueLimit] + "...(truncated)"
}

// RazorpayCallback Razorpay Checkout 支付完成回调（浏览器侧验签）
func (h *Handler) RazorpayCallback(c *gin.Context) {
	log := requestLog(c)
	var req RazorpayCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnw("razorpay_callback_payload_invalid", "client_ip", c.ClientIP(), "error", err)
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	log.Infow("razorpay_callback_received",
		"client_ip", c.ClientIP(),
		"razorpay_order_id", req.RazorpayOrderID,
		"razorpay_payment_id", req.RazorpayPaymentID,
	)

	payment, err := h.PaymentService.HandleRazorpayCallback(c.Request.Context(), service.RazorpayCallbackInput{
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
		RazorpaySignature: req.RazorpaySignature,
	})
	if err != nil {
		respondPaymentCallbackError(c, err)
		return
	}

	response.Success(c, gin.H{
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
		"status":     payment.Status,
	})
}

// RazorpayWebhook Razorpay 服务端 webhook
func (h *Handler) RazorpayWebhook(c *gin.Context) {
	log := requestLog(c)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("razorpay_webhook_body_read_failed", "error", err)
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	signature := strings.TrimSpace(c.GetHeader("X-Razorpay-Signature"))

	log.Infow("razorpay_webhook_received",
		"client_ip", c.ClientIP(),
		"body_size", len(body),
		"raw_body", truncateCallbackLogValue(string(body)),
	)

	if err := h.PaymentService.HandleRazorpayWebhook(c.Request.Context(), body, signature); err != nil {
		respondPaymentCallbackError(c, err)
		return
	}
	response.Success(c, gin.H{"accepted": true})
}

// PhonepeCallback PhonePe 服务端回调
// 请求体为 {"response": "<base64>"} 信封，X-VERIFY 头携带签名；
// 个别旧集成直接回传裸 base64，作降级兼容。
func (h *Handler) PhonepeCallback(c *gin.Context) {
	log := requestLog(c)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("phonepe_callback_body_read_failed", "error", err)
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	xVerify := strings.TrimSpace(c.GetHeader("X-VERIFY"))

	var envelope phonepeCallbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || strings.TrimSpace(envelope.Response) == "" {
		envelope.Response = strings.TrimSpace(string(body))
	}

	log.Infow("phonepe_callback_received",
		"client_ip", c.ClientIP(),
		"body_size", len(body),
	)

	if err := h.PaymentService.HandlePhonepeCallback(c.Request.Context(), xVerify, envelope.Response); err != nil {
		respondPaymentCallbackError(c, err)
		return
	}
	response.Success(c, gin.H{"accepted": true})
}
