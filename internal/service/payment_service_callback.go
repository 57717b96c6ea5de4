package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/logger"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/payment/phonepe"
	"github.com/craftkart/api/internal/payment/razorpay"
)

// HandleRazorpayCallback 处理 Checkout 成功回传
// 验签后按网关订单号加锁，成功态幂等；金额以网关侧查询为准再入账。
func (s *PaymentService) HandleRazorpayCallback(ctx context.Context, input RazorpayCallbackInput) (*models.Payment, error) {
	if err := razorpay.VerifyPaymentSignature(s.razorpayConfig(),
		input.RazorpayOrderID, input.RazorpayPaymentID, input.RazorpaySignature); err != nil {
		logger.Warnw("razorpay_callback_signature_invalid", "razorpay_order_id", input.RazorpayOrderID)
		return nil, ErrPaymentSignatureInvalid
	}

	unlock := s.lockCallback(ctx, input.RazorpayOrderID)
	defer unlock()

	payment, err := s.paymentRepo.GetByProviderOrderID(input.RazorpayOrderID)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status == constants.PaymentStatusSuccess {
		return payment, nil
	}

	// 回传参数不带金额，查网关侧支付详情核对后才置成功
	entity, err := razorpay.FetchPayment(ctx, s.razorpayConfig(), input.RazorpayPaymentID)
	if err != nil {
		logger.Errorw("razorpay_payment_fetch_failed",
			"payment_id", payment.ID,
			"razorpay_payment_id", input.RazorpayPaymentID,
			"error", err,
		)
		return nil, ErrPaymentUpdateFailed
	}
	if entity.AmountPaise != payment.AmountPaise {
		logger.Errorw("razorpay_callback_amount_mismatch",
			"payment_id", payment.ID,
			"expected_paise", payment.AmountPaise,
			"received_paise", entity.AmountPaise,
		)
		return nil, ErrPaymentAmountMismatch
	}

	return s.markPaymentSuccess(payment, input.RazorpayPaymentID, entity.Raw)
}

// HandleRazorpayWebhook 处理 Razorpay Webhook
// 只消费 payment.captured 与 payment.failed，其余事件确认后丢弃。
func (s *PaymentService) HandleRazorpayWebhook(ctx context.Context, body []byte, signature string) error {
	if err := razorpay.VerifyWebhookSignature(s.razorpayConfig(), body, signature); err != nil {
		logger.Warnw("razorpay_webhook_signature_invalid")
		return ErrPaymentSignatureInvalid
	}

	event, err := parseRazorpayWebhook(body)
	if err != nil {
		return ErrPaymentInvalid
	}
	switch event.Event {
	case "payment.captured", "payment.failed":
	default:
		return nil
	}
	if event.OrderID == "" {
		return ErrPaymentInvalid
	}

	unlock := s.lockCallback(ctx, event.OrderID)
	defer unlock()

	payment, err := s.paymentRepo.GetByProviderOrderID(event.OrderID)
	if err != nil {
		return ErrPaymentUpdateFailed
	}
	if payment == nil {
		return ErrPaymentNotFound
	}
	if payment.Status == constants.PaymentStatusSuccess {
		return nil
	}

	if event.Event == "payment.failed" {
		s.markPaymentFailed(payment, event.PaymentID)
		return nil
	}

	if event.AmountPaise != payment.AmountPaise {
		logger.Errorw("razorpay_webhook_amount_mismatch",
			"payment_id", payment.ID,
			"expected_paise", payment.AmountPaise,
			"received_paise", event.AmountPaise,
		)
		return ErrPaymentAmountMismatch
	}
	_, err = s.markPaymentSuccess(payment, event.PaymentID, nil)
	return err
}

// HandlePhonepeCallback 处理 PhonePe 服务端回调
func (s *PaymentService) HandlePhonepeCallback(ctx context.Context, xVerify, base64Body string) error {
	if err := phonepe.VerifyCallback(s.phonepeConfig(), xVerify, base64Body); err != nil {
		logger.Warnw("phonepe_callback_signature_invalid")
		return ErrPaymentSignatureInvalid
	}
	payload, err := phonepe.DecodeCallback(base64Body)
	if err != nil {
		return ErrPaymentInvalid
	}

	unlock := s.lockCallback(ctx, payload.MerchantTransactionID)
	defer unlock()

	payment, err := s.paymentRepo.GetByProviderOrderID(payload.MerchantTransactionID)
	if err != nil {
		return ErrPaymentUpdateFailed
	}
	if payment == nil {
		return ErrPaymentNotFound
	}
	if payment.Status == constants.PaymentStatusSuccess {
		return nil
	}

	switch payload.State {
	case phonepe.StateCompleted:
		if payload.AmountPaise != payment.AmountPaise {
			logger.Errorw("phonepe_callback_amount_mismatch",
				"payment_id", payment.ID,
				"expected_paise", payment.AmountPaise,
				"received_paise", payload.AmountPaise,
			)
			return ErrPaymentAmountMismatch
		}
		_, err := s.markPaymentSuccess(payment, payload.TransactionID, payload.Raw)
		return err
	case phonepe.StateFailed:
		s.markPaymentFailed(payment, payload.TransactionID)
		return nil
	default:
		// PENDING 等中间态交给轮询任务收口
		return nil
	}
}

// razorpayWebhookEvent Webhook 事件要素
type razorpayWebhookEvent struct {
	Event       string
	OrderID     string
	PaymentID   string
	AmountPaise int64
}

func parseRazorpayWebhook(body []byte) (*razorpayWebhookEvent, error) {
	var envelope struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
					Amount  int64  `json:"amount"`
					Status  string `json:"status"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return &razorpayWebhookEvent{
		Event:       strings.TrimSpace(envelope.Event),
		OrderID:     strings.TrimSpace(envelope.Payload.Payment.Entity.OrderID),
		PaymentID:   strings.TrimSpace(envelope.Payload.Payment.Entity.ID),
		AmountPaise: envelope.Payload.Payment.Entity.Amount,
	}, nil
}
