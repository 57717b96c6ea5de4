package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/craftkart/api/internal/cache"
	"github.com/craftkart/api/internal/config"
	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/logger"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/payment/phonepe"
	"github.com/craftkart/api/internal/payment/razorpay"
	"github.com/craftkart/api/internal/queue"
	"github.com/craftkart/api/internal/repository"
)

const paymentCallbackLockTTL = 30 * time.Second

// PaymentService 支付业务服务
// 负责网关下单、回调处理、状态轮询与退款。
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	orderRepo   repository.OrderRepository
	orderSvc    *OrderService
	queueClient *queue.Client
	cfg         config.PaymentConfig
}

// NewPaymentService 创建支付服务
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	orderSvc *OrderService,
	queueClient *queue.Client,
	cfg config.PaymentConfig,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		orderSvc:    orderSvc,
		queueClient: queueClient,
		cfg:         cfg,
	}
}

// PaymentIntent 发起支付的返回结果
// Razorpay 返回 checkout 所需的 order_id 与 key_id，PhonePe 返回跳转链接。
type PaymentIntent struct {
	PaymentID       uint   `json:"payment_id"`
	Provider        string `json:"provider"`
	OrderNo         string `json:"order_no"`
	Amount          string `json:"amount"`
	AmountPaise     int64  `json:"amount_paise"`
	Currency        string `json:"currency"`
	RazorpayOrderID string `json:"razorpay_order_id,omitempty"`
	RazorpayKeyID   string `json:"razorpay_key_id,omitempty"`
	PayURL          string `json:"pay_url,omitempty"`
}

// RazorpayCallbackInput Checkout 成功回传参数
type RazorpayCallbackInput struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// CreatePayment 为在线支付订单发起网关支付，同订单未完成的支付单直接复用
func (s *PaymentService) CreatePayment(ctx context.Context, orderNo string, userID uint) (*PaymentIntent, error) {
	order, err := s.orderRepo.GetByOrderNoAndUser(strings.TrimSpace(orderNo), userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if err := s.orderSvc.ensureOrderCancelledIfExpired(order); err != nil {
		return nil, err
	}
	if order.Status != constants.OrderStatusPending || order.PaymentStatus != constants.OrderPaymentStatusUnpaid {
		return nil, ErrOrderNotPayable
	}

	switch order.PaymentMethod {
	case constants.PaymentMethodRazorpay:
		if !s.cfg.Razorpay.Enabled {
			return nil, ErrPaymentNotEnabled
		}
		return s.createRazorpayPayment(ctx, order)
	case constants.PaymentMethodPhonepe:
		if !s.cfg.Phonepe.Enabled {
			return nil, ErrPaymentNotEnabled
		}
		return s.createPhonepePayment(ctx, order)
	default:
		// 货到付款无需在线支付
		return nil, ErrPaymentInvalid
	}
}

func (s *PaymentService) createRazorpayPayment(ctx context.Context, order *models.Order) (*PaymentIntent, error) {
	if existing, err := s.reusablePayment(order, constants.PaymentMethodRazorpay); err != nil {
		return nil, err
	} else if existing != nil {
		return s.razorpayIntent(order, existing), nil
	}

	result, err := razorpay.CreateOrder(ctx, s.razorpayConfig(), razorpay.CreateOrderInput{
		Receipt:     order.OrderNo,
		AmountPaise: order.TotalAmount.Paise(),
		Currency:    order.Currency,
		Notes:       map[string]string{"order_no": order.OrderNo},
	})
	if err != nil {
		logger.Errorw("razorpay_order_create_failed", "order_no", order.OrderNo, "error", err)
		return nil, ErrPaymentCreateFailed
	}

	payment := models.Payment{
		OrderID:         order.ID,
		Provider:        constants.PaymentMethodRazorpay,
		Amount:          order.TotalAmount,
		AmountPaise:     order.TotalAmount.Paise(),
		Currency:        order.Currency,
		Status:          constants.PaymentStatusCreated,
		ProviderOrderID: result.OrderID,
		ProviderPayload: models.JSON(result.Raw),
	}
	if err := s.paymentRepo.Create(&payment); err != nil {
		return nil, ErrPaymentCreateFailed
	}
	logger.Infow("razorpay_order_created",
		"order_no", order.OrderNo,
		"payment_id", payment.ID,
		"razorpay_order_id", result.OrderID,
	)
	return s.razorpayIntent(order, &payment), nil
}

func (s *PaymentService) createPhonepePayment(ctx context.Context, order *models.Order) (*PaymentIntent, error) {
	if existing, err := s.reusablePayment(order, constants.PaymentMethodPhonepe); err != nil {
		return nil, err
	} else if existing != nil {
		return s.phonepeIntent(order, existing), nil
	}

	payment := models.Payment{
		OrderID:     order.ID,
		Provider:    constants.PaymentMethodPhonepe,
		Amount:      order.TotalAmount,
		AmountPaise: order.TotalAmount.Paise(),
		Currency:    order.Currency,
		Status:      constants.PaymentStatusCreated,
	}
	if err := s.paymentRepo.Create(&payment); err != nil {
		return nil, ErrPaymentCreateFailed
	}

	// 每次支付尝试使用独立的网关侧交易号，重试不撞号
	merchantTxnID := fmt.Sprintf("%s-%d", order.OrderNo, payment.ID)
	result, err := phonepe.CreatePayment(ctx, s.phonepeConfig(), phonepe.CreateInput{
		MerchantTransactionID: merchantTxnID,
		MerchantUserID:        fmt.Sprintf("U%d", order.UserID),
		AmountPaise:           order.TotalAmount.Paise(),
		MobileNumber:          order.ShippingPhone,
	})
	if err != nil {
		logger.Errorw("phonepe_pay_create_failed", "order_no", order.OrderNo, "error", err)
		payment.Status = constants.PaymentStatusFailed
		_ = s.paymentRepo.Update(&payment)
		return nil, ErrPaymentCreateFailed
	}

	payment.ProviderOrderID = merchantTxnID
	payment.PayURL = result.PaymentURL
	payment.Status = constants.PaymentStatusPending
	payment.ProviderPayload = models.JSON(result.Raw)
	if err := s.paymentRepo.Update(&payment); err != nil {
		return nil, ErrPaymentUpdateFailed
	}

	s.enqueuePhonepePoll(payment.ID, s.phonepePollInterval())
	logger.Infow("phonepe_pay_created",
		"order_no", order.OrderNo,
		"payment_id", payment.ID,
		"merchant_transaction_id", merchantTxnID,
	)
	return s.phonepeIntent(order, &payment), nil
}

// reusablePayment 返回同订单同网关仍可用的未完成支付单
func (s *PaymentService) reusablePayment(order *models.Order, provider string) (*models.Payment, error) {
	latest, err := s.paymentRepo.GetLatestByOrder(order.ID)
	if err != nil {
		return nil, ErrPaymentCreateFailed
	}
	if latest == nil || latest.Provider != provider {
		return nil, nil
	}
	switch latest.Status {
	case constants.PaymentStatusCreated, constants.PaymentStatusPending:
	default:
		return nil, nil
	}
	if latest.ProviderOrderID == "" {
		return nil, nil
	}
	if provider == constants.PaymentMethodPhonepe && latest.PayURL == "" {
		return nil, nil
	}
	return latest, nil
}

func (s *PaymentService) razorpayIntent(order *models.Order, payment *models.Payment) *PaymentIntent {
	return &PaymentIntent{
		PaymentID:       payment.ID,
		Provider:        payment.Provider,
		OrderNo:         order.OrderNo,
		Amount:          payment.Amount.String(),
		AmountPaise:     payment.AmountPaise,
		Currency:        payment.Currency,
		RazorpayOrderID: payment.ProviderOrderID,
		RazorpayKeyID:   s.cfg.Razorpay.KeyID,
	}
}

func (s *PaymentService) phonepeIntent(order *models.Order, payment *models.Payment) *PaymentIntent {
	return &PaymentIntent{
		PaymentID:   payment.ID,
		Provider:    payment.Provider,
		OrderNo:     order.OrderNo,
		Amount:      payment.Amount.String(),
		AmountPaise: payment.AmountPaise,
		Currency:    payment.Currency,
		PayURL:      payment.PayURL,
	}
}

// CheckPhonepeStatus 轮询 PhonePe 交易状态（队列任务入口）
// 终态直接停止；中间态在次数预算内重新入队，预算耗尽后交由回调或订单超时收口。
func (s *PaymentService) CheckPhonepeStatus(ctx context.Context, paymentID uint) error {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return nil
	}
	switch payment.Status {
	case constants.PaymentStatusSuccess, constants.PaymentStatusFailed, constants.PaymentStatusRefunded:
		return nil
	}
	if payment.ProviderOrderID == "" {
		return nil
	}

	if err := s.paymentRepo.IncrementPollAttempts(payment.ID); err != nil {
		return err
	}
	attempts := payment.PollAttempts + 1

	status, err := phonepe.CheckStatus(ctx, s.phonepeConfig(), payment.ProviderOrderID)
	if err != nil {
		logger.Warnw("phonepe_status_check_failed",
			"payment_id", payment.ID,
			"attempt", attempts,
			"error", err,
		)
		s.requeuePhonepePoll(payment.ID, attempts)
		return nil
	}

	switch status.State {
	case phonepe.StateCompleted:
		unlock := s.lockCallback(ctx, payment.ProviderOrderID)
		defer unlock()
		fresh, err := s.paymentRepo.GetByID(payment.ID)
		if err != nil || fresh == nil {
			return err
		}
		if fresh.Status == constants.PaymentStatusSuccess {
			return nil
		}
		if status.AmountPaise != fresh.AmountPaise {
			logger.Errorw("phonepe_status_amount_mismatch",
				"payment_id", fresh.ID,
				"expected_paise", fresh.AmountPaise,
				"received_paise", status.AmountPaise,
			)
			return ErrPaymentAmountMismatch
		}
		_, err = s.markPaymentSuccess(fresh, status.TransactionID, status.Raw)
		return err
	case phonepe.StateFailed:
		s.markPaymentFailed(payment, status.TransactionID)
		return nil
	default:
		s.requeuePhonepePoll(payment.ID, attempts)
		return nil
	}
}

// RefundOrder 对已支付订单退款并取消订单（后台操作）
func (s *PaymentService) RefundOrder(ctx context.Context, orderNo, reason string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(strings.TrimSpace(orderNo))
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaymentStatus != constants.OrderPaymentStatusPaid {
		return nil, ErrRefundNotAllowed
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "refunded by admin"
	}

	payment, err := s.latestSuccessfulPayment(order.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		// 货到付款没有在线支付单，线下退现金后直接回滚订单
		if order.PaymentMethod != constants.PaymentMethodCOD {
			return nil, ErrPaymentNotFound
		}
		return s.orderSvc.MarkOrderRefunded(order.ID, reason)
	}

	switch payment.Provider {
	case constants.PaymentMethodRazorpay:
		result, err := razorpay.CreateRefund(ctx, s.razorpayConfig(), payment.ProviderPaymentID, payment.AmountPaise)
		if err != nil {
			logger.Errorw("razorpay_refund_failed", "order_no", order.OrderNo, "error", err)
			return nil, ErrRefundNotAllowed
		}
		payment.RefundID = result.RefundID
	case constants.PaymentMethodPhonepe:
		result, err := phonepe.Refund(ctx, s.phonepeConfig(), phonepe.RefundInput{
			MerchantTransactionID: "R-" + payment.ProviderOrderID,
			OriginalTransactionID: payment.ProviderOrderID,
			AmountPaise:           payment.AmountPaise,
		})
		if err != nil {
			logger.Errorw("phonepe_refund_failed", "order_no", order.OrderNo, "error", err)
			return nil, ErrRefundNotAllowed
		}
		payment.RefundID = result.TransactionID
	default:
		return nil, ErrRefundNotAllowed
	}

	payment.Status = constants.PaymentStatusRefunded
	if err := s.paymentRepo.Update(payment); err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	logger.Infow("payment_refunded",
		"order_no", order.OrderNo,
		"payment_id", payment.ID,
		"refund_id", payment.RefundID,
	)
	return s.orderSvc.MarkOrderRefunded(order.ID, reason)
}

// GetOrderPayments 用户查看订单支付记录
func (s *PaymentService) GetOrderPayments(orderNo string, userID uint) ([]models.Payment, error) {
	order, err := s.orderRepo.GetByOrderNoAndUser(strings.TrimSpace(orderNo), userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.paymentRepo.ListByOrderID(order.ID)
}

// ListAdminPayments 后台支付流水列表
func (s *PaymentService) ListAdminPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.ListAdmin(filter)
}

// markPaymentSuccess 支付单置成功并联动订单
// 订单已取消时支付单保持成功态，错误上抛留待人工退款处理。
func (s *PaymentService) markPaymentSuccess(payment *models.Payment, providerPaymentID string, raw map[string]interface{}) (*models.Payment, error) {
	now := time.Now()
	payment.Status = constants.PaymentStatusSuccess
	payment.ProviderPaymentID = strings.TrimSpace(providerPaymentID)
	payment.PaidAt = &now
	payment.CallbackAt = &now
	if len(raw) > 0 {
		payment.ProviderPayload = models.JSON(raw)
	}
	if err := s.paymentRepo.Update(payment); err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	logger.Infow("payment_succeeded",
		"payment_id", payment.ID,
		"order_id", payment.OrderID,
		"provider", payment.Provider,
		"provider_payment_id", payment.ProviderPaymentID,
	)

	if _, err := s.orderSvc.ConfirmOrderPaid(payment.OrderID, now); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) markPaymentFailed(payment *models.Payment, providerPaymentID string) {
	now := time.Now()
	payment.Status = constants.PaymentStatusFailed
	if trimmed := strings.TrimSpace(providerPaymentID); trimmed != "" {
		payment.ProviderPaymentID = trimmed
	}
	payment.CallbackAt = &now
	if err := s.paymentRepo.Update(payment); err != nil {
		logger.Errorw("payment_mark_failed_error", "payment_id", payment.ID, "error", err)
		return
	}
	logger.Warnw("payment_failed",
		"payment_id", payment.ID,
		"order_id", payment.OrderID,
		"provider", payment.Provider,
	)
}

// latestSuccessfulPayment 取订单最近一笔成功支付单
func (s *PaymentService) latestSuccessfulPayment(orderID uint) (*models.Payment, error) {
	payments, err := s.paymentRepo.ListByOrderID(orderID)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	for i := range payments {
		if payments[i].Status == constants.PaymentStatusSuccess {
			return &payments[i], nil
		}
	}
	return nil, nil
}

// lockCallback 回调处理互斥锁；Redis 未启用时退化为无锁
func (s *PaymentService) lockCallback(ctx context.Context, key string) func() {
	lock, err := cache.ObtainLock(ctx, "payment:callback:"+key, paymentCallbackLockTTL)
	if err != nil {
		logger.Warnw("payment_callback_lock_failed", "key", key, "error", err)
		return func() {}
	}
	return func() { cache.ReleaseLock(ctx, lock) }
}

func (s *PaymentService) enqueuePhonepePoll(paymentID uint, delay time.Duration) {
	if err := s.queueClient.EnqueuePhonepeStatusPoll(queue.PhonepeStatusPollPayload{PaymentID: paymentID}, delay); err != nil {
		logger.Warnw("phonepe_poll_enqueue_failed", "payment_id", paymentID, "error", err)
	}
}

func (s *PaymentService) requeuePhonepePoll(paymentID uint, attempts int) {
	limit := s.cfg.Phonepe.StatusPollAttempts
	if limit <= 0 {
		limit = 15
	}
	if attempts >= limit {
		logger.Warnw("phonepe_status_poll_exhausted", "payment_id", paymentID, "attempts", attempts)
		return
	}
	s.enqueuePhonepePoll(paymentID, s.phonepePollInterval())
}

func (s *PaymentService) phonepePollInterval() time.Duration {
	seconds := s.cfg.Phonepe.StatusPollSeconds
	if seconds <= 0 {
		seconds = 20
	}
	return time.Duration(seconds) * time.Second
}

func (s *PaymentService) razorpayConfig() *razorpay.Config {
	return &razorpay.Config{
		KeyID:         s.cfg.Razorpay.KeyID,
		KeySecret:     s.cfg.Razorpay.KeySecret,
		WebhookSecret: s.cfg.Razorpay.WebhookSecret,
		BaseURL:       s.cfg.Razorpay.BaseURL,
	}
}

func (s *PaymentService) phonepeConfig() *phonepe.Config {
	return &phonepe.Config{
		MerchantID:  s.cfg.Phonepe.MerchantID,
		SaltKey:     s.cfg.Phonepe.SaltKey,
		SaltIndex:   s.cfg.Phonepe.SaltIndex,
		BaseURL:     s.cfg.Phonepe.BaseURL,
		RedirectURL: s.cfg.Phonepe.RedirectURL,
		CallbackURL: s.cfg.Phonepe.CallbackURL,
	}
}
