package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/craftkart/api/internal/config"
	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/payment/phonepe"
	"github.com/craftkart/api/internal/queue"
	"github.com/craftkart/api/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var paymentTestConfig = config.PaymentConfig{
	Razorpay: config.RazorpayConfig{
		Enabled:       true,
		KeyID:         "rzp_test_craftkart",
		KeySecret:     "rzp_secret_craftkart",
		WebhookSecret: "rzp_webhook_craftkart",
	},
	Phonepe: config.PhonepeConfig{
		Enabled:     true,
		MerchantID:  "CRAFTKARTUAT",
		SaltKey:     "salt-key-craftkart",
		SaltIndex:   "1",
		RedirectURL: "https://shop.example.com/payment/return",
		CallbackURL: "https://shop.example.com/api/payments/phonepe/callback",
	},
}

func setupPaymentServiceTest(t *testing.T) (*PaymentService, *OrderService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Subcategory{},
		&models.Product{},
		&models.ProductVariant{},
		&models.QuantityPriceRule{},
		&models.Discount{},
		&models.DiscountUsage{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}
	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	usageRepo := repository.NewDiscountUsageRepository(db)
	discountSvc := NewDiscountService(discountRepo, usageRepo, repository.NewUserRepository(db))
	orderSvc := NewOrderService(
		orderRepo,
		productRepo,
		discountRepo,
		usageRepo,
		NewPricingService(repository.NewQuantityPriceRuleRepository(db)),
		NewCartService(productRepo, discountSvc),
		queueClient,
		config.OrderConfig{},
	)
	paymentSvc := NewPaymentService(
		repository.NewPaymentRepository(db),
		orderRepo,
		orderSvc,
		queueClient,
		paymentTestConfig,
	)
	return paymentSvc, orderSvc, db
}

func seedPaymentRow(t *testing.T, db *gorm.DB, order *models.Order, provider, providerOrderID, status string) models.Payment {
	t.Helper()
	payment := models.Payment{
		OrderID:         order.ID,
		Provider:        provider,
		Amount:          order.TotalAmount,
		AmountPaise:     order.TotalAmount.Paise(),
		Currency:        order.Currency,
		Status:          status,
		ProviderOrderID: providerOrderID,
	}
	if provider == constants.PaymentMethodPhonepe {
		payment.PayURL = "https://pay.phonepe.com/checkout/" + providerOrderID
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	return payment
}

func hmacHex(secret, content string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(content))
	return hex.EncodeToString(mac.Sum(nil))
}

func phonepeCallbackBody(t *testing.T, merchantTxnID, state string, amountPaise int64) string {
	t.Helper()
	code := phonepe.CodePaymentSuccess
	if state == phonepe.StateFailed {
		code = phonepe.CodePaymentError
	}
	payload := map[string]interface{}{
		"success": state == phonepe.StateCompleted,
		"code":    code,
		"data": map[string]interface{}{
			"merchantId":            paymentTestConfig.Phonepe.MerchantID,
			"merchantTransactionId": merchantTxnID,
			"transactionId":         "T2408251234",
			"amount":                amountPaise,
			"state":                 state,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal callback failed: %v", err)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func phonepeXVerify(base64Body string) string {
	cfg := &phonepe.Config{
		MerchantID: paymentTestConfig.Phonepe.MerchantID,
		SaltKey:    paymentTestConfig.Phonepe.SaltKey,
		SaltIndex:  paymentTestConfig.Phonepe.SaltIndex,
	}
	return phonepe.SignRequest(cfg, base64Body, "")
}

// razorpayStubService 返回网关地址指向本地桩 server 的支付服务
func razorpayStubService(db *gorm.DB, orderSvc *OrderService, baseURL string) *PaymentService {
	cfg := paymentTestConfig
	cfg.Razorpay.BaseURL = baseURL
	return NewPaymentService(
		repository.NewPaymentRepository(db),
		repository.NewOrderRepository(db),
		orderSvc,
		nil,
		cfg,
	)
}

func TestCreatePaymentGuards(t *testing.T) {
	svc, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)
	ctx := context.Background()

	// 本用例连续下三单，补足规格库存
	if err := db.Model(&models.ProductVariant{}).Where("id = ?", catalog.variant.ID).Update("stock", 50).Error; err != nil {
		t.Fatalf("update stock failed: %v", err)
	}

	if _, err := svc.CreatePayment(ctx, "CK-MISSING", catalog.user.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("unknown order want ErrOrderNotFound got %v", err)
	}

	codOrder, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodCOD, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CreatePayment(ctx, codOrder.OrderNo, catalog.user.ID); !errors.Is(err, ErrPaymentInvalid) {
		t.Fatalf("cod order want ErrPaymentInvalid got %v", err)
	}

	paidOrder, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodRazorpay, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := orderSvc.ConfirmOrderPaid(paidOrder.ID, time.Now()); err != nil {
		t.Fatalf("confirm paid failed: %v", err)
	}
	if _, err := svc.CreatePayment(ctx, paidOrder.OrderNo, catalog.user.ID); !errors.Is(err, ErrOrderNotPayable) {
		t.Fatalf("paid order want ErrOrderNotPayable got %v", err)
	}

	// 网关未启用时直接拒绝
	disabledSvc := NewPaymentService(
		repository.NewPaymentRepository(db),
		repository.NewOrderRepository(db),
		orderSvc,
		nil,
		config.PaymentConfig{},
	)
	pendingOrder, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodRazorpay, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := disabledSvc.CreatePayment(ctx, pendingOrder.OrderNo, catalog.user.ID); !errors.Is(err, ErrPaymentNotEnabled) {
		t.Fatalf("disabled gateway want ErrPaymentNotEnabled got %v", err)
	}
}

func TestCreatePaymentReusesOpenPayment(t *testing.T) {
	svc, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)
	ctx := context.Background()

	order, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodRazorpay, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	existing := seedPaymentRow(t, db, order, constants.PaymentMethodRazorpay, "order_RZP01", constants.PaymentStatusCreated)

	intent, err := svc.CreatePayment(ctx, order.OrderNo, catalog.user.ID)
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if intent.PaymentID != existing.ID {
		t.Fatalf("open payment should be reused, want id=%d got %d", existing.ID, intent.PaymentID)
	}
	if intent.RazorpayOrderID != "order_RZP01" {
		t.Fatalf("intent should carry the gateway order id, got %q", intent.RazorpayOrderID)
	}
	if intent.RazorpayKeyID != paymentTestConfig.Razorpay.KeyID {
		t.Fatalf("intent should carry the checkout key id, got %q", intent.RazorpayKeyID)
	}
	if intent.AmountPaise != order.TotalAmount.Paise() {
		t.Fatalf("amount paise want %d got %d", order.TotalAmount.Paise(), intent.AmountPaise)
	}

	var count int64
	if err := db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count payments failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("reuse must not create a second payment, got %d", count)
	}
}

func TestCreatePaymentReusesPhonepePayURL(t *testing.T) {
	svc, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)
	ctx := context.Background()

	order, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodPhonepe, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	existing := seedPaymentRow(t, db, order, constants.PaymentMethodPhonepe, order.OrderNo+"-1", constants.PaymentStatusPending)

	intent, err := svc.CreatePayment(ctx, order.OrderNo, catalog.user.ID)
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if intent.PaymentID != existing.ID {
		t.Fatalf("pending phonepe payment should be reused")
	}
	if intent.PayURL != existing.PayURL {
		t.Fatalf("intent should return the stored pay page url, got %q", intent.PayURL)
	}
}

func TestHandleRazorpayCallback(t *testing.T) {
	_, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)
	ctx := context.Background()

	order, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodRazorpay, "SAVE50"))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	seeded := seedPaymentRow(t, db, order, constants.PaymentMethodRazorpay, "order_RZP02", constants.PaymentStatusCreated)

	// 桩网关返回与本地支付单一致的金额
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/payments/pay_ABC123" {
			t.Errorf("unexpected gateway request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       "pay_ABC123",
			"order_id": "order_RZP02",
			"amount":   seeded.AmountPaise,
			"currency": "INR",
			"status":   "captured",
		})
	}))
	defer gateway.Close()
	svc := razorpayStubService(db, orderSvc, gateway.URL)

	signature := hmacHex(paymentTestConfig.Razorpay.KeySecret, "order_RZP02|pay_ABC123")
	payment, err := svc.HandleRazorpayCallback(ctx, RazorpayCallbackInput{
		RazorpayOrderID:   "order_RZP02",
		RazorpayPaymentID: "pay_ABC123",
		RazorpaySignature: signature,
	})
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if payment.Status != constants.PaymentStatusSuccess {
		t.Fatalf("payment status want success got %s", payment.Status)
	}
	if payment.ProviderPaymentID != "pay_ABC123" || payment.PaidAt == nil {
		t.Fatalf("payment should record the gateway payment id and paid time")
	}

	paid, err := orderSvc.GetOrderByNo(order.OrderNo)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if paid.Status != constants.OrderStatusPaid || paid.PaymentStatus != constants.OrderPaymentStatusPaid {
		t.Fatalf("order should flip to paid, got %s/%s", paid.Status, paid.PaymentStatus)
	}

	// 重复回调幂等
	again, err := svc.HandleRazorpayCallback(ctx, RazorpayCallbackInput{
		RazorpayOrderID:   "order_RZP02",
		RazorpayPaymentID: "pay_ABC123",
		RazorpaySignature: signature,
	})
	if err != nil {
		t.Fatalf("repeat callback failed: %v", err)
	}
	if again.Status != constants.PaymentStatusSuccess {
		t.Fatalf("repeat callback should stay success")
	}
}

func TestHandleRazorpayCallbackRejections(t *testing.T) {
	svc, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)
	ctx := context.Background()

	order, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodRazorpay, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	seeded := seedPaymentRow(t, db, order, constants.PaymentMethodRazorpay, "order_RZP03", constants.PaymentStatusCreated)

	_, err = svc.HandleRazorpayCallback(ctx, RazorpayCallbackInput{
		RazorpayOrderID:   "order_RZP03",
		RazorpayPaymentID: "pay_TAMPERED",
		RazorpaySignature: "deadbeef",
	})
	if !errors.Is(err, ErrPaymentSignatureInvalid) {
		t.Fatalf("bad signature want ErrPaymentSignatureInvalid got %v", err)
	}

	signature := hmacHex(paymentTestConfig.Razorpay.KeySecret, "order_UNKNOWN|pay_XYZ")
	_, err = svc.HandleRazorpayCallback(ctx, RazorpayCallbackInput{
		RazorpayOrderID:   "order_UNKNOWN",
		RazorpayPaymentID: "pay_XYZ",
		RazorpaySignature: signature,
	})
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("unknown gateway order want ErrPaymentNotFound got %v", err)
	}

	// 网关查不到支付详情时不入账
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	signature = hmacHex(paymentTestConfig.Razorpay.KeySecret, "order_RZP03|pay_DOWN")
	_, err = razorpayStubService(db, orderSvc, down.URL).HandleRazorpayCallback(ctx, RazorpayCallbackInput{
		RazorpayOrderID:   "order_RZP03",
		RazorpayPaymentID: "pay_DOWN",
		RazorpaySignature: signature,
	})
	if !errors.Is(err, ErrPaymentUpdateFailed) {
		t.Fatalf("gateway failure want ErrPaymentUpdateFailed got %v", err)
	}

	// 网关侧金额与支付单不符拒绝入账
	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       "pay_SHORT",
			"order_id": "order_RZP03",
			"amount":   seeded.AmountPaise - 100,
			"currency": "INR",
			"status":   "captured",
		})
	}))
	defer short.Close()
	signature = hmacHex(paymentTestConfig.Razorpay.KeySecret, "order_RZP03|pay_SHORT")
	_, err = razorpayStubService(db, orderSvc, short.URL).HandleRazorpayCallback(ctx, RazorpayCallbackInput{
		RazorpayOrderID:   "order_RZP03",
		RazorpayPaymentID: "pay_SHORT",
		RazorpaySignature: signature,
	})
	if !errors.Is(err, ErrPaymentAmountMismatch) {
		t.Fatalf("amount mismatch want ErrPaymentAmountMismatch got %v", err)
	}

	// 被拒的回调不得改变支付单与订单状态
	var stored models.Payment
	if err := db.First(&stored, seeded.ID).Error; err != nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if stored.Status != constants.PaymentStatusCreated {
		t.Fatalf("rejected callback must not change status, got %s", stored.Status)
	}
	reloaded, err := orderSvc.GetOrderByNo(order.OrderNo)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.PaymentStatus != constants.OrderPaymentStatusUnpaid {
		t.Fatalf("rejected callback must not pay the order, got %s", reloaded.PaymentStatus)
	}
}

func TestHandleRazorpayWebhook(t *testing.T) {
	svc, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)
	ctx := context.Background()

	order, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodRazorpay, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payment := seedPaymentRow(t, db, order, constants.PaymentMethodRazorpay, "order_RZP04", constants.PaymentStatusCreated)

	captured := fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_HOOK1","order_id":"order_RZP04","amount":%d,"status":"captured"}}}}`, payment.AmountPaise)
	if err := svc.HandleRazorpayWebhook(ctx, []byte(captured), hmacHex(paymentTestConfig.Razorpay.WebhookSecret, captured)); err != nil {
		t.Fatalf("webhook failed: %v", err)
	}

	var stored models.Payment
	if err := db.First(&stored, payment.ID).Error; err != nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if stored.Status != constants.PaymentStatusSuccess || stored.ProviderPaymentID != "pay_HOOK1" {
		t.Fatalf("webhook should mark success, got %s/%s", stored.Status, stored.ProviderPaymentID)
	}
	paid, err := orderSvc.GetOrderByNo(order.OrderNo)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if paid.PaymentStatus != constants.OrderPaymentStatusPaid {
		t.Fatalf("order should be paid after webhook")
	}
}

func TestHandleRazorpayWebhookRejections(t *testing.T) {
	svc, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)
	ctx := context.Background()

	order, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodRazorpay, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payment := seedPaymentRow(t, db, order, constants.PaymentMethodRazorpay, "order_RZP05", constants.PaymentStatusCreated)

	body := `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_X","order_id":"order_RZP05","amount":1,"status":"captured"}}}}`
	if err := svc.HandleRazorpayWebhook(ctx, []byte(body), "bogus"); !errors.Is(err, ErrPaymentSignatureInvalid) {
		t.Fatalf("bad signature want ErrPaymentSignatureInvalid got %v", err)
	}

	// 金额不符拒绝入账
	if err := svc.HandleRazorpayWebhook(ctx, []byte(body), hmacHex(paymentTestConfig.Razorpay.WebhookSecret, body)); !errors.Is(err, ErrPaymentAmountMismatch) {
		t.Fatalf("amount mismatch want ErrPaymentAmountMismatch got %v", err)
	}

	// 不关心的事件确认后丢弃
	ignored := `{"event":"payment.authorized","payload":{"payment":{"entity":{"id":"pay_X","order_id":"order_RZP05","amount":1}}}}`
	if err := svc.HandleRazorpayWebhook(ctx, []byte(ignored), hmacHex(paymentTestConfig.Razorpay.WebhookSecret, ignored)); err != nil {
		t.Fatalf("ignored event want nil got %v", err)
	}

	// 失败事件落失败态
	failed := fmt.Sprintf(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_FAIL","order_id":"order_RZP05","amount":%d,"status":"failed"}}}}`, payment.AmountPaise)
	if err := svc.HandleRazorpayWebhook(ctx, []byte(failed), hmacHex(paymentTestConfig.Razorpay.WebhookSecret, failed)); err != nil {
		t.Fatalf("failed event errored: %v", err)
	}
	var stored models.Payment
	if err := db.First(&stored, payment.ID).Error; err != nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if stored.Status != constants.PaymentStatusFailed {
		t.Fatalf("payment status want failed got %s", stored.Status)
	}
}

func TestHandlePhonepeCallback(t *testing.T) {
	svc, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)
	ctx := context.Background()

	order, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodPhonepe, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	merchantTxnID := order.OrderNo + "-1"
	payment := seedPaymentRow(t, db, order, constants.PaymentMethodPhonepe, merchantTxnID, constants.PaymentStatusPending)

	body := phonepeCallbackBody(t, merchantTxnID, phonepe.StateCompleted, payment.AmountPaise)
	if err := svc.HandlePhonepeCallback(ctx, phonepeXVerify(body), body); err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	var stored models.Payment
	if err := db.First(&stored, payment.ID).Error; err != nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if stored.Status != constants.PaymentStatusSuccess || stored.ProviderPaymentID != "T2408251234" {
		t.Fatalf("callback should mark success, got %s/%s", stored.Status, stored.ProviderPaymentID)
	}
	paid, err := orderSvc.GetOrderByNo(order.OrderNo)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if paid.PaymentStatus != constants.OrderPaymentStatusPaid {
		t.Fatalf("order should be paid after callback")
	}

	// 重复回调幂等
	if err := svc.HandlePhonepeCallback(ctx, phonepeXVerify(body), body); err != nil {
		t.Fatalf("repeat callback failed: %v", err)
	}
}

func TestHandlePhonepeCallbackRejections(t *testing.T) {
	svc, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)
	ctx := context.Background()

	order, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodPhonepe, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	merchantTxnID := order.OrderNo + "-1"
	payment := seedPaymentRow(t, db, order, constants.PaymentMethodPhonepe, merchantTxnID, constants.PaymentStatusPending)

	body := phonepeCallbackBody(t, merchantTxnID, phonepe.StateCompleted, payment.AmountPaise)
	if err := svc.HandlePhonepeCallback(ctx, "tampered###1", body); !errors.Is(err, ErrPaymentSignatureInvalid) {
		t.Fatalf("bad x-verify want ErrPaymentSignatureInvalid got %v", err)
	}

	mismatched := phonepeCallbackBody(t, merchantTxnID, phonepe.StateCompleted, payment.AmountPaise+100)
	if err := svc.HandlePhonepeCallback(ctx, phonepeXVerify(mismatched), mismatched); !errors.Is(err, ErrPaymentAmountMismatch) {
		t.Fatalf("amount mismatch want ErrPaymentAmountMismatch got %v", err)
	}

	// 中间态不落账，等轮询收口
	pending := phonepeCallbackBody(t, merchantTxnID, phonepe.StatePending, payment.AmountPaise)
	if err := svc.HandlePhonepeCallback(ctx, phonepeXVerify(pending), pending); err != nil {
		t.Fatalf("pending state want nil got %v", err)
	}
	var stored models.Payment
	if err := db.First(&stored, payment.ID).Error; err != nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if stored.Status != constants.PaymentStatusPending {
		t.Fatalf("pending callback must not change status, got %s", stored.Status)
	}

	failed := phonepeCallbackBody(t, merchantTxnID, phonepe.StateFailed, payment.AmountPaise)
	if err := svc.HandlePhonepeCallback(ctx, phonepeXVerify(failed), failed); err != nil {
		t.Fatalf("failed state errored: %v", err)
	}
	if err := db.First(&stored, payment.ID).Error; err != nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if stored.Status != constants.PaymentStatusFailed {
		t.Fatalf("payment status want failed got %s", stored.Status)
	}
}

func TestRefundOrderCOD(t *testing.T) {
	svc, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)
	ctx := context.Background()

	order, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodCOD, "SAVE50"))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 未支付不可退款
	if _, err := svc.RefundOrder(ctx, order.OrderNo, "too early"); !errors.Is(err, ErrRefundNotAllowed) {
		t.Fatalf("unpaid refund want ErrRefundNotAllowed got %v", err)
	}

	if _, err := orderSvc.ConfirmOrderPaid(order.ID, time.Now()); err != nil {
		t.Fatalf("confirm paid failed: %v", err)
	}
	refunded, err := svc.RefundOrder(ctx, order.OrderNo, "damaged in transit")
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if refunded.Status != constants.OrderStatusCancelled || refunded.PaymentStatus != constants.OrderPaymentStatusRefunded {
		t.Fatalf("want cancelled/refunded got %s/%s", refunded.Status, refunded.PaymentStatus)
	}
	if stock := catalog.variantStock(t, db); stock != 5 {
		t.Fatalf("refund should restore stock, got %d", stock)
	}
}

func TestRefundOrderGuards(t *testing.T) {
	svc, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)
	ctx := context.Background()

	if _, err := svc.RefundOrder(ctx, "CK-MISSING", ""); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("unknown order want ErrOrderNotFound got %v", err)
	}

	// 在线支付订单没有成功支付单时不可本地退款
	order, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodRazorpay, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := orderSvc.ConfirmOrderPaid(order.ID, time.Now()); err != nil {
		t.Fatalf("confirm paid failed: %v", err)
	}
	if _, err := svc.RefundOrder(ctx, order.OrderNo, ""); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("missing payment want ErrPaymentNotFound got %v", err)
	}
}

func TestCheckPhonepeStatusTerminalStates(t *testing.T) {
	svc, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)
	ctx := context.Background()

	// 不存在的支付单直接结束
	if err := svc.CheckPhonepeStatus(ctx, 9999); err != nil {
		t.Fatalf("missing payment want nil got %v", err)
	}

	order, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodPhonepe, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payment := seedPaymentRow(t, db, order, constants.PaymentMethodPhonepe, order.OrderNo+"-1", constants.PaymentStatusSuccess)
	if err := svc.CheckPhonepeStatus(ctx, payment.ID); err != nil {
		t.Fatalf("terminal payment want nil got %v", err)
	}
	var stored models.Payment
	if err := db.First(&stored, payment.ID).Error; err != nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if stored.PollAttempts != 0 {
		t.Fatalf("terminal payment must not be polled, attempts got %d", stored.PollAttempts)
	}
}

func TestGetOrderPayments(t *testing.T) {
	svc, orderSvc, db := setupPaymentServiceTest(t)
	catalog := seedOrderCatalog(t, db)

	order, err := orderSvc.CreateOrder(catalog.orderInput(constants.PaymentMethodRazorpay, ""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	seedPaymentRow(t, db, order, constants.PaymentMethodRazorpay, "order_RZP06", constants.PaymentStatusCreated)

	payments, err := svc.GetOrderPayments(order.OrderNo, catalog.user.ID)
	if err != nil {
		t.Fatalf("list payments failed: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("payments want 1 got %d", len(payments))
	}

	// 他人订单不可见
	if _, err := svc.GetOrderPayments(order.OrderNo, catalog.user.ID+1); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("foreign order want ErrOrderNotFound got %v", err)
	}
}
