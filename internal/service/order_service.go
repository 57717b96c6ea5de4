package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/craftkart/api/internal/config"
	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/logger"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/queue"
	"github.com/craftkart/api/internal/repository"

	"github.com/avast/retry-go"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 订单服务
// 报价与落单共用同一套装配逻辑，落单在事务内完成扣库存与优惠核销。
type OrderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	discountRepo repository.DiscountRepository
	usageRepo    repository.DiscountUsageRepository
	pricingSvc   *PricingService
	cartSvc      *CartService
	queueClient  *queue.Client
	cfg          config.OrderConfig
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	discountRepo repository.DiscountRepository,
	usageRepo repository.DiscountUsageRepository,
	pricingSvc *PricingService,
	cartSvc *CartService,
	queueClient *queue.Client,
	cfg config.OrderConfig,
) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		discountRepo: discountRepo,
		usageRepo:    usageRepo,
		pricingSvc:   pricingSvc,
		cartSvc:      cartSvc,
		queueClient:  queueClient,
		cfg:          cfg,
	}
}

// CreateOrderItemInput 下单商品行输入
type CreateOrderItemInput struct {
	ProductID uint  `json:"product_id"`
	VariantID *uint `json:"variant_id,omitempty"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderInput 下单输入
type CreateOrderInput struct {
	UserID          uint
	Items           []CreateOrderItemInput
	CouponCode      string
	PaymentMethod   string
	ShippingName    string
	ShippingPhone   string
	ShippingAddress string
	ShippingCity    string
	ShippingState   string
	ShippingPincode string
}

// QuoteInput 报价输入
// Now 为显式计价时间戳，同一次结算内的报价与确认必须传同一个值。
type QuoteInput struct {
	Items         []CreateOrderItemInput
	CouponCode    string
	ShippingState string
	UserID        uint
	Now           time.Time
}

// QuoteItem 报价明细行
type QuoteItem struct {
	Product         *models.Product        `json:"-"`
	Variant         *models.ProductVariant `json:"-"`
	ProductID       uint                   `json:"product_id"`
	VariantID       *uint                  `json:"variant_id,omitempty"`
	ProductName     string                 `json:"product_name"`
	VariantName     string                 `json:"variant_name,omitempty"`
	UnitPrice       models.Money           `json:"unit_price"`
	Quantity        int                    `json:"quantity"`
	LineTotal       models.Money           `json:"line_total"`
	QuantitySavings models.Money           `json:"quantity_savings"`
	DiscountID      *uint                  `json:"discount_id,omitempty"`
	DiscountAmount  models.Money           `json:"discount_amount"`
}

// OrderQuote 订单报价
// 金额恒满足 TotalAmount == max(0, Subtotal - DiscountAmount) + ShippingCost。
type OrderQuote struct {
	Items           []QuoteItem       `json:"items"`
	Subtotal        models.Money      `json:"subtotal"`
	QuantitySavings models.Money      `json:"quantity_savings"`
	DiscountAmount  models.Money      `json:"discount_amount"`
	ShippingCost    models.Money      `json:"shipping_cost"`
	TotalAmount     models.Money      `json:"total_amount"`
	Mode            string            `json:"mode"`
	Applied         []AppliedDiscount `json:"applied_discounts"`
	Advisory        string            `json:"advisory,omitempty"`
	Coupon          *models.Discount  `json:"-"`
	PricedAt        time.Time         `json:"priced_at"`
}

// GetQuote 报价预览
// 优惠码被拒时以 Advisory 返回原因，报价本身照常给出零折扣结果。
func (s *OrderService) GetQuote(input QuoteInput) (*OrderQuote, error) {
	if input.Now.IsZero() {
		input.Now = time.Now()
	}
	return s.buildQuote(input)
}

// buildQuote 装配订单报价
// 单行：规格价 > 优惠价 > 原价 → 批量价 → 行小计；
// 整单：小计 → 优惠码或自动择优 → 运费 → 非负总额。
func (s *OrderService) buildQuote(input QuoteInput) (*OrderQuote, error) {
	items, err := mergeCreateOrderItems(input.Items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrOrderEmpty
	}

	productIDs := make([]uint, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.productRepo.ListByIDs(productIDs)
	if err != nil {
		return nil, err
	}
	productMap := make(map[uint]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	quote := &OrderQuote{
		Items:    make([]QuoteItem, 0, len(items)),
		PricedAt: input.Now,
	}
	subtotal := decimal.Zero
	quantitySavings := decimal.Zero
	for _, item := range items {
		product := productMap[item.ProductID]
		if product == nil {
			return nil, ErrProductNotFound
		}
		if !product.IsActive {
			return nil, ErrProductNotActive
		}

		variant, err := resolveOrderVariant(product, item.VariantID)
		if err != nil {
			return nil, err
		}
		unitPrice := product.SellingPrice()
		variantName := ""
		if variant != nil {
			if variant.Stock < item.Quantity {
				return nil, ErrVariantOutOfStock
			}
			if !variant.Price.Decimal.IsZero() {
				unitPrice = variant.Price
			}
			variantName = variant.Name
		}

		priced, err := s.pricingSvc.PriceItem(product.SubcategoryID, unitPrice, item.Quantity)
		if err != nil {
			return nil, err
		}
		subtotal = subtotal.Add(priced.FinalTotal.Decimal)
		quantitySavings = quantitySavings.Add(priced.Savings.Decimal)

		quote.Items = append(quote.Items, QuoteItem{
			Product:         product,
			Variant:         variant,
			ProductID:       product.ID,
			VariantID:       item.VariantID,
			ProductName:     product.Name,
			VariantName:     variantName,
			UnitPrice:       unitPrice,
			Quantity:        item.Quantity,
			LineTotal:       priced.FinalTotal,
			QuantitySavings: priced.Savings,
		})
	}
	quote.Subtotal = models.NewMoneyFromDecimal(subtotal)
	quote.QuantitySavings = models.NewMoneyFromDecimal(quantitySavings)

	cartLines := make([]CartLine, 0, len(quote.Items))
	for i := range quote.Items {
		cartLines = append(cartLines, CartLine{
			ProductID: quote.Items[i].ProductID,
			VariantID: quote.Items[i].VariantID,
			Quantity:  quote.Items[i].Quantity,
			UnitPrice: quote.Items[i].UnitPrice,
			LineTotal: quote.Items[i].LineTotal,
			Product:   quote.Items[i].Product,
		})
	}
	cartResult, err := s.cartSvc.CalculateCartDiscounts(cartLines, input.UserID, input.CouponCode, input.Now)
	if err != nil {
		return nil, err
	}
	quote.Mode = cartResult.Mode
	quote.Applied = cartResult.Applied
	quote.Advisory = cartResult.Advisory
	quote.Coupon = cartResult.Coupon
	quote.DiscountAmount = cartResult.TotalDiscount
	for _, applied := range cartResult.Applied {
		if applied.Level != constants.DiscountLevelProduct {
			continue
		}
		if applied.LineIndex < 0 || applied.LineIndex >= len(quote.Items) {
			continue
		}
		discountID := applied.DiscountID
		quote.Items[applied.LineIndex].DiscountID = &discountID
		quote.Items[applied.LineIndex].DiscountAmount = applied.Amount
	}

	quote.ShippingCost = ShippingCost(input.ShippingState)
	payable := subtotal.Sub(quote.DiscountAmount.Decimal)
	if payable.IsNegative() {
		payable = decimal.Zero
	}
	quote.TotalAmount = models.NewMoneyFromDecimal(payable.Add(quote.ShippingCost.Decimal))
	return quote, nil
}

// CreateOrder 创建订单
// 优惠码无效时创建失败；库存扣减、落库与优惠核销同事务，
// 仅在优惠额度竞争失败时带新数据重试一次。
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if err := validateShippingInfo(&input); err != nil {
		return nil, err
	}
	paymentMethod, err := normalizePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var order *models.Order
	err = retry.Do(
		func() error {
			created, attemptErr := s.createOrderOnce(input, paymentMethod, now)
			if attemptErr != nil {
				return attemptErr
			}
			order = created
			return nil
		},
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrDiscountExhausted)
		}),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(50*time.Millisecond),
		retry.Attempts(2),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	s.enqueueTimeoutCancel(order)
	return order, nil
}

// createOrderOnce 单次下单尝试：重建报价后在事务内落库
func (s *OrderService) createOrderOnce(input CreateOrderInput, paymentMethod string, now time.Time) (*models.Order, error) {
	quote, err := s.buildQuote(QuoteInput{
		Items:         input.Items,
		CouponCode:    input.CouponCode,
		ShippingState: input.ShippingState,
		UserID:        input.UserID,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	couponCode := strings.TrimSpace(input.CouponCode)
	if couponCode != "" && quote.Mode != constants.CartDiscountModeCoupon {
		message := quote.Advisory
		if message == "" {
			message = CouponMsgInvalidCode
		}
		return nil, NewCouponNotEligibleError(message)
	}

	order := &models.Order{
		OrderNo:         s.generateOrderNo(),
		UserID:          input.UserID,
		Status:          constants.OrderStatusPending,
		PaymentMethod:   paymentMethod,
		PaymentStatus:   constants.OrderPaymentStatusUnpaid,
		Currency:        constants.SiteCurrencyDefault,
		Subtotal:        quote.Subtotal,
		QuantitySavings: quote.QuantitySavings,
		DiscountAmount:  quote.DiscountAmount,
		ShippingCost:    quote.ShippingCost,
		TotalAmount:     quote.TotalAmount,
		CouponCode:      couponCode,
		ShippingName:    strings.TrimSpace(input.ShippingName),
		ShippingPhone:   strings.TrimSpace(input.ShippingPhone),
		ShippingAddress: strings.TrimSpace(input.ShippingAddress),
		ShippingCity:    strings.TrimSpace(input.ShippingCity),
		ShippingState:   strings.TrimSpace(input.ShippingState),
		ShippingPincode: strings.TrimSpace(input.ShippingPincode),
		PricedAt:        now,
	}
	if quote.Coupon != nil {
		couponID := quote.Coupon.ID
		order.DiscountID = &couponID
	}
	if paymentMethod != constants.PaymentMethodCOD {
		expiresAt := now.Add(s.paymentExpireWindow())
		order.ExpiresAt = &expiresAt
	}

	items := make([]models.OrderItem, 0, len(quote.Items))
	for i := range quote.Items {
		items = append(items, models.OrderItem{
			ProductID:       quote.Items[i].ProductID,
			VariantID:       quote.Items[i].VariantID,
			ProductName:     quote.Items[i].ProductName,
			VariantName:     quote.Items[i].VariantName,
			UnitPrice:       quote.Items[i].UnitPrice,
			Quantity:        quote.Items[i].Quantity,
			LineTotal:       quote.Items[i].LineTotal,
			QuantitySavings: quote.Items[i].QuantitySavings,
			DiscountID:      quote.Items[i].DiscountID,
			DiscountAmount:  quote.Items[i].DiscountAmount,
		})
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		if err := orderRepo.Create(order, items); err != nil {
			logger.Errorw("order_create_failed", "order_no", order.OrderNo, "error", err)
			return ErrOrderCreateFailed
		}
		for i := range quote.Items {
			if quote.Items[i].VariantID == nil {
				continue
			}
			rows, err := productRepo.DecrementVariantStock(*quote.Items[i].VariantID, quote.Items[i].Quantity)
			if err != nil {
				return err
			}
			if rows == 0 {
				return ErrVariantOutOfStock
			}
		}
		return s.recordDiscountUsages(tx, order, quote)
	})
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// recordDiscountUsages 在下单事务内核销折扣
// 同一折扣在一单内只记一条台账并加一次计数；有界累加零行生效视为额度耗尽。
func (s *OrderService) recordDiscountUsages(tx *gorm.DB, order *models.Order, quote *OrderQuote) error {
	type usageEntry struct {
		discountID uint
		amount     decimal.Decimal
	}
	entries := make([]usageEntry, 0, len(quote.Applied))
	indexByID := make(map[uint]int, len(quote.Applied))
	for _, applied := range quote.Applied {
		if idx, ok := indexByID[applied.DiscountID]; ok {
			entries[idx].amount = entries[idx].amount.Add(applied.Amount.Decimal)
			continue
		}
		indexByID[applied.DiscountID] = len(entries)
		entries = append(entries, usageEntry{discountID: applied.DiscountID, amount: applied.Amount.Decimal})
	}
	if len(entries) == 0 {
		return nil
	}

	usageRepo := s.usageRepo.WithTx(tx)
	discountRepo := s.discountRepo.WithTx(tx)
	for _, entry := range entries {
		amount := models.NewMoneyFromDecimal(entry.amount)
		if err := usageRepo.Create(&models.DiscountUsage{
			DiscountID:     entry.discountID,
			OrderID:        order.ID,
			UserID:         order.UserID,
			DiscountAmount: amount,
		}); err != nil {
			logger.Errorw("discount_usage_create_failed",
				"order_no", order.OrderNo,
				"discount_id", entry.discountID,
				"error", err,
			)
			return err
		}
		rows, err := discountRepo.IncrementUsage(entry.discountID, amount)
		if err != nil {
			return err
		}
		if rows == 0 {
			logger.Warnw("discount_usage_limit_hit",
				"order_no", order.OrderNo,
				"discount_id", entry.discountID,
			)
			return ErrDiscountExhausted
		}
	}
	return nil
}

// GetUserOrder 获取用户订单详情
func (s *OrderService) GetUserOrder(orderNo string, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNoAndUser(orderNo, userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if err := s.ensureOrderCancelledIfExpired(order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrderByNo 获取订单详情（内部/后台）
func (s *OrderService) GetOrderByNo(orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListUserOrders 获取用户订单列表
func (s *OrderService) ListUserOrders(userID uint, status string, page, pageSize int) ([]models.Order, int64, error) {
	orders, total, err := s.orderRepo.ListByUser(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Status:   strings.TrimSpace(status),
	})
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		if err := s.ensureOrderCancelledIfExpired(&orders[i]); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

// ListAdminOrders 后台订单列表
func (s *OrderService) ListAdminOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// CancelOrder 用户取消订单
// 仅未支付的待处理订单可取消，取消时回补库存并回退优惠核销。
func (s *OrderService) CancelOrder(orderNo string, userID uint, reason string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNoAndUser(orderNo, userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending || order.PaymentStatus != constants.OrderPaymentStatusUnpaid {
		return nil, ErrOrderCancelNotAllowed
	}
	if err := s.cancelOrderWithRollback(order, reason, constants.OrderPaymentStatusUnpaid); err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(order.ID)
}

// CancelExpiredOrder 取消超时未支付订单（队列任务入口，幂等）
func (s *OrderService) CancelExpiredOrder(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	if order.Status != constants.OrderStatusPending || order.PaymentStatus != constants.OrderPaymentStatusUnpaid {
		return nil
	}
	if order.ExpiresAt == nil || order.ExpiresAt.After(time.Now()) {
		return nil
	}
	return s.cancelOrderWithRollback(order, "payment timeout", constants.OrderPaymentStatusUnpaid)
}

// ensureOrderCancelledIfExpired 读取时懒同步过期订单状态
func (s *OrderService) ensureOrderCancelledIfExpired(order *models.Order) error {
	if order == nil {
		return nil
	}
	if order.Status != constants.OrderStatusPending || order.PaymentStatus != constants.OrderPaymentStatusUnpaid {
		return nil
	}
	if order.ExpiresAt == nil || order.ExpiresAt.After(time.Now()) {
		return nil
	}
	return s.cancelOrderWithRollback(order, "payment timeout", constants.OrderPaymentStatusUnpaid)
}

// cancelOrderWithRollback 取消订单并回滚副作用
// 回补规格库存、删除使用台账、回退折扣计数，三者与状态更新同事务。
// paymentStatus 区分未支付取消（unpaid）与退款取消（refunded）。
func (s *OrderService) cancelOrderWithRollback(order *models.Order, reason, paymentStatus string) error {
	now := time.Now()
	var rolledBackDiscountIDs []uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		usageRepo := s.usageRepo.WithTx(tx)
		discountRepo := s.discountRepo.WithTx(tx)

		updates := map[string]interface{}{
			"payment_status": paymentStatus,
			"cancelled_at":   now,
			"cancel_reason":  strings.TrimSpace(reason),
			"updated_at":     now,
		}
		if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusCancelled, updates); err != nil {
			return ErrOrderUpdateFailed
		}

		items := order.Items
		if len(items) == 0 {
			full, err := orderRepo.GetByID(order.ID)
			if err != nil {
				return err
			}
			if full != nil {
				items = full.Items
			}
		}
		for i := range items {
			if items[i].VariantID == nil {
				continue
			}
			if _, err := productRepo.RestoreVariantStock(*items[i].VariantID, items[i].Quantity); err != nil {
				return err
			}
		}

		usages, err := usageRepo.ListByOrderID(order.ID)
		if err != nil {
			return err
		}
		for i := range usages {
			if _, err := discountRepo.DecrementUsage(usages[i].DiscountID, usages[i].DiscountAmount); err != nil {
				return err
			}
			rolledBackDiscountIDs = append(rolledBackDiscountIDs, usages[i].DiscountID)
		}
		return usageRepo.DeleteByOrderID(order.ID)
	})
	if err != nil {
		logger.Errorw("order_cancel_failed", "order_no", order.OrderNo, "error", err)
		return err
	}

	order.Status = constants.OrderStatusCancelled
	order.CancelledAt = &now
	logger.Infow("order_cancelled", "order_no", order.OrderNo, "reason", reason)
	s.enqueueUsageSync(rolledBackDiscountIDs)
	return nil
}

// ConfirmOrderPaid 标记订单已支付（支付回调路径）
// 已支付订单幂等返回；已取消订单保留取消态并告警，留待人工对账退款。
func (s *OrderService) ConfirmOrderPaid(orderID uint, paidAt time.Time) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaymentStatus == constants.OrderPaymentStatusPaid {
		return order, nil
	}
	if order.Status == constants.OrderStatusCancelled {
		logger.Errorw("payment_received_for_cancelled_order",
			"order_no", order.OrderNo,
			"order_id", order.ID,
		)
		return nil, ErrOrderNotPayable
	}

	updates := map[string]interface{}{
		"payment_status": constants.OrderPaymentStatusPaid,
		"paid_at":        paidAt,
		"updated_at":     time.Now(),
	}
	if err := s.orderRepo.UpdateStatus(order.ID, constants.OrderStatusPaid, updates); err != nil {
		return nil, ErrOrderUpdateFailed
	}
	s.auditOrderTotals(order)

	order.Status = constants.OrderStatusPaid
	order.PaymentStatus = constants.OrderPaymentStatusPaid
	order.PaidAt = &paidAt
	return order, nil
}

// MarkOrderRefunded 退款后取消订单（支付服务在网关退款成功后调用）
// 与未支付取消同样回补库存并回退优惠核销，但支付状态置为 refunded。
func (s *OrderService) MarkOrderRefunded(orderID uint, reason string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaymentStatus == constants.OrderPaymentStatusRefunded {
		return order, nil
	}
	if order.PaymentStatus != constants.OrderPaymentStatusPaid {
		return nil, ErrRefundNotAllowed
	}
	if err := s.cancelOrderWithRollback(order, reason, constants.OrderPaymentStatusRefunded); err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(order.ID)
}

// auditOrderTotals 确认时以下单时间戳复算报价，校验金额可复现性
// 复算漂移说明目录或折扣配置在报价后被改动，记录告警供排查，不阻断支付。
func (s *OrderService) auditOrderTotals(order *models.Order) {
	items := make([]CreateOrderItemInput, 0, len(order.Items))
	for i := range order.Items {
		items = append(items, CreateOrderItemInput{
			ProductID: order.Items[i].ProductID,
			VariantID: order.Items[i].VariantID,
			Quantity:  order.Items[i].Quantity,
		})
	}
	if len(items) == 0 {
		return
	}
	quote, err := s.buildQuote(QuoteInput{
		Items:         items,
		CouponCode:    order.CouponCode,
		ShippingState: order.ShippingState,
		UserID:        order.UserID,
		Now:           order.PricedAt,
	})
	if err != nil {
		logger.Warnw("order_totals_audit_skipped", "order_no", order.OrderNo, "error", err)
		return
	}
	if quote.TotalAmount.Decimal.Cmp(order.TotalAmount.Decimal) != 0 {
		logger.Errorw("order_totals_drift_detected",
			"order_no", order.OrderNo,
			"stored_total", order.TotalAmount.String(),
			"requoted_total", quote.TotalAmount.String(),
		)
	}
}

// UpdateOrderStatus 后台更新订单状态
func (s *OrderService) UpdateOrderStatus(orderID uint, status string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	target := strings.ToLower(strings.TrimSpace(status))
	if !isOrderTransitionAllowed(order.Status, target) {
		return nil, ErrOrderStatusInvalid
	}
	switch target {
	case constants.OrderStatusCancelled:
		if err := s.cancelOrderWithRollback(order, "cancelled by admin", constants.OrderPaymentStatusUnpaid); err != nil {
			return nil, err
		}
		return s.orderRepo.GetByID(order.ID)
	case constants.OrderStatusPaid:
		// 货到付款由后台人工确认收款
		return s.ConfirmOrderPaid(order.ID, time.Now())
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if err := s.orderRepo.UpdateStatus(order.ID, target, updates); err != nil {
		return nil, ErrOrderUpdateFailed
	}
	order.Status = target
	return order, nil
}

// orderStatusTransitions 后台可执行的状态迁移
// 已支付订单的取消走退款流程，不在此表内。
var orderStatusTransitions = map[string][]string{
	constants.OrderStatusPending: {constants.OrderStatusPaid, constants.OrderStatusCancelled},
	constants.OrderStatusPaid:    {constants.OrderStatusShipped},
	constants.OrderStatusShipped: {constants.OrderStatusCompleted},
}

func isOrderTransitionAllowed(from, to string) bool {
	for _, allowed := range orderStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *OrderService) paymentExpireWindow() time.Duration {
	minutes := s.cfg.PaymentExpireMinutes
	if minutes <= 0 {
		minutes = 15
	}
	return time.Duration(minutes) * time.Minute
}

func (s *OrderService) enqueueTimeoutCancel(order *models.Order) {
	if order == nil || order.ExpiresAt == nil || s.queueClient == nil {
		return
	}
	delay := time.Until(*order.ExpiresAt)
	err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: order.ID}, delay)
	if err != nil {
		logger.Warnw("order_timeout_cancel_enqueue_failed",
			"order_no", order.OrderNo,
			"error", err,
		)
	}
}

// enqueueUsageSync 回滚后对涉及的折扣各触发一次计数对账
func (s *OrderService) enqueueUsageSync(discountIDs []uint) {
	if s.queueClient == nil {
		return
	}
	for _, id := range discountIDs {
		if err := s.queueClient.EnqueueDiscountUsageSync(queue.DiscountUsageSyncPayload{DiscountID: id}); err != nil {
			logger.Warnw("discount_usage_sync_enqueue_failed",
				"discount_id", id,
				"error", err,
			)
		}
	}
}

func (s *OrderService) generateOrderNo() string {
	prefix := strings.TrimSpace(s.cfg.NoPrefix)
	if prefix == "" {
		prefix = "CK"
	}
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("%s%s%s", prefix, now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}

// mergeCreateOrderItems 合并重复商品行并校验基本形状
func mergeCreateOrderItems(items []CreateOrderItemInput) ([]CreateOrderItemInput, error) {
	if len(items) == 0 {
		return nil, nil
	}
	merged := make([]CreateOrderItemInput, 0, len(items))
	indexMap := make(map[string]int)
	for _, item := range items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			return nil, ErrOrderItemInvalid
		}
		key := buildOrderItemKey(item.ProductID, item.VariantID)
		if idx, ok := indexMap[key]; ok {
			merged[idx].Quantity += item.Quantity
			continue
		}
		indexMap[key] = len(merged)
		merged = append(merged, CreateOrderItemInput{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return merged, nil
}

func buildOrderItemKey(productID uint, variantID *uint) string {
	if variantID == nil {
		return fmt.Sprintf("%d:-", productID)
	}
	return fmt.Sprintf("%d:%d", productID, *variantID)
}

// resolveOrderVariant 解析订单行规格，必须归属该商品且启用
func resolveOrderVariant(product *models.Product, variantID *uint) (*models.ProductVariant, error) {
	if variantID == nil {
		return nil, nil
	}
	for i := range product.Variants {
		if product.Variants[i].ID == *variantID {
			if !product.Variants[i].IsActive {
				return nil, ErrVariantNotFound
			}
			return &product.Variants[i], nil
		}
	}
	return nil, ErrVariantMismatch
}

func validateShippingInfo(input *CreateOrderInput) error {
	if strings.TrimSpace(input.ShippingName) == "" ||
		strings.TrimSpace(input.ShippingPhone) == "" ||
		strings.TrimSpace(input.ShippingAddress) == "" {
		return ErrShippingInfoInvalid
	}
	return nil
}

func normalizePaymentMethod(method string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(method))
	switch normalized {
	case constants.PaymentMethodCOD, constants.PaymentMethodRazorpay, constants.PaymentMethodPhonepe:
		return normalized, nil
	default:
		return "", ErrPaymentInvalid
	}
}
