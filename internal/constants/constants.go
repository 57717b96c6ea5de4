package constants

// 订单状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// 支付方式常量
const (
	PaymentMethodCOD      = "cod"
	PaymentMethodRazorpay = "razorpay"
	PaymentMethodPhonepe  = "phonepe"
)

// 订单侧支付状态常量
const (
	OrderPaymentStatusUnpaid   = "unpaid"
	OrderPaymentStatusPaid     = "paid"
	OrderPaymentStatusRefunded = "refunded"
)

// 支付单状态常量
const (
	PaymentStatusCreated  = "created"
	PaymentStatusPending  = "pending"
	PaymentStatusSuccess  = "success"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// 折扣类型常量
const (
	DiscountTypePercentage  = "percentage"
	DiscountTypeFixedAmount = "fixed_amount"
	DiscountTypeBuyXGetY    = "buy_x_get_y"
)

// 批量价规则类型常量
const (
	QuantityPriceTypePercentage  = "percentage"
	QuantityPriceTypeFixedAmount = "fixed_amount"
)

// 折扣作用层级常量
const (
	DiscountLevelOrder   = "order_level"
	DiscountLevelProduct = "product_level"
)

// 购物车折扣模式常量
const (
	CartDiscountModeCoupon   = "coupon"
	CartDiscountModeAutoBest = "auto_best"
	CartDiscountModeNone     = "none"
)

// 用户角色常量
const (
	UserRoleCustomer  = "customer"
	UserRoleWholesale = "wholesale"
	UserRoleAdmin     = "admin"
)

// 折扣用户类型通配常量
const (
	DiscountUserTypeAll = "all"
)

// 队列常量
const (
	QueueDefault           = "default"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
	TaskPhonepeStatusPoll  = "payment:phonepe_status"
	TaskDiscountUsageSync  = "discount:usage_reconcile"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "ck"
)

// 币种常量
const (
	SiteCurrencyDefault = "INR"
)
