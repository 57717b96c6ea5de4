package service

import "errors"

// 鉴权相关错误
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserDisabled       = errors.New("account disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenInvalid       = errors.New("invalid token")
)

// 目录相关错误
var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryInvalid     = errors.New("category slug and name are required")
	ErrSubcategoryNotFound = errors.New("subcategory not found")
	ErrCategoryInUse       = errors.New("category has products and cannot be deleted")
	ErrSlugExists          = errors.New("slug already exists")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductInvalid      = errors.New("product slug and name are required")
	ErrProductNotActive    = errors.New("product is not available")
	ErrProductPriceInvalid = errors.New("product price must be positive")
	ErrVariantNotFound     = errors.New("product variant not found")
	ErrVariantMismatch     = errors.New("variant does not belong to product")
	ErrVariantOutOfStock   = errors.New("insufficient stock for product variant")
)

// 折扣与批量价相关错误
var (
	ErrDiscountNotFound        = errors.New("discount not found")
	ErrDiscountNameRequired    = errors.New("discount name is required")
	ErrDiscountNameExists      = errors.New("discount name already exists")
	ErrDiscountMinQtyRequired  = errors.New("buy_x_get_y discount requires a minimum quantity of at least 1")
	ErrDiscountUserTypeInvalid = errors.New("unknown discount user type")
	ErrDiscountValueInvalid    = errors.New("discount value must be positive")
	ErrDiscountPercentInvalid  = errors.New("percentage discount cannot exceed 100")
	ErrDiscountWindowInvalid   = errors.New("discount validity window is invalid")
	ErrDiscountScopeInvalid    = errors.New("discount scope reference does not exist")
	ErrDiscountTypeInvalid     = errors.New("unknown discount type")
	ErrDiscountInUse           = errors.New("discount has usage records and cannot be deleted")
	ErrDiscountExhausted       = errors.New("discount is no longer available")
	ErrQuantityRuleNotFound    = errors.New("quantity price rule not found")
	ErrQuantityRuleInvalid     = errors.New("quantity price rule is invalid")
)

// ErrDashboardRangeInvalid 仪表盘时间范围非法
var ErrDashboardRangeInvalid = errors.New("invalid dashboard range")

// 订单相关错误
var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderEmpty            = errors.New("order has no items")
	ErrOrderItemInvalid      = errors.New("order item is invalid")
	ErrOrderCreateFailed     = errors.New("order creation failed")
	ErrOrderUpdateFailed     = errors.New("order update failed")
	ErrOrderFetchFailed      = errors.New("order fetch failed")
	ErrOrderCancelNotAllowed = errors.New("order cannot be cancelled")
	ErrOrderNotPayable       = errors.New("order is not payable")
	ErrOrderStatusInvalid    = errors.New("order status transition is not allowed")
	ErrShippingInfoInvalid   = errors.New("shipping information is incomplete")
)

// 支付相关错误
var (
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrPaymentNotEnabled       = errors.New("payment method is not enabled")
	ErrPaymentInvalid          = errors.New("payment request is invalid")
	ErrPaymentCreateFailed     = errors.New("payment creation failed")
	ErrPaymentUpdateFailed     = errors.New("payment update failed")
	ErrPaymentAmountMismatch   = errors.New("payment amount mismatch")
	ErrPaymentSignatureInvalid = errors.New("payment signature verification failed")
	ErrRefundNotAllowed        = errors.New("refund is not allowed for this payment")
)

// ErrCouponNotEligible 下单时优惠码校验失败的哨兵错误
// 具体原因通过 CouponNotEligibleError 携带，errors.Is 对两者均成立。
var ErrCouponNotEligible = errors.New("coupon not eligible")

// CouponNotEligibleError 携带面向用户的优惠码拒绝原因
type CouponNotEligibleError struct {
	Message string
}

// Error 返回拒绝原因
func (e *CouponNotEligibleError) Error() string {
	if e == nil || e.Message == "" {
		return ErrCouponNotEligible.Error()
	}
	return e.Message
}

// Is 使 errors.Is(err, ErrCouponNotEligible) 成立
func (e *CouponNotEligibleError) Is(target error) bool {
	return target == ErrCouponNotEligible
}

// NewCouponNotEligibleError 构造带原因的优惠码拒绝错误
func NewCouponNotEligibleError(message string) error {
	return &CouponNotEligibleError{Message: message}
}
