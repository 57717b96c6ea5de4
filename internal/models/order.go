package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
// 四个金额字段恒满足 TotalAmount == max(0, Subtotal - DiscountAmount) + ShippingCost。
type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                          // 主键
	OrderNo         string         `gorm:"uniqueIndex;not null" json:"order_no"`                          // 订单编号
	UserID          uint           `gorm:"index;not null" json:"user_id"`                                 // 用户ID
	Status          string         `gorm:"index;not null" json:"status"`                                  // 订单状态
	PaymentMethod   string         `gorm:"not null" json:"payment_method"`                                // 支付方式（cod/razorpay/phonepe）
	PaymentStatus   string         `gorm:"index;not null" json:"payment_status"`                          // 支付状态（unpaid/paid/refunded）
	Currency        string         `gorm:"not null" json:"currency"`                                      // 币种
	Subtotal        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`         // 小计（批量价后各行合计）
	QuantitySavings Money          `gorm:"type:decimal(20,2);not null;default:0" json:"quantity_savings"` // 批量价累计节省
	DiscountAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`  // 折扣金额
	ShippingCost    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_cost"`    // 运费
	TotalAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`     // 应付总额
	DiscountID      *uint          `gorm:"index" json:"discount_id,omitempty"`                            // 订单级折扣ID（优惠码）
	CouponCode      string         `gorm:"default:''" json:"coupon_code,omitempty"`                       // 下单时输入的优惠码
	ShippingName    string         `gorm:"not null" json:"shipping_name"`                                 // 收货人
	ShippingPhone   string         `gorm:"not null" json:"shipping_phone"`                                // 收货电话
	ShippingAddress string         `gorm:"type:text;not null" json:"shipping_address"`                    // 收货地址
	ShippingCity    string         `gorm:"default:''" json:"shipping_city"`                               // 城市
	ShippingState   string         `gorm:"default:''" json:"shipping_state"`                              // 邦/州（运费规则的输入）
	ShippingPincode string         `gorm:"default:''" json:"shipping_pincode"`                            // 邮编
	PricedAt        time.Time      `gorm:"not null" json:"priced_at"`                                     // 计价时间戳（报价与确认复算共用）
	ExpiresAt       *time.Time     `gorm:"index" json:"expires_at"`                                       // 在线支付过期时间
	PaidAt          *time.Time     `gorm:"index" json:"paid_at"`                                          // 支付时间
	CancelledAt     *time.Time     `gorm:"index" json:"cancelled_at"`                                     // 取消时间
	CancelReason    string         `gorm:"default:''" json:"cancel_reason,omitempty"`                     // 取消原因
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
