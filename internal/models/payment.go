package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付记录
type Payment struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                  // 主键
	OrderID           uint           `gorm:"index;not null" json:"order_id"`                        // 订单ID
	Provider          string         `gorm:"not null" json:"provider"`                              // 网关（razorpay/phonepe）
	Amount            Money          `gorm:"type:decimal(20,2);not null" json:"amount"`             // 支付金额（主单位）
	AmountPaise       int64          `gorm:"not null;default:0" json:"amount_paise"`                // 网关下发金额（最小货币单位）
	Currency          string         `gorm:"not null" json:"currency"`                              // 币种
	Status            string         `gorm:"index;not null" json:"status"`                          // 支付状态
	ProviderOrderID   string         `gorm:"index" json:"provider_order_id"`                        // 网关订单号（razorpay order_id / phonepe merchantTransactionId）
	ProviderPaymentID string         `gorm:"index" json:"provider_payment_id"`                      // 网关支付流水号
	RefundID          string         `gorm:"default:''" json:"refund_id,omitempty"`                 // 网关退款单号
	PayURL            string         `gorm:"type:text" json:"pay_url"`                              // 跳转链接（phonepe redirect）
	ProviderPayload   JSON           `gorm:"type:json" json:"provider_payload"`                     // 最近一次网关响应/回调数据
	PollAttempts      int            `gorm:"not null;default:0" json:"poll_attempts"`               // 状态轮询次数
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                               // 更新时间
	PaidAt            *time.Time     `gorm:"index" json:"paid_at"`                                  // 支付时间
	CallbackAt        *time.Time     `gorm:"index" json:"callback_at"`                              // 回调时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
