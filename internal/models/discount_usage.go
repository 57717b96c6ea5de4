package models

import (
	"time"
)

// DiscountUsage 折扣使用台账
// (discount_id, order_id) 唯一约束保证同一订单对同一折扣至多一条记录。
type DiscountUsage struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                                   // 主键
	DiscountID     uint      `gorm:"not null;uniqueIndex:idx_discount_order;index" json:"discount_id"`       // 折扣ID
	OrderID        uint      `gorm:"not null;uniqueIndex:idx_discount_order;index" json:"order_id"`          // 订单ID
	UserID         uint      `gorm:"index;not null" json:"user_id"`                                          // 用户ID
	DiscountAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`           // 抵扣金额
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                                // 创建时间
}

// TableName 指定表名
func (DiscountUsage) TableName() string {
	return "discount_usages"
}
