package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderItem 订单项表
type OrderItem struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                          // 主键
	OrderID         uint           `gorm:"index;not null" json:"order_id"`                                // 订单ID
	ProductID       uint           `gorm:"index;not null" json:"product_id"`                              // 商品ID
	VariantID       *uint          `gorm:"index" json:"variant_id,omitempty"`                             // 规格ID
	ProductName     string         `gorm:"not null" json:"product_name"`                                  // 商品名称快照
	VariantName     string         `gorm:"default:''" json:"variant_name,omitempty"`                      // 规格名称快照
	UnitPrice       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`       // 基础单价（规格价/优惠价/原价）
	Quantity        int            `gorm:"not null" json:"quantity"`                                      // 数量
	LineTotal       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"line_total"`       // 行小计（批量价后）
	QuantitySavings Money          `gorm:"type:decimal(20,2);not null;default:0" json:"quantity_savings"` // 批量价节省
	DiscountID      *uint          `gorm:"index" json:"discount_id,omitempty"`                            // 行级折扣ID（自动择优模式）
	DiscountAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`  // 行级折扣金额
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
