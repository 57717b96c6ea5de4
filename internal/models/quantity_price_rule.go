package models

import (
	"time"

	"gorm.io/gorm"
)

// QuantityPriceRule 子类批量价规则
// 同一子类可配置多个数量阈值；下单数量达到阈值的规则均为候选，取价最低者。
type QuantityPriceRule struct {
	ID            uint           `gorm:"primarykey" json:"id"`                              // 主键
	SubcategoryID uint           `gorm:"not null;index" json:"subcategory_id"`              // 子类ID
	Quantity      int            `gorm:"not null" json:"quantity"`                          // 数量阈值
	PriceType     string         `gorm:"not null" json:"price_type"`                        // 类型（percentage/fixed_amount，fixed_amount 为总价覆盖）
	Value         Money          `gorm:"type:decimal(20,2);not null" json:"value"`          // 数值
	IsActive      bool           `gorm:"not null;default:true" json:"is_active"`            // 是否启用
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`                           // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                    // 软删除时间
}

// TableName 指定表名
func (QuantityPriceRule) TableName() string {
	return "quantity_price_rules"
}
