package models

import (
	"time"

	"gorm.io/gorm"
)

// Discount 折扣规则表
// Name 同时作为用户手动输入的优惠码；product/category/subcategory 三个范围引用全部为空时表示全场折扣。
type Discount struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                          // 主键
	Name           string         `gorm:"uniqueIndex;not null" json:"name"`                              // 名称（兼作优惠码）
	Description    string         `gorm:"type:text" json:"description"`                                  // 描述
	DiscountType   string         `gorm:"not null" json:"discount_type"`                                 // 类型（percentage/fixed_amount/buy_x_get_y）
	DiscountValue  Money          `gorm:"type:decimal(20,2);not null" json:"discount_value"`             // 数值（百分比或固定金额）
	ProductID      *uint          `gorm:"index" json:"product_id,omitempty"`                             // 适用商品ID
	CategoryID     *uint          `gorm:"index" json:"category_id,omitempty"`                            // 适用大类ID
	SubcategoryID  *uint          `gorm:"index" json:"subcategory_id,omitempty"`                         // 适用子类ID
	MinQuantity    int            `gorm:"not null;default:0" json:"min_quantity"`                        // 数量门槛（buy_x_get_y 必填，0 表示未设置）
	UserType       string         `gorm:"default:''" json:"user_type"`                                   // 适用用户角色（空或 all 表示不限）
	MinOrderAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_order_amount"` // 订单金额门槛
	MaxDiscount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"max_discount"`     // 最大优惠金额（0 表示不封顶）
	UsageLimit     int            `gorm:"not null;default:0" json:"usage_limit"`                         // 总使用上限（0 表示不限制）
	PerUserLimit   int            `gorm:"not null;default:1" json:"per_user_limit"`                      // 每人使用上限
	ValidFrom      time.Time      `gorm:"index;not null" json:"valid_from"`                              // 生效时间
	ValidUntil     time.Time      `gorm:"index;not null" json:"valid_until"`                             // 失效时间
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`                        // 是否启用
	UsedCount      int            `gorm:"not null;default:0" json:"used_count"`                          // 已使用次数
	TotalDiscounts Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_discounts"`  // 累计优惠金额
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间
}

// TableName 指定表名
func (Discount) TableName() string {
	return "discounts"
}

// IsSitewide 三个范围引用全部为空即为全场折扣
func (d *Discount) IsSitewide() bool {
	return d.ProductID == nil && d.CategoryID == nil && d.SubcategoryID == nil
}
