package models

import (
	"time"

	"gorm.io/gorm"
)

// ProductVariant 商品规格表（价格+库存维度）
type ProductVariant struct {
	ID        uint           `gorm:"primarykey" json:"id"`                               // 主键
	ProductID uint           `gorm:"not null;index" json:"product_id"`                   // 商品ID
	Name      string         `gorm:"not null" json:"name"`                               // 规格名称（如颜色/尺寸）
	Price     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 规格价格（0 表示沿用商品价）
	Stock     int            `gorm:"not null;default:0" json:"stock"`                    // 库存数量
	IsActive  bool           `gorm:"not null;index" json:"is_active"`                    // 是否启用
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (ProductVariant) TableName() string {
	return "product_variants"
}
