package models

import (
	"time"

	"gorm.io/gorm"
)

// Subcategory 商品子类表（批量价规则的挂载维度）
type Subcategory struct {
	ID         uint           `gorm:"primarykey" json:"id"`              // 主键
	CategoryID uint           `gorm:"not null;index" json:"category_id"` // 所属大类ID
	Slug       string         `gorm:"uniqueIndex;not null" json:"slug"`  // 唯一标识
	Name       string         `gorm:"not null" json:"name"`              // 名称
	IsActive   bool           `gorm:"not null" json:"is_active"`         // 是否启用
	SortOrder  int            `gorm:"default:0;index" json:"sort_order"` // 排序权重
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`           // 创建时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                    // 软删除时间

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"` // 所属大类
}

// TableName 指定表名
func (Subcategory) TableName() string {
	return "subcategories"
}
