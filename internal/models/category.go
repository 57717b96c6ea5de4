package models

import (
	"time"

	"gorm.io/gorm"
)

// Category 商品大类表
type Category struct {
	ID        uint           `gorm:"primarykey" json:"id"`              // 主键
	Slug      string         `gorm:"uniqueIndex;not null" json:"slug"`  // 唯一标识
	Name      string         `gorm:"not null" json:"name"`              // 名称
	IsActive  bool           `gorm:"not null" json:"is_active"`         // 是否启用
	SortOrder int            `gorm:"default:0;index" json:"sort_order"` // 排序权重
	CreatedAt time.Time      `gorm:"index" json:"created_at"`           // 创建时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                    // 软删除时间

	Subcategories []Subcategory `gorm:"foreignKey:CategoryID" json:"subcategories,omitempty"` // 子类列表
}

// TableName 指定表名
func (Category) TableName() string {
	return "categories"
}
