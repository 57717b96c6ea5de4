package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                         // 主键
	CategoryID     uint           `gorm:"not null;index" json:"category_id"`                            // 大类ID
	SubcategoryID  *uint          `gorm:"index" json:"subcategory_id,omitempty"`                        // 子类ID（批量价规则按子类匹配）
	Slug           string         `gorm:"uniqueIndex;not null" json:"slug"`                             // 唯一标识
	Name           string         `gorm:"not null" json:"name"`                                         // 名称
	Description    string         `gorm:"type:text" json:"description"`                                 // 描述
	NormalPrice    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"normal_price"`    // 原价
	OfferPrice     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"offer_price"`     // 优惠价（0 表示未设置）
	WholesalePrice Money          `gorm:"type:decimal(20,2);not null;default:0" json:"wholesale_price"` // 批发参考价（仅展示，不参与计价）
	Images         StringArray    `gorm:"type:json" json:"images"`                                      // 图片数组
	IsActive       bool           `gorm:"not null;index" json:"is_active"`                              // 是否上架
	SortOrder      int            `gorm:"default:0;index" json:"sort_order"`                            // 排序权重
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                                   // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间

	// 关联
	Category    Category         `gorm:"foreignKey:CategoryID" json:"category,omitempty"`       // 大类信息
	Subcategory *Subcategory     `gorm:"foreignKey:SubcategoryID" json:"subcategory,omitempty"` // 子类信息
	Variants    []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`        // 规格列表
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// SellingPrice 返回计价用基础单价：优惠价优先，未设置时取原价
func (p *Product) SellingPrice() Money {
	if !p.OfferPrice.IsZero() {
		return p.OfferPrice
	}
	return p.NormalPrice
}
