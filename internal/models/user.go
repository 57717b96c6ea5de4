package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                  // 主键
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`     // 邮箱
	PasswordHash string         `gorm:"not null" json:"-"`                     // 密码哈希（不返回给前端）
	Name         string         `gorm:"default:''" json:"name"`                // 姓名
	Role         string         `gorm:"default:'customer';index" json:"role"`  // 角色（customer/wholesale/admin），同时作为折扣 user_type 的匹配值
	Phone        string         `gorm:"type:varchar(20)" json:"phone"`         // 手机号
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"` // 是否启用
	LastLoginAt  *time.Time     `json:"last_login_at"`                         // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`               // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`               // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                        // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
