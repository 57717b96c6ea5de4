package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page          int
	PageSize      int
	CategoryID    uint
	SubcategoryID uint
	Search        string
	OnlyActive    bool
	WithCategory  bool
}

// DiscountListFilter 查询优惠列表的过滤条件
type DiscountListFilter struct {
	Page         int
	PageSize     int
	DiscountType string
	IsActive     *bool
	ActiveAt     *time.Time
	ProductID    uint
	Search       string
}

// DiscountUsageListFilter 查询优惠使用记录列表的过滤条件
type DiscountUsageListFilter struct {
	Page       int
	PageSize   int
	DiscountID uint
	UserID     uint
}

// QuantityRuleListFilter 查询批量价规则列表的过滤条件
type QuantityRuleListFilter struct {
	Page          int
	PageSize      int
	SubcategoryID uint
	IsActive      *bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page          int
	PageSize      int
	UserID        uint
	Status        string
	PaymentMethod string
	OrderNo       string
	DiscountID    uint
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// PaymentListFilter 查询支付列表的过滤条件
type PaymentListFilter struct {
	Page        int
	PageSize    int
	OrderID     uint
	Provider    string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	Role     string
}
