package repository

import (
	"fmt"
	"time"

	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetOrderTrends(startAt, endAt time.Time) ([]DashboardOrderTrendRow, error)
	GetTopDiscounts(startAt, endAt time.Time, limit int) ([]DashboardDiscountRankingRow, error)
	GetTopProducts(startAt, endAt time.Time, limit int) ([]DashboardProductRankingRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	OrdersTotal     int64
	PaidOrders      int64
	PendingOrders   int64
	CancelledOrders int64
	GMVPaid         float64
	DiscountSavings float64
	QuantitySavings float64
	NewUsers        int64
	ActiveProducts  int64
	ActiveDiscounts int64
	Currency        string
}

// DashboardOrderTrendRow 订单趋势统计
type DashboardOrderTrendRow struct {
	Day         string
	OrdersTotal int64
	OrdersPaid  int64
}

// DashboardDiscountRankingRow 优惠使用排行原始行
type DashboardDiscountRankingRow struct {
	DiscountID  uint
	Name        string
	UsageCount  int64
	TotalAmount float64
}

// DashboardProductRankingRow 商品排行原始行
type DashboardProductRankingRow struct {
	ProductID  uint
	Name       string
	PaidOrders int64
	Quantity   int64
	PaidAmount float64
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

func paidOrderStatuses() []string {
	return []string{
		constants.OrderStatusPaid,
		constants.OrderStatusShipped,
		constants.OrderStatusCompleted,
	}
}

// GetOverview 获取总览统计
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	orderBase := func() *gorm.DB {
		return r.db.Model(&models.Order{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}

	if err := orderBase().Count(&result.OrdersTotal).Error; err != nil {
		return result, err
	}

	paidStatuses := paidOrderStatuses()
	if err := orderBase().Where("status IN ?", paidStatuses).Count(&result.PaidOrders).Error; err != nil {
		return result, err
	}
	if err := orderBase().Where("status = ?", constants.OrderStatusPending).Count(&result.PendingOrders).Error; err != nil {
		return result, err
	}
	if err := orderBase().Where("status = ?", constants.OrderStatusCancelled).Count(&result.CancelledOrders).Error; err != nil {
		return result, err
	}

	if err := orderBase().Where("status IN ?", paidStatuses).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&result.GMVPaid).Error; err != nil {
		return result, err
	}
	if err := orderBase().Where("status IN ?", paidStatuses).
		Select("COALESCE(SUM(discount_amount), 0)").
		Scan(&result.DiscountSavings).Error; err != nil {
		return result, err
	}
	if err := orderBase().Where("status IN ?", paidStatuses).
		Select("COALESCE(SUM(quantity_savings), 0)").
		Scan(&result.QuantitySavings).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.NewUsers).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.Product{}).
		Where("is_active = ?", true).
		Count(&result.ActiveProducts).Error; err != nil {
		return result, err
	}

	now := endAt
	if err := r.db.Model(&models.Discount{}).
		Where("is_active = ? AND valid_from <= ? AND valid_until >= ?", true, now, now).
		Count(&result.ActiveDiscounts).Error; err != nil {
		return result, err
	}

	_ = r.db.Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ? AND currency <> ''", startAt, endAt).
		Order("id DESC").
		Limit(1).
		Pluck("currency", &result.Currency).Error

	return result, nil
}

// GetOrderTrends 获取订单趋势
func (r *GormDashboardRepository) GetOrderTrends(startAt, endAt time.Time) ([]DashboardOrderTrendRow, error) {
	type totalRow struct {
		Day   string
		Total int64
	}
	type paidRow struct {
		Day  string
		Paid int64
	}

	var totals []totalRow
	dayExpr := "CAST(date(created_at) AS TEXT)"
	if err := r.db.Model(&models.Order{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	var paids []paidRow
	if err := r.db.Model(&models.Order{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as paid", dayExpr)).
		Where("created_at >= ? AND created_at < ? AND status IN ?", startAt, endAt, paidOrderStatuses()).
		Group(dayExpr).
		Order("day asc").
		Scan(&paids).Error; err != nil {
		return nil, err
	}

	paidMap := make(map[string]int64, len(paids))
	for _, item := range paids {
		paidMap[item.Day] = item.Paid
	}

	result := make([]DashboardOrderTrendRow, 0, len(totals))
	for _, item := range totals {
		result = append(result, DashboardOrderTrendRow{
			Day:         item.Day,
			OrdersTotal: item.Total,
			OrdersPaid:  paidMap[item.Day],
		})
	}
	return result, nil
}

// GetTopDiscounts 获取优惠使用排行榜
func (r *GormDashboardRepository) GetTopDiscounts(startAt, endAt time.Time, limit int) ([]DashboardDiscountRankingRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows := make([]DashboardDiscountRankingRow, 0)
	if err := r.db.Model(&models.DiscountUsage{}).
		Select(`
			discount_usages.discount_id as discount_id,
			COALESCE(discounts.name, '') as name,
			COUNT(*) as usage_count,
			COALESCE(SUM(discount_usages.discount_amount), 0) as total_amount
		`).
		Joins("LEFT JOIN discounts ON discounts.id = discount_usages.discount_id").
		Where("discount_usages.created_at >= ? AND discount_usages.created_at < ?", startAt, endAt).
		Group("discount_usages.discount_id, discounts.name").
		Order("total_amount DESC, usage_count DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTopProducts 获取商品排行榜
func (r *GormDashboardRepository) GetTopProducts(startAt, endAt time.Time, limit int) ([]DashboardProductRankingRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows := make([]DashboardProductRankingRow, 0)
	if err := r.db.Model(&models.OrderItem{}).
		Select(`
			order_items.product_id as product_id,
			order_items.product_name as name,
			COUNT(DISTINCT order_items.order_id) as paid_orders,
			COALESCE(SUM(order_items.quantity), 0) as quantity,
			COALESCE(SUM(order_items.line_total - order_items.discount_amount), 0) as paid_amount
		`).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.created_at >= ? AND orders.created_at < ? AND orders.status IN ?", startAt, endAt, paidOrderStatuses()).
		Group("order_items.product_id, order_items.product_name").
		Order("paid_amount DESC, quantity DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
