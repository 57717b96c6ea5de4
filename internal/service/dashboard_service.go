package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/craftkart/api/internal/cache"
	"github.com/craftkart/api/internal/repository"
)

const (
	dashboardCacheTTL      = 45 * time.Second
	dashboardCustomMaxDays = 90
	dashboardRankingLimit  = 5
)

// DashboardService 仪表盘服务
// 说明：聚合后台首页核心经营数据。
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// DashboardQueryInput 仪表盘查询输入
type DashboardQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// DashboardOverviewResponse 仪表盘总览响应
type DashboardOverviewResponse struct {
	Range    string       `json:"range"`
	From     string       `json:"from"`
	To       string       `json:"to"`
	Timezone string       `json:"timezone"`
	Currency string       `json:"currency,omitempty"`
	KPI      DashboardKPI `json:"kpi"`
}

// DashboardKPI 仪表盘核心指标
type DashboardKPI struct {
	OrdersTotal     int64  `json:"orders_total"`
	PaidOrders      int64  `json:"paid_orders"`
	PendingOrders   int64  `json:"pending_orders"`
	CancelledOrders int64  `json:"cancelled_orders"`
	PaidRate        string `json:"paid_rate"`
	GMVPaid         string `json:"gmv_paid"`
	DiscountSavings string `json:"discount_savings"`
	QuantitySavings string `json:"quantity_savings"`
	NewUsers        int64  `json:"new_users"`
	ActiveProducts  int64  `json:"active_products"`
	ActiveDiscounts int64  `json:"active_discounts"`
}

// DashboardTrendResponse 仪表盘趋势响应
type DashboardTrendResponse struct {
	Range    string                `json:"range"`
	From     string                `json:"from"`
	To       string                `json:"to"`
	Timezone string                `json:"timezone"`
	Points   []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint 趋势点
type DashboardTrendPoint struct {
	Date        string `json:"date"`
	OrdersTotal int64  `json:"orders_total"`
	OrdersPaid  int64  `json:"orders_paid"`
}

// DashboardRankingsResponse 仪表盘排行榜响应
type DashboardRankingsResponse struct {
	Range        string                     `json:"range"`
	From         string                     `json:"from"`
	To           string                     `json:"to"`
	Timezone     string                     `json:"timezone"`
	TopDiscounts []DashboardDiscountRanking `json:"top_discounts"`
	TopProducts  []DashboardProductRanking  `json:"top_products"`
}

// DashboardDiscountRanking 优惠使用排行项
type DashboardDiscountRanking struct {
	DiscountID  uint   `json:"discount_id"`
	Name        string `json:"name"`
	UsageCount  int64  `json:"usage_count"`
	TotalAmount string `json:"total_amount"`
}

// DashboardProductRanking 商品排行项
type DashboardProductRanking struct {
	ProductID  uint   `json:"product_id"`
	Name       string `json:"name"`
	PaidOrders int64  `json:"paid_orders"`
	Quantity   int64  `json:"quantity"`
	PaidAmount string `json:"paid_amount"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// GetOverview 获取仪表盘总览
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:overview:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	paidRate := 0.0
	if overview.OrdersTotal > 0 {
		paidRate = float64(overview.PaidOrders) / float64(overview.OrdersTotal) * 100
	}

	response := &DashboardOverviewResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Currency: strings.ToUpper(strings.TrimSpace(overview.Currency)),
		KPI: DashboardKPI{
			OrdersTotal:     overview.OrdersTotal,
			PaidOrders:      overview.PaidOrders,
			PendingOrders:   overview.PendingOrders,
			CancelledOrders: overview.CancelledOrders,
			PaidRate:        formatPercentValue(paidRate),
			GMVPaid:         formatMoneyValue(overview.GMVPaid),
			DiscountSavings: formatMoneyValue(overview.DiscountSavings),
			QuantitySavings: formatMoneyValue(overview.QuantitySavings),
			NewUsers:        overview.NewUsers,
			ActiveProducts:  overview.ActiveProducts,
			ActiveDiscounts: overview.ActiveDiscounts,
		},
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTrends 获取订单趋势，缺失的日期补零
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:trends:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardTrendResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	orderRows, err := s.repo.GetOrderTrends(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	orderMap := make(map[string]repository.DashboardOrderTrendRow, len(orderRows))
	for _, item := range orderRows {
		orderMap[item.Day] = item
	}

	points := make([]DashboardTrendPoint, 0)
	for cursor := time.Date(window.startAt.Year(), window.startAt.Month(), window.startAt.Day(), 0, 0, 0, 0, window.startAt.Location()); cursor.Before(window.endAt); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format("2006-01-02")
		orderItem := orderMap[day]
		points = append(points, DashboardTrendPoint{
			Date:        day,
			OrdersTotal: orderItem.OrdersTotal,
			OrdersPaid:  orderItem.OrdersPaid,
		})
	}

	response := &DashboardTrendResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Points:   points,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetRankings 获取优惠与商品排行榜
func (s *DashboardService) GetRankings(ctx context.Context, input DashboardQueryInput) (*DashboardRankingsResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardRankingsResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:rankings:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardRankingsResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	discountRows, err := s.repo.GetTopDiscounts(window.startAt, window.endAt, dashboardRankingLimit)
	if err != nil {
		return nil, err
	}
	productRows, err := s.repo.GetTopProducts(window.startAt, window.endAt, dashboardRankingLimit)
	if err != nil {
		return nil, err
	}

	discounts := make([]DashboardDiscountRanking, 0, len(discountRows))
	for _, item := range discountRows {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			name = "-"
		}
		discounts = append(discounts, DashboardDiscountRanking{
			DiscountID:  item.DiscountID,
			Name:        name,
			UsageCount:  item.UsageCount,
			TotalAmount: formatMoneyValue(item.TotalAmount),
		})
	}

	products := make([]DashboardProductRanking, 0, len(productRows))
	for _, item := range productRows {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			name = "-"
		}
		products = append(products, DashboardProductRanking{
			ProductID:  item.ProductID,
			Name:       name,
			PaidOrders: item.PaidOrders,
			Quantity:   item.Quantity,
			PaidAmount: formatMoneyValue(item.PaidAmount),
		})
	}

	response := &DashboardRankingsResponse{
		Range:        window.rangeKey,
		From:         window.startAt.Format(time.RFC3339),
		To:           window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone:     window.timezone,
		TopDiscounts: discounts,
		TopProducts:  products,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := dashboardWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}

func formatMoneyValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
