package service

import (
	"strings"

	"github.com/craftkart/api/internal/models"

	"github.com/shopspring/decimal"
)

// 运费分档：本邦最低，邻邦次之，其余（含空/未识别）取默认档
var (
	shippingCostLocal    = models.NewMoneyFromDecimal(decimal.NewFromInt(80))
	shippingCostRegional = models.NewMoneyFromDecimal(decimal.NewFromInt(100))
	shippingCostDefault  = models.NewMoneyFromDecimal(decimal.NewFromInt(200))
)

var shippingStateTiers = map[string]models.Money{
	"tamil nadu":     shippingCostLocal,
	"kerala":         shippingCostRegional,
	"karnataka":      shippingCostRegional,
	"andhra pradesh": shippingCostRegional,
	"telangana":      shippingCostRegional,
	"puducherry":     shippingCostRegional,
}

// ShippingCost 按收货邦名返回运费，匹配不区分大小写，未识别一律返回默认档
func ShippingCost(state string) models.Money {
	normalized := strings.ToLower(strings.TrimSpace(state))
	if cost, ok := shippingStateTiers[normalized]; ok {
		return cost
	}
	return shippingCostDefault
}
