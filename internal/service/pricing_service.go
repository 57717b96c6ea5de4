package service

import (
	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/repository"

	"github.com/shopspring/decimal"
)

// PricingService 批量价计价服务
type PricingService struct {
	ruleRepo repository.QuantityPriceRuleRepository
}

// NewPricingService 创建批量价计价服务
func NewPricingService(ruleRepo repository.QuantityPriceRuleRepository) *PricingService {
	return &PricingService{ruleRepo: ruleRepo}
}

// QuantityPriceResult 批量价计价结果
type QuantityPriceResult struct {
	OriginalTotal      models.Money              `json:"original_total"`
	FinalTotal         models.Money              `json:"final_total"`
	Savings            models.Money              `json:"savings"`
	EffectiveUnitPrice models.Money              `json:"effective_unit_price"`
	AppliedRule        *models.QuantityPriceRule `json:"applied_rule,omitempty"`
}

// PriceItem 对单个订单行执行批量价计价
// 候选集合 = 基准价（单价×数量）∪ 所有已达数量阈值的规则总价，取最低者；
// 无子类或无规则时退化为基准价，不产生错误。
func (s *PricingService) PriceItem(subcategoryID *uint, unitPrice models.Money, quantity int) (*QuantityPriceResult, error) {
	baseline := unitPrice.Decimal.Mul(decimal.NewFromInt(int64(quantity)))
	result := &QuantityPriceResult{
		OriginalTotal:      models.NewMoneyFromDecimal(baseline),
		FinalTotal:         models.NewMoneyFromDecimal(baseline),
		Savings:            models.NewMoneyFromDecimal(decimal.Zero),
		EffectiveUnitPrice: unitPrice,
	}
	if quantity <= 0 || subcategoryID == nil || *subcategoryID == 0 {
		return result, nil
	}

	rules, err := s.ruleRepo.ListApplicable(*subcategoryID, quantity)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return result, nil
	}

	chosen := baseline
	var applied *models.QuantityPriceRule
	for i := range rules {
		total := quantityRuleTotal(&rules[i], unitPrice, quantity)
		if total.LessThan(chosen) {
			chosen = total
			applied = &rules[i]
		}
	}
	if applied == nil {
		return result, nil
	}

	result.FinalTotal = models.NewMoneyFromDecimal(chosen)
	result.Savings = models.NewMoneyFromDecimal(baseline.Sub(chosen))
	result.EffectiveUnitPrice = models.NewMoneyFromDecimal(chosen.Div(decimal.NewFromInt(int64(quantity))))
	result.AppliedRule = applied
	return result, nil
}

// quantityRuleTotal 计算规则命中后的行总价
// percentage 在基准总价上打折，fixed_amount 直接作为总价覆盖。
func quantityRuleTotal(rule *models.QuantityPriceRule, unitPrice models.Money, quantity int) decimal.Decimal {
	baseline := unitPrice.Decimal.Mul(decimal.NewFromInt(int64(quantity)))
	switch rule.PriceType {
	case constants.QuantityPriceTypePercentage:
		factor := decimal.NewFromInt(1).Sub(rule.Value.Decimal.Div(decimal.NewFromInt(100)))
		return baseline.Mul(factor)
	case constants.QuantityPriceTypeFixedAmount:
		return rule.Value.Decimal
	default:
		return baseline
	}
}
