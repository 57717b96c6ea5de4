package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPricingServiceTest(t *testing.T) (*PricingService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:pricing_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.QuantityPriceRule{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewPricingService(repository.NewQuantityPriceRuleRepository(db)), db
}

func uintPtr(v uint) *uint {
	return &v
}

func rupees(v int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(v))
}

func seedQuantityRule(t *testing.T, db *gorm.DB, subcategoryID uint, quantity int, priceType string, value int64) models.QuantityPriceRule {
	t.Helper()
	rule := models.QuantityPriceRule{
		SubcategoryID: subcategoryID,
		Quantity:      quantity,
		PriceType:     priceType,
		Value:         rupees(value),
		IsActive:      true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("create quantity rule failed: %v", err)
	}
	return rule
}

func TestPriceItemWithoutSubcategory(t *testing.T) {
	svc, _ := setupPricingServiceTest(t)

	result, err := svc.PriceItem(nil, rupees(100), 5)
	if err != nil {
		t.Fatalf("price item failed: %v", err)
	}
	if !result.OriginalTotal.Decimal.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("original total want 500 got %s", result.OriginalTotal)
	}
	if !result.FinalTotal.Decimal.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("final total want 500 got %s", result.FinalTotal)
	}
	if !result.Savings.Decimal.IsZero() {
		t.Fatalf("savings want 0 got %s", result.Savings)
	}
	if result.AppliedRule != nil {
		t.Fatalf("no rule should apply without subcategory")
	}
}

func TestPriceItemZeroQuantity(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	seedQuantityRule(t, db, 7, 1, constants.QuantityPriceTypePercentage, 50)

	result, err := svc.PriceItem(uintPtr(7), rupees(100), 0)
	if err != nil {
		t.Fatalf("price item failed: %v", err)
	}
	if !result.FinalTotal.Decimal.IsZero() {
		t.Fatalf("final total want 0 got %s", result.FinalTotal)
	}
	if result.AppliedRule != nil {
		t.Fatalf("no rule should apply for zero quantity")
	}
}

func TestPriceItemBelowThreshold(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	seedQuantityRule(t, db, 7, 10, constants.QuantityPriceTypePercentage, 10)

	result, err := svc.PriceItem(uintPtr(7), rupees(100), 9)
	if err != nil {
		t.Fatalf("price item failed: %v", err)
	}
	if !result.FinalTotal.Decimal.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("final total want 900 got %s", result.FinalTotal)
	}
	if result.AppliedRule != nil {
		t.Fatalf("rule below threshold should not apply")
	}
}

func TestPriceItemPercentageRule(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	rule := seedQuantityRule(t, db, 7, 10, constants.QuantityPriceTypePercentage, 10)

	result, err := svc.PriceItem(uintPtr(7), rupees(100), 12)
	if err != nil {
		t.Fatalf("price item failed: %v", err)
	}
	if !result.OriginalTotal.Decimal.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("original total want 1200 got %s", result.OriginalTotal)
	}
	if !result.FinalTotal.Decimal.Equal(decimal.NewFromInt(1080)) {
		t.Fatalf("final total want 1080 got %s", result.FinalTotal)
	}
	if !result.Savings.Decimal.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("savings want 120 got %s", result.Savings)
	}
	if !result.EffectiveUnitPrice.Decimal.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("effective unit price want 90 got %s", result.EffectiveUnitPrice)
	}
	if result.AppliedRule == nil || result.AppliedRule.ID != rule.ID {
		t.Fatalf("applied rule should be the percentage rule")
	}
}

func TestPriceItemFixedAmountOverridesLineTotal(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	seedQuantityRule(t, db, 7, 25, constants.QuantityPriceTypeFixedAmount, 8000)

	result, err := svc.PriceItem(uintPtr(7), rupees(199), 50)
	if err != nil {
		t.Fatalf("price item failed: %v", err)
	}
	if !result.OriginalTotal.Decimal.Equal(decimal.NewFromInt(9950)) {
		t.Fatalf("original total want 9950 got %s", result.OriginalTotal)
	}
	if !result.FinalTotal.Decimal.Equal(decimal.NewFromInt(8000)) {
		t.Fatalf("final total want 8000 got %s", result.FinalTotal)
	}
	if !result.Savings.Decimal.Equal(decimal.NewFromInt(1950)) {
		t.Fatalf("savings want 1950 got %s", result.Savings)
	}
	if !result.EffectiveUnitPrice.Decimal.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("effective unit price want 160 got %s", result.EffectiveUnitPrice)
	}
}

func TestPriceItemLowestCandidateWins(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	seedQuantityRule(t, db, 7, 12, constants.QuantityPriceTypePercentage, 10)
	deeper := seedQuantityRule(t, db, 7, 48, constants.QuantityPriceTypePercentage, 20)

	result, err := svc.PriceItem(uintPtr(7), rupees(100), 48)
	if err != nil {
		t.Fatalf("price item failed: %v", err)
	}
	if !result.FinalTotal.Decimal.Equal(decimal.NewFromInt(3840)) {
		t.Fatalf("final total want 3840 got %s", result.FinalTotal)
	}
	if result.AppliedRule == nil || result.AppliedRule.ID != deeper.ID {
		t.Fatalf("the deeper tier should win at its threshold")
	}

	result, err = svc.PriceItem(uintPtr(7), rupees(100), 20)
	if err != nil {
		t.Fatalf("price item failed: %v", err)
	}
	if !result.FinalTotal.Decimal.Equal(decimal.NewFromInt(1800)) {
		t.Fatalf("final total want 1800 got %s", result.FinalTotal)
	}
}

func TestPriceItemNeverRaisesPrice(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	seedQuantityRule(t, db, 7, 10, constants.QuantityPriceTypeFixedAmount, 5000)

	result, err := svc.PriceItem(uintPtr(7), rupees(100), 10)
	if err != nil {
		t.Fatalf("price item failed: %v", err)
	}
	if !result.FinalTotal.Decimal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("final total want baseline 1000 got %s", result.FinalTotal)
	}
	if result.AppliedRule != nil {
		t.Fatalf("a rule that raises the total should not apply")
	}
	if !result.Savings.Decimal.IsZero() {
		t.Fatalf("savings want 0 got %s", result.Savings)
	}
}

func TestPriceItemIgnoresInactiveRules(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	rule := seedQuantityRule(t, db, 7, 5, constants.QuantityPriceTypePercentage, 50)
	if err := db.Model(&rule).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate rule failed: %v", err)
	}

	result, err := svc.PriceItem(uintPtr(7), rupees(100), 10)
	if err != nil {
		t.Fatalf("price item failed: %v", err)
	}
	if !result.FinalTotal.Decimal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("final total want 1000 got %s", result.FinalTotal)
	}
	if result.AppliedRule != nil {
		t.Fatalf("inactive rule should not apply")
	}
}
