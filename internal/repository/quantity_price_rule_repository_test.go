package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupQuantityRuleRepositoryTest(t *testing.T) (*GormQuantityPriceRuleRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:quantity_rule_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.QuantityPriceRule{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewQuantityPriceRuleRepository(db), db
}

func TestQuantityRuleRepositoryListApplicable(t *testing.T) {
	repo, db := setupQuantityRuleRepositoryTest(t)

	rules := []models.QuantityPriceRule{
		{SubcategoryID: 7, Quantity: 5, PriceType: constants.QuantityPriceTypePercentage, Value: models.NewMoneyFromDecimal(decimal.NewFromInt(10)), IsActive: true},
		{SubcategoryID: 7, Quantity: 10, PriceType: constants.QuantityPriceTypePercentage, Value: models.NewMoneyFromDecimal(decimal.NewFromInt(20)), IsActive: true},
		{SubcategoryID: 7, Quantity: 20, PriceType: constants.QuantityPriceTypeFixedAmount, Value: models.NewMoneyFromDecimal(decimal.NewFromInt(5000)), IsActive: true},
		{SubcategoryID: 7, Quantity: 8, PriceType: constants.QuantityPriceTypePercentage, Value: models.NewMoneyFromDecimal(decimal.NewFromInt(15)), IsActive: true},
		{SubcategoryID: 9, Quantity: 2, PriceType: constants.QuantityPriceTypePercentage, Value: models.NewMoneyFromDecimal(decimal.NewFromInt(5)), IsActive: true},
	}
	for i := range rules {
		if err := db.Create(&rules[i]).Error; err != nil {
			t.Fatalf("create rule failed: %v", err)
		}
	}
	// 带默认值的布尔列在插入零值时会落库为默认值，停用需走显式更新
	if err := db.Model(&rules[3]).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate rule failed: %v", err)
	}

	applicable, err := repo.ListApplicable(7, 12)
	if err != nil {
		t.Fatalf("list applicable failed: %v", err)
	}
	if len(applicable) != 2 {
		t.Fatalf("applicable len want 2 got %d", len(applicable))
	}
	if applicable[0].Quantity != 10 || applicable[1].Quantity != 5 {
		t.Fatalf("applicable should be ordered threshold desc, got %d then %d", applicable[0].Quantity, applicable[1].Quantity)
	}

	applicable, err = repo.ListApplicable(7, 3)
	if err != nil {
		t.Fatalf("list applicable below thresholds failed: %v", err)
	}
	if len(applicable) != 0 {
		t.Fatalf("below thresholds want 0 got %d", len(applicable))
	}

	applicable, err = repo.ListApplicable(0, 12)
	if err != nil {
		t.Fatalf("list applicable without subcategory failed: %v", err)
	}
	if len(applicable) != 0 {
		t.Fatalf("no subcategory want 0 got %d", len(applicable))
	}
}
