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

func setupDiscountRepositoryTest(t *testing.T) (*GormDiscountRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:discount_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Discount{},
		&models.DiscountUsage{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewDiscountRepository(db), db
}

func uintPtr(v uint) *uint {
	return &v
}

func testDiscount(name string, value int64, mutate func(*models.Discount)) models.Discount {
	now := time.Now().UTC()
	discount := models.Discount{
		Name:          name,
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(value)),
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		IsActive:      true,
	}
	if mutate != nil {
		mutate(&discount)
	}
	return discount
}

func TestDiscountRepositoryListCandidatesScopesAndOrder(t *testing.T) {
	repo, db := setupDiscountRepositoryTest(t)
	now := time.Now().UTC()

	fixtures := []models.Discount{
		testDiscount("product-hit", 5, func(d *models.Discount) { d.ProductID = uintPtr(11) }),
		testDiscount("category-hit", 20, func(d *models.Discount) { d.CategoryID = uintPtr(3) }),
		testDiscount("subcategory-hit", 15, func(d *models.Discount) { d.SubcategoryID = uintPtr(7) }),
		testDiscount("sitewide-hit", 10, nil),
		testDiscount("other-product", 50, func(d *models.Discount) { d.ProductID = uintPtr(99) }),
		testDiscount("inactive", 60, func(d *models.Discount) {
			d.ProductID = uintPtr(11)
		}),
		testDiscount("expired", 70, func(d *models.Discount) {
			d.ProductID = uintPtr(11)
			d.ValidFrom = now.Add(-48 * time.Hour)
			d.ValidUntil = now.Add(-24 * time.Hour)
		}),
		testDiscount("not-yet", 80, func(d *models.Discount) {
			d.ProductID = uintPtr(11)
			d.ValidFrom = now.Add(24 * time.Hour)
			d.ValidUntil = now.Add(48 * time.Hour)
		}),
	}
	for i := range fixtures {
		if err := db.Create(&fixtures[i]).Error; err != nil {
			t.Fatalf("create discount %s failed: %v", fixtures[i].Name, err)
		}
	}
	// is_active 带数据库默认值，插入 false 会被默认值覆盖，停用需显式更新
	if err := db.Model(&models.Discount{}).Where("name = ?", "inactive").Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate discount failed: %v", err)
	}

	candidates, err := repo.ListCandidates(11, 3, uintPtr(7), now)
	if err != nil {
		t.Fatalf("list candidates failed: %v", err)
	}
	if len(candidates) != 4 {
		t.Fatalf("candidates len want 4 got %d", len(candidates))
	}
	wantOrder := []string{"category-hit", "subcategory-hit", "sitewide-hit", "product-hit"}
	for i, want := range wantOrder {
		if candidates[i].Name != want {
			t.Fatalf("candidates[%d] want %s got %s", i, want, candidates[i].Name)
		}
	}
}

func TestDiscountRepositoryListCandidatesNilSubcategory(t *testing.T) {
	repo, db := setupDiscountRepositoryTest(t)
	now := time.Now().UTC()

	subOnly := testDiscount("subcategory-only", 30, func(d *models.Discount) { d.SubcategoryID = uintPtr(7) })
	sitewide := testDiscount("sitewide", 10, nil)
	if err := db.Create(&subOnly).Error; err != nil {
		t.Fatalf("create discount failed: %v", err)
	}
	if err := db.Create(&sitewide).Error; err != nil {
		t.Fatalf("create discount failed: %v", err)
	}

	candidates, err := repo.ListCandidates(11, 3, nil, now)
	if err != nil {
		t.Fatalf("list candidates failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates len want 1 got %d", len(candidates))
	}
	if candidates[0].Name != "sitewide" {
		t.Fatalf("candidate want sitewide got %s", candidates[0].Name)
	}
}

func TestDiscountRepositoryIncrementUsageBounded(t *testing.T) {
	repo, db := setupDiscountRepositoryTest(t)

	discount := testDiscount("limited", 10, func(d *models.Discount) { d.UsageLimit = 2 })
	if err := db.Create(&discount).Error; err != nil {
		t.Fatalf("create discount failed: %v", err)
	}

	amount := models.NewMoneyFromDecimal(decimal.NewFromInt(25))
	for i := 0; i < 2; i++ {
		affected, err := repo.IncrementUsage(discount.ID, amount)
		if err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
		if affected != 1 {
			t.Fatalf("increment %d affected want 1 got %d", i, affected)
		}
	}

	affected, err := repo.IncrementUsage(discount.ID, amount)
	if err != nil {
		t.Fatalf("increment over limit failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("increment over limit affected want 0 got %d", affected)
	}

	reloaded, err := repo.GetByID(discount.ID)
	if err != nil {
		t.Fatalf("reload discount failed: %v", err)
	}
	if reloaded.UsedCount != 2 {
		t.Fatalf("used count want 2 got %d", reloaded.UsedCount)
	}
	if !reloaded.TotalDiscounts.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("total discounts want 50 got %s", reloaded.TotalDiscounts)
	}
}

func TestDiscountRepositoryIncrementUsageUnlimited(t *testing.T) {
	repo, db := setupDiscountRepositoryTest(t)

	discount := testDiscount("unlimited", 10, nil)
	if err := db.Create(&discount).Error; err != nil {
		t.Fatalf("create discount failed: %v", err)
	}

	amount := models.NewMoneyFromDecimal(decimal.NewFromInt(5))
	for i := 0; i < 5; i++ {
		affected, err := repo.IncrementUsage(discount.ID, amount)
		if err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
		if affected != 1 {
			t.Fatalf("increment %d affected want 1 got %d", i, affected)
		}
	}
}

func TestDiscountRepositoryDecrementUsageGuard(t *testing.T) {
	repo, db := setupDiscountRepositoryTest(t)

	discount := testDiscount("rollback", 10, nil)
	if err := db.Create(&discount).Error; err != nil {
		t.Fatalf("create discount failed: %v", err)
	}

	amount := models.NewMoneyFromDecimal(decimal.NewFromInt(20))
	affected, err := repo.DecrementUsage(discount.ID, amount)
	if err != nil {
		t.Fatalf("decrement at zero failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("decrement at zero affected want 0 got %d", affected)
	}

	if _, err := repo.IncrementUsage(discount.ID, amount); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	affected, err = repo.DecrementUsage(discount.ID, amount)
	if err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("decrement affected want 1 got %d", affected)
	}

	reloaded, err := repo.GetByID(discount.ID)
	if err != nil {
		t.Fatalf("reload discount failed: %v", err)
	}
	if reloaded.UsedCount != 0 {
		t.Fatalf("used count want 0 got %d", reloaded.UsedCount)
	}
	if !reloaded.TotalDiscounts.Decimal.IsZero() {
		t.Fatalf("total discounts want 0 got %s", reloaded.TotalDiscounts)
	}
}

func TestDiscountRepositoryGetByName(t *testing.T) {
	repo, db := setupDiscountRepositoryTest(t)

	discount := testDiscount("SUMMER10", 10, nil)
	if err := db.Create(&discount).Error; err != nil {
		t.Fatalf("create discount failed: %v", err)
	}

	found, err := repo.GetByName("SUMMER10")
	if err != nil {
		t.Fatalf("get by name failed: %v", err)
	}
	if found == nil || found.ID != discount.ID {
		t.Fatalf("get by name should find the discount")
	}

	missing, err := repo.GetByName("NOPE")
	if err != nil {
		t.Fatalf("get by missing name failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing name should return nil, got %+v", missing)
	}

	blank, err := repo.GetByName("   ")
	if err != nil {
		t.Fatalf("get by blank name failed: %v", err)
	}
	if blank != nil {
		t.Fatalf("blank name should return nil")
	}
}

func TestDiscountUsageRepositoryUniquePerOrder(t *testing.T) {
	_, db := setupDiscountRepositoryTest(t)
	usageRepo := NewDiscountUsageRepository(db)

	usage := models.DiscountUsage{
		DiscountID:     1,
		UserID:         2,
		OrderID:        3,
		DiscountAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(15)),
	}
	if err := usageRepo.Create(&usage); err != nil {
		t.Fatalf("create usage failed: %v", err)
	}

	duplicate := models.DiscountUsage{
		DiscountID:     1,
		UserID:         2,
		OrderID:        3,
		DiscountAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(15)),
	}
	if err := usageRepo.Create(&duplicate); err == nil {
		t.Fatalf("duplicate (discount_id, order_id) should fail")
	}

	count, err := usageRepo.CountByUser(1, 2)
	if err != nil {
		t.Fatalf("count by user failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count want 1 got %d", count)
	}

	if err := usageRepo.DeleteByOrderID(3); err != nil {
		t.Fatalf("delete by order failed: %v", err)
	}
	count, err = usageRepo.CountByUser(1, 2)
	if err != nil {
		t.Fatalf("count after delete failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("count after delete want 0 got %d", count)
	}

	replay := models.DiscountUsage{
		DiscountID:     1,
		UserID:         2,
		OrderID:        3,
		DiscountAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(15)),
	}
	if err := usageRepo.Create(&replay); err != nil {
		t.Fatalf("re-create after hard delete should succeed: %v", err)
	}
}
