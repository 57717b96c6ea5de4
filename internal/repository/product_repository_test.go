package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/craftkart/api/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupProductRepositoryTest(t *testing.T) (*GormProductRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:product_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Subcategory{},
		&models.Product{},
		&models.ProductVariant{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewProductRepository(db), db
}

func TestProductRepositoryDecrementVariantStockGuard(t *testing.T) {
	repo, db := setupProductRepositoryTest(t)

	category := models.Category{Name: "Gifts", Slug: "gifts", IsActive: true}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	product := models.Product{
		CategoryID:  category.ID,
		Name:        "Photo Frame",
		Slug:        "photo-frame",
		NormalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(499)),
		IsActive:    true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	variant := models.ProductVariant{
		ProductID: product.ID,
		Name:      "A4",
		Stock:     3,
		IsActive:  true,
	}
	if err := db.Create(&variant).Error; err != nil {
		t.Fatalf("create variant failed: %v", err)
	}

	affected, err := repo.DecrementVariantStock(variant.ID, 2)
	if err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("decrement affected want 1 got %d", affected)
	}

	affected, err = repo.DecrementVariantStock(variant.ID, 2)
	if err != nil {
		t.Fatalf("decrement beyond stock failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("decrement beyond stock affected want 0 got %d", affected)
	}

	reloaded, err := repo.GetVariantByID(variant.ID)
	if err != nil {
		t.Fatalf("reload variant failed: %v", err)
	}
	if reloaded.Stock != 1 {
		t.Fatalf("stock want 1 got %d", reloaded.Stock)
	}

	affected, err = repo.RestoreVariantStock(variant.ID, 2)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("restore affected want 1 got %d", affected)
	}
	reloaded, err = repo.GetVariantByID(variant.ID)
	if err != nil {
		t.Fatalf("reload variant failed: %v", err)
	}
	if reloaded.Stock != 3 {
		t.Fatalf("stock after restore want 3 got %d", reloaded.Stock)
	}
}

func TestProductRepositoryListFilters(t *testing.T) {
	repo, db := setupProductRepositoryTest(t)

	category := models.Category{Name: "Decor", Slug: "decor", IsActive: true}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	subcategory := models.Subcategory{CategoryID: category.ID, Name: "Wall Art", Slug: "wall-art", IsActive: true}
	if err := db.Create(&subcategory).Error; err != nil {
		t.Fatalf("create subcategory failed: %v", err)
	}

	active := models.Product{
		CategoryID:    category.ID,
		SubcategoryID: &subcategory.ID,
		Name:          "Canvas Print",
		Slug:          "canvas-print",
		NormalPrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(999)),
		IsActive:      true,
	}
	hidden := models.Product{
		CategoryID:  category.ID,
		Name:        "Hidden Poster",
		Slug:        "hidden-poster",
		NormalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(199)),
		IsActive:    false,
	}
	if err := db.Create(&active).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if err := db.Create(&hidden).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	rows, total, err := repo.List(ProductListFilter{Page: 1, PageSize: 10, OnlyActive: true})
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Slug != "canvas-print" {
		t.Fatalf("active list want canvas-print only, got total=%d len=%d", total, len(rows))
	}

	rows, total, err = repo.List(ProductListFilter{Page: 1, PageSize: 10, SubcategoryID: subcategory.ID})
	if err != nil {
		t.Fatalf("list by subcategory failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("subcategory list want 1 got total=%d len=%d", total, len(rows))
	}

	rows, total, err = repo.List(ProductListFilter{Page: 1, PageSize: 10, Search: "canvas"})
	if err != nil {
		t.Fatalf("list by search failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("search list want 1 got total=%d len=%d", total, len(rows))
	}

	found, err := repo.GetBySlug("canvas-print", true)
	if err != nil {
		t.Fatalf("get by slug failed: %v", err)
	}
	if found == nil || found.Name != "Canvas Print" {
		t.Fatalf("get by slug should find the product")
	}
	missing, err := repo.GetBySlug("hidden-poster", true)
	if err != nil {
		t.Fatalf("get hidden by slug failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("inactive product should not be returned with onlyActive")
	}
}
