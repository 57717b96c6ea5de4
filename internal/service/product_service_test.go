package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupProductServiceTest(t *testing.T) (*ProductService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:product_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Subcategory{}, &models.Product{}, &models.ProductVariant{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	svc := NewProductService(repository.NewProductRepository(db), repository.NewCategoryRepository(db))
	return svc, db
}

func seedCatalogCategory(t *testing.T, db *gorm.DB, slug string) models.Category {
	t.Helper()
	category := models.Category{Slug: slug, Name: "Category " + slug, IsActive: true}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category %s failed: %v", slug, err)
	}
	return category
}

func seedCatalogSubcategory(t *testing.T, db *gorm.DB, categoryID uint, slug string) models.Subcategory {
	t.Helper()
	subcategory := models.Subcategory{CategoryID: categoryID, Slug: slug, Name: "Subcategory " + slug, IsActive: true}
	if err := db.Create(&subcategory).Error; err != nil {
		t.Fatalf("create subcategory %s failed: %v", slug, err)
	}
	return subcategory
}

func validProductInput(categoryID uint) SaveProductInput {
	return SaveProductInput{
		CategoryID:  categoryID,
		Slug:        "carved-elephant",
		Name:        "Carved Elephant",
		NormalPrice: rupees(500),
	}
}

func TestSaveProductValidation(t *testing.T) {
	svc, db := setupProductServiceTest(t)
	catA := seedCatalogCategory(t, db, "woodcraft")
	catB := seedCatalogCategory(t, db, "textiles")
	subB := seedCatalogSubcategory(t, db, catB.ID, "silk-stoles")

	// 用例顺序与校验链一致
	cases := []struct {
		name   string
		mutate func(*SaveProductInput)
		want   error
	}{
		{"blank slug", func(in *SaveProductInput) { in.Slug = "   " }, ErrProductInvalid},
		{"blank name", func(in *SaveProductInput) { in.Name = "" }, ErrProductInvalid},
		{"zero normal price", func(in *SaveProductInput) { in.NormalPrice = models.Money{} }, ErrProductPriceInvalid},
		{"negative offer price", func(in *SaveProductInput) { in.OfferPrice = rupees(-10) }, ErrProductPriceInvalid},
		{"negative wholesale price", func(in *SaveProductInput) { in.WholesalePrice = rupees(-10) }, ErrProductPriceInvalid},
		{"offer above normal", func(in *SaveProductInput) { in.OfferPrice = rupees(600) }, ErrProductPriceInvalid},
		{"variant blank name", func(in *SaveProductInput) {
			in.Variants = []ProductVariantInput{{Name: "  ", Price: rupees(100), Stock: 1}}
		}, ErrProductInvalid},
		{"variant negative price", func(in *SaveProductInput) {
			in.Variants = []ProductVariantInput{{Name: "Small", Price: rupees(-1), Stock: 1}}
		}, ErrProductPriceInvalid},
		{"variant negative stock", func(in *SaveProductInput) {
			in.Variants = []ProductVariantInput{{Name: "Small", Price: rupees(100), Stock: -1}}
		}, ErrProductPriceInvalid},
		{"unknown category", func(in *SaveProductInput) { in.CategoryID = 9999 }, ErrCategoryNotFound},
		{"unknown subcategory", func(in *SaveProductInput) { in.SubcategoryID = uintPtr(9999) }, ErrSubcategoryNotFound},
		{"subcategory of another category", func(in *SaveProductInput) { in.SubcategoryID = &subB.ID }, ErrSubcategoryNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validProductInput(catA.ID)
			tc.mutate(&input)
			if _, err := svc.Create(input); !errors.Is(err, tc.want) {
				t.Fatalf("want %v got %v", tc.want, err)
			}
		})
	}
}

func TestCreateProduct(t *testing.T) {
	svc, db := setupProductServiceTest(t)
	category := seedCatalogCategory(t, db, "brassware")
	subcategory := seedCatalogSubcategory(t, db, category.ID, "brass-lamps")

	input := validProductInput(category.ID)
	input.Slug = "  brass-deepam  "
	input.Name = "  Brass Deepam  "
	input.SubcategoryID = &subcategory.ID
	input.OfferPrice = rupees(450)
	input.WholesalePrice = rupees(380)
	input.Images = []string{"deepam-front.jpg", "deepam-side.jpg"}
	input.Variants = []ProductVariantInput{
		{Name: " Small ", Price: rupees(450), Stock: 10},
		{Name: "Large", Price: rupees(650), Stock: 4},
	}

	created, err := svc.Create(input)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Slug != "brass-deepam" || created.Name != "Brass Deepam" {
		t.Fatalf("slug and name should be trimmed, got %q %q", created.Slug, created.Name)
	}
	if !created.IsActive {
		t.Fatalf("nil is_active should default to true")
	}

	stored, err := svc.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if len(stored.Variants) != 2 {
		t.Fatalf("variants want 2 got %d", len(stored.Variants))
	}
	if stored.Variants[0].Name != "Small" || stored.Variants[0].Stock != 10 {
		t.Fatalf("variant wrong: %+v", stored.Variants[0])
	}
	if len(stored.Images) != 2 {
		t.Fatalf("images want 2 got %v", stored.Images)
	}
	if stored.SubcategoryID == nil || *stored.SubcategoryID != subcategory.ID {
		t.Fatalf("subcategory binding lost: %+v", stored.SubcategoryID)
	}
	if !stored.SellingPrice().Equal(rupees(450).Decimal) {
		t.Fatalf("selling price should prefer offer price, got %s", stored.SellingPrice())
	}

	if _, err := svc.Create(validProductInput(category.ID)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Create(validProductInput(category.ID)); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("duplicate slug want ErrSlugExists got %v", err)
	}

	// 显式下架创建：后台可见，前台不可见
	hidden := validProductInput(category.ID)
	hidden.Slug = "retired-deepam"
	hidden.IsActive = boolPtr(false)
	if _, err := svc.Create(hidden); err != nil {
		t.Fatalf("create inactive failed: %v", err)
	}
	if _, err := svc.GetPublicBySlug("retired-deepam"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("inactive product must be hidden, got %v", err)
	}
}

func TestUpdateProductReplacesVariants(t *testing.T) {
	svc, db := setupProductServiceTest(t)
	category := seedCatalogCategory(t, db, "stonework")

	input := validProductInput(category.ID)
	input.Slug = "marble-coasters"
	input.Variants = []ProductVariantInput{
		{Name: "Set of 2", Price: rupees(300), Stock: 5},
		{Name: "Set of 4", Price: rupees(550), Stock: 3},
	}
	created, err := svc.Create(input)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(created.Variants) != 2 {
		t.Fatalf("variants want 2 got %d", len(created.Variants))
	}
	keptID := created.Variants[0].ID

	update := validProductInput(category.ID)
	update.Slug = "marble-coasters"
	update.Variants = []ProductVariantInput{
		{ID: keptID, Name: "Set of 2 Classic", Price: rupees(320), Stock: 7},
		{Name: "Set of 6", Price: rupees(780), Stock: 2},
	}
	if _, err := svc.Update(created.ID, update); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	stored, err := svc.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if len(stored.Variants) != 2 {
		t.Fatalf("dropped variant should be removed, got %d", len(stored.Variants))
	}
	if stored.Variants[0].ID != keptID || stored.Variants[0].Name != "Set of 2 Classic" || stored.Variants[0].Stock != 7 {
		t.Fatalf("kept variant should be updated in place: %+v", stored.Variants[0])
	}
	if stored.Variants[1].Name != "Set of 6" {
		t.Fatalf("new variant missing: %+v", stored.Variants[1])
	}

	// 停用的规格对前台隐藏
	update.Variants = []ProductVariantInput{
		{ID: keptID, Name: "Set of 2 Classic", Price: rupees(320), Stock: 7, IsActive: boolPtr(false)},
		{ID: stored.Variants[1].ID, Name: "Set of 6", Price: rupees(780), Stock: 2},
	}
	if _, err := svc.Update(created.ID, update); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	public, err := svc.GetPublicBySlug("marble-coasters")
	if err != nil {
		t.Fatalf("get public failed: %v", err)
	}
	if len(public.Variants) != 1 || public.Variants[0].Name != "Set of 6" {
		t.Fatalf("public variants want only active ones, got %+v", public.Variants)
	}

	other := validProductInput(category.ID)
	other.Slug = "granite-coasters"
	if _, err := svc.Create(other); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	clash := validProductInput(category.ID)
	clash.Slug = "granite-coasters"
	if _, err := svc.Update(created.ID, clash); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("rename onto taken slug want ErrSlugExists got %v", err)
	}

	if _, err := svc.Update(9999, validProductInput(category.ID)); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("unknown id want ErrProductNotFound got %v", err)
	}
}

func TestProductListVisibility(t *testing.T) {
	svc, db := setupProductServiceTest(t)
	ctx := context.Background()
	woodcraft := seedCatalogCategory(t, db, "carvings")
	textiles := seedCatalogCategory(t, db, "sarees")
	carved := seedCatalogSubcategory(t, db, woodcraft.ID, "carved-animals")

	elephant := validProductInput(woodcraft.ID)
	elephant.SubcategoryID = &carved.ID
	if _, err := svc.Create(elephant); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	saree := validProductInput(textiles.ID)
	saree.Slug = "kanchi-silk-saree"
	saree.Name = "Kanchi Silk Saree"
	if _, err := svc.Create(saree); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	retired := validProductInput(woodcraft.ID)
	retired.Slug = "retired-carving"
	retired.Name = "Retired Carving"
	retired.IsActive = boolPtr(false)
	if _, err := svc.Create(retired); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	items, total, err := svc.ListPublic(ctx, ProductListInput{})
	if err != nil {
		t.Fatalf("list public failed: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("public list should hide inactive, got %d items total %d", len(items), total)
	}

	items, total, err = svc.ListPublic(ctx, ProductListInput{CategoryID: woodcraft.ID})
	if err != nil {
		t.Fatalf("list public failed: %v", err)
	}
	if total != 1 || items[0].Slug != "carved-elephant" {
		t.Fatalf("category filter wrong: total %d %+v", total, items)
	}
	if items[0].Category.Slug != "carvings" {
		t.Fatalf("category should be preloaded, got %+v", items[0].Category)
	}

	items, total, err = svc.ListPublic(ctx, ProductListInput{SubcategoryID: carved.ID})
	if err != nil {
		t.Fatalf("list public failed: %v", err)
	}
	if total != 1 || items[0].Slug != "carved-elephant" {
		t.Fatalf("subcategory filter wrong: total %d", total)
	}

	items, total, err = svc.ListPublic(ctx, ProductListInput{Search: "silk"})
	if err != nil {
		t.Fatalf("list public failed: %v", err)
	}
	if total != 1 || items[0].Slug != "kanchi-silk-saree" {
		t.Fatalf("search filter wrong: total %d", total)
	}

	_, total, err = svc.ListAdmin(ProductListInput{})
	if err != nil {
		t.Fatalf("list admin failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("admin list should include inactive, got %d", total)
	}

	paged, total, err := svc.ListAdmin(ProductListInput{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list admin failed: %v", err)
	}
	if len(paged) != 2 || total != 3 {
		t.Fatalf("pagination wrong: %d items total %d", len(paged), total)
	}
}

func TestDeleteProduct(t *testing.T) {
	svc, db := setupProductServiceTest(t)
	category := seedCatalogCategory(t, db, "pottery")

	created, err := svc.Create(validProductInput(category.ID))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := svc.Delete(created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.GetByID(created.ID); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("deleted product should be gone, got %v", err)
	}
	if _, err := svc.GetPublicBySlug("carved-elephant"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("deleted product must be hidden, got %v", err)
	}
	if err := svc.Delete(created.ID); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("repeat delete want ErrProductNotFound got %v", err)
	}
}
