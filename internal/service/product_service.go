package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/craftkart/api/internal/cache"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/repository"
)

const productListCacheTTL = 60 * time.Second

// ProductService 商品业务服务
type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewProductService 创建商品服务
func NewProductService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) *ProductService {
	return &ProductService{productRepo: productRepo, categoryRepo: categoryRepo}
}

// ProductListInput 商品列表查询输入
type ProductListInput struct {
	Page          int
	PageSize      int
	CategoryID    uint
	SubcategoryID uint
	Search        string
}

// ProductVariantInput 规格输入
type ProductVariantInput struct {
	ID       uint         `json:"id"`
	Name     string       `json:"name"`
	Price    models.Money `json:"price"`
	Stock    int          `json:"stock"`
	IsActive *bool        `json:"is_active"`
}

// SaveProductInput 创建/更新商品输入
type SaveProductInput struct {
	CategoryID     uint
	SubcategoryID  *uint
	Slug           string
	Name           string
	Description    string
	NormalPrice    models.Money
	OfferPrice     models.Money
	WholesalePrice models.Money
	Images         []string
	IsActive       *bool
	SortOrder      int
	Variants       []ProductVariantInput
}

// productListPage 商品列表缓存载体
type productListPage struct {
	Items []models.Product `json:"items"`
	Total int64            `json:"total"`
}

// ListPublic 公开商品列表，仅返回上架商品
// 按筛选条件缓存 60 秒，短 TTL 即失效策略，改动最多延迟一分钟可见。
func (s *ProductService) ListPublic(ctx context.Context, input ProductListInput) ([]models.Product, int64, error) {
	key := fmt.Sprintf("catalog:products:%d:%d:%d:%d:%s",
		input.Page, input.PageSize, input.CategoryID, input.SubcategoryID, strings.TrimSpace(input.Search))
	var cached productListPage
	if hit, err := cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached.Items, cached.Total, nil
	}

	items, total, err := s.productRepo.List(repository.ProductListFilter{
		Page:          input.Page,
		PageSize:      input.PageSize,
		CategoryID:    input.CategoryID,
		SubcategoryID: input.SubcategoryID,
		Search:        input.Search,
		OnlyActive:    true,
		WithCategory:  true,
	})
	if err != nil {
		return nil, 0, err
	}
	_ = cache.SetJSON(ctx, key, productListPage{Items: items, Total: total}, productListCacheTTL)
	return items, total, nil
}

// GetPublicBySlug 按 slug 获取上架商品
func (s *ProductService) GetPublicBySlug(slug string) (*models.Product, error) {
	product, err := s.productRepo.GetBySlug(strings.TrimSpace(slug), true)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ListAdmin 后台商品列表（含下架）
func (s *ProductService) ListAdmin(input ProductListInput) ([]models.Product, int64, error) {
	return s.productRepo.List(repository.ProductListFilter{
		Page:          input.Page,
		PageSize:      input.PageSize,
		CategoryID:    input.CategoryID,
		SubcategoryID: input.SubcategoryID,
		Search:        input.Search,
		OnlyActive:    false,
		WithCategory:  true,
	})
}

// GetByID 后台按 ID 获取商品
func (s *ProductService) GetByID(id uint) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(input SaveProductInput) (*models.Product, error) {
	if err := s.validateSaveInput(&input); err != nil {
		return nil, err
	}
	exist, err := s.productRepo.GetBySlug(input.Slug, false)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrSlugExists
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	product := models.Product{
		CategoryID:     input.CategoryID,
		SubcategoryID:  input.SubcategoryID,
		Slug:           input.Slug,
		Name:           input.Name,
		Description:    input.Description,
		NormalPrice:    input.NormalPrice,
		OfferPrice:     input.OfferPrice,
		WholesalePrice: input.WholesalePrice,
		Images:         input.Images,
		IsActive:       isActive,
		SortOrder:      input.SortOrder,
		Variants:       buildVariants(0, input.Variants),
	}
	if err := s.productRepo.Create(&product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Update 更新商品（规格整体替换）
func (s *ProductService) Update(id uint, input SaveProductInput) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if err := s.validateSaveInput(&input); err != nil {
		return nil, err
	}
	if input.Slug != product.Slug {
		exist, err := s.productRepo.GetBySlug(input.Slug, false)
		if err != nil {
			return nil, err
		}
		if exist != nil && exist.ID != product.ID {
			return nil, ErrSlugExists
		}
	}

	product.CategoryID = input.CategoryID
	product.SubcategoryID = input.SubcategoryID
	product.Slug = input.Slug
	product.Name = input.Name
	product.Description = input.Description
	product.NormalPrice = input.NormalPrice
	product.OfferPrice = input.OfferPrice
	product.WholesalePrice = input.WholesalePrice
	product.Images = input.Images
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	product.SortOrder = input.SortOrder
	product.Variants = buildVariants(product.ID, input.Variants)

	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete 删除商品（软删除，订单项保留快照）
func (s *ProductService) Delete(id uint) error {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	return s.productRepo.Delete(id)
}

// validateSaveInput 校验商品输入，归一化 slug/name
func (s *ProductService) validateSaveInput(input *SaveProductInput) error {
	input.Slug = strings.TrimSpace(input.Slug)
	input.Name = strings.TrimSpace(input.Name)
	if input.Slug == "" || input.Name == "" {
		return ErrProductInvalid
	}
	if !input.NormalPrice.IsPositive() {
		return ErrProductPriceInvalid
	}
	if input.OfferPrice.IsNegative() || input.WholesalePrice.IsNegative() {
		return ErrProductPriceInvalid
	}
	if !input.OfferPrice.IsZero() && input.OfferPrice.GreaterThan(input.NormalPrice.Decimal) {
		return ErrProductPriceInvalid
	}
	for i := range input.Variants {
		input.Variants[i].Name = strings.TrimSpace(input.Variants[i].Name)
		if input.Variants[i].Name == "" {
			return ErrProductInvalid
		}
		if input.Variants[i].Price.IsNegative() || input.Variants[i].Stock < 0 {
			return ErrProductPriceInvalid
		}
	}

	category, err := s.categoryRepo.GetByID(input.CategoryID)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	if input.SubcategoryID != nil {
		subcategory, err := s.categoryRepo.GetSubcategoryByID(*input.SubcategoryID)
		if err != nil {
			return err
		}
		if subcategory == nil || subcategory.CategoryID != input.CategoryID {
			return ErrSubcategoryNotFound
		}
	}
	return nil
}

func buildVariants(productID uint, inputs []ProductVariantInput) []models.ProductVariant {
	variants := make([]models.ProductVariant, 0, len(inputs))
	for _, in := range inputs {
		isActive := true
		if in.IsActive != nil {
			isActive = *in.IsActive
		}
		variants = append(variants, models.ProductVariant{
			ID:        in.ID,
			ProductID: productID,
			Name:      in.Name,
			Price:     in.Price,
			Stock:     in.Stock,
			IsActive:  isActive,
		})
	}
	return variants
}
