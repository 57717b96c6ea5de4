package service

import (
	"context"
	"strings"
	"time"

	"github.com/craftkart/api/internal/cache"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/repository"
)

const categoryCacheTTL = 60 * time.Second
const categoryCacheKey = "catalog:categories"

// CategoryService 分类业务服务
type CategoryService struct {
	repo repository.CategoryRepository
}

// NewCategoryService 创建分类服务
func NewCategoryService(repo repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// CreateCategoryInput 创建分类输入
type CreateCategoryInput struct {
	Slug      string
	Name      string
	SortOrder int
	IsActive  *bool
}

// CreateSubcategoryInput 创建子类输入
type CreateSubcategoryInput struct {
	CategoryID uint
	Slug       string
	Name       string
	SortOrder  int
	IsActive   *bool
}

// ListPublic 获取公开分类树（含子类），短缓存
func (s *CategoryService) ListPublic(ctx context.Context) ([]models.Category, error) {
	var cached []models.Category
	hit, cacheErr := cache.GetJSON(ctx, categoryCacheKey, &cached)
	if cacheErr == nil && hit {
		return cached, nil
	}

	categories, err := s.repo.List(true)
	if err != nil {
		return nil, err
	}
	_ = cache.SetJSON(ctx, categoryCacheKey, categories, categoryCacheTTL)
	return categories, nil
}

// ListAdmin 获取全部分类（含停用）
func (s *CategoryService) ListAdmin() ([]models.Category, error) {
	return s.repo.List(false)
}

// GetBySlug 按 slug 获取分类
func (s *CategoryService) GetBySlug(slug string) (*models.Category, error) {
	category, err := s.repo.GetBySlug(strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

// Create 创建分类
func (s *CategoryService) Create(ctx context.Context, input CreateCategoryInput) (*models.Category, error) {
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return nil, ErrCategoryInvalid
	}
	exist, err := s.repo.GetBySlug(slug)
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
	category := models.Category{
		Slug:      slug,
		Name:      name,
		SortOrder: input.SortOrder,
		IsActive:  isActive,
	}
	if err := s.repo.Create(&category); err != nil {
		return nil, err
	}
	_ = cache.Del(ctx, categoryCacheKey)
	return &category, nil
}

// Update 更新分类
func (s *CategoryService) Update(ctx context.Context, id uint, input CreateCategoryInput) (*models.Category, error) {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return nil, ErrCategoryInvalid
	}
	if slug != category.Slug {
		exist, err := s.repo.GetBySlug(slug)
		if err != nil {
			return nil, err
		}
		if exist != nil && exist.ID != category.ID {
			return nil, ErrSlugExists
		}
	}

	category.Slug = slug
	category.Name = name
	category.SortOrder = input.SortOrder
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if err := s.repo.Update(category); err != nil {
		return nil, err
	}
	_ = cache.Del(ctx, categoryCacheKey)
	return category, nil
}

// Delete 删除分类，仍有商品挂靠时拒绝
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	count, err := s.repo.CountProducts(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	_ = cache.Del(ctx, categoryCacheKey)
	return nil
}

// CreateSubcategory 创建子类
func (s *CategoryService) CreateSubcategory(ctx context.Context, input CreateSubcategoryInput) (*models.Subcategory, error) {
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if input.CategoryID == 0 || slug == "" || name == "" {
		return nil, ErrCategoryInvalid
	}
	parent, err := s.repo.GetByID(input.CategoryID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrCategoryNotFound
	}
	exist, err := s.repo.GetSubcategoryBySlug(slug)
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
	subcategory := models.Subcategory{
		CategoryID: input.CategoryID,
		Slug:       slug,
		Name:       name,
		SortOrder:  input.SortOrder,
		IsActive:   isActive,
	}
	if err := s.repo.CreateSubcategory(&subcategory); err != nil {
		return nil, err
	}
	_ = cache.Del(ctx, categoryCacheKey)
	return &subcategory, nil
}

// UpdateSubcategory 更新子类，不支持跨大类移动
func (s *CategoryService) UpdateSubcategory(ctx context.Context, id uint, input CreateSubcategoryInput) (*models.Subcategory, error) {
	subcategory, err := s.repo.GetSubcategoryByID(id)
	if err != nil {
		return nil, err
	}
	if subcategory == nil {
		return nil, ErrSubcategoryNotFound
	}
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return nil, ErrCategoryInvalid
	}
	if slug != subcategory.Slug {
		exist, err := s.repo.GetSubcategoryBySlug(slug)
		if err != nil {
			return nil, err
		}
		if exist != nil && exist.ID != subcategory.ID {
			return nil, ErrSlugExists
		}
	}

	subcategory.Slug = slug
	subcategory.Name = name
	subcategory.SortOrder = input.SortOrder
	if input.IsActive != nil {
		subcategory.IsActive = *input.IsActive
	}
	if err := s.repo.UpdateSubcategory(subcategory); err != nil {
		return nil, err
	}
	_ = cache.Del(ctx, categoryCacheKey)
	return subcategory, nil
}

// DeleteSubcategory 删除子类，仍有商品挂靠时拒绝
func (s *CategoryService) DeleteSubcategory(ctx context.Context, id uint) error {
	subcategory, err := s.repo.GetSubcategoryByID(id)
	if err != nil {
		return err
	}
	if subcategory == nil {
		return ErrSubcategoryNotFound
	}
	count, err := s.repo.CountProductsBySubcategory(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}
	if err := s.repo.DeleteSubcategory(id); err != nil {
		return err
	}
	_ = cache.Del(ctx, categoryCacheKey)
	return nil
}

// ListSubcategories 子类列表
func (s *CategoryService) ListSubcategories(categoryID uint, onlyActive bool) ([]models.Subcategory, error) {
	return s.repo.ListSubcategories(categoryID, onlyActive)
}
