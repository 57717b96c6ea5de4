package repository

import (
	"errors"

	"github.com/craftkart/api/internal/models"

	"gorm.io/gorm"
)

// CategoryRepository 分类数据访问接口
type CategoryRepository interface {
	List(onlyActive bool) ([]models.Category, error)
	GetByID(id uint) (*models.Category, error)
	GetBySlug(slug string) (*models.Category, error)
	GetSubcategoryByID(id uint) (*models.Subcategory, error)
	GetSubcategoryBySlug(slug string) (*models.Subcategory, error)
	ListSubcategories(categoryID uint, onlyActive bool) ([]models.Subcategory, error)
	Create(category *models.Category) error
	Update(category *models.Category) error
	Delete(id uint) error
	CreateSubcategory(subcategory *models.Subcategory) error
	UpdateSubcategory(subcategory *models.Subcategory) error
	DeleteSubcategory(id uint) error
	CountProducts(categoryID uint) (int64, error)
	CountProductsBySubcategory(subcategoryID uint) (int64, error)
}

// GormCategoryRepository GORM 实现
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 创建分类仓库
func NewCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// List 分类列表（含子分类）
func (r *GormCategoryRepository) List(onlyActive bool) ([]models.Category, error) {
	query := r.db.Model(&models.Category{})
	if onlyActive {
		query = query.Where("is_active = ?", true)
		query = query.Preload("Subcategories", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("sort_order DESC, id ASC")
		})
	} else {
		query = query.Preload("Subcategories", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order DESC, id ASC")
		})
	}

	var categories []models.Category
	if err := query.Order("sort_order DESC, id ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// GetByID 根据 ID 获取分类
func (r *GormCategoryRepository) GetByID(id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// GetBySlug 根据 slug 获取分类
func (r *GormCategoryRepository) GetBySlug(slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.Where("slug = ?", slug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// GetSubcategoryByID 根据 ID 获取子分类
func (r *GormCategoryRepository) GetSubcategoryByID(id uint) (*models.Subcategory, error) {
	var subcategory models.Subcategory
	if err := r.db.First(&subcategory, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subcategory, nil
}

// GetSubcategoryBySlug 根据 slug 获取子分类
func (r *GormCategoryRepository) GetSubcategoryBySlug(slug string) (*models.Subcategory, error) {
	var subcategory models.Subcategory
	if err := r.db.Where("slug = ?", slug).First(&subcategory).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subcategory, nil
}

// ListSubcategories 子分类列表
func (r *GormCategoryRepository) ListSubcategories(categoryID uint, onlyActive bool) ([]models.Subcategory, error) {
	query := r.db.Model(&models.Subcategory{})
	if categoryID != 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}
	var subcategories []models.Subcategory
	if err := query.Order("sort_order DESC, id ASC").Find(&subcategories).Error; err != nil {
		return nil, err
	}
	return subcategories, nil
}

// Create 创建分类
func (r *GormCategoryRepository) Create(category *models.Category) error {
	return r.db.Create(category).Error
}

// Update 更新分类
func (r *GormCategoryRepository) Update(category *models.Category) error {
	return r.db.Save(category).Error
}

// Delete 删除分类（软删除）
func (r *GormCategoryRepository) Delete(id uint) error {
	return r.db.Delete(&models.Category{}, id).Error
}

// CreateSubcategory 创建子分类
func (r *GormCategoryRepository) CreateSubcategory(subcategory *models.Subcategory) error {
	return r.db.Create(subcategory).Error
}

// UpdateSubcategory 更新子分类
func (r *GormCategoryRepository) UpdateSubcategory(subcategory *models.Subcategory) error {
	return r.db.Save(subcategory).Error
}

// DeleteSubcategory 删除子分类（软删除）
func (r *GormCategoryRepository) DeleteSubcategory(id uint) error {
	return r.db.Delete(&models.Subcategory{}, id).Error
}

// CountProducts 统计某分类下商品数
func (r *GormCategoryRepository) CountProducts(categoryID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Product{}).Where("category_id = ?", categoryID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountProductsBySubcategory 统计某子类下商品数
func (r *GormCategoryRepository) CountProductsBySubcategory(subcategoryID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Product{}).Where("subcategory_id = ?", subcategoryID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
