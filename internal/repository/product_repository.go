package repository

import (
	"errors"
	"strings"

	"github.com/craftkart/api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	List(filter ProductListFilter) ([]models.Product, int64, error)
	GetBySlug(slug string, onlyActive bool) (*models.Product, error)
	GetByID(id uint) (*models.Product, error)
	ListByIDs(ids []uint) ([]models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id uint) error
	GetVariantByID(id uint) (*models.ProductVariant, error)
	DecrementVariantStock(variantID uint, quantity int) (int64, error)
	RestoreVariantStock(variantID uint, quantity int) (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// Transaction 执行事务
func (r *GormProductRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// List 商品列表
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	var products []models.Product

	query := r.db.Model(&models.Product{})
	if filter.WithCategory {
		query = query.Preload("Category").Preload("Subcategory")
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
		query = query.Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("id ASC")
		})
	} else {
		query = query.Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
	}
	if filter.CategoryID != 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.SubcategoryID != 0 {
		query = query.Where("subcategory_id = ?", filter.SubcategoryID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		condition, argCount := buildSearchLikeCondition(r.db, []string{"name", "slug", "description"})
		query = query.Where(condition, repeatLikeArgs(like, argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("sort_order DESC, created_at DESC").Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// GetBySlug 根据 slug 获取商品
func (r *GormProductRepository) GetBySlug(slug string, onlyActive bool) (*models.Product, error) {
	query := r.db.Preload("Category").Preload("Subcategory").Where("slug = ?", slug)
	if onlyActive {
		query = query.Where("is_active = ?", true)
		query = query.Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("id ASC")
		})
	} else {
		query = query.Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
	}

	var product models.Product
	if err := query.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetByID 根据 ID 获取商品
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.Preload("Category").Preload("Subcategory").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListByIDs 批量获取商品
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	if err := r.db.Preload("Variants").Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// Update 更新商品并整体替换规格：保留集合内的更新，集合外的删除
func (r *GormProductRepository) Update(product *models.Product) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(product).Error; err != nil {
			return err
		}
		keep := make([]uint, 0, len(product.Variants))
		for i := range product.Variants {
			product.Variants[i].ProductID = product.ID
			if err := tx.Save(&product.Variants[i]).Error; err != nil {
				return err
			}
			keep = append(keep, product.Variants[i].ID)
		}
		cleanup := tx.Where("product_id = ?", product.ID)
		if len(keep) > 0 {
			cleanup = cleanup.Where("id NOT IN ?", keep)
		}
		return cleanup.Delete(&models.ProductVariant{}).Error
	})
}

// Delete 删除商品
func (r *GormProductRepository) Delete(id uint) error {
	return r.db.Delete(&models.Product{}, id).Error
}

// GetVariantByID 根据 ID 获取规格
func (r *GormProductRepository) GetVariantByID(id uint) (*models.ProductVariant, error) {
	if id == 0 {
		return nil, nil
	}
	var variant models.ProductVariant
	if err := r.db.First(&variant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &variant, nil
}

// DecrementVariantStock 条件扣减库存：不足时零行生效，由调用方判定冲突
func (r *GormProductRepository) DecrementVariantStock(variantID uint, quantity int) (int64, error) {
	if variantID == 0 || quantity <= 0 {
		return 0, errors.New("invalid stock decrement params")
	}
	result := r.db.Model(&models.ProductVariant{}).
		Where("id = ? AND stock >= ?", variantID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// RestoreVariantStock 回补库存（取消/超时）
func (r *GormProductRepository) RestoreVariantStock(variantID uint, quantity int) (int64, error) {
	if variantID == 0 || quantity <= 0 {
		return 0, errors.New("invalid stock restore params")
	}
	result := r.db.Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
