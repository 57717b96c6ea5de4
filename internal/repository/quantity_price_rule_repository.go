package repository

import (
	"errors"

	"github.com/craftkart/api/internal/models"

	"gorm.io/gorm"
)

// QuantityPriceRuleRepository 批量价规则数据访问接口
type QuantityPriceRuleRepository interface {
	GetByID(id uint) (*models.QuantityPriceRule, error)
	ListApplicable(subcategoryID uint, quantity int) ([]models.QuantityPriceRule, error)
	List(filter QuantityRuleListFilter) ([]models.QuantityPriceRule, int64, error)
	Create(rule *models.QuantityPriceRule) error
	Update(rule *models.QuantityPriceRule) error
	Delete(id uint) error
	WithTx(tx *gorm.DB) *GormQuantityPriceRuleRepository
}

// GormQuantityPriceRuleRepository GORM 实现
type GormQuantityPriceRuleRepository struct {
	db *gorm.DB
}

// NewQuantityPriceRuleRepository 创建批量价规则仓库
func NewQuantityPriceRuleRepository(db *gorm.DB) *GormQuantityPriceRuleRepository {
	return &GormQuantityPriceRuleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormQuantityPriceRuleRepository) WithTx(tx *gorm.DB) *GormQuantityPriceRuleRepository {
	if tx == nil {
		return r
	}
	return &GormQuantityPriceRuleRepository{db: tx}
}

// GetByID 根据 ID 获取规则
func (r *GormQuantityPriceRuleRepository) GetByID(id uint) (*models.QuantityPriceRule, error) {
	var rule models.QuantityPriceRule
	if err := r.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// ListApplicable 获取子分类下阈值不超过数量的生效规则，按阈值降序
func (r *GormQuantityPriceRuleRepository) ListApplicable(subcategoryID uint, quantity int) ([]models.QuantityPriceRule, error) {
	if subcategoryID == 0 || quantity <= 0 {
		return []models.QuantityPriceRule{}, nil
	}
	var rules []models.QuantityPriceRule
	if err := r.db.
		Where("subcategory_id = ? AND is_active = ? AND quantity <= ?", subcategoryID, true, quantity).
		Order("quantity DESC, id DESC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// List 规则列表
func (r *GormQuantityPriceRuleRepository) List(filter QuantityRuleListFilter) ([]models.QuantityPriceRule, int64, error) {
	query := r.db.Model(&models.QuantityPriceRule{})

	if filter.SubcategoryID != 0 {
		query = query.Where("subcategory_id = ?", filter.SubcategoryID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var rules []models.QuantityPriceRule
	if err := query.Order("subcategory_id ASC, quantity ASC").Find(&rules).Error; err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

// Create 创建规则
func (r *GormQuantityPriceRuleRepository) Create(rule *models.QuantityPriceRule) error {
	return r.db.Create(rule).Error
}

// Update 更新规则
func (r *GormQuantityPriceRuleRepository) Update(rule *models.QuantityPriceRule) error {
	return r.db.Save(rule).Error
}

// Delete 删除规则
func (r *GormQuantityPriceRuleRepository) Delete(id uint) error {
	return r.db.Delete(&models.QuantityPriceRule{}, id).Error
}
