package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/craftkart/api/internal/models"

	"gorm.io/gorm"
)

// DiscountRepository 优惠数据访问接口
type DiscountRepository interface {
	GetByID(id uint) (*models.Discount, error)
	GetByName(name string) (*models.Discount, error)
	ListCandidates(productID, categoryID uint, subcategoryID *uint, now time.Time) ([]models.Discount, error)
	List(filter DiscountListFilter) ([]models.Discount, int64, error)
	Create(discount *models.Discount) error
	Update(discount *models.Discount) error
	Delete(id uint) error
	IncrementUsage(id uint, amount models.Money) (int64, error)
	DecrementUsage(id uint, amount models.Money) (int64, error)
	OverwriteUsageCounters(id uint, usedCount int64, total models.Money) error
	WithTx(tx *gorm.DB) *GormDiscountRepository
}

// GormDiscountRepository GORM 实现
type GormDiscountRepository struct {
	db *gorm.DB
}

// NewDiscountRepository 创建优惠仓库
func NewDiscountRepository(db *gorm.DB) *GormDiscountRepository {
	return &GormDiscountRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDiscountRepository) WithTx(tx *gorm.DB) *GormDiscountRepository {
	if tx == nil {
		return r
	}
	return &GormDiscountRepository{db: tx}
}

// GetByID 根据 ID 获取优惠
func (r *GormDiscountRepository) GetByID(id uint) (*models.Discount, error) {
	var discount models.Discount
	if err := r.db.First(&discount, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &discount, nil
}

// GetByName 根据名称（即券码）获取优惠
func (r *GormDiscountRepository) GetByName(name string) (*models.Discount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var discount models.Discount
	if err := r.db.Where("name = ?", name).First(&discount).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &discount, nil
}

// ListCandidates 获取商品可命中的生效优惠（商品/分类/子分类/全场），按面值降序、ID 降序
func (r *GormDiscountRepository) ListCandidates(productID, categoryID uint, subcategoryID *uint, now time.Time) ([]models.Discount, error) {
	scope := "product_id = ? OR category_id = ?"
	args := []interface{}{productID, categoryID}
	if subcategoryID != nil && *subcategoryID != 0 {
		scope += " OR subcategory_id = ?"
		args = append(args, *subcategoryID)
	}
	scope += " OR (product_id IS NULL AND category_id IS NULL AND subcategory_id IS NULL)"

	var discounts []models.Discount
	if err := r.db.
		Where("is_active = ?", true).
		Where("valid_from <= ? AND valid_until >= ?", now, now).
		Where("("+scope+")", args...).
		Order("discount_value DESC, id DESC").
		Find(&discounts).Error; err != nil {
		return nil, err
	}
	return discounts, nil
}

// List 优惠列表
func (r *GormDiscountRepository) List(filter DiscountListFilter) ([]models.Discount, int64, error) {
	query := r.db.Model(&models.Discount{})

	if filter.DiscountType != "" {
		query = query.Where("discount_type = ?", filter.DiscountType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.ActiveAt != nil {
		query = query.Where("valid_from <= ? AND valid_until >= ?", *filter.ActiveAt, *filter.ActiveAt)
	}
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		condition, argCount := buildSearchLikeCondition(r.db, []string{"name", "description"})
		query = query.Where(condition, repeatLikeArgs(like, argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var discounts []models.Discount
	if err := query.Order("id desc").Find(&discounts).Error; err != nil {
		return nil, 0, err
	}
	return discounts, total, nil
}

// Create 创建优惠
func (r *GormDiscountRepository) Create(discount *models.Discount) error {
	return r.db.Create(discount).Error
}

// Update 更新优惠
func (r *GormDiscountRepository) Update(discount *models.Discount) error {
	return r.db.Save(discount).Error
}

// Delete 删除优惠
func (r *GormDiscountRepository) Delete(id uint) error {
	return r.db.Delete(&models.Discount{}, id).Error
}

// IncrementUsage 有界累加使用量：额度耗尽时零行生效，由调用方回滚
func (r *GormDiscountRepository) IncrementUsage(id uint, amount models.Money) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid discount id")
	}
	result := r.db.Model(&models.Discount{}).
		Where("id = ? AND (usage_limit = 0 OR used_count < usage_limit)", id).
		Updates(map[string]interface{}{
			"used_count":      gorm.Expr("used_count + ?", 1),
			"total_discounts": gorm.Expr("total_discounts + ?", amount),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DecrementUsage 回退使用量（取消/超时），下界保护避免负数
func (r *GormDiscountRepository) DecrementUsage(id uint, amount models.Money) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid discount id")
	}
	result := r.db.Model(&models.Discount{}).
		Where("id = ? AND used_count >= ?", id, 1).
		Updates(map[string]interface{}{
			"used_count":      gorm.Expr("used_count - ?", 1),
			"total_discounts": gorm.Expr("total_discounts - ?", amount),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// OverwriteUsageCounters 以台账聚合值覆盖计数器（对账任务专用）
func (r *GormDiscountRepository) OverwriteUsageCounters(id uint, usedCount int64, total models.Money) error {
	if id == 0 {
		return errors.New("invalid discount id")
	}
	return r.db.Model(&models.Discount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"used_count":      usedCount,
			"total_discounts": total,
		}).Error
}
