package repository

import (
	"github.com/craftkart/api/internal/models"

	"gorm.io/gorm"
)

// DiscountUsageRepository 优惠使用台账数据访问接口
type DiscountUsageRepository interface {
	Create(usage *models.DiscountUsage) error
	CountByUser(discountID, userID uint) (int64, error)
	ListByOrderID(orderID uint) ([]models.DiscountUsage, error)
	ListByDiscount(filter DiscountUsageListFilter) ([]models.DiscountUsage, int64, error)
	AggregateByDiscount(discountID uint) (int64, models.Money, error)
	DeleteByOrderID(orderID uint) error
	WithTx(tx *gorm.DB) *GormDiscountUsageRepository
}

// GormDiscountUsageRepository GORM 实现
type GormDiscountUsageRepository struct {
	db *gorm.DB
}

// NewDiscountUsageRepository 创建优惠使用台账仓库
func NewDiscountUsageRepository(db *gorm.DB) *GormDiscountUsageRepository {
	return &GormDiscountUsageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDiscountUsageRepository) WithTx(tx *gorm.DB) *GormDiscountUsageRepository {
	if tx == nil {
		return r
	}
	return &GormDiscountUsageRepository{db: tx}
}

// Create 创建使用记录，(discount_id, order_id) 唯一键冲突时返回驱动错误
func (r *GormDiscountUsageRepository) Create(usage *models.DiscountUsage) error {
	return r.db.Create(usage).Error
}

// CountByUser 获取用户对某优惠的使用次数
func (r *GormDiscountUsageRepository) CountByUser(discountID, userID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.DiscountUsage{}).
		Where("discount_id = ? AND user_id = ?", discountID, userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByOrderID 获取订单的使用记录
func (r *GormDiscountUsageRepository) ListByOrderID(orderID uint) ([]models.DiscountUsage, error) {
	var usages []models.DiscountUsage
	if err := r.db.Where("order_id = ?", orderID).Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}

// ListByDiscount 按优惠获取使用记录
func (r *GormDiscountUsageRepository) ListByDiscount(filter DiscountUsageListFilter) ([]models.DiscountUsage, int64, error) {
	query := r.db.Model(&models.DiscountUsage{})
	if filter.DiscountID != 0 {
		query = query.Where("discount_id = ?", filter.DiscountID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var usages []models.DiscountUsage
	if err := query.Order("id desc").Find(&usages).Error; err != nil {
		return nil, 0, err
	}
	return usages, total, nil
}

// AggregateByDiscount 按台账统计某优惠的使用次数与累计金额（对账用）
func (r *GormDiscountUsageRepository) AggregateByDiscount(discountID uint) (int64, models.Money, error) {
	var row struct {
		UsedCount   int64
		TotalAmount models.Money
	}
	err := r.db.Model(&models.DiscountUsage{}).
		Select("COUNT(*) AS used_count, COALESCE(SUM(discount_amount), 0) AS total_amount").
		Where("discount_id = ?", discountID).
		Scan(&row).Error
	if err != nil {
		return 0, models.Money{}, err
	}
	return row.UsedCount, row.TotalAmount, nil
}

// DeleteByOrderID 删除订单的使用记录（取消回滚路径，物理删除）
func (r *GormDiscountUsageRepository) DeleteByOrderID(orderID uint) error {
	return r.db.Where("order_id = ?", orderID).Delete(&models.DiscountUsage{}).Error
}
