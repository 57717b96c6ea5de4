package service

import (
	"strings"
	"time"

	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/logger"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/repository"

	"github.com/shopspring/decimal"
)

var hundredPercent = decimal.NewFromInt(100)

// DiscountAdminService 折扣与批量价后台管理服务
type DiscountAdminService struct {
	discountRepo repository.DiscountRepository
	usageRepo    repository.DiscountUsageRepository
	ruleRepo     repository.QuantityPriceRuleRepository
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewDiscountAdminService 创建折扣管理服务
func NewDiscountAdminService(
	discountRepo repository.DiscountRepository,
	usageRepo repository.DiscountUsageRepository,
	ruleRepo repository.QuantityPriceRuleRepository,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
) *DiscountAdminService {
	return &DiscountAdminService{
		discountRepo: discountRepo,
		usageRepo:    usageRepo,
		ruleRepo:     ruleRepo,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// SaveDiscountInput 创建/更新折扣输入
type SaveDiscountInput struct {
	Name           string
	Description    string
	DiscountType   string
	DiscountValue  models.Money
	ProductID      *uint
	CategoryID     *uint
	SubcategoryID  *uint
	MinQuantity    int
	UserType       string
	MinOrderAmount models.Money
	MaxDiscount    models.Money
	UsageLimit     int
	PerUserLimit   *int
	ValidFrom      time.Time
	ValidUntil     time.Time
	IsActive       *bool
}

// SaveQuantityRuleInput 创建/更新批量价规则输入
type SaveQuantityRuleInput struct {
	SubcategoryID uint
	Quantity      int
	PriceType     string
	Value         models.Money
	IsActive      *bool
}

// DiscountListInput 折扣列表查询输入
type DiscountListInput struct {
	Page         int
	PageSize     int
	DiscountType string
	IsActive     *bool
	ProductID    uint
	Search       string
}

// QuantityRuleListInput 批量价规则列表查询输入
type QuantityRuleListInput struct {
	Page          int
	PageSize      int
	SubcategoryID uint
	IsActive      *bool
}

// ListDiscounts 折扣列表
func (s *DiscountAdminService) ListDiscounts(input DiscountListInput) ([]models.Discount, int64, error) {
	return s.discountRepo.List(repository.DiscountListFilter{
		Page:         input.Page,
		PageSize:     input.PageSize,
		DiscountType: input.DiscountType,
		IsActive:     input.IsActive,
		ProductID:    input.ProductID,
		Search:       input.Search,
	})
}

// GetDiscount 按 ID 获取折扣
func (s *DiscountAdminService) GetDiscount(id uint) (*models.Discount, error) {
	discount, err := s.discountRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if discount == nil {
		return nil, ErrDiscountNotFound
	}
	return discount, nil
}

// CreateDiscount 创建折扣
func (s *DiscountAdminService) CreateDiscount(input SaveDiscountInput) (*models.Discount, error) {
	if err := s.validateDiscountInput(&input); err != nil {
		return nil, err
	}
	exist, err := s.discountRepo.GetByName(input.Name)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrDiscountNameExists
	}

	perUserLimit := 1
	if input.PerUserLimit != nil {
		perUserLimit = *input.PerUserLimit
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	discount := models.Discount{
		Name:           input.Name,
		Description:    input.Description,
		DiscountType:   input.DiscountType,
		DiscountValue:  input.DiscountValue,
		ProductID:      input.ProductID,
		CategoryID:     input.CategoryID,
		SubcategoryID:  input.SubcategoryID,
		MinQuantity:    input.MinQuantity,
		UserType:       input.UserType,
		MinOrderAmount: input.MinOrderAmount,
		MaxDiscount:    input.MaxDiscount,
		UsageLimit:     input.UsageLimit,
		PerUserLimit:   perUserLimit,
		ValidFrom:      input.ValidFrom,
		ValidUntil:     input.ValidUntil,
		IsActive:       isActive,
	}
	if err := s.discountRepo.Create(&discount); err != nil {
		return nil, err
	}
	return &discount, nil
}

// UpdateDiscount 更新折扣，使用计数由系统维护不受输入影响
func (s *DiscountAdminService) UpdateDiscount(id uint, input SaveDiscountInput) (*models.Discount, error) {
	discount, err := s.discountRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if discount == nil {
		return nil, ErrDiscountNotFound
	}
	if err := s.validateDiscountInput(&input); err != nil {
		return nil, err
	}
	if input.Name != discount.Name {
		exist, err := s.discountRepo.GetByName(input.Name)
		if err != nil {
			return nil, err
		}
		if exist != nil && exist.ID != discount.ID {
			return nil, ErrDiscountNameExists
		}
	}

	discount.Name = input.Name
	discount.Description = input.Description
	discount.DiscountType = input.DiscountType
	discount.DiscountValue = input.DiscountValue
	discount.ProductID = input.ProductID
	discount.CategoryID = input.CategoryID
	discount.SubcategoryID = input.SubcategoryID
	discount.MinQuantity = input.MinQuantity
	discount.UserType = input.UserType
	discount.MinOrderAmount = input.MinOrderAmount
	discount.MaxDiscount = input.MaxDiscount
	discount.UsageLimit = input.UsageLimit
	if input.PerUserLimit != nil {
		discount.PerUserLimit = *input.PerUserLimit
	}
	discount.ValidFrom = input.ValidFrom
	discount.ValidUntil = input.ValidUntil
	if input.IsActive != nil {
		discount.IsActive = *input.IsActive
	}

	if err := s.discountRepo.Update(discount); err != nil {
		return nil, err
	}
	return discount, nil
}

// SetDiscountActive 启用/停用折扣
func (s *DiscountAdminService) SetDiscountActive(id uint, active bool) (*models.Discount, error) {
	discount, err := s.discountRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if discount == nil {
		return nil, ErrDiscountNotFound
	}
	if discount.IsActive == active {
		return discount, nil
	}
	discount.IsActive = active
	if err := s.discountRepo.Update(discount); err != nil {
		return nil, err
	}
	return discount, nil
}

// DeleteDiscount 删除折扣，已有使用记录时拒绝（保留对账依据）
func (s *DiscountAdminService) DeleteDiscount(id uint) error {
	discount, err := s.discountRepo.GetByID(id)
	if err != nil {
		return err
	}
	if discount == nil {
		return ErrDiscountNotFound
	}
	if discount.UsedCount > 0 {
		return ErrDiscountInUse
	}
	return s.discountRepo.Delete(id)
}

// ListUsages 折扣使用台账列表
func (s *DiscountAdminService) ListUsages(filter repository.DiscountUsageListFilter) ([]models.DiscountUsage, int64, error) {
	return s.usageRepo.ListByDiscount(filter)
}

// ReconcileUsage 以台账为准重算折扣使用计数
// 并发取消与扣减的竞态可能让冗余计数偏离台账，定时任务和手动触发均走此处。
func (s *DiscountAdminService) ReconcileUsage(discountID uint) error {
	discount, err := s.discountRepo.GetByID(discountID)
	if err != nil {
		return err
	}
	if discount == nil {
		return ErrDiscountNotFound
	}

	usedCount, totalAmount, err := s.usageRepo.AggregateByDiscount(discountID)
	if err != nil {
		return err
	}
	if int64(discount.UsedCount) == usedCount && discount.TotalDiscounts.Equal(totalAmount.Decimal) {
		return nil
	}

	if err := s.discountRepo.OverwriteUsageCounters(discountID, usedCount, totalAmount); err != nil {
		return err
	}
	logger.Infow("discount_usage_reconciled",
		"discount_id", discountID,
		"used_count_before", discount.UsedCount,
		"used_count_after", usedCount,
		"total_before", discount.TotalDiscounts.String(),
		"total_after", totalAmount.String(),
	)
	return nil
}

// validateDiscountInput 校验折扣输入
func (s *DiscountAdminService) validateDiscountInput(input *SaveDiscountInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return ErrDiscountNameRequired
	}
	input.DiscountType = strings.ToLower(strings.TrimSpace(input.DiscountType))
	switch input.DiscountType {
	case constants.DiscountTypePercentage, constants.DiscountTypeFixedAmount, constants.DiscountTypeBuyXGetY:
	default:
		return ErrDiscountTypeInvalid
	}
	if !input.DiscountValue.IsPositive() {
		return ErrDiscountValueInvalid
	}
	if input.DiscountType == constants.DiscountTypePercentage && input.DiscountValue.GreaterThan(hundredPercent) {
		return ErrDiscountPercentInvalid
	}
	if input.DiscountType == constants.DiscountTypeBuyXGetY && input.MinQuantity < 1 {
		return ErrDiscountMinQtyRequired
	}
	if input.MinQuantity < 0 || input.UsageLimit < 0 {
		return ErrDiscountValueInvalid
	}
	if input.PerUserLimit != nil && *input.PerUserLimit < 0 {
		return ErrDiscountValueInvalid
	}
	if input.MinOrderAmount.IsNegative() || input.MaxDiscount.IsNegative() {
		return ErrDiscountValueInvalid
	}
	if input.ValidFrom.IsZero() || input.ValidUntil.IsZero() || !input.ValidFrom.Before(input.ValidUntil) {
		return ErrDiscountWindowInvalid
	}
	input.UserType = strings.ToLower(strings.TrimSpace(input.UserType))
	switch input.UserType {
	case "", constants.DiscountUserTypeAll, constants.UserRoleCustomer, constants.UserRoleWholesale:
	default:
		return ErrDiscountUserTypeInvalid
	}
	return s.validateDiscountScope(input)
}

// validateDiscountScope 校验范围引用存在性；全空表示全场折扣
func (s *DiscountAdminService) validateDiscountScope(input *SaveDiscountInput) error {
	if input.ProductID != nil {
		product, err := s.productRepo.GetByID(*input.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrDiscountScopeInvalid
		}
	}
	if input.CategoryID != nil {
		category, err := s.categoryRepo.GetByID(*input.CategoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return ErrDiscountScopeInvalid
		}
	}
	if input.SubcategoryID != nil {
		subcategory, err := s.categoryRepo.GetSubcategoryByID(*input.SubcategoryID)
		if err != nil {
			return err
		}
		if subcategory == nil {
			return ErrDiscountScopeInvalid
		}
	}
	return nil
}

// ListQuantityRules 批量价规则列表
func (s *DiscountAdminService) ListQuantityRules(input QuantityRuleListInput) ([]models.QuantityPriceRule, int64, error) {
	return s.ruleRepo.List(repository.QuantityRuleListFilter{
		Page:          input.Page,
		PageSize:      input.PageSize,
		SubcategoryID: input.SubcategoryID,
		IsActive:      input.IsActive,
	})
}

// GetQuantityRule 按 ID 获取批量价规则
func (s *DiscountAdminService) GetQuantityRule(id uint) (*models.QuantityPriceRule, error) {
	rule, err := s.ruleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrQuantityRuleNotFound
	}
	return rule, nil
}

// CreateQuantityRule 创建批量价规则
func (s *DiscountAdminService) CreateQuantityRule(input SaveQuantityRuleInput) (*models.QuantityPriceRule, error) {
	if err := s.validateQuantityRuleInput(&input); err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	rule := models.QuantityPriceRule{
		SubcategoryID: input.SubcategoryID,
		Quantity:      input.Quantity,
		PriceType:     input.PriceType,
		Value:         input.Value,
		IsActive:      isActive,
	}
	if err := s.ruleRepo.Create(&rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// UpdateQuantityRule 更新批量价规则
func (s *DiscountAdminService) UpdateQuantityRule(id uint, input SaveQuantityRuleInput) (*models.QuantityPriceRule, error) {
	rule, err := s.ruleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrQuantityRuleNotFound
	}
	if err := s.validateQuantityRuleInput(&input); err != nil {
		return nil, err
	}

	rule.SubcategoryID = input.SubcategoryID
	rule.Quantity = input.Quantity
	rule.PriceType = input.PriceType
	rule.Value = input.Value
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	if err := s.ruleRepo.Update(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteQuantityRule 删除批量价规则
func (s *DiscountAdminService) DeleteQuantityRule(id uint) error {
	rule, err := s.ruleRepo.GetByID(id)
	if err != nil {
		return err
	}
	if rule == nil {
		return ErrQuantityRuleNotFound
	}
	return s.ruleRepo.Delete(id)
}

// validateQuantityRuleInput 校验批量价规则输入
func (s *DiscountAdminService) validateQuantityRuleInput(input *SaveQuantityRuleInput) error {
	if input.Quantity < 1 {
		return ErrQuantityRuleInvalid
	}
	input.PriceType = strings.ToLower(strings.TrimSpace(input.PriceType))
	switch input.PriceType {
	case constants.QuantityPriceTypePercentage:
		if !input.Value.IsPositive() || input.Value.GreaterThan(hundredPercent) {
			return ErrQuantityRuleInvalid
		}
	case constants.QuantityPriceTypeFixedAmount:
		if !input.Value.IsPositive() {
			return ErrQuantityRuleInvalid
		}
	default:
		return ErrQuantityRuleInvalid
	}

	subcategory, err := s.categoryRepo.GetSubcategoryByID(input.SubcategoryID)
	if err != nil {
		return err
	}
	if subcategory == nil {
		return ErrSubcategoryNotFound
	}
	return nil
}
