package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/repository"

	"github.com/shopspring/decimal"
)

// 优惠码校验的用户提示文案，按校验顺序排列
const (
	CouponMsgInvalidCode     = "Invalid coupon code"
	CouponMsgNotActive       = "This coupon is not active"
	CouponMsgNotYetValid     = "This coupon is not valid yet"
	CouponMsgExpired         = "This coupon has expired"
	CouponMsgUsageLimit      = "This coupon has reached its usage limit"
	CouponMsgPerUserLimit    = "You have already used this coupon"
	couponMsgMinOrderPattern = "A minimum order amount of %s is required for this coupon"
)

// CouponMinOrderMessage 最低订单金额提示
func CouponMinOrderMessage(minAmount models.Money) string {
	return fmt.Sprintf(couponMsgMinOrderPattern, minAmount.String())
}

// DiscountService 折扣解析与优惠码校验服务
type DiscountService struct {
	discountRepo repository.DiscountRepository
	usageRepo    repository.DiscountUsageRepository
	userRepo     repository.UserRepository
}

// NewDiscountService 创建折扣服务
func NewDiscountService(discountRepo repository.DiscountRepository, usageRepo repository.DiscountUsageRepository, userRepo repository.UserRepository) *DiscountService {
	return &DiscountService{
		discountRepo: discountRepo,
		usageRepo:    usageRepo,
		userRepo:     userRepo,
	}
}

// CouponValidationResult 优惠码校验结果
// IsValid=false 时 Message 为面向用户的拒绝原因；校验本身不做任何写操作。
type CouponValidationResult struct {
	IsValid            bool             `json:"is_valid"`
	Discount           *models.Discount `json:"discount,omitempty"`
	DiscountAmount     models.Money     `json:"discount_amount"`
	MaxDiscountReached bool             `json:"max_discount_reached"`
	Message            string           `json:"message,omitempty"`
}

// SelectedDiscount 单行择优结果
type SelectedDiscount struct {
	Discount models.Discount
	Amount   models.Money
}

// ResolveProductDiscounts 解析商品可用折扣
// 候选 = 商品/大类/子类范围命中 ∪ 全场折扣，且启用并处于有效期内；
// 逐个过滤用户角色、每人上限与总量上限，匿名用户跳过用户侧校验。
func (s *DiscountService) ResolveProductDiscounts(product *models.Product, userID uint, now time.Time) ([]models.Discount, error) {
	if product == nil {
		return nil, ErrProductNotFound
	}
	candidates, err := s.discountRepo.ListCandidates(product.ID, product.CategoryID, product.SubcategoryID, now)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	var user *models.User
	if userID != 0 {
		user, err = s.userRepo.GetByID(userID)
		if err != nil {
			return nil, err
		}
	}

	eligible := make([]models.Discount, 0, len(candidates))
	for i := range candidates {
		ok, err := s.isDiscountEligible(&candidates[i], user)
		if err != nil {
			return nil, err
		}
		if ok {
			eligible = append(eligible, candidates[i])
		}
	}
	return eligible, nil
}

func (s *DiscountService) isDiscountEligible(discount *models.Discount, user *models.User) (bool, error) {
	if discount.UsageLimit > 0 && discount.UsedCount >= discount.UsageLimit {
		return false, nil
	}
	if user == nil {
		return true, nil
	}
	userType := strings.ToLower(strings.TrimSpace(discount.UserType))
	if userType != "" && userType != constants.DiscountUserTypeAll && userType != user.Role {
		return false, nil
	}
	if discount.PerUserLimit > 0 {
		used, err := s.usageRepo.CountByUser(discount.ID, user.ID)
		if err != nil {
			return false, err
		}
		if used >= int64(discount.PerUserLimit) {
			return false, nil
		}
	}
	return true, nil
}

// ValidateCoupon 校验优惠码
// 先按名称精确匹配，失败后按数字 ID 兜底；校验链短路，逐项给出用户提示。
func (s *DiscountService) ValidateCoupon(code string, userID uint, orderAmount models.Money, now time.Time) (*CouponValidationResult, error) {
	discount, err := s.lookupCoupon(code)
	if err != nil {
		return nil, err
	}
	if discount == nil {
		return &CouponValidationResult{Message: CouponMsgInvalidCode}, nil
	}
	if !discount.IsActive {
		return &CouponValidationResult{Message: CouponMsgNotActive}, nil
	}
	if now.Before(discount.ValidFrom) {
		return &CouponValidationResult{Message: CouponMsgNotYetValid}, nil
	}
	if now.After(discount.ValidUntil) {
		return &CouponValidationResult{Message: CouponMsgExpired}, nil
	}
	if discount.UsageLimit > 0 && discount.UsedCount >= discount.UsageLimit {
		return &CouponValidationResult{Message: CouponMsgUsageLimit}, nil
	}
	if userID != 0 && discount.PerUserLimit > 0 {
		used, err := s.usageRepo.CountByUser(discount.ID, userID)
		if err != nil {
			return nil, err
		}
		if used >= int64(discount.PerUserLimit) {
			return &CouponValidationResult{Message: CouponMsgPerUserLimit}, nil
		}
	}
	if discount.MinOrderAmount.Decimal.IsPositive() && orderAmount.Decimal.LessThan(discount.MinOrderAmount.Decimal) {
		return &CouponValidationResult{Message: CouponMinOrderMessage(discount.MinOrderAmount)}, nil
	}

	amount, capped := couponDiscountAmount(discount, orderAmount)
	return &CouponValidationResult{
		IsValid:            true,
		Discount:           discount,
		DiscountAmount:     amount,
		MaxDiscountReached: capped,
	}, nil
}

// lookupCoupon 按码找折扣：名称精确匹配优先，未命中再把纯数字码当 ID 兜底。
// 名称恰为数字的优惠码会遮蔽同号 ID，属预期行为。
func (s *DiscountService) lookupCoupon(code string) (*models.Discount, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, nil
	}
	discount, err := s.discountRepo.GetByName(trimmed)
	if err != nil {
		return nil, err
	}
	if discount != nil {
		return discount, nil
	}
	id, parseErr := strconv.ParseUint(trimmed, 10, 64)
	if parseErr != nil || id == 0 {
		return nil, nil
	}
	return s.discountRepo.GetByID(uint(id))
}

// couponDiscountAmount 计算订单级优惠金额
// percentage 按订单金额折算并受 MaxDiscount 封顶；fixed_amount 按面值计，
// 超出订单金额的部分由下游的非负总额约束吸收。
func couponDiscountAmount(discount *models.Discount, orderAmount models.Money) (models.Money, bool) {
	if discount.DiscountType == constants.DiscountTypePercentage {
		amount := orderAmount.Decimal.Mul(discount.DiscountValue.Decimal).Div(decimal.NewFromInt(100))
		if discount.MaxDiscount.Decimal.IsPositive() && amount.GreaterThan(discount.MaxDiscount.Decimal) {
			return discount.MaxDiscount, true
		}
		return models.NewMoneyFromDecimal(amount), false
	}
	return discount.DiscountValue, false
}

// SelectBestDiscount 在候选折扣中为单个订单行择优
// 数量未达 MinQuantity 的候选直接跳过；金额并列时保留先出现者；
// 没有任何候选产生正金额则返回 nil。
func (s *DiscountService) SelectBestDiscount(candidates []models.Discount, quantity int, lineTotal models.Money) *SelectedDiscount {
	var best *SelectedDiscount
	for i := range candidates {
		candidate := &candidates[i]
		if candidate.MinQuantity > 0 && quantity < candidate.MinQuantity {
			continue
		}
		amount := lineDiscountAmount(candidate, lineTotal)
		if !amount.Decimal.IsPositive() {
			continue
		}
		if best == nil || amount.Decimal.GreaterThan(best.Amount.Decimal) {
			best = &SelectedDiscount{Discount: *candidate, Amount: amount}
		}
	}
	return best
}

// lineDiscountAmount 计算行级候选金额
func lineDiscountAmount(discount *models.Discount, lineTotal models.Money) models.Money {
	switch discount.DiscountType {
	case constants.DiscountTypePercentage:
		amount := lineTotal.Decimal.Mul(discount.DiscountValue.Decimal).Div(decimal.NewFromInt(100))
		if discount.MaxDiscount.Decimal.IsPositive() && amount.GreaterThan(discount.MaxDiscount.Decimal) {
			return discount.MaxDiscount
		}
		return models.NewMoneyFromDecimal(amount)
	case constants.DiscountTypeFixedAmount:
		if discount.DiscountValue.Decimal.GreaterThan(lineTotal.Decimal) {
			return lineTotal
		}
		return discount.DiscountValue
	case constants.DiscountTypeBuyXGetY:
		if discount.MinQuantity <= 0 {
			return models.NewMoneyFromDecimal(decimal.Zero)
		}
		return discount.DiscountValue
	default:
		return models.NewMoneyFromDecimal(decimal.Zero)
	}
}
