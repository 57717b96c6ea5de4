package service

import (
	"strings"
	"time"

	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/repository"

	"github.com/shopspring/decimal"
)

// CartService 购物车折扣计算服务
// 优惠码模式与单品自动择优模式互斥，由结果的 Mode 标签区分，绝不混用。
type CartService struct {
	productRepo repository.ProductRepository
	discountSvc *DiscountService
}

// NewCartService 创建购物车折扣计算服务
func NewCartService(productRepo repository.ProductRepository, discountSvc *DiscountService) *CartService {
	return &CartService{productRepo: productRepo, discountSvc: discountSvc}
}

// CartLine 参与折扣计算的购物车行
// LineTotal 为零时按 UnitPrice×Quantity 计算；订单装配传入批量价后的行小计。
type CartLine struct {
	ProductID uint            `json:"product_id"`
	VariantID *uint           `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice models.Money    `json:"unit_price"`
	LineTotal models.Money    `json:"line_total"`
	Product   *models.Product `json:"-"`
}

// AppliedDiscount 已应用折扣描述
type AppliedDiscount struct {
	DiscountID         uint         `json:"discount_id"`
	Name               string       `json:"name"`
	DiscountType       string       `json:"discount_type"`
	Level              string       `json:"level"`
	Amount             models.Money `json:"amount"`
	ProductID          uint         `json:"product_id,omitempty"`
	ProductName        string       `json:"product_name,omitempty"`
	MaxDiscountReached bool         `json:"max_discount_reached,omitempty"`
	LineIndex          int          `json:"-"`
}

// CartDiscountResult 购物车折扣计算结果
// Mode=coupon 时 Applied 恰为一条订单级描述；Mode=auto_best 时全部为单品级；
// Mode=none 时 Applied 为空，优惠码被拒时 Advisory 携带原因。
type CartDiscountResult struct {
	Mode          string            `json:"mode"`
	Subtotal      models.Money      `json:"subtotal"`
	TotalDiscount models.Money      `json:"total_discount"`
	FinalTotal    models.Money      `json:"final_total"`
	Applied       []AppliedDiscount `json:"applied_discounts"`
	Advisory      string            `json:"advisory,omitempty"`
	Coupon        *models.Discount  `json:"-"`
}

// CartItemInput 试算输入行，仅携带目录引用
type CartItemInput struct {
	ProductID uint  `json:"product_id"`
	VariantID *uint `json:"variant_id,omitempty"`
	Quantity  int   `json:"quantity"`
}

// CalculateForItems 按目录现价装配行并计算折扣（公开试算入口）
// 行价取规格价或销售价，批量价不参与，库存不校验。
func (s *CartService) CalculateForItems(items []CartItemInput, userID uint, couponCode string, now time.Time) (*CartDiscountResult, error) {
	if len(items) == 0 {
		return nil, ErrOrderEmpty
	}
	productIDs := make([]uint, 0, len(items))
	for _, item := range items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			return nil, ErrOrderItemInvalid
		}
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.productRepo.ListByIDs(productIDs)
	if err != nil {
		return nil, err
	}
	productMap := make(map[uint]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		product := productMap[item.ProductID]
		if product == nil {
			return nil, ErrProductNotFound
		}
		if !product.IsActive {
			return nil, ErrProductNotActive
		}
		variant, err := resolveOrderVariant(product, item.VariantID)
		if err != nil {
			return nil, err
		}
		unitPrice := product.SellingPrice()
		if variant != nil && !variant.Price.Decimal.IsZero() {
			unitPrice = variant.Price
		}
		lines = append(lines, CartLine{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
			Product:   product,
		})
	}
	return s.CalculateCartDiscounts(lines, userID, couponCode, now)
}

// CalculateCartDiscounts 计算购物车折扣
// 重复调用同一输入必须产生相同结果，本函数不做任何写操作。
func (s *CartService) CalculateCartDiscounts(lines []CartLine, userID uint, couponCode string, now time.Time) (*CartDiscountResult, error) {
	subtotal := decimal.Zero
	for i := range lines {
		subtotal = subtotal.Add(cartLineTotal(&lines[i]))
	}

	result := &CartDiscountResult{
		Mode:     constants.CartDiscountModeNone,
		Subtotal: models.NewMoneyFromDecimal(subtotal),
		Applied:  []AppliedDiscount{},
	}

	code := strings.TrimSpace(couponCode)
	if code != "" {
		if err := s.applyCouponMode(result, code, userID, now); err != nil {
			return nil, err
		}
	} else {
		if err := s.applyAutoBestMode(result, lines, userID, now); err != nil {
			return nil, err
		}
	}

	final := subtotal.Sub(result.TotalDiscount.Decimal)
	if final.IsNegative() {
		final = decimal.Zero
	}
	result.FinalTotal = models.NewMoneyFromDecimal(final)
	return result, nil
}

// applyCouponMode 优惠码模式：整单恰一条订单级折扣，校验失败时零折扣并记录原因，
// 不回退到单品折扣。
func (s *CartService) applyCouponMode(result *CartDiscountResult, code string, userID uint, now time.Time) error {
	validation, err := s.discountSvc.ValidateCoupon(code, userID, result.Subtotal, now)
	if err != nil {
		return err
	}
	if !validation.IsValid {
		result.Advisory = validation.Message
		result.TotalDiscount = models.NewMoneyFromDecimal(decimal.Zero)
		return nil
	}

	result.Mode = constants.CartDiscountModeCoupon
	result.TotalDiscount = validation.DiscountAmount
	result.Coupon = validation.Discount
	result.Applied = append(result.Applied, AppliedDiscount{
		DiscountID:         validation.Discount.ID,
		Name:               validation.Discount.Name,
		DiscountType:       validation.Discount.DiscountType,
		Level:              constants.DiscountLevelOrder,
		Amount:             validation.DiscountAmount,
		MaxDiscountReached: validation.MaxDiscountReached,
	})
	return nil
}

// applyAutoBestMode 自动择优模式：逐行解析候选折扣并择优，互不影响
func (s *CartService) applyAutoBestMode(result *CartDiscountResult, lines []CartLine, userID uint, now time.Time) error {
	products, err := s.resolveLineProducts(lines)
	if err != nil {
		return err
	}

	total := decimal.Zero
	for i := range lines {
		line := &lines[i]
		product := products[line.ProductID]
		if product == nil {
			return ErrProductNotFound
		}
		candidates, err := s.discountSvc.ResolveProductDiscounts(product, userID, now)
		if err != nil {
			return err
		}
		picked := s.discountSvc.SelectBestDiscount(candidates, line.Quantity, models.NewMoneyFromDecimal(cartLineTotal(line)))
		if picked == nil {
			continue
		}
		total = total.Add(picked.Amount.Decimal)
		result.Applied = append(result.Applied, AppliedDiscount{
			DiscountID:   picked.Discount.ID,
			Name:         picked.Discount.Name,
			DiscountType: picked.Discount.DiscountType,
			Level:        constants.DiscountLevelProduct,
			Amount:       picked.Amount,
			ProductID:    product.ID,
			ProductName:  product.Name,
			LineIndex:    i,
		})
	}

	result.TotalDiscount = models.NewMoneyFromDecimal(total)
	if len(result.Applied) > 0 {
		result.Mode = constants.CartDiscountModeAutoBest
	}
	return nil
}

// resolveLineProducts 补齐未携带商品信息的行
func (s *CartService) resolveLineProducts(lines []CartLine) (map[uint]*models.Product, error) {
	products := make(map[uint]*models.Product, len(lines))
	queued := make(map[uint]bool, len(lines))
	missing := make([]uint, 0, len(lines))
	for i := range lines {
		if lines[i].Product != nil {
			products[lines[i].ProductID] = lines[i].Product
			continue
		}
		if !queued[lines[i].ProductID] {
			queued[lines[i].ProductID] = true
			missing = append(missing, lines[i].ProductID)
		}
	}
	if len(missing) == 0 {
		return products, nil
	}
	fetched, err := s.productRepo.ListByIDs(missing)
	if err != nil {
		return nil, err
	}
	for i := range fetched {
		products[fetched[i].ID] = &fetched[i]
	}
	return products, nil
}

func cartLineTotal(line *CartLine) decimal.Decimal {
	if !line.LineTotal.Decimal.IsZero() {
		return line.LineTotal.Decimal
	}
	return line.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity)))
}
