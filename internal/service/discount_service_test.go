package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupDiscountServiceTest(t *testing.T) (*DiscountService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:discount_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Discount{},
		&models.DiscountUsage{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	svc := NewDiscountService(
		repository.NewDiscountRepository(db),
		repository.NewDiscountUsageRepository(db),
		repository.NewUserRepository(db),
	)
	return svc, db
}

func seedCoupon(t *testing.T, db *gorm.DB, name string, mutate func(*models.Discount)) models.Discount {
	t.Helper()
	now := time.Now().UTC()
	discount := models.Discount{
		Name:          name,
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: rupees(10),
		PerUserLimit:  1,
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		IsActive:      true,
	}
	if mutate != nil {
		mutate(&discount)
	}
	if err := db.Create(&discount).Error; err != nil {
		t.Fatalf("create discount %s failed: %v", name, err)
	}
	return discount
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	user := models.User{
		Email:        email,
		PasswordHash: "hash",
		Name:         "Test User",
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s failed: %v", email, err)
	}
	return user
}

func seedUsage(t *testing.T, db *gorm.DB, discountID, userID, orderID uint, amount int64) {
	t.Helper()
	usage := models.DiscountUsage{
		DiscountID:     discountID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: rupees(amount),
	}
	if err := db.Create(&usage).Error; err != nil {
		t.Fatalf("create usage failed: %v", err)
	}
}

func TestValidateCouponUnknownCode(t *testing.T) {
	svc, _ := setupDiscountServiceTest(t)

	result, err := svc.ValidateCoupon("NOPE", 0, rupees(500), time.Now())
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.IsValid {
		t.Fatalf("unknown code should be invalid")
	}
	if result.Message != CouponMsgInvalidCode {
		t.Fatalf("message want %q got %q", CouponMsgInvalidCode, result.Message)
	}
}

func TestValidateCouponLifecycleMessages(t *testing.T) {
	svc, db := setupDiscountServiceTest(t)
	now := time.Now().UTC()

	inactive := seedCoupon(t, db, "OFF-SEASON", nil)
	if err := db.Model(&inactive).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate coupon failed: %v", err)
	}
	seedCoupon(t, db, "TOO-EARLY", func(d *models.Discount) {
		d.ValidFrom = now.Add(24 * time.Hour)
		d.ValidUntil = now.Add(48 * time.Hour)
	})
	seedCoupon(t, db, "TOO-LATE", func(d *models.Discount) {
		d.ValidFrom = now.Add(-48 * time.Hour)
		d.ValidUntil = now.Add(-24 * time.Hour)
	})

	cases := []struct {
		code    string
		message string
	}{
		{"OFF-SEASON", CouponMsgNotActive},
		{"TOO-EARLY", CouponMsgNotYetValid},
		{"TOO-LATE", CouponMsgExpired},
	}
	for _, tc := range cases {
		result, err := svc.ValidateCoupon(tc.code, 0, rupees(1000), now)
		if err != nil {
			t.Fatalf("validate %s failed: %v", tc.code, err)
		}
		if result.IsValid {
			t.Fatalf("%s should be invalid", tc.code)
		}
		if result.Message != tc.message {
			t.Fatalf("%s message want %q got %q", tc.code, tc.message, result.Message)
		}
	}
}

func TestValidateCouponUsageLimits(t *testing.T) {
	svc, db := setupDiscountServiceTest(t)
	now := time.Now().UTC()
	user := seedUser(t, db, "priya@example.com", constants.UserRoleCustomer)

	exhausted := seedCoupon(t, db, "SOLD-OUT", func(d *models.Discount) {
		d.UsageLimit = 2
		d.UsedCount = 2
	})
	result, err := svc.ValidateCoupon(exhausted.Name, user.ID, rupees(1000), now)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.IsValid || result.Message != CouponMsgUsageLimit {
		t.Fatalf("exhausted coupon want %q got valid=%v %q", CouponMsgUsageLimit, result.IsValid, result.Message)
	}

	perUser := seedCoupon(t, db, "ONE-SHOT", nil)
	seedUsage(t, db, perUser.ID, user.ID, 101, 50)
	result, err = svc.ValidateCoupon(perUser.Name, user.ID, rupees(1000), now)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.IsValid || result.Message != CouponMsgPerUserLimit {
		t.Fatalf("per-user limit want %q got valid=%v %q", CouponMsgPerUserLimit, result.IsValid, result.Message)
	}

	// 匿名校验不触发每人上限
	result, err = svc.ValidateCoupon(perUser.Name, 0, rupees(1000), now)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("anonymous validation should skip the per-user limit, got %q", result.Message)
	}
}

func TestValidateCouponMinOrderAmount(t *testing.T) {
	svc, db := setupDiscountServiceTest(t)
	now := time.Now().UTC()

	coupon := seedCoupon(t, db, "BIG-CART", func(d *models.Discount) {
		d.MinOrderAmount = rupees(499)
	})

	result, err := svc.ValidateCoupon(coupon.Name, 0, rupees(498), now)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.IsValid {
		t.Fatalf("below minimum should be invalid")
	}
	want := CouponMinOrderMessage(rupees(499))
	if result.Message != want {
		t.Fatalf("message want %q got %q", want, result.Message)
	}

	result, err = svc.ValidateCoupon(coupon.Name, 0, rupees(499), now)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("exact minimum should be valid, got %q", result.Message)
	}
}

func TestValidateCouponPercentageCap(t *testing.T) {
	svc, db := setupDiscountServiceTest(t)
	now := time.Now().UTC()

	coupon := seedCoupon(t, db, "CAPPED25", func(d *models.Discount) {
		d.DiscountValue = rupees(25)
		d.MaxDiscount = rupees(200)
	})

	result, err := svc.ValidateCoupon(coupon.Name, 0, rupees(400), now)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("coupon should be valid, got %q", result.Message)
	}
	if !result.DiscountAmount.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("uncapped amount want 100 got %s", result.DiscountAmount)
	}
	if result.MaxDiscountReached {
		t.Fatalf("cap should not be reached at 400")
	}

	result, err = svc.ValidateCoupon(coupon.Name, 0, rupees(2000), now)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !result.DiscountAmount.Decimal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("capped amount want 200 got %s", result.DiscountAmount)
	}
	if !result.MaxDiscountReached {
		t.Fatalf("cap should be reported at 2000")
	}
}

func TestValidateCouponFixedAmount(t *testing.T) {
	svc, db := setupDiscountServiceTest(t)
	now := time.Now().UTC()

	coupon := seedCoupon(t, db, "FLAT150", func(d *models.Discount) {
		d.DiscountType = constants.DiscountTypeFixedAmount
		d.DiscountValue = rupees(150)
	})

	result, err := svc.ValidateCoupon(coupon.Name, 0, rupees(1000), now)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("coupon should be valid, got %q", result.Message)
	}
	if !result.DiscountAmount.Decimal.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("amount want 150 got %s", result.DiscountAmount)
	}
}

func TestValidateCouponNumericIDFallback(t *testing.T) {
	svc, db := setupDiscountServiceTest(t)
	now := time.Now().UTC()

	coupon := seedCoupon(t, db, "DIWALI25", nil)

	result, err := svc.ValidateCoupon(fmt.Sprintf(" %d ", coupon.ID), 0, rupees(1000), now)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("numeric lookup should resolve the coupon, got %q", result.Message)
	}
	if result.Discount == nil || result.Discount.ID != coupon.ID {
		t.Fatalf("resolved discount should match the seeded one")
	}
}

func TestValidateCouponNameShadowsNumericID(t *testing.T) {
	svc, db := setupDiscountServiceTest(t)
	now := time.Now().UTC()

	byID := seedCoupon(t, db, "DIWALI50", func(d *models.Discount) {
		d.ID = 50
	})
	named := seedCoupon(t, db, "50", func(d *models.Discount) {
		d.DiscountType = constants.DiscountTypeFixedAmount
		d.DiscountValue = rupees(50)
	})

	// 名称恰为 "50" 的码优先于 ID 为 50 的兜底
	result, err := svc.ValidateCoupon("50", 0, rupees(1000), now)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("named coupon should be valid, got %q", result.Message)
	}
	if result.Discount == nil || result.Discount.ID != named.ID {
		t.Fatalf("name match should win, want id=%d got %+v", named.ID, result.Discount)
	}
	if result.Discount.ID == byID.ID {
		t.Fatalf("numeric fallback must not shadow an exact name match")
	}
}

func TestResolveProductDiscountsFiltersByRoleAndLimits(t *testing.T) {
	svc, db := setupDiscountServiceTest(t)
	now := time.Now().UTC()
	customer := seedUser(t, db, "customer@example.com", constants.UserRoleCustomer)

	product := &models.Product{ID: 11, CategoryID: 3, SubcategoryID: uintPtr(7)}

	seedCoupon(t, db, "open-to-all", func(d *models.Discount) {
		d.ProductID = uintPtr(11)
		d.UserType = constants.DiscountUserTypeAll
	})
	seedCoupon(t, db, "wholesale-only", func(d *models.Discount) {
		d.ProductID = uintPtr(11)
		d.UserType = constants.UserRoleWholesale
	})
	used := seedCoupon(t, db, "already-used", func(d *models.Discount) {
		d.ProductID = uintPtr(11)
	})
	seedUsage(t, db, used.ID, customer.ID, 201, 30)
	seedCoupon(t, db, "globally-exhausted", func(d *models.Discount) {
		d.ProductID = uintPtr(11)
		d.UsageLimit = 1
		d.UsedCount = 1
	})

	eligible, err := svc.ResolveProductDiscounts(product, customer.ID, now)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(eligible) != 1 || eligible[0].Name != "open-to-all" {
		names := make([]string, 0, len(eligible))
		for _, d := range eligible {
			names = append(names, d.Name)
		}
		t.Fatalf("eligible want [open-to-all] got %v", names)
	}

	// 匿名用户跳过角色与每人上限，仅总量上限仍然生效
	eligible, err = svc.ResolveProductDiscounts(product, 0, now)
	if err != nil {
		t.Fatalf("anonymous resolve failed: %v", err)
	}
	if len(eligible) != 3 {
		t.Fatalf("anonymous eligible want 3 got %d", len(eligible))
	}
}

func TestSelectBestDiscountPicksHighestAmount(t *testing.T) {
	svc, _ := setupDiscountServiceTest(t)

	candidates := []models.Discount{
		{ID: 1, Name: "ten-percent", DiscountType: constants.DiscountTypePercentage, DiscountValue: rupees(10)},
		{ID: 2, Name: "flat-150", DiscountType: constants.DiscountTypeFixedAmount, DiscountValue: rupees(150)},
		{ID: 3, Name: "also-flat-150", DiscountType: constants.DiscountTypeFixedAmount, DiscountValue: rupees(150)},
	}

	picked := svc.SelectBestDiscount(candidates, 1, rupees(1000))
	if picked == nil {
		t.Fatalf("a discount should be picked")
	}
	if picked.Discount.ID != 2 {
		t.Fatalf("first of the tied candidates should win, got id=%d", picked.Discount.ID)
	}
	if !picked.Amount.Decimal.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("amount want 150 got %s", picked.Amount)
	}

	// 行金额放大后百分比反超
	picked = svc.SelectBestDiscount(candidates, 1, rupees(2000))
	if picked == nil || picked.Discount.ID != 1 {
		t.Fatalf("percentage should win at 2000")
	}
	if !picked.Amount.Decimal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("amount want 200 got %s", picked.Amount)
	}
}

func TestSelectBestDiscountHonorsMinQuantity(t *testing.T) {
	svc, _ := setupDiscountServiceTest(t)

	candidates := []models.Discount{
		{ID: 1, Name: "bundle", DiscountType: constants.DiscountTypeBuyXGetY, DiscountValue: rupees(299), MinQuantity: 3},
	}

	if picked := svc.SelectBestDiscount(candidates, 2, rupees(1000)); picked != nil {
		t.Fatalf("below min quantity nothing should be picked")
	}
	picked := svc.SelectBestDiscount(candidates, 3, rupees(1000))
	if picked == nil {
		t.Fatalf("min quantity met should pick the bundle")
	}
	if !picked.Amount.Decimal.Equal(decimal.NewFromInt(299)) {
		t.Fatalf("amount want 299 got %s", picked.Amount)
	}
}

func TestSelectBestDiscountClampsFixedToLineTotal(t *testing.T) {
	svc, _ := setupDiscountServiceTest(t)

	candidates := []models.Discount{
		{ID: 1, Name: "flat-500", DiscountType: constants.DiscountTypeFixedAmount, DiscountValue: rupees(500)},
	}

	picked := svc.SelectBestDiscount(candidates, 1, rupees(199))
	if picked == nil {
		t.Fatalf("a discount should be picked")
	}
	if !picked.Amount.Decimal.Equal(decimal.NewFromInt(199)) {
		t.Fatalf("amount should clamp to the line total, want 199 got %s", picked.Amount)
	}
}
