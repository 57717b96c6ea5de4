package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/repository"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SaveDiscountRequest 创建/更新折扣请求
type SaveDiscountRequest struct {
	Name           string  `json:"name" binding:"required"`
	Description    string  `json:"description"`
	DiscountType   string  `json:"discount_type" binding:"required"`
	DiscountValue  float64 `json:"discount_value"`
	ProductID      *uint   `json:"product_id"`
	CategoryID     *uint   `json:"category_id"`
	SubcategoryID  *uint   `json:"subcategory_id"`
	MinQuantity    int     `json:"min_quantity"`
	UserType       string  `json:"user_type"`
	MinOrderAmount float64 `json:"min_order_amount"`
	MaxDiscount    float64 `json:"max_discount"`
	UsageLimit     int     `json:"usage_limit"`
	PerUserLimit   *int    `json:"per_user_limit"`
	ValidFrom      string  `json:"valid_from" binding:"required"`
	ValidUntil     string  `json:"valid_until" binding:"required"`
	IsActive       *bool   `json:"is_active"`
}

// ToggleDiscountRequest 启停折扣请求
type ToggleDiscountRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (req *SaveDiscountRequest) toInput() (service.SaveDiscountInput, error) {
	validFrom, err := parseTimeNullable(req.ValidFrom)
	if err != nil {
		return service.SaveDiscountInput{}, err
	}
	validUntil, err := parseTimeNullable(req.ValidUntil)
	if err != nil {
		return service.SaveDiscountInput{}, err
	}

	input := service.SaveDiscountInput{
		Name:           req.Name,
		Description:    req.Description,
		DiscountType:   req.DiscountType,
		DiscountValue:  models.NewMoneyFromDecimal(decimal.NewFromFloat(req.DiscountValue)),
		ProductID:      req.ProductID,
		CategoryID:     req.CategoryID,
		SubcategoryID:  req.SubcategoryID,
		MinQuantity:    req.MinQuantity,
		UserType:       req.UserType,
		MinOrderAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(req.MinOrderAmount)),
		MaxDiscount:    models.NewMoneyFromDecimal(decimal.NewFromFloat(req.MaxDiscount)),
		UsageLimit:     req.UsageLimit,
		PerUserLimit:   req.PerUserLimit,
		IsActive:       req.IsActive,
	}
	if validFrom != nil {
		input.ValidFrom = *validFrom
	}
	if validUntil != nil {
		input.ValidUntil = *validUntil
	}
	return input, nil
}

func isDiscountValidationError(err error) bool {
	for _, target := range []error{
		service.ErrDiscountNameRequired,
		service.ErrDiscountTypeInvalid,
		service.ErrDiscountValueInvalid,
		service.ErrDiscountPercentInvalid,
		service.ErrDiscountMinQtyRequired,
		service.ErrDiscountUserTypeInvalid,
		service.ErrDiscountWindowInvalid,
		service.ErrDiscountScopeInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func respondDiscountSaveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDiscountNotFound):
		respondError(c, response.CodeNotFound, "Discount not found", nil)
	case errors.Is(err, service.ErrDiscountNameExists):
		respondError(c, response.CodeConflict, "Discount name already exists", nil)
	case isDiscountValidationError(err):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, "Failed to save discount", err)
	}
}

// ListDiscounts 折扣列表
func (h *Handler) ListDiscounts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	isActive, err := parseBoolFilter(c.Query("is_active"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "Invalid is_active filter", err)
		return
	}
	productID, _ := strconv.ParseUint(c.Query("product_id"), 10, 64)

	discounts, total, err := h.DiscountAdminService.ListDiscounts(service.DiscountListInput{
		Page:         page,
		PageSize:     pageSize,
		DiscountType: strings.TrimSpace(c.Query("discount_type")),
		IsActive:     isActive,
		ProductID:    uint(productID),
		Search:       strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load discounts", err)
		return
	}

	response.SuccessWithPage(c, discounts, response.BuildPagination(page, pageSize, total))
}

// GetDiscount 折扣详情
func (h *Handler) GetDiscount(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	discount, err := h.DiscountAdminService.GetDiscount(id)
	if err != nil {
		if errors.Is(err, service.ErrDiscountNotFound) {
			respondError(c, response.CodeNotFound, "Discount not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to load discount", err)
		return
	}
	response.Success(c, discount)
}

// CreateDiscount 创建折扣
func (h *Handler) CreateDiscount(c *gin.Context) {
	var req SaveDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "Invalid validity window timestamps", err)
		return
	}

	discount, err := h.DiscountAdminService.CreateDiscount(input)
	if err != nil {
		respondDiscountSaveError(c, err)
		return
	}

	requestLog(c).Infow("discount_created", "discount_id", discount.ID, "name", discount.Name)
	response.Success(c, discount)
}

// UpdateDiscount 更新折扣
func (h *Handler) UpdateDiscount(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req SaveDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "Invalid validity window timestamps", err)
		return
	}

	discount, err := h.DiscountAdminService.UpdateDiscount(id, input)
	if err != nil {
		respondDiscountSaveError(c, err)
		return
	}
	response.Success(c, discount)
}

// ToggleDiscount 启用/停用折扣
func (h *Handler) ToggleDiscount(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req ToggleDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	discount, err := h.DiscountAdminService.SetDiscountActive(id, *req.IsActive)
	if err != nil {
		if errors.Is(err, service.ErrDiscountNotFound) {
			respondError(c, response.CodeNotFound, "Discount not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to update discount", err)
		return
	}

	requestLog(c).Infow("discount_toggled", "discount_id", discount.ID, "is_active", discount.IsActive)
	response.Success(c, discount)
}

// DeleteDiscount 删除折扣
func (h *Handler) DeleteDiscount(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	if err := h.DiscountAdminService.DeleteDiscount(id); err != nil {
		switch {
		case errors.Is(err, service.ErrDiscountNotFound):
			respondError(c, response.CodeNotFound, "Discount not found", nil)
		case errors.Is(err, service.ErrDiscountInUse):
			respondError(c, response.CodeConflict, "Discount has usage records, deactivate it instead", nil)
		default:
			respondError(c, response.CodeInternal, "Failed to delete discount", err)
		}
		return
	}
	response.Success(c, gin.H{
		"deleted": true,
	})
}

// ListDiscountUsages 折扣核销记录
func (h *Handler) ListDiscountUsages(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)

	usages, total, err := h.DiscountAdminService.ListUsages(repository.DiscountUsageListFilter{
		Page:       page,
		PageSize:   pageSize,
		DiscountID: id,
		UserID:     uint(userID),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load discount usages", err)
		return
	}

	response.SuccessWithPage(c, usages, response.BuildPagination(page, pageSize, total))
}

// ReconcileDiscount 根据核销明细重算折扣使用计数
func (h *Handler) ReconcileDiscount(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	if err := h.DiscountAdminService.ReconcileUsage(id); err != nil {
		if errors.Is(err, service.ErrDiscountNotFound) {
			respondError(c, response.CodeNotFound, "Discount not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to reconcile discount usage", err)
		return
	}

	discount, err := h.DiscountAdminService.GetDiscount(id)
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load discount", err)
		return
	}
	response.Success(c, discount)
}
