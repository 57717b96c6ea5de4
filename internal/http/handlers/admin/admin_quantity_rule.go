package admin

import (
	"errors"
	"strconv"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SaveQuantityRuleRequest 创建/更新批量价规则请求
type SaveQuantityRuleRequest struct {
	SubcategoryID uint    `json:"subcategory_id" binding:"required"`
	Quantity      int     `json:"quantity" binding:"required"`
	PriceType     string  `json:"price_type" binding:"required"`
	Value         float64 `json:"value" binding:"required"`
	IsActive      *bool   `json:"is_active"`
}

func (req *SaveQuantityRuleRequest) toInput() service.SaveQuantityRuleInput {
	return service.SaveQuantityRuleInput{
		SubcategoryID: req.SubcategoryID,
		Quantity:      req.Quantity,
		PriceType:     req.PriceType,
		Value:         models.NewMoneyFromDecimal(decimal.NewFromFloat(req.Value)),
		IsActive:      req.IsActive,
	}
}

func respondQuantityRuleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuantityRuleNotFound):
		respondError(c, response.CodeNotFound, "Quantity price rule not found", nil)
	case errors.Is(err, service.ErrQuantityRuleInvalid):
		respondError(c, response.CodeBadRequest, "Quantity price rule is invalid", nil)
	case errors.Is(err, service.ErrSubcategoryNotFound):
		respondError(c, response.CodeBadRequest, "Subcategory does not exist", nil)
	default:
		respondError(c, response.CodeInternal, "Failed to save quantity price rule", err)
	}
}

// ListQuantityRules 批量价规则列表
func (h *Handler) ListQuantityRules(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	isActive, err := parseBoolFilter(c.Query("is_active"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "Invalid is_active filter", err)
		return
	}
	subcategoryID, _ := strconv.ParseUint(c.Query("subcategory_id"), 10, 64)

	rules, total, err := h.DiscountAdminService.ListQuantityRules(service.QuantityRuleListInput{
		Page:          page,
		PageSize:      pageSize,
		SubcategoryID: uint(subcategoryID),
		IsActive:      isActive,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load quantity price rules", err)
		return
	}

	response.SuccessWithPage(c, rules, response.BuildPagination(page, pageSize, total))
}

// GetQuantityRule 批量价规则详情
func (h *Handler) GetQuantityRule(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	rule, err := h.DiscountAdminService.GetQuantityRule(id)
	if err != nil {
		if errors.Is(err, service.ErrQuantityRuleNotFound) {
			respondError(c, response.CodeNotFound, "Quantity price rule not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to load quantity price rule", err)
		return
	}
	response.Success(c, rule)
}

// CreateQuantityRule 创建批量价规则
func (h *Handler) CreateQuantityRule(c *gin.Context) {
	var req SaveQuantityRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	rule, err := h.DiscountAdminService.CreateQuantityRule(req.toInput())
	if err != nil {
		respondQuantityRuleError(c, err)
		return
	}

	requestLog(c).Infow("quantity_rule_created",
		"rule_id", rule.ID,
		"subcategory_id", rule.SubcategoryID,
		"quantity", rule.Quantity,
	)
	response.Success(c, rule)
}

// UpdateQuantityRule 更新批量价规则
func (h *Handler) UpdateQuantityRule(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req SaveQuantityRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	rule, err := h.DiscountAdminService.UpdateQuantityRule(id, req.toInput())
	if err != nil {
		respondQuantityRuleError(c, err)
		return
	}
	response.Success(c, rule)
}

// DeleteQuantityRule 删除批量价规则
func (h *Handler) DeleteQuantityRule(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	if err := h.DiscountAdminService.DeleteQuantityRule(id); err != nil {
		if errors.Is(err, service.ErrQuantityRuleNotFound) {
			respondError(c, response.CodeNotFound, "Quantity price rule not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to delete quantity price rule", err)
		return
	}
	response.Success(c, gin.H{
		"deleted": true,
	})
}
