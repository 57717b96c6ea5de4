package public

import (
	"errors"
	"time"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
)

// CartCalculateRequest 购物车折扣计算请求
type CartCalculateRequest struct {
	Items      []service.CartItemInput `json:"items" binding:"required"`
	CouponCode string                  `json:"coupon_code"`
}

// CouponValidateRequest 优惠码试算请求
type CouponValidateRequest struct {
	Code        string       `json:"code" binding:"required"`
	OrderAmount models.Money `json:"order_amount"`
}

// CalculateCart 计算购物车折扣（匿名可用）
func (h *Handler) CalculateCart(c *gin.Context) {
	var req CartCalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.CartService.CalculateForItems(req.Items, optionalUserID(c), req.CouponCode, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderEmpty):
			respondError(c, response.CodeBadRequest, "Cart has no items", nil)
		case errors.Is(err, service.ErrOrderItemInvalid):
			respondError(c, response.CodeBadRequest, "Cart item is invalid", nil)
		case errors.Is(err, service.ErrProductNotFound),
			errors.Is(err, service.ErrProductNotActive):
			respondError(c, response.CodeBadRequest, "Product is not available", nil)
		case errors.Is(err, service.ErrVariantNotFound),
			errors.Is(err, service.ErrVariantMismatch):
			respondError(c, response.CodeBadRequest, "Product variant is not available", nil)
		default:
			respondError(c, response.CodeInternal, "Failed to calculate cart discounts", err)
		}
		return
	}
	response.Success(c, result)
}

// ValidateCoupon 优惠码试算（只读，不核销）
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req CouponValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.DiscountService.ValidateCoupon(req.Code, optionalUserID(c), req.OrderAmount, time.Now())
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to validate coupon", err)
		return
	}
	response.Success(c, result)
}
