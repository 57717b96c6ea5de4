package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/repository"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateOrderStatusRequest 后台更新订单状态请求
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RefundOrderRequest 后台退款请求
type RefundOrderRequest struct {
	Reason string `json:"reason"`
}

// ListOrders 后台订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	discountID, _ := strconv.ParseUint(c.Query("discount_id"), 10, 64)

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "Invalid created_from timestamp", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "Invalid created_to timestamp", err)
		return
	}

	orders, total, err := h.OrderService.ListAdminOrders(repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		UserID:        uint(userID),
		Status:        strings.TrimSpace(c.Query("status")),
		PaymentMethod: strings.TrimSpace(c.Query("payment_method")),
		OrderNo:       strings.TrimSpace(c.Query("order_no")),
		DiscountID:    uint(discountID),
		CreatedFrom:   createdFrom,
		CreatedTo:     createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load orders", err)
		return
	}

	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetOrder 后台订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "Order number is required", nil)
		return
	}

	order, err := h.OrderService.GetOrderByNo(orderNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "Order not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to load order", err)
		return
	}
	response.Success(c, order)
}

// UpdateOrderStatus 后台推进订单状态
// pending→paid 用于货到付款人工确认收款，pending→cancelled 会回滚库存与优惠。
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "Order number is required", nil)
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	order, err := h.OrderService.GetOrderByNo(orderNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "Order not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to load order", err)
		return
	}

	updated, err := h.OrderService.UpdateOrderStatus(order.ID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "Order not found", nil)
		case errors.Is(err, service.ErrOrderStatusInvalid):
			respondError(c, response.CodeBadRequest, "Order status transition is not allowed", nil)
		default:
			respondError(c, response.CodeInternal, "Failed to update order status", err)
		}
		return
	}

	requestLog(c).Infow("admin_order_status_updated",
		"order_no", updated.OrderNo,
		"status", updated.Status,
	)
	response.Success(c, updated)
}

// RefundOrder 后台退款
// 在线支付先走网关原路退回，货到付款视为线下退款，随后统一回滚订单。
func (h *Handler) RefundOrder(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "Order number is required", nil)
		return
	}

	var req RefundOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "Invalid request body", err)
			return
		}
	}

	order, err := h.PaymentService.RefundOrder(c.Request.Context(), orderNo, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "Order not found", nil)
		case errors.Is(err, service.ErrRefundNotAllowed):
			respondError(c, response.CodeBadRequest, "Order cannot be refunded", nil)
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeBadRequest, "No successful payment found for this order", nil)
		default:
			respondError(c, response.CodeInternal, "Failed to refund order", err)
		}
		return
	}

	requestLog(c).Infow("admin_order_refunded", "order_no", order.OrderNo)
	response.Success(c, order)
}
