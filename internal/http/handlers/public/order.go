package public

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderItemRequest 订单项请求
type OrderItemRequest struct {
	ProductID uint  `json:"product_id" binding:"required"`
	VariantID *uint `json:"variant_id"`
	Quantity  int   `json:"quantity" binding:"required"`
}

// PreviewOrderRequest 订单预览请求
type PreviewOrderRequest struct {
	Items         []OrderItemRequest `json:"items" binding:"required"`
	CouponCode    string             `json:"coupon_code"`
	ShippingState string             `json:"shipping_state"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" binding:"required"`
	CouponCode      string             `json:"coupon_code"`
	PaymentMethod   string             `json:"payment_method"`
	ShippingName    string             `json:"shipping_name"`
	ShippingPhone   string             `json:"shipping_phone"`
	ShippingAddress string             `json:"shipping_address"`
	ShippingCity    string             `json:"shipping_city"`
	ShippingState   string             `json:"shipping_state"`
	ShippingPincode string             `json:"shipping_pincode"`
}

// CancelOrderRequest 取消订单请求
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

func buildOrderItems(items []OrderItemRequest) []service.CreateOrderItemInput {
	out := make([]service.CreateOrderItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, service.CreateOrderItemInput{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return out
}

// PreviewOrder 订单金额预览
func (h *Handler) PreviewOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req PreviewOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	quote, err := h.OrderService.GetQuote(service.QuoteInput{
		Items:         buildOrderItems(req.Items),
		CouponCode:    req.CouponCode,
		ShippingState: req.ShippingState,
		UserID:        uid,
		Now:           time.Now(),
	})
	if err != nil {
		respondOrderPreviewError(c, err)
		return
	}

	response.Success(c, quote)
}

// CreateOrder 创建订单
// 在线支付方式下单成功后顺带创建支付单，失败不回滚订单，
// 客户端可在订单页重新发起支付。
func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	order, err := h.OrderService.CreateOrder(service.CreateOrderInput{
		UserID:          uid,
		Items:           buildOrderItems(req.Items),
		CouponCode:      req.CouponCode,
		PaymentMethod:   req.PaymentMethod,
		ShippingName:    req.ShippingName,
		ShippingPhone:   req.ShippingPhone,
		ShippingAddress: req.ShippingAddress,
		ShippingCity:    req.ShippingCity,
		ShippingState:   req.ShippingState,
		ShippingPincode: req.ShippingPincode,
	})
	if err != nil {
		respondOrderCreateError(c, err)
		return
	}

	requestLog(c).Infow("order_created",
		"order_no", order.OrderNo,
		"user_id", uid,
		"total_amount", order.TotalAmount,
		"payment_method", order.PaymentMethod,
	)

	result := gin.H{"order": order}
	if order.PaymentMethod != constants.PaymentMethodCOD {
		intent, payErr := h.PaymentService.CreatePayment(c.Request.Context(), order.OrderNo, uid)
		if payErr != nil {
			requestLog(c).Warnw("order_payment_bootstrap_failed", "order_no", order.OrderNo, "error", payErr)
			result["payment_error"] = "Payment could not be started, retry from the order page"
		} else {
			result["payment"] = intent
		}
	}
	response.Success(c, result)
}

// ListOrders 获取当前用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	status := strings.TrimSpace(c.Query("status"))

	orders, total, err := h.OrderService.ListUserOrders(uid, status, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load orders", err)
		return
	}

	page, pageSize = normalizePagination(page, pageSize)
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetOrder 获取订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "Order number is required", nil)
		return
	}

	order, err := h.OrderService.GetUserOrder(orderNo, uid)
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

// CancelOrder 用户取消订单
func (h *Handler) CancelOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "Order number is required", nil)
		return
	}

	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "Invalid request body", err)
			return
		}
	}

	order, err := h.OrderService.CancelOrder(orderNo, uid, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "Order not found", nil)
		case errors.Is(err, service.ErrOrderCancelNotAllowed):
			respondError(c, response.CodeBadRequest, "Order can no longer be cancelled", nil)
		default:
			respondError(c, response.CodeInternal, "Failed to cancel order", err)
		}
		return
	}

	response.Success(c, order)
}
