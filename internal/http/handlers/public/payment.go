package public

import (
	"errors"
	"strings"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePayment 为待支付订单发起（或重新发起）在线支付
// 未过期的支付单会被复用，不会重复向网关下单。
func (h *Handler) CreatePayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "Order number is required", nil)
		return
	}

	intent, err := h.PaymentService.CreatePayment(c.Request.Context(), orderNo, uid)
	if err != nil {
		respondWithMappedError(c, err, paymentCreateErrorRules,
			response.CodeInternal, "Failed to start payment")
		return
	}

	response.Success(c, intent)
}

// GetOrderPayment 查询订单的支付记录
func (h *Handler) GetOrderPayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "Order number is required", nil)
		return
	}

	payments, err := h.PaymentService.GetOrderPayments(orderNo, uid)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "Order not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to load payments", err)
		return
	}

	response.Success(c, gin.H{"payments": payments})
}
