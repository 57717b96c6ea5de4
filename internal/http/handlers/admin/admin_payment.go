package admin

import (
	"strconv"
	"strings"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListPayments 后台支付流水列表
func (h *Handler) ListPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	orderID, _ := strconv.ParseUint(c.Query("order_id"), 10, 64)

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

	payments, total, err := h.PaymentService.ListAdminPayments(repository.PaymentListFilter{
		Page:        page,
		PageSize:    pageSize,
		OrderID:     uint(orderID),
		Provider:    strings.TrimSpace(c.Query("provider")),
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load payments", err)
		return
	}

	response.SuccessWithPage(c, payments, response.BuildPagination(page, pageSize, total))
}
