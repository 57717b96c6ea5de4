package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
)

// ListCategories 获取公开分类树
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.CategoryService.ListPublic(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load categories", err)
		return
	}
	response.Success(c, gin.H{"categories": categories})
}

// ListProducts 公开商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	categoryID, _ := strconv.ParseUint(c.Query("category_id"), 10, 64)
	subcategoryID, _ := strconv.ParseUint(c.Query("subcategory_id"), 10, 64)
	search := strings.TrimSpace(c.Query("search"))

	products, total, err := h.ProductService.ListPublic(c.Request.Context(), service.ProductListInput{
		Page:          page,
		PageSize:      pageSize,
		CategoryID:    uint(categoryID),
		SubcategoryID: uint(subcategoryID),
		Search:        search,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load products", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, products, pagination)
}

// GetProduct 公开商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, response.CodeBadRequest, "Product slug is required", nil)
		return
	}

	product, err := h.ProductService.GetPublicBySlug(slug)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "Product not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to load product", err)
		return
	}
	response.Success(c, product)
}

// GetShippingCost 按收货邦查询运费
func (h *Handler) GetShippingCost(c *gin.Context) {
	state := strings.TrimSpace(c.Query("state"))
	cost := service.ShippingCost(state)
	response.Success(c, gin.H{
		"state":         state,
		"shipping_cost": cost,
	})
}
