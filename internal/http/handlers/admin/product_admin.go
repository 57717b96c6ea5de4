package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductVariantRequest 商品规格请求
type ProductVariantRequest struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	IsActive *bool   `json:"is_active"`
}

// SaveProductRequest 创建/更新商品请求
type SaveProductRequest struct {
	CategoryID     uint                    `json:"category_id" binding:"required"`
	SubcategoryID  *uint                   `json:"subcategory_id"`
	Slug           string                  `json:"slug" binding:"required"`
	Name           string                  `json:"name" binding:"required"`
	Description    string                  `json:"description"`
	NormalPrice    float64                 `json:"normal_price"`
	OfferPrice     float64                 `json:"offer_price"`
	WholesalePrice float64                 `json:"wholesale_price"`
	Images         []string                `json:"images"`
	IsActive       *bool                   `json:"is_active"`
	SortOrder      int                     `json:"sort_order"`
	Variants       []ProductVariantRequest `json:"variants"`
}

func (req *SaveProductRequest) toInput() service.SaveProductInput {
	variants := make([]service.ProductVariantInput, 0, len(req.Variants))
	for _, variant := range req.Variants {
		variants = append(variants, service.ProductVariantInput{
			ID:       variant.ID,
			Name:     variant.Name,
			Price:    models.NewMoneyFromDecimal(decimal.NewFromFloat(variant.Price)),
			Stock:    variant.Stock,
			IsActive: variant.IsActive,
		})
	}
	return service.SaveProductInput{
		CategoryID:     req.CategoryID,
		SubcategoryID:  req.SubcategoryID,
		Slug:           req.Slug,
		Name:           req.Name,
		Description:    req.Description,
		NormalPrice:    models.NewMoneyFromDecimal(decimal.NewFromFloat(req.NormalPrice)),
		OfferPrice:     models.NewMoneyFromDecimal(decimal.NewFromFloat(req.OfferPrice)),
		WholesalePrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(req.WholesalePrice)),
		Images:         req.Images,
		IsActive:       req.IsActive,
		SortOrder:      req.SortOrder,
		Variants:       variants,
	}
}

func respondProductSaveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		respondError(c, response.CodeNotFound, "Product not found", nil)
	case errors.Is(err, service.ErrProductInvalid):
		respondError(c, response.CodeBadRequest, "Product slug, name and variant names are required", nil)
	case errors.Is(err, service.ErrProductPriceInvalid):
		respondError(c, response.CodeBadRequest, "Product prices are invalid", nil)
	case errors.Is(err, service.ErrSlugExists):
		respondError(c, response.CodeConflict, "Slug is already in use", nil)
	case errors.Is(err, service.ErrCategoryNotFound):
		respondError(c, response.CodeBadRequest, "Category does not exist", nil)
	case errors.Is(err, service.ErrSubcategoryNotFound):
		respondError(c, response.CodeBadRequest, "Subcategory does not exist or belongs to another category", nil)
	default:
		respondError(c, response.CodeInternal, "Failed to save product", err)
	}
}

// ListAdminProducts 后台商品列表（含下架）
func (h *Handler) ListAdminProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	categoryID, _ := strconv.ParseUint(c.Query("category_id"), 10, 64)
	subcategoryID, _ := strconv.ParseUint(c.Query("subcategory_id"), 10, 64)

	products, total, err := h.ProductService.ListAdmin(service.ProductListInput{
		Page:          page,
		PageSize:      pageSize,
		CategoryID:    uint(categoryID),
		SubcategoryID: uint(subcategoryID),
		Search:        strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load products", err)
		return
	}

	response.SuccessWithPage(c, products, response.BuildPagination(page, pageSize, total))
}

// GetAdminProduct 后台商品详情
func (h *Handler) GetAdminProduct(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	product, err := h.ProductService.GetByID(id)
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

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req SaveProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	product, err := h.ProductService.Create(req.toInput())
	if err != nil {
		respondProductSaveError(c, err)
		return
	}

	requestLog(c).Infow("product_created", "product_id", product.ID, "slug", product.Slug)
	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req SaveProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	product, err := h.ProductService.Update(id, req.toInput())
	if err != nil {
		respondProductSaveError(c, err)
		return
	}
	response.Success(c, product)
}

// DeleteProduct 删除商品
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	if err := h.ProductService.Delete(id); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "Product not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to delete product", err)
		return
	}
	response.Success(c, gin.H{
		"deleted": true,
	})
}
