package admin

import (
	"errors"
	"strconv"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
)

// SaveCategoryRequest 创建/更新分类请求
type SaveCategoryRequest struct {
	Slug      string `json:"slug" binding:"required"`
	Name      string `json:"name" binding:"required"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

// CreateSubcategoryRequest 创建子类请求
type CreateSubcategoryRequest struct {
	Slug      string `json:"slug" binding:"required"`
	Name      string `json:"name" binding:"required"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

func respondCategorySaveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCategoryNotFound):
		respondError(c, response.CodeNotFound, "Category not found", nil)
	case errors.Is(err, service.ErrSubcategoryNotFound):
		respondError(c, response.CodeNotFound, "Subcategory not found", nil)
	case errors.Is(err, service.ErrCategoryInvalid):
		respondError(c, response.CodeBadRequest, "Category slug and name are required", nil)
	case errors.Is(err, service.ErrSlugExists):
		respondError(c, response.CodeConflict, "Slug is already in use", nil)
	default:
		respondError(c, response.CodeInternal, "Failed to save category", err)
	}
}

// ListAdminCategories 后台分类列表（含停用）
func (h *Handler) ListAdminCategories(c *gin.Context) {
	categories, err := h.CategoryService.ListAdmin()
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load categories", err)
		return
	}
	response.Success(c, gin.H{"categories": categories})
}

// CreateCategory 创建分类
func (h *Handler) CreateCategory(c *gin.Context) {
	var req SaveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	category, err := h.CategoryService.Create(c.Request.Context(), service.CreateCategoryInput{
		Slug:      req.Slug,
		Name:      req.Name,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondCategorySaveError(c, err)
		return
	}
	response.Success(c, category)
}

// UpdateCategory 更新分类
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req SaveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	category, err := h.CategoryService.Update(c.Request.Context(), id, service.CreateCategoryInput{
		Slug:      req.Slug,
		Name:      req.Name,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondCategorySaveError(c, err)
		return
	}
	response.Success(c, category)
}

// DeleteCategory 删除分类
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	if err := h.CategoryService.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, response.CodeNotFound, "Category not found", nil)
		case errors.Is(err, service.ErrCategoryInUse):
			respondError(c, response.CodeConflict, "Category still has products", nil)
		default:
			respondError(c, response.CodeInternal, "Failed to delete category", err)
		}
		return
	}
	response.Success(c, gin.H{
		"deleted": true,
	})
}

// ListSubcategories 后台子类列表
func (h *Handler) ListSubcategories(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	onlyActive, _ := strconv.ParseBool(c.DefaultQuery("only_active", "false"))

	subcategories, err := h.CategoryService.ListSubcategories(id, onlyActive)
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load subcategories", err)
		return
	}
	response.Success(c, gin.H{"subcategories": subcategories})
}

// CreateSubcategory 在分类下创建子类
func (h *Handler) CreateSubcategory(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req CreateSubcategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	subcategory, err := h.CategoryService.CreateSubcategory(c.Request.Context(), service.CreateSubcategoryInput{
		CategoryID: id,
		Slug:       req.Slug,
		Name:       req.Name,
		SortOrder:  req.SortOrder,
		IsActive:   req.IsActive,
	})
	if err != nil {
		respondCategorySaveError(c, err)
		return
	}
	response.Success(c, subcategory)
}

// UpdateSubcategory 更新子类
func (h *Handler) UpdateSubcategory(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req CreateSubcategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	subcategory, err := h.CategoryService.UpdateSubcategory(c.Request.Context(), id, service.CreateSubcategoryInput{
		Slug:      req.Slug,
		Name:      req.Name,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondCategorySaveError(c, err)
		return
	}
	response.Success(c, subcategory)
}

// DeleteSubcategory 删除子类
func (h *Handler) DeleteSubcategory(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	if err := h.CategoryService.DeleteSubcategory(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrSubcategoryNotFound):
			respondError(c, response.CodeNotFound, "Subcategory not found", nil)
		case errors.Is(err, service.ErrCategoryInUse):
			respondError(c, response.CodeConflict, "Subcategory still has products", nil)
		default:
			respondError(c, response.CodeInternal, "Failed to delete subcategory", err)
		}
		return
	}
	response.Success(c, gin.H{
		"deleted": true,
	})
}
