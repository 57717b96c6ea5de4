package admin

import (
	"strconv"
	"strings"
	"time"

	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/repository"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// UpdateAdminUserRequest 管理员更新用户请求
// 指针字段缺省表示不修改。
type UpdateAdminUserRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password"`
}

// GetAdminUsers 获取用户列表
func (h *Handler) GetAdminUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	users, total, err := h.UserRepo.List(repository.UserListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Role:     strings.TrimSpace(c.Query("role")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load users", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, users, pagination)
}

// GetAdminUser 获取用户详情
func (h *Handler) GetAdminUser(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	user, err := h.UserRepo.GetByID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load user", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "User not found", nil)
		return
	}

	response.Success(c, user)
}

// UpdateAdminUser 更新用户信息
// 角色仅允许在 customer 与 wholesale 之间切换，批发价资格由此控制。
func (h *Handler) UpdateAdminUser(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdateAdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	if req.IsActive != nil && !*req.IsActive && id == adminID {
		respondError(c, response.CodeBadRequest, "You cannot deactivate your own account", nil)
		return
	}

	user, err := h.UserRepo.GetByID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load user", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "User not found", nil)
		return
	}

	updated := false
	if req.Email != nil {
		normalized, err := service.NormalizeEmail(*req.Email)
		if err != nil {
			respondError(c, response.CodeBadRequest, "Invalid email address", nil)
			return
		}
		existing, err := h.UserRepo.GetByEmail(normalized)
		if err != nil {
			respondError(c, response.CodeInternal, "Failed to update user", err)
			return
		}
		if existing != nil && existing.ID != user.ID {
			respondError(c, response.CodeConflict, "Email is already registered", nil)
			return
		}
		if normalized != user.Email {
			user.Email = normalized
			updated = true
		}
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed != "" && trimmed != user.Name {
			user.Name = trimmed
			updated = true
		}
	}
	if req.Phone != nil {
		trimmed := strings.TrimSpace(*req.Phone)
		if trimmed != user.Phone {
			user.Phone = trimmed
			updated = true
		}
	}
	if req.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*req.Role))
		if role != constants.UserRoleCustomer && role != constants.UserRoleWholesale {
			respondError(c, response.CodeBadRequest, "Role must be customer or wholesale", nil)
			return
		}
		if user.Role == constants.UserRoleAdmin {
			respondError(c, response.CodeBadRequest, "Admin role cannot be changed here", nil)
			return
		}
		if user.Role != role {
			user.Role = role
			updated = true
		}
	}
	if req.IsActive != nil && user.IsActive != *req.IsActive {
		user.IsActive = *req.IsActive
		updated = true
	}
	if req.Password != nil {
		trimmed := strings.TrimSpace(*req.Password)
		if trimmed != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(trimmed), bcrypt.DefaultCost)
			if err != nil {
				respondError(c, response.CodeInternal, "Failed to update user", err)
				return
			}
			user.PasswordHash = string(hashed)
			updated = true
		}
	}

	if !updated {
		respondError(c, response.CodeBadRequest, "Nothing to update", nil)
		return
	}

	user.UpdatedAt = time.Now()
	if err := h.UserRepo.Update(user); err != nil {
		respondError(c, response.CodeInternal, "Failed to update user", err)
		return
	}

	requestLog(c).Infow("admin_user_updated",
		"user_id", user.ID,
		"role", user.Role,
		"is_active", user.IsActive,
	)
	response.Success(c, user)
}
