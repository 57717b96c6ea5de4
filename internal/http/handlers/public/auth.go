package public

import (
	"errors"
	"time"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthUserView 鉴权接口返回的用户摘要
type AuthUserView struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

func buildAuthUserView(user *models.User) AuthUserView {
	return AuthUserView{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Phone: user.Phone,
		Role:  user.Role,
	}
}

// Register 用户注册
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	user, token, expiresAt, err := h.AuthService.Register(req.Email, req.Password, req.Name, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, response.CodeBadRequest, "Invalid email address", nil)
		case errors.Is(err, service.ErrPasswordTooShort):
			respondError(c, response.CodeBadRequest, "Password must be at least 8 characters", nil)
		case errors.Is(err, service.ErrEmailTaken):
			respondError(c, response.CodeBadRequest, "Email is already registered", nil)
		default:
			respondError(c, response.CodeInternal, "Registration failed", err)
		}
		return
	}

	requestLog(c).Infow("user_registered", "user_id", user.ID, "email", user.Email)
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
		"user":       buildAuthUserView(user),
	})
}

// Login 用户登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}

	user, token, expiresAt, err := h.AuthService.Login(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeUnauthorized, "Invalid email or password", nil)
		case errors.Is(err, service.ErrUserDisabled):
			respondError(c, response.CodeForbidden, "Account is disabled", nil)
		default:
			respondError(c, response.CodeInternal, "Login failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
		"user":       buildAuthUserView(user),
	})
}

// GetProfile 获取当前用户资料
func (h *Handler) GetProfile(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	user, err := h.AuthService.GetProfile(uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, response.CodeNotFound, "User not found", nil)
		default:
			respondError(c, response.CodeInternal, "Failed to load profile", err)
		}
		return
	}
	response.Success(c, buildAuthUserView(user))
}
