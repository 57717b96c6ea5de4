package admin

import (
	"strconv"
	"time"

	handlershared "github.com/craftkart/api/internal/http/handlers/shared"
	"github.com/craftkart/api/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "user_id")
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

// parsePathID 解析路径中的数字主键，非法时直接响应 400。
func parsePathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "Invalid "+name+" in path", err)
		return 0, false
	}
	return uint(id), true
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseBoolFilter 解析 is_active 之类的布尔筛选参数，空值返回 nil。
func parseBoolFilter(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
