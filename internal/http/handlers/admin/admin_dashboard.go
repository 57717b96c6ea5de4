package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
)

// GetDashboardOverview 获取后台仪表盘总览
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	input, err := parseDashboardQuery(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "Invalid dashboard query", err)
		return
	}

	data, err := h.DashboardService.GetOverview(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrDashboardRangeInvalid) {
			respondError(c, response.CodeBadRequest, "Invalid dashboard range", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to load dashboard overview", err)
		return
	}

	response.Success(c, data)
}

// GetDashboardTrends 获取后台仪表盘趋势
func (h *Handler) GetDashboardTrends(c *gin.Context) {
	input, err := parseDashboardQuery(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "Invalid dashboard query", err)
		return
	}

	data, err := h.DashboardService.GetTrends(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrDashboardRangeInvalid) {
			respondError(c, response.CodeBadRequest, "Invalid dashboard range", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to load dashboard trends", err)
		return
	}

	response.Success(c, data)
}

// GetDashboardRankings 获取后台仪表盘排行榜
func (h *Handler) GetDashboardRankings(c *gin.Context) {
	input, err := parseDashboardQuery(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "Invalid dashboard query", err)
		return
	}

	data, err := h.DashboardService.GetRankings(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrDashboardRangeInvalid) {
			respondError(c, response.CodeBadRequest, "Invalid dashboard range", nil)
			return
		}
		respondError(c, response.CodeInternal, "Failed to load dashboard rankings", err)
		return
	}

	response.Success(c, data)
}

func parseDashboardQuery(c *gin.Context) (service.DashboardQueryInput, error) {
	rangeRaw := strings.TrimSpace(c.DefaultQuery("range", "7d"))
	timezone := strings.TrimSpace(c.Query("tz"))
	forceRefreshRaw := strings.TrimSpace(c.Query("force_refresh"))

	from, err := parseTimeNullable(strings.TrimSpace(c.Query("from")))
	if err != nil {
		return service.DashboardQueryInput{}, err
	}
	to, err := parseTimeNullable(strings.TrimSpace(c.Query("to")))
	if err != nil {
		return service.DashboardQueryInput{}, err
	}

	forceRefresh := false
	if forceRefreshRaw != "" {
		parsed, err := strconv.ParseBool(forceRefreshRaw)
		if err != nil {
			return service.DashboardQueryInput{}, err
		}
		forceRefresh = parsed
	}

	return service.DashboardQueryInput{
		Range:        rangeRaw,
		From:         from,
		To:           to,
		Timezone:     timezone,
		ForceRefresh: forceRefresh,
	}, nil
}
