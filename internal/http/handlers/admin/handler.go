package admin

import "github.com/craftkart/api/internal/provider"

// Handler 后台管理接口处理器入口
// 说明：该处理器仅用于管理端 API（折扣、批量价规则、订单、目录、用户与看板）。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
