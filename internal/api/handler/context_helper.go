package handler

import (
	"github.com/gin-gonic/gin"

	"shiftdrop/backend/pkg/response"
)

// MustGetManagerID 从 Gin 上下文中安全提取 manager_id。
// 如果 JWT 中间件未正确注入 manager_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetManagerID(c *gin.Context) (string, bool) {
	v, exists := c.Get("manager_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
