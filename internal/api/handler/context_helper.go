package handler

import (
	"github.com/gin-gonic/gin"

	"clinic-booking/backend/internal/dto"
	"clinic-booking/backend/internal/model"
	"clinic-booking/backend/internal/service"
	"clinic-booking/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
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

// MustGetRole 从 Gin 上下文中安全提取并解析 role。
func MustGetRole(c *gin.Context) (model.Role, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, _ := v.(string)
	role, err := model.ParseRole(s)
	if err != nil {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return role, true
}

// MustGetActor 构建本次请求的调用方身份，传给需要鉴权的业务操作。
func MustGetActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, Role: role}, true
}

// MustGetPathID 绑定并校验 :id 路径参数，非 UUID 时以模块参数错误码返回 400。
func MustGetPathID(c *gin.Context, code int) (string, bool) {
	var uri dto.PathID
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, code, "路径参数 id 格式无效")
		return "", false
	}
	return uri.ID, true
}
