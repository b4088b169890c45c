package ctxutil

import (
	"context"

	"fitquest/api/response"
	"fitquest/domain/identity"
	"fitquest/pkg/logger"

	"github.com/gin-gonic/gin"
)

// IdentityKey 认证中间件写入 gin context 的键
const IdentityKey = "identity"

// WithRequestID 把请求 ID 带入标准 context，供日志和 GORM 使用
func WithRequestID(c *gin.Context) context.Context {
	return logger.ContextWithRequestID(c.Request.Context(), response.GetRequestID(c))
}

// Identity 认证中间件之后调用；未认证时返回 nil
func Identity(c *gin.Context) *identity.VerifiedIdentity {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*identity.VerifiedIdentity)
	return id
}

// UserID 当前认证用户的 ID
func UserID(c *gin.Context) string {
	if id := Identity(c); id != nil {
		return id.Subject
	}
	return ""
}
