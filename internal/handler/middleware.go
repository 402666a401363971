package handler

import (
	"crypto/subtle"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ledger-core/internal/handler/response"
	"ledger-core/internal/service"
	"ledger-core/pkg/errno"
)

const (
	ctxUserID  = "uid"
	ctxAdminID = "admin_id"

	// InternalTokenHeader 内部服务 (索引器 / 撮合) 调用时携带的共享密钥
	InternalTokenHeader = "X-Internal-Token"
)

// UserAuth 解析 Authorization: Bearer <token>，把用户 ID 放进上下文
func UserAuth(identity service.IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Abort(c, errno.ErrTokenInvalid)
			return
		}
		userID, err := identity.ResolveUser(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			response.Abort(c, err)
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// AdminAuth 管理后台由网关完成鉴权，这里只读取网关写入的 X-Admin-ID
func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, err := strconv.ParseUint(c.GetHeader("X-Admin-ID"), 10, 64)
		if err != nil || adminID == 0 {
			response.Abort(c, errno.ErrForbidden)
			return
		}
		c.Set(ctxAdminID, adminID)
		c.Next()
	}
}

// InternalAuth token 为空时不校验 (本地开发)
func InternalAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(InternalTokenHeader)), []byte(token)) != 1 {
			response.Abort(c, errno.ErrForbidden)
			return
		}
		c.Next()
	}
}

func parseID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errno.ErrBind.WithMessage("id must be a positive integer")
	}
	return id, nil
}
