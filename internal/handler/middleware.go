package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionAdminKey = "admin"
	adminContextKey = "__is_admin"
)

// SecurityHeaders 为所有响应附加基础安全头。
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RateLimit 按客户端 IP 限制请求频率，超限返回 429。
func (a *API) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.limiter == nil {
			c.Next()
			return
		}
		if !a.limiter.Allow(c.Request.Context(), c.ClientIP()) {
			c.Header("Retry-After", strconv.Itoa(int(a.limiter.Window().Seconds())))
			respondError(c, http.StatusTooManyRequests, "Too Many Requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

// IsAdmin 判断请求是否携带有效的管理员令牌或会话，结果在请求内缓存。
func (a *API) IsAdmin(c *gin.Context) bool {
	if cached, ok := c.Get(adminContextKey); ok {
		if admin, ok := cached.(bool); ok {
			return admin
		}
	}

	admin := a.checkAdmin(c)
	c.Set(adminContextKey, admin)
	return admin
}

func (a *API) checkAdmin(c *gin.Context) bool {
	if a.auth == nil {
		return false
	}

	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return a.auth.VerifyToken(strings.TrimSpace(token)) == nil
		}
		return false
	}

	if _, exists := c.Get(sessions.DefaultKey); !exists {
		return false
	}
	session := sessions.Default(c)
	admin, _ := session.Get(sessionAdminKey).(bool)
	return admin
}

// RequireAdmin 拒绝非管理员请求，所有失败原因统一返回 401。
func (a *API) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.IsAdmin(c) {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}
