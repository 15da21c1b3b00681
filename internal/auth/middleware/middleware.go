// Package middleware 显式的会话鉴权中间件
// 以路径前缀许可表划分公开与需登录路由，取代声明式的安全过滤链
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/bookstore/internal/auth/application"
)

// SessionCookie 会话 Cookie 名称
const SessionCookie = "BOOKSTORE_SESSION"

const (
	userIDKey   = "auth.user_id"
	usernameKey = "auth.username"
)

// 公开路由前缀，其余路由一律要求有效会话
var publicPrefixes = []string{
	"/login",
	"/logout",
	"/newUser",
	"/forgetPassword",
	"/bookshelf",
	"/bookDetail",
	"/searchByCategory",
	"/searchBook",
	"/hours",
	"/faq",
	"/css/",
	"/js/",
	"/image/",
	"/fonts/",
}

// IsPublic 判断路径是否无需登录
func IsPublic(path string) bool {
	if path == "/" {
		return true
	}
	for _, prefix := range publicPrefixes {
		if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// SessionAuth 解析会话 Cookie 并装载当前用户
// 受保护路由缺少有效会话时重定向到登录页
func SessionAuth(tokens *application.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
			if claims, err := tokens.Verify(cookie); err == nil {
				c.Set(userIDKey, claims.UserID)
				c.Set(usernameKey, claims.Username)
			}
		}

		if !IsPublic(c.Request.URL.Path) {
			if _, ok := CurrentUserID(c); !ok {
				c.Redirect(http.StatusFound, "/login")
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// CurrentUserID 返回当前会话用户 ID
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// CurrentUsername 返回当前会话用户名
func CurrentUsername(c *gin.Context) (string, bool) {
	v, ok := c.Get(usernameKey)
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}
