package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
)

// RealIP sets the real client IP into Gin context (key: "real_ip") and the
// request context.
// Priority:
// 1) CF-Connecting-IP (Cloudflare)
// 2) X-Real-IP
// 3) X-Forwarded-For (left-most)
// 4) fallback to c.ClientIP()
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		for _, h := range []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"} {
			v := c.GetHeader(h)
			if v == "" {
				continue
			}
			first := strings.TrimSpace(strings.Split(v, ",")[0])
			if parsed := net.ParseIP(first); parsed != nil {
				ip = parsed.String()
				break
			}
		}
		c.Set("real_ip", ip)
		c.Request = c.Request.WithContext(helpers.WithClientIP(c.Request.Context(), ip))
		c.Next()
	}
}
