package middleware

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/pkg/response"
)

// AllowPrivateIP reports whether the client's IP is loopback or private
// (10.0.0.0/8, 172.16/12, 192.168/16). Used as a limiter bypass and by PrivateOnly.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(ipFromCtx(c))
		if parsed == nil {
			return false
		}
		return parsed.IsLoopback() || parsed.IsPrivate()
	}
}

// PrivateOnly rejects requests from public addresses with 404 so the route
// does not advertise itself.
func PrivateOnly() gin.HandlerFunc {
	allow := AllowPrivateIP()
	return func(c *gin.Context) {
		if !allow(c) {
			response.Abort(c, http.StatusNotFound, "not found", nil)
			return
		}
		c.Next()
	}
}
