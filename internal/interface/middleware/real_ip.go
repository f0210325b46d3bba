package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP sets the real client IP into Gin context (key: "real_ip").
// Forwarding headers are honoured only when the direct peer is a loopback or
// private address, i.e. a proxy we run; otherwise anyone could pick their own
// rate-limit key or pass PrivateOnly.
// Priority behind a proxy:
// 1) CF-Connecting-IP (Cloudflare)
// 2) X-Real-IP
// 3) X-Forwarded-For (left-most valid entry)
// 4) fallback to the peer address
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", clientIP(c))
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	peer := net.ParseIP(c.RemoteIP())
	if peer == nil {
		return c.ClientIP()
	}
	if !peer.IsLoopback() && !peer.IsPrivate() {
		return peer.String()
	}
	for _, h := range []string{"CF-Connecting-IP", "X-Real-IP"} {
		if ip := net.ParseIP(strings.TrimSpace(c.GetHeader(h))); ip != nil {
			return ip.String()
		}
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}
	return peer.String()
}
