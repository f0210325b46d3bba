package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/pkg/response"
)

// Recovery turns a panic into the generic 500 envelope.
func Recovery(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"panic":      r,
					"request_id": c.GetString("request_id"),
					"stack":      string(debug.Stack()),
				}).Error("panic recovered")
				response.Abort(c, http.StatusInternalServerError, "internal server error", nil)
			}
		}()
		c.Next()
	}
}
