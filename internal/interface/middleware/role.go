package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/pkg/response"
)

// RequireRole lets the request through only when the authenticated role is one
// of allowed. Must run after Auth.
func RequireRole(allowed ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := entity.ParseRole(c.GetString(CtxRoleKey))
		if err != nil || !role.In(allowed...) {
			response.Abort(c, http.StatusForbidden, "forbidden", nil)
			return
		}
		c.Next()
	}
}
