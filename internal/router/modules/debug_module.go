package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
)

type DebugModule struct {
	Enabled bool
}

func NewDebugModule(enabled bool) *DebugModule { return &DebugModule{Enabled: enabled} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	if !m.Enabled {
		return
	}
	// expvar is only reachable from loopback/private networks
	rg.GET("/debug/vars", middleware.PrivateOnly(), gin.WrapH(expvar.Handler()))
}
