package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
)

// ProfileModule serves the caller's own account under /profile.
type ProfileModule struct {
	Handler *handlers.UserHandler
	auth    gin.HandlerFunc
	limit   gin.HandlerFunc
}

func NewProfileModule(h *handlers.UserHandler, auth, limit gin.HandlerFunc) *ProfileModule {
	return &ProfileModule{Handler: h, auth: auth, limit: limit}
}

func (m *ProfileModule) Register(rg *gin.RouterGroup) {
	profile := rg.Group("/profile")
	profile.Use(m.auth, m.limit)
	{
		profile.GET("", m.Handler.GetProfile)
		profile.PUT("", m.Handler.UpdateProfile)
		profile.DELETE("", m.Handler.DeleteAccount)
		profile.POST("/avatar", m.Handler.UploadAvatar)
	}
}
