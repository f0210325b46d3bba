package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
)

// AuthLimits are the per-route limiters of the auth module. Issue guards code
// sending, Attempt guards code submission.
type AuthLimits struct {
	Login   gin.HandlerFunc
	Issue   gin.HandlerFunc
	Attempt gin.HandlerFunc
	Refresh gin.HandlerFunc
}

// AuthModule wires registration, login, session and OTP routes.
// Public: register, login, refresh, reset/send, reset
// Protected: logout, is-auth, verify/send, verify
type AuthModule struct {
	Handler *handlers.AuthHandler
	auth    gin.HandlerFunc
	limits  AuthLimits
}

func NewAuthModule(h *handlers.AuthHandler, auth gin.HandlerFunc, limits AuthLimits) *AuthModule {
	noop := func(c *gin.Context) { c.Next() }
	for _, l := range []*gin.HandlerFunc{&limits.Login, &limits.Issue, &limits.Attempt, &limits.Refresh} {
		if *l == nil {
			*l = noop
		}
	}
	return &AuthModule{Handler: h, auth: auth, limits: limits}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/register", m.Handler.Register)
	rg.POST("/auth/login", m.limits.Login, m.Handler.Login)
	rg.POST("/auth/refresh", m.limits.Refresh, m.Handler.Refresh)
	rg.POST("/auth/reset/send", m.limits.Issue, m.Handler.SendReset)
	rg.POST("/auth/reset", m.limits.Attempt, m.Handler.Reset)

	auth := rg.Group("/auth")
	auth.Use(m.auth)
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/is-auth", m.Handler.IsAuthenticated)
		auth.POST("/verify/send", m.limits.Issue, m.Handler.SendVerification)
		auth.POST("/verify", m.limits.Attempt, m.Handler.Verify)
	}
}
