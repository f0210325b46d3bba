package helpers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

type Manager struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// NewCookie builds a cookie manager. sameSite is one of lax, strict, none;
// none forces the Secure flag as browsers require it.
func NewCookie(domain string, secure bool, sameSite string) *Manager {
	m := &Manager{Domain: domain, Secure: secure, SameSite: http.SameSiteLaxMode}
	switch strings.ToLower(sameSite) {
	case "strict":
		m.SameSite = http.SameSiteStrictMode
	case "none":
		m.SameSite = http.SameSiteNoneMode
		m.Secure = true
	}
	return m
}

func (m *Manager) SetPair(c *gin.Context, access string, aexp time.Time, refresh string, rexp time.Time) {
	c.SetSameSite(m.SameSite)
	c.SetCookie(AccessCookie, access, maxAgeFrom(aexp), "/", m.Domain, m.Secure, true)
	c.SetCookie(RefreshCookie, refresh, maxAgeFrom(rexp), "/", m.Domain, m.Secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(m.SameSite)
	c.SetCookie(AccessCookie, "", -1, "/", m.Domain, m.Secure, true)
	c.SetCookie(RefreshCookie, "", -1, "/", m.Domain, m.Secure, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
