package modules

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/pkg/response"
)

// Check pings one backing store.
type Check func(ctx context.Context) error

// HealthModule serves GET /healthz. Stores that are not configured are
// reported as "disabled" and never fail the probe.
type HealthModule struct {
	checks   map[string]Check
	disabled []string
	timeout  time.Duration
}

func NewHealthModule() *HealthModule {
	return &HealthModule{checks: map[string]Check{}, timeout: 2 * time.Second}
}

// With registers a check; a nil check marks the component disabled.
func (m *HealthModule) With(name string, check Check) *HealthModule {
	if check == nil {
		m.disabled = append(m.disabled, name)
		return m
	}
	m.checks[name] = check
	return m
}

func (m *HealthModule) RegisterRoot(e *gin.Engine) {
	e.GET("/healthz", m.handle)
}

func (m *HealthModule) handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), m.timeout)
	defer cancel()

	status := make(map[string]string, len(m.checks)+len(m.disabled))
	for _, name := range m.disabled {
		status[name] = "disabled"
	}
	healthy := true
	for name, check := range m.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		response.Error(c, http.StatusServiceUnavailable, "unhealthy", status)
		return
	}
	response.Success(c, http.StatusOK, status, "ok", nil)
}
