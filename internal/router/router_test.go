package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-manager/config"
	"github.com/oksasatya/go-task-manager/internal/container"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/validation"
)

func newTestEngine(t *testing.T, mutate func(*config.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()
	container.Reset()
	t.Cleanup(container.Reset)

	cfg := config.Load()
	cfg.Env = "test"
	cfg.DBDriver = "memory"
	cfg.CacheDriver = "memory"
	cfg.MailSendEnabled = false
	if mutate != nil {
		mutate(cfg)
	}
	container.SetConfig(cfg)
	container.SetLogger(helpers.NewNopLogger())

	e := gin.New()
	e.Use(middleware.RequestIDMiddleware())
	reg := NewRegistry(e)
	InitModules(reg)
	reg.RegisterAll()
	return e
}

func do(e *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestLoginLimiter_EleventhAttemptRejected(t *testing.T) {
	e := newTestEngine(t, nil)
	body := gin.H{"email": "nobody@example.com", "password": "whatever1"}

	for i := 0; i < 10; i++ {
		w := do(e, http.MethodPost, "/api/auth/login", body, "")
		require.NotEqual(t, http.StatusTooManyRequests, w.Code, "attempt %d", i+1)
	}
	w := do(e, http.MethodPost, "/api/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestCodeSubmissionLimiter(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) { c.OTPAttemptLimit = 3 })
	guess := gin.H{"email": "victim@example.com", "code": "123456", "new_password": "password9"}

	for i := 0; i < 3; i++ {
		w := do(e, http.MethodPost, "/api/auth/reset", guess, "")
		require.NotEqual(t, http.StatusTooManyRequests, w.Code, "attempt %d", i+1)
	}
	w := do(e, http.MethodPost, "/api/auth/reset", guess, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = do(e, http.MethodPost, "/api/auth/register", gin.H{"name": "Ann", "email": "ann@example.com", "password": "password1"}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(e, http.MethodPost, "/api/auth/login", gin.H{"email": "ann@example.com", "password": "password1"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	for i := 0; i < 3; i++ {
		w = do(e, http.MethodPost, "/api/auth/verify", gin.H{"code": "000000"}, login.Data.AccessToken)
		require.NotEqual(t, http.StatusTooManyRequests, w.Code, "attempt %d", i+1)
	}
	w = do(e, http.MethodPost, "/api/auth/verify", gin.H{"code": "000000"}, login.Data.AccessToken)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestTaskRoutes_EndToEnd(t *testing.T) {
	e := newTestEngine(t, nil)

	w := do(e, http.MethodPost, "/api/auth/register", gin.H{"name": "Ann", "email": "ann@example.com", "password": "password1"}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(e, http.MethodPost, "/api/auth/login", gin.H{"email": "ann@example.com", "password": "password1"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	token := login.Data.AccessToken
	require.NotEmpty(t, token)

	w = do(e, http.MethodPost, "/api/tasks", gin.H{"title": "write report"}, token)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(e, http.MethodGet, "/api/tasks/search?q=REPORT", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "write report")

	w = do(e, http.MethodGet, "/api/auth/is-auth", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(e, http.MethodGet, "/api/admin/tasks", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(e, http.MethodGet, "/api/tasks", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthz(t *testing.T) {
	e := newTestEngine(t, nil)
	w := do(e, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres":"disabled"`)
}

func TestDebugVars(t *testing.T) {
	e := newTestEngine(t, nil)

	w := do(e, http.MethodGet, "/api/debug/vars", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code, "public address")

	req := httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memstats")
}

func TestDebugVars_Disabled(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) { c.DebugMetricsEnabled = false })

	req := httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
