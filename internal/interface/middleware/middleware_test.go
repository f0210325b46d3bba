package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

func do(r http.Handler, method, path string, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRateLimit_Redis_EleventhRequestRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.Use(RealIP())
	r.POST("/login", RateLimit(NewRedisLimiter(rdb, 10, time.Minute), KeyByIP("login"), nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	fromIP := func(ip string) func(*http.Request) {
		return func(req *http.Request) {
			req.RemoteAddr = "10.0.0.2:5000"
			req.Header.Set("X-Forwarded-For", ip)
		}
	}
	for i := 0; i < 10; i++ {
		w := do(r, http.MethodPost, "/login", fromIP("203.0.113.7"))
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}
	w := do(r, http.MethodPost, "/login", fromIP("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w = do(r, http.MethodPost, "/login", fromIP("198.51.100.1"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRedisLimiter_WindowSlides(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRedisLimiter(rdb, 2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.ResetAfter)

	now = now.Add(61 * time.Second)
	d, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(3, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, _ := l.Allow(ctx, "ip")
		assert.True(t, d.Allowed)
		now = now.Add(10 * time.Second)
	}
	d, _ := l.Allow(ctx, "ip")
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.ResetAfter)

	now = now.Add(31 * time.Second)
	d, _ = l.Allow(ctx, "ip")
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_ForgetsIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(3, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for _, ip := range []string{"a", "b", "c"} {
		d, _ := l.Allow(ctx, ip)
		require.True(t, d.Allowed)
	}
	assert.Equal(t, 3, l.Len())

	now = now.Add(2 * time.Minute)
	d, _ := l.Allow(ctx, "d")
	require.True(t, d.Allowed)
	assert.Equal(t, 1, l.Len())
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("redis down")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimit(failingLimiter{}, KeyByIP("x"), nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", nil).Code)
}

type stubAuth struct {
	claims *helpers.Claims
}

func (s stubAuth) Authenticate(_ context.Context, token string) (*helpers.Claims, error) {
	if token != "good" {
		return nil, errors.New("nope")
	}
	return s.claims, nil
}

func protected(role string) *gin.Engine {
	r := gin.New()
	auth := Auth(stubAuth{claims: &helpers.Claims{UserID: "u1", Role: role, SessionID: "s1"}})
	r.GET("/me", auth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": c.GetString(CtxUserIDKey)})
	})
	r.GET("/admin", auth, RequireRole(entity.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": []string{"secret"}})
	})
	return r
}

func TestAuth(t *testing.T) {
	r := protected("user")

	w := do(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/me", func(req *http.Request) { req.Header.Set("Authorization", "Bearer bad") })
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/me", func(req *http.Request) { req.Header.Set("Authorization", "Bearer good") })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", decode(t, w)["data"])

	w = do(r, http.MethodGet, "/me", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: "good"})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	// stale cookie, valid header
	w = do(r, http.MethodGet, "/me", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: "expired"})
		req.Header.Set("Authorization", "Bearer good")
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/me", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: "expired"})
		req.Header.Set("Authorization", "Bearer bad")
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_ForbiddenHasNoData(t *testing.T) {
	bearer := func(req *http.Request) { req.Header.Set("Authorization", "Bearer good") }

	w := do(protected("user"), http.MethodGet, "/admin", bearer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	_, hasData := body["data"]
	assert.False(t, hasData)

	w = do(protected("admin"), http.MethodGet, "/admin", bearer)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware(), Recovery(helpers.NewNopLogger()))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := do(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_KeepsIncoming(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	id := "0b3a0b9e-8b1c-4a55-9d3e-0f0d5b1c2a11"
	w := do(r, http.MethodGet, "/", func(req *http.Request) { req.Header.Set("X-Request-ID", id) })
	assert.Equal(t, id, w.Body.String())

	w = do(r, http.MethodGet, "/", func(req *http.Request) { req.Header.Set("X-Request-ID", "<script>") })
	assert.NotEqual(t, "<script>", w.Body.String())
}

func TestPrivateOnly(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/debug", PrivateOnly(), func(c *gin.Context) { c.Status(http.StatusOK) })

	viaProxy := func(xff string) func(*http.Request) {
		return func(req *http.Request) {
			req.RemoteAddr = "127.0.0.1:5000"
			req.Header.Set("X-Forwarded-For", xff)
		}
	}
	w := do(r, http.MethodGet, "/debug", viaProxy("10.1.2.3"))
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodGet, "/debug", viaProxy("8.8.8.8"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// a public peer cannot claim a private address
	w = do(r, http.MethodGet, "/debug", func(req *http.Request) { req.Header.Set("X-Forwarded-For", "10.1.2.3") })
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })

	cases := []struct {
		name, peer string
		headers    map[string]string
		want       string
	}{
		{"public peer ignores headers", "203.0.113.9:1", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "203.0.113.9"},
		{"cloudflare first", "10.0.0.1:1", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, "1.1.1.1"},
		{"x-real-ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "3.3.3.3"}, "3.3.3.3"},
		{"xff skips junk", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "junk, 4.4.4.4, 5.5.5.5"}, "4.4.4.4"},
		{"no headers", "10.0.0.1:1", nil, "10.0.0.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/", func(req *http.Request) {
				req.RemoteAddr = tc.peer
				for k, v := range tc.headers {
					req.Header.Set(k, v)
				}
			})
			assert.Equal(t, tc.want, w.Body.String())
		})
	}
}
