package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-task-manager/pkg/response"
)

// ipFromCtx extracts the client IP from Gin context, falling back to "unknown"
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request
type KeyFunc func(c *gin.Context) string

// KeyByIP limits by client IP under the given scope, e.g. "login".
func KeyByIP(scope string) KeyFunc {
	return func(c *gin.Context) string {
		return "rl:" + scope + ":ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath returns a key function that limits by client IP and request path
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// KeyByUserID limits authenticated callers by account, anonymous ones by IP.
func KeyByUserID(scope string) KeyFunc {
	return func(c *gin.Context) string {
		uid := c.GetString(CtxUserIDKey)
		if uid == "" {
			return "rl:" + scope + ":anon:ip:" + ipFromCtx(c)
		}
		return "rl:" + scope + ":user:" + uid
	}
}

type AllowFunc func(*gin.Context) bool // return true for bypass limit

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAfter is how long until the oldest counted request leaves the window.
	ResetAfter time.Duration
}

// Limiter counts requests per key over a sliding window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Lua script: sliding window log on a sorted set scored by unix millis.
// Rejected requests are not recorded.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", key, "-inf", tostring(now - window))
local count = redis.call("ZCARD", key)
if count >= limit then
  local reset = window
  local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
  if oldest[2] then
    reset = tonumber(oldest[2]) + window - now
  end
  return {0, count, reset}
end
redis.call("ZADD", key, tostring(now), ARGV[4])
redis.call("PEXPIRE", key, tostring(window))
return {1, count + 1, window}
`)

// RedisLimiter shares its counters across instances.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	max    int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(rdb redis.UniversalClient, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, max: max, window: window, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now().UnixMilli()
	res, err := slidingWindowScript.Run(ctx, l.rdb, []string{key},
		now, l.window.Milliseconds(), l.max, strconv.FormatInt(now, 10)+"-"+uuid.NewString()).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) != 3 {
		return Decision{}, redis.Nil
	}
	return Decision{
		Allowed:    res[0] == 1,
		Limit:      l.max,
		Remaining:  max(l.max-int(res[1]), 0),
		ResetAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// MemoryLimiter is the process-local variant used when Redis is not configured.
type MemoryLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time

	lastSweep time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{hits: make(map[string][]time.Time), max: max, window: window, now: time.Now}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	d := Decision{Limit: l.max, ResetAfter: l.window}
	if len(kept) > 0 {
		d.ResetAfter = kept[0].Add(l.window).Sub(now)
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return d, nil
	}
	kept = append(kept, now)
	l.hits[key] = kept
	l.sweep(cutoff)
	d.Allowed = true
	d.Remaining = l.max - len(kept)
	return d, nil
}

// sweep drops keys whose newest hit fell out of the window so idle clients
// do not accumulate. Runs at most once per window.
func (l *MemoryLimiter) sweep(cutoff time.Time) {
	if l.lastSweep.After(cutoff) {
		return
	}
	l.lastSweep = l.now()
	for k, ts := range l.hits {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(l.hits, k)
		}
	}
}

// Len reports how many keys are tracked.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// RateLimit with:
// - a pluggable sliding-window limiter
// - standard headers (limit/remaining/reset)
// - optional allowlist bypass & method skip
// Limiter errors fail open.
func RateLimit(l Limiter, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if l == nil || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if allow != nil && allow(c) {
			c.Next()
			return
		}
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		d, err := l.Allow(c.Request.Context(), keyFn(c))
		if err != nil {
			c.Next()
			return
		}

		resetSec := int((d.ResetAfter + time.Second - 1) / time.Second)
		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if !d.Allowed {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Abort(c, http.StatusTooManyRequests, "too many requests, try again later", nil)
			return
		}
		c.Next()
	}
}
