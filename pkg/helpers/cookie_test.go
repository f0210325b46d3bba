package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SetPair(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	m := NewCookie("", false, "strict")
	m.SetPair(c, "acc", time.Now().Add(time.Hour), "ref", time.Now().Add(2*time.Hour))

	res := w.Result()
	cookies := res.Cookies()
	require.Len(t, cookies, 2)
	for _, ck := range cookies {
		assert.True(t, ck.HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	}
	assert.Equal(t, AccessCookie, cookies[0].Name)
	assert.Equal(t, "acc", cookies[0].Value)
	assert.Equal(t, RefreshCookie, cookies[1].Name)
}

func TestNewCookie_SameSiteNoneForcesSecure(t *testing.T) {
	m := NewCookie("example.com", false, "None")
	assert.True(t, m.Secure)
	assert.Equal(t, http.SameSiteNoneMode, m.SameSite)

	assert.Equal(t, http.SameSiteLaxMode, NewCookie("", false, "").SameSite)
}
