package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if mw != nil {
		r.Use(mw)
	}
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func doGet(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDAssigned(t *testing.T) {
	r := newTestRouter(RequestID())
	w := doGet(r, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestRequestIDPreserved(t *testing.T) {
	r := newTestRouter(RequestID())
	w := doGet(r, map[string]string{"X-Request-ID": "caller-supplied"})
	assert.Equal(t, "caller-supplied", w.Header().Get("X-Request-ID"))
}

func TestExtractAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("bearer header", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", "Bearer sk-abc")
		assert.Equal(t, "sk-abc", ExtractAPIKey(c))
	})

	t.Run("x-api-key header", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("x-api-key", "sk-xyz")
		assert.Equal(t, "sk-xyz", ExtractAPIKey(c))
	})

	t.Run("context value wins", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", "Bearer from-header")
		c.Set("api_key", "from-context")
		assert.Equal(t, "from-context", ExtractAPIKey(c))
	})

	t.Run("absent", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Empty(t, ExtractAPIKey(c))
	})
}

func TestRequireAccessToken(t *testing.T) {
	token := "gw-secret"
	mw := RequireAccessToken(func() string { return token })

	t.Run("valid bearer passes", func(t *testing.T) {
		w := doGet(newTestRouter(mw), map[string]string{"Authorization": "Bearer gw-secret"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		w := doGet(newTestRouter(mw), map[string]string{"Authorization": "Bearer nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_api_key")
	})

	t.Run("missing token rejected", func(t *testing.T) {
		w := doGet(newTestRouter(mw), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty configured token disables the check", func(t *testing.T) {
		open := RequireAccessToken(func() string { return "" })
		w := doGet(newTestRouter(open), nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimiterAutoKey(t *testing.T) {
	r := newTestRouter(RateLimiterAutoKey(1, 2))

	headers := map[string]string{"Authorization": "Bearer sk-limited"}
	assert.Equal(t, http.StatusOK, doGet(r, headers).Code)
	assert.Equal(t, http.StatusOK, doGet(r, headers).Code)
	// burst exhausted
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, headers).Code)

	// a different key has its own budget
	other := map[string]string{"Authorization": "Bearer sk-other"}
	assert.Equal(t, http.StatusOK, doGet(r, other).Code)
}

func TestSafeGoRecoversPanic(t *testing.T) {
	done := make(chan struct{})
	SafeGo(func() {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine never ran")
	}
}

func TestAPIKeyMiddlewareStoresKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(APIKey())
	var stored string
	r.GET("/ping", func(c *gin.Context) {
		stored = c.GetString("api_key")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer sk-stored")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "sk-stored", stored)
}
