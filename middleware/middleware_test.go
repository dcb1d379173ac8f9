package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"investgroup/api/logger"
	"investgroup/api/models"
	"investgroup/api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) { c.Status(http.StatusOK) }

func adminRouter(t *testing.T, apiKey string) (*gin.Engine, *utils.JWTManager) {
	t.Helper()
	m, err := utils.NewJWTManager("mw-secret", time.Hour)
	require.NoError(t, err)
	r := gin.New()
	r.GET("/admin", AdminRequired(m, apiKey), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt(ctxUserID)})
	})
	return r, m
}

func TestAdminRequired(t *testing.T) {
	r, m := adminRouter(t, "key-123")
	admin, err := m.Generate(&models.User{ID: 7, Email: "a@b.c", IsAdmin: true})
	require.NoError(t, err)
	member, err := m.Generate(&models.User{ID: 8, Email: "m@b.c"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  int
	}{
		{"no credentials", func(*http.Request) {}, http.StatusUnauthorized},
		{"api key", func(r *http.Request) { r.Header.Set("X-API-KEY", "key-123") }, http.StatusOK},
		{"wrong api key", func(r *http.Request) { r.Header.Set("X-API-KEY", "nope") }, http.StatusUnauthorized},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: admin}) }, http.StatusOK},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+admin) }, http.StatusOK},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc.def.ghi") }, http.StatusUnauthorized},
		{"not admin", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+member) }, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAdminRequired_APIKeyOnly(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AdminRequired(nil, "key-123"), okHandler)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-API-KEY", "key-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "edge-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "edge-42", w.Header().Get(RequestIDHeader))
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWriter(&buf, "info", "json")
	t.Cleanup(func() { logger.Init("info", "console") })

	r := gin.New()
	r.Use(RequestID(), AccessLog())
	r.GET("/items/:id", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/items/9", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, `"request_id":"req-1"`)
	assert.Contains(t, line, `"path":"/items/9"`)
	assert.Contains(t, line, `"status":200`)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"), "burst exhausted")
	assert.True(t, rl.Allow("2.2.2.2"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("1.1.1.1"), "refilled")

	now = now.Add(limiterIdle + time.Second)
	rl.Allow("3.3.3.3")
	rl.mu.Lock()
	assert.Len(t, rl.limiters, 1, "idle buckets swept")
	rl.mu.Unlock()
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	r := gin.New()
	r.POST("/track", rl.Middleware(), okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/track", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/track", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware("https://investgroup.example"))
	r.POST("/api/analytics/track", okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/analytics/track", nil)
	req.Header.Set("Origin", "https://investgroup.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://investgroup.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
