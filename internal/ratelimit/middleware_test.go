package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type countingChecker struct {
	calls int
	limit int
	err   error
}

func (c *countingChecker) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.calls++
	remaining := limit - c.calls
	if remaining < 0 {
		remaining = 0
	}
	return &Result{Allowed: c.calls <= limit, Remaining: remaining, ResetAt: time.Now().Add(window), Limit: limit}, nil
}

func newRouter(checker Checker, limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(checker, "test", limit, time.Minute, ByClientIP))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestMiddleware_BlocksOverLimit(t *testing.T) {
	r := newRouter(&countingChecker{}, 2)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestMiddleware_FailsOpen(t *testing.T) {
	r := newRouter(&countingChecker{err: errors.New("connection refused")}, 1)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Contains(t, ByUserOrIP(c), "ip:")

	c.Set("userID", "u-1")
	assert.Equal(t, "user:u-1", ByUserOrIP(c))
}
