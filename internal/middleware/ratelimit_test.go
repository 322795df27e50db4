package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterWindow(t *testing.T) {
	r := NewInMemoryRateLimiter(2, time.Minute)
	defer r.Stop()
	now := time.Unix(1_700_000_000, 0)
	r.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := r.Allow("ip"); !ok {
			t.Fatalf("request %d rejected", i)
		}
	}
	ok, retry := r.Allow("ip")
	if ok {
		t.Fatal("third request within window must be rejected")
	}
	if retry != time.Minute {
		t.Fatalf("retry = %v, want 1m", retry)
	}
	if ok, _ := r.Allow("other"); !ok {
		t.Fatal("other keys are limited independently")
	}
	now = now.Add(time.Minute + time.Second)
	if ok, _ := r.Allow("ip"); !ok {
		t.Fatal("request after window must pass")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewInMemoryRateLimiter(1, time.Minute)
	defer limiter.Stop()
	r := gin.New()
	r.Use(RateLimit(limiter))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first status = %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}
