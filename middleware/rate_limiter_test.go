package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"appispot/config"

	"github.com/gin-gonic/gin"
)

func hitFrom(r *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Real-IP", ip)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitHonorsConfiguredBudget(t *testing.T) {
	prev := config.AppConfig.MaxRequestsPerMin
	config.AppConfig.MaxRequestsPerMin = 3
	defer func() { config.AppConfig.MaxRequestsPerMin = prev }()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	ip := "203.0.113.7"
	for i := 0; i < 3; i++ {
		if code := hitFrom(r, ip); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, code, http.StatusOK)
		}
	}
	if code := hitFrom(r, ip); code != http.StatusTooManyRequests {
		t.Fatalf("over budget: status = %d, want %d", code, http.StatusTooManyRequests)
	}

	// Another IP gets its own budget.
	if code := hitFrom(r, "203.0.113.8"); code != http.StatusOK {
		t.Fatalf("fresh ip: status = %d, want %d", code, http.StatusOK)
	}
}
