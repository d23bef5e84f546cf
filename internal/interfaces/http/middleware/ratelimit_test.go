package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedRouter(limiter *RateLimiter, mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/api/v1/ledger/transactions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("burst up to the limit", func(t *testing.T) {
		rl := NewRateLimiter(5, time.Minute)

		for i := range 5 {
			assert.True(t, rl.Allow("10.0.0.1"), "request %d should pass", i)
		}
		assert.False(t, rl.Allow("10.0.0.1"), "sixth request must be rejected")
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)

		assert.True(t, rl.Allow("10.0.0.1"))
		assert.False(t, rl.Allow("10.0.0.1"))
		assert.True(t, rl.Allow("10.0.0.2"))
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		// 100 per second refills one token every 10ms.
		rl := NewRateLimiter(100, time.Second)

		for range 100 {
			rl.Allow("10.0.0.1")
		}
		require.False(t, rl.Allow("10.0.0.1"))

		time.Sleep(50 * time.Millisecond)
		assert.True(t, rl.Allow("10.0.0.1"))
	})

	t.Run("concurrent callers", func(t *testing.T) {
		rl := NewRateLimiter(1000, time.Minute)

		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				key := fmt.Sprintf("10.0.0.%d", n)
				for range 50 {
					rl.Allow(key)
				}
			}(i)
		}
		wg.Wait()

		// every key spent 50 of its 1000 tokens
		assert.True(t, rl.Allow("10.0.0.0"))
	})
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl := NewRateLimiter(10, time.Hour)

	assert.Equal(t, 10, rl.Remaining("fresh-key"))

	rl.Allow("used-key")
	rl.Allow("used-key")
	assert.Equal(t, 8, rl.Remaining("used-key"))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("passes requests under the limit", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)
		router := limitedRouter(rl, RateLimit(rl))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/ledger/transactions", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("rejects once exhausted", func(t *testing.T) {
		rl := NewRateLimiter(2, time.Minute)
		router := limitedRouter(rl, RateLimit(rl))

		var last *httptest.ResponseRecorder
		for range 3 {
			last = httptest.NewRecorder()
			router.ServeHTTP(last, httptest.NewRequest("GET", "/api/v1/ledger/transactions", nil))
		}

		assert.Equal(t, http.StatusTooManyRequests, last.Code)
		assert.Contains(t, last.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("business header scopes the key", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		router := limitedRouter(rl, RateLimit(rl))

		first := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/ledger/transactions", nil)
		req.Header.Set("X-Business-ID", "biz-a")
		router.ServeHTTP(first, req)
		require.Equal(t, http.StatusOK, first.Code)

		// same IP, different business: separate bucket
		second := httptest.NewRecorder()
		req = httptest.NewRequest("GET", "/api/v1/ledger/transactions", nil)
		req.Header.Set("X-Business-ID", "biz-b")
		router.ServeHTTP(second, req)
		assert.Equal(t, http.StatusOK, second.Code)
	})
}

func TestRateLimitByKey(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	router := limitedRouter(rl, RateLimitByKey(rl, func(c *gin.Context) string {
		return c.Query("slug")
	}))

	for slug, wantCode := range map[string]int{
		"corner-cafe": http.StatusOK,
		"bike-shop":   http.StatusOK,
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/ledger/transactions?slug="+slug, nil))
		assert.Equal(t, wantCode, w.Code)
	}

	// second hit on an exhausted slug
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/ledger/transactions?slug=corner-cafe", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
