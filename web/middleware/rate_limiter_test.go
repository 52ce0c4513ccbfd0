package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, 0.0)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("request %d within burst should be allowed", i+1)
		}
	}
	if tb.Allow() {
		t.Error("request over burst should be denied")
	}
	if got := tb.Remaining(); got != 0 {
		t.Errorf("Remaining() = %d, want 0", got)
	}
}

func TestTokenBucketRefill(t *testing.T) {
	// 100 tokens/sec refills a drained bucket almost immediately.
	tb := NewTokenBucket(1, 100.0)
	if !tb.Allow() {
		t.Fatal("first request should pass")
	}
	time.Sleep(20 * time.Millisecond)
	if !tb.Allow() {
		t.Error("bucket should have refilled")
	}
}

func TestMiddlewareRejectsOverBudget(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewClientRateLimiter(RateLimiterConfig{
		MessagesPerMinute: 1,
		BurstSize:         2,
	}, zap.NewNop())
	defer rl.Stop()

	router := gin.New()
	router.POST("/chat", rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("burst requests should pass, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", statuses[2])
	}
}

func TestMiddlewareIsolatesClients(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewClientRateLimiter(RateLimiterConfig{
		MessagesPerMinute: 1,
		BurstSize:         1,
	}, zap.NewNop())
	defer rl.Stop()

	router := gin.New()
	router.POST("/chat", rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.RemoteAddr = addr
		router.ServeHTTP(w, req)
		return w.Code
	}

	if got := send("10.0.0.1:1"); got != http.StatusOK {
		t.Fatalf("first client first request = %d", got)
	}
	if got := send("10.0.0.1:1"); got != http.StatusTooManyRequests {
		t.Errorf("first client second request = %d, want 429", got)
	}
	if got := send("10.0.0.2:1"); got != http.StatusOK {
		t.Errorf("second client should have its own bucket, got %d", got)
	}
}
