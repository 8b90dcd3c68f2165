package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type countingRateRecorder struct{ hits int }

func (c *countingRateRecorder) ObserveRateLimited() { c.hits++ }

func TestRateLimiter_PerClient(t *testing.T) {
	recorder := &countingRateRecorder{}
	rl := NewRateLimiter(1, 1).WithRecorder(recorder)
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("1.2.3.4:1000"); code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := send("1.2.3.4:2000"); code != http.StatusTooManyRequests {
		t.Fatalf("expected same host on another port to be throttled, got %d", code)
	}
	if code := send("5.6.7.8:1000"); code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", code)
	}
	if recorder.hits != 1 {
		t.Fatalf("expected 1 recorded hit, got %d", recorder.hits)
	}

	rl.CleanupLimiters()
	if code := send("1.2.3.4:1000"); code != http.StatusOK {
		t.Fatalf("expected limiter reset after cleanup, got %d", code)
	}
}
