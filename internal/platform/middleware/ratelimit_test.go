package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRateLimit_RequestsWithinLimit(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})(okHandler)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if err := handler(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "10" {
			t.Errorf("request %d: expected X-RateLimit-Limit 10, got %q", i+1, rec.Header().Get("X-RateLimit-Limit"))
		}
	}
}

func TestRateLimit_ExceedsLimit(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})(okHandler)

	for i := 0; i < 2; i++ {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		if err := handler(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	err := handler(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	ra, convErr := strconv.Atoi(rec.Header().Get("Retry-After"))
	if convErr != nil || ra < 1 {
		t.Errorf("expected positive Retry-After, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_PerActorBuckets(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(okHandler)

	for _, actor := range []string{"a", "b"} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set("actor_id", actor)
		if err := handler(c); err != nil {
			t.Errorf("actor %s: expected own bucket, got %v", actor, err)
		}
	}
}

func TestTokenBucket_Refills(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(10, 1, now)
	if ok, _ := b.take(now); !ok {
		t.Fatal("expected first take to succeed")
	}
	if ok, _ := b.take(now); ok {
		t.Fatal("expected empty bucket")
	}
	if ok, _ := b.take(now.Add(150 * time.Millisecond)); !ok {
		t.Error("expected bucket to refill after 150ms at 10 rps")
	}
}

func TestRateLimiterStore_EvictsIdle(t *testing.T) {
	s := newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute})
	now := time.Now()
	s.bucket("old", now)
	s.bucket("new", now.Add(2*time.Minute))

	if _, ok := s.buckets["old"]; ok {
		t.Error("expected idle bucket to be evicted")
	}
	if _, ok := s.buckets["new"]; !ok {
		t.Error("expected fresh bucket to remain")
	}
}

func TestRateLimiterStore_ZeroIdleTTLStillEvicts(t *testing.T) {
	s := newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 100, BurstSize: 200})
	now := time.Now()
	for i := 0; i < 1000; i++ {
		s.bucket("ip:10.0."+strconv.Itoa(i/256)+"."+strconv.Itoa(i%256), now)
	}
	s.bucket("ip:10.9.9.9", now.Add(24*time.Hour))

	if got := len(s.buckets); got != 1 {
		t.Errorf("expected only the fresh bucket after a day idle, got %d", got)
	}
}
