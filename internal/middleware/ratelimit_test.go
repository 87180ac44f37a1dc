package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	l := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}
	ok, retryAfter := l.Allow("1.2.3.4")
	if ok {
		t.Fatal("fourth request allowed, want denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("retry after = %v", retryAfter)
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)
	if ok, _ := l.Allow("1.2.3.4"); !ok {
		t.Fatal("first key denied")
	}
	if ok, _ := l.Allow("5.6.7.8"); !ok {
		t.Fatal("second key denied, windows should be per key")
	}
	if ok, _ := l.Allow("1.2.3.4"); ok {
		t.Fatal("first key allowed past its limit")
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	if ok, _ := l.Allow("k"); !ok {
		t.Fatal("first request denied")
	}
	if ok, _ := l.Allow("k"); ok {
		t.Fatal("second request allowed within the window")
	}

	now = now.Add(time.Minute)
	if ok, _ := l.Allow("k"); !ok {
		t.Fatal("request after window rollover denied")
	}
}
