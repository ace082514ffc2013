package middleware

import (
	"testing"
	"time"
)

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("ip-1") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("ip-1") {
		t.Fatalf("expected limit exceeded")
	}
	if !rl.Allow("ip-2") {
		t.Fatalf("other keys must not be affected")
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiterWithNow(1, time.Minute, func() time.Time { return now })

	if !rl.Allow("ip-1") {
		t.Fatalf("first request should pass")
	}
	if rl.Allow("ip-1") {
		t.Fatalf("second request should be limited")
	}

	now = now.Add(2 * time.Minute)
	if !rl.Allow("ip-1") {
		t.Fatalf("expected reset after window")
	}
}
