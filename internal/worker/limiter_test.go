package worker

import (
	"context"
	"testing"
	"time"
)

func TestNewLimiter_Defaults(t *testing.T) {
	if l := NewLimiter(10, 5); l.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", l.defaultBurst)
	}
	if l := NewLimiter(10, -1); l.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l.defaultBurst)
	}
}

func TestLimiter_ZeroRateDisablesPacing(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 20; i++ {
		if !limiter.Allow("https://lms.example.com/course/1.json") {
			t.Fatalf("request %d throttled with pacing disabled", i)
		}
	}
}

func TestLimiter_PerHostBuckets(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://a.example.com/submissions.json"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	if limiter.Allow("https://a.example.com/s1.json") {
		t.Error("expected exhausted bucket for the same host")
	}
	if !limiter.Allow("https://b.example.com/submissions.json") {
		t.Error("expected a fresh bucket for another host")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	if err := limiter.WaitWithDelay(context.Background(), "https://lms.example.com", 30*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected delay >= 30ms, got %v", elapsed)
	}
}

func TestLimiter_WaitWithDelay_Cancelled(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.WaitWithDelay(ctx, "https://lms.example.com", time.Minute); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetHostRate("slow.example.com", 0.1, 1)

	if !limiter.Allow("http://slow.example.com/a") {
		t.Error("first request should pass")
	}
	if limiter.Allow("http://slow.example.com/b") {
		t.Error("second request should be throttled")
	}
	if !limiter.Allow("http://fast.example.com/a") {
		t.Error("other host should pass")
	}
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("https://lms.example.com:8443/course")
	if err != nil || host != "lms.example.com:8443" {
		t.Errorf("expected lms.example.com:8443, got %q (err %v)", host, err)
	}
	if _, err := hostOf("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
	if _, err := hostOf("relative/path"); err == nil {
		t.Error("expected error for URL without host")
	}
}
