package provider

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterBurstThenBlocks(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
	}
	if time.Since(start) > 20*time.Millisecond {
		t.Fatal("burst calls should not wait")
	}

	deadline, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(deadline); err == nil {
		t.Fatal("expected the fourth call to exceed the deadline")
	}
}

func TestRateLimiterReplenishes(t *testing.T) {
	limiter := NewRateLimiter(2, 10*time.Millisecond)
	ctx := context.Background()
	_ = limiter.Wait(ctx)
	_ = limiter.Wait(ctx)

	time.Sleep(15 * time.Millisecond)
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(waitCtx); err != nil {
		t.Fatalf("expected a token after the window, got %v", err)
	}
}

func TestNewRateLimiterDefaults(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("expected one token with defaults, got %v", err)
	}
}
