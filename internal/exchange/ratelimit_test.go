package exchange

import (
	"context"
	"testing"
	"time"
)

func TestLimiterAllowsBurst(t *testing.T) {
	l := NewLimiter(10)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("burst of 10 took %v, expected near-instant", elapsed)
	}
}

func TestLimiterThrottlesPastBurst(t *testing.T) {
	l := NewLimiter(100)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("throttled wait %d: %v", i, err)
		}
	}
	// 10 extra tokens at 100/s needs roughly 100ms.
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("10 post-burst waits took %v, expected throttling", elapsed)
	}
}

func TestLimiterRespectsCancel(t *testing.T) {
	l := NewLimiter(1)
	ctx := context.Background()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	canceled, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(canceled); err == nil {
		t.Fatalf("expected context error while starved")
	}
}
