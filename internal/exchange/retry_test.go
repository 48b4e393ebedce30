package exchange

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryRecoversFromTransient(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &APIError{Kind: KindTransient, Status: 503, Message: "unavailable"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	failure := &APIError{Kind: KindTransient, Status: 500, Message: "boom"}
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected the last failure, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryDoesNotRetryAuthOrRejected(t *testing.T) {
	for _, kind := range []Kind{KindAuth, KindRejected} {
		calls := 0
		err := fastPolicy().Do(context.Background(), func(context.Context) error {
			calls++
			return &APIError{Kind: kind, Message: "nope"}
		})
		if err == nil {
			t.Fatalf("%v: expected error", kind)
		}
		if calls != 1 {
			t.Fatalf("%v: expected 1 attempt, got %d", kind, calls)
		}
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}.Do(ctx, func(context.Context) error {
		return &APIError{Kind: KindTransient, Message: "slow"}
	})
	if err == nil {
		t.Fatalf("expected error after cancellation")
	}
}
