package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()
	fail := func(context.Context) error { return errors.New("down") }

	for i := 0; i < 3; i++ {
		if err := b.Call(ctx, fail); err == nil {
			t.Fatal("expected failure")
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state %s, want open", b.State())
	}
	if err := b.Call(ctx, fail); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Minute})
	ctx := context.Background()

	b.Call(ctx, func(context.Context) error { return errors.New("x") })
	b.Call(ctx, func(context.Context) error { return nil })
	b.Call(ctx, func(context.Context) error { return errors.New("x") })

	if b.State() != StateClosed {
		t.Fatalf("state %s, want closed after interleaved success", b.State())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute, HalfOpenMax: 1})
	clock := time.Now()
	b.now = func() time.Time { return clock }
	ctx := context.Background()

	b.Call(ctx, func(context.Context) error { return errors.New("down") })
	if b.State() != StateOpen {
		t.Fatalf("state %s, want open", b.State())
	}

	clock = clock.Add(2 * time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("state %s, want half-open after timeout", b.State())
	}
	if err := b.Call(ctx, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state %s, want closed after successful probe", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute, HalfOpenMax: 1})
	clock := time.Now()
	b.now = func() time.Time { return clock }
	ctx := context.Background()

	b.Call(ctx, func(context.Context) error { return errors.New("down") })
	clock = clock.Add(2 * time.Minute)
	b.Call(ctx, func(context.Context) error { return errors.New("still down") })

	if b.State() != StateOpen {
		t.Fatalf("state %s, want open after failed probe", b.State())
	}
}

func TestLimiterAllow(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 1, Burst: 2})
	if !l.Allow() || !l.Allow() {
		t.Fatal("burst tokens should be available")
	}
	if l.Allow() {
		t.Fatal("third immediate call should be limited")
	}
}

func TestLimiterCall(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 1})
	ctx := context.Background()

	ran := false
	if err := l.Call(ctx, func(context.Context) error { ran = true; return nil }); err != nil || !ran {
		t.Fatalf("first call should run: %v", err)
	}
	if err := l.Call(ctx, func(context.Context) error { return nil }); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 1})
	l.Allow() // drain

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected context deadline error")
	}
}
