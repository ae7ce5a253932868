package fn

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// --- Result ---

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatal("wrong unwrap")
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("Err should be err")
	}
}

func TestUnwrapOr(t *testing.T) {
	if got := Err[int](errors.New("x")).UnwrapOr(7); got != 7 {
		t.Fatalf("UnwrapOr on Err = %d, want 7", got)
	}
	if got := Ok(3).UnwrapOr(7); got != 3 {
		t.Fatalf("UnwrapOr on Ok = %d, want 3", got)
	}
}

func TestMustPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Must should panic on Err")
		}
	}()
	Err[int](errors.New("boom")).Must()
}

func TestCollect(t *testing.T) {
	ok := Collect([]Result[int]{Ok(1), Ok(2), Ok(3)})
	vals, err := ok.Unwrap()
	if err != nil || len(vals) != 3 || vals[1] != 2 {
		t.Fatalf("Collect ok = %v, %v", vals, err)
	}

	bad := Collect([]Result[int]{Ok(1), Err[int](errors.New("mid")), Ok(3)})
	if !bad.IsErr() {
		t.Fatal("Collect should fail on first error")
	}
}

// --- Stages ---

func TestThenComposes(t *testing.T) {
	double := MapStage(func(n int) int { return n * 2 })
	str := MapStage(strconv.Itoa)
	out := Then(double, str)(context.Background(), 21)
	v, err := out.Unwrap()
	if err != nil || v != "42" {
		t.Fatalf("got %q, %v", v, err)
	}
}

func TestThenShortCircuits(t *testing.T) {
	fail := func(_ context.Context, _ int) Result[int] {
		return Err[int](errors.New("first failed"))
	}
	called := false
	second := TapStage(func(_ context.Context, _ int) { called = true })
	out := Then(fail, second)(context.Background(), 1)
	if !out.IsErr() {
		t.Fatal("expected error to propagate")
	}
	if called {
		t.Fatal("second stage ran after failure")
	}
}

// --- ParMapResult ---

func TestParMapResultPreservesOrder(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}
	results := ParMapResult(items, 8, func(n int) Result[int] {
		if n%7 == 3 {
			time.Sleep(time.Millisecond) // shuffle completion order
		}
		return Ok(n * 10)
	})
	for i, r := range results {
		v, err := r.Unwrap()
		if err != nil || v != i*10 {
			t.Fatalf("result %d = %d, %v", i, v, err)
		}
	}
}

func TestParMapResultBoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	items := make([]int, 30)
	ParMapResult(items, 4, func(int) Result[int] {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		return Ok(0)
	})
	if p := peak.Load(); p > 4 {
		t.Fatalf("peak concurrency %d exceeds 4", p)
	}
}

func TestParMapResultEmpty(t *testing.T) {
	if out := ParMapResult(nil, 4, func(int) Result[int] { return Ok(1) }); len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
}

// --- Retry ---

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Err[int](errors.New("transient"))
		}
		return Ok(99)
	})
	v, err := r.Unwrap()
	if err != nil || v != 99 {
		t.Fatalf("got %d, %v", v, err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhausts(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		attempts++
		return Err[int](errors.New("permanent"))
	})
	if !r.IsErr() || attempts != 2 {
		t.Fatalf("expected 2 failed attempts, got %d (err=%v)", attempts, r.IsErr())
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := RetryOpts{MaxAttempts: 5, InitialWait: time.Hour, MaxWait: time.Hour}
	r := Retry(ctx, opts, func(context.Context) Result[int] {
		return Err[int](errors.New("always"))
	})
	_, err := r.Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
