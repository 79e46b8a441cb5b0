package retry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func countingFn(calls *int, failUntil int) func() error {
	return func() error {
		*calls++
		if *calls < failUntil {
			return errors.New("transient")
		}
		return nil
	}
}

func TestImmediateSuccessSkipsBackoff(t *testing.T) {
	var calls int
	start := time.Now()
	if err := Do(context.Background(), 5, time.Second, countingFn(&calls, 0)); err != nil {
		t.Fatalf("Do returned %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("success on first attempt should not sleep")
	}
}

func TestRecoversAfterTransientFailures(t *testing.T) {
	var calls int
	if err := Do(context.Background(), 5, 5*time.Millisecond, countingFn(&calls, 3)); err != nil {
		t.Fatalf("Do returned %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestReturnsLastErrorWhenExhausted(t *testing.T) {
	var calls int
	sentinel := errors.New("still down")
	err := Do(context.Background(), 3, 5*time.Millisecond, func() error {
		calls++
		return fmt.Errorf("attempt %d: %w", calls, sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped sentinel", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestPermanentErrorShortCircuits(t *testing.T) {
	var calls int
	rejected := errors.New("endpoint returned 400")
	err := Do(context.Background(), 5, 5*time.Millisecond, func() error {
		calls++
		return Permanent(rejected)
	})
	if !errors.Is(err, rejected) {
		t.Fatalf("err = %v, want unwrapped rejection", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestWrappedPermanentErrorShortCircuits(t *testing.T) {
	// Permanent must be honored even when another layer wraps it.
	var calls int
	err := Do(context.Background(), 5, 5*time.Millisecond, func() error {
		calls++
		return fmt.Errorf("deliver: %w", Permanent(errors.New("bad payload")))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestCancellationStopsBackoffSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	var calls atomic.Int32
	err := Do(ctx, 10, 200*time.Millisecond, func() error {
		calls.Add(1)
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if c := calls.Load(); c > 2 {
		t.Fatalf("calls = %d, want at most 2 before cancellation", c)
	}
}

func TestNonPositiveAttemptsMeansOne(t *testing.T) {
	for _, attempts := range []int{0, -1} {
		var calls int
		if err := Do(context.Background(), attempts, time.Millisecond, countingFn(&calls, 0)); err != nil {
			t.Fatalf("Do(%d attempts) returned %v", attempts, err)
		}
		if calls != 1 {
			t.Fatalf("Do(%d attempts): calls = %d, want 1", attempts, calls)
		}
	}
}
