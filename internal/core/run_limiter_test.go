package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunLimiter_AcquireRelease(t *testing.T) {
	limiter := NewRunLimiter(2, time.Second)
	ctx := context.Background()

	steps := []struct {
		name          string
		op            func() error
		wantActive    int
		wantAvailable int
	}{
		{"first acquire", func() error { return limiter.Acquire(ctx) }, 1, 1},
		{"second acquire", func() error { return limiter.Acquire(ctx) }, 2, 0},
		{"first release", func() error { limiter.Release(); return nil }, 1, 1},
		{"second release", func() error { limiter.Release(); return nil }, 0, 2},
	}

	for _, step := range steps {
		if err := step.op(); err != nil {
			t.Fatalf("%s: unexpected error: %v", step.name, err)
		}
		status := limiter.Status()
		if status.Active != step.wantActive {
			t.Errorf("%s: Active = %d, want %d", step.name, status.Active, step.wantActive)
		}
		if status.Available != step.wantAvailable {
			t.Errorf("%s: Available = %d, want %d", step.name, status.Available, step.wantAvailable)
		}
	}
}

func TestRunLimiter_TimesOutWhenFull(t *testing.T) {
	limiter := NewRunLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	err := limiter.Acquire(ctx)
	if !errors.Is(err, ErrTooManyRuns) {
		t.Errorf("expected ErrTooManyRuns, got %v", err)
	}
}

func TestRunLimiter_CallerCancellation(t *testing.T) {
	limiter := NewRunLimiter(1, 5*time.Second)
	if !limiter.TryAcquire() {
		t.Fatal("TryAcquire on an empty limiter should succeed")
	}
	defer limiter.Release()

	if limiter.TryAcquire() {
		t.Fatal("TryAcquire on a full limiter should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- limiter.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestRunLimiter_NeverExceedsMax(t *testing.T) {
	const maxConcurrent = 3
	limiter := NewRunLimiter(maxConcurrent, time.Second)

	var peak, current int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			limiter.Release()
		}()
	}
	wg.Wait()

	if peak > maxConcurrent {
		t.Errorf("peak concurrency = %d, max %d", peak, maxConcurrent)
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("final ActiveCount = %d, want 0", got)
	}
}

func TestRunLimiter_WaitForDrain(t *testing.T) {
	t.Run("returns once all runs release", func(t *testing.T) {
		limiter := NewRunLimiter(2, time.Second)
		_ = limiter.Acquire(context.Background())

		done := make(chan error, 1)
		go func() { done <- limiter.WaitForDrain(context.Background()) }()

		select {
		case <-done:
			t.Fatal("WaitForDrain returned with an active run")
		case <-time.After(30 * time.Millisecond):
		}

		limiter.Release()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("WaitForDrain returned error: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("WaitForDrain did not complete")
		}
	})

	t.Run("honours context", func(t *testing.T) {
		limiter := NewRunLimiter(1, time.Second)
		_ = limiter.Acquire(context.Background())
		defer limiter.Release()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		if err := limiter.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
	})
}

func TestRunLimiter_Defaults(t *testing.T) {
	limiter := NewRunLimiter(0, 0)
	if got := limiter.MaxConcurrent(); got != DefaultMaxConcurrentRuns {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentRuns)
	}
}

func TestRunLimiter_UsableAfterDrain(t *testing.T) {
	limiter := NewRunLimiter(2, 50*time.Millisecond)
	if err := limiter.WaitForDrain(context.Background()); err != nil {
		t.Fatalf("WaitForDrain on an idle limiter: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire %d after drain: %v", i, err)
		}
	}
	if got := limiter.Available(); got != 0 {
		t.Errorf("Available = %d, want 0", got)
	}
}
