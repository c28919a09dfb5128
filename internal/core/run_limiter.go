package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyRuns means every run slot stayed busy for the whole wait window.
var ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")

const (
	DefaultMaxConcurrentRuns = 4
	DefaultMaxWaitTime       = 15 * time.Second
)

// RunLimiter caps the number of pipeline runs in flight. Each run keeps its
// files in memory, so the cap bounds peak memory rather than CPU.
type RunLimiter struct {
	sem     *semaphore.Weighted
	slots   int64
	maxWait time.Duration
	active  atomic.Int64
}

// NewRunLimiter allows maxConcurrent runs and makes extra callers wait up
// to maxWait for a slot. Non-positive arguments select the defaults.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &RunLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		slots:   int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, returning ErrTooManyRuns when none frees up within
// the wait window and ctx's error when the caller gives up first. Every
// successful Acquire must be paired with Release.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyRuns
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot only if one is free right now.
func (l *RunLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *RunLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount is the number of runs holding a slot.
func (l *RunLimiter) ActiveCount() int { return int(l.active.Load()) }

// MaxConcurrent is the configured slot count.
func (l *RunLimiter) MaxConcurrent() int { return int(l.slots) }

// Available is the number of slots not held by runs. Slots claimed by
// WaitForDrain still count as available.
func (l *RunLimiter) Available() int { return int(l.slots - l.active.Load()) }

// WaitForDrain blocks until no run is in flight or ctx is done. It claims
// every slot while waiting, so runs arriving during shutdown queue behind it.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, l.slots); err != nil {
		return err
	}
	l.sem.Release(l.slots)
	return nil
}

// RunLimiterStatus is reported by the health endpoint.
type RunLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status snapshots the limiter for the health endpoint.
func (l *RunLimiter) Status() RunLimiterStatus {
	active := l.active.Load()
	return RunLimiterStatus{
		Active:        int(active),
		Available:     int(l.slots - active),
		MaxConcurrent: int(l.slots),
	}
}
