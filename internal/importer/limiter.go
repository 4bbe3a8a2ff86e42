package importer

// limiter.go bounds the number of import runs executing at once.
//
// A run holds a database transaction and streams an entire workbook
// through memory; a handful of concurrent runs is plenty and more only
// competes for the same pool connections. Requests that cannot get a
// slot within maxWait are rejected with ErrTooManyImports so the caller
// can surface a retry hint instead of queueing unboundedly.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyImports is returned when every run slot is occupied and the
// wait timeout expires. Callers should retry after a short delay.
var ErrTooManyImports = errors.New("too many concurrent import runs, try again later")

// DefaultMaxConcurrentRuns bounds parallel import runs.
const DefaultMaxConcurrentRuns = 4

// DefaultSlotWait is how long a request waits for a slot before being
// rejected.
const DefaultSlotWait = 15 * time.Second

// RunLimiter is a semaphore over import run slots.
type RunLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

// NewRunLimiter creates a limiter allowing at most maxConcurrent
// simultaneous runs. Non-positive arguments select the defaults.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultSlotWait
	}
	return &RunLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire claims a run slot, waiting up to the configured limit. The
// caller must Release exactly once per successful Acquire.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports
	}
}

// Release returns a previously acquired slot.
func (l *RunLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.slots
}

// Active returns the number of runs currently holding a slot.
func (l *RunLimiter) Active() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the slot capacity.
func (l *RunLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// WaitForDrain blocks until no run holds a slot, for graceful shutdown:
// batches of a run interrupted mid-commit are fine to re-run, but
// letting in-flight runs finish keeps the audit trail clean.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.Active() == 0 {
				return nil
			}
		}
	}
}
