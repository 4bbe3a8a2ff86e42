package importer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLimiter_AcquireRelease(t *testing.T) {
	l := NewRunLimiter(2, time.Second)
	ctx := context.Background()

	assert.Equal(t, 0, l.Active())
	assert.Equal(t, 2, l.MaxConcurrent())

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 2, l.Active())

	l.Release()
	assert.Equal(t, 1, l.Active())
	l.Release()
	assert.Equal(t, 0, l.Active())
}

func TestRunLimiter_RejectsWhenFull(t *testing.T) {
	l := NewRunLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	defer l.Release()

	start := time.Now()
	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, ErrTooManyImports)
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestRunLimiter_CancelledWhileWaiting(t *testing.T) {
	l := NewRunLimiter(1, 5*time.Second)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestRunLimiter_NeverExceedsCapacity(t *testing.T) {
	const capacity = 3
	l := NewRunLimiter(capacity, time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	maxObserved := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Error(err)
				return
			}
			defer l.Release()

			mu.Lock()
			if a := l.Active(); a > maxObserved {
				maxObserved = a
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxObserved, capacity)
	assert.Equal(t, 0, l.Active())
}

func TestRunLimiter_WaitForDrain(t *testing.T) {
	l := NewRunLimiter(2, time.Second)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))

	drained := make(chan error, 1)
	go func() { drained <- l.WaitForDrain(context.Background()) }()

	select {
	case <-drained:
		t.Fatal("drain finished with runs active")
	case <-time.After(50 * time.Millisecond):
	}

	l.Release()
	l.Release()

	select {
	case err := <-drained:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("drain did not finish after all slots released")
	}
}

func TestRunLimiter_Defaults(t *testing.T) {
	l := NewRunLimiter(0, 0)
	assert.Equal(t, DefaultMaxConcurrentRuns, l.MaxConcurrent())
}
