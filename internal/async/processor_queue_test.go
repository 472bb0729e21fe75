package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorQueue_RunsEveryJob(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	q := NewProcessorQueue(func(_ context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen[job.Path] = true
		if job.Path == "bad" {
			return errors.New("boom")
		}
		return nil
	}, nil, WithWorkers(3), WithQueueSize(2))

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		require.NoError(t, q.Enqueue(ctx, Job{Path: fmt.Sprintf("doc-%d.pdf", i)}))
	}
	require.NoError(t, q.Enqueue(ctx, Job{Path: "bad"}))
	q.Shutdown(ctx)

	assert.Len(t, seen, 21)
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "late"}), ErrQueueClosed)
}

func TestProcessorQueue_BoundsConcurrency(t *testing.T) {
	var running, peak int32
	q := NewProcessorQueue(func(context.Context, Job) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}, nil, WithWorkers(2))

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: "x"}))
	}
	q.Shutdown(context.Background())
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestProcessorQueue_JobTimeout(t *testing.T) {
	var deadline atomic.Bool
	q := NewProcessorQueue(func(ctx context.Context, _ Job) error {
		<-ctx.Done()
		deadline.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	}, nil, WithWorkers(1), WithProcessTimeout(10*time.Millisecond))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow"}))
	q.Shutdown(context.Background())
	assert.True(t, deadline.Load())
}
