package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesAndDrains(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	h := HandlerFunc(func(_ context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.Path)
		if job.Path == "bad.csv" {
			return errors.New("boom")
		}
		return nil
	})
	q := NewQueue(h, nil, WithWorkers(3), WithQueueSize(2))

	paths := []string{"a.csv", "bad.csv", "b.pdf", "c.txt", "d.xlsx"}
	for _, p := range paths {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	require.NoError(t, q.Shutdown(context.Background()))

	assert.ElementsMatch(t, paths, seen)
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "late.csv"}), ErrClosed)
	assert.NoError(t, q.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestQueueSurvivesPanics(t *testing.T) {
	var ok atomic.Int32
	h := HandlerFunc(func(_ context.Context, job Job) error {
		if job.Path == "panic" {
			panic("handler bug")
		}
		ok.Add(1)
		return nil
	})
	q := NewQueue(h, nil, WithWorkers(1))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "panic"}))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "fine"}))
	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, int32(1), ok.Load())
}

func TestQueueEnqueueRespectsContext(t *testing.T) {
	release := make(chan struct{})
	h := HandlerFunc(func(context.Context, Job) error {
		<-release
		return nil
	})
	q := NewQueue(h, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "running"}))
	// wait for the worker to take the first job so the buffer slot is free
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "buffered"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "blocked"}), context.DeadlineExceeded)

	close(release)
	require.NoError(t, q.Shutdown(context.Background()))
}

func TestQueueProcessTimeout(t *testing.T) {
	got := make(chan error, 1)
	h := HandlerFunc(func(ctx context.Context, _ Job) error {
		<-ctx.Done()
		got <- ctx.Err()
		return ctx.Err()
	})
	q := NewQueue(h, nil, WithWorkers(1), WithProcessTimeout(10*time.Millisecond))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow"}))
	require.NoError(t, q.Shutdown(context.Background()))
	assert.ErrorIs(t, <-got, context.DeadlineExceeded)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": KindAuto, "auto": KindAuto, "statement": KindStatement, "receipt": KindReceipt} {
		k, ok := ParseKind(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, k, in)
	}
	_, ok := ParseKind("invoice")
	assert.False(t, ok)
}
