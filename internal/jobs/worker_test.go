package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRefresher) RefreshIndexes(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *countingRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestWorker_RefreshesOnInterval(t *testing.T) {
	refresher := &countingRefresher{}
	worker := NewWorker(refresher, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Start(ctx)

	assert.Eventually(t, func() bool {
		return refresher.count() >= 2
	}, time.Second, 10*time.Millisecond)

	worker.Stop()
}

func TestWorker_StopTerminatesLoop(t *testing.T) {
	refresher := &countingRefresher{}
	worker := NewWorker(refresher, 10*time.Millisecond)

	go worker.Start(context.Background())

	time.Sleep(50 * time.Millisecond)
	worker.Stop()

	after := refresher.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, refresher.count())
}

func TestWorker_ContextCancelTerminatesLoop(t *testing.T) {
	refresher := &countingRefresher{}
	worker := NewWorker(refresher, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestWorker_KeepsRunningOnRefreshError(t *testing.T) {
	refresher := &countingRefresher{err: errors.New("index rebuild failed")}
	worker := NewWorker(refresher, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Start(ctx)

	assert.Eventually(t, func() bool {
		return refresher.count() >= 3
	}, time.Second, 5*time.Millisecond)

	worker.Stop()
}
