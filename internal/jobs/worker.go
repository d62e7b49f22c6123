package jobs

import (
	"context"
	"log"
	"time"
)

// IndexRefresher rebuilds the in-memory indexes from the current store
// snapshot.
type IndexRefresher interface {
	RefreshIndexes(ctx context.Context) error
}

// Worker periodically refreshes the retrieval indexes in the background.
type Worker struct {
	refresher    IndexRefresher
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(refresher IndexRefresher, pollInterval time.Duration) *Worker {
	return &Worker{
		refresher:    refresher,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the worker's polling loop
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("index refresher started with poll interval: %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("index refresher stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("index refresher stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.refresher.RefreshIndexes(ctx); err != nil {
				log.Printf("error refreshing indexes: %v", err)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("index refresher shutdown complete")
}
