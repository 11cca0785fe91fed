package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"cafepulse/internal/models"
	"cafepulse/internal/service"
)

// PopularTimesWorker refreshes busyness data for every cafe on a fixed
// interval (weekly by default) and on demand through Trigger.
type PopularTimesWorker struct {
	service  service.BatchService
	interval time.Duration
	options  models.BatchOptions

	trigger  chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
	mu       sync.Mutex
	running  bool
}

func NewPopularTimesWorker(service service.BatchService, interval time.Duration, options models.BatchOptions) *PopularTimesWorker {
	return &PopularTimesWorker{
		service:  service,
		interval: interval,
		options:  options,
		trigger:  make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
}

// Start blocks until Stop is called.
func (w *PopularTimesWorker) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.running = true
	w.mu.Unlock()
	defer cancel()

	log.Printf("Popular Times Worker started with interval %v", w.interval)
	w.run(ctx)
}

// Stop cancels an in-flight batch and ends the loop. A worker stopped before
// Start never runs.
func (w *PopularTimesWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopOnce.Do(func() { close(w.stopChan) })
	if !w.running {
		return
	}

	w.cancel()
	w.running = false
	log.Println("Popular Times Worker stopped")
}

// Trigger queues an immediate run. It returns false when a run is already
// queued.
func (w *PopularTimesWorker) Trigger() bool {
	select {
	case w.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (w *PopularTimesWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.refresh(ctx)
		case <-w.trigger:
			w.refresh(ctx)
		case <-w.stopChan:
			return
		}
	}
}

func (w *PopularTimesWorker) refresh(ctx context.Context) {
	log.Println("Popular Times Worker: refreshing cafes...")

	report, err := w.service.Run(ctx, w.options)
	switch {
	case errors.Is(err, service.ErrBatchInProgress):
		log.Println("Popular Times Worker: a batch is already running, skipping")
	case err != nil:
		log.Printf("Popular Times Worker error: %v", err)
	default:
		log.Printf("Popular Times Worker: %d cafes refreshed (%d real, %d synthetic)",
			report.Total, report.Real, report.Synthetic)
	}
}
