package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"cafepulse/internal/models"
)

type countingBatch struct {
	runs atomic.Int32
	done chan struct{}
}

func (b *countingBatch) Run(ctx context.Context, opts models.BatchOptions) (*models.BatchReport, error) {
	b.runs.Add(1)
	select {
	case b.done <- struct{}{}:
	default:
	}
	return &models.BatchReport{Total: 1, Real: 1}, nil
}

func (b *countingBatch) LastReport(ctx context.Context) (*models.BatchReport, bool, error) {
	return nil, false, nil
}

func TestPopularTimesWorkerTrigger(t *testing.T) {
	batch := &countingBatch{done: make(chan struct{}, 1)}
	w := NewPopularTimesWorker(batch, time.Hour, models.DefaultBatchOptions())

	s := NewScheduler()
	s.AddWorker(w)
	s.Start()
	defer s.Stop()

	if !w.Trigger() {
		t.Fatal("first trigger should be queued")
	}

	select {
	case <-batch.done:
	case <-time.After(2 * time.Second):
		t.Fatal("triggered run did not happen")
	}
	if got := batch.runs.Load(); got != 1 {
		t.Errorf("expected 1 run, got %d", got)
	}
}

func TestPopularTimesWorkerInterval(t *testing.T) {
	batch := &countingBatch{done: make(chan struct{}, 1)}
	w := NewPopularTimesWorker(batch, 10*time.Millisecond, models.DefaultBatchOptions())

	go w.Start()
	defer w.Stop()

	select {
	case <-batch.done:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker run did not happen")
	}
}

func TestSchedulerStopWaitsForWorkers(t *testing.T) {
	batch := &countingBatch{done: make(chan struct{}, 1)}
	w := NewPopularTimesWorker(batch, time.Hour, models.DefaultBatchOptions())

	s := NewScheduler()
	s.AddWorker(w)
	s.Start()
	if !s.IsRunning() {
		t.Fatal("scheduler should be running")
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("scheduler should be stopped")
	}
	w.Trigger()
	time.Sleep(20 * time.Millisecond)
	if got := batch.runs.Load(); got != 0 {
		t.Errorf("stopped worker must not run, got %d runs", got)
	}
}
