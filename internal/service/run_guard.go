package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cafepulse/internal/models"
	"cafepulse/internal/repository"
)

var ErrBatchInProgress = errors.New("popular times batch already running")

const (
	lockKey       = "popular_times:lock"
	lastRunKey    = "popular_times:last_run"
	lockTTL       = 2 * time.Hour
	lastRunMaxAge = 30 * 24 * time.Hour
)

// RunGuard keeps batch runs from overlapping across processes and remembers
// the last report. A nil *RunGuard is valid and does nothing.
type RunGuard struct {
	cache repository.CacheRepository
}

func NewRunGuard(cache repository.CacheRepository) *RunGuard {
	return &RunGuard{cache: cache}
}

func (g *RunGuard) Acquire(ctx context.Context, runID string) (func(), error) {
	if g == nil {
		return func() {}, nil
	}

	ok, err := g.cache.SetNX(ctx, lockKey, runID, lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire batch lock: %w", err)
	}
	if !ok {
		holder, _ := g.cache.Get(ctx, lockKey)
		return nil, fmt.Errorf("%w (run %s)", ErrBatchInProgress, holder)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if holder, err := g.cache.Get(releaseCtx, lockKey); err == nil && holder == runID {
			if err := g.cache.Delete(releaseCtx, lockKey); err != nil {
				log.Printf("Failed to release batch lock: %v", err)
			}
		}
	}, nil
}

func (g *RunGuard) SaveReport(ctx context.Context, report *models.BatchReport) {
	if g == nil || report == nil {
		return
	}
	if err := g.cache.SetJSON(ctx, lastRunKey, report, lastRunMaxAge); err != nil {
		log.Printf("Failed to store batch report: %v", err)
	}
}

func (g *RunGuard) LastReport(ctx context.Context) (*models.BatchReport, bool, error) {
	if g == nil {
		return nil, false, nil
	}
	var report models.BatchReport
	found, err := g.cache.GetJSON(ctx, lastRunKey, &report)
	if err != nil || !found {
		return nil, false, err
	}
	return &report, true, nil
}
