package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"cafepulse/internal/directory"
	"cafepulse/internal/models"
	"cafepulse/internal/repository"

	"github.com/google/uuid"
)

// Pacer blocks between two consecutive rows. It returns ctx.Err() when the
// context ends first.
type Pacer func(ctx context.Context) error

// RandomPacer sleeps for a uniform duration in [min, max].
func RandomPacer(min, max time.Duration, src rand.Source) Pacer {
	if max < min {
		max = min
	}
	rnd := rand.New(src)
	var mu sync.Mutex

	return func(ctx context.Context) error {
		mu.Lock()
		delay := min + time.Duration(rnd.Int63n(int64(max-min)+1))
		mu.Unlock()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// NoPacer never waits.
func NoPacer(ctx context.Context) error {
	return ctx.Err()
}

type BatchService interface {
	Run(ctx context.Context, opts models.BatchOptions) (*models.BatchReport, error)
	LastReport(ctx context.Context) (*models.BatchReport, bool, error)
}

type BatchDeps struct {
	Repo          repository.CafeRepository
	Resolver      PlaceResolver
	Fetcher       PopularityFetcher
	Mock          *MockGenerator
	LoadDirectory func() directory.Directory
	Guard         *RunGuard
	Pace          Pacer
}

type batchService struct {
	repo          repository.CafeRepository
	resolver      PlaceResolver
	fetcher       PopularityFetcher
	mock          *MockGenerator
	loadDirectory func() directory.Directory
	guard         *RunGuard
	pace          Pacer
	running       sync.Mutex
}

func NewBatchService(deps BatchDeps) BatchService {
	s := &batchService{
		repo:          deps.Repo,
		resolver:      deps.Resolver,
		fetcher:       deps.Fetcher,
		mock:          deps.Mock,
		loadDirectory: deps.LoadDirectory,
		guard:         deps.Guard,
		pace:          deps.Pace,
	}
	if s.pace == nil {
		s.pace = NoPacer
	}
	if s.loadDirectory == nil {
		s.loadDirectory = func() directory.Directory { return directory.Directory{} }
	}
	if s.mock == nil {
		s.mock = NewMockGenerator(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

func (s *batchService) Run(ctx context.Context, opts models.BatchOptions) (*models.BatchReport, error) {
	if !s.running.TryLock() {
		return nil, ErrBatchInProgress
	}
	defer s.running.Unlock()

	report := &models.BatchReport{
		RunID:     uuid.NewString(),
		Options:   opts,
		StartedAt: time.Now().UTC(),
	}

	release, err := s.guard.Acquire(ctx, report.RunID)
	if err != nil {
		return nil, err
	}
	defer release()

	cafes, err := s.repo.ListCafes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}

	dir := directory.Directory{}
	if opts.UsePlaceIDs && !opts.Mock {
		dir = s.loadDirectory()
	}

	if opts.Limit > 0 && len(cafes) > opts.Limit {
		cafes = cafes[:opts.Limit]
	}
	report.Total = len(cafes)

	log.Printf("Processing %d cafes (run %s)", len(cafes), report.RunID)

	var runErr error
	for i, cafe := range cafes {
		if i > 0 {
			if err := s.pace(ctx); err != nil {
				runErr = err
				break
			}
		}

		log.Printf("Processing cafe %d/%d: %s", i+1, len(cafes), cafe.Name)

		row, err := s.processCafe(ctx, cafe, dir, opts)
		report.Record(row)
		if err != nil {
			runErr = err
			break
		}
	}

	report.FinishedAt = time.Now().UTC()
	s.guard.SaveReport(ctx, report)

	log.Printf("Batch %s finished: %d real, %d synthetic, %d skipped, %d failed",
		report.RunID, report.Real, report.Synthetic, report.Skipped, report.Failed)

	return report, runErr
}

func (s *batchService) LastReport(ctx context.Context) (*models.BatchReport, bool, error) {
	return s.guard.LastReport(ctx)
}

// processCafe runs one row through resolve, fetch and write. Only storage
// connectivity errors and cancellation are returned; everything else is
// recorded on the row.
func (s *batchService) processCafe(ctx context.Context, cafe models.Cafe, dir directory.Directory, opts models.BatchOptions) (models.RowResult, error) {
	row := models.RowResult{CafeID: cafe.ID, Name: cafe.Name, State: models.StatePending}

	if opts.Mock {
		log.Printf("Generating mock data for %s", cafe.Name)
		return s.write(ctx, row, cafe, s.mock.Generate(cafe.Name))
	}

	known := ""
	if entry, ok := dir.Lookup(cafe.Name); ok {
		known = entry.PlaceID
		log.Printf("Found place ID for %s in directory: %s", cafe.Name, known)
	} else if opts.UsePlaceIDs {
		log.Printf("No place ID found for %s, trying without place ID", cafe.Name)
	}

	row.State = models.StateResolving
	res, resolved := s.resolver.Resolve(ctx, ResolveRequest{
		Name:         cafe.Name,
		Address:      cafe.Address,
		Lat:          cafe.Latitude,
		Lng:          cafe.Longitude,
		KnownPlaceID: known,
	})

	var payload *models.PopularTimes
	if resolved {
		row.PlaceID = res.PlaceID
		row.State = models.StateFetching
		payload, _ = s.fetcher.Fetch(ctx, res.PlaceID)
	}

	if err := ctx.Err(); err != nil {
		row.State = models.StateFailed
		row.Error = err.Error()
		return row, err
	}

	if payload != nil {
		return s.write(ctx, row, cafe, payload)
	}

	if opts.UseEmptyData {
		log.Printf("No popular times data found for %s, using empty data", cafe.Name)
		return s.write(ctx, row, cafe, Synthesize(cafe.Name, cafe.Address))
	}

	if !resolved {
		row.State = models.StateFailed
		row.Error = "no place identifier"
		log.Printf("Could not resolve place ID for %s, skipping", cafe.Name)
		return row, nil
	}

	row.State = models.StateSkipped
	row.Error = "no popular times data"
	log.Printf("No popular times data found for %s, skipping", cafe.Name)
	return row, nil
}

func (s *batchService) write(ctx context.Context, row models.RowResult, cafe models.Cafe, payload *models.PopularTimes) (models.RowResult, error) {
	row.Synthetic = payload.IsMockData
	if row.Synthetic {
		row.State = models.StateWritingSynthetic
	} else {
		row.State = models.StateWritingReal
	}

	if err := s.repo.WriteBusyness(ctx, cafe.ID, payload); err != nil {
		row.State = models.StateFailed
		row.Error = err.Error()
		log.Printf("Error updating %s: %v", cafe.Name, err)
		if errors.Is(err, repository.ErrStorageUnavailable) {
			return row, err
		}
		return row, nil
	}

	row.State = models.StateDone
	log.Printf("Updated popular times for %s", cafe.Name)
	return row, nil
}
