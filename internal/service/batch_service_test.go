package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"cafepulse/internal/clients"
	"cafepulse/internal/directory"
	"cafepulse/internal/models"
	"cafepulse/internal/repository"
)

type batchFixture struct {
	repo   *fakeCafeRepo
	places *fakePlaces
	pt     *fakePopularTimes
	dir    directory.Directory
	paced  int
}

func newBatchFixture(cafes ...models.Cafe) *batchFixture {
	return &batchFixture{
		repo:   newFakeCafeRepo(cafes...),
		places: &fakePlaces{results: map[string]string{}},
		pt:     &fakePopularTimes{records: map[string]*clients.PlaceRecord{}},
		dir:    directory.Directory{},
	}
}

func (f *batchFixture) service(guard *RunGuard) BatchService {
	return NewBatchService(BatchDeps{
		Repo:          f.repo,
		Resolver:      NewPlaceResolver(f.places),
		Fetcher:       NewPopularityFetcher(f.pt),
		Mock:          NewMockGenerator(rand.NewSource(7)),
		LoadDirectory: func() directory.Directory { return f.dir },
		Guard:         guard,
		Pace: func(ctx context.Context) error {
			f.paced++
			return nil
		},
	})
}

func cafe(id, name, address string) models.Cafe {
	return models.Cafe{ID: id, Name: name, Address: address}
}

func TestBatchDirectoryFallbackAndLiveLookup(t *testing.T) {
	f := newBatchFixture(cafe("a", "A", "1 First St"), cafe("b", "B", "2 Second St"))
	f.dir["A"] = models.PlaceEntry{Name: "A", PlaceID: "DIR_A"}
	f.places.results["B 2 Second St"] = "P123"
	f.pt.records["DIR_A"] = busyRecord("DIR_A", 40)
	f.pt.records["P123"] = busyRecord("P123", 60)

	report, err := f.service(nil).Run(context.Background(), models.DefaultBatchOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Total != 2 || report.Real != 2 || report.Synthetic != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if got := f.repo.written["a"]; got == nil || got.Days[0].Data[9] != 40 || got.IsMockData {
		t.Errorf("row A should carry directory place data, got %+v", got)
	}
	if got := f.repo.written["b"]; got == nil || got.Days[3].Data[12] != 60 {
		t.Errorf("row B should carry P123 data, got %+v", got)
	}
	if report.Rows[0].PlaceID != "DIR_A" || report.Rows[1].PlaceID != "P123" {
		t.Errorf("unexpected place ids %q %q", report.Rows[0].PlaceID, report.Rows[1].PlaceID)
	}
}

func TestBatchFallsBackToSyntheticWhenFetchFails(t *testing.T) {
	f := newBatchFixture(cafe("a", "A", "1 First St"))
	f.dir["A"] = models.PlaceEntry{Name: "A", PlaceID: "DIR_A"}

	report, err := f.service(nil).Run(context.Background(), models.DefaultBatchOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := f.repo.written["a"]
	if got == nil || !got.IsMockData || !got.Complete() {
		t.Fatalf("expected complete synthetic payload, got %+v", got)
	}
	for _, day := range got.Days {
		for _, v := range day.Data {
			if v != 0 {
				t.Fatalf("synthetic payload must be all zeros, got %d on %s", v, day.Name)
			}
		}
	}
	if report.Synthetic != 1 || !report.Rows[0].Synthetic || report.Rows[0].State != models.StateDone {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestBatchLiveLookupWinsOverDirectory(t *testing.T) {
	f := newBatchFixture(cafe("a", "A", ""))
	f.dir["A"] = models.PlaceEntry{Name: "A", PlaceID: "DIR_A"}
	f.places.results["A"] = "LIVE_A"
	f.pt.records["LIVE_A"] = busyRecord("LIVE_A", 10)
	f.pt.records["DIR_A"] = busyRecord("DIR_A", 90)

	if _, err := f.service(nil).Run(context.Background(), models.DefaultBatchOptions()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(f.pt.calls) != 1 || f.pt.calls[0] != "LIVE_A" {
		t.Errorf("expected single fetch for LIVE_A, got %v", f.pt.calls)
	}
}

func TestBatchLimitProcessesFirstRows(t *testing.T) {
	var cafes []models.Cafe
	for i := 0; i < 5; i++ {
		cafes = append(cafes, cafe(fmt.Sprintf("c%d", i), fmt.Sprintf("Cafe %d", i), ""))
	}
	f := newBatchFixture(cafes...)

	opts := models.DefaultBatchOptions()
	opts.Limit = 2
	report, err := f.service(nil).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Total != 2 || len(f.repo.order) != 2 {
		t.Fatalf("expected 2 rows processed, got total=%d writes=%v", report.Total, f.repo.order)
	}
	if f.repo.order[0] != "c0" || f.repo.order[1] != "c1" {
		t.Errorf("rows out of order: %v", f.repo.order)
	}
	if f.paced != 1 {
		t.Errorf("expected pacing only between rows, got %d waits", f.paced)
	}
}

func TestBatchNoIdentifierWithoutEmptyData(t *testing.T) {
	f := newBatchFixture(cafe("a", "A", ""), cafe("b", "B", ""))
	f.places.results["B"] = "P_B"

	opts := models.DefaultBatchOptions()
	opts.UseEmptyData = false
	report, err := f.service(nil).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(f.repo.written) != 0 {
		t.Fatalf("nothing should be written, got %v", f.repo.order)
	}
	if report.Rows[0].State != models.StateFailed {
		t.Errorf("row without identifier should fail, got %s", report.Rows[0].State)
	}
	if report.Rows[1].State != models.StateSkipped {
		t.Errorf("row without data should be skipped, got %s", report.Rows[1].State)
	}
	if report.Failed != 1 || report.Skipped != 1 {
		t.Errorf("unexpected counters %+v", report)
	}
}

func TestBatchIgnoresDirectoryWhenDisabled(t *testing.T) {
	f := newBatchFixture(cafe("a", "A", ""))
	f.dir["A"] = models.PlaceEntry{Name: "A", PlaceID: "DIR_A"}
	f.pt.records["DIR_A"] = busyRecord("DIR_A", 50)

	opts := models.DefaultBatchOptions()
	opts.UsePlaceIDs = false
	if _, err := f.service(nil).Run(context.Background(), opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(f.pt.calls) != 0 {
		t.Errorf("directory must not be consulted, fetched %v", f.pt.calls)
	}
	if got := f.repo.written["a"]; got == nil || !got.IsMockData {
		t.Errorf("expected synthetic payload, got %+v", got)
	}
}

func TestBatchMockModeUsesBands(t *testing.T) {
	f := newBatchFixture(cafe("a", "A", ""))

	opts := models.DefaultBatchOptions()
	opts.Mock = true
	if _, err := f.service(nil).Run(context.Background(), opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := f.repo.written["a"]
	if got == nil || !got.IsMockData || !got.Complete() {
		t.Fatalf("expected complete mock payload, got %+v", got)
	}
	for d, day := range got.Days {
		for h, v := range day.Data {
			b := BandFor(d, h)
			if v < b.Min || v > b.Max {
				t.Fatalf("%s %02d:00 = %d outside [%d,%d]", day.Name, h, v, b.Min, b.Max)
			}
		}
	}
	if got.Rating == nil || *got.Rating < 3.5 || *got.Rating > 5.0 {
		t.Errorf("rating out of range: %v", got.Rating)
	}
	if got.RatingCount == nil || *got.RatingCount < 50 || *got.RatingCount > 500 {
		t.Errorf("rating count out of range: %v", got.RatingCount)
	}
	if len(f.places.queries) != 0 {
		t.Errorf("mock mode must not call find-place, got %d queries", len(f.places.queries))
	}
}

func TestBatchStorageUnavailableAborts(t *testing.T) {
	f := newBatchFixture(cafe("a", "A", ""), cafe("b", "B", ""), cafe("c", "C", ""))
	f.repo.writeErr["b"] = fmt.Errorf("%w: connection refused", repository.ErrStorageUnavailable)

	report, err := f.service(nil).Run(context.Background(), models.DefaultBatchOptions())
	if !errors.Is(err, repository.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if len(report.Rows) != 2 || f.repo.written["c"] != nil {
		t.Errorf("batch should stop at the failing row, rows=%d", len(report.Rows))
	}
}

func TestBatchCancelledMidRowStopsWithoutWriting(t *testing.T) {
	f := newBatchFixture(cafe("a", "A", "1 First St"), cafe("b", "B", ""))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.places.onFind = cancel

	report, err := f.service(nil).Run(ctx, models.DefaultBatchOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(f.repo.written) != 0 {
		t.Errorf("no placeholder should be written after cancellation, got %v", f.repo.order)
	}
	if len(report.Rows) != 1 || report.Rows[0].State != models.StateFailed {
		t.Errorf("expected a single failed row, got %+v", report.Rows)
	}
}

func TestBatchRowWriteErrorContinues(t *testing.T) {
	f := newBatchFixture(cafe("a", "A", ""), cafe("b", "B", ""))
	f.repo.writeErr["a"] = errors.New("value too long")

	report, err := f.service(nil).Run(context.Background(), models.DefaultBatchOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Failed != 1 || report.Synthetic != 1 {
		t.Errorf("unexpected counters %+v", report)
	}
}

func TestBatchListErrorIsFatal(t *testing.T) {
	f := newBatchFixture()
	f.repo.listErr = repository.ErrStorageUnavailable

	if _, err := f.service(nil).Run(context.Background(), models.DefaultBatchOptions()); !errors.Is(err, repository.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestBatchGuardRejectsOverlapAndStoresReport(t *testing.T) {
	cache := newFakeCache()
	guard := NewRunGuard(cache)
	f := newBatchFixture(cafe("a", "A", ""))
	svc := f.service(guard)

	cache.data[lockKey] = "other-run"
	if _, err := svc.Run(context.Background(), models.DefaultBatchOptions()); !errors.Is(err, ErrBatchInProgress) {
		t.Fatalf("expected ErrBatchInProgress, got %v", err)
	}
	delete(cache.data, lockKey)

	report, err := svc.Run(context.Background(), models.DefaultBatchOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, held := cache.data[lockKey]; held {
		t.Error("lock should be released after the run")
	}

	last, found, err := svc.LastReport(context.Background())
	if err != nil || !found {
		t.Fatalf("LastReport: found=%v err=%v", found, err)
	}
	if last.RunID != report.RunID || last.Total != 1 {
		t.Errorf("unexpected stored report %+v", last)
	}
}

func TestRandomPacerHonoursContext(t *testing.T) {
	pace := RandomPacer(time.Hour, time.Hour, rand.NewSource(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := pace(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRandomPacerWithinBounds(t *testing.T) {
	pace := RandomPacer(time.Millisecond, 3*time.Millisecond, rand.NewSource(1))
	start := time.Now()
	if err := pace(context.Background()); err != nil {
		t.Fatalf("pace: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Millisecond {
		t.Errorf("paced for %v, want at least 1ms", elapsed)
	}
}
