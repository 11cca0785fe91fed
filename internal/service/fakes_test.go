package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"cafepulse/internal/clients"
	"cafepulse/internal/models"
	"cafepulse/internal/repository"
)

type fakeCafeRepo struct {
	mu       sync.Mutex
	cafes    []models.Cafe
	listErr  error
	writeErr map[string]error
	written  map[string]*models.PopularTimes
	order    []string
}

func newFakeCafeRepo(cafes ...models.Cafe) *fakeCafeRepo {
	return &fakeCafeRepo{
		cafes:    cafes,
		writeErr: map[string]error{},
		written:  map[string]*models.PopularTimes{},
	}
}

func (r *fakeCafeRepo) ListCafes(ctx context.Context) ([]models.Cafe, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]models.Cafe(nil), r.cafes...), nil
}

func (r *fakeCafeRepo) WriteBusyness(ctx context.Context, id string, payload *models.PopularTimes) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writeErr[id]; err != nil {
		return err
	}
	r.written[id] = payload
	r.order = append(r.order, id)
	return nil
}

func (r *fakeCafeRepo) GetByID(ctx context.Context, id string) (*models.Cafe, error) {
	for _, c := range r.cafes {
		if c.ID == id {
			c := c
			c.PopularTimes = r.written[id]
			return &c, nil
		}
	}
	return nil, repository.ErrCafeNotFound
}

func (r *fakeCafeRepo) ListWithPopularTimes(ctx context.Context) ([]models.Cafe, error) {
	var out []models.Cafe
	for _, c := range r.cafes {
		if p, ok := r.written[c.ID]; ok {
			c.PopularTimes = p
			now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
			c.PopularTimesUpdatedAt = &now
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCafeRepo) Count(ctx context.Context) (int64, error) {
	if r.listErr != nil {
		return 0, r.listErr
	}
	return int64(len(r.cafes)), nil
}

// fakePlaces answers find-place by exact input string.
type fakePlaces struct {
	mu      sync.Mutex
	results map[string]string
	queries []clients.FindPlaceQuery
	onFind  func()
}

func (p *fakePlaces) FindPlace(ctx context.Context, q clients.FindPlaceQuery) (*models.PlaceCandidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, q)
	if p.onFind != nil {
		p.onFind()
	}
	if id, ok := p.results[q.Input]; ok {
		return &models.PlaceCandidate{PlaceID: id, Name: q.Input}, nil
	}
	return nil, clients.ErrNoCandidates
}

type fakePopularTimes struct {
	records map[string]*clients.PlaceRecord
	calls   []string
}

func (p *fakePopularTimes) GetByID(ctx context.Context, placeID string) (*clients.PlaceRecord, error) {
	p.calls = append(p.calls, placeID)
	if rec, ok := p.records[placeID]; ok {
		return rec, nil
	}
	return nil, clients.ErrPlaceNotFound
}

func busyRecord(id string, value int) *clients.PlaceRecord {
	days := make([]models.DayPopularity, models.DaysPerWeek)
	for i, name := range models.Weekdays {
		hours := make([]int, models.HoursPerDay)
		for h := range hours {
			hours[h] = value
		}
		days[i] = models.DayPopularity{Name: name, Data: hours}
	}
	return &clients.PlaceRecord{ID: id, Name: "Provider " + id, Days: days}
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *fakeCache) SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = value
	return true, nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal([]byte(val), dest)
}

func (c *fakeCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = string(b)
	return nil
}
