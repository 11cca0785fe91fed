package service

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"sync"

	"cafepulse/internal/clients"
	"cafepulse/internal/models"
)

// PopularityFetcher returns provider busyness data for a place id. A false
// result means no data was available; errors are logged, never returned.
type PopularityFetcher interface {
	Fetch(ctx context.Context, placeID string) (*models.PopularTimes, bool)
}

type popularityFetcher struct {
	client clients.PopularTimesClient
}

func NewPopularityFetcher(client clients.PopularTimesClient) PopularityFetcher {
	return &popularityFetcher{client: client}
}

func (f *popularityFetcher) Fetch(ctx context.Context, placeID string) (*models.PopularTimes, bool) {
	log.Printf("Fetching popular times using place ID: %s", placeID)

	record, err := f.client.GetByID(ctx, placeID)
	if err != nil {
		if errors.Is(err, clients.ErrPlaceNotFound) {
			log.Printf("Popular times provider does not know place %s", placeID)
		} else {
			log.Printf("Warning: popular times fetch for %s failed: %v", placeID, err)
		}
		return nil, false
	}

	if len(record.Days) == 0 {
		log.Printf("No popular times data for place %s", placeID)
		return nil, false
	}

	payload := &models.PopularTimes{
		PlaceID:     record.ID,
		Name:        record.Name,
		Address:     record.Address,
		Coordinates: record.Coordinates,
		Rating:      record.Rating,
		RatingCount: record.RatingCount,
		Days:        record.Days,
	}
	payload.Normalize()
	return payload, true
}

// Synthesize builds the placeholder payload used when no data exists: every
// hour of every weekday is 0 and the payload is flagged as mock data.
func Synthesize(name, address string) *models.PopularTimes {
	days := make([]models.DayPopularity, models.DaysPerWeek)
	for i, day := range models.Weekdays {
		days[i] = models.DayPopularity{Name: day, Data: make([]int, models.HoursPerDay)}
	}
	return &models.PopularTimes{
		Name:       name,
		Address:    address,
		Days:       days,
		IsMockData: true,
	}
}

// Band is an inclusive busyness range.
type Band struct {
	Min int
	Max int
}

// BandFor returns the mock range for a weekday index (0 = Monday) and hour.
func BandFor(dayIndex, hour int) Band {
	weekend := dayIndex >= 5
	pick := func(weekday, weekendBand Band) Band {
		if weekend {
			return weekendBand
		}
		return weekday
	}

	switch {
	case hour < 6:
		return Band{0, 5}
	case hour < 9:
		return Band{20, 60}
	case hour < 12:
		return pick(Band{70, 100}, Band{50, 90})
	case hour < 14:
		return Band{80, 100}
	case hour < 17:
		return Band{40, 70}
	case hour < 20:
		return pick(Band{40, 70}, Band{60, 90})
	case hour < 22:
		return pick(Band{20, 40}, Band{30, 50})
	default:
		return Band{0, 15}
	}
}

// Berkeley, where the mock cafes are placed.
var mockCoordinates = models.Coordinates{Lat: 37.8715, Lng: -122.2730}

// MockGenerator produces realistic-looking synthetic payloads.
type MockGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMockGenerator(src rand.Source) *MockGenerator {
	return &MockGenerator{rnd: rand.New(src)}
}

func (g *MockGenerator) intn(b Band) int {
	return b.Min + g.rnd.Intn(b.Max-b.Min+1)
}

func (g *MockGenerator) Generate(name string) *models.PopularTimes {
	g.mu.Lock()
	defer g.mu.Unlock()

	days := make([]models.DayPopularity, models.DaysPerWeek)
	for i, day := range models.Weekdays {
		hours := make([]int, models.HoursPerDay)
		for h := range hours {
			hours[h] = g.intn(BandFor(i, h))
		}
		days[i] = models.DayPopularity{Name: day, Data: hours}
	}

	rating := math.Round((3.5+g.rnd.Float64()*1.5)*10) / 10
	ratingCount := g.intn(Band{50, 500})
	coords := mockCoordinates

	return &models.PopularTimes{
		Name:        name,
		Address:     "Mock Address",
		Coordinates: &coords,
		Rating:      &rating,
		RatingCount: &ratingCount,
		Days:        days,
		IsMockData:  true,
	}
}
