package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"cafepulse/internal/clients"
	"cafepulse/internal/directory"
	"cafepulse/internal/models"
	"cafepulse/internal/repository"
)

var ErrAPIKeyRejected = errors.New("all test places failed, API key may be invalid or restricted")

const maxTestPlaces = 5

// Known Berkeley cafes used when the directory has no identifiers.
var defaultTestPlaces = []models.PlaceEntry{
	{PlaceID: "ChIJJe5a5i98hYARKF0NeaK-9kM", Name: "Caffe Strada"},
	{PlaceID: "ChIJS4sDZp5-hYARIW-0A3ZOoqM", Name: "Blue Bottle Coffee"},
	{PlaceID: "ChIJ0acevi58hYARWbsFtrpCPHI", Name: "Romeo's Coffee"},
	{PlaceID: "ChIJW2yuxCh8hYARGGQHIaJzsZc", Name: "1951 Coffee Company"},
}

type StorageStatus struct {
	Reachable bool  `json:"reachable"`
	Cafes     int64 `json:"cafes"`
}

type APIKeyStatus struct {
	PlaceID         string `json:"place_id"`
	PlaceName       string `json:"place_name"`
	Address         string `json:"address"`
	HasPopularTimes bool   `json:"has_popular_times"`
	PeakDay         string `json:"peak_day,omitempty"`
	PeakHour        int    `json:"peak_hour,omitempty"`
	PeakValue       int    `json:"peak_value,omitempty"`
}

type DiagnosticsService interface {
	CheckStorage(ctx context.Context) (*StorageStatus, error)
	CheckAPIKey(ctx context.Context, dir directory.Directory) (*APIKeyStatus, error)
}

type diagnosticsService struct {
	repo   repository.CafeRepository
	client clients.PopularTimesClient
}

func NewDiagnosticsService(repo repository.CafeRepository, client clients.PopularTimesClient) DiagnosticsService {
	return &diagnosticsService{repo: repo, client: client}
}

func (s *diagnosticsService) CheckStorage(ctx context.Context) (*StorageStatus, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return &StorageStatus{}, fmt.Errorf("storage check failed: %w", err)
	}
	log.Printf("Found cafes table with %d cafes", count)
	return &StorageStatus{Reachable: true, Cafes: count}, nil
}

// CheckAPIKey tries up to five known places and reports the first one the
// provider answers for.
func (s *diagnosticsService) CheckAPIKey(ctx context.Context, dir directory.Directory) (*APIKeyStatus, error) {
	places := testPlaces(dir)
	log.Printf("Testing API key against %d places", len(places))

	for _, place := range places {
		log.Printf("Testing with %s (ID: %s)...", place.Name, place.PlaceID)

		record, err := s.client.GetByID(ctx, place.PlaceID)
		if err != nil {
			log.Printf("API key test failed with %s: %v", place.Name, err)
			continue
		}

		status := &APIKeyStatus{
			PlaceID:   record.ID,
			PlaceName: record.Name,
			Address:   record.Address,
		}
		if len(record.Days) > 0 {
			status.HasPopularTimes = true
			status.PeakDay, status.PeakHour, status.PeakValue = peak(record.Days[0])
			log.Printf("Sample data for %s: peak hour at %d:00 with %d%% busy",
				status.PeakDay, status.PeakHour, status.PeakValue)
		} else {
			log.Printf("No popular times data available for %s", place.Name)
		}
		return status, nil
	}

	return nil, ErrAPIKeyRejected
}

func testPlaces(dir directory.Directory) []models.PlaceEntry {
	var places []models.PlaceEntry
	for _, entry := range dir {
		places = append(places, entry)
	}
	if len(places) == 0 {
		return defaultTestPlaces
	}

	sort.Slice(places, func(i, j int) bool { return places[i].Name < places[j].Name })
	if len(places) > maxTestPlaces {
		places = places[:maxTestPlaces]
	}
	return places
}

func peak(day models.DayPopularity) (string, int, int) {
	hour, value := 0, -1
	for h, v := range day.Data {
		if v > value {
			hour, value = h, v
		}
	}
	if value < 0 {
		value = 0
	}
	return day.Name, hour, value
}
