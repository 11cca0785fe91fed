package service

import (
	"context"
	"fmt"
	"log"

	"cafepulse/internal/directory"
	"cafepulse/internal/models"
	"cafepulse/internal/repository"
)

const DefaultCityHint = "Berkeley CA"

type PlaceIDResult struct {
	Entries []models.PlaceEntry
	Found   int
}

// PlaceIDService discovers place ids for every stored cafe and writes the
// directory side files.
type PlaceIDService interface {
	Discover(ctx context.Context, cityHint string) (*PlaceIDResult, error)
	DiscoverAndSave(ctx context.Context, cityHint, csvPath, jsonPath string) (*PlaceIDResult, error)
}

type placeIDService struct {
	repo     repository.CafeRepository
	resolver PlaceResolver
}

func NewPlaceIDService(repo repository.CafeRepository, resolver PlaceResolver) PlaceIDService {
	return &placeIDService{repo: repo, resolver: resolver}
}

func (s *placeIDService) Discover(ctx context.Context, cityHint string) (*PlaceIDResult, error) {
	cafes, err := s.repo.ListCafes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}

	log.Printf("Finding Place IDs for %d cafes...", len(cafes))

	result := &PlaceIDResult{Entries: make([]models.PlaceEntry, 0, len(cafes))}
	for _, cafe := range cafes {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		entry := models.PlaceEntry{Name: cafe.Name, Address: cafe.Address}
		if cand, ok := s.resolver.ResolveWithNameFallback(ctx, cafe.Name, cafe.Address, cityHint); ok {
			entry.PlaceID = cand.PlaceID
			entry.GoogleName = cand.Name
			entry.GoogleAddress = cand.FormattedAddress
			result.Found++
		}
		result.Entries = append(result.Entries, entry)
	}

	log.Printf("Found Place IDs for %d out of %d cafes", result.Found, len(cafes))
	if result.Found < len(cafes) {
		log.Println("Some cafes could not be found. Check the CSV file for details.")
	}
	return result, nil
}

func (s *placeIDService) DiscoverAndSave(ctx context.Context, cityHint, csvPath, jsonPath string) (*PlaceIDResult, error) {
	result, err := s.Discover(ctx, cityHint)
	if err != nil {
		return nil, err
	}
	if err := directory.Save(csvPath, jsonPath, result.Entries); err != nil {
		return nil, fmt.Errorf("save place ids: %w", err)
	}
	log.Printf("Results saved to %s", csvPath)
	return result, nil
}
