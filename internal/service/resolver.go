package service

import (
	"context"
	"log"
	"strings"

	"cafepulse/internal/clients"
	"cafepulse/internal/models"
)

type ResolutionSource string

const (
	SourceFindPlace ResolutionSource = "find_place"
	SourceDirectory ResolutionSource = "directory"
)

type ResolveRequest struct {
	Name         string
	Address      string
	Lat          *float64
	Lng          *float64
	KnownPlaceID string
}

type Resolution struct {
	PlaceID   string
	Source    ResolutionSource
	Candidate *models.PlaceCandidate
}

// PlaceResolver turns a human-entered cafe name and address into a place id.
// A false result means no identifier could be found and is not an error.
type PlaceResolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (Resolution, bool)
	ResolveWithNameFallback(ctx context.Context, name, address, cityHint string) (*models.PlaceCandidate, bool)
}

type placeResolver struct {
	client clients.PlacesClient
}

func NewPlaceResolver(client clients.PlacesClient) PlaceResolver {
	return &placeResolver{client: client}
}

func composeQuery(name, address string) string {
	query := strings.TrimSpace(name)
	if address = strings.TrimSpace(address); address != "" {
		query = strings.TrimSpace(query + " " + address)
	}
	return query
}

// Resolve always tries a live find-place lookup first and only falls back to
// KnownPlaceID when the lookup yields nothing.
func (r *placeResolver) Resolve(ctx context.Context, req ResolveRequest) (Resolution, bool) {
	log.Printf("Resolving place ID for %s via Find Place", req.Name)

	q := clients.FindPlaceQuery{Input: composeQuery(req.Name, req.Address)}
	if req.Lat != nil && req.Lng != nil {
		q.Lat, q.Lng = req.Lat, req.Lng
	}

	cand, err := r.client.FindPlace(ctx, q)
	if err == nil && cand.PlaceID != "" {
		log.Printf("Resolved place_id for %s: %s (Google name: %s, addr: %s)",
			req.Name, cand.PlaceID, cand.Name, cand.FormattedAddress)
		return Resolution{PlaceID: cand.PlaceID, Source: SourceFindPlace, Candidate: cand}, true
	}
	if err != nil {
		log.Printf("Find Place failed for %s: %v", req.Name, err)
	}

	if req.KnownPlaceID != "" {
		log.Printf("Falling back to known place_id=%s for %s", req.KnownPlaceID, req.Name)
		return Resolution{PlaceID: req.KnownPlaceID, Source: SourceDirectory}, true
	}

	log.Printf("Could not resolve place ID for %s", req.Name)
	return Resolution{}, false
}

// ResolveWithNameFallback retries a failed name+address lookup once with the
// name and a city hint only.
func (r *placeResolver) ResolveWithNameFallback(ctx context.Context, name, address, cityHint string) (*models.PlaceCandidate, bool) {
	cand, err := r.client.FindPlace(ctx, clients.FindPlaceQuery{Input: composeQuery(name, address)})
	if err == nil && cand.PlaceID != "" {
		log.Printf("Found Place ID for %s: %s", name, cand.PlaceID)
		return cand, true
	}

	if cityHint == "" {
		log.Printf("Could not find Place ID for %s: %v", name, err)
		return nil, false
	}

	log.Printf("Could not find %s with full address. Trying with name only...", name)
	cand, err = r.client.FindPlace(ctx, clients.FindPlaceQuery{Input: composeQuery(name, cityHint)})
	if err == nil && cand.PlaceID != "" {
		log.Printf("Found Place ID for %s (name only): %s", name, cand.PlaceID)
		return cand, true
	}

	log.Printf("Could not find Place ID for %s: %v", name, err)
	return nil, false
}
