package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"cafepulse/internal/models"

	"golang.org/x/time/rate"
)

// LocationBiasRadius is the find-place bias circle radius in meters.
const LocationBiasRadius = 500

var ErrNoCandidates = errors.New("find place returned no candidates")

type FindPlaceQuery struct {
	Input string
	Lat   *float64
	Lng   *float64
}

type PlacesClient interface {
	FindPlace(ctx context.Context, q FindPlaceQuery) (*models.PlaceCandidate, error)
}

type PlacesConfig struct {
	APIKey            string
	FindPlaceURL      string
	RequestsPerSecond float64
	Timeout           time.Duration
}

type placesClient struct {
	apiKey       string
	findPlaceURL string
	limiter      *rate.Limiter
	client       *http.Client
}

type findPlaceResponse struct {
	Status       string                  `json:"status"`
	ErrorMessage string                  `json:"error_message"`
	Candidates   []models.PlaceCandidate `json:"candidates"`
}

func NewPlacesClient(config PlacesConfig) PlacesClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &placesClient{
		apiKey:       config.APIKey,
		findPlaceURL: config.FindPlaceURL,
		limiter:      rate.NewLimiter(limit, 1),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *placesClient) FindPlace(ctx context.Context, q FindPlaceQuery) (*models.PlaceCandidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Add("input", q.Input)
	params.Add("inputtype", "textquery")
	params.Add("fields", "place_id,formatted_address,name")
	params.Add("key", c.apiKey)
	if q.Lat != nil && q.Lng != nil {
		params.Add("locationbias", fmt.Sprintf("circle:%d@%v,%v", LocationBiasRadius, *q.Lat, *q.Lng))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.findPlaceURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("find place returned status %d: %s", resp.StatusCode, string(body))
	}

	var data findPlaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	if data.Status != "OK" || len(data.Candidates) == 0 {
		return nil, fmt.Errorf("%w: status=%s candidates=%d %s",
			ErrNoCandidates, data.Status, len(data.Candidates), data.ErrorMessage)
	}

	return &data.Candidates[0], nil
}
