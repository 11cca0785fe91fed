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
)

// ErrPlaceNotFound is returned when the provider does not know the place id.
var ErrPlaceNotFound = errors.New("place not found by popular times provider")

// PopularTimesClient talks to a populartimes-compatible provider which returns
// the m-wrzr/populartimes record for a place id.
type PopularTimesClient interface {
	GetByID(ctx context.Context, placeID string) (*PlaceRecord, error)
}

// PlaceRecord is the provider response. Days is nil when the place has no
// busyness data.
type PlaceRecord struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Address     string                 `json:"address"`
	Coordinates *models.Coordinates    `json:"coordinates,omitempty"`
	Rating      *float64               `json:"rating,omitempty"`
	RatingCount *int                   `json:"rating_n,omitempty"`
	Days        []models.DayPopularity `json:"populartimes,omitempty"`
}

type PopularTimesConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type popularTimesClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewPopularTimesClient(config PopularTimesConfig) PopularTimesClient {
	// Zero leaves the request bounded by ctx only.
	return &popularTimesClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

func (c *popularTimesClient) GetByID(ctx context.Context, placeID string) (*PlaceRecord, error) {
	reqURL := fmt.Sprintf("%s/places/%s", c.baseURL, url.PathEscape(placeID))
	if c.apiKey != "" {
		reqURL += "?" + url.Values{"key": {c.apiKey}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPlaceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var record PlaceRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if record.ID == "" {
		record.ID = placeID
	}

	return &record, nil
}
