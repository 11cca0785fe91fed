package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cafepulse/internal/models"
)

const restSelect = "id,name,address,latitude,longitude"

type restCafeRepository struct {
	baseURL            string
	apiKey             string
	requireCoordinates bool
	client             *http.Client
}

// restCafe is the PostgREST row shape. id may be text or a number.
type restCafe struct {
	ID                    json.RawMessage `json:"id"`
	Name                  string          `json:"name"`
	Address               string          `json:"address"`
	Latitude              *float64        `json:"latitude"`
	Longitude             *float64        `json:"longitude"`
	PopularTimes          json.RawMessage `json:"popular_times,omitempty"`
	PopularTimesUpdatedAt *string         `json:"popular_times_updated_at,omitempty"`
}

type restUpdate struct {
	PopularTimes          *models.PopularTimes `json:"popular_times"`
	PopularTimesUpdatedAt string               `json:"popular_times_updated_at"`
}

// NewRESTCafeRepository talks to the Supabase table endpoint {baseURL}/rest/v1/cafes.
func NewRESTCafeRepository(baseURL, apiKey string, requireCoordinates bool) CafeRepository {
	return &restCafeRepository{
		baseURL:            strings.TrimRight(baseURL, "/"),
		apiKey:             apiKey,
		requireCoordinates: requireCoordinates,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (r *restCafeRepository) newRequest(ctx context.Context, method string, params url.Values, body io.Reader) (*http.Request, error) {
	reqURL := r.baseURL + "/rest/v1/cafes"
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	return req, nil
}

func (r *restCafeRepository) do(req *http.Request) (*http.Response, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, unavailable(err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("supabase returned status %d: %s", resp.StatusCode, string(body))

	switch {
	case resp.StatusCode >= 500,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return nil, unavailable(err)
	default:
		return nil, err
	}
}

func (r *restCafeRepository) fetch(ctx context.Context, params url.Values) ([]models.Cafe, error) {
	req, err := r.newRequest(ctx, http.MethodGet, params, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rows []restCafe
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode cafes: %w", err)
	}

	cafes := make([]models.Cafe, 0, len(rows))
	for _, row := range rows {
		cafes = append(cafes, models.Cafe{
			ID:                    rawID(row.ID),
			Name:                  row.Name,
			Address:               row.Address,
			Latitude:              row.Latitude,
			Longitude:             row.Longitude,
			PopularTimes:          decodePopularTimes(row.PopularTimes),
			PopularTimesUpdatedAt: parseTimestamp(row.PopularTimesUpdatedAt),
		})
	}
	return validCafes(cafes), nil
}

func (r *restCafeRepository) ListCafes(ctx context.Context) ([]models.Cafe, error) {
	params := url.Values{}
	params.Set("select", restSelect)
	if r.requireCoordinates {
		params.Set("latitude", "not.is.null")
		params.Set("longitude", "not.is.null")
	}

	cafes, err := r.fetch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}

	log.Printf("Fetched %d cafes from Supabase", len(cafes))
	return cafes, nil
}

func (r *restCafeRepository) WriteBusyness(ctx context.Context, id string, payload *models.PopularTimes) error {
	body, err := json.Marshal(restUpdate{
		PopularTimes:          payload,
		PopularTimesUpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal popular times: %w", err)
	}

	params := url.Values{}
	params.Set("id", "eq."+id)

	req, err := r.newRequest(ctx, http.MethodPatch, params, bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := r.do(req)
	if err != nil {
		return fmt.Errorf("update cafe %s: %w", id, err)
	}
	resp.Body.Close()

	log.Printf("Updated popular times for cafe %s via Supabase REST API", id)
	return nil
}

func (r *restCafeRepository) GetByID(ctx context.Context, id string) (*models.Cafe, error) {
	params := url.Values{}
	params.Set("select", restSelect+",popular_times,popular_times_updated_at")
	params.Set("id", "eq."+id)

	cafes, err := r.fetch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("get cafe: %w", err)
	}
	if len(cafes) == 0 {
		return nil, ErrCafeNotFound
	}
	return &cafes[0], nil
}

func (r *restCafeRepository) ListWithPopularTimes(ctx context.Context) ([]models.Cafe, error) {
	params := url.Values{}
	params.Set("select", restSelect+",popular_times,popular_times_updated_at")
	params.Set("popular_times", "not.is.null")
	params.Set("order", "name")

	cafes, err := r.fetch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list popular times: %w", err)
	}
	return cafes, nil
}

func (r *restCafeRepository) Count(ctx context.Context) (int64, error) {
	params := url.Values{}
	params.Set("select", "id")

	req, err := r.newRequest(ctx, http.MethodHead, params, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")

	resp, err := r.do(req)
	if err != nil {
		return 0, fmt.Errorf("count cafes: %w", err)
	}
	resp.Body.Close()

	// Content-Range: 0-24/57 or */0
	contentRange := resp.Header.Get("Content-Range")
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 {
		return 0, fmt.Errorf("count cafes: missing Content-Range")
	}
	count, err := strconv.ParseInt(contentRange[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("count cafes: %w", err)
	}
	return count, nil
}

func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// parseTimestamp accepts both timestamptz and bare timestamp renderings.
func parseTimestamp(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t
		}
	}
	return nil
}
