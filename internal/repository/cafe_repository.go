package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"

	"cafepulse/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrStorageUnavailable marks failures to reach the backing store. A batch
	// aborts when it sees one.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrCafeNotFound       = errors.New("cafe not found")
)

// CafeRepository is implemented by the direct SQL gateway and the REST gateway.
type CafeRepository interface {
	ListCafes(ctx context.Context) ([]models.Cafe, error)
	WriteBusyness(ctx context.Context, id string, payload *models.PopularTimes) error
	GetByID(ctx context.Context, id string) (*models.Cafe, error)
	ListWithPopularTimes(ctx context.Context) ([]models.Cafe, error)
	Count(ctx context.Context) (int64, error)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn)
}

// validCafes drops rows without an id or name at the read boundary.
func validCafes(cafes []models.Cafe) []models.Cafe {
	out := cafes[:0]
	for _, c := range cafes {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" || strings.TrimSpace(c.Name) == "" {
			log.Printf("Skipping malformed cafe row id=%q name=%q", c.ID, c.Name)
			continue
		}
		out = append(out, c)
	}
	return out
}

func decodePopularTimes(raw []byte) *models.PopularTimes {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var p models.PopularTimes
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("Ignoring undecodable popular_times document: %v", err)
		return nil
	}
	return &p
}
