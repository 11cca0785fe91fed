package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"cafepulse/internal/models"
	"cafepulse/pkg/database"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const cafeColumns = "id, name, address, latitude, longitude"

type sqlCafeRepository struct {
	connect            database.Connector
	requireCoordinates bool
	migrated           atomic.Bool
}

// NewSQLCafeRepository opens a connection per call through connect and closes
// it before returning.
func NewSQLCafeRepository(connect database.Connector, requireCoordinates bool) CafeRepository {
	return &sqlCafeRepository{
		connect:            connect,
		requireCoordinates: requireCoordinates,
	}
}

func (r *sqlCafeRepository) open(ctx context.Context) (*gorm.DB, error) {
	db, err := r.connect(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return db.WithContext(ctx), nil
}

func (r *sqlCafeRepository) wrap(op string, err error) error {
	if isConnectionError(err) {
		return unavailable(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *sqlCafeRepository) ListCafes(ctx context.Context) ([]models.Cafe, error) {
	db, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer database.Close(db)

	query := db.Model(&models.CafeRow{}).Select(cafeColumns)
	if r.requireCoordinates {
		query = query.Where("latitude IS NOT NULL AND longitude IS NOT NULL")
	}

	var rows []models.CafeRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, r.wrap("list cafes", err)
	}

	return validCafes(toCafes(rows)), nil
}

func (r *sqlCafeRepository) WriteBusyness(ctx context.Context, id string, payload *models.PopularTimes) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal popular times: %w", err)
	}

	db, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if !r.migrated.Load() {
		if err := database.EnsurePopularTimesColumns(ctx, db); err != nil {
			return r.wrap("migrate cafes", err)
		}
		r.migrated.Store(true)
	}

	result := db.Model(&models.CafeRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"popular_times":            datatypes.JSON(data),
			"popular_times_updated_at": gorm.Expr("NOW()"),
		})
	return r.writeResult(id, result)
}

// writeResult treats an update that matched no row as a logged no-op.
func (r *sqlCafeRepository) writeResult(id string, result *gorm.DB) error {
	if result.Error != nil {
		return r.wrap("update cafe "+id, result.Error)
	}

	if result.RowsAffected == 0 {
		log.Printf("Cafe %s not found on write, nothing updated", id)
		return nil
	}

	log.Printf("Updated popular times for cafe %s", id)
	return nil
}

func (r *sqlCafeRepository) GetByID(ctx context.Context, id string) (*models.Cafe, error) {
	db, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer database.Close(db)

	var row models.CafeRow
	err = db.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCafeNotFound
	}
	if err != nil {
		return nil, r.wrap("get cafe", err)
	}

	cafe := toCafe(row)
	return &cafe, nil
}

func (r *sqlCafeRepository) ListWithPopularTimes(ctx context.Context) ([]models.Cafe, error) {
	db, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer database.Close(db)

	var rows []models.CafeRow
	err = db.Where("popular_times IS NOT NULL").
		Order("name").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.wrap("list popular times", err)
	}

	return validCafes(toCafes(rows)), nil
}

func (r *sqlCafeRepository) Count(ctx context.Context) (int64, error) {
	db, err := r.open(ctx)
	if err != nil {
		return 0, err
	}
	defer database.Close(db)

	var count int64
	if err := db.Model(&models.CafeRow{}).Count(&count).Error; err != nil {
		return 0, r.wrap("count cafes", err)
	}
	return count, nil
}

func toCafe(row models.CafeRow) models.Cafe {
	return models.Cafe{
		ID:                    row.ID,
		Name:                  row.Name,
		Address:               row.Address,
		Latitude:              row.Latitude,
		Longitude:             row.Longitude,
		PopularTimes:          decodePopularTimes(row.PopularTimes),
		PopularTimesUpdatedAt: row.PopularTimesUpdatedAt,
	}
}

func toCafes(rows []models.CafeRow) []models.Cafe {
	cafes := make([]models.Cafe, 0, len(rows))
	for _, row := range rows {
		cafes = append(cafes, toCafe(row))
	}
	return cafes
}
