package models

import (
	"time"

	"gorm.io/datatypes"
)

// Cafe is the validated view of a row in the cafes table.
type Cafe struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Address               string        `json:"address"`
	Latitude              *float64      `json:"latitude,omitempty"`
	Longitude             *float64      `json:"longitude,omitempty"`
	PopularTimes          *PopularTimes `json:"popular_times,omitempty"`
	PopularTimesUpdatedAt *time.Time    `json:"popular_times_updated_at,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (c Cafe) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// CafeRow maps the cafes table for gorm.
type CafeRow struct {
	ID                    string         `gorm:"primaryKey;type:text"`
	Name                  string         `gorm:"type:text"`
	Address               string         `gorm:"type:text"`
	Latitude              *float64       `gorm:"column:latitude"`
	Longitude             *float64       `gorm:"column:longitude"`
	PopularTimes          datatypes.JSON `gorm:"column:popular_times;type:jsonb"`
	PopularTimesUpdatedAt *time.Time     `gorm:"column:popular_times_updated_at"`
}

func (CafeRow) TableName() string {
	return "cafes"
}
