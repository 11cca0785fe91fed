package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		quote(c.Host), quote(c.Port), quote(c.User), quote(c.Password), quote(c.DBName), quote(c.SSLMode),
	)
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quote renders a keyword/value DSN value, escaping backslashes and quotes.
func quote(v string) string {
	return "'" + dsnEscaper.Replace(v) + "'"
}

// Connector opens a fresh connection. Callers close it with Close.
type Connector func(ctx context.Context) (*gorm.DB, error)

func Connect(config Config, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connected successfully")
	return db, nil
}

// NewConnector returns a Connector that opens a single-connection handle and
// pings it, so each storage call owns its connection for its whole lifetime.
func NewConnector(config Config, level logger.LogLevel) Connector {
	return func(ctx context.Context) (*gorm.DB, error) {
		db, err := gorm.Open(postgres.Open(config.DSN()), &gorm.Config{
			Logger: logger.Default.LogMode(level),
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)

		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return db, nil
	}
}

func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// EnsurePopularTimesColumns adds the busyness columns to cafes if absent.
func EnsurePopularTimesColumns(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).Exec(`
		ALTER TABLE cafes
		ADD COLUMN IF NOT EXISTS popular_times JSONB,
		ADD COLUMN IF NOT EXISTS popular_times_updated_at TIMESTAMP
	`).Error
	if err != nil {
		return fmt.Errorf("failed to add popular_times columns: %w", err)
	}

	if err := db.WithContext(ctx).Exec(
		"CREATE INDEX IF NOT EXISTS idx_cafes_popular_times_updated_at ON cafes(popular_times_updated_at DESC NULLS LAST)",
	).Error; err != nil {
		return fmt.Errorf("failed to create popular_times index: %w", err)
	}

	return nil
}

// ServerVersion returns the version string reported by the server.
func ServerVersion(ctx context.Context, db *gorm.DB) (string, error) {
	var version string
	if err := db.WithContext(ctx).Raw("SELECT version()").Scan(&version).Error; err != nil {
		return "", fmt.Errorf("failed to query server version: %w", err)
	}
	return version, nil
}
