package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrMissingAPIKey   = errors.New("GOOGLE_MAPS_API_KEY environment variable not set")
	ErrMissingSupabase = errors.New("SUPABASE_URL and SUPABASE_ANON_KEY must be set for the rest backend")
	ErrUnknownBackend  = errors.New("unknown storage backend")
)

const (
	BackendSQL  = "sql"
	BackendREST = "rest"
)

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type Config struct {
	App struct {
		Port        string
		Debug       bool
		FrontendURL string
	}
	DB      DBConfig
	Storage struct {
		Backend            string
		RequireCoordinates bool
	}
	Supabase struct {
		URL     string
		AnonKey string
	}
	Google struct {
		APIKey            string
		FindPlaceURL      string
		RequestsPerSecond float64
		Timeout           time.Duration
	}
	PopularTimes struct {
		URL     string
		Timeout time.Duration
	}
	Directory struct {
		Paths []string
	}
	Batch struct {
		MinDelay time.Duration
		MaxDelay time.Duration
	}
	Redis struct {
		Enabled  bool
		Host     string
		Port     string
		Password string
		DB       int
	}
	Workers struct {
		PopularTimesEnabled  bool
		PopularTimesInterval time.Duration
	}
	RateLimit struct {
		RequestsPerSecond int
		Burst             int
	}
	Export struct {
		OutputDir string
	}
}

func Load() *Config {
	cfg := &Config{}

	// App
	cfg.App.Port = getEnv("PORT", "8080")
	cfg.App.Debug = getEnvAsBool("DEBUG", false)
	cfg.App.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:3000")

	// DB
	cfg.DB = ResolveDB(os.Getenv("DATABASE_URL"))

	// Storage
	cfg.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", BackendSQL))
	cfg.Storage.RequireCoordinates = getEnvAsBool("REQUIRE_COORDINATES", false)

	// Supabase REST
	cfg.Supabase.URL = strings.TrimRight(getEnv("SUPABASE_URL", ""), "/")
	cfg.Supabase.AnonKey = getEnv("SUPABASE_ANON_KEY", "")

	// Google Places
	cfg.Google.APIKey = getEnv("GOOGLE_MAPS_API_KEY", "")
	cfg.Google.FindPlaceURL = getEnv("GOOGLE_FIND_PLACE_URL",
		"https://maps.googleapis.com/maps/api/place/findplacefromtext/json")
	cfg.Google.RequestsPerSecond = getEnvAsFloat("GOOGLE_RPS", 5)
	cfg.Google.Timeout = getEnvAsDuration("GOOGLE_TIMEOUT", 10*time.Second)

	// Popular times provider
	cfg.PopularTimes.URL = strings.TrimRight(getEnv("POPULARTIMES_URL", "http://localhost:8000"), "/")
	cfg.PopularTimes.Timeout = getEnvAsDuration("POPULARTIMES_TIMEOUT", 0)

	// Place directory
	if paths := getEnv("PLACE_IDS_CSV", ""); paths != "" {
		cfg.Directory.Paths = strings.Split(paths, string(os.PathListSeparator))
	}

	// Batch pacing
	cfg.Batch.MinDelay = getEnvAsDuration("BATCH_MIN_DELAY", 2*time.Second)
	cfg.Batch.MaxDelay = getEnvAsDuration("BATCH_MAX_DELAY", 5*time.Second)

	// Redis
	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", false)
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnv("REDIS_PORT", "6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)

	// Workers
	cfg.Workers.PopularTimesEnabled = getEnvAsBool("POPULAR_TIMES_WORKER_ENABLED", true)
	cfg.Workers.PopularTimesInterval = getEnvAsDuration("WORKER_POPULAR_TIMES_INTERVAL", 7*24*time.Hour)

	// Rate Limit
	cfg.RateLimit.RequestsPerSecond = getEnvAsInt("RATE_LIMIT_RPS", 10)
	cfg.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 20)

	cfg.Export.OutputDir = getEnv("EXPORT_OUTPUT_DIR", "./data/exports")

	return cfg
}

// ResolveDB builds the connection descriptor. A connection URL wins over the
// discrete DB_* variables and always forces sslmode=require.
func ResolveDB(databaseURL string) DBConfig {
	if databaseURL != "" {
		pc, err := pgconn.ParseConfig(databaseURL)
		if err == nil {
			db := DBConfig{
				Host:     pc.Host,
				Port:     strconv.Itoa(int(pc.Port)),
				User:     pc.User,
				Password: pc.Password,
				DBName:   pc.Database,
				SSLMode:  "require",
			}
			if db.DBName == "" {
				db.DBName = "postgres"
			}
			return db
		}
		log.Printf("Ignoring unparseable DATABASE_URL: %v", err)
	}

	return DBConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// Validate checks the settings a batch cannot start without.
func (c *Config) Validate() error {
	if c.Google.APIKey == "" {
		return ErrMissingAPIKey
	}
	return c.ValidateStorage()
}

func (c *Config) ValidateStorage() error {
	switch c.Storage.Backend {
	case BackendSQL:
		return nil
	case BackendREST:
		if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
			return ErrMissingSupabase
		}
		return nil
	default:
		return ErrUnknownBackend
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if dur, err := time.ParseDuration(value); err == nil {
			return dur
		}
	}
	return defaultValue
}
