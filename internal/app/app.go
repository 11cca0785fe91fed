// Package app wires configuration into the storage, clients and services
// shared by the commands.
package app

import (
	"context"
	"log"
	"math/rand"
	"time"

	"cafepulse/internal/clients"
	"cafepulse/internal/config"
	"cafepulse/internal/directory"
	"cafepulse/internal/repository"
	"cafepulse/internal/service"
	"cafepulse/pkg/database"
	"cafepulse/pkg/redis"

	goredis "github.com/go-redis/redis/v8"
	"gorm.io/gorm/logger"
)

func DatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.DBName,
		SSLMode:  cfg.DB.SSLMode,
	}
}

func GormLogLevel(cfg *config.Config) logger.LogLevel {
	if cfg.App.Debug {
		return logger.Info
	}
	return logger.Warn
}

// NewCafeRepository picks the storage gateway for cfg.Storage.Backend.
func NewCafeRepository(cfg *config.Config) (repository.CafeRepository, error) {
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}

	if cfg.Storage.Backend == config.BackendREST {
		log.Printf("Using Supabase REST storage at %s", cfg.Supabase.URL)
		return repository.NewRESTCafeRepository(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.Storage.RequireCoordinates), nil
	}

	log.Printf("Using Postgres storage at %s:%s/%s", cfg.DB.Host, cfg.DB.Port, cfg.DB.DBName)
	connect := database.NewConnector(DatabaseConfig(cfg), GormLogLevel(cfg))
	return repository.NewSQLCafeRepository(connect, cfg.Storage.RequireCoordinates), nil
}

func NewPlacesClient(cfg *config.Config) clients.PlacesClient {
	return clients.NewPlacesClient(clients.PlacesConfig{
		APIKey:            cfg.Google.APIKey,
		FindPlaceURL:      cfg.Google.FindPlaceURL,
		RequestsPerSecond: cfg.Google.RequestsPerSecond,
		Timeout:           cfg.Google.Timeout,
	})
}

func NewPopularTimesClient(cfg *config.Config) clients.PopularTimesClient {
	return clients.NewPopularTimesClient(clients.PopularTimesConfig{
		BaseURL: cfg.PopularTimes.URL,
		APIKey:  cfg.Google.APIKey,
		Timeout: cfg.PopularTimes.Timeout,
	})
}

// ConnectRedis returns nil without error when Redis is disabled.
func ConnectRedis(cfg *config.Config) (*goredis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	return redis.Connect(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// NewBatchService assembles the orchestrator. redisClient may be nil.
func NewBatchService(cfg *config.Config, repo repository.CafeRepository, redisClient *goredis.Client) service.BatchService {
	var guard *service.RunGuard
	if redisClient != nil {
		guard = service.NewRunGuard(repository.NewCacheRepository(redisClient))
	}

	paths := cfg.Directory.Paths
	if len(paths) == 0 {
		paths = directory.DefaultPaths()
	}

	seed := time.Now().UnixNano()
	return service.NewBatchService(service.BatchDeps{
		Repo:          repo,
		Resolver:      service.NewPlaceResolver(NewPlacesClient(cfg)),
		Fetcher:       service.NewPopularityFetcher(NewPopularTimesClient(cfg)),
		Mock:          service.NewMockGenerator(rand.NewSource(seed)),
		LoadDirectory: func() directory.Directory { return directory.Load(paths...) },
		Guard:         guard,
		Pace:          service.RandomPacer(cfg.Batch.MinDelay, cfg.Batch.MaxDelay, rand.NewSource(seed+1)),
	})
}

// RedisPing adapts a client for the health check; nil stays nil.
func RedisPing(client *goredis.Client) func(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
