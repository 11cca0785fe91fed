package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cafepulse/internal/app"
	"cafepulse/internal/config"
	"cafepulse/internal/models"
	"cafepulse/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	opts := models.DefaultBatchOptions()
	var noPlaceIDs, noEmptyData bool
	var backend string

	flag.IntVar(&opts.Limit, "limit", 0, "Limit the number of cafes to process")
	flag.BoolVar(&noPlaceIDs, "no-place-ids", false, "Don't use place IDs from CSV file")
	flag.BoolVar(&noEmptyData, "no-empty-data", false, "Don't use empty data for cafes without popular times")
	flag.BoolVar(&opts.Mock, "mock", false, "Write realistic mock data instead of calling the APIs")
	flag.StringVar(&backend, "backend", "", "Storage backend: sql or rest (defaults to STORAGE_BACKEND)")
	flag.Parse()

	opts.UsePlaceIDs = !noPlaceIDs
	opts.UseEmptyData = !noEmptyData

	cfg := config.Load()
	if backend != "" {
		cfg.Storage.Backend = backend
	}

	if !opts.Mock {
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Configuration error: %v", err)
		}
	}

	repo, err := app.NewCafeRepository(cfg)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Testing storage connection...")
	count, err := repo.Count(ctx)
	if err != nil {
		log.Fatalf("Storage connection failed: %v", err)
	}
	log.Printf("Storage reachable, %d cafes", count)

	redisClient, err := app.ConnectRedis(cfg)
	if err != nil {
		log.Printf("Redis unavailable, running without run guard: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	batch := app.NewBatchService(cfg, repo, redisClient)

	report, err := batch.Run(ctx, opts)
	switch {
	case errors.Is(err, service.ErrBatchInProgress):
		log.Fatalf("Another batch is running: %v", err)
	case errors.Is(err, context.Canceled):
		log.Println("Interrupted, stopping after the current cafe")
	case err != nil:
		log.Fatalf("Batch failed: %v", err)
	}

	if report != nil {
		log.Printf("Done: %d cafes, %d real, %d synthetic, %d skipped, %d failed",
			report.Total, report.Real, report.Synthetic, report.Skipped, report.Failed)
	}
}
