package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"cafepulse/internal/app"
	"cafepulse/internal/config"
	"cafepulse/internal/directory"
	"cafepulse/internal/service"
	"cafepulse/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	skipDB := flag.Bool("skip-db", false, "Skip the storage check")
	skipAPI := flag.Bool("skip-api", false, "Skip the API key check")
	flag.Parse()

	cfg := config.Load()

	log.Println("=== Connection Check ===")
	log.Printf("Google API key set: %v", cfg.Google.APIKey != "")
	log.Printf("Storage backend: %s", cfg.Storage.Backend)

	if cfg.Google.APIKey == "" {
		log.Fatalf("Configuration error: %v", config.ErrMissingAPIKey)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo, err := app.NewCafeRepository(cfg)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	diagnostics := service.NewDiagnosticsService(repo, app.NewPopularTimesClient(cfg))

	ok := true

	if !*skipDB {
		if cfg.Storage.Backend == config.BackendSQL {
			printServerVersion(ctx, cfg)
		}
		if _, err := diagnostics.CheckStorage(ctx); err != nil {
			log.Printf("Connection failed: %v", err)
			ok = false
		}
	}

	if !*skipAPI {
		paths := cfg.Directory.Paths
		if len(paths) == 0 {
			paths = directory.DefaultPaths()
		}
		status, err := diagnostics.CheckAPIKey(ctx, directory.Load(paths...))
		if err != nil {
			log.Printf("API key check failed: %v", err)
			log.Println("Make sure the Places API is enabled, billing is active and the key has no IP or referrer restrictions")
			ok = false
		} else {
			log.Printf("API key is working: %s (%s)", status.PlaceName, status.Address)
		}
	}

	if !ok {
		os.Exit(1)
	}
	log.Println("Ready to run the popular times batch")
}

func printServerVersion(ctx context.Context, cfg *config.Config) {
	db, err := database.Connect(app.DatabaseConfig(cfg), app.GormLogLevel(cfg))
	if err != nil {
		log.Printf("Connection failed: %v", err)
		return
	}
	defer database.Close(db)

	version, err := database.ServerVersion(ctx, db)
	if err != nil {
		log.Printf("Connection failed: %v", err)
		return
	}
	if len(version) > 50 {
		version = version[:50] + "..."
	}
	log.Printf("Connected! PostgreSQL version: %s", version)
}
