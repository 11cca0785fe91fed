package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cafepulse/internal/app"
	"cafepulse/internal/config"
	"cafepulse/internal/directory"
	"cafepulse/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	out := flag.String("out", directory.FileName, "CSV file to write")
	jsonOut := flag.String("json", "cafe_place_ids.json", "JSON file to write (empty to skip)")
	city := flag.String("city", service.DefaultCityHint, "City hint used when name and address find nothing")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	repo, err := app.NewCafeRepository(cfg)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := service.NewPlaceIDService(repo, service.NewPlaceResolver(app.NewPlacesClient(cfg)))
	result, err := svc.DiscoverAndSave(ctx, *city, *out, *jsonOut)
	if err != nil {
		log.Fatalf("Place ID discovery failed: %v", err)
	}

	log.Printf("Found Place IDs for %d out of %d cafes", result.Found, len(result.Entries))
}
