package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cafepulse/internal/app"
	"cafepulse/internal/config"
	"cafepulse/internal/handlers"
	"cafepulse/internal/middleware"
	"cafepulse/internal/models"
	"cafepulse/internal/service"
	"cafepulse/internal/worker"
	"cafepulse/pkg/database"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.Println("=== Cafe Popular Times Service Starting ===")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if cfg.Storage.Backend == config.BackendSQL {
		db, err := database.Connect(app.DatabaseConfig(cfg), app.GormLogLevel(cfg))
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.EnsurePopularTimesColumns(ctx, db); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		cancel()
		database.Close(db)
	}

	repo, err := app.NewCafeRepository(cfg)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	redisClient, err := app.ConnectRedis(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	batchService := app.NewBatchService(cfg, repo, redisClient)
	exportService := service.NewExportService(repo, cfg.Export.OutputDir)
	diagnosticsService := service.NewDiagnosticsService(repo, app.NewPopularTimesClient(cfg))

	popularTimesWorker := worker.NewPopularTimesWorker(batchService, cfg.Workers.PopularTimesInterval, models.DefaultBatchOptions())

	scheduler := worker.NewScheduler()
	if cfg.Workers.PopularTimesEnabled {
		scheduler.AddWorker(popularTimesWorker)
		log.Printf("Popular Times Worker enabled (interval: %v)", cfg.Workers.PopularTimesInterval)
	}

	scheduler.Start()
	defer scheduler.Stop()

	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("Running in DEBUG mode")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.App.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()

	if !cfg.App.Debug {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		r.Use(middleware.RateLimitMiddleware(limiter))

		ipLimiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst, 10*time.Minute)
		r.Use(middleware.IPRateLimitMiddleware(ipLimiter))
		go ipLimiter.RunCleanup(cleanupCtx, time.Minute)

		log.Printf("Rate limiting enabled: %d req/sec, burst: %d",
			cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	// The debug refresh reuses the worker loop even when the schedule is off.
	if cfg.App.Debug && !cfg.Workers.PopularTimesEnabled {
		go popularTimesWorker.Start()
		defer popularTimesWorker.Stop()
	}

	handlers.RegisterRoutes(r,
		handlers.NewHealthHandler(diagnosticsService, app.RedisPing(redisClient)),
		handlers.NewPopularTimesHandler(exportService, batchService, popularTimesWorker),
		cfg.App.Debug)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%s", cfg.App.Port)
		log.Printf("Health check: http://localhost:%s/api/v1/health", cfg.App.Port)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")
	stopCleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
