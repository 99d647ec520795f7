// main.go
package main

import (
	"context"
	"log"

	"rental-marketplace/cmd"
	"rental-marketplace/internal/data/repository"
	"rental-marketplace/internal/data/repository/memory"
	"rental-marketplace/internal/jobs"
	"rental-marketplace/internal/notify"
	"rental-marketplace/internal/pricing"
	"rental-marketplace/internal/usecase"
	"rental-marketplace/internal/wire"
	"rental-marketplace/pkg/cache"
	"rental-marketplace/pkg/database"
	"rental-marketplace/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("db_driver", config.Database.Driver),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var repo *repository.Repository
	switch config.Database.Driver {
	case "memory":
		repo = memory.NewRepository(logger)
		logger.Warn("Using in-memory store, data is lost on restart")
	default:
		db, err := database.InitDB(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("Failed to apply schema", zap.Error(err))
		}
		logger.Info("Database connected successfully")

		repo = repository.NewRepository(db, logger)
	}

	// Pricing tables
	table, err := pricing.NewTable(config.Pricing)
	if err != nil {
		logger.Fatal("Invalid pricing configuration", zap.Error(err))
	}

	// Redis backs the display cache and the notification channel when configured
	deps := usecase.Dependencies{Calculator: pricing.NewCalculator(table)}
	var (
		sender notify.Sender          = notify.NewLogSender(logger)
		dead   notify.DeadLetterStore = notify.NewMemoryDeadLetters()
		rdb    *redis.Client
	)
	if config.Redis.Enabled() {
		rdb, err = cache.NewRedisClient(ctx, config.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		deps.Cache = cache.NewRedisCache(rdb, "availability:")
		sender = notify.NewRedisSender(rdb, config.Notify.Channel)
		dead = notify.NewRedisDeadLetters(rdb, config.Notify.DeadLetterKey)
		logger.Info("Redis connected successfully", zap.String("addr", config.Redis.Addr))
	}

	dispatcher := notify.NewDispatcher(sender, dead, config.Notify, logger)
	dispatcher.Start(ctx)
	deps.Notifier = dispatcher

	// Wire all dependencies
	app := wire.Wiring(repo, config, deps, logger)

	// Background sweeps
	var scheduler *jobs.Scheduler
	if config.Scheduler.Enabled {
		runner := jobs.NewJobRunner(app.Service.Trial, app.Service.Contract, logger)
		scheduler, err = jobs.NewScheduler(runner, config.Scheduler, logger)
		if err != nil {
			logger.Fatal("Failed to create scheduler", zap.Error(err))
		}
		scheduler.Start()

		// Catch up on anything that fell due while the service was down
		go runner.RunAll()
	}

	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port, logger, func() {
		if scheduler != nil {
			scheduler.Stop()
		}
		dispatcher.Stop()
	})
}
