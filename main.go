package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"movie-reservation/cmd"
	"movie-reservation/internal/data/cache"
	"movie-reservation/internal/data/repository"
	"movie-reservation/internal/notify"
	"movie-reservation/internal/scheduler"
	"movie-reservation/internal/wire"
	"movie-reservation/pkg/broker"
	"movie-reservation/pkg/database"
	"movie-reservation/pkg/mailer"
	"movie-reservation/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected successfully")

	// redis only backs the availability display, so the app keeps running without it
	redisClient, err := database.InitRedis(config.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, availability cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	repos := repository.NewRepository(db, logger)
	seatCache := cache.NewSeatCache(redisClient, config.Reservation.CacheTTL, logger)

	publisher := broker.NewPublisher(config.Broker.URL, config.Broker.Exchange, logger)
	defer publisher.Close()

	if config.Broker.URL != "" {
		notifier := notify.NewNotifier(repos.User, mailer.New(config.Email, logger), logger)
		consumer := broker.NewConsumer(config.Broker.URL, config.Broker.Exchange, config.Broker.Queue, notify.BindingKeys, logger)
		go func() {
			if err := consumer.Run(ctx, notifier.Handle); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Notification consumer stopped", zap.Error(err))
			}
		}()
	}

	jobs, err := scheduler.New(repos.Session, logger)
	if err != nil {
		logger.Fatal("Failed to create scheduler", zap.Error(err))
	}
	if err := jobs.RegisterSessionSweep(config.Scheduler.SessionSweepCron); err != nil {
		logger.Fatal("Failed to register session sweep", zap.Error(err))
	}
	jobs.Start()
	defer func() {
		if err := jobs.Shutdown(); err != nil {
			logger.Warn("Scheduler shutdown failed", zap.Error(err))
		}
	}()

	app := wire.Wiring(wire.Deps{
		Repo:      repos,
		SeatCache: seatCache,
		Publisher: publisher,
	}, config, logger)

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, config.App.ShutdownTimeout, logger); err != nil {
		logger.Error("Server error", zap.Error(err))
	}
}
