package main

import (
	"context"
	"log"
	"time"

	"sleeper-booking/cmd"
	"sleeper-booking/internal/data/repository"
	"sleeper-booking/internal/data/seed"
	"sleeper-booking/internal/event"
	"sleeper-booking/internal/lock"
	"sleeper-booking/internal/route"
	"sleeper-booking/internal/scoring"
	"sleeper-booking/internal/usecase"
	"sleeper-booking/internal/wire"
	"sleeper-booking/pkg/database"
	"sleeper-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.Name, config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("lock_backend", config.Lock.Backend),
		zap.Bool("events", config.Events.Enabled),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	repos := repository.NewRepository(db, logger)

	catalog, err := seed.Load(config.SeedFile)
	if err != nil {
		logger.Fatal("Failed to load seed catalog", zap.Error(err))
	}
	if _, err := seed.Apply(ctx, repos, catalog, logger); err != nil {
		logger.Fatal("Failed to seed catalog", zap.Error(err))
	}

	stations, err := repos.Station.FindAll(ctx)
	if err != nil {
		logger.Fatal("Failed to load stations", zap.Error(err))
	}
	rt, err := route.New(stations)
	if err != nil {
		logger.Fatal("Invalid route", zap.Error(err))
	}

	scorer := scoring.New(scoring.Config{
		Samples:  config.Scorer.Samples,
		Trees:    config.Scorer.Trees,
		MaxDepth: config.Scorer.MaxDepth,
		Seed:     config.Scorer.Seed,
	}, logger)
	if err := scorer.Train(); err != nil {
		logger.Fatal("Failed to train scorer", zap.Error(err))
	}

	var locker lock.Locker = lock.NewMemory()
	if config.Lock.Backend == utils.LockBackendRedis {
		client, err := database.InitRedis(config.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer client.Close()
		locker = lock.NewRedis(client, config.Lock.TTL, 25*time.Millisecond, logger)
	}

	var publisher event.Publisher = event.Nop{}
	if config.Events.Enabled {
		amqpPub := event.NewAMQPPublisher(config.Events.RabbitMQURL, logger)
		defer amqpPub.Close()
		publisher = amqpPub
	}

	// Wire all dependencies
	app := wire.Wiring(repos, usecase.Deps{
		Route:     rt,
		Locker:    locker,
		Scorer:    scorer,
		Publisher: publisher,
	}, db, config, logger)

	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
}
