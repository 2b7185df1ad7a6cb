package cmd

import (
	"context"
	"fmt"
	"time"

	"economy/application"
	"economy/config"
	"economy/database"
	"economy/events"
	"economy/infrastructure"
	"economy/repository"
	"economy/service"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// Services is the economy core handed to the request layer
type Services struct {
	Accounts   service.AccountService
	Auctions   service.AuctionService
	Settlement service.SettlementService
	Packs      service.PackService
	Rewards    service.RewardService
}

// NewServices wires every service over one unit of work factory
func NewServices(cfg *config.Config, uowFactory service.UnitOfWorkFactory, catalog service.CatalogReader, entitlements service.EntitlementChecker) *Services {
	rng := service.DefaultRandomSource
	return &Services{
		Accounts:   service.NewAccountService(uowFactory, cfg.StartingTokens),
		Auctions:   service.NewAuctionService(uowFactory, catalog, entitlements, cfg.MaxAuctionMinutes),
		Settlement: service.NewSettlementService(uowFactory, cfg.SettlementMode),
		Packs:      service.NewPackService(uowFactory, catalog, rng),
		Rewards:    service.NewRewardService(uowFactory, service.DefaultRewardTable, cfg.RewardResetHour, rng),
	}
}

// ConfigureLogging applies LOG_LEVEL and switches to JSON output in production
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("logLevel", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

// Run initializes the economy and runs the settlement worker until ctx is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting economy...")

	isolation, err := database.ParseIsolation(cfg.DatabaseIsolation)
	if err != nil {
		return err
	}

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), database.WithIsolation(isolation))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.WithField("isolation", isolation).Info("Database connection established")

	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return err
	}

	eventBus := events.NewBus()

	sink, closeSink, err := connectEventSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()
	infrastructure.BridgeToSink(eventBus, sink)

	redisClient, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var catalog service.CatalogReader
	var locker application.Locker = application.LocalLocker{}
	if redisClient != nil {
		catalog = infrastructure.NewRedisCatalog(redisClient)
		locker = infrastructure.NewRedisLocker(redisClient)
	} else {
		log.Warn("REDIS_URL not set, catalog is empty and settlement is not coordinated across processes")
		catalog = emptyCatalog{}
	}

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	services := NewServices(cfg, uowFactory, catalog, repository.NewAccountRepository(db))

	worker := application.NewSettlementWorker(services.Settlement, locker, cfg.SettlementInterval, cfg.SettlementLockTTL)
	stopWorker := worker.Start(ctx)

	log.Info("Economy is running")
	<-ctx.Done()

	log.Info("Shutting down economy...")
	stopWorker()

	// handlers dispatched by the last commits may still be publishing
	time.Sleep(500 * time.Millisecond)
	log.Info("Shutdown completed")
	return nil
}

func connectEventSink(ctx context.Context, cfg *config.Config) (service.EventSink, func(), error) {
	if cfg.NATSServers == "" {
		log.Warn("NATS_SERVERS not set, events stay in process")
		return infrastructure.NewNoopEventSink(), func() {}, nil
	}

	client := infrastructure.NewNATSClient(cfg.NATSServers)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return nil, nil, err
	}

	sink := infrastructure.NewNATSEventSink(client, infrastructure.NewEventSubjectMapper())
	if err := sink.EnsureEventStream(); err != nil {
		client.Close()
		return nil, nil, err
	}

	return sink, func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Error closing NATS connection")
		}
	}, nil
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return infrastructure.NewRedisClient(ctx, cfg.RedisURL)
}
