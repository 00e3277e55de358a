package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"contestbet/cache"
	"contestbet/config"
	"contestbet/database"
	"contestbet/events"
	"contestbet/jobs"
	"contestbet/metrics"
	"contestbet/repository"
	"contestbet/service"
	"contestbet/web"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting contestbet...")

	// Load configuration
	cfg := config.Get()
	setupLogging(cfg)

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()
	subscribeLogHandlers(eventBus)

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Coefficient display cache; optional
	var oddsCache service.CoefficientCache
	if cfg.RedisAddr != "" {
		log.WithField("addr", cfg.RedisAddr).Info("Connecting to redis...")
		redisClient, err := cache.Connect(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		oddsCache = cache.NewOddsCache(redisClient, cfg.OddsCacheTTL)
	}

	// Initialize services
	log.Info("Initializing services...")
	accountService := service.NewAccountService(uowFactory, cfg)
	contestService := service.NewContestService(uowFactory)
	bettingService := service.NewBettingService(uowFactory, cfg, oddsCache)
	settlementService := service.NewSettlementService(uowFactory)
	log.Info("Services initialized successfully")

	// Metrics and health endpoint
	metricsServer := metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		return db.Ping(ctx)
	})

	// Settlement sweep
	scheduler := jobs.NewScheduler(settlementService, cfg.SettleSweepSpec)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start settlement sweep: %w", err)
	}

	// HTTP API
	apiServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: web.NewServer(bettingService, settlementService, accountService, contestService).Router(),
	}
	apiErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP API listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			apiErr <- err
		}
	}()

	log.Infof("Running in %s mode", cfg.Environment)
	select {
	case err := <-apiErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	// Cleanup resources
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Metrics server shutdown error")
	}
	db.Close()

	log.Info("Shutdown completed")
	return nil
}

func setupLogging(cfg *config.Config) {
	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(log.DebugLevel)
	}
}

// subscribeLogHandlers attaches audit logging to domain events
func subscribeLogHandlers(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBetPlaced, func(ctx context.Context, event events.Event) {
		e := event.(events.BetPlacedEvent)
		log.WithFields(log.Fields{
			"bet_id":       e.BetID,
			"account_id":   e.AccountID,
			"candidate_id": e.CandidateID,
			"contest_id":   e.ContestID,
			"amount":       e.Amount.StringFixed(2),
			"coefficient":  e.Coefficient.StringFixed(2),
		}).Info("Bet placed")
	})

	bus.Subscribe(events.EventTypeBetPaidOut, func(ctx context.Context, event events.Event) {
		e := event.(events.BetPaidOutEvent)
		log.WithFields(log.Fields{
			"bet_id":     e.BetID,
			"account_id": e.AccountID,
			"contest_id": e.ContestID,
			"payout":     e.Payout.StringFixed(2),
		}).Info("Bet paid out")
	})

	bus.Subscribe(events.EventTypeContestSettled, func(ctx context.Context, event events.Event) {
		e := event.(events.ContestSettledEvent)
		log.WithFields(log.Fields{
			"contest_id": e.ContestID,
			"winner_id":  e.WinnerID,
			"bets_paid":  e.BetsPaid,
			"total_paid": e.TotalPaid.StringFixed(2),
		}).Info("Contest settled")
	})

	bus.Subscribe(events.EventTypeAccountCreated, func(ctx context.Context, event events.Event) {
		e := event.(events.AccountCreatedEvent)
		log.WithFields(log.Fields{
			"account_id": e.AccountID,
			"username":   e.Username,
			"balance":    e.StartingBalance.StringFixed(2),
		}).Info("Account created")
	})
}
