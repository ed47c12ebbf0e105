package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"racepool/api"
	"racepool/chain"
	"racepool/config"
	"racepool/database"
	"racepool/events"
	"racepool/partner"
	"racepool/repository"
	"racepool/scheduler"
	"racepool/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting racepool...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	log.Println("Initializing event bus...")
	eventBus := events.NewBus()
	registerAuditLog(eventBus)

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize external clients
	log.Println("Initializing ledger client...")
	ledger, err := chain.NewClient(chain.Config{RPCURL: cfg.ChainRPCURL})
	if err != nil {
		return fmt.Errorf("failed to initialize ledger client: %w", err)
	}

	log.Println("Initializing partner feed client...")
	feed, err := partner.NewClient(partner.Config{BaseURL: cfg.PartnerAPIBase})
	if err != nil {
		return fmt.Errorf("failed to initialize partner feed client: %w", err)
	}

	// Initialize services
	log.Println("Initializing services...")
	paymentService := service.NewPaymentService(uowFactory, ledger, cfg)
	drawService := service.NewDrawService(uowFactory, ledger, cfg)
	snapshotTracker := service.NewSnapshotTracker(uowFactory)
	giveawayService := service.NewGiveawayService(uowFactory, feed, snapshotTracker)
	statsService := service.NewStatsService(uowFactory, ledger, cfg)
	log.Println("Services initialized successfully")

	// Initialize draw scheduler
	var drawScheduler *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		drawScheduler, err = scheduler.New(cfg.DrawSchedule, drawService, giveawayService)
		if err != nil {
			return fmt.Errorf("failed to initialize scheduler: %w", err)
		}
		drawScheduler.Start()
	} else {
		log.Println("Draw scheduler disabled")
	}

	// Start HTTP server; Start blocks until the context is cancelled
	server := api.NewServer(paymentService, drawService, giveawayService, statsService, cfg)
	log.Printf("Running in %s mode...", cfg.Environment)
	serveErr := server.Start(ctx)

	// Cleanup resources
	log.Println("Shutting down...")
	if drawScheduler != nil {
		drawScheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return serveErr
}
