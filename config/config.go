package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// HTTP server configuration
	ListenAddr string
	AdminKey   string

	// Ledger configuration
	ChainRPCURL     string
	TreasuryAddress string
	PoolAddress     string

	// Partner feed configuration
	PartnerAPIBase string

	// Payment amounts in base units
	TreasuryAmount int64 // required transfer to the treasury account
	PoolAmount     int64 // required transfer to the pool account
	FeeTolerance   int64 // shortfall absorbed as network fee variance

	// Payout configuration
	PerTicketPayout int64 // prize per outstanding ticket
	ReserveBuffer   int64 // balance the pool account must keep after a payout

	// Entitlement configuration
	EntitlementDuration time.Duration // access window per verified payment
	ConfirmRetryDelay   time.Duration // wait before the second transaction lookup

	// Scheduler configuration
	DrawSchedule     string // cron expression for the weekly draws
	SchedulerEnabled bool

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// HTTP server
		ListenAddr: os.Getenv("LISTEN_ADDR"),
		AdminKey:   os.Getenv("ADMIN_KEY"),

		// Ledger
		ChainRPCURL:     os.Getenv("CHAIN_RPC_URL"),
		TreasuryAddress: os.Getenv("TREASURY_ADDRESS"),
		PoolAddress:     os.Getenv("POOL_ADDRESS"),

		// Partner feed
		PartnerAPIBase: os.Getenv("PARTNER_API_BASE"),

		// Money settings with defaults
		TreasuryAmount:  10_000_000,
		PoolAmount:      10_000_000,
		FeeTolerance:    1_000,
		PerTicketPayout: 10_000_000,
		ReserveBuffer:   5_000,

		EntitlementDuration: 24 * time.Hour,
		ConfirmRetryDelay:   3 * time.Second,

		// Friday noon UTC default
		DrawSchedule:     "0 12 * * 5",
		SchedulerEnabled: os.Getenv("SCHEDULER_ENABLED") != "false",

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	overrideInt64(&config.TreasuryAmount, "TREASURY_AMOUNT")
	overrideInt64(&config.PoolAmount, "POOL_AMOUNT")
	overrideInt64(&config.FeeTolerance, "FEE_TOLERANCE")
	overrideInt64(&config.PerTicketPayout, "PER_TICKET_PAYOUT")
	overrideInt64(&config.ReserveBuffer, "RESERVE_BUFFER")

	if d := os.Getenv("ENTITLEMENT_DURATION"); d != "" {
		if parsed, err := time.ParseDuration(d); err == nil {
			config.EntitlementDuration = parsed
		}
	}
	if d := os.Getenv("CONFIRM_RETRY_DELAY"); d != "" {
		if parsed, err := time.ParseDuration(d); err == nil {
			config.ConfirmRetryDelay = parsed
		}
	}
	if schedule := os.Getenv("DRAW_SCHEDULE"); schedule != "" {
		config.DrawSchedule = schedule
	}
	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.ChainRPCURL == "" {
			return nil, fmt.Errorf("CHAIN_RPC_URL is required")
		}
		if config.TreasuryAddress == "" {
			return nil, fmt.Errorf("TREASURY_ADDRESS is required")
		}
		if config.PoolAddress == "" {
			return nil, fmt.Errorf("POOL_ADDRESS is required")
		}
		if config.AdminKey == "" {
			return nil, fmt.Errorf("ADMIN_KEY is required")
		}
		if config.PartnerAPIBase == "" {
			return nil, fmt.Errorf("PARTNER_API_BASE is required")
		}
	}

	return config, nil
}

func overrideInt64(target *int64, envVar string) {
	if value := os.Getenv(envVar); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			*target = parsed
		}
	}
}
