package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"momentum-screener/config"
	"momentum-screener/internal/api"
	"momentum-screener/internal/auth"
	"momentum-screener/internal/database"
	"momentum-screener/internal/events"
	"momentum-screener/internal/jobs"
	"momentum-screener/internal/logging"
	"momentum-screener/internal/marketdata"
	"momentum-screener/internal/screener"
	"momentum-screener/internal/vault"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "generate-config" {
		if err := config.GenerateSampleConfig("config.json.example"); err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("config.json.example written")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LoggingConfig)
	logger.Info().Msg("momentum screener starting")

	eventBus := events.NewEventBus()

	// Market data: CSV provider, optionally fronted by the Redis bar cache
	var provider marketdata.Provider = marketdata.NewCSVProvider(cfg.DataConfig.CSVDir)
	var barCache *marketdata.BarCache
	if cfg.RedisConfig.Enabled {
		barCache, err = marketdata.NewBarCache(provider, cfg.RedisConfig, logging.Component(logger, "cache"))
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, bar caching disabled")
		} else {
			provider = barCache
			defer barCache.Close()
		}
	}

	// Persistence is optional; the screener runs fully in memory without it
	var repo *database.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(cfg.DatabaseConfig, logging.Component(logger, "database"))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.RunMigrations(migrateCtx); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
		cancel()
		repo = database.NewRepository(db)
	}

	var authService *auth.Service
	if cfg.AuthConfig.Enabled {
		authService = auth.NewService(cfg.AuthConfig)
		logger.Info().Str("operator", cfg.AuthConfig.OperatorUser).Msg("API authentication enabled")
	}

	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vault client")
	}

	tracker := jobs.NewTracker(time.Duration(cfg.ScreenerConfig.JobTTL) * time.Second)

	scr := screener.NewScreener(
		provider,
		cfg.EngineConfig,
		cfg.ScreenerConfig,
		eventBus,
		tracker,
		repo,
		logging.Component(logger, "screener"),
	)

	server := api.NewServer(
		cfg.ServerConfig,
		cfg.DataConfig,
		scr,
		repo,
		eventBus,
		authService,
		vaultClient,
		logging.Component(logger, "api"),
	)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("API server failed")
		}
	}()

	logger.Info().
		Str("host", cfg.ServerConfig.Host).
		Int("port", cfg.ServerConfig.Port).
		Str("csv_dir", cfg.DataConfig.CSVDir).
		Msg("momentum screener ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("stopped")
}
