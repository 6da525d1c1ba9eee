package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"momentum-screener/config"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB creates a new database connection
func NewDB(cfg config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")

	return &DB{Pool: pool, logger: logger}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info().Msg("running database migrations")

	migrations := []string{
		// Symbols the operator wants scanned regularly
		`CREATE TABLE IF NOT EXISTS watchlist (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL UNIQUE,
			note TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_watchlist_symbol ON watchlist(symbol)`,

		// Per-symbol pattern analysis snapshots
		`CREATE TABLE IF NOT EXISTS scan_results (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			pattern_found BOOLEAN NOT NULL,
			confidence DECIMAL(6, 2) NOT NULL,
			criteria_met INTEGER NOT NULL,
			criteria JSONB,
			move_pct DECIMAL(10, 4),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_symbol ON scan_results(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_found ON scan_results(pattern_found)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_created ON scan_results(created_at)`,

		// Batch simulation runs, one row per job
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id SERIAL PRIMARY KEY,
			job_id VARCHAR(40) NOT NULL UNIQUE,
			initial_capital DECIMAL(20, 2) NOT NULL,
			final_capital DECIMAL(20, 2) NOT NULL,
			total_pnl DECIMAL(20, 2) NOT NULL,
			total_trades INTEGER NOT NULL,
			win_rate DECIMAL(6, 2) NOT NULL,
			symbols_completed INTEGER NOT NULL,
			symbols_failed INTEGER NOT NULL,
			best_symbol VARCHAR(20),
			worst_symbol VARCHAR(20),
			cancelled BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_runs_job ON scan_runs(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_runs_created ON scan_runs(created_at)`,

		// Simulated trades produced by a batch run
		`CREATE TABLE IF NOT EXISTS simulated_trades (
			id SERIAL PRIMARY KEY,
			job_id VARCHAR(40) NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			entry_date TIMESTAMP NOT NULL,
			entry_price DECIMAL(20, 4) NOT NULL,
			exit_date TIMESTAMP NOT NULL,
			exit_price DECIMAL(20, 4) NOT NULL,
			exit_reason VARCHAR(30) NOT NULL,
			shares DECIMAL(20, 4) NOT NULL,
			pnl DECIMAL(20, 2) NOT NULL,
			pnl_percent DECIMAL(10, 4) NOT NULL,
			holding_days INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sim_trades_job ON simulated_trades(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sim_trades_symbol ON simulated_trades(symbol)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.logger.Info().Int("statements", len(migrations)).Msg("migrations completed")
	return nil
}
