package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"momentum-screener/internal/backtest"
	"momentum-screener/internal/patterns"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("record not found")

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// ============================================================================
// WATCHLIST
// ============================================================================

// AddWatchlistEntry inserts a symbol, updating the note if it already exists
func (r *Repository) AddWatchlistEntry(ctx context.Context, entry *WatchlistEntry) error {
	query := `
		INSERT INTO watchlist (symbol, note)
		VALUES ($1, $2)
		ON CONFLICT (symbol) DO UPDATE SET note = EXCLUDED.note
		RETURNING id, created_at
	`
	return r.db.Pool.QueryRow(ctx, query, entry.Symbol, entry.Note).
		Scan(&entry.ID, &entry.CreatedAt)
}

// RemoveWatchlistEntry deletes a symbol from the watchlist
func (r *Repository) RemoveWatchlistEntry(ctx context.Context, symbol string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM watchlist WHERE symbol = $1`, symbol)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetWatchlist returns all watchlist entries ordered by symbol
func (r *Repository) GetWatchlist(ctx context.Context) ([]*WatchlistEntry, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, symbol, COALESCE(note, ''), created_at
		FROM watchlist
		ORDER BY symbol
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*WatchlistEntry, 0)
	for rows.Next() {
		entry := &WatchlistEntry{}
		if err := rows.Scan(&entry.ID, &entry.Symbol, &entry.Note, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ============================================================================
// SCAN RESULTS
// ============================================================================

// SaveScanResult persists one symbol's pattern analysis snapshot
func (r *Repository) SaveScanResult(ctx context.Context, symbol string, report *patterns.PatternReport) error {
	criteria, err := json.Marshal(report.Criteria)
	if err != nil {
		return fmt.Errorf("marshaling criteria: %w", err)
	}

	query := `
		INSERT INTO scan_results (symbol, pattern_found, confidence, criteria_met, criteria, move_pct)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.Pool.Exec(
		ctx, query,
		symbol, report.PatternFound, report.ConfidenceScore,
		report.CriteriaMet(), criteria, reportMovePct(report),
	)
	return err
}

// reportMovePct extracts the detected move's magnitude. Reports with no
// move (short series, no qualifying surge) store zero.
func reportMovePct(report *patterns.PatternReport) float64 {
	if report.Move == nil {
		return 0
	}
	return report.Move.MovePct
}

// GetRecentScanResults returns the latest analysis snapshots
func (r *Repository) GetRecentScanResults(ctx context.Context, limit int) ([]*ScanResultRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, symbol, pattern_found, confidence, criteria_met, COALESCE(move_pct, 0), created_at
		FROM scan_results
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*ScanResultRecord, 0)
	for rows.Next() {
		rec := &ScanResultRecord{}
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.PatternFound, &rec.Confidence,
			&rec.CriteriaMet, &rec.MovePct, &rec.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// ============================================================================
// SCAN RUNS
// ============================================================================

// SaveScanRun persists a batch run summary and its simulated trades
func (r *Repository) SaveScanRun(ctx context.Context, jobID string, initialCapital float64, batch *backtest.BatchResult) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	snap := batch.Snapshot
	_, err = tx.Exec(ctx, `
		INSERT INTO scan_runs (job_id, initial_capital, final_capital, total_pnl, total_trades,
		                       win_rate, symbols_completed, symbols_failed, best_symbol, worst_symbol, cancelled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (job_id) DO NOTHING
	`, jobID, initialCapital, snap.PortfolioCapital, snap.TotalPnL, snap.TotalTrades,
		snap.WinRate, snap.Completed, snap.Failed, snap.BestSymbol, snap.WorstSymbol, snap.Cancelled)
	if err != nil {
		return fmt.Errorf("inserting scan run: %w", err)
	}

	for _, result := range batch.Results {
		for _, trade := range result.Trades {
			_, err = tx.Exec(ctx, `
				INSERT INTO simulated_trades (job_id, symbol, entry_date, entry_price, exit_date,
				                              exit_price, exit_reason, shares, pnl, pnl_percent, holding_days)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`, jobID, trade.Symbol, trade.EntryDate, trade.EntryPrice, trade.ExitDate,
				trade.ExitPrice, trade.ExitReason, trade.Shares, trade.PnL, trade.PnLPct, trade.HoldingDays)
			if err != nil {
				return fmt.Errorf("inserting simulated trade for %s: %w", trade.Symbol, err)
			}
		}
	}

	return tx.Commit(ctx)
}

// GetScanRun returns one batch run summary by job ID
func (r *Repository) GetScanRun(ctx context.Context, jobID string) (*ScanRunRecord, error) {
	rec := &ScanRunRecord{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, job_id, initial_capital, final_capital, total_pnl, total_trades, win_rate,
		       symbols_completed, symbols_failed, COALESCE(best_symbol, ''), COALESCE(worst_symbol, ''),
		       cancelled, created_at
		FROM scan_runs
		WHERE job_id = $1
	`, jobID).Scan(
		&rec.ID, &rec.JobID, &rec.InitialCapital, &rec.FinalCapital, &rec.TotalPnL,
		&rec.TotalTrades, &rec.WinRate, &rec.SymbolsCompleted, &rec.SymbolsFailed,
		&rec.BestSymbol, &rec.WorstSymbol, &rec.Cancelled, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetRecentScanRuns returns the latest batch run summaries
func (r *Repository) GetRecentScanRuns(ctx context.Context, limit int) ([]*ScanRunRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, job_id, initial_capital, final_capital, total_pnl, total_trades, win_rate,
		       symbols_completed, symbols_failed, COALESCE(best_symbol, ''), COALESCE(worst_symbol, ''),
		       cancelled, created_at
		FROM scan_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*ScanRunRecord, 0)
	for rows.Next() {
		rec := &ScanRunRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.JobID, &rec.InitialCapital, &rec.FinalCapital, &rec.TotalPnL,
			&rec.TotalTrades, &rec.WinRate, &rec.SymbolsCompleted, &rec.SymbolsFailed,
			&rec.BestSymbol, &rec.WorstSymbol, &rec.Cancelled, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}
