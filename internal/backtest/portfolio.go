package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"momentum-screener/internal/marketdata"
)

// Symbol outcome statuses in a batch run
const (
	SymbolCompleted = "completed"
	SymbolFailed    = "failed"
)

// SymbolOutcome records one symbol's fate in a batch run
type SymbolOutcome struct {
	Symbol string  `json:"symbol"`
	Status string  `json:"status"`
	PnL    float64 `json:"pnl"`
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	Error  string  `json:"error,omitempty"`
}

// PortfolioSnapshot is the cross-symbol aggregate, updated after every
// symbol so callers can report live progress.
type PortfolioSnapshot struct {
	TotalTrades      int     `json:"total_trades"`
	WinningTrades    int     `json:"winning_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalPnL         float64 `json:"total_pnl"`
	PortfolioCapital float64 `json:"portfolio_capital"`
	BestSymbol       string  `json:"best_symbol"`
	BestPnL          float64 `json:"best_pnl"`
	WorstSymbol      string  `json:"worst_symbol"`
	WorstPnL         float64 `json:"worst_pnl"`
	Profitable       int     `json:"profitable"`
	Unprofitable     int     `json:"unprofitable"`
	Failed           int     `json:"failed"`
	Completed        int     `json:"completed"`
	Cancelled        bool    `json:"cancelled"`
}

// BatchResult is the final output of a batch run
type BatchResult struct {
	Snapshot PortfolioSnapshot  `json:"snapshot"`
	Outcomes []SymbolOutcome    `json:"outcomes"`
	Results  map[string]*Result `json:"results"`
}

// FetchFunc supplies the bar series for one symbol
type FetchFunc func(ctx context.Context, symbol string) ([]marketdata.Bar, error)

// ProgressFunc receives the running snapshot after each symbol
type ProgressFunc func(snapshot PortfolioSnapshot, outcome SymbolOutcome)

// PortfolioAggregator folds sequential per-symbol simulations into a
// compounding portfolio. Symbols run strictly in order: each one's
// starting capital is the running total after all prior symbols, which
// keeps results reproducible and respects provider rate limits.
type PortfolioAggregator struct {
	sim           *Simulator
	symbolTimeout time.Duration
	logger        zerolog.Logger
}

// NewPortfolioAggregator creates an aggregator around one simulator
func NewPortfolioAggregator(sim *Simulator, symbolTimeout time.Duration, logger zerolog.Logger) *PortfolioAggregator {
	return &PortfolioAggregator{
		sim:           sim,
		symbolTimeout: symbolTimeout,
		logger:        logger,
	}
}

// RunBatch simulates the symbols in the given order. Cancellation is
// cooperative and checked only between symbols: an in-flight symbol
// always runs to completion, and completed results are never
// discarded. A fetch/simulate failure or timeout marks that symbol
// failed and the batch continues.
func (pa *PortfolioAggregator) RunBatch(
	ctx context.Context,
	symbols []string,
	fetch FetchFunc,
	initialCapital float64,
	onProgress ProgressFunc,
) *BatchResult {
	batch := &BatchResult{
		Results: make(map[string]*Result, len(symbols)),
		Snapshot: PortfolioSnapshot{
			PortfolioCapital: initialCapital,
		},
	}
	capital := initialCapital

	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			batch.Snapshot.Cancelled = true
			pa.logger.Info().Int("completed", batch.Snapshot.Completed).Msg("batch cancelled at symbol boundary")
			return batch
		default:
		}

		outcome := pa.runSymbol(ctx, symbol, fetch, capital, batch)
		if outcome.Status == SymbolCompleted {
			capital += outcome.PnL
		}

		pa.fold(&batch.Snapshot, outcome, capital)
		batch.Outcomes = append(batch.Outcomes, outcome)

		if onProgress != nil {
			onProgress(batch.Snapshot, outcome)
		}
	}

	return batch
}

// runSymbol isolates one symbol's fetch and simulation. Timeouts and
// panics convert to a failed-symbol record, never a batch abort.
func (pa *PortfolioAggregator) runSymbol(ctx context.Context, symbol string, fetch FetchFunc, capital float64, batch *BatchResult) (outcome SymbolOutcome) {
	outcome = SymbolOutcome{Symbol: symbol, Status: SymbolFailed}

	defer func() {
		if r := recover(); r != nil {
			outcome.Status = SymbolFailed
			outcome.Error = fmt.Sprintf("simulation failure: %v", r)
			pa.logger.Error().Str("symbol", symbol).Str("panic", fmt.Sprint(r)).Msg("symbol simulation panicked")
		}
	}()

	symCtx := ctx
	if pa.symbolTimeout > 0 {
		var cancel context.CancelFunc
		symCtx, cancel = context.WithTimeout(ctx, pa.symbolTimeout)
		defer cancel()
	}

	bars, err := fetch(symCtx, symbol)
	if err != nil {
		outcome.Error = err.Error()
		pa.logger.Warn().Str("symbol", symbol).Err(err).Msg("fetch failed, symbol skipped")
		return outcome
	}

	result, err := pa.sim.Run(symbol, bars, capital)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	batch.Results[symbol] = result
	outcome.Status = SymbolCompleted
	outcome.PnL = result.Summary.TotalPnL
	outcome.Trades = result.Summary.TotalTrades
	outcome.Wins = result.Summary.WinningTrades
	return outcome
}

// fold updates the running aggregate with one symbol outcome
func (pa *PortfolioAggregator) fold(snap *PortfolioSnapshot, outcome SymbolOutcome, capital float64) {
	snap.PortfolioCapital = capital

	if outcome.Status != SymbolCompleted {
		snap.Failed++
		return
	}

	snap.Completed++
	snap.TotalPnL += outcome.PnL
	snap.TotalTrades += outcome.Trades
	snap.WinningTrades += outcome.Wins
	if snap.TotalTrades > 0 {
		snap.WinRate = float64(snap.WinningTrades) / float64(snap.TotalTrades) * 100
	}

	if outcome.PnL > 0 {
		snap.Profitable++
	} else if outcome.PnL < 0 {
		snap.Unprofitable++
	}

	if snap.BestSymbol == "" || outcome.PnL > snap.BestPnL {
		snap.BestSymbol = outcome.Symbol
		snap.BestPnL = outcome.PnL
	}
	if snap.WorstSymbol == "" || outcome.PnL < snap.WorstPnL {
		snap.WorstSymbol = outcome.Symbol
		snap.WorstPnL = outcome.PnL
	}
}
