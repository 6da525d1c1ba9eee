package screener

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"momentum-screener/config"
	"momentum-screener/internal/backtest"
	"momentum-screener/internal/database"
	"momentum-screener/internal/events"
	"momentum-screener/internal/jobs"
	"momentum-screener/internal/marketdata"
	"momentum-screener/internal/patterns"
)

// Screener orchestrates pattern analysis and batch simulations over a
// symbol universe. Heavy scans run as async jobs; single-symbol
// analysis is synchronous.
type Screener struct {
	provider marketdata.Provider
	scorer   *patterns.PatternScorer
	sim      *backtest.Simulator
	bus      *events.EventBus
	tracker  *jobs.Tracker
	repo     *database.Repository // nil when persistence is disabled
	cfg      config.ScreenerConfig
	logger   zerolog.Logger
}

// AnalysisResult pairs a symbol with its pattern report
type AnalysisResult struct {
	Symbol string                  `json:"symbol"`
	Bars   int                     `json:"bars"`
	Report *patterns.PatternReport `json:"report"`
}

func NewScreener(
	provider marketdata.Provider,
	engineCfg config.EngineConfig,
	screenerCfg config.ScreenerConfig,
	bus *events.EventBus,
	tracker *jobs.Tracker,
	repo *database.Repository,
	logger zerolog.Logger,
) *Screener {
	return &Screener{
		provider: provider,
		scorer:   patterns.NewPatternScorer(engineCfg),
		sim:      backtest.NewSimulator(engineCfg, logger),
		bus:      bus,
		tracker:  tracker,
		repo:     repo,
		cfg:      screenerCfg,
		logger:   logger,
	}
}

// AnalyzeSymbol fetches bars and scores the pattern for one symbol
func (s *Screener) AnalyzeSymbol(ctx context.Context, symbol string, barLimit int) (*AnalysisResult, error) {
	bars, err := s.provider.GetDailyBars(ctx, symbol, barLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching bars for %s: %w", symbol, err)
	}

	report := s.scorer.Analyze(bars)
	if report.PatternFound {
		s.bus.PublishPatternFound(symbol, report.ConfidenceScore, report.CriteriaMet())
	}
	if s.repo != nil {
		if err := s.repo.SaveScanResult(ctx, symbol, report); err != nil {
			s.logger.Warn().Str("symbol", symbol).Err(err).Msg("failed to persist scan result")
		}
	}

	return &AnalysisResult{Symbol: symbol, Bars: len(bars), Report: report}, nil
}

// SimulateSymbol runs a full day-by-day simulation for one symbol
func (s *Screener) SimulateSymbol(ctx context.Context, symbol string, barLimit int, initialCapital float64) (*backtest.Result, error) {
	if initialCapital <= 0 {
		initialCapital = s.cfg.InitialCapital
	}

	bars, err := s.provider.GetDailyBars(ctx, symbol, barLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching bars for %s: %w", symbol, err)
	}

	result, err := s.sim.Run(symbol, bars, initialCapital)
	if err != nil {
		return nil, err
	}
	for _, trade := range result.Trades {
		s.bus.PublishTradeClosed(symbol, trade.ExitReason, trade.EntryPrice, trade.ExitPrice, trade.PnL, trade.PnLPct)
	}
	return result, nil
}

// StartScan launches an async batch run over the given symbols and
// returns the job ID immediately. Progress is observable through the
// job tracker and the event bus. An empty symbol list scans the whole
// provider universe.
func (s *Screener) StartScan(ctx context.Context, symbols []string, barLimit int, initialCapital float64) (string, error) {
	if initialCapital <= 0 {
		initialCapital = s.cfg.InitialCapital
	}
	if len(symbols) == 0 {
		var err error
		symbols, err = s.provider.ListSymbols(ctx)
		if err != nil {
			return "", fmt.Errorf("listing symbols: %w", err)
		}
	}
	if len(symbols) == 0 {
		return "", fmt.Errorf("no symbols to scan")
	}

	// The job must outlive the caller's request context; cancellation
	// flows only through CancelScan.
	job, jobCtx := s.tracker.Start(context.WithoutCancel(ctx), len(symbols))
	s.bus.PublishScanStarted(job.ID, len(symbols), initialCapital)

	go s.runScan(jobCtx, job.ID, symbols, barLimit, initialCapital)

	return job.ID, nil
}

// Symbols lists the provider's known universe
func (s *Screener) Symbols(ctx context.Context) ([]string, error) {
	return s.provider.ListSymbols(ctx)
}

// CancelScan requests cancellation of a running scan job
func (s *Screener) CancelScan(jobID string) bool {
	return s.tracker.Cancel(jobID)
}

// Job returns the tracked state of a scan job
func (s *Screener) Job(jobID string) *jobs.Job {
	return s.tracker.Get(jobID)
}

func (s *Screener) runScan(ctx context.Context, jobID string, symbols []string, barLimit int, initialCapital float64) {
	start := time.Now()
	s.logger.Info().Str("job_id", jobID).Int("symbols", len(symbols)).Msg("scan started")

	aggregator := backtest.NewPortfolioAggregator(
		s.sim,
		time.Duration(s.cfg.SymbolTimeout)*time.Second,
		s.logger,
	)

	fetch := func(ctx context.Context, symbol string) ([]marketdata.Bar, error) {
		return s.provider.GetDailyBars(ctx, symbol, barLimit)
	}

	done := 0
	onProgress := func(snap backtest.PortfolioSnapshot, outcome backtest.SymbolOutcome) {
		done++
		s.tracker.Progress(jobID, outcome.Symbol, done)
		if done%s.progressEvery() == 0 || done == len(symbols) {
			s.bus.PublishScanProgress(jobID, outcome.Symbol, done, len(symbols), snap.PortfolioCapital)
		}
	}

	batch := aggregator.RunBatch(ctx, symbols, fetch, initialCapital, onProgress)

	if s.repo != nil {
		if err := s.repo.SaveScanRun(context.Background(), jobID, initialCapital, batch); err != nil {
			s.logger.Warn().Str("job_id", jobID).Err(err).Msg("failed to persist scan run")
		}
	}

	if batch.Snapshot.Cancelled {
		s.tracker.MarkCancelled(jobID, batch)
		s.bus.Publish(events.Event{
			Type: events.EventScanCancelled,
			Data: map[string]interface{}{"job_id": jobID, "completed": batch.Snapshot.Completed},
		})
		s.logger.Info().Str("job_id", jobID).Msg("scan cancelled")
		return
	}

	s.tracker.Complete(jobID, batch)
	s.bus.PublishScanCompleted(jobID, batch.Snapshot.TotalPnL, batch.Snapshot.PortfolioCapital, batch.Snapshot.Failed)
	s.logger.Info().
		Str("job_id", jobID).
		Dur("elapsed", time.Since(start)).
		Float64("total_pnl", batch.Snapshot.TotalPnL).
		Int("failed", batch.Snapshot.Failed).
		Msg("scan completed")
}

func (s *Screener) progressEvery() int {
	if s.cfg.ProgressInterval < 1 {
		return 1
	}
	return s.cfg.ProgressInterval
}
