// Package backtest replays pattern detection day by day to simulate
// trades and aggregates per-symbol runs into portfolio statistics.
package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"momentum-screener/config"
	"momentum-screener/internal/analysis"
	"momentum-screener/internal/marketdata"
	"momentum-screener/internal/patterns"
)

// State of the per-symbol trading state machine
type State string

const (
	StateNotInTrade       State = "NOT_IN_TRADE"
	StatePatternConfirmed State = "PATTERN_CONFIRMED"
	StateInPosition       State = "IN_POSITION"
)

// Exit reasons recorded on closed trades
const (
	ExitStopLoss     = "Stop Loss"
	ExitTakeProfit   = "Take Profit"
	ExitMaxHolding   = "Max Holding Period"
	ExitTrendFailure = "Trend Failure"
	ExitEndOfPeriod  = "End of Period"
)

// Trade is one simulated round trip. It is created on entry, mutated
// once by the matching exit, and immutable afterwards.
type Trade struct {
	Symbol      string    `json:"symbol"`
	EntryDate   time.Time `json:"entry_date"`
	EntryPrice  float64   `json:"entry_price"`
	ExitDate    time.Time `json:"exit_date"`
	ExitPrice   float64   `json:"exit_price"`
	ExitReason  string    `json:"exit_reason"`
	Shares      float64   `json:"shares"`
	StopLoss    float64   `json:"stop_loss"`
	TakeProfit  float64   `json:"take_profit"`
	PnL         float64   `json:"pnl"`
	PnLPct      float64   `json:"pnl_pct"`
	HoldingDays int       `json:"holding_days"`
}

// EquityPoint is one day on the simulated equity curve
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// Result is the complete output of one symbol's simulation
type Result struct {
	Symbol      string        `json:"symbol"`
	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	Summary     Summary       `json:"summary"`
}

// Simulator steps the trading state machine across a bar series,
// rescoring the pattern on each day's visible history.
type Simulator struct {
	cfg    config.SimulatorConfig
	scorer *patterns.PatternScorer
	logger zerolog.Logger
}

// NewSimulator creates a simulator sharing one scorer pipeline
func NewSimulator(engineCfg config.EngineConfig, logger zerolog.Logger) *Simulator {
	return &Simulator{
		cfg:    engineCfg.Simulator,
		scorer: patterns.NewPatternScorer(engineCfg),
		logger: logger,
	}
}

// Run simulates one symbol from a fixed starting capital. The state
// machine starts after the 50-bar warmup; any position still open at
// the data boundary is force-closed at the final close.
func (s *Simulator) Run(symbol string, bars []marketdata.Bar, initialCapital float64) (*Result, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %.2f", initialCapital)
	}

	result := &Result{Symbol: symbol, Trades: []Trade{}}
	capital := initialCapital

	if len(bars) < patterns.MinAnalysisBars {
		result.Summary = summarize(result.Trades, nil, initialCapital, capital)
		return result, nil
	}

	metrics := analysis.Compute(bars)
	state := StateNotInTrade
	var open *Trade
	var entryIndex int
	belowTrend := 0

	for i := patterns.MinAnalysisBars; i < len(bars); i++ {
		today := bars[i]

		switch state {
		case StateNotInTrade:
			report := s.scorer.Analyze(bars[:i+1])
			if report.PatternFound && report.ConfidenceScore >= s.cfg.MinConfidence {
				state = StatePatternConfirmed
			}

		case StatePatternConfirmed:
			report := s.scorer.Analyze(bars[:i+1])
			if !report.PatternFound || report.ConfidenceScore < s.cfg.MinConfidence {
				state = StateNotInTrade
				break
			}
			if s.entryTriggered(bars, metrics, i) {
				trade := s.openTrade(symbol, today, capital)
				if trade != nil {
					open = trade
					entryIndex = i
					belowTrend = 0
					state = StateInPosition
				}
			}

		case StateInPosition:
			exitPrice, reason := s.exitTriggered(metrics, today, i, open, i-entryIndex, &belowTrend)
			if reason != "" {
				s.closeTrade(open, today.Date, exitPrice, reason, i-entryIndex)
				capital += open.PnL
				result.Trades = append(result.Trades, *open)
				open = nil
				state = StateNotInTrade
			}
		}

		result.EquityCurve = append(result.EquityCurve, EquityPoint{
			Date:   today.Date,
			Equity: markToMarket(capital, open, today.Close),
		})
	}

	// Data boundary: force-close whatever is still open
	if open != nil {
		last := bars[len(bars)-1]
		s.closeTrade(open, last.Date, last.Close, ExitEndOfPeriod, len(bars)-1-entryIndex)
		capital += open.PnL
		result.Trades = append(result.Trades, *open)
		if len(result.EquityCurve) > 0 {
			result.EquityCurve[len(result.EquityCurve)-1].Equity = capital
		}
	}

	result.Summary = summarize(result.Trades, result.EquityCurve, initialCapital, capital)

	s.logger.Debug().
		Str("symbol", symbol).
		Int("trades", len(result.Trades)).
		Float64("pnl", result.Summary.TotalPnL).
		Msg("simulation finished")

	return result, nil
}

// entryTriggered checks the breakout-plus-volume entry: today's close
// clears the reference high of the prior bars on confirming volume.
func (s *Simulator) entryTriggered(bars []marketdata.Bar, m *analysis.Metrics, i int) bool {
	lo := i - s.cfg.BreakoutLookback
	if lo < 0 {
		return false
	}

	refHigh := bars[lo].High
	for j := lo + 1; j < i; j++ {
		if bars[j].High > refHigh {
			refHigh = bars[j].High
		}
	}

	vr := m.VolumeRatio[i]
	return bars[i].Close > refHigh && analysis.Valid(vr) && vr >= s.cfg.VolumeConfirmMult
}

// openTrade sizes a whole-share position from the capital fraction.
// Returns nil when capital cannot buy a single share.
func (s *Simulator) openTrade(symbol string, bar marketdata.Bar, capital float64) *Trade {
	if bar.Close <= 0 {
		return nil
	}
	shares := math.Floor(capital * s.cfg.PositionFraction / bar.Close)
	if shares < 1 {
		return nil
	}

	return &Trade{
		Symbol:     symbol,
		EntryDate:  bar.Date,
		EntryPrice: bar.Close,
		Shares:     shares,
		StopLoss:   bar.Close * (1 - s.cfg.StopLossPct/100),
		TakeProfit: bar.Close * (1 + s.cfg.TakeProfitPct/100),
	}
}

// exitTriggered evaluates the exit rules in fixed priority: stop
// touch, target touch, holding-period limit, then trend failure.
// Returns the exit price and reason, or "" when the position holds.
func (s *Simulator) exitTriggered(m *analysis.Metrics, bar marketdata.Bar, idx int, trade *Trade, heldDays int, belowTrend *int) (float64, string) {
	if bar.Low <= trade.StopLoss {
		return trade.StopLoss, ExitStopLoss
	}
	if bar.High >= trade.TakeProfit {
		return trade.TakeProfit, ExitTakeProfit
	}
	if heldDays >= s.cfg.MaxHoldingDays {
		return bar.Close, ExitMaxHolding
	}

	// Trend failure needs consecutive closes below the short SMA
	sma := shortSMA(m, idx, s.cfg.TrendExitSMAPeriod)
	if analysis.Valid(sma) && bar.Close < sma {
		*belowTrend++
		if *belowTrend >= s.cfg.TrendExitConfirm {
			return bar.Close, ExitTrendFailure
		}
	} else {
		*belowTrend = 0
	}

	return 0, ""
}

func (s *Simulator) closeTrade(trade *Trade, date time.Time, price float64, reason string, heldDays int) {
	trade.ExitDate = date
	trade.ExitPrice = price
	trade.ExitReason = reason
	trade.HoldingDays = heldDays
	trade.PnL = (price - trade.EntryPrice) * trade.Shares
	trade.PnLPct = (price - trade.EntryPrice) / trade.EntryPrice * 100
}

func markToMarket(capital float64, open *Trade, closePrice float64) float64 {
	if open == nil {
		return capital
	}
	return capital + (closePrice-open.EntryPrice)*open.Shares
}

func shortSMA(m *analysis.Metrics, idx, period int) float64 {
	switch period {
	case analysis.SMAShortPeriod:
		return m.SMA10[idx]
	case analysis.SMAMidPeriod:
		return m.SMA20[idx]
	case analysis.SMALongPeriod:
		return m.SMA50[idx]
	default:
		return m.SMA10[idx]
	}
}
