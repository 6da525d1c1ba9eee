package backtest

import "math"

// Summary rolls up the performance statistics of one simulation run
type Summary struct {
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	WinRate         float64 `json:"win_rate"`
	TotalPnL        float64 `json:"total_pnl"`
	ReturnPct       float64 `json:"return_pct"`
	AverageWin      float64 `json:"average_win"`
	AverageLoss     float64 `json:"average_loss"`
	AvgHoldingDays  float64 `json:"avg_holding_days"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	MaxDrawdownPct  float64 `json:"max_drawdown_pct"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	ProfitFactor    float64 `json:"profit_factor"`
	InitialCapital  float64 `json:"initial_capital"`
	FinalCapital    float64 `json:"final_capital"`
}

const tradingDaysPerYear = 252

// summarize computes the summary statistics from the closed trades and
// the daily equity curve
func summarize(trades []Trade, equity []EquityPoint, initialCapital, finalCapital float64) Summary {
	s := Summary{
		TotalTrades:    len(trades),
		InitialCapital: initialCapital,
		FinalCapital:   finalCapital,
	}

	var winSum, lossSum float64
	var holdingSum int
	for _, t := range trades {
		s.TotalPnL += t.PnL
		holdingSum += t.HoldingDays
		if t.PnL > 0 {
			s.WinningTrades++
			winSum += t.PnL
		} else {
			s.LosingTrades++
			lossSum += -t.PnL
		}
	}

	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
		s.AvgHoldingDays = float64(holdingSum) / float64(s.TotalTrades)
	}
	if s.WinningTrades > 0 {
		s.AverageWin = winSum / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AverageLoss = -lossSum / float64(s.LosingTrades)
	}
	if lossSum > 0 {
		s.ProfitFactor = winSum / lossSum
	}
	if initialCapital > 0 {
		s.ReturnPct = s.TotalPnL / initialCapital * 100
	}

	s.MaxDrawdown, s.MaxDrawdownPct = maxDrawdown(equity, initialCapital)
	s.SharpeRatio = sharpeRatio(dailyReturns(equity))

	return s
}

// maxDrawdown measures the deepest fall from the running equity peak
func maxDrawdown(equity []EquityPoint, initialCapital float64) (float64, float64) {
	peak := initialCapital
	var worst, worstPct float64

	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := peak - p.Equity
		if dd > worst {
			worst = dd
			if peak > 0 {
				worstPct = dd / peak * 100
			}
		}
	}
	return worst, worstPct
}

// dailyReturns converts the equity curve to simple daily returns
func dailyReturns(equity []EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			continue
		}
		out = append(out, (equity[i].Equity-prev)/prev)
	}
	return out
}

// sharpeRatio annualizes mean/stdev of daily returns. Defined as 0
// when fewer than 2 samples exist or the variance is 0.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}

	return mean / math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}
