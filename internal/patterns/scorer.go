package patterns

import (
	"fmt"
	"math"

	"momentum-screener/config"
	"momentum-screener/internal/analysis"
	"momentum-screener/internal/marketdata"
)

// Names of the scoring criteria, as reported in PatternReport.Criteria
const (
	CriterionMomentumMove      = "momentum_move"
	CriterionConsolidation     = "consolidation_found"
	CriterionConsolidationHold = "consolidation_contained"
	CriterionTrendAlignment    = "trend_alignment"
	CriterionADRBand           = "adr_band"
	CriterionLiquidity         = "liquidity"
	CriterionRelativeStrength  = "relative_strength"
	CriterionRegressionFit     = "regression_fit"
	CriterionRangeStability    = "range_stability"
)

// MinAnalysisBars is the shortest series any criterion is meaningful
// on; shorter input yields a zero-confidence "no pattern" report.
const MinAnalysisBars = 50

// PatternScorer runs the full detection pipeline and folds the
// findings into a named criterion set and a 0-100 confidence score.
// The criterion list is configuration, not a fixed tuple: optional
// checks extend the set and the external relative-strength signal
// joins it when supplied.
type PatternScorer struct {
	cfg       config.ScorerConfig
	detector  *MoveBoundaryDetector
	validator *ConsolidationValidator

	// RelativeStrength is an externally supplied sector/industry
	// comparison. When nil the criterion is inactive.
	RelativeStrength *bool
}

// NewPatternScorer builds the canonical detect-validate-score pipeline
func NewPatternScorer(cfg config.EngineConfig) *PatternScorer {
	return &PatternScorer{
		cfg:       cfg.Scorer,
		detector:  NewMoveBoundaryDetector(cfg.Detector),
		validator: NewConsolidationValidator(cfg.Consolidation),
	}
}

// Analyze evaluates one bar sequence and returns a fresh report.
// Deterministic: identical input always yields an identical report.
func (s *PatternScorer) Analyze(bars []marketdata.Bar) *PatternReport {
	if len(bars) < MinAnalysisBars {
		return &PatternReport{
			PatternFound:    false,
			ConfidenceScore: 0,
			Criteria: []Criterion{{
				Name:   CriterionMomentumMove,
				Met:    false,
				Detail: fmt.Sprintf("insufficient data: %d bars, need %d", len(bars), MinAnalysisBars),
			}},
		}
	}

	m := analysis.Compute(bars)
	move := s.detector.Detect(bars, m)
	cons := s.validator.Validate(bars, m, move)

	criteria := make([]Criterion, 0, 9)

	criteria = append(criteria, Criterion{
		Name:   CriterionMomentumMove,
		Met:    move.Found,
		Detail: moveDetail(move),
	})
	criteria = append(criteria, Criterion{
		Name:   CriterionConsolidation,
		Met:    cons.Found,
		Detail: consolidationDetail(cons),
	})
	criteria = append(criteria, Criterion{
		Name:   CriterionConsolidationHold,
		Met:    cons.Found && cons.Checks[CheckContainment].Met && cons.Checks[CheckPriceFloor].Met,
		Detail: fmt.Sprintf("drift %.2f%%, floor %.2f", cons.PriceDriftPct, cons.FloorPrice),
	})
	criteria = append(criteria, s.trendAlignment(bars, m))
	criteria = append(criteria, s.adrBand(m))
	criteria = append(criteria, s.liquidity(bars, m))

	if s.RelativeStrength != nil {
		criteria = append(criteria, Criterion{
			Name:   CriterionRelativeStrength,
			Met:    *s.RelativeStrength,
			Detail: "externally supplied sector comparison",
		})
	}
	if s.cfg.EnableRegressionFit {
		criteria = append(criteria, s.regressionFit(bars))
	}
	if s.cfg.EnableRangeStability {
		criteria = append(criteria, s.rangeStability(m))
	}

	report := &PatternReport{
		Criteria:      criteria,
		Move:          &move,
		Consolidation: &cons,
	}
	met := report.CriteriaMet()
	report.ConfidenceScore = float64(met) / float64(len(criteria)) * 100
	report.PatternFound = met >= s.cfg.MinCriteriaMet

	return report
}

// trendAlignment checks that price sits within the tolerance band of
// the 50-bar SMA
func (s *PatternScorer) trendAlignment(bars []marketdata.Bar, m *analysis.Metrics) Criterion {
	n := len(bars)
	sma := m.SMA50[n-1]
	if !analysis.Valid(sma) || sma <= 0 {
		return Criterion{Name: CriterionTrendAlignment, Met: false, Detail: "50-bar SMA unavailable"}
	}

	distance := math.Abs(bars[n-1].Close-sma) / sma * 100
	return Criterion{
		Name:   CriterionTrendAlignment,
		Met:    distance <= s.cfg.TrendTolerancePct,
		Detail: fmt.Sprintf("close %.2f%% from 50-bar SMA, tolerance %.1f%%", distance, s.cfg.TrendTolerancePct),
	}
}

// adrBand rejects series that are too quiet to move or too erratic to trust
func (s *PatternScorer) adrBand(m *analysis.Metrics) Criterion {
	adr := m.ADR20[m.Len()-1]
	if !analysis.Valid(adr) {
		return Criterion{Name: CriterionADRBand, Met: false, Detail: "20-bar ADR unavailable"}
	}
	return Criterion{
		Name:   CriterionADRBand,
		Met:    adr >= s.cfg.MinADR && adr <= s.cfg.MaxADR,
		Detail: fmt.Sprintf("ADR %.2f%% against band [%.1f, %.1f]", adr, s.cfg.MinADR, s.cfg.MaxADR),
	}
}

// liquidity requires the trailing dollar volume to clear the floor and
// screens out halt/gap artifacts via a single-bar volume z-score.
func (s *PatternScorer) liquidity(bars []marketdata.Bar, m *analysis.Metrics) Criterion {
	n := len(bars)
	window := bars[n-analysis.ADRPeriod:]

	var dollarSum, volSum float64
	for _, b := range window {
		dollarSum += b.Close * b.Volume
		volSum += b.Volume
	}
	avgDollar := dollarSum / float64(len(window))
	avgVol := volSum / float64(len(window))

	var variance float64
	for _, b := range window {
		d := b.Volume - avgVol
		variance += d * d
	}
	stdev := math.Sqrt(variance / float64(len(window)))

	anomaly := false
	if stdev > 0 {
		for _, b := range window {
			if (b.Volume-avgVol)/stdev > s.cfg.VolumeAnomalyZScore {
				anomaly = true
				break
			}
		}
	}

	met := avgDollar >= s.cfg.MinDollarVolume && !anomaly
	detail := fmt.Sprintf("avg dollar volume %.0f, floor %.0f", avgDollar, s.cfg.MinDollarVolume)
	if anomaly {
		detail += ", volume anomaly detected"
	}
	return Criterion{Name: CriterionLiquidity, Met: met, Detail: detail}
}

// regressionFit checks that the trailing closes fit an upward line,
// an optional strictness layer some deployments enable
func (s *PatternScorer) regressionFit(bars []marketdata.Bar) Criterion {
	n := len(bars)
	window := marketdata.Closes(bars[n-analysis.ADRPeriod:])
	slope, r2 := linearFit(window)

	met := slope > 0 && r2 >= 0.5
	return Criterion{
		Name:   CriterionRegressionFit,
		Met:    met,
		Detail: fmt.Sprintf("slope %.4f, r2 %.2f", slope, r2),
	}
}

// rangeStability rejects series whose bar-to-bar range whipsaws
func (s *PatternScorer) rangeStability(m *analysis.Metrics) Criterion {
	n := m.Len()
	adr := m.ADR20[n-1]
	if !analysis.Valid(adr) || adr <= 0 {
		return Criterion{Name: CriterionRangeStability, Met: false, Detail: "20-bar ADR unavailable"}
	}

	window := m.DailyRangePct[n-analysis.ADRPeriod:]
	var variance float64
	for _, r := range window {
		d := r - adr
		variance += d * d
	}
	stdev := math.Sqrt(variance / float64(len(window)))

	met := stdev <= adr // erratic when range deviation rivals the range itself
	return Criterion{
		Name:   CriterionRangeStability,
		Met:    met,
		Detail: fmt.Sprintf("range stdev %.2f against ADR %.2f", stdev, adr),
	}
}

func moveDetail(move MomentumMove) string {
	if !move.Found {
		return move.Reason
	}
	return fmt.Sprintf("+%.1f%% over %d bars (velocity %.2f)", move.MovePct, move.Duration, move.Velocity)
}

func consolidationDetail(cons ConsolidationWindow) string {
	if !cons.Found {
		return cons.Reason
	}
	return fmt.Sprintf("bars %d-%d, drift %.2f%%", cons.StartIndex, cons.EndIndex, cons.PriceDriftPct)
}

// linearFit returns the least-squares slope and r-squared of a series
// against its index
func linearFit(values []float64) (slope, r2 float64) {
	n := float64(len(values))
	if n < 2 {
		return 0, 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for i, y := range values {
		fit := intercept + slope*float64(i)
		ssTot += (y - meanY) * (y - meanY)
		ssRes += (y - fit) * (y - fit)
	}
	if ssTot == 0 {
		return slope, 0
	}
	return slope, 1 - ssRes/ssTot
}
