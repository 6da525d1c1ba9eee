package patterns

import (
	"fmt"
	"math"

	"momentum-screener/config"
	"momentum-screener/internal/analysis"
	"momentum-screener/internal/marketdata"
)

// Names of the consolidation checks, as reported in Checks
const (
	CheckEntryRange       = "entry_range"
	CheckRollingStability = "rolling_stability"
	CheckDominance        = "volume_range_dominance"
	CheckContainment      = "price_containment"
	CheckPriceFloor       = "price_floor"
	CheckTrendFloor       = "trend_floor"
)

// ConsolidationValidator confirms and trims the quiet period following
// a momentum move. All six checks must hold jointly; the full detail
// set is reported even when validation fails.
type ConsolidationValidator struct {
	cfg config.ConsolidationConfig
}

// NewConsolidationValidator creates a validator with the given tuning
func NewConsolidationValidator(cfg config.ConsolidationConfig) *ConsolidationValidator {
	return &ConsolidationValidator{cfg: cfg}
}

// Validate examines the bars after move.EndIndex. The window may end
// earlier than the data does: rolling reevaluation truncates it at the
// last prefix that still held stable.
func (v *ConsolidationValidator) Validate(bars []marketdata.Bar, m *analysis.Metrics, move MomentumMove) ConsolidationWindow {
	checks := emptyChecks()

	if !move.Found {
		return ConsolidationWindow{Found: false, Reason: "no qualifying move", Checks: checks}
	}

	n := len(bars)
	start := move.EndIndex + 1
	avail := n - start
	if avail < v.cfg.MinBars {
		return ConsolidationWindow{
			Found:      false,
			Reason:     fmt.Sprintf("only %d bars after move, need %d", avail, v.cfg.MinBars),
			StartIndex: start,
			Checks:     checks,
		}
	}

	adr := m.ADR20[n-1]

	// Check 1: the consolidation must not open with another violent bar
	entryDiff := math.Abs(m.DailyRangePct[start] - m.DailyRangePct[move.StartIndex])
	entryOK := analysis.Valid(adr) && entryDiff <= adr*v.cfg.EntryRangeADRTol
	checks[CheckEntryRange] = CheckResult{
		Met:    entryOK,
		Detail: fmt.Sprintf("first-bar range differs from move start by %.2f%%", entryDiff),
	}

	// Check 2: rolling stability over growing prefixes. A failed prefix
	// that recovers later is a tolerated dip; one that never recovers
	// truncates the window at the last passing bar.
	lastStable := 0
	for k := v.cfg.MinBars; k <= avail; k++ {
		avgRange := meanRange(m, start, start+k-1)
		avgVol := meanVolume(bars, start, start+k-1)
		if avgRange < move.AvgRange && avgVol < move.AvgVolume {
			lastStable = k
		}
	}
	stabilityOK := lastStable >= v.cfg.MinBars
	end := start + lastStable - 1
	if !stabilityOK {
		end = start + v.cfg.MinBars - 1 // keep a window for the remaining detail reporting
	}
	checks[CheckRollingStability] = CheckResult{
		Met:    stabilityOK,
		Detail: fmt.Sprintf("stable through %d of %d bars", lastStable, avail),
	}

	// Check 3: strict volume and range dominance over the trimmed window
	avgVolume := meanVolume(bars, start, end)
	avgRange := meanRange(m, start, end)
	lateRange := avgRange
	if end > start {
		lateRange = meanRange(m, start+1, end) // first bar excluded, it carries move spillover
	}
	dominanceOK := avgVolume < move.AvgVolume && lateRange < move.AvgRange
	checks[CheckDominance] = CheckResult{
		Met:    dominanceOK,
		Detail: fmt.Sprintf("volume %.0f vs move %.0f, range %.2f%% vs move %.2f%%", avgVolume, move.AvgVolume, lateRange, move.AvgRange),
	}

	// Check 4: price containment between first and last closes
	firstClose := bars[start].Close
	lastClose := bars[end].Close
	drift := 0.0
	if firstClose > 0 {
		drift = math.Abs(lastClose-firstClose) / firstClose * 100
	}
	driftLimit := avgRange
	if analysis.Valid(adr) {
		driftLimit = adr
	}
	containmentOK := firstClose > 0 && drift <= driftLimit
	checks[CheckContainment] = CheckResult{
		Met:    containmentOK,
		Detail: fmt.Sprintf("drift %.2f%% against limit %.2f%%", drift, driftLimit),
	}

	// Check 5: hard floor, no close below the configured fraction of
	// the first consolidation close
	floorPrice := firstClose * v.cfg.FloorRatio
	floorOK := true
	for i := start; i <= end; i++ {
		if bars[i].Close < floorPrice {
			floorOK = false
			break
		}
	}
	checks[CheckPriceFloor] = CheckResult{
		Met:    floorOK,
		Detail: fmt.Sprintf("floor %.2f (%.0f%% of first close)", floorPrice, v.cfg.FloorRatio*100),
	}

	// Check 6: every close holds above the 50-bar SMA; missing SMA data
	// fails the check rather than skipping it
	trendOK := true
	for i := start; i <= end; i++ {
		if !analysis.Valid(m.SMA50[i]) || bars[i].Close <= m.SMA50[i] {
			trendOK = false
			break
		}
	}
	checks[CheckTrendFloor] = CheckResult{Met: trendOK, Detail: "all closes above 50-bar SMA"}
	if !trendOK {
		checks[CheckTrendFloor] = CheckResult{Met: false, Detail: "close at or below 50-bar SMA, or SMA unavailable"}
	}

	found := entryOK && stabilityOK && dominanceOK && containmentOK && floorOK && trendOK
	reason := ""
	if !found {
		reason = firstFailure(checks)
	}

	return ConsolidationWindow{
		Found:         found,
		Reason:        reason,
		StartIndex:    start,
		EndIndex:      end,
		AvgVolume:     avgVolume,
		AvgRange:      avgRange,
		PriceDriftPct: drift,
		FloorPrice:    floorPrice,
		Checks:        checks,
	}
}

func emptyChecks() map[string]CheckResult {
	return map[string]CheckResult{
		CheckEntryRange:       {Met: false, Detail: "not evaluated"},
		CheckRollingStability: {Met: false, Detail: "not evaluated"},
		CheckDominance:        {Met: false, Detail: "not evaluated"},
		CheckContainment:      {Met: false, Detail: "not evaluated"},
		CheckPriceFloor:       {Met: false, Detail: "not evaluated"},
		CheckTrendFloor:       {Met: false, Detail: "not evaluated"},
	}
}

func firstFailure(checks map[string]CheckResult) string {
	order := []string{CheckEntryRange, CheckRollingStability, CheckDominance, CheckContainment, CheckPriceFloor, CheckTrendFloor}
	for _, name := range order {
		if !checks[name].Met {
			return name + " failed: " + checks[name].Detail
		}
	}
	return ""
}

func meanVolume(bars []marketdata.Bar, lo, hi int) float64 {
	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += bars[i].Volume
	}
	return sum / float64(hi-lo+1)
}

func meanRange(m *analysis.Metrics, lo, hi int) float64 {
	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += m.DailyRangePct[i]
	}
	return sum / float64(hi-lo+1)
}
