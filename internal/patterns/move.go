package patterns

import (
	"fmt"
	"math"

	"momentum-screener/config"
	"momentum-screener/internal/analysis"
	"momentum-screener/internal/marketdata"
)

// MoveBoundaryDetector locates the best-scoring momentum move inside a
// bounded lookback window. Recency and move quality are weighted, not
// just magnitude, so a fresh clean move beats a bigger stale one.
type MoveBoundaryDetector struct {
	cfg config.DetectorConfig
}

// NewMoveBoundaryDetector creates a detector with the given tuning
func NewMoveBoundaryDetector(cfg config.DetectorConfig) *MoveBoundaryDetector {
	return &MoveBoundaryDetector{cfg: cfg}
}

// Detect scans the series for the highest-scoring (start,end) move.
// A Found=false result with a reason is the normal outcome when no
// combination survives the elimination gates.
func (d *MoveBoundaryDetector) Detect(bars []marketdata.Bar, m *analysis.Metrics) MomentumMove {
	n := len(bars)
	if n < d.cfg.MinBars {
		return MomentumMove{Found: false, Reason: fmt.Sprintf("insufficient bars: %d < %d", n, d.cfg.MinBars)}
	}

	adr := m.ADR20[n-1]
	if !analysis.Valid(adr) || adr <= 0 {
		return MomentumMove{Found: false, Reason: "average daily range unavailable"}
	}
	requiredMove := adr * d.cfg.RequiredMoveADRMult

	best := moveCandidate{score: -1}

	// Bounded away from the left edge so a pre-move segment exists, and
	// from the right edge so the minimum duration fits.
	firstStart := n - d.cfg.Lookback
	if firstStart < analysis.MomentumShort {
		firstStart = analysis.MomentumShort
	}

	for start := firstStart; start <= n-d.cfg.MinDuration; start++ {
		preQuality := d.preConsolidationQuality(bars, m, start, adr)

		for dur := d.cfg.MinDuration; dur <= d.cfg.MaxDuration; dur++ {
			end := start + dur - 1
			if end > n-1 {
				break
			}

			cand, ok := d.evaluate(bars, m, start, end, adr, requiredMove)
			if !ok {
				continue
			}

			cand.score *= d.preBonus(preQuality)
			cand.score *= d.postBonus(bars, m, end, adr)
			cand.score *= recencyTier(n-1-end)
			cand.score *= velocityTier(cand.velocity, adr)
			cand.score *= durationTier(dur, d.cfg.MinDuration)

			if cand.score > best.score {
				best = cand
			}
		}
	}

	if best.score < 0 {
		return MomentumMove{Found: false, Reason: "no qualifying move in lookback window"}
	}

	return d.refine(bars, m, best, adr)
}

// evaluate applies the elimination gates to one (start,end) pair and
// scores survivors. Any failed gate rejects the pair outright.
func (d *MoveBoundaryDetector) evaluate(bars []marketdata.Bar, m *analysis.Metrics, start, end int, adr, requiredMove float64) (moveCandidate, bool) {
	startLow := bars[start].Low
	if startLow <= 0 {
		return moveCandidate{}, false
	}

	movePct := (bars[end].High - startLow) / startLow * 100
	if movePct <= requiredMove {
		return moveCandidate{}, false
	}

	duration := end - start + 1
	velocity := movePct / float64(duration)
	if velocity < adr*d.cfg.MinVelocityADRMult {
		return moveCandidate{}, false
	}

	upDays := 0
	volSum, peakVol := 0.0, 0.0
	momentumHits := 0
	for i := start; i <= end; i++ {
		if bars[i].IsGreen() {
			upDays++
		}
		vr := m.VolumeRatio[i]
		if !analysis.Valid(vr) {
			return moveCandidate{}, false
		}
		volSum += vr
		if vr > peakVol {
			peakVol = vr
		}
		if analysis.Valid(m.Momentum5[i]) && m.Momentum5[i] > adr {
			momentumHits++
		}
	}

	if float64(upDays)/float64(duration) < d.cfg.MinUpDayRatio {
		return moveCandidate{}, false
	}
	avgVol := volSum / float64(duration)
	if avgVol < d.cfg.MinAvgVolumeRatio || peakVol < d.cfg.MinPeakVolumeRatio {
		return moveCandidate{}, false
	}
	if float64(momentumHits)/float64(duration) < d.cfg.MinMomentumConsistency {
		return moveCandidate{}, false
	}

	score := d.cfg.VelocityWeight*(velocity/adr) +
		d.cfg.PeakVolumeWeight*peakVol +
		d.cfg.MagnitudeWeight*(movePct/requiredMove)

	return moveCandidate{start: start, end: end, movePct: movePct, velocity: velocity, score: score}, true
}

// preConsolidationQuality grades the short segment before a candidate
// start: tight range, sub-average volume, and low momentum each count.
// Returns 0..1.
func (d *MoveBoundaryDetector) preConsolidationQuality(bars []marketdata.Bar, m *analysis.Metrics, start int, adr float64) float64 {
	lo := start - analysis.MomentumShort
	if lo < 0 {
		return 0
	}

	var rangeSum, volSum, momSum float64
	count := 0
	for i := lo; i < start; i++ {
		rangeSum += m.DailyRangePct[i]
		if analysis.Valid(m.VolumeRatio[i]) {
			volSum += m.VolumeRatio[i]
		} else {
			volSum += 1 // unknown baseline counts as neutral
		}
		if analysis.Valid(m.Momentum5[i]) {
			momSum += math.Abs(m.Momentum5[i])
		}
		count++
	}

	quality := 0.0
	if rangeSum/float64(count) < adr {
		quality++
	}
	if volSum/float64(count) < 1.0 {
		quality++
	}
	if momSum/float64(count) < adr {
		quality++
	}
	return quality / 3.0
}

func (d *MoveBoundaryDetector) preBonus(quality float64) float64 {
	return 1 + (d.cfg.PreConsolidationBonus-1)*quality
}

// postBonus rewards moves followed by a quiet period within the post
// window and penalizes those that keep churning.
func (d *MoveBoundaryDetector) postBonus(bars []marketdata.Bar, m *analysis.Metrics, end int, adr float64) float64 {
	limit := end + d.cfg.PostWindow
	if limit > len(bars)-1 {
		limit = len(bars) - 1
	}

	quiet := 0
	for i := end + 1; i <= limit; i++ {
		if m.DailyRangePct[i] < adr && analysis.Valid(m.VolumeRatio[i]) && m.VolumeRatio[i] < 1.0 {
			quiet++
		}
	}

	if quiet >= 3 {
		return d.cfg.PostConsolidationBonus
	}
	return d.cfg.PostConsolidationMiss
}

// refine walks the winning window to the genuine top of the move: find
// the highest high, then extend forward until two consecutive
// consolidation signals appear.
func (d *MoveBoundaryDetector) refine(bars []marketdata.Bar, m *analysis.Metrics, cand moveCandidate, adr float64) MomentumMove {
	n := len(bars)

	peak := cand.start
	for i := cand.start + 1; i <= cand.end; i++ {
		if bars[i].High > bars[peak].High {
			peak = i
		}
	}

	end := peak
	consec := 0
	limit := peak + d.cfg.PeakExtension
	if limit > n-1 {
		limit = n - 1
	}
	for i := peak + 1; i <= limit; i++ {
		if consolidationSignal(bars, m, i, adr) {
			consec++
			if consec >= 2 {
				end = i - consec
				break
			}
		} else {
			consec = 0
			end = i
		}
	}

	// Refinement never shrinks the move below the minimum duration
	if end < cand.start+d.cfg.MinDuration-1 {
		end = cand.start + d.cfg.MinDuration - 1
	}

	high := bars[cand.start].High
	for i := cand.start; i <= end; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
	}
	startLow := bars[cand.start].Low
	movePct := (high - startLow) / startLow * 100
	duration := end - cand.start + 1

	var volSum, peakVol, rangeSum float64
	for i := cand.start; i <= end; i++ {
		volSum += bars[i].Volume
		if bars[i].Volume > peakVol {
			peakVol = bars[i].Volume
		}
		rangeSum += m.DailyRangePct[i]
	}

	return MomentumMove{
		Found:      true,
		StartIndex: cand.start,
		EndIndex:   end,
		MovePct:    movePct,
		Duration:   duration,
		Velocity:   movePct / float64(duration),
		Score:      cand.score,
		AvgVolume:  volSum / float64(duration),
		PeakVolume: peakVol,
		AvgRange:   rangeSum / float64(duration),
	}
}

// consolidationSignal reports whether a bar reads as post-move
// cooling: red candle, lower close, low momentum, low volume, lower
// high. Three of the five qualify the bar.
func consolidationSignal(bars []marketdata.Bar, m *analysis.Metrics, i int, adr float64) bool {
	signals := 0
	if !bars[i].IsGreen() {
		signals++
	}
	if i > 0 && bars[i].Close < bars[i-1].Close {
		signals++
	}
	if analysis.Valid(m.Momentum5[i]) && m.Momentum5[i] < adr {
		signals++
	}
	if analysis.Valid(m.VolumeRatio[i]) && m.VolumeRatio[i] < 1.0 {
		signals++
	}
	if i > 0 && bars[i].High < bars[i-1].High {
		signals++
	}
	return signals >= 3
}

// recencyTier weights candidates close to today above stale ones
func recencyTier(barsAgo int) float64 {
	switch {
	case barsAgo <= 5:
		return 1.5
	case barsAgo <= 15:
		return 1.2
	case barsAgo <= 30:
		return 1.0
	default:
		return 0.8
	}
}

// velocityTier rewards sharp moves over grinds
func velocityTier(velocity, adr float64) float64 {
	switch {
	case velocity >= 2*adr:
		return 1.3
	case velocity >= adr:
		return 1.15
	default:
		return 1.0
	}
}

// durationTier rewards the shortest qualifying moves
func durationTier(duration, minDuration int) float64 {
	if duration == minDuration {
		return 1.2
	}
	return 1.0
}
