// Package analysis derives rolling indicator series from raw daily bars.
package analysis

import (
	"math"

	"github.com/markcheno/go-talib"

	"momentum-screener/internal/marketdata"
)

// Rolling windows used across the engine
const (
	SMAShortPeriod  = 10
	SMAMidPeriod    = 20
	SMALongPeriod   = 50
	ADRPeriod       = 20
	VolumeSMAPeriod = 50
	MomentumShort   = 5
	MomentumLong    = 10
)

// Metrics holds per-bar indicator series aligned with the input bars.
// Entries inside a rolling window's warmup region are NaN, never zero;
// check with Valid before use.
type Metrics struct {
	SMA10         []float64
	SMA20         []float64
	SMA50         []float64
	DailyRangePct []float64
	ADR20         []float64
	VolumeSMA50   []float64
	VolumeRatio   []float64
	Momentum5     []float64
	Momentum10    []float64
}

// Valid reports whether a metric value is defined at its index
func Valid(v float64) bool {
	return !math.IsNaN(v)
}

// Compute derives all indicator series from a bar sequence. The input
// is never mutated and the result carries no reference to it.
func Compute(bars []marketdata.Bar) *Metrics {
	n := len(bars)
	m := &Metrics{
		DailyRangePct: make([]float64, n),
		VolumeRatio:   make([]float64, n),
		Momentum5:     make([]float64, n),
		Momentum10:    make([]float64, n),
	}
	if n == 0 {
		return m
	}

	closes := marketdata.Closes(bars)
	volumes := marketdata.Volumes(bars)

	for i, b := range bars {
		m.DailyRangePct[i] = b.RangePct()
	}

	m.SMA10 = rollingSMA(closes, SMAShortPeriod)
	m.SMA20 = rollingSMA(closes, SMAMidPeriod)
	m.SMA50 = rollingSMA(closes, SMALongPeriod)
	m.ADR20 = rollingSMA(m.DailyRangePct, ADRPeriod)
	m.VolumeSMA50 = rollingSMA(volumes, VolumeSMAPeriod)

	for i := 0; i < n; i++ {
		m.VolumeRatio[i] = ratioOrNaN(volumes[i], m.VolumeSMA50[i])
		m.Momentum5[i] = pctChange(closes, i, MomentumShort)
		m.Momentum10[i] = pctChange(closes, i, MomentumLong)
	}

	return m
}

// Len returns the number of rows in the metric series
func (m *Metrics) Len() int {
	return len(m.DailyRangePct)
}

// rollingSMA wraps talib.Sma, converting its zero-filled warmup region
// into NaN so "unavailable" can never be confused with a real zero.
func rollingSMA(values []float64, period int) []float64 {
	n := len(values)
	if n < period {
		return nanSlice(n)
	}

	out := talib.Sma(values, period)
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}
	return out
}

func pctChange(closes []float64, i, lag int) float64 {
	if i < lag {
		return math.NaN()
	}
	past := closes[i-lag]
	if past <= 0 {
		return math.NaN()
	}
	return (closes[i] - past) / past * 100
}

func ratioOrNaN(v, base float64) float64 {
	if !Valid(base) || base <= 0 {
		return math.NaN()
	}
	return v / base
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
