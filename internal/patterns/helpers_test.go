package patterns

import (
	"time"

	"momentum-screener/internal/marketdata"
)

// seriesBuilder accumulates a synthetic daily bar sequence for
// scenario tests. Each phase opens at the prior close so the series
// stays gap-free.
type seriesBuilder struct {
	bars  []marketdata.Bar
	price float64
	date  time.Time
}

func newSeriesBuilder(startPrice float64) *seriesBuilder {
	return &seriesBuilder{
		price: startPrice,
		date:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// add appends one bar: close = open*closeMult, high/low as multiples
// of the open.
func (b *seriesBuilder) add(closeMult, highMult, lowMult, volume float64) {
	open := b.price
	bar := marketdata.Bar{
		Date:   b.date,
		Open:   open,
		High:   open * highMult,
		Low:    open * lowMult,
		Close:  open * closeMult,
		Volume: volume,
	}
	if bar.Close > bar.High {
		bar.High = bar.Close
	}
	if bar.Close < bar.Low {
		bar.Low = bar.Close
	}
	b.bars = append(b.bars, bar)
	b.price = bar.Close
	b.date = b.date.AddDate(0, 0, 1)
}

// quietBase appends n drifting low-volatility bars
func (b *seriesBuilder) quietBase(n int) {
	for i := 0; i < n; i++ {
		b.add(1.002, 1.012, 0.992, 1_000_000)
	}
}

// surge appends n strong green bars on elevated volume, the last one
// with the peak volume print
func (b *seriesBuilder) surge(n int) {
	for i := 0; i < n; i++ {
		vol := 2_500_000.0
		if i == n-1 {
			vol = 3_000_000
		}
		b.add(1.045, 1.050, 0.998, vol)
	}
}

// consolidation appends a slightly wide first bar then quiet
// alternating bars that hold the surge price
func (b *seriesBuilder) consolidation(n int) {
	b.add(0.997, 1.017, 0.983, 700_000)
	mults := []float64{0.998, 1.002}
	for i := 1; i < n; i++ {
		b.add(mults[(i+1)%2], 1.009, 0.994, 650_000)
	}
}

// surgeScenario is the canonical positive case: 60 quiet bars, a
// 5-bar surge, then 8 bars of consolidation. The surge occupies
// indices 60 through 64.
func surgeScenario() []marketdata.Bar {
	b := newSeriesBuilder(100)
	b.quietBase(60)
	b.surge(5)
	b.consolidation(8)
	return b.bars
}

// flatScenario has no qualifying move anywhere
func flatScenario(n int) []marketdata.Bar {
	b := newSeriesBuilder(100)
	b.quietBase(n)
	return b.bars
}
