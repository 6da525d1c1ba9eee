package backtest

import (
	"time"

	"momentum-screener/internal/marketdata"
)

// seriesBuilder assembles gap-free synthetic daily bars for
// simulation scenarios
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

func (b *seriesBuilder) quietBase(n int) {
	for i := 0; i < n; i++ {
		b.add(1.002, 1.012, 0.992, 1_000_000)
	}
}

func (b *seriesBuilder) surge(n int) {
	for i := 0; i < n; i++ {
		vol := 2_500_000.0
		if i == n-1 {
			vol = 3_000_000
		}
		b.add(1.045, 1.050, 0.998, vol)
	}
}

func (b *seriesBuilder) consolidation(n int) {
	b.add(0.997, 1.017, 0.983, 700_000)
	mults := []float64{0.998, 1.002}
	for i := 1; i < n; i++ {
		b.add(mults[(i+1)%2], 1.009, 0.994, 650_000)
	}
}

// breakout appends one green bar clearing the recent highs on
// confirming volume
func (b *seriesBuilder) breakout() {
	b.add(1.02, 1.022, 0.998, 2_000_000)
}

// crash appends n hard red bars falling through any nearby stop
func (b *seriesBuilder) crash(n int) {
	for i := 0; i < n; i++ {
		b.add(0.95, 1.001, 0.935, 2_200_000)
	}
}

// tradeScenario produces exactly one losing trade: surge, tight
// consolidation, a breakout entry, then a crash through the stop.
func tradeScenario() []marketdata.Bar {
	b := newSeriesBuilder(100)
	b.quietBase(60)
	b.surge(5)
	b.consolidation(8)
	b.breakout()
	b.crash(2)
	return b.bars
}

// openPositionScenario ends the data right at the breakout bar so the
// position is still open at the boundary
func openPositionScenario() []marketdata.Bar {
	b := newSeriesBuilder(100)
	b.quietBase(60)
	b.surge(5)
	b.consolidation(8)
	b.breakout()
	return b.bars
}

func flatScenario(n int) []marketdata.Bar {
	b := newSeriesBuilder(100)
	b.quietBase(n)
	return b.bars
}
