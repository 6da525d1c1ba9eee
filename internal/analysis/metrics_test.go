package analysis

import (
	"math"
	"testing"
	"time"

	"momentum-screener/internal/marketdata"
)

// makeBars builds a flat synthetic series for indicator checks
func makeBars(n int, price, volume float64) []marketdata.Bar {
	bars := make([]marketdata.Bar, n)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = marketdata.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: volume,
		}
	}
	return bars
}

func TestComputeWarmupIsNaN(t *testing.T) {
	bars := makeBars(60, 100, 1_000_000)
	m := Compute(bars)

	if Valid(m.SMA50[48]) {
		t.Error("SMA50 should be NaN inside the warmup region")
	}
	if !Valid(m.SMA50[49]) {
		t.Error("SMA50 should be defined at index 49")
	}
	if Valid(m.ADR20[18]) {
		t.Error("ADR20 should be NaN inside the warmup region")
	}
	if !Valid(m.ADR20[19]) {
		t.Error("ADR20 should be defined at index 19")
	}
	if Valid(m.Momentum5[4]) {
		t.Error("Momentum5 should be NaN before 5 bars of history")
	}
	if !Valid(m.Momentum5[5]) {
		t.Error("Momentum5 should be defined at index 5")
	}
	if Valid(m.VolumeRatio[48]) {
		t.Error("VolumeRatio should be NaN before the 50-bar volume SMA exists")
	}
}

func TestComputeFlatSeriesValues(t *testing.T) {
	bars := makeBars(60, 100, 1_000_000)
	m := Compute(bars)

	last := len(bars) - 1
	if math.Abs(m.SMA50[last]-100) > 1e-9 {
		t.Errorf("flat series SMA50 = %f, want 100", m.SMA50[last])
	}
	// (101 - 99) / 100 * 100 = 2%
	if math.Abs(m.DailyRangePct[last]-2.0) > 1e-9 {
		t.Errorf("daily range = %f, want 2.0", m.DailyRangePct[last])
	}
	if math.Abs(m.ADR20[last]-2.0) > 1e-9 {
		t.Errorf("ADR20 = %f, want 2.0", m.ADR20[last])
	}
	if math.Abs(m.VolumeRatio[last]-1.0) > 1e-9 {
		t.Errorf("volume ratio = %f, want 1.0", m.VolumeRatio[last])
	}
	if math.Abs(m.Momentum5[last]) > 1e-9 {
		t.Errorf("flat series momentum = %f, want 0", m.Momentum5[last])
	}
}

func TestComputeShortSeries(t *testing.T) {
	bars := makeBars(10, 100, 1_000_000)
	m := Compute(bars)

	if m.Len() != 10 {
		t.Fatalf("Len = %d, want 10", m.Len())
	}
	for i := 0; i < 10; i++ {
		if Valid(m.SMA50[i]) {
			t.Errorf("SMA50[%d] should be NaN on a 10-bar series", i)
		}
		if Valid(m.VolumeRatio[i]) {
			t.Errorf("VolumeRatio[%d] should be NaN on a 10-bar series", i)
		}
	}
}

func TestComputeEmptySeries(t *testing.T) {
	m := Compute(nil)
	if m.Len() != 0 {
		t.Errorf("empty input should produce empty metrics, got Len %d", m.Len())
	}
}

func TestMomentumRisingSeries(t *testing.T) {
	bars := makeBars(20, 100, 1_000_000)
	// 1% daily climb from bar 10 on
	price := 100.0
	for i := 10; i < 20; i++ {
		price *= 1.01
		bars[i].Open = price / 1.01
		bars[i].Close = price
		bars[i].High = price * 1.005
		bars[i].Low = bars[i].Open * 0.995
	}
	m := Compute(bars)

	last := len(bars) - 1
	if !Valid(m.Momentum5[last]) || m.Momentum5[last] <= 0 {
		t.Errorf("rising series momentum = %f, want positive", m.Momentum5[last])
	}
	// five 1% days compound to just over 5%
	if m.Momentum5[last] < 5.0 || m.Momentum5[last] > 5.2 {
		t.Errorf("momentum = %f, want ~5.1", m.Momentum5[last])
	}
}

func BenchmarkCompute(b *testing.B) {
	bars := makeBars(250, 100, 1_000_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compute(bars)
	}
}
