// Package marketdata defines the daily bar type and the provider
// abstraction that supplies historical series to the engine.
package marketdata

import "time"

// Bar represents one daily trading session
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// IsGreen reports whether the bar closed above its open
func (b Bar) IsGreen() bool {
	return b.Close > b.Open
}

// RangePct returns the intraday range as a percentage of the open.
// Returns 0 for non-positive opens rather than dividing by them.
func (b Bar) RangePct() float64 {
	if b.Open <= 0 {
		return 0
	}
	return (b.High - b.Low) / b.Open * 100
}

// Closes extracts the close series from a bar slice
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume series from a bar slice
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
