package database

import (
	"testing"
	"time"

	"momentum-screener/config"
	"momentum-screener/internal/marketdata"
	"momentum-screener/internal/patterns"
)

func flatBars(n int) []marketdata.Bar {
	bars := make([]marketdata.Bar, n)
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = marketdata.Bar{
			Date:   date.AddDate(0, 0, i),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100,
			Volume: 1_000_000,
		}
	}
	return bars
}

func TestReportMovePctShortSeries(t *testing.T) {
	scorer := patterns.NewPatternScorer(config.DefaultEngineConfig())
	report := scorer.Analyze(flatBars(10))

	if report.Move != nil {
		t.Fatal("short series should produce no move")
	}
	if got := reportMovePct(report); got != 0 {
		t.Fatalf("reportMovePct = %v, want 0 for a report without a move", got)
	}
}

func TestReportMovePctNoPatternFullSeries(t *testing.T) {
	scorer := patterns.NewPatternScorer(config.DefaultEngineConfig())
	report := scorer.Analyze(flatBars(150))

	if got := reportMovePct(report); got != 0 {
		t.Fatalf("reportMovePct = %v, want 0 when no move was detected", got)
	}
}

func TestReportMovePctWithMove(t *testing.T) {
	report := &patterns.PatternReport{
		Move: &patterns.MomentumMove{MovePct: 27.5},
	}
	if got := reportMovePct(report); got != 27.5 {
		t.Fatalf("reportMovePct = %v, want 27.5", got)
	}
}
