package patterns

import (
	"testing"

	"momentum-screener/config"
	"momentum-screener/internal/analysis"
)

func TestDetectInsufficientBars(t *testing.T) {
	d := NewMoveBoundaryDetector(config.DefaultDetectorConfig())
	bars := flatScenario(10)
	m := analysis.Compute(bars)

	move := d.Detect(bars, m)
	if move.Found {
		t.Fatal("10 bars should never yield a move")
	}
	if move.Reason == "" {
		t.Error("rejection should carry a reason")
	}
}

func TestDetectFlatSeriesFindsNothing(t *testing.T) {
	d := NewMoveBoundaryDetector(config.DefaultDetectorConfig())
	bars := flatScenario(120)
	m := analysis.Compute(bars)

	move := d.Detect(bars, m)
	if move.Found {
		t.Fatalf("flat series should have no qualifying move, got %+v", move)
	}
}

func TestDetectSurgeScenario(t *testing.T) {
	d := NewMoveBoundaryDetector(config.DefaultDetectorConfig())
	bars := surgeScenario()
	m := analysis.Compute(bars)

	move := d.Detect(bars, m)
	if !move.Found {
		t.Fatalf("surge scenario should yield a move, got reason %q", move.Reason)
	}
	if move.StartIndex != 60 {
		t.Errorf("StartIndex = %d, want 60", move.StartIndex)
	}
	if move.EndIndex != 64 {
		t.Errorf("EndIndex = %d, want 64", move.EndIndex)
	}
	if move.EndIndex < move.StartIndex+4 {
		t.Errorf("move shorter than minimum duration: %d..%d", move.StartIndex, move.EndIndex)
	}

	adr := m.ADR20[len(bars)-1]
	required := adr * config.DefaultDetectorConfig().RequiredMoveADRMult
	if move.MovePct <= required {
		t.Errorf("MovePct %.2f should exceed required move %.2f", move.MovePct, required)
	}
	if move.Velocity <= 0 || move.Score <= 0 {
		t.Errorf("velocity %.2f and score %.2f should be positive", move.Velocity, move.Score)
	}
	if move.Duration != move.EndIndex-move.StartIndex+1 {
		t.Errorf("Duration %d disagrees with boundaries", move.Duration)
	}
	if move.PeakVolume < move.AvgVolume {
		t.Errorf("peak volume %.0f below average %.0f", move.PeakVolume, move.AvgVolume)
	}
}

func TestDetectDeterministic(t *testing.T) {
	d := NewMoveBoundaryDetector(config.DefaultDetectorConfig())
	bars := surgeScenario()
	m := analysis.Compute(bars)

	first := d.Detect(bars, m)
	second := d.Detect(bars, m)
	if first != second {
		t.Errorf("repeated detection diverged: %+v vs %+v", first, second)
	}
}

func TestDetectLowVolumeSurgeRejected(t *testing.T) {
	// Same price action as the surge scenario but on baseline volume:
	// the volume gates must reject it.
	b := newSeriesBuilder(100)
	b.quietBase(60)
	for i := 0; i < 5; i++ {
		b.add(1.045, 1.050, 0.998, 1_000_000)
	}
	b.consolidation(8)
	bars := b.bars
	m := analysis.Compute(bars)

	d := NewMoveBoundaryDetector(config.DefaultDetectorConfig())
	move := d.Detect(bars, m)
	if move.Found {
		t.Fatal("surge without volume expansion should be rejected")
	}
}

func BenchmarkDetect(b *testing.B) {
	d := NewMoveBoundaryDetector(config.DefaultDetectorConfig())
	bars := surgeScenario()
	m := analysis.Compute(bars)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Detect(bars, m)
	}
}
