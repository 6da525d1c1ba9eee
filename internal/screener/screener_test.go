package screener

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"momentum-screener/config"
	"momentum-screener/internal/events"
	"momentum-screener/internal/jobs"
	"momentum-screener/internal/marketdata"
)

type stubProvider struct {
	symbols []string
	bars    []marketdata.Bar
	delay   time.Duration
}

func (p *stubProvider) GetDailyBars(ctx context.Context, symbol string, limit int) ([]marketdata.Bar, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.bars, nil
}

func (p *stubProvider) ListSymbols(ctx context.Context) ([]string, error) {
	return p.symbols, nil
}

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

func newTestScreener(provider marketdata.Provider) *Screener {
	cfg := config.ScreenerConfig{
		InitialCapital:   10_000,
		SymbolTimeout:    5,
		ProgressInterval: 1,
		JobTTL:           3600,
	}
	return NewScreener(
		provider,
		config.DefaultEngineConfig(),
		cfg,
		events.NewEventBus(),
		jobs.NewTracker(time.Minute),
		nil,
		zerolog.Nop(),
	)
}

func waitForFinish(t *testing.T, s *Screener, jobID string) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if job := s.Job(jobID); job != nil && job.Status != jobs.StatusRunning {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scan job did not finish in time")
	return nil
}

func TestStartScanSurvivesCallerContextCancel(t *testing.T) {
	provider := &stubProvider{
		symbols: []string{"AAA", "BBB", "CCC"},
		bars:    flatBars(150),
	}
	s := newTestScreener(provider)

	// request-scoped context, cancelled the moment the handler returns
	ctx, cancel := context.WithCancel(context.Background())
	jobID, err := s.StartScan(ctx, nil, 0, 10_000)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	job := waitForFinish(t, s, jobID)
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("status = %q, want %q", job.Status, jobs.StatusCompleted)
	}
	if job.Done != len(provider.symbols) {
		t.Fatalf("done = %d, want %d", job.Done, len(provider.symbols))
	}
}

func TestCancelScanStopsRunningJob(t *testing.T) {
	provider := &stubProvider{
		symbols: []string{"AAA", "BBB", "CCC", "DDD"},
		bars:    flatBars(150),
		delay:   200 * time.Millisecond,
	}
	s := newTestScreener(provider)

	jobID, err := s.StartScan(context.Background(), nil, 0, 10_000)
	if err != nil {
		t.Fatal(err)
	}

	if !s.CancelScan(jobID) {
		t.Fatal("cancel of running scan should succeed")
	}

	job := waitForFinish(t, s, jobID)
	if job.Status != jobs.StatusCancelled {
		t.Fatalf("status = %q, want %q", job.Status, jobs.StatusCancelled)
	}
	if job.Done >= len(provider.symbols) {
		t.Fatalf("cancelled scan finished all %d symbols", job.Done)
	}
}

func TestStartScanRejectsEmptyUniverse(t *testing.T) {
	s := newTestScreener(&stubProvider{})
	if _, err := s.StartScan(context.Background(), nil, 0, 10_000); err == nil {
		t.Fatal("expected error for an empty symbol universe")
	}
}
