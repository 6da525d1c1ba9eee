package marketdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeBarFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const sampleCSV = `date,open,high,low,close,volume
2024-01-03,102.0,104.0,101.0,103.0,1200000
2024-01-02,101.0,103.0,100.0,102.0,1100000
2024-01-04,103.0,105.0,102.0,104.0,1300000
`

func TestGetDailyBarsSortsByDate(t *testing.T) {
	dir := t.TempDir()
	writeBarFile(t, dir, "AAPL.csv", sampleCSV)

	bars, err := NewCSVProvider(dir).GetDailyBars(context.Background(), "AAPL", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i-1].Date.Before(bars[i].Date) {
			t.Fatalf("bars out of order at %d: %v !< %v", i, bars[i-1].Date, bars[i].Date)
		}
	}
	if bars[0].Close != 102.0 || bars[2].Close != 104.0 {
		t.Fatalf("unexpected closes %v / %v", bars[0].Close, bars[2].Close)
	}
	if bars[1].Volume != 1_200_000 {
		t.Fatalf("volume = %v, want 1200000", bars[1].Volume)
	}
}

func TestGetDailyBarsLimitKeepsTail(t *testing.T) {
	dir := t.TempDir()
	writeBarFile(t, dir, "AAPL.csv", sampleCSV)

	bars, err := NewCSVProvider(dir).GetDailyBars(context.Background(), "AAPL", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	// the most recent bars survive a limit cut
	if bars[0].Close != 103.0 || bars[1].Close != 104.0 {
		t.Fatalf("limit kept wrong bars: %v / %v", bars[0].Close, bars[1].Close)
	}
}

func TestGetDailyBarsSymbolCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeBarFile(t, dir, "MSFT.csv", sampleCSV)

	if _, err := NewCSVProvider(dir).GetDailyBars(context.Background(), "msft", 0); err != nil {
		t.Fatalf("lowercase lookup failed: %v", err)
	}
}

func TestGetDailyBarsUnknownSymbol(t *testing.T) {
	_, err := NewCSVProvider(t.TempDir()).GetDailyBars(context.Background(), "NOPE", 0)
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("err = %v, want ErrSymbolNotFound", err)
	}
}

func TestGetDailyBarsHeaderOnlyFile(t *testing.T) {
	dir := t.TempDir()
	writeBarFile(t, dir, "EMPT.csv", "date,open,high,low,close,volume\n")

	_, err := NewCSVProvider(dir).GetDailyBars(context.Background(), "EMPT", 0)
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("err = %v, want ErrSymbolNotFound", err)
	}
}

func TestGetDailyBarsMalformedRow(t *testing.T) {
	dir := t.TempDir()
	writeBarFile(t, dir, "BAD.csv", "date,open,high,low,close,volume\n2024-01-02,oops,103,100,102,1000\n")

	if _, err := NewCSVProvider(dir).GetDailyBars(context.Background(), "BAD", 0); err == nil {
		t.Fatal("expected parse error for malformed row")
	}
}

func TestGetDailyBarsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewCSVProvider(t.TempDir()).GetDailyBars(ctx, "AAPL", 0); err == nil {
		t.Fatal("expected context error")
	}
}

func TestListSymbols(t *testing.T) {
	dir := t.TempDir()
	writeBarFile(t, dir, "MSFT.csv", sampleCSV)
	writeBarFile(t, dir, "AAPL.csv", sampleCSV)
	writeBarFile(t, dir, "notes.txt", "ignore me")

	symbols, err := NewCSVProvider(dir).ListSymbols(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"AAPL", "MSFT"}
	if len(symbols) != len(want) {
		t.Fatalf("got %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Fatalf("got %v, want %v", symbols, want)
		}
	}
}
