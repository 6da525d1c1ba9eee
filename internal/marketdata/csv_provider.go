package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CSVProvider reads daily bars from <dir>/<SYMBOL>.csv files with a
// date,open,high,low,close,volume header row. Intended for offline
// screening and backtests against exported price histories.
type CSVProvider struct {
	dir string
}

// NewCSVProvider creates a provider rooted at the given directory
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

// GetDailyBars loads the bar file for a symbol, oldest first
func (p *CSVProvider) GetDailyBars(ctx context.Context, symbol string, limit int) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
		}
		return nil, fmt.Errorf("open bar file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read bar file %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s has no rows", ErrSymbolNotFound, symbol)
	}

	bars := make([]Bar, 0, len(records)-1)
	for i, rec := range records[1:] { // skip header
		bar, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("parse %s row %d: %w", path, i+2, err)
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	return bars, nil
}

// ListSymbols returns the symbols with a bar file in the directory
func (p *CSVProvider) ListSymbols(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	symbols := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		symbols = append(symbols, strings.TrimSuffix(e.Name(), ".csv"))
	}
	sort.Strings(symbols)
	return symbols, nil
}

func parseRow(rec []string) (Bar, error) {
	if len(rec) < 6 {
		return Bar{}, fmt.Errorf("expected 6 columns, got %d", len(rec))
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
	if err != nil {
		return Bar{}, fmt.Errorf("bad date %q: %w", rec[0], err)
	}

	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad number %q: %w", rec[i+1], err)
		}
		vals[i] = v
	}

	return Bar{
		Date:   date,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
