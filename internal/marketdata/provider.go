package marketdata

import (
	"context"
	"errors"
)

// ErrSymbolNotFound is returned when the provider has no data for a symbol
var ErrSymbolNotFound = errors.New("symbol not found")

// Provider supplies historical daily bars for a symbol, oldest first.
// Implementations must return at most limit bars, ending at the most
// recent session they know about.
type Provider interface {
	GetDailyBars(ctx context.Context, symbol string, limit int) ([]Bar, error)
	ListSymbols(ctx context.Context) ([]string, error)
}
