package database

import "time"

// WatchlistEntry is a symbol the operator tracks
type WatchlistEntry struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScanResultRecord is a persisted per-symbol analysis snapshot
type ScanResultRecord struct {
	ID           int64     `json:"id"`
	Symbol       string    `json:"symbol"`
	PatternFound bool      `json:"pattern_found"`
	Confidence   float64   `json:"confidence"`
	CriteriaMet  int       `json:"criteria_met"`
	Criteria     []byte    `json:"-"`
	MovePct      float64   `json:"move_pct"`
	CreatedAt    time.Time `json:"created_at"`
}

// ScanRunRecord is a persisted batch run summary
type ScanRunRecord struct {
	ID               int64     `json:"id"`
	JobID            string    `json:"job_id"`
	InitialCapital   float64   `json:"initial_capital"`
	FinalCapital     float64   `json:"final_capital"`
	TotalPnL         float64   `json:"total_pnl"`
	TotalTrades      int       `json:"total_trades"`
	WinRate          float64   `json:"win_rate"`
	SymbolsCompleted int       `json:"symbols_completed"`
	SymbolsFailed    int       `json:"symbols_failed"`
	BestSymbol       string    `json:"best_symbol"`
	WorstSymbol      string    `json:"worst_symbol"`
	Cancelled        bool      `json:"cancelled"`
	CreatedAt        time.Time `json:"created_at"`
}
