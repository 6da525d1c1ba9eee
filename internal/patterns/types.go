// Package patterns implements the momentum-move search, consolidation
// validation, and multi-criteria pattern scoring over daily bar series.
package patterns

// MomentumMove is the best-scoring directional move found in the
// lookback window. Found=false with a Reason is a normal outcome, not
// an error.
type MomentumMove struct {
	Found      bool    `json:"found"`
	Reason     string  `json:"reason,omitempty"`
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"`
	MovePct    float64 `json:"move_pct"`
	Duration   int     `json:"duration"`
	Velocity   float64 `json:"velocity"`
	Score      float64 `json:"score"`
	AvgVolume  float64 `json:"avg_volume"`
	PeakVolume float64 `json:"peak_volume"`
	AvgRange   float64 `json:"avg_range"`
}

// moveCandidate is one (start,end) pair surviving the elimination
// gates during the search. Only the best-scoring candidate is kept.
type moveCandidate struct {
	start    int
	end      int
	movePct  float64
	velocity float64
	score    float64
}

// CheckResult records one named validation check with its observation
type CheckResult struct {
	Met    bool   `json:"met"`
	Detail string `json:"detail"`
}

// ConsolidationWindow describes the validated post-move quiet period.
// Checks always carries the full detail set, pass or fail.
type ConsolidationWindow struct {
	Found         bool                   `json:"found"`
	Reason        string                 `json:"reason,omitempty"`
	StartIndex    int                    `json:"start_index"`
	EndIndex      int                    `json:"end_index"`
	AvgVolume     float64                `json:"avg_volume"`
	AvgRange      float64                `json:"avg_range"`
	PriceDriftPct float64                `json:"price_drift_pct"`
	FloorPrice    float64                `json:"floor_price"`
	Checks        map[string]CheckResult `json:"checks"`
}

// Criterion is one named scoring check in the report
type Criterion struct {
	Name   string `json:"name"`
	Met    bool   `json:"met"`
	Detail string `json:"detail"`
}

// PatternReport is the full single-shot analysis result for one bar
// sequence. It is recomputed from scratch on every call and carries no
// state between calls.
type PatternReport struct {
	PatternFound    bool                 `json:"pattern_found"`
	ConfidenceScore float64              `json:"confidence_score"` // 0..100
	Criteria        []Criterion          `json:"criteria"`
	Move            *MomentumMove        `json:"move,omitempty"`
	Consolidation   *ConsolidationWindow `json:"consolidation,omitempty"`
}

// CriteriaMet counts the satisfied criteria
func (r *PatternReport) CriteriaMet() int {
	met := 0
	for _, c := range r.Criteria {
		if c.Met {
			met++
		}
	}
	return met
}

// Criterion returns a criterion by name, or nil when absent
func (r *PatternReport) Criterion(name string) *Criterion {
	for i := range r.Criteria {
		if r.Criteria[i].Name == name {
			return &r.Criteria[i]
		}
	}
	return nil
}
