package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-screener/config"
)

func TestAnalyzeInsufficientData(t *testing.T) {
	s := NewPatternScorer(config.DefaultEngineConfig())

	report := s.Analyze(flatScenario(49))
	require.False(t, report.PatternFound)
	assert.Zero(t, report.ConfidenceScore)
	require.Len(t, report.Criteria, 1)
	assert.Equal(t, CriterionMomentumMove, report.Criteria[0].Name)
	assert.False(t, report.Criteria[0].Met)
}

func TestAnalyzeFlatSeries(t *testing.T) {
	s := NewPatternScorer(config.DefaultEngineConfig())

	report := s.Analyze(flatScenario(120))
	assert.False(t, report.PatternFound)
	require.NotNil(t, report.Criterion(CriterionMomentumMove))
	assert.False(t, report.Criterion(CriterionMomentumMove).Met)
	// quiet series still clears the volatility and liquidity screens
	assert.True(t, report.Criterion(CriterionADRBand).Met)
	assert.True(t, report.Criterion(CriterionLiquidity).Met)
}

func TestAnalyzeSurgeScenario(t *testing.T) {
	s := NewPatternScorer(config.DefaultEngineConfig())

	report := s.Analyze(surgeScenario())
	require.True(t, report.PatternFound, "surge scenario should produce the pattern")
	assert.GreaterOrEqual(t, report.ConfidenceScore, 60.0)

	require.NotNil(t, report.Move)
	require.NotNil(t, report.Consolidation)
	assert.True(t, report.Criterion(CriterionMomentumMove).Met)
	assert.True(t, report.Criterion(CriterionConsolidation).Met)
	assert.True(t, report.Criterion(CriterionConsolidationHold).Met)
	assert.Equal(t, report.Move.EndIndex+1, report.Consolidation.StartIndex)
}

func TestAnalyzeIdempotent(t *testing.T) {
	s := NewPatternScorer(config.DefaultEngineConfig())
	bars := surgeScenario()

	first := s.Analyze(bars)
	second := s.Analyze(bars)
	require.Equal(t, first, second, "repeated analysis of identical input must not diverge")
}

func TestAnalyzeRelativeStrengthJoinsCriteria(t *testing.T) {
	s := NewPatternScorer(config.DefaultEngineConfig())
	bars := surgeScenario()

	base := s.Analyze(bars)
	baseCount := len(base.Criteria)

	rs := true
	s.RelativeStrength = &rs
	with := s.Analyze(bars)

	require.Len(t, with.Criteria, baseCount+1)
	crit := with.Criterion(CriterionRelativeStrength)
	require.NotNil(t, crit)
	assert.True(t, crit.Met)

	rs = false
	without := s.Analyze(bars)
	assert.False(t, without.Criterion(CriterionRelativeStrength).Met)
}

func TestAnalyzeOptionalCriteria(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cfg.Scorer.EnableRegressionFit = true
	cfg.Scorer.EnableRangeStability = true
	s := NewPatternScorer(cfg)

	report := s.Analyze(surgeScenario())
	assert.NotNil(t, report.Criterion(CriterionRegressionFit))
	assert.NotNil(t, report.Criterion(CriterionRangeStability))
}

func TestConfidenceIsMetFraction(t *testing.T) {
	s := NewPatternScorer(config.DefaultEngineConfig())
	report := s.Analyze(surgeScenario())

	want := float64(report.CriteriaMet()) / float64(len(report.Criteria)) * 100
	assert.InDelta(t, want, report.ConfidenceScore, 1e-9)
}
