package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeProbabilities_OffByTooMuch(t *testing.T) {
	r := &Record{
		AwayWinProb: Float64Ptr(0.55),
		HomeWinProb: Float64Ptr(0.50),
	}
	assert.True(t, r.NormalizeProbabilities())
	assert.InDelta(t, 1.0, *r.AwayWinProb+*r.HomeWinProb, ProbabilityTolerance)
	assert.InDelta(t, 0.5238, *r.AwayWinProb, 1e-3)
}

func TestNormalizeProbabilities_WithinTolerance(t *testing.T) {
	r := &Record{
		AwayWinProb: Float64Ptr(0.6),
		HomeWinProb: Float64Ptr(0.4),
	}
	assert.False(t, r.NormalizeProbabilities())
	assert.Equal(t, 0.6, *r.AwayWinProb)
}

func TestNormalizeProbabilities_OneMissing(t *testing.T) {
	r := &Record{AwayWinProb: Float64Ptr(0.55)}
	assert.False(t, r.NormalizeProbabilities())
}

func TestNormalizeProbabilities_ZeroSum(t *testing.T) {
	r := &Record{
		AwayWinProb: Float64Ptr(0),
		HomeWinProb: Float64Ptr(0),
	}
	assert.False(t, r.NormalizeProbabilities())
}

func TestEquivalentTo_IgnoresBookkeeping(t *testing.T) {
	a := Record{
		Date:          "2025-08-14",
		Matchup:       "Chicago Cubs @ Pittsburgh Pirates",
		Tier:          TierStandard,
		PredictedAway: Float64Ptr(5.0),
		PredictedHome: Float64Ptr(3.0),
		Version:       1,
	}
	b := a
	b.Version = 7
	b.AwayTeamRaw = "Cubs"
	assert.True(t, a.EquivalentTo(&b))
}

func TestEquivalentTo_DetectsValueChange(t *testing.T) {
	a := Record{Date: "2025-08-14", Matchup: "m", Tier: TierStandard, PredictedAway: Float64Ptr(5.0)}
	b := a
	b.PredictedAway = Float64Ptr(6.0)
	assert.False(t, a.EquivalentTo(&b))

	c := a
	c.Tier = TierPremium
	assert.False(t, a.EquivalentTo(&c))
}

func TestEquivalentTo_NestedAttributes(t *testing.T) {
	a := Record{Matchup: "m", Attributes: map[string]any{"pitchers": []any{"A", "B"}}}
	b := Record{Matchup: "m", Attributes: map[string]any{"pitchers": []any{"A", "B"}}}
	assert.True(t, a.EquivalentTo(&b))

	b.Attributes["pitchers"] = []any{"A", "C"}
	assert.False(t, a.EquivalentTo(&b))
}
