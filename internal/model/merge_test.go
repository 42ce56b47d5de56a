package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeRecords_HigherTierWins(t *testing.T) {
	premium := Record{Tier: TierPremium, PredictedAway: Float64Ptr(6.0), Source: "model_a"}
	standard := Record{Tier: TierStandard, PredictedAway: Float64Ptr(4.0), Source: "model_b"}

	merged := MergeRecords(standard, premium)
	assert.Equal(t, TierPremium, merged.Tier)
	assert.Equal(t, 6.0, *merged.PredictedAway)
	assert.Equal(t, "model_a", merged.Source)
}

func TestMergeRecords_FirstWinsOnTie(t *testing.T) {
	a := Record{Tier: TierStandard, PredictedAway: Float64Ptr(5.0), Source: "model_a"}
	b := Record{Tier: TierStandard, PredictedAway: Float64Ptr(4.0), Source: "model_b"}

	merged := MergeRecords(a, b)
	assert.Equal(t, 5.0, *merged.PredictedAway)
	assert.Equal(t, "model_a", merged.Source)
}

func TestMergeRecords_BackfillsMissingFields(t *testing.T) {
	winner := Record{Tier: TierPremium, PredictedAway: Float64Ptr(6.0)}
	loser := Record{
		Tier:           TierStandard,
		PredictedAway:  Float64Ptr(4.0),
		PredictedTotal: Float64Ptr(8.5),
		AwayWinProb:    Float64Ptr(0.6),
		HomeWinProb:    Float64Ptr(0.4),
	}

	merged := MergeRecords(winner, loser)
	assert.Equal(t, 6.0, *merged.PredictedAway)
	assert.Equal(t, 8.5, *merged.PredictedTotal)
	assert.Equal(t, 0.6, *merged.AwayWinProb)
}

func TestMergeRecords_AttributeUnionWinnerPrecedence(t *testing.T) {
	winner := Record{Tier: TierPremium, Attributes: map[string]any{"confidence": 80.0}}
	loser := Record{Tier: TierStandard, Attributes: map[string]any{
		"confidence":   50.0,
		"home_pitcher": "Paul Skenes",
	}}

	merged := MergeRecords(winner, loser)
	assert.Equal(t, 80.0, merged.Attributes["confidence"])
	assert.Equal(t, "Paul Skenes", merged.Attributes["home_pitcher"])
}

func TestMergeRecords_NoLoserAttributesLeavesWinnerUntouched(t *testing.T) {
	winner := Record{Tier: TierPremium, Attributes: map[string]any{"confidence": 80.0}}
	loser := Record{Tier: TierStandard}

	merged := MergeRecords(winner, loser)
	assert.Equal(t, winner.Attributes, merged.Attributes)
}
