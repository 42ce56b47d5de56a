package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pennant-analytics/consensus-cli/internal/model"
)

func TestIsPlaceholder_RegisteredPairs(t *testing.T) {
	assert.True(t, IsSentinelPair(4.0, 4.0))
	assert.True(t, IsSentinelPair(3.952, 4.048))
	assert.True(t, IsSentinelPair(4.0, 4.048))
	assert.True(t, IsSentinelPair(3.952, 4.0))
}

func TestIsPlaceholder_ExactMatchOnly(t *testing.T) {
	// Genuine close games near the sentinel values must not be flagged.
	assert.False(t, IsSentinelPair(4.1, 4.0))
	assert.False(t, IsSentinelPair(4.0, 3.9))
	assert.False(t, IsSentinelPair(3.95, 4.05))
}

func TestIsPlaceholder_MissingScores(t *testing.T) {
	r := &model.Record{PredictedAway: model.Float64Ptr(4.0)}
	assert.False(t, IsPlaceholder(r))
	assert.False(t, IsPlaceholder(&model.Record{}))
}

func TestRegisterSentinel_Additive(t *testing.T) {
	before := len(Sentinels())
	RegisterSentinel(SentinelPair{Away: 2.5, Home: 2.5})
	after := Sentinels()
	assert.Len(t, after, before+1)
	assert.True(t, IsSentinelPair(2.5, 2.5))

	// Prior entries survive additions.
	assert.True(t, IsSentinelPair(4.0, 4.0))
}
