// Package quality assigns quality tiers and detects sentinel placeholder
// scores left behind by historical broken generators.
package quality

import (
	"sync"

	"github.com/pennant-analytics/consensus-cli/internal/model"
)

// SentinelPair is one exact score pair known to be a generator fallback
// rather than a genuine prediction. Matching is exact-value, never
// range-based, so genuine close games are not flagged.
type SentinelPair struct {
	Away float64 `json:"away" yaml:"away"`
	Home float64 `json:"home" yaml:"home"`
}

// Seed registry: the equal-split fallback and the repeating-decimal pair the
// early generators emitted, including the cross combinations observed in the
// historical caches. Append-only; entries are never removed so old bad data
// stays detectable.
var (
	sentinelMu sync.RWMutex
	sentinels  = []SentinelPair{
		{Away: 4.0, Home: 4.0},
		{Away: 3.952, Home: 4.048},
		{Away: 4.0, Home: 4.048},
		{Away: 3.952, Home: 4.0},
	}
)

// RegisterSentinel appends a newly-discovered sentinel pair to the registry.
func RegisterSentinel(p SentinelPair) {
	sentinelMu.Lock()
	defer sentinelMu.Unlock()
	sentinels = append(sentinels, p)
}

// Sentinels returns a copy of the registry.
func Sentinels() []SentinelPair {
	sentinelMu.RLock()
	defer sentinelMu.RUnlock()
	out := make([]SentinelPair, len(sentinels))
	copy(out, sentinels)
	return out
}

// IsPlaceholder reports whether a record's predicted scores exactly match a
// registered sentinel pair. Records without both scores cannot match.
func IsPlaceholder(r *model.Record) bool {
	if !r.HasScores() {
		return false
	}
	return IsSentinelPair(*r.PredictedAway, *r.PredictedHome)
}

// IsSentinelPair reports whether an exact score pair is registered.
func IsSentinelPair(away, home float64) bool {
	sentinelMu.RLock()
	defer sentinelMu.RUnlock()
	for _, p := range sentinels {
		if away == p.Away && home == p.Home {
			return true
		}
	}
	return false
}
