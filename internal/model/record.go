// Package model defines the record schema shared by the reconciliation
// engine, the store backends, and the CLI.
package model

import (
	"math"
	"reflect"
	"time"
)

// QualityTier ranks how complete and trustworthy a record's prediction
// fields are. Precedence during merge is decided by tier alone, never by
// source tag.
type QualityTier string

const (
	TierPlaceholder QualityTier = "placeholder"
	TierEstimated   QualityTier = "estimated"
	TierStandard    QualityTier = "standard"
	TierPremium     QualityTier = "premium"
)

// tierRanks orders tiers for precedence comparison.
var tierRanks = map[QualityTier]int{
	TierPlaceholder: 0,
	TierEstimated:   1,
	TierStandard:    2,
	TierPremium:     3,
}

// Rank returns the precedence rank of the tier. Unknown tiers rank lowest.
func (q QualityTier) Rank() int {
	return tierRanks[q]
}

// ProbabilityTolerance is the allowed deviation of awayProb+homeProb from 1.
const ProbabilityTolerance = 1e-3

// RawRecord is the minimal shape external generators hand to the engine.
// Only the identifiers and date are mandatory; everything else is optional.
type RawRecord struct {
	Date           string         `json:"date"`
	AwayTeam       string         `json:"away_team"`
	HomeTeam       string         `json:"home_team"`
	PredictedAway  *float64       `json:"predicted_away_score,omitempty"`
	PredictedHome  *float64       `json:"predicted_home_score,omitempty"`
	PredictedTotal *float64       `json:"predicted_total,omitempty"`
	AwayWinProb    *float64       `json:"away_win_prob,omitempty"`
	HomeWinProb    *float64       `json:"home_win_prob,omitempty"`
	Confidence     *float64       `json:"confidence,omitempty"`
	ScoreRangeLow  *float64       `json:"score_range_low,omitempty"`
	ScoreRangeHigh *float64       `json:"score_range_high,omitempty"`
	Source         string         `json:"source,omitempty"`
	Attributes     map[string]any `json:"attributes,omitempty"`
}

// Record is one consolidated prediction for a matchup on a date.
type Record struct {
	Date        string `json:"date"`
	AwayTeamRaw string `json:"away_team_raw"`
	HomeTeamRaw string `json:"home_team_raw"`
	AwayTeam    string `json:"away_team"`
	HomeTeam    string `json:"home_team"`
	Matchup     string `json:"matchup"`

	PredictedAway  *float64 `json:"predicted_away_score,omitempty"`
	PredictedHome  *float64 `json:"predicted_home_score,omitempty"`
	PredictedTotal *float64 `json:"predicted_total,omitempty"`
	AwayWinProb    *float64 `json:"away_win_prob,omitempty"`
	HomeWinProb    *float64 `json:"home_win_prob,omitempty"`

	Attributes map[string]any `json:"attributes,omitempty"`

	Tier        QualityTier `json:"quality_tier"`
	Source      string      `json:"source,omitempty"`
	Regenerated bool        `json:"regenerated,omitempty"`
	Version     int         `json:"version"`
	IngestedAt  time.Time   `json:"ingested_at"`
}

// HasScores reports whether both predicted score fields are present.
func (r *Record) HasScores() bool {
	return r.PredictedAway != nil && r.PredictedHome != nil
}

// HasProbabilities reports whether both win probability fields are present.
func (r *Record) HasProbabilities() bool {
	return r.AwayWinProb != nil && r.HomeWinProb != nil
}

// NormalizeProbabilities rescales the win probability pair so it sums to 1
// when both are present and the sum is off by more than the tolerance.
// Degenerate pairs summing to zero are left alone.
func (r *Record) NormalizeProbabilities() bool {
	if !r.HasProbabilities() {
		return false
	}
	sum := *r.AwayWinProb + *r.HomeWinProb
	if sum <= 0 || math.Abs(sum-1) <= ProbabilityTolerance {
		return false
	}
	away := *r.AwayWinProb / sum
	home := *r.HomeWinProb / sum
	r.AwayWinProb = &away
	r.HomeWinProb = &home
	return true
}

// EquivalentTo reports whether two records carry the same prediction payload,
// ignoring bookkeeping fields (version, ingest timestamp, raw spellings).
// Used by the store to detect no-op puts so re-runs stay idempotent.
func (r *Record) EquivalentTo(other *Record) bool {
	if other == nil {
		return false
	}
	if r.Date != other.Date || r.Matchup != other.Matchup || r.Tier != other.Tier {
		return false
	}
	if r.Source != other.Source || r.Regenerated != other.Regenerated {
		return false
	}
	if !floatPtrEqual(r.PredictedAway, other.PredictedAway) ||
		!floatPtrEqual(r.PredictedHome, other.PredictedHome) ||
		!floatPtrEqual(r.PredictedTotal, other.PredictedTotal) ||
		!floatPtrEqual(r.AwayWinProb, other.AwayWinProb) ||
		!floatPtrEqual(r.HomeWinProb, other.HomeWinProb) {
		return false
	}
	return attrsEqual(r.Attributes, other.Attributes)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// attrsEqual compares attribute maps structurally. Values may hold nested
// JSON shapes, so == is not safe here.
func attrsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}

// Float64Ptr returns a pointer to v. Convenience for building records.
func Float64Ptr(v float64) *float64 { return &v }
