package quality

import "github.com/pennant-analytics/consensus-cli/internal/model"

// Classify assigns a quality tier. Rules are evaluated in order and the
// first match wins; sentinel detection runs before the "has numbers" checks
// so placeholder data is never counted as standard quality.
func Classify(r *model.Record) model.QualityTier {
	if !r.HasScores() {
		if r.HasProbabilities() {
			return model.TierEstimated
		}
		return model.TierPlaceholder
	}

	if IsPlaceholder(r) {
		return model.TierPlaceholder
	}

	if hasConfidence(r) || hasScoreRange(r) {
		return model.TierPremium
	}

	return model.TierStandard
}

func hasConfidence(r *model.Record) bool {
	v, ok := r.Attributes["confidence"]
	if !ok {
		return false
	}
	switch n := v.(type) {
	case float64:
		return n > 0
	case int:
		return n > 0
	default:
		return false
	}
}

func hasScoreRange(r *model.Record) bool {
	_, lo := r.Attributes["score_range_low"]
	_, hi := r.Attributes["score_range_high"]
	return lo && hi
}
