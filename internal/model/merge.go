package model

// MergeRecords combines two records for the same key, favoring the higher
// tier and backfilling only genuinely-absent fields from the loser. Raw
// spellings stay with the winner; auxiliary attributes from the loser are
// kept when the winner lacks the key. Both the store (on key collision) and
// the engine (intra-batch dedup) resolve conflicts through this one path.
func MergeRecords(a, b Record) Record {
	winner, loser := a, b
	if b.Tier.Rank() > a.Tier.Rank() {
		winner, loser = b, a
	}

	if winner.PredictedAway == nil && loser.PredictedAway != nil {
		winner.PredictedAway = loser.PredictedAway
	}
	if winner.PredictedHome == nil && loser.PredictedHome != nil {
		winner.PredictedHome = loser.PredictedHome
	}
	if winner.PredictedTotal == nil && loser.PredictedTotal != nil {
		winner.PredictedTotal = loser.PredictedTotal
	}
	if winner.AwayWinProb == nil && loser.AwayWinProb != nil {
		winner.AwayWinProb = loser.AwayWinProb
	}
	if winner.HomeWinProb == nil && loser.HomeWinProb != nil {
		winner.HomeWinProb = loser.HomeWinProb
	}

	if len(loser.Attributes) > 0 {
		merged := make(map[string]any, len(winner.Attributes)+len(loser.Attributes))
		for k, v := range loser.Attributes {
			merged[k] = v
		}
		for k, v := range winner.Attributes {
			merged[k] = v
		}
		winner.Attributes = merged
	}

	return winner
}
