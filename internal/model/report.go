package model

import "time"

// MergeOutcome labels what happened to one key during a reconciliation run.
type MergeOutcome string

const (
	OutcomeAdded             MergeOutcome = "added"
	OutcomeUpgraded          MergeOutcome = "upgraded"
	OutcomeUnchanged         MergeOutcome = "unchanged_preserved"
	OutcomeRejectedLowerTier MergeOutcome = "rejected_lower_tier"
	OutcomeRejectedMalformed MergeOutcome = "rejected_malformed"
	OutcomeDowngraded        MergeOutcome = "downgraded"
)

// KeyOutcome records the result for one matchup key so operators can audit
// a run without diffing the store.
type KeyOutcome struct {
	Date    string       `json:"date"`
	Matchup string       `json:"matchup,omitempty"`
	Outcome MergeOutcome `json:"outcome"`
	Tier    QualityTier  `json:"tier,omitempty"`
	Reason  string       `json:"reason,omitempty"`
}

// MergeReport summarizes a reconciliation run.
type MergeReport struct {
	RunID      string    `json:"run_id"`
	Date       string    `json:"date"`
	SnapshotID string    `json:"snapshot_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Added                   int `json:"added"`
	Upgraded                int `json:"upgraded"`
	UnchangedPreserved      int `json:"unchanged_preserved"`
	RejectedLowerTier       int `json:"rejected_lower_tier"`
	RejectedMalformed       int `json:"rejected_malformed"`
	RegeneratedPlaceholders int `json:"regenerated_placeholders"`
	IntraBatchDuplicates    int `json:"intra_batch_duplicates_resolved"`

	// UnmappedTeams lists raw identifiers that passed through normalization
	// without a canonical match. Visibility only, never blocking.
	UnmappedTeams []string     `json:"unmapped_teams,omitempty"`
	Outcomes      []KeyOutcome `json:"outcomes,omitempty"`
}

// Count registers a per-key outcome and bumps the matching counter.
func (m *MergeReport) Count(o KeyOutcome) {
	m.Outcomes = append(m.Outcomes, o)
	switch o.Outcome {
	case OutcomeAdded:
		m.Added++
	case OutcomeUpgraded:
		m.Upgraded++
	case OutcomeUnchanged:
		m.UnchangedPreserved++
	case OutcomeRejectedLowerTier:
		m.RejectedLowerTier++
	case OutcomeRejectedMalformed:
		m.RejectedMalformed++
	}
}
