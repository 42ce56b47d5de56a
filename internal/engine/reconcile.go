// Package engine orchestrates reconciliation runs: normalize, classify,
// regenerate sentinels, dedup within the batch, then merge into the store
// under tier precedence, guarded by a fresh snapshot.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pennant-analytics/consensus-cli/internal/fallback"
	"github.com/pennant-analytics/consensus-cli/internal/model"
	"github.com/pennant-analytics/consensus-cli/internal/quality"
	"github.com/pennant-analytics/consensus-cli/internal/store"
	"github.com/pennant-analytics/consensus-cli/internal/team"
)

// ErrSnapshotFailed marks a run aborted before any put because the pre-merge
// snapshot could not be taken. The store is untouched.
var ErrSnapshotFailed = eris.New("engine: snapshot failed")

// ErrStoreWrite marks a run aborted mid-merge. Records already written are
// final; re-running the same batch is the recovery path.
var ErrStoreWrite = eris.New("engine: store write failed")

// Engine applies batches of raw records against the store. Runs are
// serialized by an internal mutex so concurrent reconcile calls cannot
// interleave puts and violate monotonic quality.
type Engine struct {
	store store.Store
	mu    sync.Mutex
	now   func() time.Time
}

// New creates an Engine over the given store.
func New(st store.Store) *Engine {
	return &Engine{store: st, now: time.Now}
}

// Reconcile merges one batch of raw records for a date into the store and
// reports what happened to every key. Malformed records are skipped and
// counted; they never abort the batch. Re-running an identical batch is a
// no-op beyond the report.
func (e *Engine) Reconcile(ctx context.Context, date string, batch []model.RawRecord) (*model.MergeReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := &model.MergeReport{
		RunID:     uuid.New().String(),
		Date:      date,
		StartedAt: e.now().UTC(),
	}

	snap, err := e.store.Snapshot(ctx, "pre-merge "+date)
	if err != nil {
		return nil, eris.Wrap(ErrSnapshotFailed, err.Error())
	}
	report.SnapshotID = snap.ID

	zap.L().Info("engine: reconcile started",
		zap.String("run_id", report.RunID),
		zap.String("date", date),
		zap.String("snapshot_id", snap.ID),
		zap.Int("batch_size", len(batch)),
	)

	resolved := e.prepare(date, batch, report)

	for _, rec := range resolved {
		result, err := e.store.Put(ctx, rec, store.PutOptions{})
		if err != nil {
			report.FinishedAt = e.now().UTC()
			return report, eris.Wrap(ErrStoreWrite, err.Error())
		}
		report.Count(model.KeyOutcome{
			Date:    rec.Date,
			Matchup: rec.Matchup,
			Outcome: putOutcome(result),
			Tier:    rec.Tier,
		})
	}

	report.FinishedAt = e.now().UTC()
	zap.L().Info("engine: reconcile finished",
		zap.String("run_id", report.RunID),
		zap.Int("added", report.Added),
		zap.Int("upgraded", report.Upgraded),
		zap.Int("unchanged", report.UnchangedPreserved),
		zap.Int("rejected_lower_tier", report.RejectedLowerTier),
		zap.Int("rejected_malformed", report.RejectedMalformed),
		zap.Int("regenerated", report.RegeneratedPlaceholders),
		zap.Int("intra_batch_duplicates", report.IntraBatchDuplicates),
	)
	return report, nil
}

// prepare normalizes, classifies, regenerates, and dedups the batch before
// any store mutation, so the store never transiently observes a duplicate.
func (e *Engine) prepare(date string, batch []model.RawRecord, report *model.MergeReport) []model.Record {
	byKey := make(map[string]model.Record)
	var order []string

	for _, raw := range batch {
		rec, ok := e.adapt(date, raw, report)
		if !ok {
			continue
		}
		// Records may carry their own dates, so the matchup alone is not
		// unique within a batch.
		key := rec.Date + "|" + rec.Matchup
		if existing, dup := byKey[key]; dup {
			report.IntraBatchDuplicates++
			byKey[key] = model.MergeRecords(existing, rec)
			continue
		}
		byKey[key] = rec
		order = append(order, key)
	}

	resolved := make([]model.Record, 0, len(order))
	for _, key := range order {
		resolved = append(resolved, byKey[key])
	}
	return resolved
}

// adapt turns one raw record into a classified Record, or reports it
// malformed. Placeholder scores are replaced with deterministic fallbacks.
func (e *Engine) adapt(date string, raw model.RawRecord, report *model.MergeReport) (model.Record, bool) {
	recDate := raw.Date
	if recDate == "" {
		recDate = date
	}
	if _, err := time.Parse("2006-01-02", recDate); err != nil || raw.AwayTeam == "" || raw.HomeTeam == "" {
		report.Count(model.KeyOutcome{
			Date:    recDate,
			Outcome: model.OutcomeRejectedMalformed,
			Reason:  malformedReason(recDate, raw),
		})
		return model.Record{}, false
	}

	key := team.BuildKey(recDate, raw.AwayTeam, raw.HomeTeam)
	if _, mapped := team.Lookup(raw.AwayTeam); !mapped {
		report.UnmappedTeams = appendUnique(report.UnmappedTeams, raw.AwayTeam)
	}
	if _, mapped := team.Lookup(raw.HomeTeam); !mapped {
		report.UnmappedTeams = appendUnique(report.UnmappedTeams, raw.HomeTeam)
	}

	rec := model.Record{
		Date:           key.Date,
		AwayTeamRaw:    raw.AwayTeam,
		HomeTeamRaw:    raw.HomeTeam,
		AwayTeam:       key.Away,
		HomeTeam:       key.Home,
		Matchup:        key.Matchup(),
		PredictedAway:  raw.PredictedAway,
		PredictedHome:  raw.PredictedHome,
		PredictedTotal: raw.PredictedTotal,
		AwayWinProb:    raw.AwayWinProb,
		HomeWinProb:    raw.HomeWinProb,
		Source:         raw.Source,
		IngestedAt:     e.now().UTC(),
	}

	rec.Attributes = cloneAttrs(raw.Attributes)
	if raw.Confidence != nil {
		setAttr(&rec, "confidence", *raw.Confidence)
	}
	if raw.ScoreRangeLow != nil {
		setAttr(&rec, "score_range_low", *raw.ScoreRangeLow)
	}
	if raw.ScoreRangeHigh != nil {
		setAttr(&rec, "score_range_high", *raw.ScoreRangeHigh)
	}

	if rec.NormalizeProbabilities() {
		zap.L().Debug("engine: renormalized win probabilities",
			zap.String("matchup", rec.Matchup),
			zap.String("date", rec.Date),
		)
	}

	rec.Tier = quality.Classify(&rec)

	if quality.IsPlaceholder(&rec) {
		gen := fallback.Generate(key)
		rec.PredictedAway = model.Float64Ptr(gen.Away)
		rec.PredictedHome = model.Float64Ptr(gen.Home)
		rec.PredictedTotal = model.Float64Ptr(gen.Total)
		rec.AwayWinProb = model.Float64Ptr(gen.AwayProb)
		rec.HomeWinProb = model.Float64Ptr(gen.HomeProb)
		rec.Regenerated = true
		rec.Tier = model.TierEstimated
		report.RegeneratedPlaceholders++
		zap.L().Info("engine: regenerated placeholder scores",
			zap.String("matchup", rec.Matchup),
			zap.String("date", rec.Date),
		)
	}

	return rec, true
}

// AdminPut applies an administrative correction with downgrade permitted,
// always preceded by its own snapshot.
func (e *Engine) AdminPut(ctx context.Context, rec model.Record, allowDowngrade bool) (store.PutResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.store.Snapshot(ctx, "pre-override "+rec.Date); err != nil {
		return "", eris.Wrap(ErrSnapshotFailed, err.Error())
	}
	result, err := e.store.Put(ctx, rec, store.PutOptions{AllowDowngrade: allowDowngrade})
	if err != nil {
		return "", eris.Wrap(ErrStoreWrite, err.Error())
	}
	return result, nil
}

func putOutcome(r store.PutResult) model.MergeOutcome {
	switch r {
	case store.PutAdded:
		return model.OutcomeAdded
	case store.PutUpgraded:
		return model.OutcomeUpgraded
	case store.PutRejectedLowerTier:
		return model.OutcomeRejectedLowerTier
	case store.PutDowngraded:
		return model.OutcomeDowngraded
	default:
		return model.OutcomeUnchanged
	}
}

func malformedReason(date string, raw model.RawRecord) string {
	if raw.AwayTeam == "" || raw.HomeTeam == "" {
		return "missing identifiers"
	}
	return "unparseable date: " + date
}

func setAttr(rec *model.Record, key string, value any) {
	if rec.Attributes == nil {
		rec.Attributes = make(map[string]any)
	}
	rec.Attributes[key] = value
}

func cloneAttrs(attrs map[string]any) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
