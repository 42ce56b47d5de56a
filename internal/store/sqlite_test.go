package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennant-analytics/consensus-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "consensus_test.db")
	s, err := NewSQLite(dsn)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(tier model.QualityTier) model.Record {
	return model.Record{
		Date:          "2025-08-14",
		Matchup:       "Chicago Cubs @ Pittsburgh Pirates",
		AwayTeamRaw:   "Cubs",
		HomeTeamRaw:   "Pirates",
		AwayTeam:      "Chicago Cubs",
		HomeTeam:      "Pittsburgh Pirates",
		PredictedAway: model.Float64Ptr(5.2),
		PredictedHome: model.Float64Ptr(3.1),
		Tier:          tier,
		Source:        "model_a",
		IngestedAt:    time.Now().UTC(),
	}
}

func TestSQLite_PutAndGet(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	res, err := s.Put(ctx, testRecord(model.TierStandard), PutOptions{})
	require.NoError(t, err)
	assert.Equal(t, PutAdded, res)

	got, err := s.Get(ctx, "2025-08-14", "Chicago Cubs @ Pittsburgh Pirates")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Chicago Cubs", got.AwayTeam)
	assert.Equal(t, model.TierStandard, got.Tier)
	assert.Equal(t, 5.2, *got.PredictedAway)
	assert.Equal(t, 1, got.Version)
}

func TestSQLite_GetMissing(t *testing.T) {
	s := newTestSQLiteStore(t)

	got, err := s.Get(context.Background(), "2025-08-14", "nope @ nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_PutUpgrade(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, testRecord(model.TierStandard), PutOptions{})
	require.NoError(t, err)

	better := testRecord(model.TierPremium)
	better.PredictedAway = model.Float64Ptr(6.0)
	better.Attributes = map[string]any{"confidence": 80.0}
	res, err := s.Put(ctx, better, PutOptions{})
	require.NoError(t, err)
	assert.Equal(t, PutUpgraded, res)

	got, err := s.Get(ctx, better.Date, better.Matchup)
	require.NoError(t, err)
	assert.Equal(t, model.TierPremium, got.Tier)
	assert.Equal(t, 6.0, *got.PredictedAway)
	assert.Equal(t, 2, got.Version)
}

func TestSQLite_PutRejectsLowerTier(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, testRecord(model.TierPremium), PutOptions{})
	require.NoError(t, err)

	worse := testRecord(model.TierEstimated)
	worse.PredictedAway = model.Float64Ptr(1.0)
	res, err := s.Put(ctx, worse, PutOptions{})
	require.NoError(t, err)
	assert.Equal(t, PutRejectedLowerTier, res)

	got, err := s.Get(ctx, worse.Date, worse.Matchup)
	require.NoError(t, err)
	assert.Equal(t, model.TierPremium, got.Tier)
	assert.Equal(t, 5.2, *got.PredictedAway)
	assert.Equal(t, 1, got.Version)
}

func TestSQLite_PutDowngradeWithOverride(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, testRecord(model.TierPremium), PutOptions{})
	require.NoError(t, err)

	fix := testRecord(model.TierStandard)
	fix.PredictedAway = model.Float64Ptr(2.0)
	res, err := s.Put(ctx, fix, PutOptions{AllowDowngrade: true})
	require.NoError(t, err)
	assert.Equal(t, PutDowngraded, res)

	got, err := s.Get(ctx, fix.Date, fix.Matchup)
	require.NoError(t, err)
	assert.Equal(t, model.TierStandard, got.Tier)
	assert.Equal(t, 2.0, *got.PredictedAway)
	assert.Equal(t, 2, got.Version)
}

func TestSQLite_PutIdenticalIsUnchanged(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := testRecord(model.TierStandard)
	_, err := s.Put(ctx, rec, PutOptions{})
	require.NoError(t, err)

	res, err := s.Put(ctx, rec, PutOptions{})
	require.NoError(t, err)
	assert.Equal(t, PutUnchanged, res)

	got, err := s.Get(ctx, rec.Date, rec.Matchup)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestSQLite_PutSameTierBackfills(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	first := testRecord(model.TierStandard)
	first.AwayWinProb = model.Float64Ptr(0.6)
	first.HomeWinProb = model.Float64Ptr(0.4)
	_, err := s.Put(ctx, first, PutOptions{})
	require.NoError(t, err)

	second := testRecord(model.TierStandard)
	second.PredictedTotal = model.Float64Ptr(8.3)
	second.AwayWinProb = nil
	second.HomeWinProb = nil
	res, err := s.Put(ctx, second, PutOptions{})
	require.NoError(t, err)
	assert.Equal(t, PutUpgraded, res)

	got, err := s.Get(ctx, first.Date, first.Matchup)
	require.NoError(t, err)
	assert.Equal(t, 8.3, *got.PredictedTotal)
	assert.Equal(t, 0.6, *got.AwayWinProb)
}

func TestSQLite_ListDateAndDates(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testRecord(model.TierStandard)
	b := testRecord(model.TierStandard)
	b.Matchup = "Seattle Mariners @ Baltimore Orioles"
	c := testRecord(model.TierStandard)
	c.Date = "2025-08-15"

	for _, rec := range []model.Record{a, b, c} {
		_, err := s.Put(ctx, rec, PutOptions{})
		require.NoError(t, err)
	}

	recs, err := s.ListDate(ctx, "2025-08-14")
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	dates, err := s.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-08-14", "2025-08-15"}, dates)
}

func TestSQLite_SnapshotAndList(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, testRecord(model.TierStandard), PutOptions{})
	require.NoError(t, err)

	info, err := s.Snapshot(ctx, "pre-merge")
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "pre-merge", info.Label)
	assert.Equal(t, 1, info.RecordCount)

	// A later put must not alter the snapshot descriptor.
	extra := testRecord(model.TierStandard)
	extra.Matchup = "New York Yankees @ Boston Red Sox"
	_, err = s.Put(ctx, extra, PutOptions{})
	require.NoError(t, err)

	infos, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, info.ID, infos[0].ID)
	assert.Equal(t, 1, infos[0].RecordCount)
}

func TestSQLite_Metadata(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	meta, err := s.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, meta.RecordCount)
	assert.Nil(t, meta.LastMergeAt)
	assert.Empty(t, meta.LastSnapshotID)

	_, err = s.Put(ctx, testRecord(model.TierStandard), PutOptions{})
	require.NoError(t, err)
	info, err := s.Snapshot(ctx, "")
	require.NoError(t, err)

	meta, err = s.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.RecordCount)
	assert.Equal(t, 1, meta.DateCount)
	assert.NotNil(t, meta.LastMergeAt)
	assert.Equal(t, info.ID, meta.LastSnapshotID)
}

func TestSQLite_AttributesRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := testRecord(model.TierPremium)
	rec.Attributes = map[string]any{
		"confidence":      72.5,
		"home_pitcher":    "Paul Skenes",
		"score_range_low": 2.0,
	}
	_, err := s.Put(ctx, rec, PutOptions{})
	require.NoError(t, err)

	got, err := s.Get(ctx, rec.Date, rec.Matchup)
	require.NoError(t, err)
	assert.Equal(t, 72.5, got.Attributes["confidence"])
	assert.Equal(t, "Paul Skenes", got.Attributes["home_pitcher"])
}
