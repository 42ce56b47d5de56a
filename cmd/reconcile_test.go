package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennant-analytics/consensus-cli/internal/model"
)

func TestLoadBatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"away_team": "Chicago Cubs", "home_team": "Pittsburgh Pirates", "predicted_away_score": 5.2, "predicted_home_score": 3.1},
		{"away_team": "Seattle Mariners", "home_team": "Baltimore Orioles"}
	]`), 0o644))

	records, err := loadBatchFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Chicago Cubs", records[0].AwayTeam)
	assert.Equal(t, 5.2, *records[0].PredictedAway)
	assert.Nil(t, records[1].PredictedAway)
}

func TestLoadBatchFile_Missing(t *testing.T) {
	_, err := loadBatchFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadBatchFile_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0o644))
	_, err := loadBatchFile(path)
	require.Error(t, err)
}

func TestFormatScores(t *testing.T) {
	rec := &model.Record{
		PredictedAway: model.Float64Ptr(5.2),
		PredictedHome: model.Float64Ptr(3.1),
		AwayWinProb:   model.Float64Ptr(0.55),
		HomeWinProb:   model.Float64Ptr(0.45),
	}
	assert.Equal(t, "5.2-3.1 (55%/45%)", formatScores(rec))

	rec.Regenerated = true
	assert.Equal(t, "5.2-3.1 (55%/45%) [regenerated]", formatScores(rec))

	assert.Equal(t, "-", formatScores(&model.Record{}))
}
