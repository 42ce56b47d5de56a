// Package ingest adapts legacy prediction cache files to raw records. The
// historical caches drifted across generators: games keyed by matchup or
// stored as arrays, and half a dozen spellings for the same fields. The
// variance is absorbed here, once, so the engine only ever sees RawRecords.
package ingest

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/pennant-analytics/consensus-cli/internal/model"
)

// legacyCache mirrors the top level of unified_predictions_cache.json.
// Older files omit predictions_by_date and key dates at the top level.
type legacyCache struct {
	PredictionsByDate map[string]json.RawMessage `json:"predictions_by_date"`
}

// LoadFile reads a legacy cache file and returns raw records grouped by date.
func LoadFile(path string) (map[string][]model.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	return Parse(data)
}

// Parse converts legacy cache JSON into raw records grouped by date.
func Parse(data []byte) (map[string][]model.RawRecord, error) {
	var cache legacyCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, eris.Wrap(err, "ingest: parse cache")
	}

	byDate := cache.PredictionsByDate
	if byDate == nil {
		// Oldest layout: dates directly at the top level.
		if err := json.Unmarshal(data, &byDate); err != nil {
			return nil, eris.Wrap(err, "ingest: parse top-level dates")
		}
	}

	out := make(map[string][]model.RawRecord, len(byDate))
	for date, rawDay := range byDate {
		if date == "metadata" {
			continue
		}
		records, err := parseDay(date, rawDay)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: date %s", date)
		}
		if len(records) > 0 {
			out[date] = records
		}
	}
	return out, nil
}

func parseDay(date string, raw json.RawMessage) ([]model.RawRecord, error) {
	var day struct {
		Games json.RawMessage `json:"games"`
	}
	if err := json.Unmarshal(raw, &day); err != nil {
		return nil, eris.Wrap(err, "unmarshal day")
	}
	if day.Games == nil {
		return nil, nil
	}

	// Newer caches key games by "Away @ Home"; older ones store an array.
	var gameMap map[string]map[string]any
	if err := json.Unmarshal(day.Games, &gameMap); err == nil {
		keys := make([]string, 0, len(gameMap))
		for k := range gameMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		records := make([]model.RawRecord, 0, len(keys))
		for _, k := range keys {
			records = append(records, adaptGame(date, gameMap[k]))
		}
		return records, nil
	}

	var gameList []map[string]any
	if err := json.Unmarshal(day.Games, &gameList); err != nil {
		return nil, eris.Wrap(err, "unmarshal games")
	}
	records := make([]model.RawRecord, 0, len(gameList))
	for _, g := range gameList {
		records = append(records, adaptGame(date, g))
	}
	return records, nil
}

// adaptGame probes the historical field-name variants in precedence order.
func adaptGame(date string, g map[string]any) model.RawRecord {
	raw := model.RawRecord{
		Date:           date,
		AwayTeam:       getString(g, "away_team", "away", "away_name"),
		HomeTeam:       getString(g, "home_team", "home", "home_name"),
		PredictedAway:  getFloat(g, "predicted_away_score", "away_score_prediction", "predicted_away"),
		PredictedHome:  getFloat(g, "predicted_home_score", "home_score_prediction", "predicted_home"),
		PredictedTotal: getFloat(g, "predicted_total_runs", "predicted_total", "total_runs"),
		AwayWinProb:    getFloat(g, "away_win_probability", "away_win_prob", "away_prob"),
		HomeWinProb:    getFloat(g, "home_win_probability", "home_win_prob", "home_prob"),
		Confidence:     getFloat(g, "confidence", "confidence_level"),
		Source:         getString(g, "prediction_source", "source", "model_version"),
	}

	consumed := map[string]bool{
		"away_team": true, "away": true, "away_name": true,
		"home_team": true, "home": true, "home_name": true,
		"predicted_away_score": true, "away_score_prediction": true, "predicted_away": true,
		"predicted_home_score": true, "home_score_prediction": true, "predicted_home": true,
		"predicted_total_runs": true, "predicted_total": true, "total_runs": true,
		"away_win_probability": true, "away_win_prob": true, "away_prob": true,
		"home_win_probability": true, "home_win_prob": true, "home_prob": true,
		"confidence": true, "confidence_level": true,
		"prediction_source": true, "source": true, "model_version": true,
		"quality_level": true, "date": true,
	}
	for k, v := range g {
		if consumed[k] || v == nil {
			continue
		}
		if raw.Attributes == nil {
			raw.Attributes = make(map[string]any)
		}
		raw.Attributes[k] = v
	}

	return raw
}

func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func getFloat(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			f := v
			return &f
		case string:
			continue
		}
	}
	return nil
}
