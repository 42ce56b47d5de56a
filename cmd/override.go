package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pennant-analytics/consensus-cli/internal/engine"
	"github.com/pennant-analytics/consensus-cli/internal/model"
	"github.com/pennant-analytics/consensus-cli/internal/quality"
	"github.com/pennant-analytics/consensus-cli/internal/team"
)

var (
	overrideFile      string
	overrideDowngrade bool
)

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Apply a manual record correction",
	Long:  "Puts a single record supplied as JSON, optionally permitting a quality-tier downgrade. A snapshot is always taken first. For manual data correction only.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(overrideFile)
		if err != nil {
			return eris.Wrapf(err, "read record %s", overrideFile)
		}
		var raw model.RawRecord
		if err := json.Unmarshal(data, &raw); err != nil {
			return eris.Wrapf(err, "parse record %s", overrideFile)
		}
		if raw.Date == "" || raw.AwayTeam == "" || raw.HomeTeam == "" {
			return eris.New("record must carry date, away_team, and home_team")
		}
		if _, err := time.Parse("2006-01-02", raw.Date); err != nil {
			return eris.Wrapf(err, "unparseable date %s", raw.Date)
		}

		key := team.BuildKey(raw.Date, raw.AwayTeam, raw.HomeTeam)
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
			Attributes:     raw.Attributes,
			Source:         raw.Source,
			IngestedAt:     time.Now().UTC(),
		}
		if raw.Confidence != nil {
			if rec.Attributes == nil {
				rec.Attributes = make(map[string]any)
			}
			rec.Attributes["confidence"] = *raw.Confidence
		}
		rec.NormalizeProbabilities()
		rec.Tier = quality.Classify(&rec)

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		result, err := engine.New(st).AdminPut(ctx, rec, overrideDowngrade)
		if err != nil {
			return err
		}

		zap.L().Info("override applied",
			zap.String("matchup", rec.Matchup),
			zap.String("date", rec.Date),
			zap.String("result", string(result)),
			zap.Bool("allow_downgrade", overrideDowngrade),
		)
		fmt.Printf("%s %s: %s\n", rec.Date, rec.Matchup, result)
		return nil
	},
}

func init() {
	overrideCmd.Flags().StringVar(&overrideFile, "record", "", "path to record JSON (required)")
	overrideCmd.Flags().BoolVar(&overrideDowngrade, "allow-downgrade", false, "permit replacing a higher-tier record")
	_ = overrideCmd.MarkFlagRequired("record")
	rootCmd.AddCommand(overrideCmd)
}
