package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pennant-analytics/consensus-cli/internal/model"
)

var (
	listDate string
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List consolidated records for a date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		records, err := st.ListDate(ctx, listDate)
		if err != nil {
			return err
		}

		if listJSON {
			out, _ := json.MarshalIndent(records, "", "  ")
			fmt.Println(string(out))
			return nil
		}

		if len(records) == 0 {
			fmt.Printf("no records for %s\n", listDate)
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%-45s %-11s v%-3d %s\n", rec.Matchup, rec.Tier, rec.Version, formatScores(&rec))
		}
		return nil
	},
}

func formatScores(rec *model.Record) string {
	if !rec.HasScores() {
		return "-"
	}
	s := fmt.Sprintf("%.1f-%.1f", *rec.PredictedAway, *rec.PredictedHome)
	if rec.HasProbabilities() {
		s += fmt.Sprintf(" (%.0f%%/%.0f%%)", *rec.AwayWinProb*100, *rec.HomeWinProb*100)
	}
	if rec.Regenerated {
		s += " [regenerated]"
	}
	return s
}

func init() {
	listCmd.Flags().StringVar(&listDate, "date", "", "event date YYYY-MM-DD (required)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print records as JSON")
	_ = listCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(listCmd)
}
