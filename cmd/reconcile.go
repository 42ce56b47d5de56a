package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pennant-analytics/consensus-cli/internal/engine"
	"github.com/pennant-analytics/consensus-cli/internal/model"
)

var (
	reconcileDate   string
	reconcileInputs []string
	reconcileJSON   bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Merge batches of raw prediction records into the store",
	Long:  "Reads one or more batch files of raw records, takes a pre-merge snapshot, and merges them under quality-tier precedence. Safe to re-run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var (
			mu    sync.Mutex
			batch []model.RawRecord
		)
		g, gctx := errgroup.WithContext(ctx)
		for _, path := range reconcileInputs {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				records, err := loadBatchFile(path)
				if err != nil {
					return err
				}
				mu.Lock()
				batch = append(batch, records...)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		eng := engine.New(st)
		report, err := eng.Reconcile(ctx, reconcileDate, batch)
		if err != nil {
			if report != nil {
				printReport(report, reconcileJSON)
			}
			return eris.Wrap(err, "reconcile")
		}

		printReport(report, reconcileJSON)
		return nil
	},
}

// loadBatchFile reads a JSON array of raw records.
func loadBatchFile(path string) ([]model.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read batch %s", path)
	}
	var records []model.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "parse batch %s", path)
	}
	zap.L().Debug("loaded batch file",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func printReport(report *model.MergeReport, asJSON bool) {
	if asJSON {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Printf("run %s (%s) snapshot %s\n", report.RunID, report.Date, report.SnapshotID)
	fmt.Printf("  added:                     %d\n", report.Added)
	fmt.Printf("  upgraded:                  %d\n", report.Upgraded)
	fmt.Printf("  unchanged (preserved):     %d\n", report.UnchangedPreserved)
	fmt.Printf("  rejected (lower tier):     %d\n", report.RejectedLowerTier)
	fmt.Printf("  rejected (malformed):      %d\n", report.RejectedMalformed)
	fmt.Printf("  regenerated placeholders:  %d\n", report.RegeneratedPlaceholders)
	fmt.Printf("  intra-batch dups resolved: %d\n", report.IntraBatchDuplicates)
	if len(report.UnmappedTeams) > 0 {
		fmt.Printf("  unmapped identifiers:      %v\n", report.UnmappedTeams)
	}
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileDate, "date", "", "event date YYYY-MM-DD (required)")
	reconcileCmd.Flags().StringSliceVar(&reconcileInputs, "input", nil, "batch file(s) of raw records (required)")
	reconcileCmd.Flags().BoolVar(&reconcileJSON, "json", false, "print the merge report as JSON")
	_ = reconcileCmd.MarkFlagRequired("date")
	_ = reconcileCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(reconcileCmd)
}
