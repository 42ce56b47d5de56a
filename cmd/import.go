package main

import (
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pennant-analytics/consensus-cli/internal/engine"
	"github.com/pennant-analytics/consensus-cli/internal/ingest"
	"github.com/pennant-analytics/consensus-cli/internal/model"
)

var importFiles []string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import legacy prediction cache files",
	Long:  "Reads legacy unified-cache JSON files, adapts their historical field variants, and reconciles every date they contain.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var (
			mu     sync.Mutex
			byDate = make(map[string][]model.RawRecord)
		)
		g, gctx := errgroup.WithContext(ctx)
		for _, path := range importFiles {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				parsed, err := ingest.LoadFile(path)
				if err != nil {
					return err
				}
				mu.Lock()
				for date, records := range parsed {
					byDate[date] = append(byDate[date], records...)
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		dates := make([]string, 0, len(byDate))
		for date := range byDate {
			dates = append(dates, date)
		}
		sort.Strings(dates)

		eng := engine.New(st)
		for _, date := range dates {
			report, err := eng.Reconcile(ctx, date, byDate[date])
			if err != nil {
				return err
			}
			zap.L().Info("imported date",
				zap.String("date", date),
				zap.Int("added", report.Added),
				zap.Int("upgraded", report.Upgraded),
				zap.Int("unchanged", report.UnchangedPreserved),
				zap.Int("rejected_lower_tier", report.RejectedLowerTier),
				zap.Int("regenerated", report.RegeneratedPlaceholders),
			)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringSliceVar(&importFiles, "file", nil, "legacy cache file(s) (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
