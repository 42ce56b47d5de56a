package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var snapshotLabel string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage store snapshots",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Take a full snapshot of the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		info, err := st.Snapshot(ctx, snapshotLabel)
		if err != nil {
			return err
		}
		zap.L().Info("snapshot created",
			zap.String("id", info.ID),
			zap.Int("records", info.RecordCount),
		)
		fmt.Printf("%s  %d records  %s\n", info.ID, info.RecordCount, info.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		infos, err := st.ListSnapshots(ctx)
		if err != nil {
			return err
		}
		for _, info := range infos {
			label := info.Label
			if label == "" {
				label = "-"
			}
			fmt.Printf("%s  %s  %5d records  %s\n",
				info.ID, info.CreatedAt.Format("2006-01-02 15:04:05"), info.RecordCount, label)
		}
		return nil
	},
}

func init() {
	snapshotCreateCmd.Flags().StringVar(&snapshotLabel, "label", "", "optional snapshot label")
	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	rootCmd.AddCommand(snapshotCmd)
}
