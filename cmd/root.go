package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pennant-analytics/consensus-cli/internal/config"
	"github.com/pennant-analytics/consensus-cli/internal/team"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "consensus-cli",
	Short: "Multi-source MLB prediction reconciliation",
	Long:  "Consolidates prediction records from independent generators into one canonical store keyed by date and matchup, under quality-tier precedence.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if cfg.Teams.AliasFile != "" {
			n, err := team.LoadAliasFile(cfg.Teams.AliasFile)
			if err != nil {
				return fmt.Errorf("load alias file: %w", err)
			}
			zap.L().Info("loaded team alias overlay",
				zap.String("file", cfg.Teams.AliasFile),
				zap.Int("aliases", n),
			)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
