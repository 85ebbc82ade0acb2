package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ratings-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ratings-engine",
	Short: "Multi-source credit rating aggregation",
	Long:  "Looks up S&P, Fitch and Moody's issuer ratings through a tiered source cascade: static dataset, vendor feed, IR-page scraping and web-search heuristics, with normalization and cross-agency validation.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
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
