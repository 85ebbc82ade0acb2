package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rateCmd = &cobra.Command{
	Use:   "rate <query>",
	Short: "Look up credit ratings for one entity",
	Long:  "Resolves the query (name, ticker, ISIN or LEI), walks the source cascade and prints the aggregated response as JSON.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		e := initEngine(cfg)

		resp := e.Engine.Lookup(cmd.Context(), query)
		zap.L().Info("lookup finished",
			zap.String("query", query),
			zap.String("status", string(resp.Status)),
			zap.Int("agencies", resp.Summary.AgenciesFound),
			zap.Int64("elapsed_ms", resp.Meta.ElapsedMs),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return eris.Wrap(err, "encode response")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rateCmd)
}
