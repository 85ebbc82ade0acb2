package main

import (
	"bufio"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/ratings-engine/internal/engine"
	"github.com/sells-group/ratings-engine/internal/model"
)

// maxSeedConcurrency caps the worker pool regardless of configuration, to
// keep a bulk run from hammering the upstream sources.
const maxSeedConcurrency = 8

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Pre-warm the cache from a list of entities",
	Long:  "Reads one query per line (names, tickers, ISINs or LEIs; blank lines and # comments skipped) and runs the cascade for each under a worker pool and rate limit. Seed runs use a longer breaker cooldown so one flaky source sits out most of the batch.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		queries, err := readQueries(args[0])
		if err != nil {
			return err
		}
		if len(queries) == 0 {
			zap.L().Warn("seed file contains no queries", zap.String("file", args[0]))
			return nil
		}

		e := initEngine(cfg, func(ec *engine.Config) {
			ec.BreakerCooldown = cfg.Seed.BreakerCooldown()
		})

		concurrency := min(cfg.Seed.Concurrency, maxSeedConcurrency)
		if concurrency <= 0 {
			concurrency = maxSeedConcurrency
		}
		limiter := rate.NewLimiter(rate.Limit(cfg.Seed.RatePerSecond), 1)

		var ok, failed atomic.Int64
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(concurrency)
		for _, query := range queries {
			g.Go(func() error {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
				resp := e.Engine.Lookup(ctx, query)
				if resp.Status == model.StatusError {
					failed.Add(1)
					zap.L().Warn("seed lookup failed",
						zap.String("query", query),
						zap.Strings("errors", resp.Diag.Errors),
					)
					return nil // one bad entity must not abort the batch
				}
				ok.Add(1)
				zap.L().Info("seeded",
					zap.String("query", query),
					zap.String("status", string(resp.Status)),
					zap.Int("agencies", resp.Summary.AgenciesFound),
				)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "seed interrupted")
		}

		zap.L().Info("seed complete",
			zap.Int("total", len(queries)),
			zap.Int64("ok", ok.Load()),
			zap.Int64("failed", failed.Load()),
			zap.Int("cached", e.Cache.Len()),
		)
		return nil
	},
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open seed file")
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "read seed file")
	}
	return queries, nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
