package main

import (
	"github.com/sells-group/ratings-engine/internal/cache"
	"github.com/sells-group/ratings-engine/internal/config"
	"github.com/sells-group/ratings-engine/internal/engine"
	"github.com/sells-group/ratings-engine/internal/extract"
	"github.com/sells-group/ratings-engine/internal/resilience"
	"github.com/sells-group/ratings-engine/internal/source"
	"github.com/sells-group/ratings-engine/internal/validate"
	"github.com/sells-group/ratings-engine/pkg/anthropic"
	"github.com/sells-group/ratings-engine/pkg/jina"
)

// env bundles the long-lived components behind the commands.
type env struct {
	Engine *engine.Engine
	Cache  *cache.Cache
}

// engineOverrides tweaks the engine config for a specific command before
// assembly. The seed path uses it to lengthen the breaker cooldown.
type engineOverrides func(*engine.Config)

// initEngine wires the full cascade from configuration. Optional tiers are
// left out when their credentials are absent: no vendor URL means no vendor
// tier, no Jina key disables scraping and heuristics, and without an
// Anthropic key extraction runs regex-only.
func initEngine(cfg *config.Config, overrides ...engineOverrides) *env {
	wrapper := resilience.NewWrapper(resilience.NewBreakers())

	var llm anthropic.Client
	if cfg.Anthropic.Key != "" {
		llm = anthropic.NewClient(cfg.Anthropic.Key)
	}
	extractor := extract.New(llm, cfg.Anthropic.Model)

	adapters := []source.Adapter{source.NewDataset()}
	if cfg.Vendor.BaseURL != "" {
		adapters = append(adapters, source.NewVendor(cfg.Vendor.BaseURL, cfg.Vendor.Key))
	}
	if cfg.Jina.Key != "" {
		// The guarded client gives the page-level fetches their own
		// breakers, separate from the tier-level ones.
		reader := source.GuardJina(wrapper, jina.NewClient(cfg.Jina.Key,
			jina.WithReaderBaseURL(cfg.Jina.BaseURL),
			jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
		))
		if !cfg.Engine.DisableScraper {
			adapters = append(adapters, source.NewScraper(reader, extractor, cfg.Engine.ScrapeSubTimeout()))
		}
		if !cfg.Engine.DisableHeuristic {
			adapters = append(adapters, source.NewHeuristic(reader, extractor))
		}
	}

	engCfg := engine.Config{
		GlobalDeadline:   cfg.Engine.GlobalDeadline(),
		TierTimeout:      cfg.Engine.TierTimeout(),
		TierAttempts:     cfg.Engine.TierAttempts,
		BreakerThreshold: cfg.Engine.BreakerThreshold,
		BreakerCooldown:  cfg.Engine.BreakerCooldown(),
	}
	for _, o := range overrides {
		o(&engCfg)
	}

	store := cache.New(cfg.Cache.TTL(), cfg.Cache.StaleAfter())
	validator := validate.New(validate.Config{
		MaxAgeDays:  cfg.Validation.MaxAgeDays,
		WarnAgeDays: cfg.Validation.WarnAgeDays,
	})

	return &env{
		Engine: engine.New(engCfg, store, wrapper, validator, adapters...),
		Cache:  store,
	}
}
