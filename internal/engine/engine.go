// Package engine orchestrates the tiered rating lookup: resolve the entity,
// consult the cache, walk the source cascade under a global deadline, then
// normalize, cross-validate and summarize whatever was found. A lookup never
// returns an error; failures degrade the response instead.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/ratings-engine/internal/cache"
	"github.com/sells-group/ratings-engine/internal/model"
	"github.com/sells-group/ratings-engine/internal/normalize"
	"github.com/sells-group/ratings-engine/internal/resilience"
	"github.com/sells-group/ratings-engine/internal/source"
	"github.com/sells-group/ratings-engine/internal/validate"
)

// Config tunes the cascade. Zero values fall back to the defaults below.
type Config struct {
	// GlobalDeadline bounds one full cascade walk. Default: 10s.
	GlobalDeadline time.Duration
	// TierTimeout bounds a single tier attempt. Default: 5s.
	TierTimeout time.Duration
	// TierAttempts is the attempt count for network tiers. Default: 2.
	TierAttempts int
	// BreakerThreshold opens a tier's breaker after this many consecutive
	// failures. Default: 5.
	BreakerThreshold int
	// BreakerCooldown is how long an open breaker rejects before resetting.
	// Default: 60s.
	BreakerCooldown time.Duration
}

func (c Config) withDefaults() Config {
	if c.GlobalDeadline <= 0 {
		c.GlobalDeadline = 10 * time.Second
	}
	if c.TierTimeout <= 0 {
		c.TierTimeout = 5 * time.Second
	}
	if c.TierAttempts <= 0 {
		c.TierAttempts = 2
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 60 * time.Second
	}
	return c
}

// minTierBudget is the least remaining time worth starting another tier for.
const minTierBudget = 250 * time.Millisecond

// tier pairs a source adapter with its resilience policy.
type tier struct {
	adapter source.Adapter
	call    resilience.CallConfig
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg       Config
	cache     *cache.Cache
	wrapper   *resilience.Wrapper
	validator *validate.Validator
	tiers     []tier
	nowFunc   func() time.Time
}

// New assembles an engine over the given adapters. Adapters run in the order
// given; a nil adapter is skipped, which is how optional tiers (the vendor
// feed without credentials) are disabled.
func New(cfg Config, store *cache.Cache, wrapper *resilience.Wrapper, validator *validate.Validator, adapters ...source.Adapter) *Engine {
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:       cfg,
		cache:     store,
		wrapper:   wrapper,
		validator: validator,
		nowFunc:   time.Now,
	}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		e.tiers = append(e.tiers, tier{
			adapter: a,
			call: resilience.CallConfig{
				Dependency:  a.Name(),
				Timeout:     cfg.TierTimeout,
				MaxAttempts: cfg.TierAttempts,
				Breaker: resilience.BreakerConfig{
					FailureThreshold: cfg.BreakerThreshold,
					Cooldown:         cfg.BreakerCooldown,
				},
			},
		})
	}
	return e
}

// WithNow replaces the engine clock. Test use only.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.nowFunc = now
	return e
}

// Breakers exposes breaker state for the observability endpoint.
func (e *Engine) Breakers() map[string]resilience.BreakerState {
	return e.wrapper.Breakers().States()
}

// Lookup serves a rating response for the query, from cache when possible.
// A stale hit is returned immediately with Meta.Cache set to "stale"; the
// caller decides whether to kick off a Refresh.
func (e *Engine) Lookup(ctx context.Context, query string) *model.Response {
	entity := model.ResolveEntity(query)
	key := entity.CacheKey()
	start := e.nowFunc()

	if cached, stale, ok := e.cache.Get(key); ok {
		cached.Meta.TraceID = uuid.NewString()
		cached.Meta.ElapsedMs = e.nowFunc().Sub(start).Milliseconds()
		cached.Meta.Cache = model.CacheHit
		if stale {
			cached.Meta.Cache = model.CacheStale
		}
		zap.L().Debug("cache hit",
			zap.String("key", key),
			zap.Bool("stale", stale),
		)
		return &cached
	}

	resp := e.Refresh(ctx, query)
	return resp
}

// Refresh runs the full cascade for the query, bypassing and then updating
// the cache. It never returns nil and never panics outward.
func (e *Engine) Refresh(ctx context.Context, query string) (resp *model.Response) {
	entity := model.ResolveEntity(query)
	start := e.nowFunc()
	traceID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("lookup panicked",
				zap.String("trace_id", traceID),
				zap.Any("panic", r),
			)
			resp = &model.Response{
				Query:      query,
				Status:     model.StatusError,
				Entity:     entity,
				Ratings:    []model.AgencyRating{},
				Validation: e.validator.Report(model.NewRatingSet()),
				Diag: model.Diagnostics{
					Sources: []string{},
					Errors:  []string{fmt.Sprintf("internal error: %v", r)},
				},
				Meta: model.Meta{
					TraceID:     traceID,
					LastUpdated: e.nowFunc(),
					ElapsedMs:   e.nowFunc().Sub(start).Milliseconds(),
					Cache:       model.CacheMiss,
				},
			}
		}
	}()

	set := e.cascade(ctx, entity)
	resp = e.assemble(query, entity, set, traceID, start)

	// Total failures are not cached; the next request should retry upstream
	// rather than be served a six-hour-old error.
	if len(set.Ratings) > 0 {
		e.cache.Set(entity.CacheKey(), *resp)
	}
	return resp
}

// cascade walks the tiers in order under the global deadline. Each tier is
// asked only for the agencies still missing, and a filled slot is never
// overwritten by a later tier.
func (e *Engine) cascade(ctx context.Context, entity model.Entity) *model.RatingSet {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.GlobalDeadline)
	defer cancel()

	set := model.NewRatingSet()
	for _, t := range e.tiers {
		if set.Complete() {
			break
		}

		remaining := e.remaining(ctx)
		if remaining < minTierBudget {
			set.RecordError(fmt.Sprintf("%s: %s: skipped, global deadline nearly exhausted",
				resilience.CodeTimeout, t.adapter.Name()))
			break
		}

		cfg := t.call
		if remaining < cfg.Timeout {
			cfg.Timeout = remaining
		}

		missing := set.Missing()
		found, err := resilience.Call(ctx, e.wrapper, cfg,
			func(ctx context.Context) (map[model.Agency]model.AgencyRating, error) {
				return t.adapter.Fetch(ctx, entity, missing)
			})
		if err != nil {
			set.RecordError(fmt.Sprintf("%s: %v", resilience.CodeOf(err), err))
			zap.L().Warn("tier failed",
				zap.String("tier", t.adapter.Name()),
				zap.Error(err),
			)
			continue
		}
		if len(found) == 0 {
			continue
		}

		set.RecordSource(t.adapter.Name())
		for _, agency := range model.Agencies {
			if r, ok := found[agency]; ok {
				set.Fill(r)
			}
		}
	}
	return set
}

func (e *Engine) remaining(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return e.cfg.GlobalDeadline
	}
	return time.Until(deadline)
}

// assemble enriches the raw rating set into the public response shape:
// normalized scores, summary, validation report, diagnostics and metadata.
func (e *Engine) assemble(query string, entity model.Entity, set *model.RatingSet, traceID string, start time.Time) *model.Response {
	for agency, r := range set.Ratings {
		r.Token = normalize.CleanToken(r.Token)
		r.NormalizedScore = normalize.Score(r.Token, r.Scale)
		set.Ratings[agency] = r
	}

	ratings := set.List()
	notes := e.notes(entity, ratings)

	// The report is part of the response shape even when nothing was found.
	report := e.validator.Report(set)
	if report.CrossAgency != nil && !report.CrossAgency.Consistent {
		notes = append(notes, "agency ratings diverge beyond the expected band; see validation.cross_agency")
	}

	if set.SourcesUsed == nil {
		set.SourcesUsed = []string{}
	}
	if set.Errors == nil {
		set.Errors = []string{}
	}

	return &model.Response{
		Query:   query,
		Status:  model.DeriveStatus(len(ratings)),
		Entity:  entity,
		Ratings: ratings,
		Summary: model.Summary{
			AgenciesFound: len(ratings),
			AverageScore:  normalize.AverageScore(ratings),
			Category:      normalize.Category(ratings),
		},
		Validation: report,
		Diag: model.Diagnostics{
			Sources: set.SourcesUsed,
			Errors:  set.Errors,
			Notes:   notes,
		},
		Meta: model.Meta{
			TraceID:     traceID,
			LastUpdated: e.nowFunc(),
			ElapsedMs:   e.nowFunc().Sub(start).Milliseconds(),
			Cache:       model.CacheMiss,
		},
	}
}

func (e *Engine) notes(entity model.Entity, ratings []model.AgencyRating) []string {
	var notes []string
	if !entity.HasStrongIdentifier() {
		notes = append(notes, "entity matched by name only; results may refer to a different issuer")
	}
	for _, r := range ratings {
		if !normalize.Recognized(r.NormalizedScore) {
			notes = append(notes, fmt.Sprintf("%s token %q is outside the known scale and was excluded from the average", r.Agency, r.Token))
		}
	}
	return notes
}
