package source

import (
	"context"
	"time"

	"github.com/sells-group/ratings-engine/internal/resilience"
	"github.com/sells-group/ratings-engine/pkg/jina"
)

// fetcherBreaker guards the per-agency HTTP fetch path. Page fetches are far
// more numerous than tier walks, so their breaker trips at a lower threshold
// than the tier-level one.
var fetcherBreaker = resilience.BreakerConfig{
	FailureThreshold: 3,
	Cooldown:         60 * time.Second,
}

// guardedJina routes every reader and search call through the resilience
// wrapper. A misbehaving fetch endpoint opens its own breaker and fails fast
// instead of burning the tier budget call after call; the scraper then falls
// back to search snippets.
type guardedJina struct {
	inner   jina.Client
	wrapper *resilience.Wrapper
}

// GuardJina wraps a Jina client with per-endpoint circuit breakers.
func GuardJina(w *resilience.Wrapper, inner jina.Client) jina.Client {
	return &guardedJina{inner: inner, wrapper: w}
}

func (g *guardedJina) Read(ctx context.Context, targetURL string) (*jina.Page, error) {
	return resilience.Call(ctx, g.wrapper, resilience.CallConfig{
		Dependency: "jina-reader",
		Timeout:    30 * time.Second,
		Breaker:    fetcherBreaker,
	}, func(ctx context.Context) (*jina.Page, error) {
		return g.inner.Read(ctx, targetURL)
	})
}

func (g *guardedJina) Search(ctx context.Context, query string) ([]jina.SearchResult, error) {
	return resilience.Call(ctx, g.wrapper, resilience.CallConfig{
		Dependency: "jina-search",
		Timeout:    30 * time.Second,
		Breaker:    fetcherBreaker,
	}, func(ctx context.Context) ([]jina.SearchResult, error) {
		return g.inner.Search(ctx, query)
	})
}
