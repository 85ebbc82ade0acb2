// Package source contains the tiered rating source adapters. Each adapter is
// independently fallible and returns only the agencies it could fill; the
// orchestrator owns ordering, budgets and merging.
package source

import (
	"context"

	"github.com/sells-group/ratings-engine/internal/model"
)

// Adapter fetches ratings for the agencies still missing from a request.
type Adapter interface {
	// Name is the logical dependency name, also used for circuit breakers
	// and provenance.
	Name() string

	// Fetch returns ratings for a subset of missing. A nil/empty map with a
	// nil error means the source was reachable but had nothing.
	Fetch(ctx context.Context, entity model.Entity, missing []model.Agency) (map[model.Agency]model.AgencyRating, error)
}
