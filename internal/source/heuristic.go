package source

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ratings-engine/internal/extract"
	"github.com/sells-group/ratings-engine/internal/model"
	"github.com/sells-group/ratings-engine/internal/resilience"
	"github.com/sells-group/ratings-engine/pkg/jina"
)

// Heuristic is the last-resort tier: a broad web search per missing agency
// with LLM-backed extraction over the result snippets. Whatever it finds is
// marked with the heuristic method so the validator grades it accordingly.
type Heuristic struct {
	search    jina.Client
	extractor *extract.Extractor
}

// NewHeuristic creates a heuristic-tier adapter.
func NewHeuristic(search jina.Client, extractor *extract.Extractor) *Heuristic {
	return &Heuristic{search: search, extractor: extractor}
}

func (h *Heuristic) Name() string { return "heuristic" }

func (h *Heuristic) Fetch(ctx context.Context, entity model.Entity, missing []model.Agency) (map[model.Agency]model.AgencyRating, error) {
	name := model.StripLegalSuffix(entity.LegalName)
	if name == "" {
		name = entity.Query
	}

	var (
		mu  sync.Mutex
		out = make(map[model.Agency]model.AgencyRating)
	)

	g, gCtx := errgroup.WithContext(ctx)
	for _, agency := range missing {
		g.Go(func() error {
			results, err := h.search.Search(gCtx, fmt.Sprintf("%s %s credit rating", name, agency))
			if err != nil || len(results) == 0 {
				return nil // a dry search leaves the slot empty
			}

			var sb strings.Builder
			for i, r := range results {
				if i >= 3 {
					break
				}
				sb.WriteString(r.Title)
				sb.WriteString("\n")
				sb.WriteString(r.Description)
				sb.WriteString("\n")
				sb.WriteString(r.Content)
				sb.WriteString("\n\n")
			}

			ext, err := h.extractor.Extract(gCtx, agency, sb.String(), results[0].URL)
			if err != nil {
				return nil
			}

			mu.Lock()
			out[agency] = model.AgencyRating{
				Agency:    agency,
				Token:     ext.Token,
				Outlook:   ext.Outlook,
				AsOf:      ext.AsOf,
				Scale:     model.ScaleFor(agency),
				SourceRef: results[0].URL,
				// Everything from this tier counts as heuristic, regardless
				// of whether regex or the LLM found the token.
				Method: model.MethodHeuristic,
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(out) == 0 {
		return nil, resilience.Errorf(resilience.CodeNotRated, h.Name(),
			"web search found no ratings for %q", name)
	}
	return out, nil
}
