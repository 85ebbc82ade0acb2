package source

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ratings-engine/internal/extract"
	"github.com/sells-group/ratings-engine/internal/model"
	"github.com/sells-group/ratings-engine/internal/resilience"
	"github.com/sells-group/ratings-engine/pkg/jina"
)

// Scraper is tier 3: it locates investor-relations pages, pulls their visible
// text through the reader, and runs the token extractor once per missing
// agency. The per-agency extractions run concurrently, each under its own
// sub-timeout nested inside the tier budget.
type Scraper struct {
	reader     jina.Client
	extractor  *extract.Extractor
	subTimeout time.Duration
	maxPages   int
}

// NewScraper creates a scraper-tier adapter.
func NewScraper(reader jina.Client, extractor *extract.Extractor, subTimeout time.Duration) *Scraper {
	if subTimeout <= 0 {
		subTimeout = 3 * time.Second
	}
	return &Scraper{
		reader:     reader,
		extractor:  extractor,
		subTimeout: subTimeout,
		maxPages:   2,
	}
}

func (s *Scraper) Name() string { return "scraper" }

func (s *Scraper) Fetch(ctx context.Context, entity model.Entity, missing []model.Agency) (map[model.Agency]model.AgencyRating, error) {
	pages, err := s.findPages(ctx, entity)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, resilience.Errorf(resilience.CodeFetchError, s.Name(),
			"no readable investor-relations pages for %q", entity.LegalName)
	}

	var (
		mu  sync.Mutex
		out = make(map[model.Agency]model.AgencyRating)
	)

	g, gCtx := errgroup.WithContext(ctx)
	for _, agency := range missing {
		g.Go(func() error {
			subCtx, cancel := context.WithTimeout(gCtx, s.subTimeout)
			defer cancel()

			for _, page := range pages {
				ext, err := s.extractor.Extract(subCtx, agency, page.Content, page.URL)
				if err != nil {
					if subCtx.Err() != nil {
						zap.L().Debug("scraper extraction timed out",
							zap.String("agency", string(agency)),
							zap.String("url", page.URL),
						)
						return nil // per-agency timeout is not a tier failure
					}
					continue
				}
				mu.Lock()
				out[agency] = model.AgencyRating{
					Agency:    agency,
					Token:     ext.Token,
					Outlook:   ext.Outlook,
					AsOf:      ext.AsOf,
					Scale:     model.ScaleFor(agency),
					SourceRef: page.URL,
					Method:    ext.Method,
				}
				mu.Unlock()
				return nil
			}
			return nil
		})
	}
	_ = g.Wait()

	return out, nil
}

// findPages searches for the entity's IR/ratings pages and reads up to
// maxPages of them. Search snippets stand in for pages that fail to read.
func (s *Scraper) findPages(ctx context.Context, entity model.Entity) ([]jina.Page, error) {
	query := fmt.Sprintf("%q investor relations credit ratings", model.StripLegalSuffix(entity.LegalName))
	results, err := s.reader.Search(ctx, query)
	if err != nil {
		return nil, resilience.NewError(resilience.CodeFetchError, s.Name(), err)
	}

	var pages []jina.Page
	for _, r := range results {
		if len(pages) >= s.maxPages {
			break
		}
		page, err := s.reader.Read(ctx, r.URL)
		if err != nil || strings.TrimSpace(page.Content) == "" {
			if snippet := strings.TrimSpace(r.Content + " " + r.Description); snippet != "" {
				pages = append(pages, jina.Page{Title: r.Title, URL: r.URL, Content: snippet})
			}
			continue
		}
		pages = append(pages, *page)
	}
	return pages, nil
}
