package model

import "time"

// Status summarizes how much of the requested data was found.
type Status string

const (
	StatusOK       Status = "ok"       // all three agencies found
	StatusPartial  Status = "partial"  // two agencies found
	StatusDegraded Status = "degraded" // one agency found
	StatusError    Status = "error"    // nothing found
)

// DeriveStatus maps the number of agencies found to a response status.
func DeriveStatus(found int) Status {
	switch {
	case found >= len(Agencies):
		return StatusOK
	case found == 2:
		return StatusPartial
	case found == 1:
		return StatusDegraded
	default:
		return StatusError
	}
}

// Summary aggregates the rating set for quick consumption.
type Summary struct {
	AgenciesFound int      `json:"agencies_found"`
	AverageScore  *float64 `json:"average_score"`
	Category      string   `json:"category"`
}

// Diagnostics carries provenance and failure information for the caller.
type Diagnostics struct {
	Sources []string `json:"sources"`
	Errors  []string `json:"errors"`
	Notes   []string `json:"notes,omitempty"`
}

// CacheState describes how the response relates to the cache.
type CacheState string

const (
	CacheMiss  CacheState = "miss"
	CacheHit   CacheState = "hit"
	CacheStale CacheState = "stale"
)

// Meta carries request bookkeeping.
type Meta struct {
	TraceID     string     `json:"trace_id"`
	LastUpdated time.Time  `json:"last_updated"`
	ElapsedMs   int64      `json:"elapsed_ms"`
	Cache       CacheState `json:"cache"`
}

// Response is the engine's public result shape. The engine guarantees this
// structure is always produced, even on internal failure.
type Response struct {
	Query      string            `json:"query"`
	Status     Status            `json:"status"`
	Entity     Entity            `json:"entity"`
	Ratings    []AgencyRating    `json:"ratings"`
	Summary    Summary           `json:"summary"`
	Validation *ValidationReport `json:"validation"`
	Diag       Diagnostics       `json:"diagnostics"`
	Meta       Meta              `json:"meta"`
}
