package model

import "time"

// Agency identifies a credit rating issuer.
type Agency string

const (
	AgencySP     Agency = "S&P"
	AgencyFitch  Agency = "Fitch"
	AgencyMoodys Agency = "Moody's"
)

// Agencies lists all supported agencies in canonical order.
var Agencies = []Agency{AgencySP, AgencyFitch, AgencyMoodys}

// Scale identifies the letter-grade scale a rating token belongs to.
type Scale string

const (
	ScaleSPFitch Scale = "S&P/Fitch"
	ScaleMoodys  Scale = "Moody's"
)

// ScaleFor returns the scale an agency rates on.
func ScaleFor(agency Agency) Scale {
	if agency == AgencyMoodys {
		return ScaleMoodys
	}
	return ScaleSPFitch
}

// Method records how a rating was obtained.
type Method string

const (
	MethodDataset   Method = "dataset"
	MethodVendor    Method = "vendor"
	MethodScraped   Method = "scraped"
	MethodLLM       Method = "llm"
	MethodHeuristic Method = "heuristic"
)

// Outlook is an agency's directional opinion attached to a rating.
type Outlook string

const (
	OutlookPositive   Outlook = "Positive"
	OutlookStable     Outlook = "Stable"
	OutlookNegative   Outlook = "Negative"
	OutlookDeveloping Outlook = "Developing"
	OutlookNA         Outlook = "N/A"
)

// ValidOutlook reports whether o is one of the enumerated outlook values.
func ValidOutlook(o Outlook) bool {
	switch o {
	case OutlookPositive, OutlookStable, OutlookNegative, OutlookDeveloping, OutlookNA:
		return true
	}
	return false
}

// AgencyRating is one agency's opinion of an entity. Created by a source
// adapter, enriched by the normalizer, read-only for the validator.
type AgencyRating struct {
	Agency          Agency     `json:"agency"`
	Token           string     `json:"rating"`
	Outlook         Outlook    `json:"outlook,omitempty"`
	AsOf            *time.Time `json:"as_of,omitempty"`
	Scale           Scale      `json:"scale"`
	SourceRef       string     `json:"source_ref"`
	NormalizedScore int        `json:"normalized_score"`
	Method          Method     `json:"method"`
}

// RatingSet accumulates agency ratings across the tier cascade. A slot, once
// filled, is never replaced within a request.
type RatingSet struct {
	Ratings     map[Agency]AgencyRating
	SourcesUsed []string
	Errors      []string
}

// NewRatingSet returns an empty accumulator.
func NewRatingSet() *RatingSet {
	return &RatingSet{Ratings: make(map[Agency]AgencyRating, len(Agencies))}
}

// Fill records a rating for its agency if the slot is still empty.
// Returns false when the slot was already taken.
func (s *RatingSet) Fill(r AgencyRating) bool {
	if _, ok := s.Ratings[r.Agency]; ok {
		return false
	}
	s.Ratings[r.Agency] = r
	return true
}

// Missing returns the agencies with no rating yet, in canonical order.
func (s *RatingSet) Missing() []Agency {
	var missing []Agency
	for _, a := range Agencies {
		if _, ok := s.Ratings[a]; !ok {
			missing = append(missing, a)
		}
	}
	return missing
}

// Complete reports whether all agencies are satisfied.
func (s *RatingSet) Complete() bool {
	return len(s.Ratings) == len(Agencies)
}

// RecordSource appends a source name to the ordered usage list.
func (s *RatingSet) RecordSource(name string) {
	s.SourcesUsed = append(s.SourcesUsed, name)
}

// RecordError appends a non-fatal error description.
func (s *RatingSet) RecordError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// List returns the filled ratings in canonical agency order.
func (s *RatingSet) List() []AgencyRating {
	out := make([]AgencyRating, 0, len(s.Ratings))
	for _, a := range Agencies {
		if r, ok := s.Ratings[a]; ok {
			out = append(out, r)
		}
	}
	return out
}
