package model

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Entity is the resolved subject of a ratings lookup. It is immutable once
// produced by entity resolution.
type Entity struct {
	LegalName string `json:"legal_name"`
	Ticker    string `json:"ticker,omitempty"`
	ISIN      string `json:"isin,omitempty"`
	LEI       string `json:"lei,omitempty"`
	Country   string `json:"country,omitempty"`
	Query     string `json:"query,omitempty"`
}

// CacheKey returns the strongest available identifier for caching and
// dedup, in priority order ISIN > LEI > ticker > normalized query.
func (e Entity) CacheKey() string {
	switch {
	case e.ISIN != "":
		return "isin:" + strings.ToUpper(e.ISIN)
	case e.LEI != "":
		return "lei:" + strings.ToUpper(e.LEI)
	case e.Ticker != "":
		return "ticker:" + strings.ToUpper(e.Ticker)
	default:
		q := e.Query
		if q == "" {
			q = e.LegalName
		}
		return "q:" + NormalizeName(q)
	}
}

// HasStrongIdentifier reports whether the entity carries an identifier
// stronger than a free-text query.
func (e Entity) HasStrongIdentifier() bool {
	return e.ISIN != "" || e.LEI != "" || e.Ticker != ""
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName lowercases a company name, strips accents and collapses
// whitespace. Used for cache keys and dataset lookups.
func NormalizeName(name string) string {
	out, _, err := transform.String(stripMarks, name)
	if err != nil {
		out = name
	}
	out = strings.ToLower(out)
	return strings.Join(strings.Fields(out), " ")
}

var legalSuffixes = regexp.MustCompile(`(?i)[\s,]+(s\.?a\.?|s/a|ltda\.?|inc\.?|corp\.?|corporation|ltd\.?|limited|llc|plc|gmbh|ag|n\.?v\.?|co\.?|company|holdings?)\.?$`)

// StripLegalSuffix removes a trailing legal-form suffix from a company name
// ("Petrobras S.A." -> "Petrobras"). Applied repeatedly until stable so
// "Example Holdings Inc." reduces fully.
func StripLegalSuffix(name string) string {
	name = strings.TrimSpace(name)
	for {
		stripped := strings.TrimSpace(legalSuffixes.ReplaceAllString(name, ""))
		if stripped == name || stripped == "" {
			return name
		}
		name = stripped
	}
}

var (
	isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)
	leiPattern  = regexp.MustCompile(`^[A-Z0-9]{18}[0-9]{2}$`)
	tickPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)
)

// ResolveEntity performs naive identifier classification on a raw query.
// Full registry-backed resolution is an external concern; this stand-in
// guarantees the resolveEntity contract of always returning a legal name.
func ResolveEntity(query string) Entity {
	q := strings.TrimSpace(query)
	upper := strings.ToUpper(q)

	e := Entity{LegalName: q, Query: q}
	switch {
	case isinPattern.MatchString(upper):
		e.ISIN = upper
	case leiPattern.MatchString(upper):
		e.LEI = upper
	case tickPattern.MatchString(q):
		e.Ticker = upper
	}
	return e
}
