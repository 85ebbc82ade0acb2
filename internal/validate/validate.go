// Package validate performs per-rating and cross-agency validation over a
// merged rating set. Validation annotates; it never blocks a response.
package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sells-group/ratings-engine/internal/model"
	"github.com/sells-group/ratings-engine/internal/normalize"
	"github.com/sells-group/ratings-engine/internal/resilience"
)

// Config holds freshness thresholds.
type Config struct {
	// MaxAgeDays rejects ratings older than this. Default: 365.
	MaxAgeDays int
	// WarnAgeDays flags ratings older than this with a warning. Default: 180.
	WarnAgeDays int
}

// DefaultConfig returns the standard freshness thresholds.
func DefaultConfig() Config {
	return Config{MaxAgeDays: 365, WarnAgeDays: 180}
}

func (c Config) withDefaults() Config {
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 365
	}
	if c.WarnAgeDays <= 0 {
		c.WarnAgeDays = 180
	}
	return c
}

// maxOrdinalSpread is the widest acceptable pairwise gap between two
// agencies' normalized scores before the set is flagged inconsistent.
const maxOrdinalSpread = 3

// Validator checks rating sets. Stateless apart from configuration and an
// injectable clock.
type Validator struct {
	cfg     Config
	nowFunc func() time.Time
}

// New creates a validator.
func New(cfg Config) *Validator {
	return &Validator{cfg: cfg.withDefaults(), nowFunc: time.Now}
}

// WithNow replaces the validator clock. Test use only.
func (v *Validator) WithNow(now func() time.Time) *Validator {
	v.nowFunc = now
	return v
}

// Report validates every rating in the set and rolls up the overall
// confidence and cross-agency consistency.
func (v *Validator) Report(set *model.RatingSet) *model.ValidationReport {
	results := make(map[model.Agency]model.ValidationResult, len(set.Ratings))
	// An empty set validated nothing, so it vouches for nothing.
	allValid := len(set.Ratings) > 0
	for agency, rating := range set.Ratings {
		res := v.ValidateRating(rating)
		results[agency] = res
		if !res.IsValid {
			allValid = false
		}
	}

	report := &model.ValidationReport{
		Results:           results,
		OverallConfidence: Overall(results),
		AllValid:          allValid,
	}
	if ratings := set.List(); len(ratings) >= 2 {
		cross := CrossValidate(ratings)
		report.CrossAgency = &cross
	}
	return report
}

// ValidateRating runs the per-rating checks, building the audit trail as it
// goes. The rating itself is read-only.
func (v *Validator) ValidateRating(r model.AgencyRating) model.ValidationResult {
	now := v.nowFunc()
	res := model.ValidationResult{
		Errors:      []string{},
		Warnings:    []string{},
		ValidatedAt: now,
	}

	audit := func(action string, result model.AuditResult, data map[string]any) {
		res.AuditTrail = append(res.AuditTrail, model.AuditEntry{
			Timestamp: now,
			Action:    action,
			Result:    result,
			Data:      data,
		})
	}

	// Format: token must belong to the agency's canonical scale.
	if normalize.InScale(r.Token, r.Scale) {
		audit("format_check", model.AuditPass, map[string]any{"token": r.Token})
	} else {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: token %q not on scale %s",
			resilience.CodeInvalidRating, r.Token, r.Scale))
		audit("format_check", model.AuditFail, map[string]any{"token": r.Token, "scale": string(r.Scale)})
	}

	// Outlook: enumerated values only; a bad one is a warning, not a rejection.
	switch {
	case r.Outlook == "":
		audit("outlook_check", model.AuditPass, map[string]any{"outlook": "absent"})
	case model.ValidOutlook(r.Outlook):
		audit("outlook_check", model.AuditPass, map[string]any{"outlook": string(r.Outlook)})
	default:
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: unknown outlook %q",
			resilience.CodeInvalidOutlook, r.Outlook))
		audit("outlook_check", model.AuditWarning, map[string]any{"outlook": string(r.Outlook)})
	}

	v.checkFreshness(&res, r, audit)

	// Provenance: a rating with no source reference is unusable for audit.
	if r.SourceRef != "" {
		audit("source_ref_check", model.AuditPass, nil)
	} else {
		res.Errors = append(res.Errors, string(resilience.CodeMissingSourceRef))
		audit("source_ref_check", model.AuditFail, nil)
	}

	res.Checksum = Checksum(r)
	audit("checksum", model.AuditPass, map[string]any{"checksum": res.Checksum})

	res.IsValid = len(res.Errors) == 0
	res.Confidence = confidence(res, r.Method)
	return res
}

func (v *Validator) checkFreshness(res *model.ValidationResult, r model.AgencyRating, audit func(string, model.AuditResult, map[string]any)) {
	now := v.nowFunc()

	if r.AsOf == nil {
		// Dataset entries have known staleness and heuristic hits rarely
		// carry a date; everything else must be dated.
		if r.Method == model.MethodDataset || r.Method == model.MethodHeuristic {
			audit("freshness_check", model.AuditPass, map[string]any{"as_of": "exempt"})
			return
		}
		res.Errors = append(res.Errors, string(resilience.CodeMissingDate))
		audit("freshness_check", model.AuditFail, map[string]any{"as_of": "missing"})
		return
	}

	if r.AsOf.After(now) {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: as_of %s is in the future",
			resilience.CodeFutureDate, r.AsOf.Format("2006-01-02")))
		audit("freshness_check", model.AuditFail, map[string]any{"as_of": r.AsOf.Format("2006-01-02")})
		return
	}

	ageDays := int(now.Sub(*r.AsOf).Hours() / 24)
	switch {
	case ageDays > v.cfg.MaxAgeDays:
		res.Errors = append(res.Errors, fmt.Sprintf("%s: rating is %d days old",
			resilience.CodeStaleRating, ageDays))
		audit("freshness_check", model.AuditFail, map[string]any{"age_days": ageDays})
	case ageDays > v.cfg.WarnAgeDays:
		res.Warnings = append(res.Warnings, fmt.Sprintf("rating is %d days old", ageDays))
		audit("freshness_check", model.AuditWarning, map[string]any{"age_days": ageDays})
	default:
		audit("freshness_check", model.AuditPass, map[string]any{"age_days": ageDays})
	}
}

// confidence grades a validated rating. Methods with deterministic
// provenance (dataset, vendor, regex scrape) can reach high; LLM-derived
// values top out at low even when clean.
func confidence(res model.ValidationResult, method model.Method) model.Confidence {
	if len(res.Errors) > 0 {
		return model.ConfidenceRejected
	}
	if method == model.MethodLLM || method == model.MethodHeuristic {
		return model.ConfidenceLow
	}
	if len(res.Warnings) >= 2 {
		return model.ConfidenceMedium
	}
	return model.ConfidenceHigh
}

// Overall rolls per-rating confidences up to a response-level grade: high
// only when every present agency is high; medium while nothing is rejected;
// low otherwise. The response is returned regardless.
func Overall(results map[model.Agency]model.ValidationResult) model.Confidence {
	if len(results) == 0 {
		return model.ConfidenceLow
	}
	allHigh := true
	anyRejected := false
	for _, r := range results {
		if r.Confidence != model.ConfidenceHigh {
			allHigh = false
		}
		if r.Confidence == model.ConfidenceRejected {
			anyRejected = true
		}
	}
	switch {
	case allHigh:
		return model.ConfidenceHigh
	case !anyRejected:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// CrossValidate compares normalized scores pairwise across agencies. A gap
// wider than maxOrdinalSpread flags the set as inconsistent; the data is
// annotated, never rejected. The normalized average covers recognized
// ordinals only; missing or unrecognized agencies are excluded, not
// zero-filled.
func CrossValidate(ratings []model.AgencyRating) model.CrossValidation {
	cv := model.CrossValidation{Consistent: true, Issues: []string{}}

	var recognized []scoredRating
	for _, r := range ratings {
		score := r.NormalizedScore
		if !normalize.Recognized(score) {
			score = normalize.Score(r.Token, r.Scale)
		}
		if normalize.Recognized(score) {
			recognized = append(recognized, scoredRating{
				agency: r.Agency,
				token:  r.Token,
				scale:  r.Scale,
				score:  score,
			})
		}
	}

	if len(recognized) >= 1 {
		sum := 0
		for _, s := range recognized {
			sum += s.score
		}
		avg := math.Round(float64(sum)/float64(len(recognized))*10) / 10
		cv.NormalizedAverage = &avg
	}
	if len(recognized) < 2 {
		return cv
	}

	for i := 0; i < len(recognized); i++ {
		for j := i + 1; j < len(recognized); j++ {
			spread := recognized[i].score - recognized[j].score
			if spread < 0 {
				spread = -spread
			}
			if spread > maxOrdinalSpread {
				cv.Consistent = false
				cv.Issues = append(cv.Issues, fmt.Sprintf(
					"%s %s and %s %s diverge by %d ordinal steps",
					recognized[i].agency, recognized[i].label(),
					recognized[j].agency, recognized[j].label(), spread))
			}
		}
	}
	return cv
}

type scoredRating struct {
	agency model.Agency
	token  string
	scale  model.Scale
	score  int
}

// label renders the token with its equivalent on the other agencies' scale,
// so a divergence note reads in either vocabulary.
func (s scoredRating) label() string {
	eq := normalize.ToMoodys(s.token)
	if s.scale == model.ScaleMoodys {
		eq = normalize.ToSPFitch(s.token)
	}
	if eq == "" {
		return s.token
	}
	return fmt.Sprintf("%s (%s)", s.token, eq)
}

// checksumFields is the canonical, key-sorted shape hashed for the content
// fingerprint. encoding/json emits struct fields in declaration order, so the
// alphabetical declaration below fixes the byte layout.
type checksumFields struct {
	Agency    string `json:"agency"`
	AsOf      string `json:"as_of"`
	Outlook   string `json:"outlook"`
	Rating    string `json:"rating"`
	Scale     string `json:"scale"`
	SourceRef string `json:"source_ref"`
}

// Checksum fingerprints a rating's content: canonical JSON, SHA-256,
// truncated to 16 hex characters. Used for tamper and duplicate detection,
// not as a security boundary.
func Checksum(r model.AgencyRating) string {
	fields := checksumFields{
		Agency:    string(r.Agency),
		Outlook:   string(r.Outlook),
		Rating:    r.Token,
		Scale:     string(r.Scale),
		SourceRef: r.SourceRef,
	}
	if r.AsOf != nil {
		fields.AsOf = r.AsOf.UTC().Format("2006-01-02")
	}
	raw, _ := json.Marshal(fields)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}
