package model

import "time"

// Confidence grades how much a consumer should trust a rating.
type Confidence string

const (
	ConfidenceHigh     Confidence = "high"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceLow      Confidence = "low"
	ConfidenceRejected Confidence = "rejected"
)

// AuditResult is the outcome of a single validation check.
type AuditResult string

const (
	AuditPass    AuditResult = "pass"
	AuditFail    AuditResult = "fail"
	AuditWarning AuditResult = "warning"
)

// AuditEntry records one validation check for the audit trail.
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Result    AuditResult    `json:"result"`
	Data      map[string]any `json:"data,omitempty"`
}

// ValidationResult holds the per-rating validation outcome. Produced once at
// the end of the pipeline and never mutated afterward.
type ValidationResult struct {
	IsValid     bool         `json:"is_valid"`
	Confidence  Confidence   `json:"confidence"`
	Errors      []string     `json:"errors"`
	Warnings    []string     `json:"warnings"`
	Checksum    string       `json:"checksum"`
	ValidatedAt time.Time    `json:"validated_at"`
	AuditTrail  []AuditEntry `json:"audit_trail"`
}

// CrossValidation is the cross-agency consistency check, computed only when
// at least two agencies are present.
type CrossValidation struct {
	Consistent        bool     `json:"consistent"`
	Issues            []string `json:"issues"`
	NormalizedAverage *float64 `json:"normalized_average"`
}

// ValidationReport bundles validation output on the response.
type ValidationReport struct {
	Results           map[Agency]ValidationResult `json:"results"`
	CrossAgency       *CrossValidation            `json:"cross_agency_validation,omitempty"`
	OverallConfidence Confidence                  `json:"overall_confidence"`
	AllValid          bool                        `json:"all_valid"`
}
