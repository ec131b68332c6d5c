package models

import (
	"time"
)

// Strictness controls how demanding the AI critique should be
type Strictness string

// Strictness levels, from most permissive to most demanding
const (
	StrictnessLow      Strictness = "low"
	StrictnessMedium   Strictness = "medium"
	StrictnessHigh     Strictness = "high"
	StrictnessPedantic Strictness = "pedantic"
)

// ValidStrictness reports whether s is a recognized strictness level
func ValidStrictness(s Strictness) bool {
	switch s {
	case StrictnessLow, StrictnessMedium, StrictnessHigh, StrictnessPedantic:
		return true
	}
	return false
}

// Severity indicates how serious a finding is
type Severity string

// Severity levels for findings
const (
	SeverityInfo     Severity = "info"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// CategoryGeneral is used for findings that don't map to a requested focus area
const CategoryGeneral = "general"

// FocusAreaTestCoverage is the focus area that is only applicable when the
// local project actually carries a test suite
const FocusAreaTestCoverage = "test_coverage"

// Confidence markers attached to an AnalysisResult
const (
	// ConfidenceNormal means the provider reply parsed cleanly
	ConfidenceNormal = "normal"
	// ConfidenceDegraded means the reply needed repair or a plain-text
	// fallback, so findings may be incomplete
	ConfidenceDegraded = "degraded"
)

// ContextFile is one (path, content) pair of local codebase context
// included in an analysis request
type ContextFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ProviderParams carries the per-call model parameters
type ProviderParams struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// AnalysisRequest is the full input to one AI analysis call.
// It is immutable once constructed; every field participates in the
// cache fingerprint.
type AnalysisRequest struct {
	ChangeID     string         `json:"change_id"`
	DiffText     string         `json:"diff_text"`
	LocalContext []ContextFile  `json:"local_context"`
	FocusAreas   []string       `json:"focus_areas"`
	Strictness   Strictness     `json:"strictness"`
	Params       ProviderParams `json:"params"`
}

// Finding is a single critique item produced by a provider
type Finding struct {
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	FileHint string   `json:"file_hint,omitempty"`
}

// AnalysisResult is the standardized critique shape every provider
// variant normalizes its reply into
type AnalysisResult struct {
	Summary    string    `json:"summary"`
	Findings   []Finding `json:"findings"`
	Confidence string    `json:"confidence"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	// RawPayload keeps the unparsed provider reply for debugging
	RawPayload string `json:"raw_payload,omitempty"`
}

// Heuristics are the static signals derived from the local project
// before any AI call is made
type Heuristics struct {
	HasTests          bool   `json:"has_tests"`
	TestFrameworkHint string `json:"test_framework_hint,omitempty"`
}

// AggregateStatus classifies the outcome of one change set's analysis
type AggregateStatus string

// Aggregate outcomes reported in the run summary
const (
	// StatusAnalyzed means the provider call (or cache) produced a full result
	StatusAnalyzed AggregateStatus = "analyzed"
	// StatusDegraded means a result exists but with lowered confidence,
	// or some context could not be gathered
	StatusDegraded AggregateStatus = "degraded"
	// StatusFailed means no analysis result exists for the change set
	StatusFailed AggregateStatus = "failed"
)

// ChangeSet is one unit of review work: a proposed set of code
// modifications fetched from the change source
type ChangeSet struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	URL      string    `json:"url"`
	DiffText string    `json:"diff_text"`
	Created  time.Time `json:"created"`
}

// AggregateFinding is the per-change-set output of the orchestrator,
// handed to the reporting collaborator. It is never persisted by the core.
type AggregateFinding struct {
	ChangeID   string          `json:"change_id"`
	Title      string          `json:"title"`
	URL        string          `json:"url"`
	Status     AggregateStatus `json:"status"`
	Result     *AnalysisResult `json:"result,omitempty"`
	Heuristics Heuristics      `json:"heuristics"`
	// ErrorKind carries the ProviderError kind when Status is failed
	ErrorKind string `json:"error_kind,omitempty"`
	// Notes records non-fatal degradations (unreadable context files,
	// cache anomalies) observed while assembling the request
	Notes []string `json:"notes,omitempty"`
}

// Degraded reports whether the finding is anything other than a clean analysis
func (a *AggregateFinding) Degraded() bool {
	return a.Status != StatusAnalyzed
}
