package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/codeargus/pkg/models"
)

// wireResponse is the JSON shape the prompt instructs every backend to
// reply with
type wireResponse struct {
	Summary  string `json:"summary"`
	Findings []struct {
		Category string `json:"category"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
		File     string `json:"file,omitempty"`
	} `json:"findings"`
}

var jsonCodeBlockRegex = regexp.MustCompile("```(?:json)?\\s*\\n(\\{[\\s\\S]*?\\})\\s*\\n```")

// ParseResult normalizes a raw model reply into the standard critique
// shape. Parsing is defensive: the reply is tried as plain JSON, then as
// a fenced JSON block, then repaired with jsonrepair; if everything
// fails, the reply text becomes a single general finding with a
// degraded-confidence marker. Only the transport layer ever errors.
func ParseResult(raw, providerName, model string, focusAreas []string) *models.AnalysisResult {
	result := &models.AnalysisResult{
		Confidence: models.ConfidenceNormal,
		Provider:   providerName,
		Model:      model,
		RawPayload: raw,
	}

	jsonStr, found := extractJSON(raw)

	var wire wireResponse
	parsed := false
	if found {
		if err := json.Unmarshal([]byte(jsonStr), &wire); err == nil && wire.Summary != "" {
			parsed = true
		} else if repaired, repErr := jsonrepair.JSONRepair(jsonStr); repErr == nil {
			wire = wireResponse{}
			if err := json.Unmarshal([]byte(repaired), &wire); err == nil && wire.Summary != "" {
				parsed = true
				result.Confidence = models.ConfidenceDegraded
			}
		}
	}

	if !parsed {
		// Plain-text fallback: keep the critique rather than fail the call
		result.Confidence = models.ConfidenceDegraded
		result.Summary = firstLine(raw)
		result.Findings = []models.Finding{{
			Category: models.CategoryGeneral,
			Severity: models.SeverityInfo,
			Message:  strings.TrimSpace(raw),
		}}
		return result
	}

	result.Summary = strings.TrimSpace(wire.Summary)
	result.Findings = make([]models.Finding, 0, len(wire.Findings))
	for _, f := range wire.Findings {
		if strings.TrimSpace(f.Message) == "" {
			continue
		}
		result.Findings = append(result.Findings, models.Finding{
			Category: normalizeCategory(f.Category, focusAreas),
			Severity: normalizeSeverity(f.Severity),
			Message:  strings.TrimSpace(f.Message),
			FileHint: strings.TrimSpace(f.File),
		})
	}

	return result
}

// extractJSON pulls a JSON object out of the reply, either the whole
// body or the first fenced code block
func extractJSON(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed, true
	}
	if matches := jsonCodeBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		return matches[1], true
	}
	// Last resort: widest brace-delimited span
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], true
	}
	return "", false
}

// normalizeCategory maps a reply category onto the requested focus
// areas, falling back to general for anything unrecognized
func normalizeCategory(category string, focusAreas []string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	for _, area := range focusAreas {
		if c == strings.ToLower(area) {
			return area
		}
	}
	return models.CategoryGeneral
}

// normalizeSeverity tolerates the synonyms models actually emit
func normalizeSeverity(severity string) models.Severity {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "critical", "blocker", "error", "high":
		return models.SeverityCritical
	case "major", "warning", "medium":
		return models.SeverityMajor
	case "minor", "low", "nit", "nitpick":
		return models.SeverityMinor
	default:
		return models.SeverityInfo
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i > 0 {
		s = s[:i]
	}
	const maxLen = 200
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
