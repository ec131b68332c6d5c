// Package prompts assembles the analysis prompt sent to AI providers.
package prompts

import (
	"fmt"
	"strings"

	"github.com/codeargus/pkg/models"
)

// Markers used when laying out request sections
const (
	contextHeader = "## Local Context (baseline file contents)"
	diffHeader    = "## Code Changes (unified diff)"
	filePrefix    = "### File: "
)

// strictnessInstructions maps each strictness level to reviewer guidance
var strictnessInstructions = map[models.Strictness]string{
	models.StrictnessLow:      "Flag only clear bugs and security problems. Ignore style.",
	models.StrictnessMedium:   "Flag bugs, security problems, and significant maintainability issues.",
	models.StrictnessHigh:     "Flag bugs, security problems, maintainability issues, and notable style inconsistencies.",
	models.StrictnessPedantic: "Flag everything: bugs, security, maintainability, style, naming, documentation gaps.",
}

// Builder provides methods for building analysis prompts
type Builder struct{}

// NewBuilder creates a new prompt builder instance
func NewBuilder() *Builder {
	return &Builder{}
}

// System returns the system prompt establishing the reviewer role and
// the exact JSON reply shape the response parser expects
func (b *Builder) System(req *models.AnalysisRequest) string {
	var sb strings.Builder

	sb.WriteString("You are a senior code reviewer analyzing a proposed change set.\n")
	if instr, ok := strictnessInstructions[req.Strictness]; ok {
		sb.WriteString(instr)
		sb.WriteString("\n")
	}
	if len(req.FocusAreas) > 0 {
		sb.WriteString(fmt.Sprintf("Focus particularly on: %s.\n", strings.Join(req.FocusAreas, ", ")))
	}

	sb.WriteString(`
Respond with a single JSON object and nothing else:
{
  "summary": "one-paragraph overall assessment",
  "findings": [
    {
      "category": "one of the focus areas, or \"general\"",
      "severity": "info | minor | major | critical",
      "message": "the specific issue and a suggested fix",
      "file": "path of the affected file, if known"
    }
  ]
}`)

	return sb.String()
}

// User returns the user prompt carrying the local context and the diff
func (b *Builder) User(req *models.AnalysisRequest) string {
	var sb strings.Builder

	if len(req.LocalContext) > 0 {
		sb.WriteString(contextHeader)
		sb.WriteString("\n\n")
		for _, cf := range req.LocalContext {
			sb.WriteString(filePrefix)
			sb.WriteString(cf.Path)
			sb.WriteString("\n```\n")
			sb.WriteString(cf.Content)
			if !strings.HasSuffix(cf.Content, "\n") {
				sb.WriteString("\n")
			}
			sb.WriteString("```\n\n")
		}
	}

	sb.WriteString(diffHeader)
	sb.WriteString("\n\n```diff\n")
	sb.WriteString(req.DiffText)
	if !strings.HasSuffix(req.DiffText, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n\nPlease provide your analysis.")

	return sb.String()
}
