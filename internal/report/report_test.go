package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeargus/pkg/models"
)

func sampleRun() *Run {
	run := NewRun("github", "acme/widgets", "gemini/gemini-2.5-flash")
	run.Findings = []models.AggregateFinding{
		{
			ChangeID: "1",
			Title:    "Add login endpoint",
			URL:      "https://example.com/pr/1",
			Status:   models.StatusAnalyzed,
			Result: &models.AnalysisResult{
				Summary:    "Solid change with one concern.",
				Confidence: models.ConfidenceNormal,
				Provider:   "gemini",
				Model:      "gemini-2.5-flash",
				Findings: []models.Finding{
					{Category: "security", Severity: models.SeverityMajor, Message: "password compared without constant time", FileHint: "auth.go"},
					{Category: "general", Severity: models.SeverityInfo, Message: "consider a doc comment"},
				},
			},
			Heuristics: models.Heuristics{HasTests: true, TestFrameworkHint: "testify"},
		},
		{
			ChangeID:  "2",
			Title:     "Flaky refactor",
			Status:    models.StatusFailed,
			ErrorKind: "RATE_LIMIT",
			Notes:     []string{"gemini provider: RATE_LIMIT: quota exceeded"},
		},
	}
	run.Finished = run.Started.Add(90 * time.Second)
	return run
}

func TestRunCounts(t *testing.T) {
	run := sampleRun()
	run.Findings = append(run.Findings, models.AggregateFinding{ChangeID: "3", Status: models.StatusDegraded})

	analyzed, degraded, failed := run.Counts()
	assert.Equal(t, 1, analyzed)
	assert.Equal(t, 1, degraded)
	assert.Equal(t, 1, failed)
}

func TestWriterWritesRunArtifacts(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir, zerolog.Nop())
	run := sampleRun()

	runDir, err := writer.Write(run)
	require.NoError(t, err)

	summary, err := os.ReadFile(filepath.Join(runDir, "summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), run.ID)
	assert.Contains(t, string(summary), "acme/widgets")
	assert.Contains(t, string(summary), "1 analyzed, 0 degraded, 1 failed")
	assert.Contains(t, string(summary), "[change-1.md](change-1.md)")

	change1, err := os.ReadFile(filepath.Join(runDir, "change-1.md"))
	require.NoError(t, err)
	assert.Contains(t, string(change1), "# Change 1: Add login endpoint")
	assert.Contains(t, string(change1), "Solid change with one concern.")
	assert.Contains(t, string(change1), "constant time")
	assert.Contains(t, string(change1), "**Test suite:** present (testify)")

	change2, err := os.ReadFile(filepath.Join(runDir, "change-2.md"))
	require.NoError(t, err)
	assert.Contains(t, string(change2), "Analysis failed")
	assert.Contains(t, string(change2), "RATE_LIMIT")
}

func TestRenderChangeOrdersBySeverity(t *testing.T) {
	finding := &models.AggregateFinding{
		ChangeID: "9",
		Title:    "mixed severities",
		Status:   models.StatusAnalyzed,
		Result: &models.AnalysisResult{
			Summary: "s",
			Findings: []models.Finding{
				{Category: "general", Severity: models.SeverityInfo, Message: "infothing"},
				{Category: "general", Severity: models.SeverityCritical, Message: "criticalthing"},
				{Category: "general", Severity: models.SeverityMinor, Message: "minorthing"},
			},
		},
	}

	rendered := renderChange(finding)
	criticalAt := strings.Index(rendered, "criticalthing")
	minorAt := strings.Index(rendered, "minorthing")
	infoAt := strings.Index(rendered, "infothing")

	assert.True(t, criticalAt < minorAt && minorAt < infoAt,
		"findings must be ordered most severe first")
}

func TestRenderChangeDegradedMarker(t *testing.T) {
	finding := &models.AggregateFinding{
		ChangeID: "5",
		Status:   models.StatusDegraded,
		Result: &models.AnalysisResult{
			Summary:    "partial",
			Confidence: models.ConfidenceDegraded,
		},
	}

	rendered := renderChange(finding)
	assert.Contains(t, rendered, "Confidence is degraded")
}

func TestTerminalRenderWithoutColors(t *testing.T) {
	terminal := NewTerminal(false)
	run := sampleRun()

	out := terminal.Render(run)

	assert.Contains(t, out, "Review run "+run.ID[:8])
	assert.Contains(t, out, "ANALYZED")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "no result (RATE_LIMIT)")
	assert.Contains(t, out, "Solid change with one concern.")
	assert.NotContains(t, out, "\x1b[", "colorless output must carry no ANSI escapes")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "42", sanitizeFilename("42"))
	assert.Equal(t, "a_b_c", sanitizeFilename("a/b:c"))
}

func TestEscapePipes(t *testing.T) {
	assert.Equal(t, "a\\|b c", escapePipes("a|b\nc"))
}
