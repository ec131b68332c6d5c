// Package report renders the pipeline's outcomes: one markdown file per
// change set plus a run summary, and a colorized terminal digest.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codeargus/pkg/models"
)

// Run bundles everything one pipeline execution produced
type Run struct {
	ID         string
	Source     string
	Repository string
	Provider   string
	Started    time.Time
	Finished   time.Time
	Findings   []models.AggregateFinding
}

// NewRun stamps a fresh run with a unique identifier
func NewRun(source, repository, provider string) *Run {
	return &Run{
		ID:         uuid.New().String(),
		Source:     source,
		Repository: repository,
		Provider:   provider,
		Started:    time.Now(),
	}
}

// Counts tallies findings by aggregate status
func (r *Run) Counts() (analyzed, degraded, failed int) {
	for _, f := range r.Findings {
		switch f.Status {
		case models.StatusAnalyzed:
			analyzed++
		case models.StatusDegraded:
			degraded++
		case models.StatusFailed:
			failed++
		}
	}
	return
}

// Writer persists run artifacts under an output directory
type Writer struct {
	outputDir string
	log       zerolog.Logger
}

// NewWriter creates a report writer rooted at outputDir
func NewWriter(outputDir string, log zerolog.Logger) *Writer {
	return &Writer{outputDir: outputDir, log: log}
}

// Write renders the run to disk and returns the run directory. Each
// change set gets its own markdown file; summary.md indexes them.
func (w *Writer) Write(run *Run) (string, error) {
	dir := filepath.Join(w.outputDir, run.Started.Format("2006-01-02T15-04-05")+"-"+run.ID[:8])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	for _, finding := range run.Findings {
		path := filepath.Join(dir, fmt.Sprintf("change-%s.md", sanitizeFilename(finding.ChangeID)))
		if err := os.WriteFile(path, []byte(renderChange(&finding)), 0o644); err != nil {
			return "", fmt.Errorf("failed to write change report: %w", err)
		}
	}

	summaryPath := filepath.Join(dir, "summary.md")
	if err := os.WriteFile(summaryPath, []byte(renderSummary(run)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}

	w.log.Info().Str("dir", dir).Int("changes", len(run.Findings)).Msg("reports written")
	return dir, nil
}

// renderChange produces the per-change markdown report
func renderChange(f *models.AggregateFinding) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Change %s: %s\n\n", f.ChangeID, f.Title)
	if f.URL != "" {
		fmt.Fprintf(&sb, "%s\n\n", f.URL)
	}
	fmt.Fprintf(&sb, "**Status:** %s\n\n", f.Status)

	if f.Heuristics.HasTests {
		hint := f.Heuristics.TestFrameworkHint
		if hint == "" {
			hint = "unrecognized framework"
		}
		fmt.Fprintf(&sb, "**Test suite:** present (%s)\n\n", hint)
	} else {
		sb.WriteString("**Test suite:** none detected\n\n")
	}

	if f.Status == models.StatusFailed {
		fmt.Fprintf(&sb, "## Analysis failed\n\nError kind: `%s`\n\n", f.ErrorKind)
	} else if f.Result != nil {
		fmt.Fprintf(&sb, "## Summary\n\n%s\n\n", f.Result.Summary)
		if f.Result.Confidence == models.ConfidenceDegraded {
			sb.WriteString("_Confidence is degraded: the provider reply needed repair._\n\n")
		}

		if len(f.Result.Findings) > 0 {
			sb.WriteString("## Findings\n\n")
			sb.WriteString("| Severity | Category | File | Message |\n")
			sb.WriteString("|----------|----------|------|--------|\n")
			for _, item := range sortedFindings(f.Result.Findings) {
				file := item.FileHint
				if file == "" {
					file = "-"
				}
				fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
					item.Severity, item.Category, escapePipes(file), escapePipes(item.Message))
			}
			sb.WriteString("\n")
		} else {
			sb.WriteString("## Findings\n\nNo issues raised.\n\n")
		}

		fmt.Fprintf(&sb, "---\n\n_Analyzed by %s (%s)._\n", f.Result.Provider, f.Result.Model)
	}

	if len(f.Notes) > 0 {
		sb.WriteString("\n## Notes\n\n")
		for _, note := range f.Notes {
			fmt.Fprintf(&sb, "- %s\n", note)
		}
	}

	return sb.String()
}

// renderSummary produces the run-level markdown index
func renderSummary(run *Run) string {
	var sb strings.Builder

	analyzed, degraded, failed := run.Counts()

	fmt.Fprintf(&sb, "# Review Run %s\n\n", run.ID)
	fmt.Fprintf(&sb, "- Source: %s (%s)\n", run.Source, run.Repository)
	fmt.Fprintf(&sb, "- Provider: %s\n", run.Provider)
	fmt.Fprintf(&sb, "- Started: %s\n", run.Started.Format(time.RFC3339))
	if !run.Finished.IsZero() {
		fmt.Fprintf(&sb, "- Duration: %s\n", run.Finished.Sub(run.Started).Round(time.Second))
	}
	fmt.Fprintf(&sb, "- Change sets: %d analyzed, %d degraded, %d failed\n\n",
		analyzed, degraded, failed)

	sb.WriteString("| Change | Title | Status | Findings | Report |\n")
	sb.WriteString("|--------|-------|--------|----------|--------|\n")
	for _, f := range run.Findings {
		count := "-"
		if f.Result != nil {
			count = fmt.Sprintf("%d", len(f.Result.Findings))
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | [change-%s.md](change-%s.md) |\n",
			f.ChangeID, escapePipes(f.Title), f.Status, count,
			sanitizeFilename(f.ChangeID), sanitizeFilename(f.ChangeID))
	}

	return sb.String()
}

// severityRank orders findings most severe first
var severityRank = map[models.Severity]int{
	models.SeverityCritical: 0,
	models.SeverityMajor:    1,
	models.SeverityMinor:    2,
	models.SeverityInfo:     3,
}

func sortedFindings(findings []models.Finding) []models.Finding {
	sorted := make([]models.Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return severityRank[sorted[i].Severity] < severityRank[sorted[j].Severity]
	})
	return sorted
}

func escapePipes(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "\\|")
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
