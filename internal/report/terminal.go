package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/codeargus/pkg/models"
)

// Terminal renders a run digest for stdout. Colors can be disabled for
// plain logs and CI output.
type Terminal struct {
	colors bool
}

// NewTerminal creates a terminal renderer
func NewTerminal(colors bool) *Terminal {
	return &Terminal{colors: colors}
}

func (t *Terminal) statusStyle(status models.AggregateStatus) lipgloss.Style {
	if !t.colors {
		return lipgloss.NewStyle()
	}
	switch status {
	case models.StatusAnalyzed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // green
	case models.StatusDegraded:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // yellow
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
	}
}

func (t *Terminal) severityStyle(severity models.Severity) lipgloss.Style {
	if !t.colors {
		return lipgloss.NewStyle()
	}
	switch severity {
	case models.SeverityCritical:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	case models.SeverityMajor:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("208")) // orange
	case models.SeverityMinor:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	default:
		return lipgloss.NewStyle().Faint(true)
	}
}

func (t *Terminal) bold() lipgloss.Style {
	if !t.colors {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Bold(true)
}

// Render produces the terminal digest of a run
func (t *Terminal) Render(run *Run) string {
	var sb strings.Builder

	analyzed, degraded, failed := run.Counts()

	sb.WriteString(t.bold().Render(fmt.Sprintf("Review run %s", run.ID[:8])))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%s via %s: %d change sets (%d analyzed, %d degraded, %d failed)\n\n",
		run.Repository, run.Provider, len(run.Findings), analyzed, degraded, failed)

	for i := range run.Findings {
		f := &run.Findings[i]
		sb.WriteString(t.renderFinding(f))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (t *Terminal) renderFinding(f *models.AggregateFinding) string {
	var sb strings.Builder

	status := t.statusStyle(f.Status).Render(strings.ToUpper(string(f.Status)))
	fmt.Fprintf(&sb, "%s  %s %s\n", status, t.bold().Render("#"+f.ChangeID), f.Title)

	switch {
	case f.Status == models.StatusFailed:
		fmt.Fprintf(&sb, "    no result (%s)\n", f.ErrorKind)
	case f.Result != nil:
		summary := firstLine(f.Result.Summary)
		if summary != "" {
			fmt.Fprintf(&sb, "    %s\n", summary)
		}
		for _, item := range sortedFindings(f.Result.Findings) {
			sev := t.severityStyle(item.Severity).Render(string(item.Severity))
			location := ""
			if item.FileHint != "" {
				location = " [" + item.FileHint + "]"
			}
			fmt.Fprintf(&sb, "    %s%s %s\n", sev, location, firstLine(item.Message))
		}
	}

	for _, note := range f.Notes {
		fmt.Fprintf(&sb, "    note: %s\n", note)
	}

	return sb.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
