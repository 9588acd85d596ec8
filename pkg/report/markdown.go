package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"digital.vasic.provision/pkg/task"
)

// MarkdownReporter renders a summary as a Markdown document.
type MarkdownReporter struct{}

// Render implements Reporter.
func (r *MarkdownReporter) Render(w io.Writer, s *Summary) error {
	_, err := io.WriteString(w, renderMarkdown(s))
	return err
}

// renderMarkdown creates markdown from a summary.
func renderMarkdown(s *Summary) string {
	var sb strings.Builder

	sb.WriteString("# Provisioning Pass Summary\n\n")
	sb.WriteString(fmt.Sprintf("**Summary ID:** %s\n\n", s.ID))
	if s.PassID != "" {
		sb.WriteString(fmt.Sprintf("**Pass ID:** %s\n\n", s.PassID))
	}
	sb.WriteString(fmt.Sprintf("**Mode:** %s\n\n", s.Mode))
	sb.WriteString(
		fmt.Sprintf(
			"**Generated:** %s\n\n",
			s.GeneratedAt.Format(time.RFC3339),
		),
	)

	sb.WriteString("## Tasks\n\n")
	sb.WriteString("| # | Task | Status | Duration | Detail |\n")
	sb.WriteString("|---|------|--------|----------|--------|\n")
	for _, t := range s.Tasks {
		detail := t.Detail
		if t.ElevationRequired {
			detail = strings.TrimSpace(detail + " (elevation required)")
		}
		sb.WriteString(
			fmt.Sprintf(
				"| %d | %s | %s | %v | %s |\n",
				t.Sequence, escapeCell(t.Name), t.Status.Label(),
				t.Duration, escapeCell(detail),
			),
		)
	}

	sb.WriteString("\n## Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Tasks | %d |\n", s.Total))
	for _, st := range task.Statuses {
		sb.WriteString(
			fmt.Sprintf("| %s | %d |\n", statusTitle(st), s.Count(st)),
		)
	}
	sb.WriteString(
		fmt.Sprintf(
			"| Elevation Required | %d |\n", s.ElevationRequired,
		),
	)
	if s.WouldFix > 0 {
		sb.WriteString(fmt.Sprintf("| Would Fix | %d |\n", s.WouldFix))
	}
	sb.WriteString(
		fmt.Sprintf("| Total Duration | %v |\n", s.TotalDuration),
	)
	sb.WriteString(fmt.Sprintf("| Exit Code | %d |\n", s.ExitCode))

	return sb.String()
}

func statusTitle(st task.Status) string {
	switch st {
	case task.StatusSatisfied:
		return "Satisfied"
	case task.StatusFixed:
		return "Fixed"
	case task.StatusManualActionRequired:
		return "Manual Action Required"
	case task.StatusFailed:
		return "Failed"
	case task.StatusProbeFailed:
		return "Probe Failed"
	}
	return string(st)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
