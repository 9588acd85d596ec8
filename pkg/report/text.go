package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"digital.vasic.provision/pkg/task"
)

// TextReporter renders a summary as a plain checklist, one
// line per task followed by the totals.
type TextReporter struct{}

// Render implements Reporter.
func (r *TextReporter) Render(w io.Writer, s *Summary) error {
	bw := bufio.NewWriter(w)
	width := 0
	for _, st := range task.Statuses {
		if n := len(st.Label()); n > width {
			width = n
		}
	}

	for _, t := range s.Tasks {
		line := fmt.Sprintf(
			"[%-*s] %3d  %s", width, t.Status.Label(), t.Sequence, t.Name,
		)
		if t.Detail != "" {
			line += ": " + t.Detail
		}
		if t.ElevationRequired {
			line += " (elevation required)"
		}
		fmt.Fprintln(bw, line)
	}

	parts := make([]string, 0, len(task.Statuses))
	for _, st := range task.Statuses {
		parts = append(parts, fmt.Sprintf("%d %s", s.Count(st), st))
	}
	fmt.Fprintf(bw, "\n%d tasks (%s) in %v, exit code %d\n",
		s.Total, strings.Join(parts, ", "), s.TotalDuration, s.ExitCode)
	return bw.Flush()
}
