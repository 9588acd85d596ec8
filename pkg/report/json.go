package report

import (
	"encoding/json"
	"io"
)

// JSONReporter renders a summary as JSON.
type JSONReporter struct {
	pretty bool
}

// NewJSONReporter creates a new JSON reporter. When pretty is
// true, output is indented for readability.
func NewJSONReporter(pretty bool) *JSONReporter {
	return &JSONReporter{pretty: pretty}
}

// Render implements Reporter.
func (r *JSONReporter) Render(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	if r.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(s)
}
