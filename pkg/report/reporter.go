// Package report renders the results of a pass and maps them
// to a process exit code.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ErrUnknownFormat is returned by New for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Reporter renders a pass summary.
type Reporter interface {
	// Render writes s to w.
	Render(w io.Writer, s *Summary) error
}

// New returns the reporter for format.
func New(format string) (Reporter, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return &TextReporter{}, nil
	case FormatMarkdown, "md":
		return &MarkdownReporter{}, nil
	case FormatJSON:
		return NewJSONReporter(true), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
