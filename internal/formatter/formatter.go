// Package formatter renders key models, constraint reports, join plans and
// key candidates for people to read.
package formatter

import (
	"fmt"
	"io"

	"github.com/tordrt/keygraph/internal/check"
	"github.com/tordrt/keygraph/internal/model"
)

// Formatter is implemented by the text and markdown formatters.
type Formatter interface {
	Format(m *model.Model) error
	FormatReport(r *check.Report) error
	FormatPlan(p model.JoinPlan) error
	FormatCandidates(title string, cands []check.Candidate) error
}

var (
	_ Formatter = (*TextFormatter)(nil)
	_ Formatter = (*MarkdownFormatter)(nil)
)

// New returns the formatter for format, "text" or "markdown".
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case formatText, "":
		return NewTextFormatter(w), nil
	case formatMarkdown, "md":
		return NewMarkdownFormatter(w), nil
	}
	return nil, fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", format)
}
