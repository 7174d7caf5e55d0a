package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/keygraph/internal/check"
	"github.com/tordrt/keygraph/internal/model"
)

// MarkdownFormatter formats models and reports as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the model in markdown format
func (f *MarkdownFormatter) Format(m *model.Model) error {
	_, _ = fmt.Fprintln(f.writer, "# Key Model")
	_, _ = fmt.Fprintln(f.writer)
	if m.HasCycle() {
		_, _ = fmt.Fprintln(f.writer, "> Foreign keys form a cycle.")
		_, _ = fmt.Fprintln(f.writer)
	}

	for _, table := range m.Tables() {
		f.FormatTable(f.writer, m, table)
	}
	return nil
}

// FormatTable writes a single table section (shared with the multifile formatter)
func (f *MarkdownFormatter) FormatTable(w io.Writer, m *model.Model, table model.Table) {
	_, _ = fmt.Fprintf(w, "## %s\n\n", table.Name)

	_, _ = fmt.Fprintln(w, "### Columns")
	_, _ = fmt.Fprintln(w)

	pk, _ := m.PK(table.Name)
	for i, col := range table.Columns {
		var parts []string
		if typ := columnType(table, i); typ != "" {
			parts = append(parts, typ)
		}
		if col == pk {
			parts = append(parts, "PK")
		}
		if len(parts) > 0 {
			_, _ = fmt.Fprintf(w, "- **%s:** %s\n", col, strings.Join(parts, ", "))
		} else {
			_, _ = fmt.Fprintf(w, "- **%s**\n", col)
		}
	}
	_, _ = fmt.Fprintln(w)

	if fks := m.ForeignKeysFrom(table.Name); len(fks) > 0 {
		_, _ = fmt.Fprintln(w, "### References")
		_, _ = fmt.Fprintln(w)
		for _, fk := range fks {
			_, _ = fmt.Fprintf(w, "- %s → %s.%s\n", fk.ChildColumn, fk.ParentTable, fk.ParentColumn)
		}
		_, _ = fmt.Fprintln(w)
	}

	if fks := m.ForeignKeysTo(table.Name); len(fks) > 0 {
		_, _ = fmt.Fprintln(w, "### Referenced by")
		_, _ = fmt.Fprintln(w)
		for _, fk := range fks {
			_, _ = fmt.Fprintf(w, "- %s.%s → %s\n", fk.ChildTable, fk.ChildColumn, fk.ParentColumn)
		}
		_, _ = fmt.Fprintln(w)
	}
}

// FormatReport writes the check results as a markdown table
func (f *MarkdownFormatter) FormatReport(r *check.Report) error {
	_, _ = fmt.Fprintln(f.writer, "# Constraint Report")
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintln(f.writer, "| Kind | Constraint | Status | Rows | Problem |")
	_, _ = fmt.Fprintln(f.writer, "|------|------------|--------|------|---------|")
	for _, res := range r.Results {
		status := "ok"
		if !res.Passed {
			status = "**FAIL**"
		}
		rows := ""
		if res.Rows > 0 {
			rows = fmt.Sprint(res.Rows)
		}
		_, _ = fmt.Fprintf(f.writer, "| %s | `%s` | %s | %s | %s |\n",
			res.Kind, describeCheck(res), status, rows, escapeCell(res.Problem()))
	}
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintln(f.writer, summary(r))
	return nil
}

// FormatPlan writes a join plan as a numbered list
func (f *MarkdownFormatter) FormatPlan(p model.JoinPlan) error {
	_, _ = fmt.Fprintf(f.writer, "# Flatten %s toward %s\n\n", p.Start, p.Direction)
	for i, s := range p.Steps {
		_, _ = fmt.Fprintf(f.writer, "%d. join **%s** on `%s` (depth %d)\n", i+1, s.Other, describeStep(s), s.Depth)
	}
	if len(p.Skipped) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "### Skipped")
		_, _ = fmt.Fprintln(f.writer)
		for _, s := range p.Skipped {
			_, _ = fmt.Fprintf(f.writer, "- `%s`\n", describeStep(s))
		}
	}
	return nil
}

// FormatCandidates writes key candidates under a heading
func (f *MarkdownFormatter) FormatCandidates(title string, cands []check.Candidate) error {
	_, _ = fmt.Fprintf(f.writer, "# %s\n\n", title)
	for _, c := range cands {
		if c.Candidate {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** candidate\n", c.Column)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", c.Column, c.Why)
		}
	}
	return nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
