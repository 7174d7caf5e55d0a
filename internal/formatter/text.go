package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/keygraph/internal/check"
	"github.com/tordrt/keygraph/internal/model"
)

// TextFormatter formats models and reports as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the model in compact text format
func (f *TextFormatter) Format(m *model.Model) error {
	for i, table := range m.Tables() {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		f.formatTable(m, table)
	}
	if m.HasCycle() {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "NOTE: foreign keys form a cycle")
	}
	return nil
}

func (f *TextFormatter) formatTable(m *model.Model, table model.Table) {
	// Table header with primary key
	pkStr := ""
	if pk, ok := m.PK(table.Name); ok {
		pkStr = fmt.Sprintf(" (PK: %s)", pk)
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s\n", table.Name, pkStr)

	for i, col := range table.Columns {
		if typ := columnType(table, i); typ != "" {
			_, _ = fmt.Fprintf(f.writer, "  %s: %s\n", col, typ)
		} else {
			_, _ = fmt.Fprintf(f.writer, "  %s\n", col)
		}
	}

	if fks := m.ForeignKeysFrom(table.Name); len(fks) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  REFERENCES:")
		for _, fk := range fks {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s\n", fk.ChildColumn, fk.ParentTable, fk.ParentColumn)
		}
	}

	if fks := m.ForeignKeysTo(table.Name); len(fks) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  REFERENCED BY:")
		for _, fk := range fks {
			_, _ = fmt.Fprintf(f.writer, "    %s.%s\n", fk.ChildTable, fk.ChildColumn)
		}
	}
}

// FormatReport writes one line per check followed by a summary line
func (f *TextFormatter) FormatReport(r *check.Report) error {
	for _, res := range r.Results {
		status := "ok"
		if !res.Passed {
			status = "FAIL"
		}
		line := fmt.Sprintf("%s %s %s", res.Kind, describeCheck(res), status)
		if res.Rows > 0 {
			line += fmt.Sprintf(" (%d rows)", res.Rows)
		}
		if p := res.Problem(); p != "" {
			line += ": " + p
		}
		_, _ = fmt.Fprintln(f.writer, line)
	}
	_, _ = fmt.Fprintln(f.writer, summary(r))
	return nil
}

// FormatPlan writes a join plan, one join per line
func (f *TextFormatter) FormatPlan(p model.JoinPlan) error {
	_, _ = fmt.Fprintf(f.writer, "FLATTEN %s toward %s\n", p.Start, p.Direction)
	for _, s := range p.Steps {
		_, _ = fmt.Fprintf(f.writer, "  %s%s\n", strings.Repeat("  ", s.Depth-1), describeStep(s))
	}
	if len(p.Skipped) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  SKIPPED:")
		for _, s := range p.Skipped {
			_, _ = fmt.Fprintf(f.writer, "    %s\n", describeStep(s))
		}
	}
	return nil
}

// FormatCandidates writes key candidates under a title line
func (f *TextFormatter) FormatCandidates(title string, cands []check.Candidate) error {
	_, _ = fmt.Fprintln(f.writer, strings.ToUpper(title))
	for _, c := range cands {
		if c.Candidate {
			_, _ = fmt.Fprintf(f.writer, "  %s: yes\n", c.Column)
		} else {
			_, _ = fmt.Fprintf(f.writer, "  %s: no, %s\n", c.Column, c.Why)
		}
	}
	return nil
}

func columnType(t model.Table, i int) string {
	if i < len(t.Types) {
		return t.Types[i]
	}
	return ""
}

func describeCheck(res check.Result) string {
	if res.Kind == check.ForeignKey {
		return fmt.Sprintf("%s.%s → %s.%s", res.Table, res.Column, res.ParentTable, res.ParentColumn)
	}
	return res.Table + "." + res.Column
}

func describeStep(s model.JoinStep) string {
	return fmt.Sprintf("%s.%s = %s.%s", s.Table, s.Column, s.Other, s.OtherColumn)
}

func summary(r *check.Report) string {
	return fmt.Sprintf("%d checks, %d failed", len(r.Results), len(r.Failures()))
}
