package check

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tordrt/keygraph/internal/model"
	"github.com/tordrt/keygraph/internal/storage"
)

// Kind tells which constraint a Result checked.
type Kind int

const (
	PrimaryKey Kind = iota
	ForeignKey
)

func (k Kind) String() string {
	if k == ForeignKey {
		return "FK"
	}
	return "PK"
}

// Result is the outcome of one constraint check.
type Result struct {
	Kind   Kind
	Table  string
	Column string
	// ParentTable and ParentColumn are set for foreign keys.
	ParentTable  string
	ParentColumn string
	Passed       bool
	// Sample holds duplicated key values or missing child values.
	Sample []any
	// Rows is the row count of Table, when requested.
	Rows int64
	// Err is set when the check could not run; Passed is false then.
	Err error
}

// Problem describes why the check failed, or returns "".
func (r Result) Problem() string {
	switch {
	case r.Passed:
		return ""
	case r.Err != nil:
		return r.Err.Error()
	case r.Kind == PrimaryKey:
		return "duplicate values: " + storage.FormatSample(r.Sample)
	}
	return fmt.Sprintf("values missing from %s.%s: %s", r.ParentTable, r.ParentColumn, storage.FormatSample(r.Sample))
}

// Report is the ordered list of check results of a model.
type Report struct {
	Results []Result
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	return len(r.Failures()) == 0
}

// Failures returns the failed results.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// ExamineOptions controls Examine.
type ExamineOptions struct {
	// Concurrency bounds the number of checks in flight. Values below 1 run
	// checks one at a time.
	Concurrency int
	// RowCounts fills Result.Rows.
	RowCounts bool
}

// Examine checks every declared primary key for uniqueness and every
// foreign key for inclusion. Primary keys come first in table order, then
// foreign keys in the order of AllFKs. Failures, storage errors included,
// are recorded in the report and never returned.
func Examine(ctx context.Context, m *model.Model, opts ExamineOptions) *Report {
	pks := m.AllPKs()
	fks := m.AllFKs()
	results := make([]Result, len(pks)+len(fks))

	var g errgroup.Group
	g.SetLimit(max(opts.Concurrency, 1))

	for i, pk := range pks {
		g.Go(func() error {
			results[i] = examinePK(ctx, m, pk, opts)
			return nil
		})
	}
	for i, fk := range fks {
		g.Go(func() error {
			results[len(pks)+i] = examineFK(ctx, m, fk, opts)
			return nil
		})
	}
	_ = g.Wait()

	return &Report{Results: results}
}

func examinePK(ctx context.Context, m *model.Model, pk model.PrimaryKey, opts ExamineOptions) Result {
	res := Result{Kind: PrimaryKey, Table: pk.Table, Column: pk.Column}
	t, _ := m.Table(pk.Table)
	if t.Relation == nil {
		res.Err = storage.ErrNoRelation
		return res
	}
	if opts.RowCounts {
		if res.Rows, res.Err = storage.CountRows(ctx, t.Relation); res.Err != nil {
			return res
		}
	}

	u, err := storage.CheckUnique(ctx, t.Relation, pk.Column)
	if err != nil {
		res.Err = err
		return res
	}
	res.Passed, res.Sample = u.Unique, u.Duplicates
	slog.Debug("checked primary key", "table", pk.Table, "column", pk.Column, "passed", res.Passed)
	return res
}

func examineFK(ctx context.Context, m *model.Model, fk model.ForeignKey, opts ExamineOptions) Result {
	res := Result{
		Kind:         ForeignKey,
		Table:        fk.ChildTable,
		Column:       fk.ChildColumn,
		ParentTable:  fk.ParentTable,
		ParentColumn: fk.ParentColumn,
	}
	child, _ := m.Table(fk.ChildTable)
	parent, _ := m.Table(fk.ParentTable)
	if child.Relation == nil || parent.Relation == nil {
		res.Err = storage.ErrNoRelation
		return res
	}
	if opts.RowCounts {
		if res.Rows, res.Err = storage.CountRows(ctx, child.Relation); res.Err != nil {
			return res
		}
	}

	inc, err := storage.CheckIncluded(ctx, child.Relation, fk.ChildColumn, parent.Relation, fk.ParentColumn)
	if err != nil {
		res.Err = err
		return res
	}
	res.Passed, res.Sample = inc.Included, inc.Missing
	slog.Debug("checked foreign key",
		"table", fk.ChildTable, "column", fk.ChildColumn,
		"parent", fk.ParentTable, "passed", res.Passed,
	)
	return res
}
