package storage

import (
	"context"
	"fmt"
	"slices"
)

// Frame is an in-memory, column-oriented relation. A Frame never changes
// after construction, so it can be shared between model versions and
// goroutines.
type Frame struct {
	columns []string
	data    map[string][]any
	rows    int
}

var (
	_ Relation    = (*Frame)(nil)
	_ ValueLister = (*Frame)(nil)
)

// NewFrame builds a frame from row-major data. Each row must have one value
// per column.
func NewFrame(columns []string, rows ...[]any) (*Frame, error) {
	f := &Frame{
		columns: slices.Clone(columns),
		data:    make(map[string][]any, len(columns)),
		rows:    len(rows),
	}
	for _, c := range columns {
		if _, dup := f.data[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		f.data[c] = make([]any, 0, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		for j, c := range columns {
			f.data[c] = append(f.data[c], row[j])
		}
	}
	return f, nil
}

// Column is one named column of values.
type Column struct {
	Name   string
	Values []any
}

// FrameOf builds a frame from columns of equal length.
func FrameOf(cols ...Column) (*Frame, error) {
	f := &Frame{data: make(map[string][]any, len(cols))}
	for i, c := range cols {
		if _, dup := f.data[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			f.rows = len(c.Values)
		} else if len(c.Values) != f.rows {
			return nil, fmt.Errorf("column %q has %d values, want %d", c.Name, len(c.Values), f.rows)
		}
		f.columns = append(f.columns, c.Name)
		f.data[c.Name] = slices.Clone(c.Values)
	}
	return f, nil
}

// MustFrameOf is FrameOf that panics on malformed input. Meant for tests
// and fixtures.
func MustFrameOf(cols ...Column) *Frame {
	f, err := FrameOf(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Frame) values(column string) ([]any, error) {
	v, ok := f.data[column]
	if !ok {
		return nil, fmt.Errorf("frame has no column %q", column)
	}
	return v, nil
}

// Columns implements Relation.
func (f *Frame) Columns(context.Context) ([]string, error) {
	return slices.Clone(f.columns), nil
}

// RowCount implements Relation.
func (f *Frame) RowCount(context.Context) (int64, error) {
	return int64(f.rows), nil
}

// IsUnique implements Relation.
func (f *Frame) IsUnique(_ context.Context, column string) (Uniqueness, error) {
	vals, err := f.values(column)
	if err != nil {
		return Uniqueness{}, err
	}
	return Duplicates(vals), nil
}

// ValuesIncluded implements Relation. A parent that is not a Frame is
// compared through ValueLister.
func (f *Frame) ValuesIncluded(ctx context.Context, column string, parent Relation, parentColumn string) (Inclusion, error) {
	p, ok := parent.(*Frame)
	if !ok {
		return IncludedValues(ctx, f, column, parent, parentColumn)
	}
	child, err := f.values(column)
	if err != nil {
		return Inclusion{}, err
	}
	pvals, err := p.values(parentColumn)
	if err != nil {
		return Inclusion{}, err
	}
	return Include(child, pvals), nil
}

// DistinctValues implements ValueLister.
func (f *Frame) DistinctValues(_ context.Context, column string) ([]any, error) {
	vals, err := f.values(column)
	if err != nil {
		return nil, err
	}
	seen := make(map[any]struct{}, len(vals))
	var out []any
	for _, v := range vals {
		k := Normalize(v)
		if k == nil {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	slices.SortFunc(out, Compare)
	return out, nil
}
