// Package storage defines the narrow contract the key graph uses to reach
// table data it does not own, plus an in-memory implementation.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// SampleSize caps the number of offending values carried by a check result.
const SampleSize = 5

// ErrNoRelation is reported for tables that carry no data handle.
var ErrNoRelation = errors.New("table has no storage relation")

// Relation is an opaque handle to externally owned table data.
//
// Missing values (SQL NULL, Go nil) never take part in uniqueness or
// inclusion checks: a column holding several NULLs can still be unique, and a
// NULL child value never violates a foreign key.
type Relation interface {
	// Columns returns the current column names in declaration order.
	Columns(ctx context.Context) ([]string, error)

	// RowCount returns the number of rows. Used for diagnostics only.
	RowCount(ctx context.Context) (int64, error)

	// IsUnique reports whether the non-missing values of column are distinct.
	IsUnique(ctx context.Context, column string) (Uniqueness, error)

	// ValuesIncluded reports whether every non-missing value of column also
	// appears in parentColumn of parent.
	ValuesIncluded(ctx context.Context, column string, parent Relation, parentColumn string) (Inclusion, error)
}

// ValueLister is implemented by relations that can materialise the distinct
// non-missing values of a column. Relations living on different backends are
// compared through it.
type ValueLister interface {
	DistinctValues(ctx context.Context, column string) ([]any, error)
}

// Uniqueness is the outcome of a uniqueness check.
type Uniqueness struct {
	Unique bool
	// Duplicates holds at most SampleSize duplicated values, most frequent
	// first, ties broken by Compare.
	Duplicates []any
}

// Inclusion is the outcome of an inclusion check.
type Inclusion struct {
	Included bool
	// Missing holds at most SampleSize child values absent from the parent,
	// ordered by Compare.
	Missing []any
}

// StorageError wraps a failure reported by a Relation. The key graph never
// retries these.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ColumnsOf fetches the columns of rel, wrapping failures in *StorageError.
func ColumnsOf(ctx context.Context, rel Relation) ([]string, error) {
	cols, err := rel.Columns(ctx)
	if err != nil {
		return nil, wrap("columns", err)
	}
	return cols, nil
}

// CheckUnique runs the uniqueness check of column on rel.
func CheckUnique(ctx context.Context, rel Relation, column string) (Uniqueness, error) {
	res, err := rel.IsUnique(ctx, column)
	if err != nil {
		return Uniqueness{}, wrap("unique check on "+column, err)
	}
	res.Duplicates = capSample(res.Duplicates)
	return res, nil
}

// CheckIncluded runs the inclusion check of child.column against
// parent.parentColumn.
func CheckIncluded(ctx context.Context, child Relation, column string, parent Relation, parentColumn string) (Inclusion, error) {
	res, err := child.ValuesIncluded(ctx, column, parent, parentColumn)
	if err != nil {
		return Inclusion{}, wrap("inclusion check of "+column+" in "+parentColumn, err)
	}
	res.Missing = capSample(res.Missing)
	return res, nil
}

// CountRows returns the row count of rel.
func CountRows(ctx context.Context, rel Relation) (int64, error) {
	n, err := rel.RowCount(ctx)
	if err != nil {
		return 0, wrap("row count", err)
	}
	return n, nil
}

// IncludedValues checks inclusion by materialising the distinct values of
// both sides. It is the fallback for relations on different backends.
func IncludedValues(ctx context.Context, child ValueLister, column string, parent Relation, parentColumn string) (Inclusion, error) {
	pl, ok := parent.(ValueLister)
	if !ok {
		return Inclusion{}, fmt.Errorf("parent relation %T cannot list values", parent)
	}
	childVals, err := child.DistinctValues(ctx, column)
	if err != nil {
		return Inclusion{}, err
	}
	parentVals, err := pl.DistinctValues(ctx, parentColumn)
	if err != nil {
		return Inclusion{}, err
	}
	return Include(childVals, parentVals), nil
}

func capSample(vals []any) []any {
	if len(vals) > SampleSize {
		return vals[:SampleSize]
	}
	return vals
}
