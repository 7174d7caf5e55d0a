package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tordrt/keygraph/internal/storage"
)

// Error kinds. Every failure returned by this package is a *KeyError whose
// Kind is one of these, so callers can test with errors.Is.
var (
	// ErrUnknownTable is returned when an operation names a table that is not
	// part of the model.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn is returned when a column is not part of a table's
	// schema.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrKeyAlreadySet is returned when a primary key is set on a table that
	// already has one and the caller did not force the replacement.
	ErrKeyAlreadySet = errors.New("primary key already set")

	// ErrDuplicateKeyValues is returned by a checked primary key add when the
	// column holds duplicated values. The KeyError carries a sample.
	ErrDuplicateKeyValues = errors.New("duplicate key values")

	// ErrParentHasNoPrimaryKey is returned when a foreign key targets a table
	// without a primary key.
	ErrParentHasNoPrimaryKey = errors.New("parent table has no primary key")

	// ErrForeignKeyViolation is returned by a checked foreign key add when
	// child values are missing from the parent key. The KeyError carries a
	// sample.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrReferencedByForeignKeys is returned when a primary key cannot be
	// removed or replaced because foreign keys still point at it.
	ErrReferencedByForeignKeys = errors.New("primary key referenced by foreign keys")

	// ErrNameConflict is returned when a table name is already taken and the
	// model does not repair names.
	ErrNameConflict = errors.New("table name conflict")

	// ErrCycleAmbiguity is returned when flattening reaches a table through
	// more than one foreign key path.
	ErrCycleAmbiguity = errors.New("ambiguous foreign key paths")
)

// KeyError describes a failed model operation.
type KeyError struct {
	Op     string
	Kind   error
	Table  string
	Column string
	// Related lists other tables involved, e.g. the referencing tables of
	// ErrReferencedByForeignKeys.
	Related []string
	// Sample holds offending values for ErrDuplicateKeyValues and
	// ErrForeignKeyViolation.
	Sample []any
	// Err is the underlying cause, typically a *storage.StorageError.
	Err error
}

func (e *KeyError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	if e.Err != nil && e.Kind == nil {
		b.WriteString(e.Err.Error())
		return b.String()
	}
	b.WriteString(e.Kind.Error())
	switch {
	case e.Table != "" && e.Column != "":
		fmt.Fprintf(&b, " %s.%s", e.Table, e.Column)
	case e.Table != "":
		fmt.Fprintf(&b, " %s", e.Table)
	}
	if len(e.Related) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Related, ", "))
	}
	if len(e.Sample) > 0 {
		fmt.Fprintf(&b, ": %s", storage.FormatSample(e.Sample))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *KeyError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func unknownTable(op, table string) error {
	return &KeyError{Op: op, Kind: ErrUnknownTable, Table: table}
}

func unknownColumn(op, table, column string) error {
	return &KeyError{Op: op, Kind: ErrUnknownColumn, Table: table, Column: column}
}

func storageFailure(op, table string, err error) error {
	return &KeyError{Op: op, Table: table, Err: err}
}
