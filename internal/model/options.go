package model

import "fmt"

// NameConflictPolicy decides what happens when a table name is taken.
type NameConflictPolicy int

const (
	// NameConflictFail rejects the operation with ErrNameConflict.
	NameConflictFail NameConflictPolicy = iota
	// NameConflictMakeUnique renames the new table with a positional suffix.
	NameConflictMakeUnique
)

// ReplacePKPolicy decides what a forced primary key replacement does to
// foreign keys pointing at the old key.
type ReplacePKPolicy int

const (
	// ReplacePKDropReferencing removes the referencing foreign keys in the
	// same model version.
	ReplacePKDropReferencing ReplacePKPolicy = iota
	// ReplacePKRefuse fails with ErrReferencedByForeignKeys.
	ReplacePKRefuse
)

// CyclePolicy decides how Flatten resolves a table reachable through more
// than one foreign key path.
type CyclePolicy int

const (
	// CycleReject fails with ErrCycleAmbiguity.
	CycleReject CyclePolicy = iota
	// CycleFirstDeclared keeps the first path found by a breadth-first walk
	// over edges in declaration order and reports the others as skipped.
	CycleFirstDeclared
)

// Options holds the model-wide policies. The zero value is the default:
// strict names, relaxed keys, drop referencing foreign keys on forced
// replacement, reject ambiguous flattening.
type Options struct {
	NameConflict NameConflictPolicy
	// StrictKeys makes re-adding the current primary key without force an
	// error instead of a no-op.
	StrictKeys bool
	ReplacePK  ReplacePKPolicy
	Cycles     CyclePolicy
}

// Option configures a model.
type Option func(*Options)

// WithNameConflict sets the name conflict policy.
func WithNameConflict(p NameConflictPolicy) Option {
	return func(o *Options) { o.NameConflict = p }
}

// WithStrictKeys toggles strict primary key handling.
func WithStrictKeys(strict bool) Option {
	return func(o *Options) { o.StrictKeys = strict }
}

// WithReplacePK sets the forced replacement policy.
func WithReplacePK(p ReplacePKPolicy) Option {
	return func(o *Options) { o.ReplacePK = p }
}

// WithCycles sets the flattening cycle policy.
func WithCycles(p CyclePolicy) Option {
	return func(o *Options) { o.Cycles = p }
}

// ParseNameConflict parses "fail" or "make_unique".
func ParseNameConflict(s string) (NameConflictPolicy, error) {
	switch s {
	case "", "fail":
		return NameConflictFail, nil
	case "make_unique":
		return NameConflictMakeUnique, nil
	}
	return 0, fmt.Errorf("invalid name conflict policy %q (must be fail or make_unique)", s)
}

// ParseReplacePK parses "drop" or "refuse".
func ParseReplacePK(s string) (ReplacePKPolicy, error) {
	switch s {
	case "", "drop":
		return ReplacePKDropReferencing, nil
	case "refuse":
		return ReplacePKRefuse, nil
	}
	return 0, fmt.Errorf("invalid primary key replacement policy %q (must be drop or refuse)", s)
}

// ParseCycles parses "reject" or "first".
func ParseCycles(s string) (CyclePolicy, error) {
	switch s {
	case "", "reject":
		return CycleReject, nil
	case "first":
		return CycleFirstDeclared, nil
	}
	return 0, fmt.Errorf("invalid cycle policy %q (must be reject or first)", s)
}
