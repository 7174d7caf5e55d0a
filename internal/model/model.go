// Package model holds the key graph: named tables, their single-column
// primary keys and the foreign keys between them.
//
// A *Model is an immutable value. Every mutating method returns a new model
// and leaves the receiver untouched, so a model can be shared between
// goroutines without locking. Foreign keys are kept as an ordered edge list;
// the reverse index from parent to incoming edges is derived again for every
// version.
package model

import (
	"context"
	"slices"

	"github.com/tordrt/keygraph/internal/storage"
)

// AnyColumn matches every column of a table pair in RemoveFK.
const AnyColumn = "*"

// Table describes one table of the model.
type Table struct {
	Name    string
	Columns []string
	// Types holds the column types parallel to Columns. It may be nil.
	Types []string
	// Relation is the externally owned handle to the table data. It may be
	// nil for models rebuilt from a snapshot without data.
	Relation storage.Relation
}

// HasColumn reports whether column is part of the table schema.
func (t Table) HasColumn(column string) bool {
	return slices.Contains(t.Columns, column)
}

func (t Table) columnPos(column string) int {
	return slices.Index(t.Columns, column)
}

func (t Table) clone() Table {
	t.Columns = slices.Clone(t.Columns)
	t.Types = slices.Clone(t.Types)
	return t
}

// TableSpec describes a table to add. When Columns is nil the columns are
// read from Relation.
type TableSpec struct {
	Name     string
	Columns  []string
	Types    []string
	Relation storage.Relation
}

// PrimaryKey is a declared primary key.
type PrimaryKey struct {
	Table  string
	Column string
}

// ForeignKey is a declared foreign key. ParentColumn is the parent's current
// primary key column.
type ForeignKey struct {
	ChildTable   string
	ChildColumn  string
	ParentTable  string
	ParentColumn string
}

type edge struct {
	child  string
	column string
	parent string
}

// Model is one version of the key graph.
type Model struct {
	opts   Options
	tables []Table
	index  map[string]int
	pks    map[string]string
	edges  []edge

	incoming map[string][]int
	outgoing map[string][]int
}

// New returns an empty model.
func New(opts ...Option) *Model {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	m := &Model{opts: o, pks: map[string]string{}}
	m.derive()
	return m
}

// Options returns the policies the model was created with.
func (m *Model) Options() Options { return m.opts }

func (m *Model) clone() *Model {
	next := &Model{
		opts:   m.opts,
		tables: slices.Clone(m.tables),
		pks:    make(map[string]string, len(m.pks)),
		edges:  slices.Clone(m.edges),
	}
	for k, v := range m.pks {
		next.pks[k] = v
	}
	return next
}

// derive rebuilds the name index and the edge indexes.
func (m *Model) derive() {
	m.index = make(map[string]int, len(m.tables))
	for i, t := range m.tables {
		m.index[t.Name] = i
	}
	m.incoming = make(map[string][]int)
	m.outgoing = make(map[string][]int)
	for i, e := range m.edges {
		m.incoming[e.parent] = append(m.incoming[e.parent], i)
		m.outgoing[e.child] = append(m.outgoing[e.child], i)
	}
}

func (m *Model) table(name string) (Table, bool) {
	i, ok := m.index[name]
	if !ok {
		return Table{}, false
	}
	return m.tables[i], true
}

// Len returns the number of tables.
func (m *Model) Len() int { return len(m.tables) }

// Table returns the descriptor of the named table.
func (m *Model) Table(name string) (Table, bool) {
	t, ok := m.table(name)
	if !ok {
		return Table{}, false
	}
	return t.clone(), true
}

// Tables returns all table descriptors in insertion order.
func (m *Model) Tables() []Table {
	out := make([]Table, len(m.tables))
	for i, t := range m.tables {
		out[i] = t.clone()
	}
	return out
}

// TableNames returns the table names in insertion order.
func (m *Model) TableNames() []string {
	out := make([]string, len(m.tables))
	for i, t := range m.tables {
		out[i] = t.Name
	}
	return out
}

// AddTables appends tables to the model. Name collisions, with existing
// tables or within specs, follow the model's NameConflictPolicy.
func (m *Model) AddTables(ctx context.Context, specs ...TableSpec) (*Model, error) {
	const op = "add tables"

	taken := make(map[string]bool, len(m.tables)+len(specs))
	for _, t := range m.tables {
		taken[t.Name] = true
	}

	added := make([]Table, 0, len(specs))
	for _, spec := range specs {
		name := spec.Name
		if name == "" || taken[name] {
			if m.opts.NameConflict == NameConflictFail {
				return nil, &KeyError{Op: op, Kind: ErrNameConflict, Table: name}
			}
			name = UniqueName(name, taken)
		}
		taken[name] = true

		cols := spec.Columns
		if cols == nil && spec.Relation != nil {
			var err error
			if cols, err = storage.ColumnsOf(ctx, spec.Relation); err != nil {
				return nil, storageFailure(op, spec.Name, err)
			}
		}
		added = append(added, Table{
			Name:     name,
			Columns:  slices.Clone(cols),
			Types:    slices.Clone(spec.Types),
			Relation: spec.Relation,
		})
	}

	next := m.clone()
	next.tables = append(next.tables, added...)
	next.derive()
	return next, nil
}

// RemoveTables drops tables together with their primary keys and every
// foreign key in which they are child or parent.
func (m *Model) RemoveTables(names ...string) (*Model, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := m.index[n]; !ok {
			return nil, unknownTable("remove tables", n)
		}
		drop[n] = true
	}
	if len(drop) == 0 {
		return m, nil
	}

	next := m.clone()
	next.tables = slices.DeleteFunc(next.tables, func(t Table) bool { return drop[t.Name] })
	for n := range drop {
		delete(next.pks, n)
	}
	next.edges = slices.DeleteFunc(next.edges, func(e edge) bool { return drop[e.child] || drop[e.parent] })
	next.derive()
	return next, nil
}

// RenameTable renames a table and every key that mentions it. A taken new
// name follows the model's NameConflictPolicy.
func (m *Model) RenameTable(oldName, newName string) (*Model, error) {
	const op = "rename table"

	i, ok := m.index[oldName]
	if !ok {
		return nil, unknownTable(op, oldName)
	}
	if oldName == newName {
		return m, nil
	}
	if _, taken := m.index[newName]; taken || newName == "" {
		if m.opts.NameConflict == NameConflictFail {
			return nil, &KeyError{Op: op, Kind: ErrNameConflict, Table: newName}
		}
		names := make(map[string]bool, len(m.tables))
		for _, t := range m.tables {
			names[t.Name] = true
		}
		newName = UniqueName(newName, names)
	}

	next := m.clone()
	next.tables[i].Name = newName
	if pk, ok := next.pks[oldName]; ok {
		delete(next.pks, oldName)
		next.pks[newName] = pk
	}
	for j, e := range next.edges {
		if e.child == oldName {
			next.edges[j].child = newName
		}
		if e.parent == oldName {
			next.edges[j].parent = newName
		}
	}
	next.derive()
	return next, nil
}

// Validate checks the structural invariants of the model: unique names,
// key columns present in their tables, and every foreign key pointing at an
// existing table with a primary key.
func (m *Model) Validate() error {
	const op = "validate"

	seen := make(map[string]bool, len(m.tables))
	for _, t := range m.tables {
		if seen[t.Name] {
			return &KeyError{Op: op, Kind: ErrNameConflict, Table: t.Name}
		}
		seen[t.Name] = true
	}
	for _, t := range m.tables {
		if pk, ok := m.pks[t.Name]; ok && !t.HasColumn(pk) {
			return unknownColumn(op, t.Name, pk)
		}
	}
	for name := range m.pks {
		if !seen[name] {
			return unknownTable(op, name)
		}
	}
	for _, e := range m.edges {
		child, ok := m.table(e.child)
		if !ok {
			return unknownTable(op, e.child)
		}
		if !child.HasColumn(e.column) {
			return unknownColumn(op, e.child, e.column)
		}
		if _, ok := m.table(e.parent); !ok {
			return unknownTable(op, e.parent)
		}
		if _, ok := m.pks[e.parent]; !ok {
			return &KeyError{Op: op, Kind: ErrParentHasNoPrimaryKey, Table: e.parent, Related: []string{e.child}}
		}
	}
	return nil
}
