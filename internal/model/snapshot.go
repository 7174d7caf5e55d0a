package model

import (
	"context"

	"github.com/tordrt/keygraph/internal/schema"
	"github.com/tordrt/keygraph/internal/storage"
)

// FromSnapshot rebuilds a model from its serialised form. relations maps
// table names to data handles and may be nil or partial. Keys are taken as
// declared, without data checks, but must satisfy Validate. A table listed
// with two different primary keys fails with ErrKeyAlreadySet.
func FromSnapshot(snap *schema.Snapshot, relations map[string]storage.Relation, opts ...Option) (*Model, error) {
	m := New(opts...)

	// Snapshots describe a valid model, so names are never repaired here.
	strict := m.clone()
	strict.opts.NameConflict = NameConflictFail

	specs := make([]TableSpec, 0, len(snap.Tables))
	for _, t := range snap.Tables {
		cols := t.Columns
		if cols == nil {
			cols = []string{}
		}
		specs = append(specs, TableSpec{Name: t.Name, Columns: cols, Types: t.Types, Relation: relations[t.Name]})
	}
	next, err := strict.AddTables(context.Background(), specs...)
	if err != nil {
		return nil, err
	}
	next.opts = m.opts

	for _, pk := range snap.PrimaryKeys {
		if next, err = next.AddPK(context.Background(), pk.Table, pk.Column, PKOptions{}); err != nil {
			return nil, err
		}
	}
	for _, fk := range snap.ForeignKeys {
		if next, err = next.AddFK(context.Background(), fk.ChildTable, fk.ChildColumn, fk.ParentTable, FKOptions{}); err != nil {
			return nil, err
		}
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// Snapshot returns the serialisable form of the model.
func (m *Model) Snapshot() *schema.Snapshot {
	s := &schema.Snapshot{
		Tables:      make([]schema.Table, 0, len(m.tables)),
		PrimaryKeys: []schema.PrimaryKey{},
		ForeignKeys: []schema.ForeignKey{},
	}
	for _, t := range m.Tables() {
		s.Tables = append(s.Tables, schema.Table{Name: t.Name, Columns: t.Columns, Types: t.Types})
	}
	for _, pk := range m.AllPKs() {
		s.PrimaryKeys = append(s.PrimaryKeys, schema.PrimaryKey{Table: pk.Table, Column: pk.Column})
	}
	// declaration order, so CycleFirstDeclared resolves the same way after a
	// round trip
	for _, e := range m.edges {
		s.ForeignKeys = append(s.ForeignKeys, schema.ForeignKey{
			ChildTable:  e.child,
			ChildColumn: e.column,
			ParentTable: e.parent,
		})
	}
	return s
}
