package model

import (
	"context"
	"slices"

	"github.com/tordrt/keygraph/internal/storage"
)

// PKOptions controls AddPK.
type PKOptions struct {
	// Check verifies that the column values are unique before setting the
	// key.
	Check bool
	// Force replaces an existing primary key.
	Force bool
}

// FKOptions controls AddFK.
type FKOptions struct {
	// Check verifies that every child value exists in the parent key.
	Check bool
}

// PK returns the primary key column of table.
func (m *Model) PK(table string) (string, bool) {
	pk, ok := m.pks[table]
	return pk, ok
}

// HasPK reports whether table has a primary key.
func (m *Model) HasPK(table string) bool {
	_, ok := m.pks[table]
	return ok
}

// AddPK sets column as the primary key of table.
//
// When the table already has a primary key the call fails with
// ErrKeyAlreadySet unless opt.Force is set; re-adding the current key is a
// no-op unless the model uses strict keys. A forced replacement with a
// different column removes the foreign keys that referenced the old key, or
// fails with ErrReferencedByForeignKeys under ReplacePKRefuse.
func (m *Model) AddPK(ctx context.Context, table, column string, opt PKOptions) (*Model, error) {
	const op = "add primary key"

	t, ok := m.table(table)
	if !ok {
		return nil, unknownTable(op, table)
	}
	if !t.HasColumn(column) {
		return nil, unknownColumn(op, table, column)
	}

	cur, has := m.pks[table]
	noop := has && cur == column
	dropRefs := false
	if has {
		switch {
		case !opt.Force && (cur != column || m.opts.StrictKeys):
			return nil, &KeyError{Op: op, Kind: ErrKeyAlreadySet, Table: table, Column: cur}
		case cur != column && m.isReferenced(table):
			if m.opts.ReplacePK == ReplacePKRefuse {
				return nil, &KeyError{Op: op, Kind: ErrReferencedByForeignKeys, Table: table, Column: cur, Related: m.ReferencingTables(table)}
			}
			dropRefs = true
		}
	}

	if opt.Check {
		if t.Relation == nil {
			return nil, storageFailure(op, table, storage.ErrNoRelation)
		}
		res, err := storage.CheckUnique(ctx, t.Relation, column)
		if err != nil {
			return nil, storageFailure(op, table, err)
		}
		if !res.Unique {
			return nil, &KeyError{Op: op, Kind: ErrDuplicateKeyValues, Table: table, Column: column, Sample: res.Duplicates}
		}
	}

	if noop {
		return m, nil
	}

	next := m.clone()
	next.pks[table] = column
	if dropRefs {
		next.edges = slices.DeleteFunc(next.edges, func(e edge) bool { return e.parent == table })
	}
	next.derive()
	return next, nil
}

// RemovePK drops the primary key of table. If foreign keys reference it the
// call fails with ErrReferencedByForeignKeys, unless rmReferencingFKs is set,
// in which case they are removed in the same model version. A table without
// a primary key is returned unchanged.
func (m *Model) RemovePK(table string, rmReferencingFKs bool) (*Model, error) {
	const op = "remove primary key"

	if _, ok := m.index[table]; !ok {
		return nil, unknownTable(op, table)
	}
	pk, ok := m.pks[table]
	if !ok {
		return m, nil
	}
	if m.isReferenced(table) && !rmReferencingFKs {
		return nil, &KeyError{Op: op, Kind: ErrReferencedByForeignKeys, Table: table, Column: pk, Related: m.ReferencingTables(table)}
	}

	next := m.clone()
	delete(next.pks, table)
	next.edges = slices.DeleteFunc(next.edges, func(e edge) bool { return e.parent == table })
	next.derive()
	return next, nil
}

// AddFK declares child.column as a foreign key to the primary key of parent.
// The parent must have a primary key whether or not opt.Check is set.
// Declaring an existing foreign key again is a no-op.
func (m *Model) AddFK(ctx context.Context, child, column, parent string, opt FKOptions) (*Model, error) {
	const op = "add foreign key"

	ct, ok := m.table(child)
	if !ok {
		return nil, unknownTable(op, child)
	}
	pt, ok := m.table(parent)
	if !ok {
		return nil, unknownTable(op, parent)
	}
	if !ct.HasColumn(column) {
		return nil, unknownColumn(op, child, column)
	}
	pk, ok := m.pks[parent]
	if !ok {
		return nil, &KeyError{Op: op, Kind: ErrParentHasNoPrimaryKey, Table: parent, Related: []string{child}}
	}

	e := edge{child: child, column: column, parent: parent}
	if slices.Contains(m.edges, e) {
		return m, nil
	}

	if opt.Check {
		if ct.Relation == nil {
			return nil, storageFailure(op, child, storage.ErrNoRelation)
		}
		if pt.Relation == nil {
			return nil, storageFailure(op, parent, storage.ErrNoRelation)
		}
		res, err := storage.CheckIncluded(ctx, ct.Relation, column, pt.Relation, pk)
		if err != nil {
			return nil, storageFailure(op, child, err)
		}
		if !res.Included {
			return nil, &KeyError{Op: op, Kind: ErrForeignKeyViolation, Table: child, Column: column, Related: []string{parent}, Sample: res.Missing}
		}
	}

	next := m.clone()
	next.edges = append(next.edges, e)
	next.derive()
	return next, nil
}

// RemoveFK removes the foreign key child.column -> parent. A column of ""
// or AnyColumn removes every foreign key from child to parent. Removing a
// foreign key that does not exist returns the receiver unchanged.
func (m *Model) RemoveFK(child, column, parent string) *Model {
	match := func(e edge) bool {
		return e.child == child && e.parent == parent && (column == "" || column == AnyColumn || e.column == column)
	}
	if !slices.ContainsFunc(m.edges, match) {
		return m
	}

	next := m.clone()
	next.edges = slices.DeleteFunc(next.edges, match)
	next.derive()
	return next
}

// HasFK reports whether child has at least one foreign key to parent.
func (m *Model) HasFK(child, parent string) bool {
	for _, i := range m.outgoing[child] {
		if m.edges[i].parent == parent {
			return true
		}
	}
	return false
}

// GetFK returns the child columns of the foreign keys from child to parent,
// in child column order.
func (m *Model) GetFK(child, parent string) []string {
	var cols []string
	for _, fk := range m.ForeignKeysFrom(child) {
		if fk.ParentTable == parent {
			cols = append(cols, fk.ChildColumn)
		}
	}
	return cols
}

func (m *Model) isReferenced(table string) bool {
	return len(m.incoming[table]) > 0
}
