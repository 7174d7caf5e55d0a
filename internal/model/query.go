package model

import (
	"cmp"
	"slices"
)

func (m *Model) foreignKey(e edge) ForeignKey {
	return ForeignKey{
		ChildTable:   e.child,
		ChildColumn:  e.column,
		ParentTable:  e.parent,
		ParentColumn: m.pks[e.parent],
	}
}

// fkOrder sorts foreign keys by child table insertion order, then by the
// position of the child column in the child table, then by parent table
// insertion order.
func (m *Model) fkOrder(a, b ForeignKey) int {
	if c := cmp.Compare(m.index[a.ChildTable], m.index[b.ChildTable]); c != 0 {
		return c
	}
	child := m.tables[m.index[a.ChildTable]]
	if c := cmp.Compare(child.columnPos(a.ChildColumn), child.columnPos(b.ChildColumn)); c != 0 {
		return c
	}
	return cmp.Compare(m.index[a.ParentTable], m.index[b.ParentTable])
}

func (m *Model) collect(idx []int) []ForeignKey {
	out := make([]ForeignKey, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.foreignKey(m.edges[i]))
	}
	slices.SortStableFunc(out, m.fkOrder)
	return out
}

// ForeignKeysFrom returns the foreign keys declared on child.
func (m *Model) ForeignKeysFrom(child string) []ForeignKey {
	return m.collect(m.outgoing[child])
}

// ForeignKeysTo returns the foreign keys that reference parent.
func (m *Model) ForeignKeysTo(parent string) []ForeignKey {
	return m.collect(m.incoming[parent])
}

// ReferencingTables returns the tables with a foreign key to table, in
// insertion order.
func (m *Model) ReferencingTables(table string) []string {
	seen := make(map[string]bool)
	for _, i := range m.incoming[table] {
		seen[m.edges[i].child] = true
	}
	out := make([]string, 0, len(seen))
	for _, t := range m.tables {
		if seen[t.Name] {
			out = append(out, t.Name)
		}
	}
	return out
}

// IsReferenced reports whether any foreign key points at table.
func (m *Model) IsReferenced(table string) bool {
	return m.isReferenced(table)
}

// AllPKs returns every primary key in table insertion order.
func (m *Model) AllPKs() []PrimaryKey {
	var out []PrimaryKey
	for _, t := range m.tables {
		if pk, ok := m.pks[t.Name]; ok {
			out = append(out, PrimaryKey{Table: t.Name, Column: pk})
		}
	}
	return out
}

// AllFKs returns every foreign key ordered by child table insertion order,
// then child column.
func (m *Model) AllFKs() []ForeignKey {
	idx := make([]int, len(m.edges))
	for i := range idx {
		idx[i] = i
	}
	return m.collect(idx)
}

// HasCycle reports whether the foreign keys form a directed cycle, a
// self-referencing table included.
func (m *Model) HasCycle() bool {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(m.tables))

	var visit func(string) bool
	visit = func(t string) bool {
		state[t] = active
		for _, i := range m.outgoing[t] {
			p := m.edges[i].parent
			switch state[p] {
			case active:
				return true
			case unvisited:
				if visit(p) {
					return true
				}
			}
		}
		state[t] = done
		return false
	}

	for _, t := range m.tables {
		if state[t.Name] == unvisited && visit(t.Name) {
			return true
		}
	}
	return false
}
