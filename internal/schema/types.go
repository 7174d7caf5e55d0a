package schema

// Snapshot is the serialisable form of a key graph. It carries table
// structure and declared keys only, never table data.
type Snapshot struct {
	Tables      []Table      `json:"tables" yaml:"tables" msgpack:"tables"`
	PrimaryKeys []PrimaryKey `json:"pks" yaml:"pks" msgpack:"pks"`
	ForeignKeys []ForeignKey `json:"fks" yaml:"fks" msgpack:"fks"`
}

// Table represents a database table
type Table struct {
	Name    string   `json:"name" yaml:"name" msgpack:"name"`
	Columns []string `json:"columns" yaml:"columns" msgpack:"columns"`
	// Types is parallel to Columns when the source knows column types.
	Types []string `json:"types,omitempty" yaml:"types,omitempty" msgpack:"types,omitempty"`
}

// PrimaryKey represents a single-column primary key
type PrimaryKey struct {
	Table  string `json:"table" yaml:"table" msgpack:"table"`
	Column string `json:"column" yaml:"column" msgpack:"column"`
}

// ForeignKey represents a foreign key relationship. The referenced column is
// always the parent's primary key.
type ForeignKey struct {
	ChildTable  string `json:"child_table" yaml:"child_table" msgpack:"child_table"`
	ChildColumn string `json:"child_column" yaml:"child_column" msgpack:"child_column"`
	ParentTable string `json:"parent_table" yaml:"parent_table" msgpack:"parent_table"`
}

// FindTable returns the named table, or nil.
func (s *Snapshot) FindTable(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// FilterTables keeps only the tables for which keep returns true, dropping
// keys that mention removed tables.
func (s *Snapshot) FilterTables(keep func(name string) bool) {
	kept := make(map[string]bool, len(s.Tables))
	tables := make([]Table, 0, len(s.Tables))
	for _, t := range s.Tables {
		if keep(t.Name) {
			tables = append(tables, t)
			kept[t.Name] = true
		}
	}
	s.Tables = tables

	pks := s.PrimaryKeys[:0:0]
	for _, pk := range s.PrimaryKeys {
		if kept[pk.Table] {
			pks = append(pks, pk)
		}
	}
	s.PrimaryKeys = pks

	fks := s.ForeignKeys[:0:0]
	for _, fk := range s.ForeignKeys {
		if kept[fk.ChildTable] && kept[fk.ParentTable] {
			fks = append(fks, fk)
		}
	}
	s.ForeignKeys = fks
}
