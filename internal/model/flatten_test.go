package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/keygraph/internal/schema"
)

// flights mirrors the classic nycflights layout, where flights references
// airports twice (origin and dest).
func flights(t *testing.T, opts ...Option) *Model {
	t.Helper()
	snap := &schema.Snapshot{
		Tables: []schema.Table{
			{Name: "flights", Columns: []string{"year", "carrier", "tailnum", "origin", "dest"}},
			{Name: "airlines", Columns: []string{"carrier", "name"}},
			{Name: "airports", Columns: []string{"faa", "name"}},
			{Name: "planes", Columns: []string{"tailnum", "model"}},
		},
		PrimaryKeys: []schema.PrimaryKey{
			{Table: "airlines", Column: "carrier"},
			{Table: "airports", Column: "faa"},
			{Table: "planes", Column: "tailnum"},
		},
		ForeignKeys: []schema.ForeignKey{
			{ChildTable: "flights", ChildColumn: "dest", ParentTable: "airports"},
			{ChildTable: "flights", ChildColumn: "carrier", ParentTable: "airlines"},
			{ChildTable: "flights", ChildColumn: "origin", ParentTable: "airports"},
			{ChildTable: "flights", ChildColumn: "tailnum", ParentTable: "planes"},
		},
	}
	m, err := FromSnapshot(snap, nil, opts...)
	require.NoError(t, err)
	return m
}

func chain(t *testing.T) *Model {
	t.Helper()
	snap := &schema.Snapshot{
		Tables: []schema.Table{
			{Name: "a", Columns: []string{"id"}},
			{Name: "b", Columns: []string{"id", "a_id"}},
			{Name: "c", Columns: []string{"id", "b_id"}},
		},
		PrimaryKeys: []schema.PrimaryKey{{Table: "a", Column: "id"}, {Table: "b", Column: "id"}, {Table: "c", Column: "id"}},
		ForeignKeys: []schema.ForeignKey{
			{ChildTable: "b", ChildColumn: "a_id", ParentTable: "a"},
			{ChildTable: "c", ChildColumn: "b_id", ParentTable: "b"},
		},
	}
	m, err := FromSnapshot(snap, nil)
	require.NoError(t, err)
	return m
}

func TestFlattenChain(t *testing.T) {
	m := chain(t)

	up, err := m.Flatten("c", TowardParents)
	require.NoError(t, err)
	assert.Equal(t, []JoinStep{
		{Table: "c", Column: "b_id", Other: "b", OtherColumn: "id", Depth: 1},
		{Table: "b", Column: "a_id", Other: "a", OtherColumn: "id", Depth: 2},
	}, up.Steps)
	assert.Equal(t, []string{"c", "b", "a"}, up.Tables())

	down, err := m.Flatten("a", TowardChildren)
	require.NoError(t, err)
	assert.Equal(t, []JoinStep{
		{Table: "a", Column: "id", Other: "b", OtherColumn: "a_id", Depth: 1},
		{Table: "b", Column: "id", Other: "c", OtherColumn: "b_id", Depth: 2},
	}, down.Steps)

	leaf, err := m.Flatten("a", TowardParents)
	require.NoError(t, err)
	assert.Empty(t, leaf.Steps)

	_, err = m.Flatten("nope", TowardParents)
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestFlattenRejectsParallelPaths(t *testing.T) {
	m := flights(t)

	_, err := m.Flatten("flights", TowardParents)
	require.ErrorIs(t, err, ErrCycleAmbiguity)
	var ke *KeyError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "airports", ke.Table)
	assert.Equal(t, []string{"flights"}, ke.Related)

	_, err = m.Flatten("airports", TowardChildren)
	assert.ErrorIs(t, err, ErrCycleAmbiguity)

	// a table with a single path is unaffected
	plan, err := m.Flatten("planes", TowardChildren)
	require.NoError(t, err)
	assert.Equal(t, []string{"planes", "flights"}, plan.Tables())
}

func TestFlattenFirstDeclared(t *testing.T) {
	m := flights(t, WithCycles(CycleFirstDeclared))

	plan, err := m.Flatten("flights", TowardParents)
	require.NoError(t, err)
	// dest is declared before origin, so it wins the path to airports
	assert.Equal(t, []JoinStep{
		{Table: "flights", Column: "dest", Other: "airports", OtherColumn: "faa", Depth: 1},
		{Table: "flights", Column: "carrier", Other: "airlines", OtherColumn: "carrier", Depth: 1},
		{Table: "flights", Column: "tailnum", Other: "planes", OtherColumn: "tailnum", Depth: 1},
	}, plan.Steps)
	assert.Equal(t, []JoinStep{
		{Table: "flights", Column: "origin", Other: "airports", OtherColumn: "faa", Depth: 1},
	}, plan.Skipped)

	down, err := m.Flatten("airports", TowardChildren)
	require.NoError(t, err)
	assert.Equal(t, "dest", down.Steps[0].OtherColumn)
	assert.Equal(t, "origin", down.Skipped[0].OtherColumn)
}

func TestFlattenFirstDeclaredSurvivesSnapshot(t *testing.T) {
	m := flights(t, WithCycles(CycleFirstDeclared))
	again, err := FromSnapshot(m.Snapshot(), nil, WithCycles(CycleFirstDeclared))
	require.NoError(t, err)

	want, err := m.Flatten("flights", TowardParents)
	require.NoError(t, err)
	got, err := again.Flatten("flights", TowardParents)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFlattenSelfReference(t *testing.T) {
	snap := &schema.Snapshot{
		Tables:      []schema.Table{{Name: "employees", Columns: []string{"id", "manager_id"}}},
		PrimaryKeys: []schema.PrimaryKey{{Table: "employees", Column: "id"}},
		ForeignKeys: []schema.ForeignKey{{ChildTable: "employees", ChildColumn: "manager_id", ParentTable: "employees"}},
	}

	m, err := FromSnapshot(snap, nil)
	require.NoError(t, err)
	_, err = m.Flatten("employees", TowardParents)
	assert.ErrorIs(t, err, ErrCycleAmbiguity)

	m, err = FromSnapshot(snap, nil, WithCycles(CycleFirstDeclared))
	require.NoError(t, err)
	plan, err := m.Flatten("employees", TowardParents)
	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
	assert.Len(t, plan.Skipped, 1)
}

func TestReachable(t *testing.T) {
	m := flights(t)
	assert.Equal(t, []string{"airports", "airlines", "planes"}, m.Reachable("flights", TowardParents))
	assert.Equal(t, []string{"flights"}, m.Reachable("airports", TowardChildren))
	assert.Empty(t, m.Reachable("airlines", TowardParents))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("children")
	require.NoError(t, err)
	assert.Equal(t, TowardChildren, d)
	assert.Equal(t, "children", d.String())
	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := flights(t)
	snap := m.Snapshot()

	assert.Equal(t, []schema.ForeignKey{
		{ChildTable: "flights", ChildColumn: "dest", ParentTable: "airports"},
		{ChildTable: "flights", ChildColumn: "carrier", ParentTable: "airlines"},
		{ChildTable: "flights", ChildColumn: "origin", ParentTable: "airports"},
		{ChildTable: "flights", ChildColumn: "tailnum", ParentTable: "planes"},
	}, snap.ForeignKeys)

	again, err := FromSnapshot(snap, nil)
	require.NoError(t, err)
	assert.Equal(t, m.AllFKs(), again.AllFKs())
	assert.Equal(t, m.AllPKs(), again.AllPKs())
	assert.Equal(t, m.TableNames(), again.TableNames())
}

func TestFromSnapshotRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		snap *schema.Snapshot
		want error
	}{
		{
			name: "duplicate table",
			snap: &schema.Snapshot{Tables: []schema.Table{{Name: "a"}, {Name: "a"}}},
			want: ErrNameConflict,
		},
		{
			name: "pk on unknown column",
			snap: &schema.Snapshot{
				Tables:      []schema.Table{{Name: "a", Columns: []string{"id"}}},
				PrimaryKeys: []schema.PrimaryKey{{Table: "a", Column: "x"}},
			},
			want: ErrUnknownColumn,
		},
		{
			name: "fk to table without pk",
			snap: &schema.Snapshot{
				Tables:      []schema.Table{{Name: "a", Columns: []string{"id"}}, {Name: "b", Columns: []string{"a_id"}}},
				ForeignKeys: []schema.ForeignKey{{ChildTable: "b", ChildColumn: "a_id", ParentTable: "a"}},
			},
			want: ErrParentHasNoPrimaryKey,
		},
		{
			name: "two primary keys on one table",
			snap: &schema.Snapshot{
				Tables: []schema.Table{{Name: "a", Columns: []string{"id", "code"}}, {Name: "b", Columns: []string{"a_id"}}},
				PrimaryKeys: []schema.PrimaryKey{
					{Table: "a", Column: "id"},
					{Table: "a", Column: "code"},
				},
				ForeignKeys: []schema.ForeignKey{{ChildTable: "b", ChildColumn: "a_id", ParentTable: "a"}},
			},
			want: ErrKeyAlreadySet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromSnapshot(tt.snap, nil, WithNameConflict(NameConflictMakeUnique))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
