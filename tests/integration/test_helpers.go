//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/keygraph/internal/check"
	"github.com/tordrt/keygraph/internal/db"
	"github.com/tordrt/keygraph/internal/model"
	"github.com/tordrt/keygraph/internal/schema"
)

var fixtureTables = []string{"kg_users", "kg_orders", "kg_events"}

// fixture holds statements valid in both PostgreSQL and MySQL. kg_events
// references users without a constraint and holds one dangling user id.
var fixture = []string{
	`DROP TABLE IF EXISTS kg_events, kg_orders, kg_users`,
	`CREATE TABLE kg_users (id INTEGER PRIMARY KEY, email VARCHAR(100))`,
	`CREATE TABLE kg_orders (
		id INTEGER PRIMARY KEY,
		user_id INTEGER,
		CONSTRAINT kg_orders_user_fk FOREIGN KEY (user_id) REFERENCES kg_users(id)
	)`,
	`CREATE TABLE kg_events (id INTEGER PRIMARY KEY, user_id INTEGER, kind VARCHAR(20))`,
	`INSERT INTO kg_users VALUES (1, 'a@example.com'), (2, 'b@example.com'), (3, NULL)`,
	`INSERT INTO kg_orders VALUES (10, 1), (11, 1), (12, NULL)`,
	`INSERT INTO kg_events VALUES (1, 1, 'login'), (2, 99, 'login'), (3, 2, 'logout')`,
}

// setupFixture runs the fixture statements through exec.
func setupFixture(t *testing.T, exec func(ctx context.Context, stmt string) error) {
	t.Helper()
	for _, stmt := range fixture {
		require.NoError(t, exec(context.Background(), stmt), stmt)
	}
}

// verifySource runs extraction, checks and candidate searches against the
// fixture tables of src.
func verifySource(t *testing.T, src *db.Source) {
	t.Helper()
	ctx := context.Background()

	ex := db.NewExtractor(src)
	snap, err := ex.ExtractSnapshot(ctx, fixtureTables)
	require.NoError(t, err)

	verifyColumns(t, snap, "kg_events", []string{"id", "user_id", "kind"})
	assert.ElementsMatch(t, []schema.PrimaryKey{
		{Table: "kg_users", Column: "id"},
		{Table: "kg_orders", Column: "id"},
		{Table: "kg_events", Column: "id"},
	}, snap.PrimaryKeys)
	assert.Equal(t, []schema.ForeignKey{
		{ChildTable: "kg_orders", ChildColumn: "user_id", ParentTable: "kg_users"},
	}, snap.ForeignKeys)

	m, err := model.FromSnapshot(snap, ex.Relations(snap))
	require.NoError(t, err)

	report := check.Examine(ctx, m, check.ExamineOptions{Concurrency: 4, RowCounts: true})
	for _, res := range report.Results {
		assert.True(t, res.Passed, "%s %s.%s: %s", res.Kind, res.Table, res.Column, res.Problem())
	}

	_, err = m.AddFK(ctx, "kg_events", "user_id", "kg_users", model.FKOptions{Check: true})
	require.ErrorIs(t, err, model.ErrForeignKeyViolation)
	var kerr *model.KeyError
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, []any{int64(99)}, kerr.Sample)

	pkCands, err := check.PKCandidates(ctx, src.Relation("kg_events"))
	require.NoError(t, err)
	assert.Equal(t, []check.Candidate{
		{Column: "id", Candidate: true},
		{Column: "user_id", Candidate: true},
		{Column: "kind", Why: `has duplicate values: "login"`},
	}, pkCands)
}

// verifyColumns checks the column names of a table in order
func verifyColumns(t *testing.T, s *schema.Snapshot, tableName string, expectedColumns []string) {
	t.Helper()

	table := s.FindTable(tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}
	assert.Equal(t, expectedColumns, table.Columns)
}
