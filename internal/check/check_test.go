package check

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/keygraph/internal/model"
	"github.com/tordrt/keygraph/internal/storage"
)

var ctx = context.Background()

func col(name string, vals ...any) storage.Column {
	return storage.Column{Name: name, Values: vals}
}

func bank(t *testing.T) *model.Model {
	t.Helper()
	accounts := storage.MustFrameOf(col("id", 1, 2, 3), col("name", "x", "y", "y"))
	loans := storage.MustFrameOf(col("id", 10, 11, 12), col("account_id", 1, 3, nil), col("branch", 2, 2, 9))

	m, err := model.New().AddTables(ctx,
		model.TableSpec{Name: "accounts", Relation: accounts},
		model.TableSpec{Name: "loans", Relation: loans},
	)
	require.NoError(t, err)
	m, err = m.AddPK(ctx, "accounts", "id", model.PKOptions{Check: true})
	require.NoError(t, err)
	m, err = m.AddPK(ctx, "loans", "id", model.PKOptions{Check: true})
	require.NoError(t, err)
	m, err = m.AddFK(ctx, "loans", "account_id", "accounts", model.FKOptions{Check: true})
	require.NoError(t, err)
	return m
}

func TestPKCandidates(t *testing.T) {
	rel := storage.MustFrameOf(col("zeta", 1, 2, 3), col("name", "a", "b", "b"), col("alpha", 3, 2, 1), col("dup", 1, 1, 2))

	got, err := PKCandidates(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, []Candidate{
		{Column: "alpha", Candidate: true},
		{Column: "zeta", Candidate: true},
		{Column: "dup", Why: "has duplicate values: 1"},
		{Column: "name", Why: `has duplicate values: "b"`},
	}, got)
}

func TestFKCandidates(t *testing.T) {
	m := bank(t)

	got, err := FKCandidates(ctx, m, "loans", "accounts")
	require.NoError(t, err)
	assert.Equal(t, []Candidate{
		{Column: "account_id", Candidate: true},
		{Column: "branch", Why: "values missing from accounts.id: 9"},
		{Column: "id", Why: "values missing from accounts.id: 10, 11, 12"},
	}, got)

	_, err = FKCandidates(ctx, m, "accounts", "nope")
	assert.ErrorIs(t, err, model.ErrUnknownTable)

	noPK, err := m.RemovePK("accounts", true)
	require.NoError(t, err)
	_, err = FKCandidates(ctx, noPK, "loans", "accounts")
	assert.ErrorIs(t, err, model.ErrParentHasNoPrimaryKey)
}

func TestExamineScenario(t *testing.T) {
	m := bank(t)

	r := Examine(ctx, m, ExamineOptions{RowCounts: true})
	require.Len(t, r.Results, 3)
	assert.True(t, r.Passed())
	assert.Empty(t, r.Failures())

	assert.Equal(t, PrimaryKey, r.Results[0].Kind)
	assert.Equal(t, "accounts", r.Results[0].Table)
	assert.Equal(t, PrimaryKey, r.Results[1].Kind)
	assert.Equal(t, "loans", r.Results[1].Table)
	assert.Equal(t, ForeignKey, r.Results[2].Kind)
	assert.Equal(t, "account_id", r.Results[2].Column)
	assert.Equal(t, "id", r.Results[2].ParentColumn)
	assert.EqualValues(t, 3, r.Results[2].Rows)

	_, err := m.RemovePK("accounts", false)
	assert.ErrorIs(t, err, model.ErrReferencedByForeignKeys)
}

func TestExamineCollectsFailures(t *testing.T) {
	accounts := storage.MustFrameOf(col("id", 1, 1, 2))
	loans := storage.MustFrameOf(col("id", 1), col("account_id", 7))

	m, err := model.New().AddTables(ctx,
		model.TableSpec{Name: "accounts", Relation: accounts},
		model.TableSpec{Name: "loans", Relation: loans},
	)
	require.NoError(t, err)
	// unchecked adds let invalid keys into the model
	m, err = m.AddPK(ctx, "accounts", "id", model.PKOptions{})
	require.NoError(t, err)
	m, err = m.AddFK(ctx, "loans", "account_id", "accounts", model.FKOptions{})
	require.NoError(t, err)

	r := Examine(ctx, m, ExamineOptions{Concurrency: 4})
	require.Len(t, r.Results, 2)
	assert.False(t, r.Passed())
	assert.Len(t, r.Failures(), 2)
	assert.Equal(t, []any{int64(1)}, r.Results[0].Sample)
	assert.Equal(t, "duplicate values: 1", r.Results[0].Problem())
	assert.Equal(t, []any{int64(7)}, r.Results[1].Sample)
	assert.Equal(t, "values missing from accounts.id: 7", r.Results[1].Problem())
}

type flaky struct {
	storage.Relation
	calls *atomic.Int32
}

func (f flaky) IsUnique(context.Context, string) (storage.Uniqueness, error) {
	f.calls.Add(1)
	return storage.Uniqueness{}, errors.New("timeout")
}

func TestExamineStorageErrorsAreData(t *testing.T) {
	var calls atomic.Int32
	rel := flaky{Relation: storage.MustFrameOf(col("id", 1)), calls: &calls}

	m, err := model.New().AddTables(ctx,
		model.TableSpec{Name: "a", Relation: rel},
		model.TableSpec{Name: "b", Columns: []string{"id"}},
	)
	require.NoError(t, err)
	m, err = m.AddPK(ctx, "a", "id", model.PKOptions{})
	require.NoError(t, err)
	m, err = m.AddPK(ctx, "b", "id", model.PKOptions{})
	require.NoError(t, err)

	r := Examine(ctx, m, ExamineOptions{Concurrency: 2})
	require.Len(t, r.Results, 2)
	assert.False(t, r.Results[0].Passed)
	var se *storage.StorageError
	assert.ErrorAs(t, r.Results[0].Err, &se)
	assert.ErrorIs(t, r.Results[1].Err, storage.ErrNoRelation)
	assert.EqualValues(t, 1, calls.Load())
}

func TestExamineEmptyModel(t *testing.T) {
	r := Examine(ctx, model.New(), ExamineOptions{})
	assert.Empty(t, r.Results)
	assert.True(t, r.Passed())
}

type picky struct {
	storage.Relation
	bad string
}

func (p picky) ValuesIncluded(ctx context.Context, column string, parent storage.Relation, parentColumn string) (storage.Inclusion, error) {
	if column == p.bad {
		return storage.Inclusion{}, errors.New("operator does not exist: text = integer")
	}
	return p.Relation.ValuesIncluded(ctx, column, parent, parentColumn)
}

func TestFKCandidatesIncomparableColumn(t *testing.T) {
	m, err := bank(t).AddTables(ctx, model.TableSpec{Name: "notes", Relation: picky{
		Relation: storage.MustFrameOf(col("account_id", 1, 2), col("memo", "x", "y")),
		bad:      "memo",
	}})
	require.NoError(t, err)

	got, err := FKCandidates(ctx, m, "notes", "accounts")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Candidate{Column: "account_id", Candidate: true}, got[0])
	assert.Equal(t, "memo", got[1].Column)
	assert.False(t, got[1].Candidate)
	assert.Contains(t, got[1].Why, "not comparable: ")

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = FKCandidates(canceled, m, "notes", "accounts")
	assert.Error(t, err)
}

func TestNoRelationSentinel(t *testing.T) {
	m, err := bank(t).AddTables(ctx, model.TableSpec{Name: "archive", Columns: []string{"id", "account_id"}})
	require.NoError(t, err)

	_, err = FKCandidates(ctx, m, "archive", "accounts")
	assert.ErrorIs(t, err, storage.ErrNoRelation)

	_, err = m.AddFK(ctx, "archive", "account_id", "accounts", model.FKOptions{Check: true})
	assert.ErrorIs(t, err, storage.ErrNoRelation)

	_, err = m.AddPK(ctx, "archive", "id", model.PKOptions{Check: true})
	assert.ErrorIs(t, err, storage.ErrNoRelation)
}
