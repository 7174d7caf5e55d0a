// Package check runs uniqueness and inclusion checks against table data:
// key candidate enumeration and the constraint report of a whole model.
package check

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/tordrt/keygraph/internal/model"
	"github.com/tordrt/keygraph/internal/storage"
)

// Candidate is one column judged as a key candidate.
type Candidate struct {
	Column    string
	Candidate bool
	// Why explains a rejection. It is empty for candidates.
	Why string
}

func sortCandidates(cs []Candidate) {
	slices.SortStableFunc(cs, func(a, b Candidate) int {
		if a.Candidate != b.Candidate {
			if a.Candidate {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Column, b.Column)
	})
}

// PKCandidates tests every column of rel for uniqueness. Candidates come
// first, each group sorted by column name.
func PKCandidates(ctx context.Context, rel storage.Relation) ([]Candidate, error) {
	cols, err := storage.ColumnsOf(ctx, rel)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(cols))
	for _, c := range cols {
		res, err := storage.CheckUnique(ctx, rel, c)
		if err != nil {
			return nil, err
		}
		cand := Candidate{Column: c, Candidate: res.Unique}
		if !res.Unique {
			cand.Why = "has duplicate values: " + storage.FormatSample(res.Duplicates)
		}
		out = append(out, cand)
	}
	sortCandidates(out)
	return out, nil
}

// FKCandidates tests every column of child for inclusion in the primary key
// of parent. Ordering follows PKCandidates. A column whose check fails is
// reported as rejected with the failure as reason; only cancellation of ctx
// aborts the search.
func FKCandidates(ctx context.Context, m *model.Model, child, parent string) ([]Candidate, error) {
	const op = "foreign key candidates"

	ct, ok := m.Table(child)
	if !ok {
		return nil, &model.KeyError{Op: op, Kind: model.ErrUnknownTable, Table: child}
	}
	pt, ok := m.Table(parent)
	if !ok {
		return nil, &model.KeyError{Op: op, Kind: model.ErrUnknownTable, Table: parent}
	}
	pk, ok := m.PK(parent)
	if !ok {
		return nil, &model.KeyError{Op: op, Kind: model.ErrParentHasNoPrimaryKey, Table: parent, Related: []string{child}}
	}
	if ct.Relation == nil || pt.Relation == nil {
		return nil, &model.KeyError{Op: op, Table: child, Err: storage.ErrNoRelation}
	}

	out := make([]Candidate, 0, len(ct.Columns))
	for _, c := range ct.Columns {
		res, err := storage.CheckIncluded(ctx, ct.Relation, c, pt.Relation, pk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &model.KeyError{Op: op, Table: child, Column: c, Err: err}
			}
			// SQL backends refuse to compare some column types with the key.
			out = append(out, Candidate{Column: c, Why: "not comparable: " + err.Error()})
			continue
		}
		cand := Candidate{Column: c, Candidate: res.Included}
		if !res.Included {
			cand.Why = fmt.Sprintf("values missing from %s.%s: %s", parent, pk, storage.FormatSample(res.Missing))
		}
		out = append(out, cand)
	}
	sortCandidates(out)
	return out, nil
}
