package model

import "fmt"

// Direction selects which way Flatten follows foreign keys.
type Direction int

const (
	// TowardParents follows foreign keys from child to parent.
	TowardParents Direction = iota
	// TowardChildren follows foreign keys from parent to child.
	TowardChildren
)

func (d Direction) String() string {
	if d == TowardChildren {
		return "children"
	}
	return "parents"
}

// ParseDirection parses "parents" or "children".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "parents", "parent", "up":
		return TowardParents, nil
	case "children", "child", "down":
		return TowardChildren, nil
	}
	return 0, fmt.Errorf("invalid direction %q (must be parents or children)", s)
}

// JoinStep joins Other onto the plan via Table.Column = Other.OtherColumn.
type JoinStep struct {
	Table       string
	Column      string
	Other       string
	OtherColumn string
	// Depth is the number of foreign keys between the start table and Other.
	Depth int
}

// JoinPlan is the result of Flatten.
type JoinPlan struct {
	Start     string
	Direction Direction
	Steps     []JoinStep
	// Skipped lists the joins dropped under CycleFirstDeclared because their
	// target was already part of the plan.
	Skipped []JoinStep
}

// Tables returns the start table followed by every joined table.
func (p JoinPlan) Tables() []string {
	out := make([]string, 0, len(p.Steps)+1)
	out = append(out, p.Start)
	for _, s := range p.Steps {
		out = append(out, s.Other)
	}
	return out
}

// Flatten computes the join plan over every table reachable from start in
// direction dir. Tables are visited breadth first; the foreign keys of each
// table are taken in the order they were declared. Reaching a table that is already
// part of the plan, the start table included, is an ambiguity: it fails with
// ErrCycleAmbiguity under CycleReject and is recorded in Skipped under
// CycleFirstDeclared.
func (m *Model) Flatten(start string, dir Direction) (JoinPlan, error) {
	const op = "flatten"

	if _, ok := m.index[start]; !ok {
		return JoinPlan{}, unknownTable(op, start)
	}

	plan := JoinPlan{Start: start, Direction: dir}
	visited := map[string]bool{start: true}
	type item struct {
		table string
		depth int
	}
	queue := []item{{start, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, step := range m.stepsFrom(cur.table, dir) {
			step.Depth = cur.depth + 1
			if visited[step.Other] {
				if m.opts.Cycles == CycleReject {
					return JoinPlan{}, &KeyError{
						Op:      op,
						Kind:    ErrCycleAmbiguity,
						Table:   step.Other,
						Column:  step.OtherColumn,
						Related: []string{step.Table},
					}
				}
				plan.Skipped = append(plan.Skipped, step)
				continue
			}
			visited[step.Other] = true
			plan.Steps = append(plan.Steps, step)
			queue = append(queue, item{step.Other, step.Depth})
		}
	}
	return plan, nil
}

// stepsFrom lists the joins leaving table in declaration order of the
// foreign keys.
func (m *Model) stepsFrom(table string, dir Direction) []JoinStep {
	var steps []JoinStep
	if dir == TowardParents {
		for _, i := range m.outgoing[table] {
			fk := m.foreignKey(m.edges[i])
			steps = append(steps, JoinStep{
				Table:       table,
				Column:      fk.ChildColumn,
				Other:       fk.ParentTable,
				OtherColumn: fk.ParentColumn,
			})
		}
		return steps
	}
	for _, i := range m.incoming[table] {
		fk := m.foreignKey(m.edges[i])
		steps = append(steps, JoinStep{
			Table:       table,
			Column:      fk.ParentColumn,
			Other:       fk.ChildTable,
			OtherColumn: fk.ChildColumn,
		})
	}
	return steps
}

// Reachable returns the tables reachable from start in direction dir, in
// breadth-first order, start excluded. Unlike Flatten it never fails on
// multiple paths.
func (m *Model) Reachable(start string, dir Direction) []string {
	visited := map[string]bool{start: true}
	queue := []string{start}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, step := range m.stepsFrom(cur, dir) {
			if visited[step.Other] {
				continue
			}
			visited[step.Other] = true
			out = append(out, step.Other)
			queue = append(queue, step.Other)
		}
	}
	return out
}
