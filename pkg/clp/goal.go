package clp

// goal.go: units of search-tree work. A Goal is executed once when it reaches
// the top of the goal stack; And pushes its parts, Or offers alternatives that
// the Manager explores through choice points.

import (
	"fmt"
	"strings"
)

// Goal is a unit of search-tree work.
//
// Execute runs with the Manager that popped it. It may push further goals,
// mutate reversible state, or return an *Inconsistency to fail the current
// branch. Any other error aborts the search and is returned from
// NextSolution.
type Goal interface {
	Execute(m *Manager) error
}

// GoalFunc adapts an ordinary function to the Goal interface.
type GoalFunc func(m *Manager) error

// Execute calls f(m).
func (f GoalFunc) Execute(m *Manager) error { return f(m) }

// Disposer is implemented by reference-counted goals that need a hook when the
// last reference held by the goal stack or a choice-point snapshot goes away.
type Disposer interface {
	Dispose()
}

// GoalRef is an embeddable reference count for goals.
//
// The goal stack and every choice-point snapshot that holds a goal own one
// reference each. When the count returns to zero the goal's Dispose method,
// if it has one, is called. Goals that do not embed GoalRef are not counted.
type GoalRef struct {
	refs int
}

// Refs returns the number of live references.
func (r *GoalRef) Refs() int { return r.refs }

func (r *GoalRef) retainRef() { r.refs++ }

func (r *GoalRef) releaseRef() bool {
	r.refs--
	if r.refs < 0 {
		panic("clp: goal reference count below zero")
	}
	return r.refs == 0
}

type refCounted interface {
	retainRef()
	releaseRef() bool
}

func retainGoal(g Goal) {
	if rc, ok := g.(refCounted); ok {
		rc.retainRef()
	}
}

func releaseGoal(g Goal) {
	rc, ok := g.(refCounted)
	if !ok {
		return
	}
	if rc.releaseRef() {
		if d, ok := g.(Disposer); ok {
			d.Dispose()
		}
	}
}

// AndGoal runs its parts in declared order.
type AndGoal struct {
	GoalRef
	goals []Goal
}

// And returns a goal that runs goals left to right. At least two goals are
// required; fewer is a programming error and panics.
func And(goals ...Goal) *AndGoal {
	if len(goals) < 2 {
		panic(fmt.Sprintf("clp: And requires at least 2 goals, got %d", len(goals)))
	}
	return &AndGoal{goals: goals}
}

// And2 is And with two parts.
func And2(a, b Goal) *AndGoal { return And(a, b) }

// And3 is And with three parts.
func And3(a, b, c Goal) *AndGoal { return And(a, b, c) }

// And4 is And with four parts.
func And4(a, b, c, d Goal) *AndGoal { return And(a, b, c, d) }

// And5 is And with five parts.
func And5(a, b, c, d, e Goal) *AndGoal { return And(a, b, c, d, e) }

// Execute pushes the parts in reverse so the first one runs next.
func (g *AndGoal) Execute(m *Manager) error {
	for i := len(g.goals) - 1; i >= 0; i-- {
		m.push(g.goals[i])
	}
	return nil
}

// Len returns the number of parts.
func (g *AndGoal) Len() int { return len(g.goals) }

func (g *AndGoal) String() string {
	parts := make([]string, len(g.goals))
	for i, sub := range g.goals {
		parts[i] = goalName(sub)
	}
	return "And(" + strings.Join(parts, ", ") + ")"
}

// OrGoal offers exclusive alternatives, tried in index order.
//
// The Manager never calls Execute on an OrGoal; it binds a choice point to
// the goal instead and pushes one alternative per resumption.
type OrGoal struct {
	GoalRef
	alts  []Goal
	label string
}

// Or returns an unlabeled choice between alts.
func Or(alts ...Goal) *OrGoal {
	return &OrGoal{alts: alts}
}

// LabeledOr returns a choice whose choice point can be targeted by a failure
// carrying the same label.
func LabeledOr(label string, alts ...Goal) *OrGoal {
	return &OrGoal{alts: alts, label: label}
}

// IsLabeled reports whether the goal carries a label.
func (g *OrGoal) IsLabeled() bool { return g.label != "" }

// Label returns the goal's label, or "" if unlabeled.
func (g *OrGoal) Label() string { return g.label }

// Len returns the number of alternatives.
func (g *OrGoal) Len() int { return len(g.alts) }

// Alternative returns alternative i.
func (g *OrGoal) Alternative(i int) Goal { return g.alts[i] }

// Execute panics: Or goals are driven by the Manager's search loop.
func (g *OrGoal) Execute(*Manager) error {
	panic("clp: Or goal executed outside the search loop")
}

func (g *OrGoal) String() string {
	parts := make([]string, len(g.alts))
	for i, alt := range g.alts {
		parts[i] = goalName(alt)
	}
	if g.label != "" {
		return "Or[" + g.label + "](" + strings.Join(parts, " | ") + ")"
	}
	return "Or(" + strings.Join(parts, " | ") + ")"
}

type failGoal struct {
	label string
}

// Fail returns a goal that always fails. A non-empty label directs the
// failure to the nearest choice point created by an Or with that label.
func Fail(label string) Goal {
	return failGoal{label: label}
}

func (g failGoal) Execute(*Manager) error {
	return Inconsistent(g.label, "fail")
}

func (g failGoal) String() string {
	if g.label == "" {
		return "Fail"
	}
	return "Fail[" + g.label + "]"
}

type succeedGoal struct{}

// Succeed is a goal that does nothing.
var Succeed Goal = succeedGoal{}

func (succeedGoal) Execute(*Manager) error { return nil }

func (succeedGoal) String() string { return "Succeed" }

func goalName(g Goal) string {
	if s, ok := g.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", g)
}
