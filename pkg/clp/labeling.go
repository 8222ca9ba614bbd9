package clp

// labeling.go: goals that enumerate values of IntExp variables.

import "fmt"

type instantiateGoal struct {
	x *IntExp
}

// Instantiate returns a goal that fixes x, trying its values in ascending
// order. Each step offers "x = min" or "x != min, continue".
func Instantiate(x *IntExp) Goal {
	return instantiateGoal{x: x}
}

func (g instantiateGoal) Execute(m *Manager) error {
	x := g.x
	if x.IsBound() {
		return nil
	}
	if x.IsEmpty() {
		return Inconsistentf("%s: empty domain", x.name)
	}
	v := x.Min()
	m.push(Or(
		setValueGoal{x: x, v: v},
		And(removeValueGoal{x: x, v: v}, g),
	))
	return nil
}

func (g instantiateGoal) String() string { return "Instantiate(" + g.x.name + ")" }

type setValueGoal struct {
	x *IntExp
	v int
}

func (g setValueGoal) Execute(*Manager) error { return g.x.SetValue(g.v) }

func (g setValueGoal) String() string { return fmt.Sprintf("%s = %d", g.x.name, g.v) }

type removeValueGoal struct {
	x *IntExp
	v int
}

func (g removeValueGoal) Execute(*Manager) error { return g.x.Remove(g.v) }

func (g removeValueGoal) String() string { return fmt.Sprintf("%s != %d", g.x.name, g.v) }

// InstantiateAll fixes every variable in xs, in order.
func InstantiateAll(xs ...*IntExp) Goal {
	return GoalFunc(func(m *Manager) error {
		for i := len(xs) - 1; i >= 0; i-- {
			m.push(Instantiate(xs[i]))
		}
		return nil
	})
}

type splitGoal struct {
	x *IntExp
}

// SplitDomain returns a goal that fixes x by bisection: the lower half of the
// domain is tried first, then the upper half.
func SplitDomain(x *IntExp) Goal {
	return splitGoal{x: x}
}

func (g splitGoal) Execute(m *Manager) error {
	x := g.x
	if x.IsBound() {
		return nil
	}
	if x.IsEmpty() {
		return Inconsistentf("%s: empty domain", x.name)
	}
	lo, hi := x.Min(), x.Max()
	mid := lo + (hi-lo)/2
	m.push(Or(
		And(GoalFunc(func(*Manager) error { return x.SetMax(mid) }), g),
		And(GoalFunc(func(*Manager) error { return x.SetMin(mid + 1) }), g),
	))
	return nil
}

func (g splitGoal) String() string { return "SplitDomain(" + g.x.name + ")" }
