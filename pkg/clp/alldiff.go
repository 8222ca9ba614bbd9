package clp

// alldiff.go: pairwise difference over IntExp variables, with optional
// per-variable offsets.

import (
	"fmt"
	"strings"
)

// AllDifferent requires xs[i]+Offsets[i] to be pairwise distinct. Without
// offsets it is the plain all-different constraint. Pruning is by value
// elimination: when a variable becomes bound its shifted value is removed
// from every other variable.
type AllDifferent struct {
	ConstraintState
	xs      []*IntExp
	offsets []int
}

// NewAllDifferent returns an unposted all-different constraint.
func NewAllDifferent(xs ...*IntExp) *AllDifferent {
	return &AllDifferent{xs: xs, offsets: make([]int, len(xs))}
}

// NewAllDifferentOffset returns an unposted constraint over xs[i]+offsets[i].
func NewAllDifferentOffset(xs []*IntExp, offsets []int) *AllDifferent {
	if len(xs) != len(offsets) {
		panic(fmt.Sprintf("clp: AllDifferentOffset: %d variables, %d offsets", len(xs), len(offsets)))
	}
	return &AllDifferent{xs: xs, offsets: offsets}
}

// Execute posts the constraint on m.
func (c *AllDifferent) Execute(m *Manager) error { return m.AddConstraint(c) }

// Post prunes for variables that are already bound and watches the rest.
func (c *AllDifferent) Post(*Manager) error {
	for i, x := range c.xs {
		x.OnChange(func(x *IntExp, ev Event) error {
			if !c.Posted || !ev.Has(EventValue) {
				return nil
			}
			return c.eliminate(i)
		})
	}
	for i, x := range c.xs {
		if x.IsBound() {
			if err := c.eliminate(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// Unpost stops pruning. Listeners stay registered but become inert.
func (c *AllDifferent) Unpost(*Manager) {}

// Clone returns an unposted copy.
func (c *AllDifferent) Clone() Constraint {
	return &AllDifferent{xs: c.xs, offsets: c.offsets}
}

func (c *AllDifferent) eliminate(i int) error {
	if !c.xs[i].IsBound() {
		return nil
	}
	v := c.xs[i].Value() + c.offsets[i]
	for j, y := range c.xs {
		if j == i {
			continue
		}
		if err := y.Remove(v - c.offsets[j]); err != nil {
			return err
		}
	}
	return nil
}

func (c *AllDifferent) String() string {
	names := make([]string, len(c.xs))
	for i, x := range c.xs {
		if c.offsets[i] != 0 {
			names[i] = fmt.Sprintf("%s%+d", x.name, c.offsets[i])
		} else {
			names[i] = x.name
		}
	}
	return "AllDifferent(" + strings.Join(names, ", ") + ")"
}
