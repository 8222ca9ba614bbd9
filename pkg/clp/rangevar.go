package clp

// rangevar.go: an integer interval variable made of two twin bounds, and the
// precedence constraint that links two of them.

import "fmt"

// RangeVar is a variable known only by its interval [Min, Max]. Its lower and
// upper bounds are ConstrainedBounds paired as twins, so crossing them fails.
type RangeVar struct {
	name string
	lb   *ConstrainedBound
	ub   *ConstrainedBound
}

// NewRangeVar creates a variable with initial interval [lo, hi].
func (m *Manager) NewRangeVar(name string, lo, hi int) *RangeVar {
	if lo > hi {
		panic(fmt.Sprintf("clp: range var %s: empty interval [%d, %d]", name, lo, hi))
	}
	v := &RangeVar{
		name: name,
		lb:   m.NewConstrainedBound(name, LowerBound, lo),
		ub:   m.NewConstrainedBound(name, UpperBound, hi),
	}
	v.lb.SetTwin(v.ub)
	v.ub.SetTwin(v.lb)
	return v
}

// Name returns the variable's name.
func (v *RangeVar) Name() string { return v.name }

// LB returns the lower bound.
func (v *RangeVar) LB() *ConstrainedBound { return v.lb }

// UB returns the upper bound.
func (v *RangeVar) UB() *ConstrainedBound { return v.ub }

// Min returns the current lower bound value.
func (v *RangeVar) Min() int { return v.lb.Get() }

// Max returns the current upper bound value.
func (v *RangeVar) Max() int { return v.ub.Get() }

// IsBound reports whether Min == Max.
func (v *RangeVar) IsBound() bool { return v.Min() == v.Max() }

// SetMin raises the lower bound.
func (v *RangeVar) SetMin(x int) error { return v.lb.SetLB(x) }

// SetMax lowers the upper bound.
func (v *RangeVar) SetMax(x int) error { return v.ub.SetUB(x) }

// SetValue fixes the variable to x.
func (v *RangeVar) SetValue(x int) error {
	if err := v.SetMin(x); err != nil {
		return err
	}
	return v.SetMax(x)
}

// Finalize finalizes both bounds.
func (v *RangeVar) Finalize() {
	v.lb.Finalize()
	v.ub.Finalize()
}

func (v *RangeVar) String() string {
	return fmt.Sprintf("%s[%d, %d]", v.name, v.Min(), v.Max())
}

// Precedence enforces Y >= X + Lag between two range variables. It adds the
// edge X.lb -> Y.lb for earliest values and Y.ub -> X.ub for latest values.
type Precedence struct {
	ConstraintState
	X, Y  *RangeVar
	Lag   int
	edges [2]*BoundCt
}

// NewPrecedence returns an unposted precedence constraint.
func NewPrecedence(x, y *RangeVar, lag int) *Precedence {
	return &Precedence{X: x, Y: y, Lag: lag}
}

// Execute posts the constraint on m.
func (c *Precedence) Execute(m *Manager) error { return m.AddConstraint(c) }

// Post adds both edges with cycle checking. Each edge is recorded as soon as
// it exists, so Unpost can detach the first when the second fails.
func (c *Precedence) Post(m *Manager) error {
	fwd, err := m.prop.AddBoundCt(c.X.lb, c.Y.lb, c.Lag, true)
	if err != nil {
		return err
	}
	RevSet(m, &c.edges[0], fwd)
	bwd, err := m.prop.AddBoundCt(c.Y.ub, c.X.ub, c.Lag, true)
	if err != nil {
		return err
	}
	RevSet(m, &c.edges[1], bwd)
	return nil
}

// Unpost detaches both edges.
func (c *Precedence) Unpost(m *Manager) {
	for _, e := range c.edges {
		if e != nil {
			m.prop.RemoveBoundCt(e)
		}
	}
	RevSet(m, &c.edges, [2]*BoundCt{})
}

// Clone returns an unposted copy.
func (c *Precedence) Clone() Constraint { return NewPrecedence(c.X, c.Y, c.Lag) }

func (c *Precedence) String() string {
	return fmt.Sprintf("%s >= %s + %d", c.Y.name, c.X.name, c.Lag)
}
