package clp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundCtForwardsLowerBoundMovement(t *testing.T) {
	m := NewManager()
	x := m.NewConstrainedBound("x", LowerBound, 0)
	y := m.NewConstrainedBound("y", LowerBound, 0)

	_, err := m.Propagator().AddBoundCt(x, y, 3, true)
	require.NoError(t, err)
	assert.Equal(t, 3, y.Get(), "dst tightened when the edge is added")

	require.NoError(t, x.SetLB(5))
	require.NoError(t, m.Propagate())
	assert.Equal(t, 8, y.Get())
	assert.Equal(t, 5, x.Last())
}

func TestBoundCtForwardsUpperBoundMovement(t *testing.T) {
	m := NewManager()
	x := m.NewConstrainedBound("x", UpperBound, 100)
	y := m.NewConstrainedBound("y", UpperBound, 100)

	e, err := m.Propagator().AddBoundCt(x, y, 3, true)
	require.NoError(t, err)
	assert.Equal(t, 97, y.Get())

	require.NoError(t, x.SetUB(50))
	require.NoError(t, m.Propagate())
	assert.Equal(t, 47, y.Get())
	assert.Equal(t, 47, e.Value())
}

func TestBoundCtFromLowerToUpperBound(t *testing.T) {
	m := NewManager()
	x := m.NewConstrainedBound("x", LowerBound, 0)
	y := m.NewConstrainedBound("y", UpperBound, 0)

	_, err := m.Propagator().AddBoundCt(x, y, 3, true)
	require.NoError(t, err)
	assert.Equal(t, 3, y.Get())

	require.NoError(t, x.SetLB(5))
	require.NoError(t, m.Propagate())
	assert.Equal(t, 8, y.Get())
}

func TestBoundSetMovesValue(t *testing.T) {
	tests := []struct {
		name   string
		kind   BoundKind
		init   int
		op     func(b *ConstrainedBound) error
		want   int
		queued bool
	}{
		{"lb raised", LowerBound, 5, func(b *ConstrainedBound) error { return b.SetLB(7) }, 7, true},
		{"lb not lowered by SetLB", LowerBound, 5, func(b *ConstrainedBound) error { return b.SetLB(3) }, 5, false},
		{"lb lowered by SetUB", LowerBound, 5, func(b *ConstrainedBound) error { return b.SetUB(4) }, 4, true},
		{"lb not raised by SetUB", LowerBound, 5, func(b *ConstrainedBound) error { return b.SetUB(6) }, 5, false},
		{"ub lowered", UpperBound, 5, func(b *ConstrainedBound) error { return b.SetUB(2) }, 2, true},
		{"ub not raised by SetUB", UpperBound, 5, func(b *ConstrainedBound) error { return b.SetUB(9) }, 5, false},
		{"ub raised by SetLB", UpperBound, 5, func(b *ConstrainedBound) error { return b.SetLB(6) }, 6, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			b := m.NewConstrainedBound("b", tt.kind, tt.init)
			require.NoError(t, tt.op(b))
			assert.Equal(t, tt.want, b.Get())
			assert.Equal(t, tt.queued, b.IsQueued())
		})
	}
}

func TestTwinBoundsCannotCross(t *testing.T) {
	m := NewManager()
	v := m.NewRangeVar("v", 0, 10)

	require.NoError(t, v.SetMin(4))
	require.NoError(t, v.SetMax(6))
	assert.True(t, IsInconsistent(v.SetMin(7)))
	assert.True(t, IsInconsistent(v.SetMax(3)))
	require.NoError(t, v.SetValue(5))
	assert.True(t, v.IsBound())
	assert.Equal(t, "v[5, 5]", v.String())
}

func TestBoundRestoredOnPopState(t *testing.T) {
	m := NewManager()
	x := m.NewConstrainedBound("x", LowerBound, 0)
	y := m.NewConstrainedBound("y", LowerBound, 0)
	_, err := m.Propagator().AddBoundCt(x, y, 2, true)
	require.NoError(t, err)

	m.PushState()
	require.NoError(t, x.SetLB(10))
	require.NoError(t, m.Propagate())
	require.NoError(t, x.SetLB(20))
	require.NoError(t, m.Propagate())
	assert.Equal(t, 22, y.Get())
	m.PopState()

	assert.Equal(t, 0, x.Get())
	assert.Equal(t, 0, x.Last())
	assert.Equal(t, 2, y.Get())

	// the edge keeps working from the restored state
	require.NoError(t, x.SetLB(1))
	require.NoError(t, m.Propagate())
	assert.Equal(t, 3, y.Get())
}

func TestBoundMonotoneWithFinder(t *testing.T) {
	m := NewManager()
	src := 5
	b := m.NewConstrainedBound("b", LowerBound, 0)
	b.SetFinder(FinderFunc(func() int { return src }))

	b.Invalidate()
	assert.Equal(t, 5, b.Get())
	prev := b.Get()
	for _, next := range []int{3, 8, 6, 8, 1, 12} {
		src = next
		b.Invalidate()
		got := b.Get()
		assert.GreaterOrEqual(t, got, prev, "Get never loosens")
		prev = got
	}
	assert.Equal(t, 12, prev)
}

func TestRemoveBoundCtUndone(t *testing.T) {
	m := NewManager()
	x := m.NewConstrainedBound("x", LowerBound, 0)
	y := m.NewConstrainedBound("y", LowerBound, 0)
	e, err := m.Propagator().AddBoundCt(x, y, 1, true)
	require.NoError(t, err)

	m.PushState()
	m.Propagator().RemoveBoundCt(e)
	assert.Empty(t, x.Edges())
	m.Propagator().RemoveBoundCt(e)
	m.PopState()

	require.Len(t, x.Edges(), 1)
	assert.Same(t, e, x.Edges()[0])
}

func TestPrecedenceChain(t *testing.T) {
	m := NewManager()
	a := m.NewRangeVar("a", 0, 100)
	b := m.NewRangeVar("b", 0, 100)
	c := m.NewRangeVar("c", 0, 100)
	require.NoError(t, m.AddConstraint(NewPrecedence(a, b, 10)))
	require.NoError(t, m.AddConstraint(NewPrecedence(b, c, 5)))

	assert.Equal(t, 10, b.Min())
	assert.Equal(t, 15, c.Min())
	assert.Equal(t, 85, a.Max())
	assert.Equal(t, 95, b.Max())

	m.PushState()
	require.NoError(t, a.SetMin(20))
	require.NoError(t, m.Propagate())
	assert.Equal(t, 35, c.Min())
	require.NoError(t, c.SetMax(50))
	require.NoError(t, m.Propagate())
	assert.Equal(t, 35, a.Max())
	m.PopState()

	assert.Equal(t, 15, c.Min())
	assert.Equal(t, 85, a.Max())
}

func TestPrecedenceInfeasible(t *testing.T) {
	m := NewManager()
	a := m.NewRangeVar("a", 0, 10)
	b := m.NewRangeVar("b", 0, 10)
	err := m.AddConstraint(NewPrecedence(a, b, 20))
	assert.True(t, IsInconsistent(err))
	assert.Equal(t, 0, m.Constraints(), "failed post outside search is retracted")
}

func TestPositiveCycleFails(t *testing.T) {
	m := NewManager()
	a := m.NewRangeVar("a", 0, 1000)
	b := m.NewRangeVar("b", 0, 1000)
	require.NoError(t, m.AddConstraint(NewPrecedence(a, b, 1)))
	err := m.AddConstraint(NewPrecedence(b, a, 1))
	assert.True(t, IsInconsistent(err))
}

func TestZeroCycleIsConsistent(t *testing.T) {
	m := NewManager()
	a := m.NewRangeVar("a", 0, 100)
	b := m.NewRangeVar("b", 0, 100)
	require.NoError(t, m.AddConstraint(NewPrecedence(a, b, 3)))
	require.NoError(t, m.AddConstraint(NewPrecedence(b, a, -3)))

	require.NoError(t, a.SetMin(10))
	require.NoError(t, m.Propagate())
	assert.Equal(t, 13, b.Min())
	assert.Same(t, a.LB().CycleGroup(), b.LB().CycleGroup())
}

func TestPropagationStepLimit(t *testing.T) {
	m := NewManager()
	vars := make([]*RangeVar, 6)
	for i := range vars {
		vars[i] = m.NewRangeVar(string(rune('a'+i)), 0, 100)
	}
	for i := 1; i < len(vars); i++ {
		require.NoError(t, m.AddConstraint(NewPrecedence(vars[i-1], vars[i], 1)))
	}
	m.prop.maxSteps = 3
	require.NoError(t, vars[0].SetMin(10))
	err := m.Propagate()
	assert.True(t, IsInconsistent(err))
	assert.Equal(t, 0, m.Propagator().QueueLen())
}

func TestClearPropQResetsPendingBounds(t *testing.T) {
	m := NewManager()
	bs := newLBs(m, "src", "a", "b", "c")
	for _, dst := range bs[1:] {
		link(t, m, bs[0], dst, 1)
	}
	require.NoError(t, m.Propagate())

	m.prop.maxSteps = 1
	require.NoError(t, bs[0].SetLB(10))
	err := m.Propagate()
	require.True(t, IsInconsistent(err))

	assert.Zero(t, m.Propagator().QueueLen())
	for _, b := range bs {
		assert.False(t, b.IsQueued(), b.Name())
	}
	assert.Equal(t, 11, bs[1].Get(), "the first step ran")

	m.prop.maxSteps = 0
	require.NoError(t, bs[1].SetLB(20))
	assert.True(t, bs[1].IsQueued(), "cleared bounds can queue again")
	assert.Equal(t, 1, m.Propagator().QueueLen())
	require.NoError(t, m.Propagate())
}

func TestPrecedenceRetractedOnBacktrack(t *testing.T) {
	m := NewManager()
	a := m.NewRangeVar("a", 0, 100)
	b := m.NewRangeVar("b", 0, 100)
	p := NewPrecedence(a, b, 7)

	var during int
	m.Add(Or(
		And(p, GoalFunc(func(m *Manager) error {
			during = b.Min()
			return Fail("").Execute(m)
		})),
		Succeed,
	))
	ok, err := m.NextSolution()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 7, during)
	assert.Equal(t, 0, b.Min())
	assert.Empty(t, a.LB().Edges())
	assert.Equal(t, 0, m.Constraints())
	assert.False(t, p.Posted, "template was cloned, never posted")
}

func TestTemplateClonedInEachBranch(t *testing.T) {
	m := NewManager()
	a := m.NewRangeVar("a", 0, 100)
	b := m.NewRangeVar("b", 0, 100)
	p := NewPrecedence(a, b, 7)

	var clones []Constraint
	grab := GoalFunc(func(m *Manager) error {
		for c := range m.constraints {
			clones = append(clones, c)
		}
		return nil
	})
	m.Add(Or(And(p, grab, Fail("")), And(p, grab)))
	ok, err := m.NextSolution()
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, clones, 2)
	first, second := clones[0], clones[1]
	assert.NotSame(t, p, first)
	assert.NotSame(t, p, second)
	assert.NotSame(t, first, second, "each branch posts a fresh copy")
	assert.False(t, p.State().Managed)
	assert.False(t, p.State().Posted)
	assert.False(t, m.IsPosted(first))
	assert.False(t, first.State().Posted, "the first copy was retracted")
	assert.True(t, m.IsPosted(second))
	assert.True(t, second.State().Managed)
	assert.Equal(t, 7, b.Min())
	assert.Len(t, a.LB().Edges(), 1)
}

func TestFailedPostDetachesFirstEdge(t *testing.T) {
	m := NewManager()
	a := m.NewRangeVar("a", 0, 10)
	p := NewPrecedence(a, a, 6)

	err := m.AddConstraint(p)
	require.True(t, IsInconsistent(err), "the second edge crosses a's bounds")
	assert.False(t, m.IsPosted(p))
	assert.Empty(t, a.LB().Edges())
	assert.Empty(t, a.UB().Edges())
}

func TestRemoveConstraint(t *testing.T) {
	m := NewManager()
	a := m.NewRangeVar("a", 0, 100)
	b := m.NewRangeVar("b", 0, 100)
	p := NewPrecedence(a, b, 7)
	require.NoError(t, m.AddConstraint(p))
	require.True(t, m.IsPosted(p))

	m.PushState()
	m.RemoveConstraint(p)
	assert.False(t, m.IsPosted(p))
	assert.Empty(t, a.LB().Edges())
	m.PopState()

	assert.True(t, m.IsPosted(p))
	assert.Len(t, a.LB().Edges(), 1)
}
