package clp

// constraint.go: goals with a post/unpost life cycle that the Manager tracks
// and retracts automatically when backtracking passes the point where they
// were posted.

// ConstraintState is the bookkeeping every Constraint carries. Embed it and
// the State method comes for free.
type ConstraintState struct {
	Posted    bool
	PostDepth int
	Managed   bool
}

// State returns the receiver; it satisfies the Constraint interface when
// ConstraintState is embedded.
func (s *ConstraintState) State() *ConstraintState { return s }

// Constraint is a Goal that installs itself into the constraint network.
//
// When a Constraint reaches the top of the goal stack the Manager does not
// call Execute; it posts a managed copy (see MClone) through AddConstraint.
// Post wires the constraint in and may fail with an *Inconsistency. Unpost
// removes it and must be idempotent: it also runs while the trail is being
// replayed, when the state it installed may already have been restored.
// Constraints are tracked by identity, so implementations must be pointer
// types.
type Constraint interface {
	Goal
	Post(m *Manager) error
	Unpost(m *Manager)
	State() *ConstraintState
}

// Cloner is implemented by constraints that can be used as templates. Clone
// returns a fresh, unposted copy.
type Cloner interface {
	Clone() Constraint
}

// MClone returns c itself if it is already managed, otherwise a managed copy
// when c implements Cloner. Constraints without Clone are adopted as is.
func MClone(c Constraint) Constraint {
	if c.State().Managed {
		return c
	}
	if cl, ok := c.(Cloner); ok {
		c = cl.Clone()
	}
	c.State().Managed = true
	return c
}

// AddConstraint posts c and propagates. A constraint that is already tracked
// is ignored. The addition is recorded on the trail first, so if Post or the
// following propagation fails the backtrack that follows unposts c again.
func (m *Manager) AddConstraint(c Constraint) error {
	if m.closed {
		return ErrClosed
	}
	if _, dup := m.constraints[c]; dup {
		return nil
	}
	st := c.State()
	m.constraints[c] = struct{}{}
	m.record(constraintEntry{m: m, c: c})
	st.Posted = true
	st.PostDepth = m.Depth()
	m.stats.Constraints++

	err := c.Post(m)
	if err == nil {
		err = m.Propagate()
	}
	if err != nil && len(m.cps) == 0 {
		m.retract(c)
	}
	return err
}

// RemoveConstraint unposts c and stops tracking it. Inside a search the
// removal is itself undone on backtrack.
func (m *Manager) RemoveConstraint(c Constraint) {
	if _, ok := m.constraints[c]; !ok {
		return
	}
	m.retract(c)
	m.RevAction(func() {
		m.constraints[c] = struct{}{}
		c.State().Posted = true
	})
}

// Constraints returns the number of tracked constraints.
func (m *Manager) Constraints() int { return len(m.constraints) }

// IsPosted reports whether c is currently tracked.
func (m *Manager) IsPosted(c Constraint) bool {
	_, ok := m.constraints[c]
	return ok
}

func (m *Manager) retract(c Constraint) {
	if _, ok := m.constraints[c]; !ok {
		return
	}
	delete(m.constraints, c)
	c.State().Posted = false
	c.Unpost(m)
}
