package clp

// choicepoint.go: saved search state. A choice point remembers the Or goal it
// was created for, which alternative comes next, the goal stack as it was when
// the Or was reached, and the trail length at that moment.

// ChoicePointState describes where a choice point is in its life cycle.
type ChoicePointState int

const (
	// ChoicePointFree is a pooled choice point awaiting reuse.
	ChoicePointFree ChoicePointState = iota
	// ChoicePointRoot is the permanent bottom of the stack.
	ChoicePointRoot
	// ChoicePointActive is bound to an Or with untried alternatives.
	ChoicePointActive
	// ChoicePointExhausted has no alternatives left and will be popped on
	// the next backtrack through it.
	ChoicePointExhausted
	// ChoicePointManual was created by PushState.
	ChoicePointManual
)

func (s ChoicePointState) String() string {
	switch s {
	case ChoicePointFree:
		return "free"
	case ChoicePointRoot:
		return "root"
	case ChoicePointActive:
		return "active"
	case ChoicePointExhausted:
		return "exhausted"
	case ChoicePointManual:
		return "manual"
	}
	return "unknown"
}

// ChoicePoint is a resumable point in the search tree.
type ChoicePoint struct {
	or     *OrGoal
	next   int
	goals  []Goal
	marker int
	serial uint64

	root     bool
	manual   bool
	free     bool
	resuming bool
}

// HasRemainingChoice reports whether an untried alternative is left.
func (cp *ChoicePoint) HasRemainingChoice() bool {
	return cp.or != nil && cp.next < len(cp.or.alts)
}

// NextChoice consumes and returns the next untried alternative.
func (cp *ChoicePoint) NextChoice() (Goal, bool) {
	if !cp.HasRemainingChoice() {
		return nil, false
	}
	g := cp.or.alts[cp.next]
	cp.next++
	return g, true
}

// Label returns the label of the bound Or, or "".
func (cp *ChoicePoint) Label() string {
	if cp.or == nil {
		return ""
	}
	return cp.or.label
}

// Marker returns the trail length recorded when the point was created.
func (cp *ChoicePoint) Marker() int { return cp.marker }

// State returns the life-cycle state.
func (cp *ChoicePoint) State() ChoicePointState {
	switch {
	case cp.free:
		return ChoicePointFree
	case cp.root:
		return ChoicePointRoot
	case cp.manual:
		return ChoicePointManual
	case cp.HasRemainingChoice():
		return ChoicePointActive
	}
	return ChoicePointExhausted
}

// matches reports whether a failure with label may resume here.
func (cp *ChoicePoint) matches(label string) bool {
	if !cp.HasRemainingChoice() {
		return false
	}
	return label == "" || cp.Label() == label
}

// snapshot copies stack into the choice point, taking a reference on each goal.
func (cp *ChoicePoint) snapshot(stack []Goal) {
	cp.goals = append(cp.goals[:0], stack...)
	for _, g := range cp.goals {
		retainGoal(g)
	}
}

// restore replaces *stack with the saved goals. The snapshot keeps its own
// references so the point can be restored again for later alternatives.
func (cp *ChoicePoint) restore(stack *[]Goal) {
	for _, g := range cp.goals {
		retainGoal(g)
	}
	for _, g := range *stack {
		releaseGoal(g)
	}
	clear(*stack)
	*stack = append((*stack)[:0], cp.goals...)
}

// reset releases the snapshot and returns the point to the free state.
func (cp *ChoicePoint) reset() {
	for _, g := range cp.goals {
		releaseGoal(g)
	}
	clear(cp.goals)
	*cp = ChoicePoint{goals: cp.goals[:0], free: true}
}
