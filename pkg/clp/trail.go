package clp

// trail.go: the reversible-mutation log.
//
// Every field that participates in search state is changed through one of the
// primitives below. Each primitive appends an undo record before the caller
// overwrites the field; backtracking pops records in reverse order and runs
// them. One trail of tagged records replaces per-width logs: the record type
// carries everything needed to restore the old value.
//
// Nothing is recorded while the choice-point stack is empty, since there is
// no state to return to.

// undoer is one trail record.
type undoer interface {
	undo()
}

// Releaser is implemented by objects whose lifetime is tied to the trail.
// Release is called when backtracking passes the point where the object was
// allocated, or when the Manager is closed.
type Releaser interface {
	Release()
}

type scalarEntry[T any] struct {
	p   *T
	old T
}

func (e *scalarEntry[T]) undo() { *e.p = e.old }

type sliceEntry[T any] struct {
	dst   []T
	saved []T
}

func (e *sliceEntry[T]) undo() { copy(e.dst, e.saved) }

type indirectEntry[T any] struct {
	arr   *[]T
	at    int
	saved []T
}

func (e *indirectEntry[T]) undo() { copy((*e.arr)[e.at:e.at+len(e.saved)], e.saved) }

type toggleEntry struct {
	p *bool
}

func (e toggleEntry) undo() { *e.p = !*e.p }

type actionEntry struct {
	fn func()
}

func (e actionEntry) undo() { e.fn() }

type allocEntry struct {
	obj Releaser
}

func (e allocEntry) undo() { e.obj.Release() }

type constraintEntry struct {
	m *Manager
	c Constraint
}

func (e constraintEntry) undo() { e.m.retract(e.c) }

// record appends e to the trail when there is a choice point to return to.
// Records produced while the trail is being replayed are dropped.
func (m *Manager) record(e undoer) {
	if len(m.cps) == 0 || m.undoing {
		return
	}
	m.trail = append(m.trail, e)
	if n := len(m.trail); n > m.stats.PeakTrail {
		m.stats.PeakTrail = n
		m.monitor.trailSize(n)
	}
}

// undoTo pops and runs trail records until the trail has length marker.
func (m *Manager) undoTo(marker int) {
	if marker > len(m.trail) {
		panic("clp: trail underflow")
	}
	m.undoing = true
	defer func() { m.undoing = false }()
	for i := len(m.trail) - 1; i >= marker; i-- {
		e := m.trail[i]
		m.trail[i] = nil
		m.trail = m.trail[:i]
		e.undo()
	}
}

// TrailLen returns the number of records currently on the trail.
func (m *Manager) TrailLen() int { return len(m.trail) }

// SaveNeeded reports whether an object stamped with *stamp must log its state
// before mutating it, and if so updates the stamp. Objects that save their
// whole state once per choice point use this to keep logging idempotent
// within one search epoch.
func (m *Manager) SaveNeeded(stamp *uint64) bool {
	if len(m.cps) == 0 || *stamp == m.serial {
		return false
	}
	*stamp = m.serial
	return true
}

// RevSave logs the current value of *p without changing it.
func RevSave[T any](m *Manager, p *T) {
	if len(m.cps) == 0 {
		return
	}
	m.record(&scalarEntry[T]{p: p, old: *p})
}

// RevSet logs the current value of *p and then stores v.
func RevSet[T any](m *Manager, p *T, v T) {
	RevSave(m, p)
	*p = v
}

// RevSetSlice logs the current contents of s. The caller may then overwrite
// any element of s; backtracking copies the saved contents back. s must not
// be reallocated afterwards.
func RevSetSlice[T any](m *Manager, s []T) {
	if len(m.cps) == 0 || len(s) == 0 {
		return
	}
	saved := make([]T, len(s))
	copy(saved, s)
	m.record(&sliceEntry[T]{dst: s, saved: saved})
}

// RevSetIndirect logs n elements of *arr starting at index at. The slice is
// resolved through arr when undoing, so the owner may swap the backing array
// as long as the logged positions stay valid.
func RevSetIndirect[T any](m *Manager, arr *[]T, at, n int) {
	if len(m.cps) == 0 || n <= 0 {
		return
	}
	saved := make([]T, n)
	copy(saved, (*arr)[at:at+n])
	m.record(&indirectEntry[T]{arr: arr, at: at, saved: saved})
}

// RevToggle flips *p and logs the flip.
func (m *Manager) RevToggle(p *bool) {
	*p = !*p
	m.record(toggleEntry{p: p})
}

// RevAllocate ties obj to the current choice point: backtracking past this
// point calls obj.Release.
func (m *Manager) RevAllocate(obj Releaser) {
	m.record(allocEntry{obj: obj})
}

// RevAction registers fn to run when backtracking passes this point.
func (m *Manager) RevAction(fn func()) {
	m.record(actionEntry{fn: fn})
}
