package clp

// bound.go: monotone scalar bounds and the edges that propagate movement
// between them.
//
// SetLB raises a value and SetUB lowers it, whatever the bound's kind. The
// kind decides which way movement is forwarded along edges and how a bound
// is ordered against its twin. Bounds moved only in their own direction stay
// monotone within one search branch.

import (
	"fmt"
	"math"
)

// Value range used for unconstrained bounds. Kept well inside int so that
// adding lags and deltas cannot overflow.
const (
	MinValue = math.MinInt / 4
	MaxValue = math.MaxInt / 4
)

// BoundKind tells which direction a bound tightens in.
type BoundKind uint8

const (
	// LowerBound values only increase.
	LowerBound BoundKind = iota
	// UpperBound values only decrease.
	UpperBound
)

func (k BoundKind) String() string {
	if k == LowerBound {
		return "lb"
	}
	return "ub"
}

// Finder recomputes a bound's value from the object it summarizes, e.g. the
// minimum of a domain. A bound with a Finder can be invalidated and will call
// Find on its next Get.
type Finder interface {
	Find() int
}

// FinderFunc adapts a function to Finder.
type FinderFunc func() int

// Find calls f.
func (f FinderFunc) Find() int { return f() }

// boundState is the part of a bound that is saved on the trail, once per
// search epoch.
type boundState struct {
	value int
	last  int
	stale bool
}

// Bound is a monotone scalar bound.
type Bound struct {
	mgr    *Manager
	kind   BoundKind
	st     boundState
	finder Finder
	stamp  uint64
}

// NewBound creates a plain bound with the given initial value.
func NewBound(m *Manager, kind BoundKind, init int) *Bound {
	return &Bound{mgr: m, kind: kind, st: boundState{value: init, last: init}}
}

// Kind returns whether this is a lower or upper bound.
func (b *Bound) Kind() BoundKind { return b.kind }

// SetFinder installs f as the bound's recomputation source.
func (b *Bound) SetFinder(f Finder) { b.finder = f }

func (b *Bound) save() {
	if b.mgr.SaveNeeded(&b.stamp) {
		RevSave(b.mgr, &b.st)
	}
}

// tighter reports whether v is strictly tighter than the current value.
func (b *Bound) tighter(v int) bool {
	if b.kind == LowerBound {
		return v > b.st.value
	}
	return v < b.st.value
}

// Get returns the current value. A stale bound first asks its Finder for a
// fresh value; the result is only taken if it is tighter, so successive Gets
// in one branch never loosen.
func (b *Bound) Get() int {
	if b.st.stale {
		b.save()
		b.st.stale = false
		if b.finder != nil {
			if v := b.finder.Find(); b.tighter(v) {
				b.st.value = v
			}
		}
	}
	return b.st.value
}

// Last returns the value most recently pushed along outgoing edges.
func (b *Bound) Last() int { return b.st.last }

// IsStale reports whether the next Get will consult the Finder.
func (b *Bound) IsStale() bool { return b.st.stale }

// SetLB requires the bound's value to be at least v and raises it if needed.
func (b *Bound) SetLB(v int) error {
	if v <= b.Get() {
		return nil
	}
	b.save()
	b.st.value = v
	return nil
}

// SetUB requires the bound's value to be at most v and lowers it if needed.
func (b *Bound) SetUB(v int) error {
	if v >= b.Get() {
		return nil
	}
	b.save()
	b.st.value = v
	return nil
}

// ConstrainedBound is a Bound that takes part in propagation: it belongs to a
// cycle group, can be queued on the propagator, may have a twin bound of the
// opposite kind that it must not cross, and forwards its movement along
// outgoing BoundCt edges.
type ConstrainedBound struct {
	Bound
	name string
	prop *BoundPropagator

	cg        *CycleGroup
	twin      *ConstrainedBound
	out       []*BoundCt
	queued    bool
	inProcess bool
	finalized bool
}

// NewConstrainedBound creates a propagated bound with the given initial
// value. The bound gets its own cycle group on first use in an edge.
func (m *Manager) NewConstrainedBound(name string, kind BoundKind, init int) *ConstrainedBound {
	return &ConstrainedBound{
		Bound: Bound{mgr: m, kind: kind, st: boundState{value: init, last: init}},
		name:  name,
		prop:  m.prop,
	}
}

// Name returns the bound's name.
func (b *ConstrainedBound) Name() string { return b.name }

func (b *ConstrainedBound) String() string {
	return fmt.Sprintf("%s.%s=%d", b.name, b.kind, b.st.value)
}

// SetTwin pairs b with t. The two must have opposite kinds; a lower bound
// may never exceed its twin upper bound.
func (b *ConstrainedBound) SetTwin(t *ConstrainedBound) {
	if t != nil && t.kind == b.kind {
		panic("clp: twin bounds must have opposite kinds")
	}
	b.twin = t
}

// Twin returns the paired bound, or nil.
func (b *ConstrainedBound) Twin() *ConstrainedBound { return b.twin }

// CycleGroup returns the group b currently belongs to, creating a singleton
// group on first call.
func (b *ConstrainedBound) CycleGroup() *CycleGroup {
	if b.cg == nil {
		b.cg = b.prop.newCycleGroup(b)
	}
	return b.cg
}

// Edges returns the outgoing edges. The slice must not be modified.
func (b *ConstrainedBound) Edges() []*BoundCt { return b.out }

// IsQueued reports whether b waits in the propagation queue.
func (b *ConstrainedBound) IsQueued() bool { return b.queued }

// IsFinalized reports whether Finalize has been called in this branch.
func (b *ConstrainedBound) IsFinalized() bool { return b.finalized }

// SetLB raises the value to v and queues the bound. A lower bound fails
// instead if v would cross its twin.
func (b *ConstrainedBound) SetLB(v int) error {
	if v <= b.Get() {
		return nil
	}
	if b.kind == LowerBound && b.twin != nil && v > b.twin.Get() {
		return Inconsistentf("%s: lb %d crosses ub %d", b.name, v, b.twin.Get())
	}
	b.save()
	b.st.value = v
	b.prop.enqueue(b)
	return nil
}

// SetUB lowers the value to v and queues the bound. An upper bound fails
// instead if v would cross its twin.
func (b *ConstrainedBound) SetUB(v int) error {
	if v >= b.Get() {
		return nil
	}
	if b.kind == UpperBound && b.twin != nil && v < b.twin.Get() {
		return Inconsistentf("%s: ub %d crosses lb %d", b.name, v, b.twin.Get())
	}
	b.save()
	b.st.value = v
	b.prop.enqueue(b)
	return nil
}

// Invalidate marks the value stale so the next Get consults the Finder, and
// queues the bound so the recomputed value is propagated.
func (b *ConstrainedBound) Invalidate() {
	if b.st.stale {
		return
	}
	b.save()
	b.st.stale = true
	b.prop.enqueue(b)
}

func (b *ConstrainedBound) checkTwin() error {
	if b.twin == nil {
		return nil
	}
	lo, hi := b.st.value, b.twin.Get()
	if b.kind == UpperBound {
		lo, hi = hi, lo
	}
	if lo > hi {
		return Inconsistentf("%s: bounds crossed [%d, %d]", b.name, lo, hi)
	}
	return nil
}

// propagate forwards the movement since the last call to every outgoing
// edge. Members of a suspended cycle group wait until the group is released.
func (b *ConstrainedBound) propagate() error {
	if b.cg != nil && b.cg.suspended {
		return nil
	}
	v := b.Get()
	if err := b.checkTwin(); err != nil {
		return err
	}
	delta := v - b.st.last
	if b.kind == UpperBound {
		delta = -delta
	}
	if delta == 0 {
		return nil
	}
	b.save()
	b.st.last = v
	for _, e := range b.out {
		var err error
		if b.kind == LowerBound {
			err = e.increment(delta)
		} else {
			err = e.decrement(delta)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Finalize declares that b will not be tightened by the caller any more.
// Within one branch a second call is a no-op.
func (b *ConstrainedBound) Finalize() {
	if b.finalized {
		return
	}
	RevSet(b.mgr, &b.finalized, true)
	b.CycleGroup().finalizeMember()
}

// BoundCt is a directed edge between two bounds. From a lower-bound source it
// enforces dst >= src + d; from an upper-bound source dst <= src - d. The
// edge caches v, the value it last forwarded, and moves it by the source's
// delta instead of recomputing.
type BoundCt struct {
	src, dst *ConstrainedBound
	d        int
	v        int
}

// Source returns the edge's source bound.
func (e *BoundCt) Source() *ConstrainedBound { return e.src }

// Dest returns the edge's destination bound.
func (e *BoundCt) Dest() *ConstrainedBound { return e.dst }

// Lag returns d.
func (e *BoundCt) Lag() int { return e.d }

// Value returns the value last forwarded to the destination.
func (e *BoundCt) Value() int { return e.v }

func (e *BoundCt) increment(delta int) error {
	RevSet(e.src.mgr, &e.v, e.v+delta)
	return e.dst.SetLB(e.v)
}

func (e *BoundCt) decrement(delta int) error {
	RevSet(e.src.mgr, &e.v, e.v-delta)
	return e.dst.SetUB(e.v)
}

func (e *BoundCt) String() string {
	if e.src.kind == LowerBound {
		return fmt.Sprintf("%s >= %s + %d", e.dst.name, e.src.name, e.d)
	}
	return fmt.Sprintf("%s <= %s - %d", e.dst.name, e.src.name, e.d)
}
