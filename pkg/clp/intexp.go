package clp

// intexp.go: finite-domain integer variables.
//
// An IntExp wraps an IntDomain and turns every mutation into a set of change
// events. Each public mutator compares the domain before and after and raises
// only the events that actually happened: bounds registered with
// AddDomainBound are invalidated on any change, bounds registered with
// AddValueBound when the variable becomes fixed, and OnChange listeners are
// called with the event mask.

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Event is a bit mask of domain changes.
type Event uint8

const (
	EventDomain Event = 1 << iota // any change
	EventMin                      // minimum moved
	EventMax                      // maximum moved
	EventRange                    // minimum or maximum moved
	EventValue                    // exactly one value left
	EventEmpty                    // no value left
)

func (e Event) String() string {
	if e == 0 {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		ev   Event
		name string
	}{
		{EventDomain, "domain"}, {EventMin, "min"}, {EventMax, "max"},
		{EventRange, "range"}, {EventValue, "value"}, {EventEmpty, "empty"},
	} {
		if e&f.ev != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// Has reports whether every bit of f is set in e.
func (e Event) Has(f Event) bool { return e&f == f }

// Listener is called after a domain change with the raised events. Returning
// an *Inconsistency fails the current branch.
type Listener func(x *IntExp, ev Event) error

// IntExp is a finite-domain integer variable.
type IntExp struct {
	mgr         *Manager
	name        string
	dom         IntDomain
	failOnEmpty bool
	events      Event

	domainBounds []*ConstrainedBound
	valueBounds  []*ConstrainedBound
	listeners    []Listener

	deferring bool
	deferred  [][2]int
}

// NewIntExp creates a variable over [lo, hi] with the given backing.
func (m *Manager) NewIntExp(name string, lo, hi int, b Backing) *IntExp {
	return m.NewIntExpWithDomain(name, NewDomain(m, b, lo, hi))
}

// NewIntExpValues creates a variable whose domain is exactly values.
func (m *Manager) NewIntExpValues(name string, b Backing, values ...int) *IntExp {
	if len(values) == 0 {
		panic("clp: NewIntExpValues needs at least one value")
	}
	lo, hi := slices.Min(values), slices.Max(values)
	x := m.NewIntExpWithDomain(name, NewDomain(m, b, lo, hi))
	if err := x.IntersectValues(values); err != nil {
		panic(fmt.Sprintf("clp: NewIntExpValues: %v", err))
	}
	x.events = 0
	return x
}

// NewIntExpWithDomain wraps an existing domain.
func (m *Manager) NewIntExpWithDomain(name string, d IntDomain) *IntExp {
	return &IntExp{mgr: m, name: name, dom: d, failOnEmpty: true}
}

// Name returns the variable's name.
func (x *IntExp) Name() string { return x.name }

// Domain returns the backing domain. Mutating it directly bypasses events.
func (x *IntExp) Domain() IntDomain { return x.dom }

// Manager returns the owning Manager.
func (x *IntExp) Manager() *Manager { return x.mgr }

// SetFailOnEmpty controls whether an emptied domain fails the branch
// (the default) or only raises EventEmpty.
func (x *IntExp) SetFailOnEmpty(on bool) { x.failOnEmpty = on }

// LastEvents returns the events raised by the most recent change.
func (x *IntExp) LastEvents() Event { return x.events }

func (x *IntExp) Min() int                    { return x.dom.Min() }
func (x *IntExp) Max() int                    { return x.dom.Max() }
func (x *IntExp) Size() int                   { return x.dom.Size() }
func (x *IntExp) Has(v int) bool              { return x.dom.Has(v) }
func (x *IntExp) Next(v int) (int, bool)      { return x.dom.Next(v) }
func (x *IntExp) Values() iter.Seq[int]       { return x.dom.Values() }
func (x *IntExp) Ranges() iter.Seq2[int, int] { return x.dom.Ranges() }
func (x *IntExp) IsEmpty() bool               { return x.dom.Size() == 0 }

// IsBound reports whether exactly one value is left.
func (x *IntExp) IsBound() bool { return x.dom.Size() == 1 }

// Value returns the single remaining value. It panics if x is not bound.
func (x *IntExp) Value() int {
	if !x.IsBound() {
		panic(fmt.Sprintf("clp: %s is not bound: %s", x.name, x.dom))
	}
	return x.dom.Min()
}

func (x *IntExp) String() string { return x.name + " in " + x.dom.String() }

// AddDomainBound registers b to be invalidated on every domain change.
func (x *IntExp) AddDomainBound(b *ConstrainedBound) {
	RevSet(x.mgr, &x.domainBounds, append(x.domainBounds, b))
}

// AddValueBound registers b to be invalidated when x becomes bound.
func (x *IntExp) AddValueBound(b *ConstrainedBound) {
	RevSet(x.mgr, &x.valueBounds, append(x.valueBounds, b))
}

// OnChange registers fn. Registration made inside a search is undone on
// backtrack.
func (x *IntExp) OnChange(fn Listener) {
	RevSet(x.mgr, &x.listeners, append(x.listeners, fn))
}

// MinBound returns a lower bound that tracks Min. It is recomputed lazily
// after each domain change.
func (x *IntExp) MinBound() *ConstrainedBound {
	b := x.mgr.NewConstrainedBound(x.name+".min", LowerBound, x.Min())
	b.SetFinder(FinderFunc(x.Min))
	x.AddDomainBound(b)
	return b
}

// MaxBound returns an upper bound that tracks Max.
func (x *IntExp) MaxBound() *ConstrainedBound {
	b := x.mgr.NewConstrainedBound(x.name+".max", UpperBound, x.Max())
	b.SetFinder(FinderFunc(x.Max))
	x.AddDomainBound(b)
	return b
}

// change runs fn and raises whatever events it caused.
func (x *IntExp) change(fn func()) error {
	oldMin, oldMax, oldSize := x.dom.Min(), x.dom.Max(), x.dom.Size()
	fn()
	size := x.dom.Size()
	if size == oldSize {
		return nil
	}
	ev := EventDomain
	if size == 0 {
		ev |= EventEmpty
	} else {
		if x.dom.Min() != oldMin {
			ev |= EventMin | EventRange
		}
		if x.dom.Max() != oldMax {
			ev |= EventMax | EventRange
		}
		if size == 1 {
			ev |= EventValue
		}
	}
	return x.raise(ev)
}

func (x *IntExp) raise(ev Event) error {
	x.events = ev
	if ev.Has(EventEmpty) && x.failOnEmpty {
		return Inconsistentf("%s: empty domain", x.name)
	}
	for _, b := range x.domainBounds {
		b.Invalidate()
	}
	if ev.Has(EventValue) {
		for _, b := range x.valueBounds {
			b.Invalidate()
		}
	}
	for _, fn := range x.listeners {
		if err := fn(x, ev); err != nil {
			return err
		}
	}
	return nil
}

// Add adds v to the domain.
func (x *IntExp) Add(v int) error { return x.AddRange(v, v) }

// AddRange adds [lo, hi] to the domain.
func (x *IntExp) AddRange(lo, hi int) error {
	return x.change(func() { x.dom.AddRange(lo, hi) })
}

// Remove removes v from the domain.
func (x *IntExp) Remove(v int) error { return x.RemoveRange(v, v) }

// RemoveRange removes [lo, hi]. While removals are deferred the range is
// buffered instead.
func (x *IntExp) RemoveRange(lo, hi int) error {
	if lo > hi {
		return nil
	}
	if x.deferring {
		RevSet(x.mgr, &x.deferred, mergeRange(x.deferred, lo, hi))
		return nil
	}
	return x.change(func() { x.dom.RemoveRange(lo, hi) })
}

// mergeRange returns a copy of the sorted, disjoint list rs with [lo, hi]
// merged in. Touching ranges are joined.
func mergeRange(rs [][2]int, lo, hi int) [][2]int {
	out := make([][2]int, 0, len(rs)+1)
	i := 0
	for ; i < len(rs) && rs[i][1] < lo-1; i++ {
		out = append(out, rs[i])
	}
	for ; i < len(rs) && rs[i][0] <= hi+1; i++ {
		lo, hi = min(lo, rs[i][0]), max(hi, rs[i][1])
	}
	out = append(out, [2]int{lo, hi})
	return append(out, rs[i:]...)
}

// SetDeferRemoves turns buffering of removals on or off. Turning it off
// applies the buffered ranges as one change.
func (x *IntExp) SetDeferRemoves(on bool) error {
	if on == x.deferring {
		return nil
	}
	RevSet(x.mgr, &x.deferring, on)
	if on {
		return nil
	}
	pending := x.deferred
	if len(pending) == 0 {
		return nil
	}
	RevSet(x.mgr, &x.deferred, nil)
	return x.change(func() {
		for _, r := range pending {
			x.dom.RemoveRange(r[0], r[1])
		}
	})
}

// IsDeferring reports whether removals are being buffered.
func (x *IntExp) IsDeferring() bool { return x.deferring }

// removeGaps removes everything between consecutive ranges of keep, plus
// everything outside them, within the current bounds.
func (x *IntExp) removeGaps(keep iter.Seq2[int, int]) error {
	if x.dom.Size() == 0 {
		return nil
	}
	lo, hi := x.dom.Min(), x.dom.Max()
	return x.change(func() {
		next := lo
		for a, b := range keep {
			if a > hi {
				break
			}
			if a > next {
				x.dom.RemoveRange(next, a-1)
			}
			if b >= hi {
				next = hi + 1
				break
			}
			next = max(next, b+1)
		}
		if next <= hi {
			x.dom.RemoveRange(next, hi)
		}
	})
}

// Intersect keeps only the values also in o.
func (x *IntExp) Intersect(o *IntExp) error { return x.IntersectDomain(o.dom) }

// IntersectDomain keeps only the values also in d.
func (x *IntExp) IntersectDomain(d IntDomain) error { return x.removeGaps(d.Ranges()) }

// IntersectValues keeps only the listed values.
func (x *IntExp) IntersectValues(values []int) error {
	vs := slices.Clone(values)
	slices.Sort(vs)
	vs = slices.Compact(vs)
	return x.removeGaps(rangesFromValues(slices.Values(vs)))
}

// SetRange restricts the domain to [lo, hi].
func (x *IntExp) SetRange(lo, hi int) error {
	if x.dom.Size() == 0 {
		return nil
	}
	curLo, curHi := x.dom.Min(), x.dom.Max()
	return x.change(func() {
		if lo > hi {
			x.dom.RemoveRange(curLo, curHi)
			return
		}
		if lo > curLo {
			x.dom.RemoveRange(curLo, min(lo-1, curHi))
		}
		if hi < curHi {
			x.dom.RemoveRange(max(hi+1, curLo), curHi)
		}
	})
}

// SetMin removes every value below v.
func (x *IntExp) SetMin(v int) error { return x.SetRange(v, x.dom.Max()) }

// SetMax removes every value above v.
func (x *IntExp) SetMax(v int) error { return x.SetRange(x.dom.Min(), v) }

// SetValue fixes the variable to v. If v is not in the domain the domain
// becomes empty.
func (x *IntExp) SetValue(v int) error {
	if !x.dom.Has(v) {
		return x.SetRange(v+1, v)
	}
	return x.SetRange(v, v)
}

// Decrement lowers the multiplicity of v on a counted domain, removing v
// when it reaches zero. Other backings treat it as Remove.
func (x *IntExp) Decrement(v int) error {
	cd, ok := x.dom.(*CountedDomain)
	if !ok {
		return x.Remove(v)
	}
	return x.change(func() { cd.Decrement(v) })
}
