package clp

// domain_counted.go: domain whose values carry a multiplicity.

import (
	"fmt"
	"iter"
	"math"
)

// CountedDomain keeps a count per value of a fixed universe. A value is a
// member while its count is positive; Decrement removes it when the count
// reaches zero. Counts are saved individually, once per search epoch.
type CountedDomain struct {
	mgr    *Manager
	base   int
	counts []int32
	stamps []uint64
	st     domState
	stamp  uint64
}

// NewCountedDomain creates the domain [lo, hi] with every value at count
// mult. mult must be positive.
func NewCountedDomain(m *Manager, lo, hi int, mult int) *CountedDomain {
	if lo > hi {
		panic(fmt.Sprintf("clp: counted domain: empty universe [%d, %d]", lo, hi))
	}
	if mult <= 0 {
		panic(fmt.Sprintf("clp: counted domain: multiplicity %d", mult))
	}
	n := hi - lo + 1
	d := &CountedDomain{
		mgr:    m,
		base:   lo,
		counts: make([]int32, n),
		stamps: make([]uint64, n),
		st:     domState{size: n, min: lo, max: hi},
	}
	for i := range d.counts {
		d.counts[i] = int32(mult)
	}
	return d
}

// Universe returns the bounds of values the domain can ever hold.
func (d *CountedDomain) Universe() (lo, hi int) { return d.base, d.base + len(d.counts) - 1 }

func (d *CountedDomain) Min() int  { return d.st.min }
func (d *CountedDomain) Max() int  { return d.st.max }
func (d *CountedDomain) Size() int { return d.st.size }

func (d *CountedDomain) Has(v int) bool { return d.Count(v) > 0 }

// Count returns the multiplicity of v, 0 for non-members.
func (d *CountedDomain) Count(v int) int {
	i := v - d.base
	if i < 0 || i >= len(d.counts) {
		return 0
	}
	return int(d.counts[i])
}

func (d *CountedDomain) saveState() {
	if d.mgr.SaveNeeded(&d.stamp) {
		RevSave(d.mgr, &d.st)
	}
}

func (d *CountedDomain) setCount(i int, c int32) {
	if d.mgr.SaveNeeded(&d.stamps[i]) {
		RevSetIndirect(d.mgr, &d.counts, i, 1)
	}
	d.counts[i] = c
}

// SetCount sets the multiplicity of v. Setting 0 removes v, setting a
// positive count on a non-member adds it.
func (d *CountedDomain) SetCount(v, c int) {
	i := v - d.base
	if i < 0 || i >= len(d.counts) {
		panic(fmt.Sprintf("clp: counted domain: %d outside universe", v))
	}
	if c < 0 {
		c = 0
	}
	was := d.counts[i] > 0
	if int(d.counts[i]) == c {
		return
	}
	d.setCount(i, int32(c))
	switch {
	case !was && c > 0:
		d.grew(v, v, 1)
	case was && c == 0:
		d.shrank(v, v, 1)
	}
}

// Decrement lowers the count of v by one and reports whether v left the
// domain as a result.
func (d *CountedDomain) Decrement(v int) bool {
	c := d.Count(v)
	if c == 0 {
		return false
	}
	d.SetCount(v, c-1)
	return c == 1
}

// AddRange gives every non-member in [lo, hi] a count of one.
func (d *CountedDomain) AddRange(lo, hi int) {
	if lo > hi {
		return
	}
	if lo < d.base || hi-d.base >= len(d.counts) {
		panic(fmt.Sprintf("clp: counted domain: [%d, %d] outside universe", lo, hi))
	}
	added := 0
	for v := lo; v <= hi; v++ {
		if i := v - d.base; d.counts[i] == 0 {
			d.setCount(i, 1)
			added++
		}
	}
	if added > 0 {
		d.grew(lo, hi, added)
	}
}

// RemoveRange drops every value in [lo, hi] regardless of count.
func (d *CountedDomain) RemoveRange(lo, hi int) {
	lo, hi = max(lo, d.st.min), min(hi, d.st.max)
	removed := 0
	for v := lo; v <= hi; v++ {
		if i := v - d.base; d.counts[i] > 0 {
			d.setCount(i, 0)
			removed++
		}
	}
	if removed > 0 {
		d.shrank(lo, hi, removed)
	}
}

func (d *CountedDomain) grew(lo, hi, n int) {
	d.saveState()
	d.st.size += n
	d.st.min = min(d.st.min, lo)
	d.st.max = max(d.st.max, hi)
}

func (d *CountedDomain) shrank(lo, hi, n int) {
	d.saveState()
	d.st.size -= n
	if d.st.size == 0 {
		d.st.min, d.st.max = math.MaxInt, math.MinInt
		return
	}
	if d.st.min >= lo {
		d.st.min, _ = d.scan(hi+1, 1)
	}
	if d.st.max <= hi {
		d.st.max, _ = d.scan(lo-1, -1)
	}
}

// scan walks from v in direction step to the first member.
func (d *CountedDomain) scan(v, step int) (int, bool) {
	for i := v - d.base; i >= 0 && i < len(d.counts); i += step {
		if d.counts[i] > 0 {
			return d.base + i, true
		}
	}
	return 0, false
}

func (d *CountedDomain) Next(v int) (int, bool) {
	if d.st.size == 0 || v > d.st.max {
		return 0, false
	}
	return d.scan(max(v, d.st.min), 1)
}

func (d *CountedDomain) Values() iter.Seq[int] {
	return func(yield func(int) bool) {
		for v, ok := d.Next(d.st.min); ok; v, ok = d.Next(v + 1) {
			if !yield(v) {
				return
			}
		}
	}
}

func (d *CountedDomain) Ranges() iter.Seq2[int, int] { return rangesFromValues(d.Values()) }

func (d *CountedDomain) String() string { return formatDomain(d) }
