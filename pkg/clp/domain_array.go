package clp

// domain_array.go: bitmap domain over a fixed universe.

import (
	"fmt"
	"iter"
	"math"
	"math/bits"
)

// ArrayDomain is a bitmap over the universe [base, base+n). Words are saved
// individually, once per search epoch, through RevSetIndirect.
type ArrayDomain struct {
	mgr    *Manager
	base   int
	n      int
	words  []uint64
	stamps []uint64
	st     domState
	stamp  uint64
}

// NewArrayDomain creates the full domain [lo, hi]. The universe is fixed to
// that range: values outside it can never be added.
func NewArrayDomain(m *Manager, lo, hi int) *ArrayDomain {
	if lo > hi {
		panic(fmt.Sprintf("clp: array domain: empty universe [%d, %d]", lo, hi))
	}
	n := hi - lo + 1
	w := (n + 63) / 64
	d := &ArrayDomain{
		mgr:    m,
		base:   lo,
		n:      n,
		words:  make([]uint64, w),
		stamps: make([]uint64, w),
		st:     domState{size: n, min: lo, max: hi},
	}
	for i := range d.words {
		d.words[i] = math.MaxUint64
	}
	if r := n % 64; r != 0 {
		d.words[w-1] = 1<<uint(r) - 1
	}
	return d
}

// Universe returns the bounds of values the domain can ever hold.
func (d *ArrayDomain) Universe() (lo, hi int) { return d.base, d.base + d.n - 1 }

func (d *ArrayDomain) Min() int  { return d.st.min }
func (d *ArrayDomain) Max() int  { return d.st.max }
func (d *ArrayDomain) Size() int { return d.st.size }

func (d *ArrayDomain) Has(v int) bool {
	i := v - d.base
	if i < 0 || i >= d.n {
		return false
	}
	return d.words[i>>6]&(1<<uint(i&63)) != 0
}

func (d *ArrayDomain) saveState() {
	if d.mgr.SaveNeeded(&d.stamp) {
		RevSave(d.mgr, &d.st)
	}
}

func (d *ArrayDomain) saveWord(w int) {
	if d.mgr.SaveNeeded(&d.stamps[w]) {
		RevSetIndirect(d.mgr, &d.words, w, 1)
	}
}

// rangeMask returns the bits of word w that fall in [lo, hi] (indices).
func rangeMask(w, lo, hi int) uint64 {
	first, last := w*64, w*64+63
	if lo > first {
		first = lo
	}
	if hi < last {
		last = hi
	}
	width := last - first + 1
	var mask uint64 = math.MaxUint64
	if width < 64 {
		mask = 1<<uint(width) - 1
	}
	return mask << uint(first-w*64)
}

// AddRange adds [lo, hi]. Adding outside the universe panics.
func (d *ArrayDomain) AddRange(lo, hi int) {
	if lo > hi {
		return
	}
	if lo < d.base || hi >= d.base+d.n {
		panic(fmt.Sprintf("clp: array domain: [%d, %d] outside universe [%d, %d]", lo, hi, d.base, d.base+d.n-1))
	}
	i, j := lo-d.base, hi-d.base
	added := 0
	for w := i >> 6; w <= j>>6; w++ {
		mask := rangeMask(w, i, j)
		if fresh := mask &^ d.words[w]; fresh != 0 {
			d.saveWord(w)
			d.words[w] |= mask
			added += bits.OnesCount64(fresh)
		}
	}
	if added == 0 {
		return
	}
	d.saveState()
	d.st.size += added
	d.st.min = min(d.st.min, lo)
	d.st.max = max(d.st.max, hi)
}

// RemoveRange removes [lo, hi], clamped to the current bounds.
func (d *ArrayDomain) RemoveRange(lo, hi int) {
	lo, hi = max(lo, d.st.min), min(hi, d.st.max)
	if lo > hi {
		return
	}
	i, j := lo-d.base, hi-d.base
	removed := 0
	for w := i >> 6; w <= j>>6; w++ {
		if gone := d.words[w] & rangeMask(w, i, j); gone != 0 {
			d.saveWord(w)
			d.words[w] &^= gone
			removed += bits.OnesCount64(gone)
		}
	}
	if removed == 0 {
		return
	}
	d.saveState()
	d.st.size -= removed
	if d.st.size == 0 {
		d.st.min, d.st.max = math.MaxInt, math.MinInt
		return
	}
	if d.st.min >= lo {
		d.st.min, _ = d.nextSet(hi + 1)
	}
	if d.st.max <= hi {
		d.st.max, _ = d.prevSet(lo - 1)
	}
}

// nextSet returns the smallest member >= v.
func (d *ArrayDomain) nextSet(v int) (int, bool) {
	i := max(v-d.base, 0)
	if i >= d.n {
		return 0, false
	}
	w := i >> 6
	word := d.words[w] &^ (1<<uint(i&63) - 1)
	for {
		if word != 0 {
			return d.base + w*64 + bits.TrailingZeros64(word), true
		}
		w++
		if w >= len(d.words) {
			return 0, false
		}
		word = d.words[w]
	}
}

// prevSet returns the largest member <= v.
func (d *ArrayDomain) prevSet(v int) (int, bool) {
	i := min(v-d.base, d.n-1)
	if i < 0 {
		return 0, false
	}
	w := i >> 6
	word := d.words[w]
	if r := i & 63; r < 63 {
		word &= 1<<uint(r+1) - 1
	}
	for {
		if word != 0 {
			return d.base + w*64 + 63 - bits.LeadingZeros64(word), true
		}
		w--
		if w < 0 {
			return 0, false
		}
		word = d.words[w]
	}
}

func (d *ArrayDomain) Next(v int) (int, bool) {
	if d.st.size == 0 || v > d.st.max {
		return 0, false
	}
	return d.nextSet(max(v, d.st.min))
}

func (d *ArrayDomain) Values() iter.Seq[int] {
	return func(yield func(int) bool) {
		for v, ok := d.Next(d.st.min); ok; v, ok = d.Next(v + 1) {
			if !yield(v) {
				return
			}
		}
	}
}

func (d *ArrayDomain) Ranges() iter.Seq2[int, int] { return rangesFromValues(d.Values()) }

func (d *ArrayDomain) String() string { return formatDomain(d) }
