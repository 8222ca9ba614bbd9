package clp

// span.go: RevIntSpanCol, a reversible skip list of disjoint integer
// intervals ("spans"), each carrying two payload words.
//
// Spans live in an arena owned by the collection and are addressed by
// generation-checked references, so a reference to a slot that has been
// freed and reused is detected instead of silently followed. Every in-place
// write to a span saves the span first, once per search epoch, and every
// span created inside a search is registered with RevAllocate so that
// backtracking both restores field values and frees spans created during the
// forward move.
//
// Invariants, checked by Check:
//   - spans are ordered and disjoint
//   - no two touching spans carry the same payload
//   - every level is an ordered sub-chain of the level below

import (
	"fmt"
	"iter"
	"math"
	"strings"
)

// Span is a read-only view of one interval and its payload.
type Span struct {
	Min, Max int
	V0, V1   int
}

// Len returns the number of integers covered.
func (s Span) Len() int { return s.Max - s.Min + 1 }

// Has reports whether v lies in the span.
func (s Span) Has(v int) bool { return s.Min <= v && v <= s.Max }

func (s Span) String() string {
	if s.V0 == 0 && s.V1 == 0 {
		return fmt.Sprintf("[%d..%d]", s.Min, s.Max)
	}
	return fmt.Sprintf("[%d..%d]:%d/%d", s.Min, s.Max, s.V0, s.V1)
}

type spanRef struct {
	idx int32
	gen uint32
}

const (
	headSlot int32 = 0
	tailSlot int32 = 1
)

type spanSlot struct {
	min, max int
	v0, v1   int
	next     []spanRef
	gen      uint32
	live     bool
	stamp    uint64
}

type spanColState struct {
	card  int
	count int
}

// RevIntSpanCol is a reversible ordered collection of disjoint spans.
type RevIntSpanCol struct {
	mgr    *Manager
	slots  []spanSlot
	free   []int32
	st     spanColState
	stamp  uint64
	cursor int
}

// NewRevIntSpanCol creates an empty collection.
func NewRevIntSpanCol(m *Manager) *RevIntSpanCol {
	c := &RevIntSpanCol{mgr: m}
	c.slots = make([]spanSlot, 2, 16)
	c.slots[headSlot] = spanSlot{min: math.MinInt, max: math.MinInt, next: make([]spanRef, MaxSpanLevel), live: true}
	c.slots[tailSlot] = spanSlot{min: math.MaxInt, max: math.MaxInt, live: true}
	tail := spanRef{idx: tailSlot}
	for i := range c.slots[headSlot].next {
		c.slots[headSlot].next[i] = tail
	}
	return c
}

func (c *RevIntSpanCol) at(r spanRef) *spanSlot {
	s := &c.slots[r.idx]
	if !s.live || s.gen != r.gen {
		panic(fmt.Sprintf("clp: stale span reference %d/%d", r.idx, r.gen))
	}
	return s
}

func (c *RevIntSpanCol) ref(idx int32) spanRef {
	return spanRef{idx: idx, gen: c.slots[idx].gen}
}

func (s *spanSlot) view() Span { return Span{Min: s.min, Max: s.max, V0: s.v0, V1: s.v1} }

// Len returns the number of spans.
func (c *RevIntSpanCol) Len() int { return c.st.count }

// Card returns the number of integers covered by all spans.
func (c *RevIntSpanCol) Card() int { return c.st.card }

// IsEmpty reports whether the collection has no spans.
func (c *RevIntSpanCol) IsEmpty() bool { return c.st.count == 0 }

func (c *RevIntSpanCol) saveState() {
	if c.mgr.SaveNeeded(&c.stamp) {
		RevSave(c.mgr, &c.st)
	}
}

type spanSaveEntry struct {
	col      *RevIntSpanCol
	idx      int32
	min, max int
	v0, v1   int
	next     []spanRef
}

func (e *spanSaveEntry) undo() {
	s := &e.col.slots[e.idx]
	s.min, s.max, s.v0, s.v1 = e.min, e.max, e.v0, e.v1
	copy(s.next, e.next)
}

// saveSlot logs slot idx before an in-place write.
func (c *RevIntSpanCol) saveSlot(idx int32) {
	s := &c.slots[idx]
	if !c.mgr.SaveNeeded(&s.stamp) {
		return
	}
	e := &spanSaveEntry{col: c, idx: idx, min: s.min, max: s.max, v0: s.v0, v1: s.v1}
	e.next = append([]spanRef(nil), s.next...)
	c.mgr.record(e)
}

// spanRelease frees a slot when backtracking passes its allocation.
type spanRelease struct {
	col *RevIntSpanCol
	ref spanRef
}

func (r spanRelease) Release() { r.col.freeSlot(r.ref) }

func (c *RevIntSpanCol) alloc(min, max, v0, v1 int) int32 {
	level := nextLevel(&c.cursor)
	var idx int32
	if n := len(c.free); n > 0 {
		idx = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		idx = int32(len(c.slots))
		c.slots = append(c.slots, spanSlot{})
	}
	s := &c.slots[idx]
	next := s.next
	if cap(next) < level {
		next = make([]spanRef, level)
	}
	*s = spanSlot{min: min, max: max, v0: v0, v1: v1, next: next[:level], gen: s.gen + 1, live: true, stamp: c.mgr.serial}
	clear(s.next)
	c.mgr.RevAllocate(spanRelease{col: c, ref: spanRef{idx: idx, gen: s.gen}})
	return idx
}

func (c *RevIntSpanCol) freeSlot(r spanRef) {
	s := &c.slots[r.idx]
	if !s.live || s.gen != r.gen {
		return
	}
	s.live = false
	s.gen++
	c.free = append(c.free, r.idx)
}

// findPreds fills preds with, at every level, the last span whose max is
// below v. The head stands in where no such span exists.
func (c *RevIntSpanCol) findPreds(v int, preds *[MaxSpanLevel]int32) {
	cur := headSlot
	for l := MaxSpanLevel - 1; l >= 0; l-- {
		for {
			nx := c.slots[cur].next[l]
			if nx.idx == tailSlot || c.at(nx).max >= v {
				break
			}
			cur = nx.idx
		}
		preds[l] = cur
	}
}

// after returns the level-0 successor of idx.
func (c *RevIntSpanCol) after(idx int32) int32 {
	return c.slots[idx].next[0].idx
}

// Find returns the span containing v.
func (c *RevIntSpanCol) Find(v int) (Span, bool) {
	s, ok := c.FindNext(v)
	if !ok || s.Min > v {
		return Span{}, false
	}
	return s, true
}

// FindNext returns the span containing v or, failing that, the first span
// after v.
func (c *RevIntSpanCol) FindNext(v int) (Span, bool) {
	var preds [MaxSpanLevel]int32
	c.findPreds(v, &preds)
	nx := c.after(preds[0])
	if nx == tailSlot {
		return Span{}, false
	}
	return c.slots[nx].view(), true
}

// FindPrev returns the span containing v or, failing that, the last span
// before v.
func (c *RevIntSpanCol) FindPrev(v int) (Span, bool) {
	var preds [MaxSpanLevel]int32
	c.findPreds(v, &preds)
	if nx := c.after(preds[0]); nx != tailSlot && c.slots[nx].min <= v {
		return c.slots[nx].view(), true
	}
	if preds[0] == headSlot {
		return Span{}, false
	}
	return c.slots[preds[0]].view(), true
}

// First returns the lowest span.
func (c *RevIntSpanCol) First() (Span, bool) {
	nx := c.after(headSlot)
	if nx == tailSlot {
		return Span{}, false
	}
	return c.slots[nx].view(), true
}

// Last returns the highest span.
func (c *RevIntSpanCol) Last() (Span, bool) {
	var preds [MaxSpanLevel]int32
	c.findPreds(math.MaxInt, &preds)
	if preds[0] == headSlot {
		return Span{}, false
	}
	return c.slots[preds[0]].view(), true
}

// Spans iterates over the spans in ascending order. The collection must not
// be modified during iteration.
func (c *RevIntSpanCol) Spans() iter.Seq[Span] {
	return func(yield func(Span) bool) {
		for idx := c.after(headSlot); idx != tailSlot; idx = c.after(idx) {
			if !yield(c.slots[idx].view()) {
				return
			}
		}
	}
}

// SpansFrom iterates over the spans whose max is at least v.
func (c *RevIntSpanCol) SpansFrom(v int) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		var preds [MaxSpanLevel]int32
		c.findPreds(v, &preds)
		for idx := c.after(preds[0]); idx != tailSlot; idx = c.after(idx) {
			if !yield(c.slots[idx].view()) {
				return
			}
		}
	}
}

// insert links a new span after preds. preds must have been computed for
// min so that the new span lands in order.
func (c *RevIntSpanCol) insert(preds *[MaxSpanLevel]int32, min, max, v0, v1 int) int32 {
	idx := c.alloc(min, max, v0, v1)
	s := &c.slots[idx]
	for l := range s.next {
		p := preds[l]
		s.next[l] = c.slots[p].next[l]
		c.saveSlot(p)
		c.slots[p].next[l] = c.ref(idx)
	}
	c.saveState()
	c.st.count++
	c.st.card += max - min + 1
	return idx
}

// unlink removes span idx. preds must have been computed for its min.
func (c *RevIntSpanCol) unlink(preds *[MaxSpanLevel]int32, idx int32) {
	s := &c.slots[idx]
	for l := range s.next {
		p := preds[l]
		if c.slots[p].next[l].idx != idx {
			continue
		}
		c.saveSlot(p)
		c.slots[p].next[l] = s.next[l]
	}
	c.saveState()
	c.st.count--
	c.st.card -= s.max - s.min + 1
	if c.mgr.Depth() == 0 {
		c.freeSlot(c.ref(idx))
	}
}

// resize changes the interval of span idx in place.
func (c *RevIntSpanCol) resize(idx int32, min, max int) {
	s := &c.slots[idx]
	c.saveSlot(idx)
	c.saveState()
	c.st.card += (max - min) - (s.max - s.min)
	s.min, s.max = min, max
}

// splitAt cuts span idx before at, which must lie in (min, max]. The upper
// part becomes a new span with the same payload, which is returned.
func (c *RevIntSpanCol) splitAt(idx int32, at int) int32 {
	s := c.slots[idx]
	c.resize(idx, s.min, at-1)
	var preds [MaxSpanLevel]int32
	c.findPreds(at, &preds)
	return c.insert(&preds, at, s.max, s.v0, s.v1)
}

func checkSpanRange(lo, hi int) {
	if lo == math.MinInt || hi == math.MaxInt {
		panic("clp: span range reaches sentinel value")
	}
}

// RemoveRange removes [lo, hi] from the collection, cutting spans that
// straddle either end.
func (c *RevIntSpanCol) RemoveRange(lo, hi int) {
	if lo > hi {
		return
	}
	checkSpanRange(lo, hi)
	var preds [MaxSpanLevel]int32
	for {
		c.findPreds(lo, &preds)
		idx := c.after(preds[0])
		if idx == tailSlot {
			return
		}
		s := c.slots[idx]
		switch {
		case s.min > hi:
			return
		case s.min < lo && s.max > hi:
			c.resize(idx, s.min, lo-1)
			c.findPreds(hi+1, &preds)
			c.insert(&preds, hi+1, s.max, s.v0, s.v1)
			return
		case s.min < lo:
			c.resize(idx, s.min, lo-1)
		case s.max > hi:
			c.resize(idx, hi+1, s.max)
			return
		default:
			c.unlink(&preds, idx)
		}
	}
}

// Set makes [lo, hi] one span with payload (v0, v1), replacing whatever
// covered that range.
func (c *RevIntSpanCol) Set(lo, hi, v0, v1 int) {
	if lo > hi {
		return
	}
	checkSpanRange(lo, hi)
	c.RemoveRange(lo, hi)
	var preds [MaxSpanLevel]int32
	c.findPreds(lo, &preds)
	c.insert(&preds, lo, hi, v0, v1)
	c.normalize(lo, hi)
}

// Add adds (d0, d1) to the payload of every covered integer in [lo, hi].
// Uncovered parts of the range become new spans with payload (d0, d1).
func (c *RevIntSpanCol) Add(lo, hi, d0, d1 int) {
	if lo > hi {
		return
	}
	checkSpanRange(lo, hi)
	var preds [MaxSpanLevel]int32
	for cur := lo; cur <= hi; {
		c.findPreds(cur, &preds)
		idx := c.after(preds[0])
		if idx == tailSlot || c.slots[idx].min > hi {
			c.insert(&preds, cur, hi, d0, d1)
			break
		}
		s := c.slots[idx]
		if s.min > cur {
			c.insert(&preds, cur, s.min-1, d0, d1)
			cur = s.min
			continue
		}
		if s.min < cur {
			c.splitAt(idx, cur)
			continue
		}
		if s.max > hi {
			c.splitAt(idx, hi+1)
		}
		c.saveSlot(idx)
		c.slots[idx].v0 += d0
		c.slots[idx].v1 += d1
		if c.slots[idx].max == hi {
			break
		}
		cur = c.slots[idx].max + 1
	}
	c.normalize(lo, hi)
}

// normalize merges touching spans with equal payloads around [lo, hi].
func (c *RevIntSpanCol) normalize(lo, hi int) {
	var preds [MaxSpanLevel]int32
	c.findPreds(lo, &preds)
	idx := preds[0]
	if idx == headSlot {
		idx = c.after(headSlot)
	}
	for idx != tailSlot && c.slots[idx].min <= hi {
		nx := c.after(idx)
		if nx == tailSlot {
			return
		}
		s, t := c.slots[idx], c.slots[nx]
		if t.min == s.max+1 && t.v0 == s.v0 && t.v1 == s.v1 {
			c.findPreds(t.min, &preds)
			c.unlink(&preds, nx)
			c.resize(idx, s.min, t.max)
			continue
		}
		idx = nx
	}
}

// Check verifies the structural invariants and returns a description of the
// first violation.
func (c *RevIntSpanCol) Check() error {
	count, card := 0, 0
	prev := headSlot
	for idx := c.after(headSlot); idx != tailSlot; idx = c.after(idx) {
		s := c.at(c.slots[prev].next[0])
		if s.min > s.max {
			return fmt.Errorf("span %d: inverted [%d, %d]", idx, s.min, s.max)
		}
		if prev != headSlot {
			p := &c.slots[prev]
			if p.max >= s.min {
				return fmt.Errorf("spans [%d, %d] and [%d, %d] overlap or are out of order", p.min, p.max, s.min, s.max)
			}
			if p.max+1 == s.min && p.v0 == s.v0 && p.v1 == s.v1 {
				return fmt.Errorf("spans [%d, %d] and [%d, %d] should be merged", p.min, p.max, s.min, s.max)
			}
		}
		count++
		card += s.max - s.min + 1
		prev = idx
	}
	if count != c.st.count {
		return fmt.Errorf("span count %d, recorded %d", count, c.st.count)
	}
	if card != c.st.card {
		return fmt.Errorf("span cardinality %d, recorded %d", card, c.st.card)
	}
	for l := 1; l < MaxSpanLevel; l++ {
		lower := headSlot
		for r := c.slots[headSlot].next[l]; r.idx != tailSlot; r = c.slots[r.idx].next[l] {
			s := c.at(r)
			if len(s.next) <= l {
				return fmt.Errorf("level %d links span %d of height %d", l, r.idx, len(s.next))
			}
			for lower != r.idx {
				lower = c.after(lower)
				if lower == tailSlot {
					return fmt.Errorf("level %d links span %d missing from level 0", l, r.idx)
				}
			}
		}
	}
	return nil
}

func (c *RevIntSpanCol) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for s := range c.Spans() {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(s.String())
	}
	sb.WriteByte('}')
	return sb.String()
}
