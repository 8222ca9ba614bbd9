package clp

// domain_span.go: domain stored as runs in a RevIntSpanCol.

import (
	"iter"
	"math"
)

// SpanDomain keeps its members as disjoint runs in a skip list. Payloads are
// unused (always zero), so touching runs always merge. Suited to sparse or
// very wide domains.
type SpanDomain struct {
	col *RevIntSpanCol
}

// NewSpanDomain creates the full domain [lo, hi].
func NewSpanDomain(m *Manager, lo, hi int) *SpanDomain {
	d := &SpanDomain{col: NewRevIntSpanCol(m)}
	d.col.Set(lo, hi, 0, 0)
	return d
}

// NewEmptySpanDomain creates an empty span domain.
func NewEmptySpanDomain(m *Manager) *SpanDomain {
	return &SpanDomain{col: NewRevIntSpanCol(m)}
}

// Spans exposes the underlying collection for inspection.
func (d *SpanDomain) Spans() *RevIntSpanCol { return d.col }

func (d *SpanDomain) Min() int {
	s, ok := d.col.First()
	if !ok {
		return math.MaxInt
	}
	return s.Min
}

func (d *SpanDomain) Max() int {
	s, ok := d.col.Last()
	if !ok {
		return math.MinInt
	}
	return s.Max
}

func (d *SpanDomain) Size() int { return d.col.Card() }

func (d *SpanDomain) Has(v int) bool {
	_, ok := d.col.Find(v)
	return ok
}

func (d *SpanDomain) Next(v int) (int, bool) {
	s, ok := d.col.FindNext(v)
	if !ok {
		return 0, false
	}
	return max(v, s.Min), true
}

func (d *SpanDomain) Values() iter.Seq[int] {
	return func(yield func(int) bool) {
		for s := range d.col.Spans() {
			for v := s.Min; v <= s.Max; v++ {
				if !yield(v) {
					return
				}
			}
		}
	}
}

func (d *SpanDomain) Ranges() iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for s := range d.col.Spans() {
			if !yield(s.Min, s.Max) {
				return
			}
		}
	}
}

func (d *SpanDomain) AddRange(lo, hi int) { d.col.Add(lo, hi, 0, 0) }

func (d *SpanDomain) RemoveRange(lo, hi int) {
	lo, hi = max(lo, d.Min()), min(hi, d.Max())
	d.col.RemoveRange(lo, hi)
}

func (d *SpanDomain) String() string { return formatDomain(d) }
