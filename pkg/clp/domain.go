package clp

// domain.go: the finite-domain interface shared by the three backings, and
// the Backing selector used by constructors and the CLI.

import (
	"fmt"
	"iter"
	"math"
	"strings"
)

// IntDomain is a reversible set of integers.
//
// An empty domain reports Min() == math.MaxInt and Max() == math.MinInt.
// AddRange and RemoveRange ignore empty ranges (lo > hi). Mutations must go
// through the trail; every implementation in this package does so.
type IntDomain interface {
	Min() int
	Max() int
	Size() int
	Has(v int) bool
	// Next returns the smallest member >= v.
	Next(v int) (int, bool)
	// Values iterates over the members in ascending order.
	Values() iter.Seq[int]
	// Ranges iterates over maximal runs of consecutive members.
	Ranges() iter.Seq2[int, int]
	AddRange(lo, hi int)
	RemoveRange(lo, hi int)
	String() string
}

// Backing selects a domain representation.
type Backing int

const (
	// BackingArray is a bitmap over a fixed universe, for small dense
	// domains.
	BackingArray Backing = iota
	// BackingCounted keeps a multiplicity per value; a value leaves the
	// domain when its count reaches zero.
	BackingCounted
	// BackingSpan stores runs in a skip list, for sparse or wide domains.
	BackingSpan
)

var backingNames = map[Backing]string{
	BackingArray:   "array",
	BackingCounted: "counted",
	BackingSpan:    "span",
}

func (b Backing) String() string {
	if s, ok := backingNames[b]; ok {
		return s
	}
	return fmt.Sprintf("Backing(%d)", int(b))
}

// ParseBacking converts a backing name ("array", "counted", "span").
func ParseBacking(s string) (Backing, error) {
	for b, name := range backingNames {
		if strings.EqualFold(s, name) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown domain backing %q", s)
}

// NewDomain creates a full domain [lo, hi] with the given backing.
func NewDomain(m *Manager, b Backing, lo, hi int) IntDomain {
	switch b {
	case BackingArray:
		return NewArrayDomain(m, lo, hi)
	case BackingCounted:
		return NewCountedDomain(m, lo, hi, 1)
	case BackingSpan:
		return NewSpanDomain(m, lo, hi)
	}
	panic(fmt.Sprintf("clp: unknown backing %d", int(b)))
}

// domState is the min/max/size summary that array-style backings keep and
// save once per search epoch.
type domState struct {
	size     int
	min, max int
}

func emptyDomState() domState {
	return domState{min: math.MaxInt, max: math.MinInt}
}

// formatDomain renders a domain as {1..3 5 7..9}.
func formatDomain(d IntDomain) string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for lo, hi := range d.Ranges() {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		if lo == hi {
			fmt.Fprintf(&sb, "%d", lo)
		} else {
			fmt.Fprintf(&sb, "%d..%d", lo, hi)
		}
	}
	sb.WriteByte('}')
	return sb.String()
}

// rangesFromValues groups an ascending value sequence into runs.
func rangesFromValues(values iter.Seq[int]) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		lo, hi, open := 0, 0, false
		for v := range values {
			if open && v == hi+1 {
				hi = v
				continue
			}
			if open && !yield(lo, hi) {
				return
			}
			lo, hi, open = v, v, true
		}
		if open {
			yield(lo, hi)
		}
	}
}
