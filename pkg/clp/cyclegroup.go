package clp

// cyclegroup.go: strongly connected sets of bounds.
//
// Every ConstrainedBound that takes part in an edge belongs to a CycleGroup.
// Groups are linked by precedence edges and keep their transitive predecessor
// and successor sets up to date as links are added. When a new link closes a
// cycle, the groups on it are merged into the largest one, so the group graph
// stays acyclic. Groups are never split: a merge survives backtracking.
// Links follow their edges, so a link made or dropped inside a search branch
// is taken back with it. Finalize bookkeeping is trailed.

import (
	"fmt"
	"slices"
)

// cgSet is an insertion-ordered set of groups.
type cgSet struct {
	items []*CycleGroup
	index map[*CycleGroup]int
}

func (s *cgSet) has(g *CycleGroup) bool {
	_, ok := s.index[g]
	return ok
}

func (s *cgSet) add(g *CycleGroup) bool {
	if s.has(g) {
		return false
	}
	if s.index == nil {
		s.index = make(map[*CycleGroup]int)
	}
	s.index[g] = len(s.items)
	s.items = append(s.items, g)
	return true
}

func (s *cgSet) remove(g *CycleGroup) bool {
	i, ok := s.index[g]
	if !ok {
		return false
	}
	delete(s.index, g)
	s.items = slices.Delete(s.items, i, i+1)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
	return true
}

func (s *cgSet) len() int { return len(s.items) }

func (s *cgSet) list() []*CycleGroup { return slices.Clone(s.items) }

// CycleGroup is a set of bounds that are mutually reachable through edges.
type CycleGroup struct {
	id      int
	prop    *BoundPropagator
	members []*ConstrainedBound

	preds, succs       cgSet
	allPreds, allSuccs cgSet
	eclipsedBy         *CycleGroup

	suspended          bool
	finalized          bool
	unfinalizedMembers int
	unfinalizedPreds   int
	successorDepth     int
}

// ID returns the group's number, unique within a Manager.
func (g *CycleGroup) ID() int { return g.id }

// Members returns the bounds in the group.
func (g *CycleGroup) Members() []*ConstrainedBound { return slices.Clone(g.members) }

// Len returns the number of member bounds.
func (g *CycleGroup) Len() int { return len(g.members) }

// Preds returns the direct predecessor groups.
func (g *CycleGroup) Preds() []*CycleGroup { return g.preds.list() }

// Succs returns the direct successor groups.
func (g *CycleGroup) Succs() []*CycleGroup { return g.succs.list() }

// AllPreds returns every group that can reach g.
func (g *CycleGroup) AllPreds() []*CycleGroup { return g.allPreds.list() }

// AllSuccs returns every group reachable from g.
func (g *CycleGroup) AllSuccs() []*CycleGroup { return g.allSuccs.list() }

// Precedes reports whether g reaches o.
func (g *CycleGroup) Precedes(o *CycleGroup) bool { return g.allSuccs.has(o) }

// EclipsedBy returns the group g was merged into, or nil while g is live.
func (g *CycleGroup) EclipsedBy() *CycleGroup { return g.eclipsedBy }

// IsSuspended reports whether member propagation is held back.
func (g *CycleGroup) IsSuspended() bool { return g.suspended }

// IsFinalized reports whether every member has been finalized.
func (g *CycleGroup) IsFinalized() bool { return g.finalized }

// UnfinalizedMembers returns the number of members not yet finalized.
func (g *CycleGroup) UnfinalizedMembers() int { return g.unfinalizedMembers }

// UnfinalizedPreds returns the number of direct predecessors not yet
// finalized.
func (g *CycleGroup) UnfinalizedPreds() int { return g.unfinalizedPreds }

// SuccessorDepth returns the longest path, in groups, to a sink as computed
// by the last SetSuccessorDepth.
func (g *CycleGroup) SuccessorDepth() int { return g.successorDepth }

func (g *CycleGroup) String() string {
	names := make([]string, len(g.members))
	for i, b := range g.members {
		names[i] = b.name + "." + b.kind.String()
	}
	return fmt.Sprintf("cg%d%v", g.id, names)
}

// live follows merges to the group that currently stands for g.
func (g *CycleGroup) live() *CycleGroup {
	for g.eclipsedBy != nil {
		g = g.eclipsedBy
	}
	return g
}

// recount recomputes the finalize counters from the current structure and
// updates the suspended and finalized flags. Newly unsuspended members are
// queued.
func (g *CycleGroup) recount() {
	m := g.prop.mgr
	members := 0
	for _, b := range g.members {
		if !b.finalized {
			members++
		}
	}
	preds := 0
	for _, p := range g.preds.items {
		if !p.finalized {
			preds++
		}
	}
	if members != g.unfinalizedMembers {
		RevSet(m, &g.unfinalizedMembers, members)
	}
	if preds != g.unfinalizedPreds {
		RevSet(m, &g.unfinalizedPreds, preds)
	}
	if fin := members == 0; fin != g.finalized {
		RevSet(m, &g.finalized, fin)
	}
	if susp := preds > 0; susp != g.suspended {
		RevSet(m, &g.suspended, susp)
		if !susp {
			for _, b := range g.members {
				g.prop.enqueue(b)
			}
		}
	}
}

// finalizeMember is called when one member bound is finalized. When the last
// member is done, the group is finalized and its successors are told.
func (g *CycleGroup) finalizeMember() {
	if g.eclipsedBy != nil {
		panic("clp: finalize reached eclipsed cycle group " + g.String())
	}
	if !g.prop.finalizing {
		return
	}
	was := g.finalized
	g.recount()
	if g.finalized && !was {
		g.prop.mgr.log.Debug().Int("cg", g.id).Msg("cycle group finalized")
		for _, s := range g.succs.items {
			s.finalizePred()
		}
	}
}

// finalizePred is called when a direct predecessor is finalized. When no
// predecessor is left open the group is unsuspended.
func (g *CycleGroup) finalizePred() {
	if g.eclipsedBy != nil {
		panic("clp: finalize reached eclipsed cycle group " + g.String())
	}
	g.recount()
}
