package clp

// propagator.go: the FIFO bound worklist and the precedence graph over cycle
// groups.

import (
	"slices"
)

// BoundPropagator runs bound propagation to a fixpoint and maintains the
// cycle group graph. Each Manager owns exactly one.
type BoundPropagator struct {
	mgr      *Manager
	queue    []*ConstrainedBound
	head     int
	running  bool
	maxSteps int

	groups     cgSet
	nextID     int
	finalizing bool

	// Scratch state of the cycle search. At most one search may be in
	// flight; searching guards it.
	searching bool
	dfs       []dfsFrame
	onStack   map[*CycleGroup]bool
	done      map[*CycleGroup]bool

	steps     int
	peakQueue int
	merges    int
}

type dfsFrame struct {
	g    *CycleGroup
	next int
}

func newBoundPropagator(m *Manager, maxSteps int) *BoundPropagator {
	return &BoundPropagator{
		mgr:      m,
		maxSteps: maxSteps,
		onStack:  make(map[*CycleGroup]bool),
		done:     make(map[*CycleGroup]bool),
	}
}

func (p *BoundPropagator) newCycleGroup(b *ConstrainedBound) *CycleGroup {
	g := &CycleGroup{id: p.nextID, prop: p, members: []*ConstrainedBound{b}}
	p.nextID++
	if p.finalizing && !b.finalized {
		g.unfinalizedMembers = 1
	}
	g.finalized = g.unfinalizedMembers == 0 && p.finalizing
	p.groups.add(g)
	return g
}

// CycleGroups returns the live (not merged away) groups in creation order.
func (p *BoundPropagator) CycleGroups() []*CycleGroup { return p.groups.list() }

// QueueLen returns the number of bounds waiting to propagate.
func (p *BoundPropagator) QueueLen() int { return len(p.queue) - p.head }

func (p *BoundPropagator) enqueue(b *ConstrainedBound) {
	if b.queued {
		return
	}
	b.queued = true
	p.queue = append(p.queue, b)
	if n := len(p.queue) - p.head; n > p.peakQueue {
		p.peakQueue = n
		p.mgr.monitor.queueSize(n)
	}
}

// Propagate drains the queue in FIFO order. A bound that is tightened again
// while it propagates is queued again. On failure the queue is cleared and
// the inconsistency returned. Calls made while a drain is running return
// immediately; the running drain picks up the new work.
func (p *BoundPropagator) Propagate() error {
	if p.running {
		return nil
	}
	p.running = true
	defer func() { p.running = false }()

	n := 0
	for p.head < len(p.queue) {
		b := p.queue[p.head]
		p.queue[p.head] = nil
		p.head++
		b.queued = false
		if b.inProcess {
			panic("clp: bound " + b.name + " re-entered propagation")
		}
		b.inProcess = true
		err := b.propagate()
		b.inProcess = false
		p.steps++
		p.mgr.monitor.propagation()
		n++
		if err == nil && p.maxSteps > 0 && n >= p.maxSteps && p.head < len(p.queue) {
			err = Inconsistentf("propagation step limit %d reached", p.maxSteps)
		}
		if err != nil {
			p.ClearPropQ()
			return err
		}
	}
	p.queue = p.queue[:0]
	p.head = 0
	return nil
}

// ClearPropQ drops all queued work.
func (p *BoundPropagator) ClearPropQ() {
	for _, b := range p.queue[p.head:] {
		b.queued = false
	}
	clear(p.queue)
	p.queue = p.queue[:0]
	p.head = 0
}

// AddBoundCt wires dst to src with lag d. From a lower-bound source the edge
// enforces dst >= src + d, from an upper-bound source dst <= src - d. dst is
// tightened immediately; the edge then follows src incrementally. With
// cycleCheck the group graph is searched for a cycle through src's group
// and any cycle found is merged.
func (p *BoundPropagator) AddBoundCt(src, dst *ConstrainedBound, d int, cycleCheck bool) (*BoundCt, error) {
	var err error
	e := &BoundCt{src: src, dst: dst, d: d}
	if src.kind == LowerBound {
		err = dst.SetLB(src.Get() + d)
		e.v = src.st.last + d
	} else {
		err = dst.SetUB(src.Get() - d)
		e.v = src.st.last - d
	}
	if err != nil {
		return nil, err
	}
	// The link goes on the trail before the edge so that backtracking
	// detaches the edge first and then finds the link unsupported.
	p.AddPrecedenceLink(src.CycleGroup(), dst.CycleGroup(), cycleCheck)
	RevSet(p.mgr, &src.out, append(src.out, e))
	return e, nil
}

// RemoveBoundCt detaches e from its source. Removing an edge that is not
// attached is a no-op. When no other edge runs between the two groups the
// precedence link goes too; merged groups stay merged.
func (p *BoundPropagator) RemoveBoundCt(e *BoundCt) {
	i := slices.Index(e.src.out, e)
	if i < 0 {
		return
	}
	out := slices.Delete(slices.Clone(e.src.out), i, i+1)
	RevSet(p.mgr, &e.src.out, out)

	src, dst := e.src.CycleGroup().live(), e.dst.CycleGroup().live()
	if src == dst || !src.succs.has(dst) || p.supported(src, dst) {
		return
	}
	p.unlink(src, dst)
	p.rebuildClosure()
	p.mgr.RevAction(func() { p.relink(src, dst) })
	if p.finalizing {
		dst.recount()
	}
}

// AddPrecedenceLink records that src precedes dst and updates the transitive
// sets. If the link closes a cycle and cycleCheck is set, the groups on the
// cycle are merged. Backtracking past the call removes the link again unless
// an edge still runs between the groups.
func (p *BoundPropagator) AddPrecedenceLink(src, dst *CycleGroup, cycleCheck bool) {
	src, dst = src.live(), dst.live()
	if src == dst || src.succs.has(dst) {
		return
	}
	src.succs.add(dst)
	dst.preds.add(src)
	cycle := dst.allSuccs.has(src)

	var added []cgPair
	ups := append([]*CycleGroup{src}, src.allPreds.items...)
	downs := append([]*CycleGroup{dst}, dst.allSuccs.items...)
	for _, u := range ups {
		for _, d := range downs {
			if u == d || !u.allSuccs.add(d) {
				continue
			}
			d.allPreds.add(u)
			added = append(added, cgPair{u, d})
		}
	}
	if p.mgr.Depth() > 0 {
		merges := p.merges
		p.mgr.RevAction(func() { p.undoLink(src, dst, added, merges) })
	}

	if p.finalizing {
		dst.recount()
	}
	if cycle && cycleCheck {
		p.findCycles(src)
	}
}

// cgPair is one entry of the transitive relation, from reaching to.
type cgPair struct{ from, to *CycleGroup }

// undoLink takes back a link made by AddPrecedenceLink. Without merges in
// between, the pairs it added are exactly the ones to drop; otherwise the
// transitive sets are rebuilt.
func (p *BoundPropagator) undoLink(src, dst *CycleGroup, added []cgPair, merges int) {
	src, dst = src.live(), dst.live()
	if src == dst || p.supported(src, dst) {
		return
	}
	p.unlink(src, dst)
	if merges != p.merges {
		p.rebuildClosure()
		return
	}
	for _, pr := range added {
		pr.from.allSuccs.remove(pr.to)
		pr.to.allPreds.remove(pr.from)
	}
}

// relink restores a link dropped by RemoveBoundCt.
func (p *BoundPropagator) relink(src, dst *CycleGroup) {
	src, dst = src.live(), dst.live()
	if src == dst || src.succs.has(dst) {
		return
	}
	src.succs.add(dst)
	dst.preds.add(src)
	p.rebuildClosure()
}

func (p *BoundPropagator) unlink(src, dst *CycleGroup) {
	src.succs.remove(dst)
	dst.preds.remove(src)
}

// supported reports whether an attached edge runs from a member of src to a
// member of dst.
func (p *BoundPropagator) supported(src, dst *CycleGroup) bool {
	for _, b := range src.members {
		for _, e := range b.out {
			if e.dst.CycleGroup().live() == dst {
				return true
			}
		}
	}
	return false
}

// rebuildClosure recomputes every live group's transitive sets from the
// direct links.
func (p *BoundPropagator) rebuildClosure() {
	for _, g := range p.groups.items {
		g.allPreds, g.allSuccs = cgSet{}, cgSet{}
	}
	var stack []*CycleGroup
	for _, g := range p.groups.items {
		stack = append(stack[:0], g.succs.items...)
		for len(stack) > 0 {
			s := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if s == g || !g.allSuccs.add(s) {
				continue
			}
			s.allPreds.add(g)
			stack = append(stack, s.succs.items...)
		}
	}
}

// findCycles merges every cycle through start, repeating the search from the
// merged group until none is left.
func (p *BoundPropagator) findCycles(start *CycleGroup) {
	if p.searching {
		panic("clp: cycle search re-entered")
	}
	p.searching = true
	defer func() { p.searching = false }()

	for g := start; ; {
		cyc := p.cycleDFS(g)
		if cyc == nil {
			return
		}
		g = p.merge(cyc)
	}
}

// cycleDFS searches from target along successor links, only entering groups
// that can reach target again. Meeting a group already on the path means
// every group on the path lies on a cycle through target; they are returned.
func (p *BoundPropagator) cycleDFS(target *CycleGroup) []*CycleGroup {
	clear(p.onStack)
	clear(p.done)
	p.dfs = append(p.dfs[:0], dfsFrame{g: target})
	p.onStack[target] = true

	for len(p.dfs) > 0 {
		top := &p.dfs[len(p.dfs)-1]
		if top.next == top.g.succs.len() {
			delete(p.onStack, top.g)
			p.done[top.g] = true
			p.dfs = p.dfs[:len(p.dfs)-1]
			continue
		}
		s := top.g.succs.items[top.next]
		top.next++
		if s != target && !s.allSuccs.has(target) {
			continue
		}
		if p.onStack[s] {
			cyc := make([]*CycleGroup, len(p.dfs))
			for i, f := range p.dfs {
				cyc[i] = f.g
			}
			return cyc
		}
		if p.done[s] {
			continue
		}
		p.dfs = append(p.dfs, dfsFrame{g: s})
		p.onStack[s] = true
	}
	return nil
}

// merge folds groups into the one with the most members and returns it.
func (p *BoundPropagator) merge(groups []*CycleGroup) *CycleGroup {
	mother := groups[0]
	for _, g := range groups[1:] {
		if len(g.members) > len(mother.members) {
			mother = g
		}
	}
	merged := make(map[*CycleGroup]bool, len(groups))
	for _, g := range groups {
		merged[g] = true
	}

	for _, g := range groups {
		if g == mother {
			continue
		}
		for _, b := range g.members {
			b.cg = mother
		}
		mother.members = append(mother.members, g.members...)
		g.members = nil
		g.eclipsedBy = mother

		for _, o := range g.preds.items {
			o.succs.remove(g)
			if !merged[o] {
				o.succs.add(mother)
				mother.preds.add(o)
			}
		}
		for _, o := range g.succs.items {
			o.preds.remove(g)
			if !merged[o] {
				o.preds.add(mother)
				mother.succs.add(o)
			}
		}
		for _, o := range g.allPreds.items {
			o.allSuccs.remove(g)
			if !merged[o] {
				o.allSuccs.add(mother)
				mother.allPreds.add(o)
			}
		}
		for _, o := range g.allSuccs.items {
			o.allPreds.remove(g)
			if !merged[o] {
				o.allPreds.add(mother)
				mother.allSuccs.add(o)
			}
		}
		g.preds, g.succs, g.allPreds, g.allSuccs = cgSet{}, cgSet{}, cgSet{}, cgSet{}
		p.groups.remove(g)
	}
	for g := range merged {
		mother.preds.remove(g)
		mother.succs.remove(g)
		mother.allPreds.remove(g)
		mother.allSuccs.remove(g)
	}

	if p.finalizing {
		mother.recount()
		for _, s := range mother.succs.items {
			s.recount()
		}
	}
	p.merges++
	p.mgr.monitor.cycleMerge()
	p.mgr.log.Debug().Int("cg", mother.id).Int("merged", len(groups)).Int("members", len(mother.members)).Msg("cycle groups merged")
	return mother
}

// BeginFinalize enters finalize mode. Groups with open predecessors are
// suspended: their members stop propagating until every predecessor group
// has been finalized. Leaving the mode, by EndFinalize or by backtracking
// past this call, releases all groups.
func (p *BoundPropagator) BeginFinalize() {
	if p.finalizing {
		return
	}
	RevSet(p.mgr, &p.finalizing, true)
	for _, g := range p.groups.items {
		g.recount()
	}
}

// EndFinalize leaves finalize mode and unsuspends every group.
func (p *BoundPropagator) EndFinalize() {
	if !p.finalizing {
		return
	}
	RevSet(p.mgr, &p.finalizing, false)
	for _, g := range p.groups.items {
		if g.suspended {
			RevSet(p.mgr, &g.suspended, false)
			for _, b := range g.members {
				p.enqueue(b)
			}
		}
	}
}

// IsFinalizing reports whether finalize mode is on.
func (p *BoundPropagator) IsFinalizing() bool { return p.finalizing }

// SetSuccessorDepth computes, for every live group, the length of the
// longest successor chain to a sink. Sinks get 0.
func (p *BoundPropagator) SetSuccessorDepth() {
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[*CycleGroup]int, p.groups.len())
	var stack []dfsFrame
	for _, root := range p.groups.items {
		if state[root] != unvisited {
			continue
		}
		stack = append(stack[:0], dfsFrame{g: root})
		state[root] = visiting
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < top.g.succs.len() {
				s := top.g.succs.items[top.next]
				top.next++
				if state[s] == unvisited {
					state[s] = visiting
					stack = append(stack, dfsFrame{g: s})
				}
				continue
			}
			depth := 0
			for _, s := range top.g.succs.items {
				if state[s] == visited && s.successorDepth+1 > depth {
					depth = s.successorDepth + 1
				}
			}
			top.g.successorDepth = depth
			state[top.g] = visited
			stack = stack[:len(stack)-1]
		}
	}
}
