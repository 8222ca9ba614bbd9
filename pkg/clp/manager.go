package clp

// manager.go: the search driver. A Manager owns the goal stack, the
// choice-point stack, the trail and the bound propagator of one solve
// session. It is not safe for concurrent use; run independent Managers for
// parallel work.

import (
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds Manager construction options.
type Config struct {
	// Logger receives debug events for choice points, backtracks and cycle
	// merges, and info events for solutions. The zero value discards.
	Logger zerolog.Logger

	// Monitor, if set, receives search and propagation counters.
	Monitor *Monitor

	// MaxPropagationSteps bounds the number of bound propagations performed
	// by one Propagate call. Exceeding it fails the current branch. Zero
	// means unlimited.
	MaxPropagationSteps int

	// SessionID names the session in logs. A random UUID is used if empty.
	SessionID string
}

// DefaultConfig returns the default Manager configuration.
func DefaultConfig() *Config {
	return &Config{
		Logger: zerolog.Nop(),
	}
}

// Manager drives depth-first search over goals with reversible state.
//
// Typical use:
//
//	m := clp.NewManager()
//	x := m.NewIntExp("x", 1, 9, clp.BackingArray)
//	m.Add(clp.Instantiate(x))
//	for {
//		ok, err := m.NextSolution()
//		if err != nil || !ok {
//			break
//		}
//		fmt.Println(x.Value())
//	}
type Manager struct {
	id  string
	log zerolog.Logger

	goals []Goal
	cps   []*ChoicePoint
	pool  []*ChoicePoint

	trail   []undoer
	serial  uint64
	undoing bool

	constraints map[Constraint]struct{}
	prop        *BoundPropagator
	monitor     *Monitor

	started   bool
	exhausted bool
	closed    bool

	stats SearchStats
}

// NewManager creates a Manager with DefaultConfig.
func NewManager() *Manager {
	return NewManagerWithConfig(DefaultConfig())
}

// NewManagerWithConfig creates a Manager. A nil config means DefaultConfig.
func NewManagerWithConfig(cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	id := cfg.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	m := &Manager{
		id:          id,
		log:         cfg.Logger.With().Str("session", id).Logger(),
		constraints: make(map[Constraint]struct{}),
		monitor:     cfg.Monitor,
	}
	m.prop = newBoundPropagator(m, cfg.MaxPropagationSteps)
	return m
}

// ID returns the session id.
func (m *Manager) ID() string { return m.id }

// Logger returns the session logger.
func (m *Manager) Logger() *zerolog.Logger { return &m.log }

// SetMonitor attaches (or with nil, detaches) a Monitor.
func (m *Manager) SetMonitor(mon *Monitor) { m.monitor = mon }

// Propagator returns the session's bound propagator.
func (m *Manager) Propagator() *BoundPropagator { return m.prop }

// Depth returns the number of choice points on the stack.
func (m *Manager) Depth() int { return len(m.cps) }

// Stats returns a copy of the search statistics.
func (m *Manager) Stats() SearchStats {
	st := m.stats
	st.Propagations = m.prop.steps
	st.PeakQueue = m.prop.peakQueue
	st.CycleMerges = m.prop.merges
	return st
}

// Add pushes g onto the goal stack. Goals added before the first call to
// NextSolution run in the order they were added.
func (m *Manager) Add(g Goal) {
	m.push(g)
}

func (m *Manager) push(g Goal) {
	retainGoal(g)
	m.goals = append(m.goals, g)
}

func (m *Manager) pop() Goal {
	n := len(m.goals) - 1
	g := m.goals[n]
	m.goals[n] = nil
	m.goals = m.goals[:n]
	return g
}

// NextSolution searches for the next solution.
//
// It returns true when the goal stack empties in a consistent state, and
// false once every choice point is exhausted. The first call starts the
// search; each later call first backtracks out of the previous solution.
// Inconsistencies are handled internally. Any other error returned by a goal
// aborts the search and is returned wrapped.
func (m *Manager) NextSolution() (bool, error) {
	if m.closed {
		return false, ErrClosed
	}
	if !m.started {
		m.started = true
		slices.Reverse(m.goals)
		root := m.pushChoicePoint(nil)
		root.root = true
		m.log.Debug().Int("goals", len(m.goals)).Msg("search started")
	} else if !m.backtrack("") {
		return false, nil
	}

	for {
		if len(m.goals) == 0 {
			m.stats.Solutions++
			m.monitor.solution()
			m.log.Info().Int("solution", m.stats.Solutions).Int("depth", len(m.cps)).Msg("solution found")
			return true, nil
		}

		if or, ok := m.goals[len(m.goals)-1].(*OrGoal); ok {
			cp := m.cps[len(m.cps)-1]
			if cp.or != or || !cp.resuming {
				cp = m.pushChoicePoint(or)
			}
			cp.resuming = false
			releaseGoal(m.pop())
			alt, ok := cp.NextChoice()
			if !ok {
				if !m.backtrack("") {
					return false, nil
				}
				continue
			}
			m.push(alt)
			continue
		}

		g := m.pop()
		m.stats.Nodes++
		m.monitor.node()
		err := m.run(g)
		releaseGoal(g)
		if err == nil {
			err = m.Propagate()
		}
		if err == nil {
			continue
		}
		inc, ok := AsInconsistency(err)
		if !ok {
			return false, fmt.Errorf("clp: search aborted in %s: %w", goalName(g), err)
		}
		m.prop.ClearPropQ()
		if !m.backtrack(inc.Label) {
			return false, nil
		}
	}
}

// Solutions enumerates up to limit solutions (all of them if limit <= 0),
// yielding the 1-based solution number. The search stops early when the
// loop body breaks. A search error is yielded once and ends the sequence.
func (m *Manager) Solutions(limit int) iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for n := 1; limit <= 0 || n <= limit; n++ {
			ok, err := m.NextSolution()
			if err != nil {
				yield(n, err)
				return
			}
			if !ok || !yield(n, nil) {
				return
			}
		}
	}
}

func (m *Manager) run(g Goal) error {
	if c, ok := g.(Constraint); ok {
		return m.AddConstraint(MClone(c))
	}
	return g.Execute(m)
}

// Propagate drains the bound propagation queue to a fixpoint.
func (m *Manager) Propagate() error {
	return m.prop.Propagate()
}

func (m *Manager) pushChoicePoint(or *OrGoal) *ChoicePoint {
	var cp *ChoicePoint
	if n := len(m.pool); n > 0 {
		cp = m.pool[n-1]
		m.pool = m.pool[:n-1]
	} else {
		cp = &ChoicePoint{}
	}
	cp.free = false
	cp.or = or
	cp.next = 0
	cp.snapshot(m.goals)
	cp.marker = len(m.trail)
	m.serial++
	cp.serial = m.serial
	m.cps = append(m.cps, cp)

	m.stats.ChoicePoints++
	if len(m.cps) > m.stats.MaxDepth {
		m.stats.MaxDepth = len(m.cps)
	}
	m.monitor.choicePoint()
	if or != nil {
		m.log.Debug().Int("depth", len(m.cps)).Str("label", or.label).Int("alternatives", len(or.alts)).Msg("choice point")
	}
	return cp
}

func (m *Manager) popChoicePoint() {
	n := len(m.cps) - 1
	cp := m.cps[n]
	m.cps[n] = nil
	m.cps = m.cps[:n]
	cp.reset()
	m.pool = append(m.pool, cp)
}

// backtrack unwinds to the nearest choice point that has an untried
// alternative matching label (any alternative if label is empty) and
// restores its goal stack. It returns false when only the root is left.
func (m *Manager) backtrack(label string) bool {
	m.stats.Backtracks++
	m.monitor.backtrack()
	for len(m.cps) > 0 {
		cp := m.cps[len(m.cps)-1]
		m.undoTo(cp.marker)
		if cp.matches(label) {
			cp.restore(&m.goals)
			cp.resuming = true
			m.serial++
			cp.serial = m.serial
			m.log.Debug().Int("depth", len(m.cps)).Str("label", label).Int("next", cp.next).Msg("backtrack")
			return true
		}
		if cp.root {
			for _, g := range m.goals {
				releaseGoal(g)
			}
			clear(m.goals)
			m.goals = m.goals[:0]
			m.serial++
			if !m.exhausted {
				m.exhausted = true
				m.log.Debug().Int("solutions", m.stats.Solutions).Msg("search exhausted")
			}
			return false
		}
		m.popChoicePoint()
	}
	return false
}

// PushState opens a manual save point independent of the search. Every
// reversible change made after it is undone by the matching PopState.
func (m *Manager) PushState() {
	cp := m.pushChoicePoint(nil)
	cp.manual = true
}

// PopState undoes everything since the matching PushState and restores the
// goal stack. Calling it without a manual save point on top of the stack is
// a programming error and panics.
func (m *Manager) PopState() {
	if len(m.cps) == 0 || !m.cps[len(m.cps)-1].manual {
		panic("clp: PopState without matching PushState")
	}
	cp := m.cps[len(m.cps)-1]
	m.prop.ClearPropQ()
	m.undoTo(cp.marker)
	cp.restore(&m.goals)
	m.popChoicePoint()
	m.serial++
}

// Close ends the session. Objects registered with RevAllocate are released,
// the trail is dropped and goal references are returned.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	for i := len(m.trail) - 1; i >= 0; i-- {
		if a, ok := m.trail[i].(allocEntry); ok {
			a.obj.Release()
		}
	}
	m.trail = nil
	for len(m.cps) > 0 {
		m.popChoicePoint()
	}
	for _, g := range m.goals {
		releaseGoal(g)
	}
	m.goals = nil
	m.pool = nil
	m.prop.ClearPropQ()
}

// SearchStats summarizes one session.
type SearchStats struct {
	Nodes        int // goals executed
	Backtracks   int
	Solutions    int
	ChoicePoints int // choice points created, including root and manual
	MaxDepth     int
	Constraints  int // constraints posted
	Propagations int // bound propagation steps
	CycleMerges  int
	PeakTrail    int
	PeakQueue    int
}

// String returns a one-line summary.
func (s SearchStats) String() string {
	return fmt.Sprintf("nodes=%d backtracks=%d solutions=%d choicepoints=%d maxdepth=%d constraints=%d propagations=%d merges=%d peaktrail=%d peakqueue=%d",
		s.Nodes, s.Backtracks, s.Solutions, s.ChoicePoints, s.MaxDepth, s.Constraints,
		s.Propagations, s.CycleMerges, s.PeakTrail, s.PeakQueue)
}
