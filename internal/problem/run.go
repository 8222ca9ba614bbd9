package problem

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitrdm/gokanclp/pkg/clp"
)

// Options controls how a problem is solved.
type Options struct {
	Logger  zerolog.Logger
	Monitor *clp.Monitor

	// MaxSolutions caps enumeration when the problem sets no limit. Zero
	// means all.
	MaxSolutions int

	// Backing is used when the problem does not name one.
	Backing clp.Backing

	MaxPropagationSteps int
}

// DefaultOptions returns options that enumerate everything with the array
// backing and discard logs.
func DefaultOptions() Options {
	return Options{Logger: zerolog.Nop(), Backing: clp.BackingArray}
}

// Value is the final window of one variable. Fixed variables have Min == Max.
type Value struct {
	Name string `json:"name" yaml:"name"`
	Min  int    `json:"min" yaml:"min"`
	Max  int    `json:"max" yaml:"max"`
}

// Result is the outcome of one Run.
type Result struct {
	Name    string `json:"name" yaml:"name"`
	Kind    Kind   `json:"kind" yaml:"kind"`
	Session string `json:"session" yaml:"session"`

	// Feasible is false when the problem has no solution.
	Feasible bool `json:"feasible" yaml:"feasible"`
	// Complete is true when the search ran to exhaustion.
	Complete bool `json:"complete" yaml:"complete"`

	Solutions [][]Value `json:"solutions,omitempty" yaml:"solutions,omitempty"`

	// Groups lists precedence nodes that ended up in one cycle group.
	Groups [][]string `json:"groups,omitempty" yaml:"groups,omitempty"`

	// Profile and Overloads describe a capacity problem.
	Profile   []clp.Span `json:"profile,omitempty" yaml:"profile,omitempty"`
	Peak      int        `json:"peak,omitempty" yaml:"peak,omitempty"`
	Overloads []clp.Span `json:"overloads,omitempty" yaml:"overloads,omitempty"`

	Stats    clp.SearchStats `json:"stats" yaml:"stats"`
	Duration time.Duration   `json:"duration" yaml:"duration"`
}

// Run solves p on a fresh Manager. The context is checked between
// solutions; a deadline stops enumeration early and is not an error.
func Run(ctx context.Context, p *Problem, opts Options) (*Result, error) {
	m := clp.NewManagerWithConfig(&clp.Config{
		Logger:              opts.Logger.With().Str("problem", p.Name).Logger(),
		Monitor:             opts.Monitor,
		MaxPropagationSteps: opts.MaxPropagationSteps,
	})
	defer m.Close()

	start := time.Now()
	res := &Result{Name: p.Name, Kind: p.Kind, Session: m.ID()}

	var err error
	switch p.Kind {
	case KindPrecedence:
		err = runPrecedence(m, p, res)
	case KindQueens:
		err = runQueens(ctx, m, p, opts, res)
	case KindCapacity:
		runCapacity(m, p, res)
	default:
		err = invalid("unknown kind %q", p.Kind)
	}

	res.Duration = time.Since(start)
	res.Stats = m.Stats()
	outcome := "solved"
	switch {
	case err != nil:
		outcome = "error"
	case !res.Feasible:
		outcome = "infeasible"
	case !res.Complete:
		outcome = "partial"
	}
	opts.Monitor.ObserveSearch(outcome, res.Duration)
	m.Logger().Info().Str("outcome", outcome).Int("solutions", len(res.Solutions)).Dur("took", res.Duration).Msg("problem finished")
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", p.Name, err)
	}
	return res, nil
}

func runPrecedence(m *clp.Manager, p *Problem, res *Result) error {
	horizon := p.Horizon
	if horizon == 0 {
		horizon = DefaultHorizon
	}
	vars := make(map[string]*clp.RangeVar, len(p.Nodes))
	order := make([]*clp.RangeVar, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		lst := horizon
		if n.LST != nil {
			lst = *n.LST
		}
		if n.EST > lst {
			return nil
		}
		v := m.NewRangeVar(n.Name, n.EST, lst)
		vars[n.Name] = v
		order = append(order, v)
	}
	for _, e := range p.Edges {
		err := m.AddConstraint(clp.NewPrecedence(vars[e.From], vars[e.To], e.Lag))
		if clp.IsInconsistent(err) {
			m.Logger().Debug().Str("from", e.From).Str("to", e.To).Err(err).Msg("precedence infeasible")
			return nil
		}
		if err != nil {
			return err
		}
	}

	sol := make([]Value, len(order))
	for i, v := range order {
		sol[i] = Value{Name: v.Name(), Min: v.Min(), Max: v.Max()}
	}
	res.Solutions = [][]Value{sol}
	res.Feasible, res.Complete = true, true

	for _, g := range m.Propagator().CycleGroups() {
		var names []string
		for _, b := range g.Members() {
			if b.Kind() == clp.LowerBound {
				names = append(names, b.Name())
			}
		}
		if len(names) > 1 {
			res.Groups = append(res.Groups, names)
		}
	}
	return nil
}

func runQueens(ctx context.Context, m *clp.Manager, p *Problem, opts Options, res *Result) error {
	backing := opts.Backing
	if p.Backing != "" {
		b, err := clp.ParseBacking(p.Backing)
		if err != nil {
			return err
		}
		backing = b
	}
	limit := p.Limit
	if limit == 0 {
		limit = opts.MaxSolutions
	}

	n := p.Size
	qs := make([]*clp.IntExp, n)
	up, down := make([]int, n), make([]int, n)
	for i := range qs {
		qs[i] = m.NewIntExp(fmt.Sprintf("q%d", i), 0, n-1, backing)
		up[i], down[i] = i, -i
	}
	m.Add(clp.NewAllDifferent(qs...))
	m.Add(clp.NewAllDifferentOffset(qs, up))
	m.Add(clp.NewAllDifferentOffset(qs, down))
	m.Add(clp.InstantiateAll(qs...))

	res.Complete = true
	for _, err := range m.Solutions(limit) {
		if err != nil {
			return err
		}
		sol := make([]Value, n)
		for i, q := range qs {
			sol[i] = Value{Name: q.Name(), Min: q.Min(), Max: q.Max()}
		}
		res.Solutions = append(res.Solutions, sol)
		if limit > 0 && len(res.Solutions) == limit {
			res.Complete = false
			break
		}
		if err := ctx.Err(); err != nil {
			m.Logger().Warn().Err(err).Int("solutions", len(res.Solutions)).Msg("search stopped early")
			res.Complete = false
			break
		}
	}
	res.Feasible = len(res.Solutions) > 0
	return nil
}

func runCapacity(m *clp.Manager, p *Problem, res *Result) {
	profile := clp.NewRevIntSpanCol(m)
	for _, u := range p.Usages {
		profile.Add(u.From, u.To, u.Amount, 1)
	}
	for s := range profile.Spans() {
		res.Profile = append(res.Profile, s)
		res.Peak = max(res.Peak, s.V0)
		if p.Capacity > 0 && s.V0 > p.Capacity {
			res.Overloads = append(res.Overloads, s)
		}
	}
	res.Feasible = len(res.Overloads) == 0
	res.Complete = true
}
