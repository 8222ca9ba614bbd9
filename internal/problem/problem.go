// Package problem reads problem descriptions from YAML and turns them into
// engine objects. Three kinds are supported: precedence networks (bound
// propagation with cycle groups), n-queens (finite-domain search) and
// capacity profiles (span collections).
package problem

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/gokanclp/pkg/clp"
)

// Kind names a problem family.
type Kind string

const (
	KindPrecedence Kind = "precedence"
	KindQueens     Kind = "queens"
	KindCapacity   Kind = "capacity"
)

// DefaultHorizon is the latest time used for precedence nodes without lst.
const DefaultHorizon = 1000

// ErrInvalidProblem is wrapped by every validation error.
var ErrInvalidProblem = errors.New("invalid problem")

// Problem is the decoded form of a problem file. Which fields apply depends
// on Kind.
type Problem struct {
	Kind Kind   `yaml:"kind"`
	Name string `yaml:"name,omitempty"`

	// precedence
	Nodes   []Node `yaml:"nodes,omitempty"`
	Edges   []Edge `yaml:"edges,omitempty"`
	Horizon int    `yaml:"horizon,omitempty"`

	// queens
	Size    int    `yaml:"size,omitempty"`
	Limit   int    `yaml:"limit,omitempty"`
	Backing string `yaml:"backing,omitempty"`

	// capacity
	Usages   []Usage `yaml:"usages,omitempty"`
	Capacity int     `yaml:"capacity,omitempty"`
}

// Node is a precedence activity with an optional time window.
type Node struct {
	Name string `yaml:"name"`
	EST  int    `yaml:"est,omitempty"`
	LST  *int   `yaml:"lst,omitempty"`
}

// Edge requires To to start at least Lag after From.
type Edge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Lag  int    `yaml:"lag"`
}

// Usage consumes Amount of the resource over [From, To].
type Usage struct {
	From   int `yaml:"from"`
	To     int `yaml:"to"`
	Amount int `yaml:"amount"`
}

// Load reads and validates a problem file.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = path
	}
	return p, nil
}

// Parse decodes and validates a problem. Unknown keys are rejected.
func Parse(data []byte) (*Problem, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var p Problem
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse problem: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Marshal encodes p as YAML.
func (p *Problem) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidProblem, fmt.Sprintf(format, args...))
}

// Validate checks the fields required by p.Kind.
func (p *Problem) Validate() error {
	switch p.Kind {
	case KindPrecedence:
		if len(p.Nodes) == 0 {
			return invalid("precedence problem has no nodes")
		}
		if p.Horizon < 0 {
			return invalid("negative horizon %d", p.Horizon)
		}
		seen := make(map[string]bool, len(p.Nodes))
		for _, n := range p.Nodes {
			if n.Name == "" {
				return invalid("node without a name")
			}
			if seen[n.Name] {
				return invalid("duplicate node %q", n.Name)
			}
			seen[n.Name] = true
			if n.LST != nil && *n.LST < n.EST {
				return invalid("node %q: lst %d before est %d", n.Name, *n.LST, n.EST)
			}
		}
		for _, e := range p.Edges {
			if !seen[e.From] || !seen[e.To] {
				return invalid("edge %s -> %s names an unknown node", e.From, e.To)
			}
		}
	case KindQueens:
		if p.Size < 1 {
			return invalid("queens size %d", p.Size)
		}
		if p.Limit < 0 {
			return invalid("negative limit %d", p.Limit)
		}
		if p.Backing != "" {
			if _, err := clp.ParseBacking(p.Backing); err != nil {
				return invalid("%v", err)
			}
		}
	case KindCapacity:
		if len(p.Usages) == 0 {
			return invalid("capacity problem has no usages")
		}
		for i, u := range p.Usages {
			if u.From > u.To {
				return invalid("usage %d: from %d after to %d", i, u.From, u.To)
			}
		}
		if p.Capacity < 0 {
			return invalid("negative capacity %d", p.Capacity)
		}
	case "":
		return invalid("missing kind")
	default:
		return invalid("unknown kind %q", p.Kind)
	}
	return nil
}
