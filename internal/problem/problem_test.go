package problem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gokanclp/pkg/clp"
)

const precedenceYAML = `
kind: precedence
name: demo
nodes: [{name: a, est: 0}, {name: b}, {name: c}]
edges: [{from: a, to: b, lag: 3}, {from: b, to: c, lag: 2}, {from: c, to: a, lag: -5}]
`

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"precedence", precedenceYAML, ""},
		{"queens", "kind: queens\nsize: 6\nbacking: span\n", ""},
		{"capacity", "kind: capacity\nusages: [{from: 0, to: 4, amount: 2}]\n", ""},
		{"missing kind", "name: x\n", "missing kind"},
		{"unknown kind", "kind: sudoku\n", `unknown kind "sudoku"`},
		{"unknown field", "kind: queens\nsize: 4\ncolour: red\n", "field colour not found"},
		{"queens size", "kind: queens\nsize: 0\n", "queens size 0"},
		{"queens backing", "kind: queens\nsize: 4\nbacking: tree\n", "unknown domain backing"},
		{"duplicate node", "kind: precedence\nnodes: [{name: a}, {name: a}]\n", `duplicate node "a"`},
		{"unknown node", "kind: precedence\nnodes: [{name: a}]\nedges: [{from: a, to: z, lag: 1}]\n", "unknown node"},
		{"bad window", "kind: precedence\nnodes: [{name: a, est: 5, lst: 2}]\n", "lst 2 before est 5"},
		{"empty usages", "kind: capacity\n", "no usages"},
		{"inverted usage", "kind: capacity\nusages: [{from: 5, to: 1, amount: 1}]\n", "from 5 after to 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse([]byte(tt.in))
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.NotEmpty(t, p.Kind)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidationErrorsWrapSentinel(t *testing.T) {
	_, err := Parse([]byte("kind: queens\nsize: -1\n"))
	assert.ErrorIs(t, err, ErrInvalidProblem)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kind: queens\nsize: 4\n"), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, KindQueens, p.Kind)
	assert.Equal(t, path, p.Name, "name defaults to the file path")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMarshalRoundTrip(t *testing.T) {
	p, err := Parse([]byte(precedenceYAML))
	require.NoError(t, err)
	data, err := p.Marshal()
	require.NoError(t, err)
	q, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, p, q)
}

func TestRunPrecedence(t *testing.T) {
	p, err := Parse([]byte(precedenceYAML))
	require.NoError(t, err)

	res, err := Run(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, res.Feasible)
	assert.True(t, res.Complete)
	require.Len(t, res.Solutions, 1)
	assert.Equal(t, []Value{
		{Name: "a", Min: 0, Max: 995},
		{Name: "b", Min: 3, Max: 998},
		{Name: "c", Min: 5, Max: 1000},
	}, res.Solutions[0])
	require.Len(t, res.Groups, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, res.Groups[0])
	assert.NotEmpty(t, res.Session)
	assert.Positive(t, res.Stats.CycleMerges)
}

func TestRunPrecedenceInfeasible(t *testing.T) {
	p, err := Parse([]byte(`
kind: precedence
horizon: 10
nodes: [{name: a}, {name: b}]
edges: [{from: a, to: b, lag: 4}, {from: b, to: a, lag: 1}]
`))
	require.NoError(t, err)
	res, err := Run(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, res.Feasible)
	assert.Empty(t, res.Solutions)
}

func TestRunQueens(t *testing.T) {
	tests := []struct {
		name         string
		in           string
		maxSolutions int
		want         int
		complete     bool
	}{
		{"all", "kind: queens\nsize: 6\n", 0, 4, true},
		{"problem limit", "kind: queens\nsize: 8\nlimit: 3\nbacking: counted\n", 0, 3, false},
		{"option limit", "kind: queens\nsize: 8\nbacking: span\n", 2, 2, false},
		{"none", "kind: queens\nsize: 3\n", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse([]byte(tt.in))
			require.NoError(t, err)
			opts := DefaultOptions()
			opts.MaxSolutions = tt.maxSolutions
			res, err := Run(context.Background(), p, opts)
			require.NoError(t, err)
			assert.Len(t, res.Solutions, tt.want)
			assert.Equal(t, tt.complete, res.Complete)
			assert.Equal(t, tt.want > 0, res.Feasible)
			for _, sol := range res.Solutions {
				for _, v := range sol {
					assert.Equal(t, v.Min, v.Max, "%s fixed", v.Name)
				}
			}
		})
	}
}

func TestRunQueensStopsAtDeadline(t *testing.T) {
	p, err := Parse([]byte("kind: queens\nsize: 8\n"))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	res, err := Run(ctx, p, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, res.Solutions, 1, "checked after each solution")
	assert.False(t, res.Complete)
}

func TestRunCapacity(t *testing.T) {
	p, err := Parse([]byte(`
kind: capacity
capacity: 3
usages: [{from: 0, to: 9, amount: 2}, {from: 5, to: 19, amount: 1}, {from: 15, to: 24, amount: 3}]
`))
	require.NoError(t, err)
	res, err := Run(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Peak)
	assert.Len(t, res.Profile, 5)
	assert.Equal(t, []clp.Span{{Min: 15, Max: 19, V0: 4, V1: 2}}, res.Overloads)
	assert.False(t, res.Feasible)
}

func TestRunReportsToMonitor(t *testing.T) {
	mon, err := clp.NewMonitor("test")
	require.NoError(t, err)
	p, err := Parse([]byte("kind: queens\nsize: 4\n"))
	require.NoError(t, err)
	opts := DefaultOptions()
	opts.Monitor = mon

	_, err = Run(context.Background(), p, opts)
	require.NoError(t, err)

	families, err := mon.Registry().Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[f.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["test_solutions_total"])
	assert.Equal(t, 1.0, values["test_searches_total"])
	assert.Positive(t, values["test_nodes_total"])
}
