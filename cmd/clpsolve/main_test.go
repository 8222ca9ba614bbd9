package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/gokanclp/internal/problem"
	"github.com/gitrdm/gokanclp/pkg/clp"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "disabled"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSolveText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "q.yaml", "kind: queens\nname: six\nsize: 6\n")

	out, err := execute(t, "solve", path)
	require.NoError(t, err)
	assert.Contains(t, out, "six (queens): complete, 4 solution(s)")
	assert.Contains(t, out, "#4 q0=")
	assert.Contains(t, out, "solutions=4")
}

func TestSolvePrecedenceText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "p.yaml", `
kind: precedence
name: loop
nodes: [{name: a}, {name: b}]
edges: [{from: a, to: b, lag: 2}, {from: b, to: a, lag: -2}]
`)
	out, err := execute(t, "solve", path)
	require.NoError(t, err)
	assert.Contains(t, out, "#1 a=[0,998] b=[2,1000]")
	assert.Regexp(t, `cycle group: (a b|b a)\n`, out)
}

func TestSolveJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "q.yaml", "kind: queens\nsize: 4\n")

	out, err := execute(t, "solve", path, "-o", "json")
	require.NoError(t, err)
	var res problem.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Feasible)
	assert.Len(t, res.Solutions, 2)
	assert.Equal(t, 2, res.Stats.Solutions)
}

func TestMaxSolutionsFromEnv(t *testing.T) {
	t.Setenv("CLPSOLVE_MAX_SOLUTIONS", "1")
	dir := t.TempDir()
	path := writeFile(t, dir, "q.yaml", "kind: queens\nname: q\nsize: 6\n")

	out, err := execute(t, "solve", path)
	require.NoError(t, err)
	assert.Contains(t, out, "q (queens): partial, 1 solution(s)")
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "clpsolve.yaml", "format: yaml\nmax_solutions: 2\nbacking: span\n")
	path := writeFile(t, dir, "q.yaml", "kind: queens\nsize: 8\n")

	decode := func(out string) int {
		var res struct {
			Solutions [][]problem.Value `yaml:"solutions"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(out), &res))
		return len(res.Solutions)
	}

	out, err := execute(t, "--config", cfg, "solve", path)
	require.NoError(t, err)
	assert.Equal(t, 2, decode(out), "from config file")

	out, err = execute(t, "--config", cfg, "--max-solutions", "3", "solve", path)
	require.NoError(t, err)
	assert.Equal(t, 3, decode(out), "flag overrides config file")
}

func TestConfigErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "q.yaml", "kind: queens\nsize: 4\n")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing config", []string{"--config", filepath.Join(dir, "nope.yaml"), "solve", path}, "read config"},
		{"bad backing", []string{"--backing", "tree", "solve", path}, "unknown domain backing"},
		{"bad format", []string{"-o", "xml", "solve", path}, "unknown output format"},
		{"negative limit", []string{"--max-solutions", "-1", "solve", path}, "max_solutions must not be negative"},
		{"missing problem", []string{"solve", filepath.Join(dir, "none.yaml")}, "read problem"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	q := writeFile(t, dir, "q.yaml", "kind: queens\nname: four\nsize: 4\n")
	c := writeFile(t, dir, "c.yaml", "kind: capacity\nname: load\ncapacity: 2\nusages: [{from: 0, to: 9, amount: 2}, {from: 5, to: 14, amount: 1}]\n")
	bad := writeFile(t, dir, "bad.yaml", "kind: queens\nsize: 0\n")

	out, err := execute(t, "batch", "--workers", "2", q, bad, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 problems failed")

	four := bytes.Index([]byte(out), []byte("four (queens): complete, 2 solution(s)"))
	load := bytes.Index([]byte(out), []byte("load (capacity): infeasible"))
	require.GreaterOrEqual(t, four, 0)
	require.GreaterOrEqual(t, load, 0)
	assert.Less(t, four, load, "results keep argument order")
	assert.Contains(t, out, "overload [5..9]:3/2")
}

func TestMetricsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "q.yaml", "kind: queens\nsize: 5\n")
	metrics := filepath.Join(dir, "clpsolve.prom")

	_, err := execute(t, "solve", path, "--metrics-file", metrics)
	require.NoError(t, err)
	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "clpsolve_solutions_total 10")
	assert.Contains(t, string(data), `clpsolve_searches_total{outcome="solved"} 1`)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "clpsolve "+clp.Version)
}

func TestSetupLogging(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "disabled", ""} {
		_, err := setupLogging(level)
		assert.NoError(t, err, level)
	}
	_, err := setupLogging("loud")
	assert.ErrorContains(t, err, `unknown log level "loud"`)
}
