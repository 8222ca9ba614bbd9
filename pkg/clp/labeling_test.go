package clp

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectValues(t *testing.T, m *Manager, xs ...*IntExp) [][]int {
	t.Helper()
	var out [][]int
	for _, err := range m.Solutions(0) {
		require.NoError(t, err)
		row := make([]int, len(xs))
		for i, x := range xs {
			row[i] = x.Value()
		}
		out = append(out, row)
	}
	return out
}

func TestInstantiateEnumeratesAscending(t *testing.T) {
	for _, b := range allBackings {
		t.Run(b.String(), func(t *testing.T) {
			m := NewManager()
			x := m.NewIntExpValues("x", b, 5, 1, 3)
			m.Add(Instantiate(x))
			assert.Equal(t, [][]int{{1}, {3}, {5}}, collectValues(t, m, x))
			assert.Equal(t, 3, x.Size(), "domain restored after exhaustion")
		})
	}
}

func TestSplitDomainEnumeratesAscending(t *testing.T) {
	for _, b := range allBackings {
		t.Run(b.String(), func(t *testing.T) {
			m := NewManager()
			x := m.NewIntExp("x", 3, 9, b)
			require.NoError(t, x.Remove(6))
			m.Add(SplitDomain(x))
			assert.Equal(t, [][]int{{3}, {4}, {5}, {7}, {8}, {9}}, collectValues(t, m, x))
		})
	}
}

func TestInstantiateAll(t *testing.T) {
	m := NewManager()
	x := m.NewIntExp("x", 1, 2, BackingArray)
	y := m.NewIntExp("y", 1, 2, BackingCounted)
	m.Add(InstantiateAll(x, y))
	assert.Equal(t, [][]int{{1, 1}, {1, 2}, {2, 1}, {2, 2}}, collectValues(t, m, x, y))
}

func TestAllDifferent(t *testing.T) {
	for _, b := range allBackings {
		t.Run(b.String(), func(t *testing.T) {
			m := NewManager()
			x := m.NewIntExp("x", 1, 2, b)
			y := m.NewIntExp("y", 1, 2, b)
			z := m.NewIntExp("z", 1, 3, b)
			m.Add(NewAllDifferent(x, y, z))
			m.Add(InstantiateAll(x, y, z))
			assert.Equal(t, [][]int{{1, 2, 3}, {2, 1, 3}}, collectValues(t, m, x, y, z))
			assert.Equal(t, 0, m.Constraints(), "retracted on exhaustion")
		})
	}
}

func TestAllDifferentPrunesBoundVariables(t *testing.T) {
	m := NewManager()
	x := m.NewIntExp("x", 1, 1, BackingArray)
	y := m.NewIntExp("y", 1, 3, BackingArray)
	require.NoError(t, m.AddConstraint(NewAllDifferent(x, y)))
	assert.Equal(t, "y in {2..3}", y.String())

	require.NoError(t, y.SetMin(3))
	assert.Equal(t, 3, y.Value())
}

func TestAllDifferentOffset(t *testing.T) {
	assert.Panics(t, func() { NewAllDifferentOffset([]*IntExp{nil}, nil) })

	m := NewManager()
	x := m.NewIntExp("x", 0, 4, BackingSpan)
	y := m.NewIntExp("y", 0, 4, BackingSpan)
	c := NewAllDifferentOffset([]*IntExp{x, y}, []int{0, 1})
	assert.Equal(t, "AllDifferent(x, y+1)", c.String())
	require.NoError(t, m.AddConstraint(c))
	require.NoError(t, x.SetValue(3))
	assert.False(t, y.Has(2), "y+1 must differ from x")
	assert.Equal(t, 4, y.Size())
}

// queens posts the n-queens model: one variable per column holding the row.
func queens(m *Manager, n int, b Backing) []*IntExp {
	qs := make([]*IntExp, n)
	up := make([]int, n)
	down := make([]int, n)
	for i := range qs {
		qs[i] = m.NewIntExp(fmt.Sprintf("q%d", i), 0, n-1, b)
		up[i], down[i] = i, -i
	}
	m.Add(NewAllDifferent(qs...))
	m.Add(NewAllDifferentOffset(qs, up))
	m.Add(NewAllDifferentOffset(qs, down))
	m.Add(InstantiateAll(qs...))
	return qs
}

func validQueens(qs []*IntExp) bool {
	for i := range qs {
		for j := i + 1; j < len(qs); j++ {
			a, b := qs[i].Value(), qs[j].Value()
			if a == b || a-b == j-i || b-a == j-i {
				return false
			}
		}
	}
	return true
}

func TestQueens(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{4, 2}, {6, 4}, {8, 92},
	}
	for _, b := range allBackings {
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s/%d", b, tt.n), func(t *testing.T) {
				if tt.n == 8 && testing.Short() {
					t.Skip("short mode")
				}
				m := NewManager()
				qs := queens(m, tt.n, b)
				count := 0
				for _, err := range m.Solutions(0) {
					require.NoError(t, err)
					require.True(t, validQueens(qs))
					count++
				}
				assert.Equal(t, tt.want, count)
				assert.Equal(t, tt.want, m.Stats().Solutions)
			})
		}
	}
}

func TestFirstQueensSolution(t *testing.T) {
	m := NewManager()
	qs := queens(m, 8, BackingArray)
	ok, err := m.NextSolution()
	require.NoError(t, err)
	require.True(t, ok)

	rows := make([]int, len(qs))
	for i, q := range qs {
		rows[i] = q.Value()
	}
	assert.Equal(t, []int{0, 4, 7, 5, 2, 6, 1, 3}, rows)
}
