package clp

// span_levels.go: the shared level source for skip-list spans.
//
// Levels follow a geometric distribution with p = 1/2, capped at
// MaxSpanLevel. The table holds the exact expected proportions and is
// shuffled once with a fixed seed, so every run builds the same lists and a
// collection that walks the table gets balanced levels over any window.

import "math/rand/v2"

// MaxSpanLevel is the maximum number of forward links per span.
const MaxSpanLevel = 16

const spanLevelTableSize = 1 << 12

var spanLevels = buildSpanLevels()

func buildSpanLevels() []uint8 {
	t := make([]uint8, 0, spanLevelTableSize)
	n := spanLevelTableSize / 2
	for lvl := 1; lvl < MaxSpanLevel && n > 0; lvl++ {
		for range n {
			t = append(t, uint8(lvl))
		}
		n /= 2
	}
	for len(t) < spanLevelTableSize {
		t = append(t, MaxSpanLevel)
	}
	r := rand.New(rand.NewPCG(0x5eed, 0x51a7))
	r.Shuffle(len(t), func(i, j int) { t[i], t[j] = t[j], t[i] })
	return t
}

// nextLevel returns the next level from the table, advancing the cursor.
func nextLevel(cursor *int) int {
	l := spanLevels[*cursor]
	*cursor = (*cursor + 1) % len(spanLevels)
	return int(l)
}
