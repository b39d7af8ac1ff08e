package fxmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwicat/oscremap/fxmap"
)

func TestMapForcePutEvictsConflicts(t *testing.T) {
	// S5: map = {2<->7, 3<->9}; forceput(2, 9) -> map = {2<->9} only.
	m := fxmap.NewMap()
	m.ForcePut(2, 7)
	m.ForcePut(3, 9)

	m.ForcePut(2, 9)

	pairs := m.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, fxmap.Pair{Source: 2, Target: 9}, pairs[0])

	target, ok := m.Get(2)
	assert.True(t, ok)
	assert.Equal(t, 9, target)

	source, ok := m.Inverse(9)
	assert.True(t, ok)
	assert.Equal(t, 2, source)

	_, ok = m.Get(3)
	assert.False(t, ok)
	_, ok = m.Inverse(7)
	assert.False(t, ok)
}

func TestMapBijectionInvariant(t *testing.T) {
	m := fxmap.NewMap()
	ops := [][2]int{{1, 10}, {2, 20}, {1, 20}, {3, 30}, {2, 30}}
	for _, op := range ops {
		m.ForcePut(op[0], op[1])
	}

	seenSources := map[int]bool{}
	seenTargets := map[int]bool{}
	for _, p := range m.Pairs() {
		assert.False(t, seenSources[p.Source], "source %d duplicated", p.Source)
		assert.False(t, seenTargets[p.Target], "target %d duplicated", p.Target)
		seenSources[p.Source] = true
		seenTargets[p.Target] = true

		target, ok := m.Get(p.Source)
		require.True(t, ok)
		assert.Equal(t, p.Target, target)

		source, ok := m.Inverse(p.Target)
		require.True(t, ok)
		assert.Equal(t, p.Source, source)
	}
}

func TestMapRemoveBySourceAndTarget(t *testing.T) {
	m := fxmap.NewMap()
	m.ForcePut(1, 100)
	m.ForcePut(2, 200)

	m.RemoveBySource(1)
	_, ok := m.Get(1)
	assert.False(t, ok)
	_, ok = m.Inverse(100)
	assert.False(t, ok)

	m.RemoveByTarget(200)
	_, ok = m.Get(2)
	assert.False(t, ok)

	assert.Empty(t, m.Pairs())
}

func TestMapClear(t *testing.T) {
	m := fxmap.NewMap()
	m.ForcePut(1, 2)
	m.ForcePut(3, 4)
	m.Clear()
	assert.Empty(t, m.Pairs())
}
