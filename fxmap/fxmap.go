// Package fxmap implements the bidirectional source-parameter to
// target-parameter bijection and its persisted, per-FX store.
package fxmap

import (
	"fmt"
	"sync"
)

// Map is a bijection between source parameter slots and target
// parameter slots. Both sides are positive integers and unique within
// a Map. The zero value is an empty, ready-to-use Map.
type Map struct {
	mu         sync.Mutex
	sourceToTT map[int]int
	targetToSS map[int]int
}

// Pair is one (source, target) binding, used for serialization.
type Pair struct {
	Source int
	Target int
}

// NewMap returns an empty, initialized Map.
func NewMap() *Map {
	return &Map{
		sourceToTT: make(map[int]int),
		targetToSS: make(map[int]int),
	}
}

func (m *Map) init() {
	if m.sourceToTT == nil {
		m.sourceToTT = make(map[int]int)
	}
	if m.targetToSS == nil {
		m.targetToSS = make(map[int]int)
	}
}

// Get returns the target bound to source, if any.
func (m *Map) Get(source int) (target int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	target, ok = m.sourceToTT[source]
	return target, ok
}

// Inverse returns the source bound to target, if any.
func (m *Map) Inverse(target int) (source int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	source, ok = m.targetToSS[target]
	return source, ok
}

// ForcePut binds source to target, first removing any prior binding
// that involves either side. This is the only mutator used once a
// bijection is in steady state.
func (m *Map) ForcePut(source, target int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.removeBySourceLocked(source)
	m.removeByTargetLocked(target)
	m.sourceToTT[source] = target
	m.targetToSS[target] = source
}

// RemoveBySource removes the binding owning source, if any.
func (m *Map) RemoveBySource(source int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.removeBySourceLocked(source)
}

func (m *Map) removeBySourceLocked(source int) {
	if t, ok := m.sourceToTT[source]; ok {
		delete(m.sourceToTT, source)
		delete(m.targetToSS, t)
	}
}

// RemoveByTarget removes the binding owning target, if any.
func (m *Map) RemoveByTarget(target int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.removeByTargetLocked(target)
}

func (m *Map) removeByTargetLocked(target int) {
	if s, ok := m.targetToSS[target]; ok {
		delete(m.targetToSS, target)
		delete(m.sourceToTT, s)
	}
}

// Clear empties the bijection.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceToTT = make(map[int]int)
	m.targetToSS = make(map[int]int)
}

// Pairs returns the current bindings, in no particular order.
func (m *Map) Pairs() []Pair {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	pairs := make([]Pair, 0, len(m.sourceToTT))
	for s, t := range m.sourceToTT {
		pairs = append(pairs, Pair{Source: s, Target: t})
	}
	return pairs
}

// fromPairs rebuilds a Map from (source, target) pairs, rejecting
// duplicate targets and any source or target below 1. Sources are
// map keys here and so cannot repeat; Load checks for duplicate
// source keys before calling it.
func fromPairs(fxName string, pairs map[int]int) (*Map, error) {
	m := NewMap()
	seenTargets := make(map[int]int, len(pairs))
	for source, target := range pairs {
		if source < 1 || target < 1 {
			return nil, fmt.Errorf("fxmap: fx %q: source and target must be >= 1, got %d -> %d", fxName, source, target)
		}
		if prevSource, ok := seenTargets[target]; ok {
			return nil, fmt.Errorf("fxmap: fx %q: target %d is bound to both source %d and source %d", fxName, target, prevSource, source)
		}
		seenTargets[target] = source
		m.sourceToTT[source] = target
		m.targetToSS[target] = source
	}
	return m, nil
}
