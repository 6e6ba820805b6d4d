package util

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// FloorMap is a sparse ordered map answering "most recent value at or
// before key". Writes must finish before concurrent reads begin.
type FloorMap[K constraints.Ordered, V any] struct {
	keys   []K
	values []V
}

// Put records v at k, replacing any value already at k.
func (m *FloorMap[K, V]) Put(k K, v V) {
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= k })
	if i < len(m.keys) && m.keys[i] == k {
		m.values[i] = v
		return
	}
	m.keys = append(m.keys, k)
	m.values = append(m.values, v)
	copy(m.keys[i+1:], m.keys[i:])
	copy(m.values[i+1:], m.values[i:])
	m.keys[i] = k
	m.values[i] = v
}

// Get is an exact lookup.
func (m *FloorMap[K, V]) Get(k K) (V, bool) {
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= k })
	if i < len(m.keys) && m.keys[i] == k {
		return m.values[i], true
	}
	var zero V
	return zero, false
}

// Floor returns the value at the greatest key <= k.
func (m *FloorMap[K, V]) Floor(k K) (V, bool) {
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] > k })
	if i == 0 {
		var zero V
		return zero, false
	}
	return m.values[i-1], true
}

func (m *FloorMap[K, V]) ValueAt(k K, def V) V {
	if v, ok := m.Floor(k); ok {
		return v
	}
	return def
}

func (m *FloorMap[K, V]) Len() int {
	return len(m.keys)
}

// Each visits entries in key order until fn returns false.
func (m *FloorMap[K, V]) Each(fn func(K, V) bool) {
	for i := range m.keys {
		if !fn(m.keys[i], m.values[i]) {
			return
		}
	}
}
