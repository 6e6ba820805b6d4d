package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloorMap(t *testing.T) {
	var m FloorMap[int64, int]
	m.Put(100, 5)
	m.Put(0, 1)
	m.Put(50, 3)
	m.Put(50, 4)

	assert := assert.New(t)
	assert.Equal(3, m.Len())
	assert.Equal(-1, m.ValueAt(-10, -1))
	assert.Equal(1, m.ValueAt(0, -1))
	assert.Equal(1, m.ValueAt(49, -1))
	assert.Equal(4, m.ValueAt(50, -1))
	assert.Equal(5, m.ValueAt(1000, -1))

	var keys []int64
	m.Each(func(k int64, _ int) bool {
		keys = append(keys, k)
		return true
	})
	assert.Equal([]int64{0, 50, 100}, keys)
}

func TestFloorMapProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("floor matches a linear scan", prop.ForAll(
		func(keys []int, probe int) bool {
			var m FloorMap[int, int]
			latest := map[int]int{}
			for i, k := range keys {
				m.Put(k, i)
				latest[k] = i
			}
			best, found := 0, false
			for k := range latest {
				if k <= probe && (!found || k > best) {
					best, found = k, true
				}
			}
			v, ok := m.Floor(probe)
			if ok != found {
				return false
			}
			return !ok || v == latest[best]
		},
		gen.SliceOf(gen.IntRange(-100, 100)),
		gen.IntRange(-120, 120),
	))

	properties.TestingRun(t)
}

func TestIntegerHelpers(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(3, Min(3, 7))
	assert.Equal(7, Max(3, 7))
	assert.Equal(127, Clamp(300, 0, 127))
	assert.Equal(0, Clamp(-3, 0, 127))
	assert.Equal(6, GCD(12, 18))
	assert.Equal([]string{"a", "b"}, GetKeys(map[string]int{"b": 1, "a": 2}))
}

func TestGatherPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.abc", "a.ABC", "c.mid", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	paths, err := GatherPaths(dir, 0, ".abc")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.ABC"), filepath.Join(dir, "b.abc")}, paths)

	paths, err = GatherPaths(dir, 1, ".abc", ".mid")
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}
