package file

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLines(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []string
	}{
		{"plain", []byte("X:1\nK:C\nABC\n"), []string{"X:1", "K:C", "ABC"}},
		{"crlf", []byte("X:1\r\nT:Tune\r\n"), []string{"X:1", "T:Tune"}},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("T:Café")...), []string{"T:Café"}},
		{"utf16le bom", []byte{0xFF, 0xFE, 'T', 0, ':', 0, 'A', 0, '\n', 0, 'B', 0}, []string{"T:A", "B"}},
		{"windows-1252", []byte("T:Caf\xe9 \x93quoted\x94"), []string{"T:Café “quoted”"}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeLines(bytes.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindInputsAndReadSources(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	for _, name := range []string{"b.abc", "a.ABC", "notes.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("X:1\nK:C\nA\n"), 0o644))
	}
	single := filepath.Join(t.TempDir(), "single.txt")
	require.NoError(t, os.WriteFile(single, []byte("K:C\nB\n"), 0o644))

	paths, err := FindInputs([]string{single, dir}, ABCExtensions...)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(single, paths[0])

	sources, err := ReadSources(paths)
	require.NoError(t, err)
	assert.Equal("single.txt", sources[0].Name)
	assert.Equal([]string{"K:C", "B"}, sources[0].Lines)

	_, err = FindInputs([]string{filepath.Join(dir, "missing")})
	assert.Error(err)
}

func TestRenderName(t *testing.T) {
	a := RenderName("My Song: Part 1/2")
	b := RenderName("My Song: Part 1/2")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "My_Song_Part_1_2-"))
	assert.True(t, strings.HasSuffix(a, ".mid"))
	assert.True(t, strings.HasPrefix(RenderName("???"), "song-"))
	assert.Equal(t, "dir/tune.mid", OutputPath("dir/tune.abc"))
}
