package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jsphweid/abcdex/abc"
	"github.com/jsphweid/abcdex/midi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gm "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const scale = "X:1\nT:Scale\nM:4/4\nL:1/4\nK:C\nCDEF|GABc|cBAG|\n"

func writeTune(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func noteOns(tr smf.Track) []uint8 {
	var keys []uint8
	for _, ev := range tr {
		var ch, key, vel uint8
		if gm.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
			keys = append(keys, key)
		}
	}
	return keys
}

func TestConvertPaths(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	path := writeTune(t, dir, "scale.abc", scale)

	out, err := convertPaths([]string{path}, abc.DefaultOptions(), convertFlags{})
	require.NoError(t, err)
	assert.Equal(filepath.Join(dir, "scale.mid"), out)

	s, err := midi.ReadMidiFile(out)
	require.NoError(t, err)
	require.Len(t, s.Tracks, 2)
	assert.Len(noteOns(s.Tracks[1]), 12)

	renders := filepath.Join(dir, "renders")
	out, err = convertPaths([]string{path}, abc.DefaultOptions(), convertFlags{outDir: renders})
	require.NoError(t, err)
	assert.Equal(renders, filepath.Dir(out))
	assert.True(strings.HasPrefix(filepath.Base(out), "Scale-"))

	bad := writeTune(t, dir, "bad.abc", "X:1\nK:C\nA#\n")
	_, err = convertPaths([]string{bad}, abc.DefaultOptions(), convertFlags{})
	assert.Error(err)
}

func TestConvertBarRange(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	path := writeTune(t, dir, "scale.abc", scale)
	out := filepath.Join(dir, "bar2.mid")

	_, err := convertPaths([]string{path}, abc.DefaultOptions(), convertFlags{out: out, fromBar: 2, toBar: 2})
	require.NoError(t, err)
	s, err := midi.ReadMidiFile(out)
	require.NoError(t, err)
	require.Len(t, s.Tracks, 2)
	assert.Equal([]uint8{55, 57, 59, 60}, noteOns(s.Tracks[1]))

	_, err = convertPaths([]string{path}, abc.DefaultOptions(), convertFlags{out: out, fromBar: 3})
	require.NoError(t, err)
	s, err = midi.ReadMidiFile(out)
	require.NoError(t, err)
	assert.Equal([]uint8{60, 59, 57, 55}, noteOns(s.Tracks[1]))

	_, err = convertPaths([]string{path}, abc.DefaultOptions(), convertFlags{out: out, fromBar: 4})
	assert.Error(err)
}

func TestConvertOptions(t *testing.T) {
	assert := assert.New(t)
	opts, err := convertFlags{mono: true, instruments: map[string]string{"2": "flute"}}.options()
	require.NoError(t, err)
	assert.False(opts.Stereo)
	assert.True(opts.UseGameInstruments)
	flute, err := abc.ParseInstrument("flute")
	require.NoError(t, err)
	assert.Equal(flute, opts.InstrumentOverrides[2])

	_, err = convertFlags{instruments: map[string]string{"first": "flute"}}.options()
	assert.Error(err)
	_, err = convertFlags{instruments: map[string]string{"1": "kazoo"}}.options()
	assert.Error(err)
}

func TestWatchRunsAfterChange(t *testing.T) {
	dir := t.TempDir()
	path := writeTune(t, dir, "scale.abc", scale)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ran := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, []string{path}, func() {
			select {
			case ran <- struct{}{}:
			default:
			}
		})
	}()

	time.Sleep(2 * watchPollInterval)
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not run after the file changed")
	}
	cancel()
	assert.NoError(t, <-done)
}

func TestInspect(t *testing.T) {
	assert := assert.New(t)
	res, err := abc.Convert("scale.abc", strings.Split(strings.TrimSpace(scale), "\n"), abc.DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, inspect(&buf, res.SMF, 1234, inspectFlags{scale: 1, maxNotes: 2}))
	out := buf.String()
	assert.Contains(out, "1.2 kB")
	assert.Contains(out, "resolution: 2880 ticks per quarter")
	assert.Contains(out, "meter:      4/4")
	assert.Contains(out, `track 1 "Scale": 12 notes, melodic`)
	assert.Contains(out, "... 10 more")

	buf.Reset()
	require.NoError(t, inspect(&buf, res.SMF, 0, inspectFlags{meter: "3/4", scale: 1}))
	assert.Contains(buf.String(), "meter:      3/4")

	assert.Error(inspect(&buf, res.SMF, 0, inspectFlags{meter: "three", scale: 1}))
}
