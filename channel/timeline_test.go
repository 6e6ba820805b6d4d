package channel

import (
	"sync"
	"testing"

	"github.com/jsphweid/abcdex/timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func buildSong(t *testing.T) *smf.SMF {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)

	var meta smf.Track
	meta.Add(0, smf.MetaMeter(3, 4))
	meta.Add(0, smf.MetaTempo(120))
	meta.Add(960, smf.MetaTempo(60))
	meta.Close(0)
	require.NoError(t, s.Add(meta))

	var part smf.Track
	part.Add(0, midi.ProgramChange(0, 25))
	part.Add(0, midi.ProgramChange(DrumChannel, 40))
	part.Add(0, midi.NoteOn(0, 60, 100))
	part.Add(480, midi.ControlChange(0, ccVolume, 100))
	part.Add(480, midi.ControlChange(0, ccRPNCoarse, 0))
	part.Add(0, midi.ControlChange(0, ccRPNFine, 0))
	part.Add(0, midi.ControlChange(0, ccDataEntry, 12))
	part.Add(0, midi.ControlChange(0, ccDataEntryFine, 50))
	part.Add(480, midi.ProgramChange(0, 73))
	part.Add(1440, midi.NoteOff(0, 60))
	part.Close(0)
	require.NoError(t, s.Add(part))
	return s
}

func TestTimelineChannelLookups(t *testing.T) {
	tl, err := New(buildSong(t))
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(uint8(25), tl.InstrumentAt(0, 0))
	assert.Equal(uint8(25), tl.InstrumentAt(0, 1439))
	assert.Equal(uint8(73), tl.InstrumentAt(0, 1440))
	assert.Equal(DefaultInstrument, tl.InstrumentAt(DrumChannel, 100))
	assert.Equal(DefaultInstrument, tl.InstrumentAt(1, 100))

	assert.Equal(DefaultVolume, tl.VolumeAt(0, 479))
	assert.Equal(uint8(100), tl.VolumeAt(0, 480))

	assert.Equal(DefaultBendRange, tl.BendRangeAt(0, 959))
	assert.Equal(12.5, tl.BendRangeAt(0, 960))
	assert.Equal(DefaultBendRange, tl.BendRangeAt(3, 2000))
	assert.Equal(DefaultVolume, tl.VolumeAt(200, 0))
}

func TestTimelineTempoMap(t *testing.T) {
	tl, err := New(buildSong(t))
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(480, tl.Resolution())
	assert.Equal(timing.Meter{Numerator: 3, Denominator: 4}, tl.Meter())
	assert.Equal(int64(2880), tl.SongLength())
	assert.Equal(int64(500000), tl.MPQAt(959))
	assert.Equal(int64(1000000), tl.MPQAt(960))
	assert.Equal(int64(1000000), tl.PrimaryMPQ())
	assert.Equal(60, tl.PrimaryTempoBPM())

	assert.Equal(int64(1000000), tl.TickToMicros(960))
	assert.Equal(int64(2000000), tl.TickToMicros(1440))
	assert.Len(tl.TempoChanges(), 2)
}

func TestTimelineQuantizer(t *testing.T) {
	tl, err := New(buildSong(t))
	require.NoError(t, err)

	q, err := tl.Quantizer(1)
	require.NoError(t, err)
	events := q.Events()
	require.Len(t, events, 2)
	assert.Equal(t, int64(960), events[1].Tick)
	assert.Equal(t, int64(1000000), events[1].Micros)
}

func TestTimelineWithoutTempo(t *testing.T) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(96, midi.NoteOff(0, 60))
	tr.Close(0)
	require.NoError(t, s.Add(tr))

	tl, err := New(s)
	require.NoError(t, err)
	assert.Equal(t, DefaultMPQ, tl.PrimaryMPQ())
	assert.Equal(t, int64(500000), tl.TickToMicros(96))
	assert.Equal(t, timing.CommonTime, tl.Meter())
}

func TestTimelineConcurrentReaders(t *testing.T) {
	tl, err := New(buildSong(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, uint8(73), tl.InstrumentAt(0, 2000))
			assert.Equal(t, int64(2000000), tl.TickToMicros(1440))
		}()
	}
	wg.Wait()
}
