package timing

import (
	"errors"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// at 480 ppq in 4/4: 500000 mpq has a 60 tick grid, 250000 mpq a 120 tick grid
func newTestQuantizer(t *testing.T) *Quantizer {
	q, err := NewQuantizer(QuantizerConfig{
		Resolution: 480,
		Meter:      CommonTime,
		PrimaryMPQ: 500000,
		Changes: []TempoChange{
			{Tick: 1000, MPQ: 250000},
			{Tick: 1100, MPQ: 500000},
		},
		SongLength: 5000,
	})
	require.NoError(t, err)
	return q
}

func TestQuantizerAnchorsChanges(t *testing.T) {
	q := newTestQuantizer(t)
	events := q.Events()

	assert := assert.New(t)
	require.Len(t, events, 3)
	assert.Equal(int64(0), events[0].Tick)
	assert.Equal(int64(60), events[0].MinNoteTicks)
	assert.Equal(int64(1020), events[1].Tick)
	assert.Equal(int64(1062500), events[1].Micros)
	assert.Equal(0.53125, events[1].BarNumber)
	assert.Equal(int64(120), events[1].MinNoteTicks)
}

// The third change is rounded on the 120 tick grid of the segment before it
// (landing on 1140) although its own grid of 60 ticks would give 1080.
func TestQuantizerRoundsOnPreviousGrid(t *testing.T) {
	q := newTestQuantizer(t)
	events := q.Events()

	assert := assert.New(t)
	assert.Equal(int64(1140), events[2].Tick)
	assert.Equal(int64(1125000), events[2].Micros)
	assert.Equal(0.59375, events[2].BarNumber)
}

func TestQuantizerLookups(t *testing.T) {
	q := newTestQuantizer(t)

	assert := assert.New(t)
	assert.Equal(240, q.TimingAt(0).Tempo)
	assert.Equal(480, q.TimingAt(1050).Tempo)
	assert.Equal(240, q.TimingAt(4000).Tempo)

	assert.Equal(int64(60), q.Quantize(50))
	assert.Equal(int64(0), q.Quantize(29))
	assert.Equal(int64(1080), q.Quantize(1070))

	assert.Equal(int64(1062500), q.TickToMicros(1020))
	assert.Equal(int64(1087500), q.TickToMicros(1068))
	assert.Equal(int64(1020), q.MicrosToTick(1062500))
	assert.Equal(int64(480), q.MicrosToTick(500000))
	assert.Equal(int64(1140), q.MicrosToTick(1125000))
}

func TestQuantizerBars(t *testing.T) {
	q := newTestQuantizer(t)

	assert := assert.New(t)
	assert.Equal(0, q.BarNumberAt(100))
	assert.Equal(1, q.BarNumberAt(2000))
	assert.Equal(int64(1920), q.BarStart(2000))
	assert.Equal(int64(3840), q.BarEnd(2000))
	assert.Equal(int64(0), q.BarStart(1919))
	assert.Equal(int64(1920), q.BarNumberToStart(1))
	assert.Equal(int64(3840), q.BarNumberToEnd(1))
	assert.Equal(int64(9600), q.BarNumberToStart(5))
	assert.Equal(int64(9600), q.BarStart(9700))
	assert.Equal(q.TickToMicros(1920), q.BarNumberToMicros(1))
}

func TestQuantizerBarsConcurrentReaders(t *testing.T) {
	q := newTestQuantizer(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, int64(1920), q.BarStart(2000))
		}()
	}
	wg.Wait()
}

func TestQuantizerRejectsTempo(t *testing.T) {
	_, err := NewQuantizer(QuantizerConfig{
		Resolution: 480,
		Meter:      CommonTime,
		PrimaryMPQ: 500000,
		Changes:    []TempoChange{{Tick: 960, MPQ: 60_000_000}},
	})
	assert.True(t, errors.Is(err, ErrInvalidTempo))

	_, err = NewQuantizer(QuantizerConfig{Resolution: 480, Meter: CommonTime, PrimaryMPQ: 0})
	assert.True(t, errors.Is(err, ErrInvalidTempo))
}

func TestQuantizerChangeAtZeroReplacesDefault(t *testing.T) {
	q, err := NewQuantizer(QuantizerConfig{
		Resolution: 480,
		Meter:      CommonTime,
		PrimaryMPQ: 500000,
		Changes:    []TempoChange{{Tick: 0, MPQ: 250000}},
	})
	require.NoError(t, err)
	events := q.Events()
	require.Len(t, events, 1)
	assert.Equal(t, int64(250000), events[0].MPQ)
}

func TestQuantizerMonotonicProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("events increase and sit on the previous grid", prop.ForAll(
		func(gaps []int64, seed int64) bool {
			var changes []TempoChange
			var tick int64
			for i, gap := range gaps {
				tick += gap
				mpq := 150000 + (seed+int64(i)*7919*gap)%1850000
				if mpq < 150000 {
					mpq += 1850000
				}
				changes = append(changes, TempoChange{Tick: tick, MPQ: mpq})
			}
			q, err := NewQuantizer(QuantizerConfig{
				Resolution: 480,
				Meter:      CommonTime,
				PrimaryMPQ: 500000,
				Changes:    changes,
				SongLength: tick,
			})
			if err != nil {
				return false
			}
			events := q.Events()
			if events[0].Tick != 0 {
				return false
			}
			for i := 1; i < len(events); i++ {
				prev, cur := events[i-1], events[i]
				if cur.Tick <= prev.Tick {
					return false
				}
				if (cur.Tick-prev.Tick)%prev.MinNoteTicks != 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(1, 5000)),
		gen.Int64Range(0, 1_000_000),
	))

	properties.TestingRun(t)
}
