package channel

import (
	"math"
	"sort"

	"github.com/jsphweid/abcdex/timing"
	"github.com/jsphweid/abcdex/util"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	Count       = 16
	DrumChannel = 9

	DefaultInstrument uint8   = 0
	DefaultVolume     uint8   = 127
	DefaultBendRange  float64 = 2
	DefaultMPQ        int64   = 500000
)

const (
	ccDataEntry       = 6
	ccVolume          = 7
	ccDataEntryFine   = 38
	ccRPNFine         = 100
	ccRPNCoarse       = 101
	rpnPitchBendRange = 0
	rpnNull           = 127
)

var ErrTimeFormat = errors.New("only metric tick time formats are supported")

type tempoSegment struct {
	tick   int64
	micros int64
	mpq    int64
}

// Timeline caches, per channel, which instrument, volume and pitch bend
// range are active at any tick, plus the song's tempo map. It is read-only
// once New returns.
type Timeline struct {
	resolution int64
	meter      timing.Meter
	songLength int64
	primaryMPQ int64

	instruments [Count]util.FloorMap[int64, uint8]
	volumes     [Count]util.FloorMap[int64, uint8]
	bendRanges  [Count]util.FloorMap[int64, float64]

	changes  []timing.TempoChange
	segments []tempoSegment
}

type rawEvent struct {
	tick  int64
	track int
	msg   smf.Message
}

type rpnState struct {
	coarse, fine uint8
	rangeCoarse  uint8
	rangeFine    uint8
}

func mergeTracks(s *smf.SMF) []rawEvent {
	var events []rawEvent
	for i, track := range s.Tracks {
		var absTicks int64
		for _, ev := range track {
			absTicks += int64(ev.Delta)
			events = append(events, rawEvent{tick: absTicks, track: i, msg: ev.Message})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].tick < events[j].tick
	})
	return events
}

func New(s *smf.SMF) (*Timeline, error) {
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrTimeFormat
	}

	t := &Timeline{
		resolution: int64(ticks.Resolution()),
		meter:      timing.CommonTime,
	}
	var rpn [Count]rpnState
	for i := range rpn {
		rpn[i] = rpnState{coarse: rpnNull, fine: rpnNull}
	}
	meterSet := false

	for _, ev := range mergeTracks(s) {
		if ev.tick > t.songLength {
			t.songLength = ev.tick
		}

		var bpm float64
		var num, denom, cpt, dsqpq uint8
		if ev.msg.GetMetaTempo(&bpm) {
			if bpm <= 0 {
				return nil, errors.Wrapf(timing.ErrInvalidTempo, "%v bpm at tick %d", bpm, ev.tick)
			}
			mpq := int64(math.Round(float64(timing.OneMinuteMicros) / bpm))
			t.changes = append(t.changes, timing.TempoChange{Tick: ev.tick, MPQ: mpq})
			continue
		}
		if ev.msg.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq) {
			if !meterSet {
				t.meter = timing.Meter{Numerator: int(num), Denominator: int(denom)}
				meterSet = true
			}
			continue
		}

		msg := midi.Message(ev.msg)
		var ch, a, b uint8
		switch {
		case msg.GetProgramChange(&ch, &a):
			if ch != DrumChannel {
				t.instruments[ch].Put(ev.tick, a)
			}
		case msg.GetControlChange(&ch, &a, &b):
			st := &rpn[ch]
			switch a {
			case ccVolume:
				t.volumes[ch].Put(ev.tick, b)
			case ccRPNCoarse:
				st.coarse = b
			case ccRPNFine:
				st.fine = b
			case ccDataEntry, ccDataEntryFine:
				if st.coarse != rpnPitchBendRange || st.fine != rpnPitchBendRange {
					break
				}
				if a == ccDataEntry {
					st.rangeCoarse = b
				} else {
					st.rangeFine = b
				}
				t.bendRanges[ch].Put(ev.tick, float64(st.rangeCoarse)+float64(st.rangeFine)/100)
			}
		}
	}

	t.buildTempoMap()
	return t, nil
}

func (t *Timeline) buildTempoMap() {
	sort.SliceStable(t.changes, func(i, j int) bool {
		return t.changes[i].Tick < t.changes[j].Tick
	})

	t.segments = []tempoSegment{{tick: 0, mpq: DefaultMPQ}}
	for _, c := range t.changes {
		last := &t.segments[len(t.segments)-1]
		if c.Tick == last.tick {
			last.mpq = c.MPQ
			continue
		}
		t.segments = append(t.segments, tempoSegment{
			tick:   c.Tick,
			micros: last.micros + (c.Tick-last.tick)*last.mpq/t.resolution,
			mpq:    c.MPQ,
		})
	}

	// the primary tempo is whichever lasts the longest
	durations := map[int64]int64{}
	for i, seg := range t.segments {
		end := t.songLength
		if i+1 < len(t.segments) {
			end = t.segments[i+1].tick
		}
		if end > seg.tick {
			durations[seg.mpq] += end - seg.tick
		}
	}
	t.primaryMPQ = t.segments[0].mpq
	var best int64 = -1
	for _, mpq := range util.GetKeys(durations) {
		if durations[mpq] > best {
			best = durations[mpq]
			t.primaryMPQ = mpq
		}
	}
}

func (t *Timeline) Resolution() int      { return int(t.resolution) }
func (t *Timeline) Meter() timing.Meter  { return t.meter }
func (t *Timeline) SongLength() int64    { return t.songLength }
func (t *Timeline) PrimaryMPQ() int64    { return t.primaryMPQ }
func (t *Timeline) PrimaryTempoBPM() int { return int(math.Round(float64(timing.OneMinuteMicros) / float64(t.primaryMPQ))) }

// TempoChanges returns the raw tempo events in tick order.
func (t *Timeline) TempoChanges() []timing.TempoChange {
	res := make([]timing.TempoChange, len(t.changes))
	copy(res, t.changes)
	return res
}

func valid(ch uint8) bool {
	return ch < Count
}

func (t *Timeline) InstrumentAt(ch uint8, tick int64) uint8 {
	if !valid(ch) {
		return DefaultInstrument
	}
	return t.instruments[ch].ValueAt(tick, DefaultInstrument)
}

func (t *Timeline) VolumeAt(ch uint8, tick int64) uint8 {
	if !valid(ch) {
		return DefaultVolume
	}
	return t.volumes[ch].ValueAt(tick, DefaultVolume)
}

func (t *Timeline) BendRangeAt(ch uint8, tick int64) float64 {
	if !valid(ch) {
		return DefaultBendRange
	}
	return t.bendRanges[ch].ValueAt(tick, DefaultBendRange)
}

func (t *Timeline) segmentAt(tick int64) tempoSegment {
	i := sort.Search(len(t.segments), func(i int) bool { return t.segments[i].tick > tick })
	if i == 0 {
		return t.segments[0]
	}
	return t.segments[i-1]
}

func (t *Timeline) MPQAt(tick int64) int64 {
	return t.segmentAt(tick).mpq
}

func (t *Timeline) TickToMicros(tick int64) int64 {
	seg := t.segmentAt(tick)
	return seg.micros + (tick-seg.tick)*seg.mpq/t.resolution
}

// Quantizer aligns this timeline's tempo map to note grids. A scale of 1
// keeps the written tempo.
func (t *Timeline) Quantizer(scale float64) (*timing.Quantizer, error) {
	return timing.NewQuantizer(timing.QuantizerConfig{
		Resolution: int(t.resolution),
		Meter:      t.meter,
		Scale:      scale,
		PrimaryMPQ: t.primaryMPQ,
		Changes:    t.TempoChanges(),
		SongLength: t.songLength,
	})
}
