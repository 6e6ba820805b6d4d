package track

import (
	"fmt"
	"math"
	"sort"

	"github.com/jsphweid/abcdex/channel"
	"github.com/jsphweid/abcdex/key"
	"github.com/jsphweid/abcdex/note"
	"github.com/jsphweid/abcdex/pitch"
	"github.com/jsphweid/abcdex/timing"
	"github.com/jsphweid/abcdex/util"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const maxVelocity = 127

// Warning is a recoverable anomaly found while extracting a track.
type Warning struct {
	Track   int
	Tick    int64
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("track %d, tick %d: %s", w.Track, w.Tick, w.Message)
}

// Info is everything extracted from one track of a sequence.
type Info struct {
	Index     int
	Name      string
	Notes     *note.List
	IsDrum    bool
	Meter     *timing.Meter
	Key       *key.Signature
	Channels  []uint8
	Programs  []uint8
	EndTick   int64
	Warnings  []Warning
	Collapsed int // earlier notes closed by a duplicate note-on
}

func (i *Info) HasNotes() bool {
	return i.Notes.Len() > 0
}

type openNote struct {
	channel uint8
	key     uint8
	event   note.Event
}

type extractor struct {
	info     *Info
	timeline *channel.Timeline
	open     []openNote
	bend     [channel.Count]int
	mixed    bool
	channels map[uint8]bool
	programs map[uint8]bool
}

// Extract reconstructs note events for every track of s.
func Extract(s *smf.SMF, tl *channel.Timeline) []*Info {
	res := make([]*Info, 0, len(s.Tracks))
	for i, tr := range s.Tracks {
		res = append(res, ExtractTrack(i, tr, tl))
	}
	return res
}

// ExtractTrack walks the events of one track, pairing note starts and ends
// and splitting notes on pitch bend changes.
func ExtractTrack(index int, tr smf.Track, tl *channel.Timeline) *Info {
	x := &extractor{
		info:     &Info{Index: index, Notes: note.NewList()},
		timeline: tl,
		channels: map[uint8]bool{},
		programs: map[uint8]bool{},
	}

	var absTicks int64
	for _, ev := range tr {
		absTicks += int64(ev.Delta)
		x.handle(absTicks, ev.Message)
	}
	x.info.EndTick = absTicks
	x.finish(absTicks)

	x.info.Channels = util.GetKeys(x.channels)
	x.info.Programs = util.GetKeys(x.programs)
	return x.info
}

func (x *extractor) warn(tick int64, format string, args ...any) {
	w := Warning{Track: x.info.Index, Tick: tick, Message: fmt.Sprintf(format, args...)}
	x.info.Warnings = append(x.info.Warnings, w)
	log.WithFields(log.Fields{"track": w.Track, "tick": tick}).Warn(w.Message)
}

func (x *extractor) handle(tick int64, m smf.Message) {
	var text string
	var num, denom, cpt, dsqpq uint8
	var k, sf uint8
	var isMajor, isFlat bool

	switch {
	case m.GetMetaTrackName(&text):
		if x.info.Name == "" {
			x.info.Name = text
		}
		return
	case m.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq):
		if x.info.Meter == nil {
			x.info.Meter = &timing.Meter{Numerator: int(num), Denominator: int(denom)}
		}
		return
	case m.GetMetaKeySig(&k, &sf, &isMajor, &isFlat):
		if x.info.Key == nil {
			count := int(sf)
			if isFlat {
				count = -count
			}
			mode := key.Minor
			if isMajor {
				mode = key.Major
			}
			if sig, err := key.New(count, mode); err == nil {
				x.info.Key = &sig
			}
		}
		return
	}

	msg := midi.Message(m)
	var ch, noteKey, vel uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteStart(&ch, &noteKey, &vel):
		x.noteOn(tick, ch, noteKey, vel)
	case msg.GetNoteEnd(&ch, &noteKey):
		x.noteOff(tick, ch, noteKey)
	case msg.GetPitchBend(&ch, &rel, &abs):
		x.pitchBend(tick, ch, abs)
	}
}

func (x *extractor) classify(tick int64, ch uint8) {
	isDrum := ch == channel.DrumChannel
	if len(x.channels) == 0 {
		x.info.IsDrum = isDrum
	} else if isDrum != x.info.IsDrum && !x.mixed {
		x.mixed = true
		x.warn(tick, "track mixes drum and melodic notes, treating it as %s", kindName(x.info.IsDrum))
	}
	x.channels[ch] = true
}

func kindName(drum bool) string {
	if drum {
		return "drums"
	}
	return "melodic"
}

func (x *extractor) findOpen(ch, noteKey uint8) int {
	for i, o := range x.open {
		if o.channel == ch && o.key == noteKey {
			return i
		}
	}
	return -1
}

func (x *extractor) noteOn(tick int64, ch, noteKey, vel uint8) {
	x.classify(tick, ch)

	if i := x.findOpen(ch, noteKey); i >= 0 {
		x.info.Collapsed++
		x.close(i, tick)
	}

	id := int(noteKey)
	if !x.info.IsDrum {
		id += x.bend[ch]
	}
	p, ok := pitch.FromID(id)
	if !ok {
		x.warn(tick, "note %d bent out of range on channel %d", id, ch)
		return
	}

	velocity := int(vel) * int(x.timeline.VolumeAt(ch, tick)) / 127
	program := x.timeline.InstrumentAt(ch, tick)
	if ch != channel.DrumChannel {
		x.programs[program] = true
	}
	x.open = append(x.open, openNote{
		channel: ch,
		key:     noteKey,
		event: note.Event{
			Pitch:      p,
			Velocity:   util.Min(velocity, maxVelocity),
			Start:      tick,
			End:        tick,
			Channel:    ch,
			Instrument: program,
		},
	})
}

func (x *extractor) noteOff(tick int64, ch, noteKey uint8) {
	if i := x.findOpen(ch, noteKey); i >= 0 {
		x.close(i, tick)
	}
}

// close ends the open note at position i. Zero length notes are discarded.
func (x *extractor) close(i int, tick int64) {
	o := x.open[i]
	x.open = append(x.open[:i], x.open[i+1:]...)
	if tick > o.event.Start {
		o.event.End = tick
		x.info.Notes.Add(o.event)
	}
}

func bendSemitones(abs uint16, rng float64) int {
	pct := 2 * (float64(abs)/16384 - 0.5)
	return int(math.Round(pct * rng))
}

// pitchBend re-splits open notes at the bent pitch. Drum sounds are
// selected by note id, so bends on drum tracks are ignored.
func (x *extractor) pitchBend(tick int64, ch uint8, abs uint16) {
	if x.info.IsDrum || ch == channel.DrumChannel {
		return
	}
	bend := bendSemitones(abs, x.timeline.BendRangeAt(ch, tick))
	old := x.bend[ch]
	if bend == old {
		return
	}
	x.bend[ch] = bend

	var still []openNote
	for _, o := range x.open {
		if o.channel != ch {
			still = append(still, o)
			continue
		}

		start := tick
		length := x.timeline.TickToMicros(tick) - x.timeline.TickToMicros(o.event.Start)
		if length < timing.ShortestNoteMicros {
			// too short to keep; the bent note takes over its start
			start = o.event.Start
		} else {
			done := o.event
			done.End = tick
			x.info.Notes.Add(done)
		}

		id := o.event.Pitch.ID() + bend - old
		p, ok := pitch.FromID(id)
		if !ok {
			x.warn(tick, "note %d bent out of range on channel %d", id, ch)
			continue
		}
		o.event.Pitch = p
		o.event.Start = start
		still = append(still, o)
	}
	x.open = still
}

func (x *extractor) finish(tick int64) {
	if len(x.open) == 0 {
		return
	}
	end := tick
	if songEnd := x.timeline.SongLength(); songEnd > end {
		end = songEnd
	}
	x.warn(end, "%d notes were still playing at the end of the track and were closed", len(x.open))
	sort.SliceStable(x.open, func(i, j int) bool {
		return x.open[i].event.Start < x.open[j].event.Start
	})
	for len(x.open) > 0 {
		x.close(0, end)
	}
}
