package abc

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/jsphweid/abcdex/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	// MaxChordNotes is the most notes the game will play at once in one part.
	MaxChordNotes = 6
	// LongestNoteMicros is the longest single note accepted in strict mode.
	LongestNoteMicros = 8_000_000

	maxPPQN      = 32767
	maxChannel   = 15
	drumChannel  = 9
	reverbAmount = 0
	chorusAmount = 0

	ccVolume = 7
	ccPan    = 10
	ccReverb = 91
	ccChorus = 93
)

type Options struct {
	// Strict turns playability problems into errors instead of warnings.
	Strict bool
	// Stereo spreads parts across the pan range.
	Stereo bool
	// UseGameInstruments keeps pitches at the game's octave and randomizes
	// cowbell pitches.
	UseGameInstruments bool
	// Regions records the source span of every note and chord.
	Regions bool
	// InstrumentOverrides is keyed by part order, starting at 1.
	InstrumentOverrides map[int]Instrument
	Rand                *rand.Rand
}

func DefaultOptions() Options {
	return Options{Stereo: true, UseGameInstruments: true}
}

// Source is one ABC file. Parts of a song may be split over several sources.
type Source struct {
	Name  string
	Lines []string
}

type Result struct {
	SMF      *smf.SMF
	Info     *Info
	Warnings []Warning
}

// Convert turns one ABC file into a standard MIDI file.
func Convert(name string, lines []string, opts Options) (*Result, error) {
	return ConvertFiles([]Source{{Name: name, Lines: lines}}, opts)
}

// ConvertFiles converts the sources in order as one song. Track 0 carries
// the song wide meta events and every part gets its own track after it.
func ConvertFiles(sources []Source, opts Options) (*Result, error) {
	c := newConverter(opts)
	for _, src := range sources {
		if err := c.convertFile(src); err != nil {
			return nil, err
		}
	}
	s, err := c.finish()
	if err != nil {
		return nil, err
	}
	return &Result{SMF: s, Info: c.info, Warnings: c.warnings}, nil
}

type position struct {
	file      string
	line, col int
}

type pendingOff struct {
	ev     *timedEvent
	noteID int
}

type converter struct {
	opts     Options
	rng      *rand.Rand
	info     *Info
	tune     *tune
	warnings []Warning

	// nil until the first note line; tracks[0] is the meta track
	tracks    []*trackBuilder
	cur       *trackBuilder
	part      *Part
	partCount int
	ppqn      int64

	file              string
	line              int
	divisorChangeLine int

	chordStartTick float64
	chordEndTick   float64
	tiedNotes      map[int]position
	tiedRegions    map[int]int
	accidentals    map[int]int
	noteOffs       []pendingOff

	fileHasNotes   bool
	rangeWarned    bool
	durationWarned bool
}

func newConverter(opts Options) *converter {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &converter{
		opts:        opts,
		rng:         rng,
		info:        newInfo(),
		tune:        newTune(),
		tiedNotes:   map[int]position{},
		tiedRegions: map[int]int{},
		accidentals: map[int]int{},
	}
}

func (c *converter) fail(col int, sentinel error, format string, args ...interface{}) error {
	return &ParseError{
		File:   c.file,
		Line:   c.line,
		Column: col,
		Msg:    fmt.Sprintf(format, args...),
		Err:    sentinel,
	}
}

func (c *converter) warn(format string, args ...interface{}) {
	w := Warning{File: c.file, Line: c.line, Message: fmt.Sprintf(format, args...)}
	c.warnings = append(c.warnings, w)
	log.WithFields(log.Fields{"file": w.File, "line": w.Line}).Warn(w.Message)
}

func (c *converter) convertFile(src Source) error {
	c.file = src.Name
	c.line = 0
	c.cur = nil
	c.chordStartTick = 0
	c.accidentals = map[int]int{}
	c.noteOffs = nil
	c.fileHasNotes = false

	for i, raw := range src.Lines {
		c.line = i + 1
		if err := c.processLine(raw); err != nil {
			return err
		}
	}

	if !c.fileHasNotes {
		return c.fail(0, ErrNoNotes, "the file contains no notes")
	}
	if err := c.checkTies(); err != nil {
		return err
	}
	c.closePart(len(src.Lines))
	c.part = nil
	return nil
}

// checkTies fails on the earliest tie still waiting for its next note.
func (c *converter) checkTies() error {
	if len(c.tiedNotes) == 0 {
		return nil
	}
	open := make([]position, 0, len(c.tiedNotes))
	for _, p := range c.tiedNotes {
		open = append(open, p)
	}
	sort.Slice(open, func(i, j int) bool {
		if open[i].line != open[j].line {
			return open[i].line < open[j].line
		}
		return open[i].col < open[j].col
	})
	p := open[0]
	return &ParseError{
		File:   p.file,
		Line:   p.line,
		Column: p.col,
		Msg:    "tied note does not connect to another note",
		Err:    ErrTie,
	}
}

// currentPart returns the part being read, starting one if the file has no
// X: field ahead of its first note.
func (c *converter) currentPart() *Part {
	if c.part == nil {
		c.partCount++
		c.tune.newPart(c.partCount)
		if inst, ok := c.opts.InstrumentOverrides[c.partCount]; ok {
			c.tune.setInstrument(inst)
		}
		c.part = &Part{Number: c.partCount, File: c.file, StartLine: c.line}
	}
	return c.part
}

func (c *converter) closePart(endLine int) {
	if c.part != nil && c.part.Track > 0 {
		c.part.EndLine = endLine
	}
}

func (c *converter) overridden() bool {
	_, ok := c.opts.InstrumentOverrides[c.partCount]
	return ok
}

func trackChannel(index int) int {
	if index < drumChannel {
		return index
	}
	return index + 1
}

func (c *converter) startSequence() error {
	if c.tune.ppqn > maxPPQN {
		return &ParseError{
			File: c.file,
			Line: c.divisorChangeLine,
			Msg:  "the default note length is too short for the MIDI time base",
			Err:  ErrInconsistentTiming,
		}
	}
	c.ppqn = c.tune.ppqn
	c.tracks = []*trackBuilder{{}}
	c.info.primaryTempo = c.tune.primaryTempo
	c.info.meter = c.tune.meter
	c.info.key = c.tune.key
	c.info.resolution = c.ppqn
	return nil
}

func (c *converter) openTrack() error {
	part := c.currentPart()
	index := len(c.tracks)
	ch := trackChannel(index)
	if ch > maxChannel {
		return &ParseError{
			File: part.File,
			Line: part.StartLine,
			Msg:  fmt.Sprintf("too many parts (max = %d)", maxChannel),
			Err:  ErrTooManyParts,
		}
	}

	b := &trackBuilder{}
	channel := uint8(ch)
	b.add(0, midi.ProgramChange(channel, c.tune.instrument.Program()))
	if c.opts.UseGameInstruments {
		b.add(1, midi.ControlChange(channel, ccVolume, 127))
		b.add(1, midi.ControlChange(channel, ccReverb, reverbAmount))
		b.add(1, midi.ControlChange(channel, ccChorus, chorusAmount))
	}

	part.Track = index
	part.Channel = channel
	part.Instrument = c.tune.instrument
	c.info.parts = append(c.info.parts, part)
	c.tracks = append(c.tracks, b)
	c.cur = b
	c.rangeWarned = false
	c.durationWarned = false
	return nil
}

func round(f float64) int64 {
	return int64(math.Round(f))
}

// finish writes the song wide meta events and per part names and pan, then
// builds the file.
func (c *converter) finish() (*smf.SMF, error) {
	meta := c.tracks[0]
	for _, tick := range util.GetKeys(c.tune.allPartsTempo) {
		meta.add(tick, smf.MetaTempo(float64(c.tune.allPartsTempo[tick])))
	}
	meta.prepend(0, smf.MetaMeter(uint8(c.info.meter.Numerator), uint8(c.info.meter.Denominator)))
	if sf, major, ok := c.info.key.MIDIKey(); ok {
		meta.prepend(0, smf.MetaKey(keyTonic(sf, major), major, uint8(abs(int(sf))), sf < 0))
	}
	meta.prepend(0, smf.MetaTrackSequenceName(c.info.Title()))

	var pan *PanGenerator
	if c.opts.Stereo && len(c.info.parts) > 1 {
		pan = NewPanGenerator()
	}
	for i, part := range c.info.parts {
		b := c.tracks[part.Track]
		name := c.info.PartName(i)
		amount := PanCenter
		if pan != nil {
			amount = util.Clamp(pan.Get(part.Instrument, name), 0, 127)
		}
		b.prepend(0, midi.ControlChange(part.Channel, ccPan, uint8(amount)))
		b.prepend(0, smf.MetaTrackSequenceName(name))
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(uint16(c.ppqn))
	for _, b := range c.tracks {
		if err := s.Add(b.build()); err != nil {
			return nil, errors.Wrap(err, "adding track")
		}
	}
	return s, nil
}

// keyTonic is the pitch class of the tonic for a key with sf sharps (or
// flats when negative).
func keyTonic(sf int8, major bool) uint8 {
	tonic := int(sf) * 7
	if !major {
		tonic += 9
	}
	return uint8(((tonic % 12) + 12) % 12)
}
