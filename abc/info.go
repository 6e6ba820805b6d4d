package abc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jsphweid/abcdex/key"
	"github.com/jsphweid/abcdex/pitch"
	"github.com/jsphweid/abcdex/timing"
	"github.com/jsphweid/abcdex/util"
)

// Field is an extended %% metadata field.
type Field string

const (
	FieldSongTitle       Field = "song-title"
	FieldSongComposer    Field = "song-composer"
	FieldSongDuration    Field = "song-duration"
	FieldSongTranscriber Field = "song-transcriber"
	FieldABCVersion      Field = "abc-version"
	FieldABCCreator      Field = "abc-creator"
	FieldPartName        Field = "part-name"
	FieldTempo           Field = "Q:"
)

var fields = []Field{
	FieldSongTitle, FieldSongComposer, FieldSongDuration, FieldSongTranscriber,
	FieldABCVersion, FieldABCCreator, FieldPartName, FieldTempo,
}

func parseField(s string) (Field, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "%%"))
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	for _, f := range fields {
		if strings.EqualFold(string(f), s) {
			return f, true
		}
	}
	return "", false
}

const defaultTranscriberNote = "LotRO MIDI Player: http://lotro.acasylum.com/midi"

var trailingPunct = regexp.MustCompile(`[-:;\(\[\{\s]*([\(\[\{]\d{1,2}:\d{2}[\)\]\}])?[-:;\(\[\{\s]*$`)

// Part describes one X: section and the track it was written to.
type Part struct {
	Number     int
	Track      int
	Channel    uint8
	Instrument Instrument
	File       string
	StartLine  int
	EndLine    int

	name             string
	rawName          string
	nameFromExtended bool
}

func (p *Part) setName(name string, fromExtended bool) {
	if fromExtended || !p.nameFromExtended {
		p.name = name
		p.nameFromExtended = fromExtended
	}
	if !fromExtended {
		p.rawName = name
	}
}

// Region maps a span of source text to the ticks it sounds at. Chord
// regions have no pitch.
type Region struct {
	File      string
	Line      int
	StartCol  int
	EndCol    int
	StartTick int64
	EndTick   int64
	Pitch     *pitch.Pitch
	Track     int
	// indices into Info.Regions, -1 when untied
	TiesFrom int
	TiesTo   int
}

func (r Region) IsChord() bool { return r.Pitch == nil }

// Info describes a converted song. It stays valid until the next conversion.
type Info struct {
	metadata    map[byte]string
	extended    map[Field]string
	titlePrefix *string
	bars        util.FloorMap[int64, int]
	parts       []*Part
	regions     []Region

	primaryTempo int
	hasTriplets  bool
	meter        timing.Meter
	key          key.Signature
	resolution   int64
}

func newInfo() *Info {
	return &Info{
		metadata:     map[byte]string{},
		extended:     map[Field]string{},
		primaryTempo: DefaultTempo,
		meter:        timing.CommonTime,
		key:          key.CMajor,
	}
}

func (i *Info) setMetadata(field byte, value string) {
	if _, ok := i.metadata[field]; !ok {
		i.metadata[field] = value
	}
	if field == 'T' {
		if i.titlePrefix == nil {
			i.titlePrefix = &value
		} else {
			prefix := longestCommonPrefix(*i.titlePrefix, value)
			i.titlePrefix = &prefix
		}
	}
}

func (i *Info) addBar(tick int64) {
	if _, ok := i.bars.Get(tick); !ok {
		i.bars.Put(tick, i.bars.Len()+1)
	}
}

func longestCommonPrefix(a, b string) string {
	if len(a) > len(b) {
		a = a[:len(b)]
	}
	for j := 0; j < len(a); j++ {
		if a[j] != b[j] {
			return a[:j]
		}
	}
	return a
}

// Metadata returns the first value of a single letter header field.
func (i *Info) Metadata(field byte) (string, bool) {
	v, ok := i.metadata[field]
	return v, ok
}

func (i *Info) Extended(f Field) (string, bool) {
	v, ok := i.extended[f]
	return v, ok
}

func (i *Info) titleFromPrefix() string {
	if i.titlePrefix == nil || *i.titlePrefix == "" {
		if t, ok := i.metadata['T']; ok {
			return t
		}
		return "(Untitled)"
	}
	return trailingPunct.ReplaceAllString(*i.titlePrefix, "")
}

// Title prefers %%song-title, then what all part titles have in common.
func (i *Info) Title() string {
	if t, ok := i.extended[FieldSongTitle]; ok {
		return t
	}
	return i.titleFromPrefix()
}

func (i *Info) Composer() string {
	if c, ok := i.extended[FieldSongComposer]; ok {
		return c
	}
	return i.metadata['C']
}

func (i *Info) Transcriber() string {
	if t, ok := i.extended[FieldSongTranscriber]; ok {
		return t
	}
	z, ok := i.metadata['Z']
	if !ok {
		return ""
	}
	lower := strings.ToLower(z)
	for _, prefix := range []string{"transcribed by", "transcribed using"} {
		if strings.HasPrefix(lower, prefix) {
			z = strings.TrimSpace(z[len(prefix):])
			break
		}
	}
	if z == defaultTranscriberNote {
		return ""
	}
	return z
}

// BarNumberAt is the 1-based number of the bar containing tick, or 0
// before the first bar line.
func (i *Info) BarNumberAt(tick int64) int {
	return i.bars.ValueAt(tick, 0)
}

func (i *Info) BarCount() int { return i.bars.Len() }

// BarTicks returns the tick of every recorded bar line in order.
func (i *Info) BarTicks() []int64 {
	res := make([]int64, 0, i.bars.Len())
	i.bars.Each(func(k int64, _ int) bool {
		res = append(res, k)
		return true
	})
	return res
}

func (i *Info) PrimaryTempo() int   { return i.primaryTempo }
func (i *Info) HasTriplets() bool   { return i.hasTriplets }
func (i *Info) Meter() timing.Meter { return i.meter }
func (i *Info) Key() key.Signature  { return i.key }
func (i *Info) Resolution() int64   { return i.resolution }
func (i *Info) Parts() []*Part      { return i.parts }
func (i *Info) Regions() []Region   { return i.regions }
func (i *Info) PartCount() int      { return len(i.parts) }

func (i *Info) Part(index int) (*Part, bool) {
	if index < 0 || index >= len(i.parts) {
		return nil, false
	}
	return i.parts[index], true
}

// PartName is the part title with the song wide title prefix removed.
func (i *Info) PartName(index int) string {
	p, ok := i.Part(index)
	if !ok || p.name == "" {
		return fmt.Sprintf("Track %d", index+1)
	}
	if p.nameFromExtended || i.titlePrefix == nil || *i.titlePrefix == "" || len(*i.titlePrefix) == len(p.name) {
		return p.name
	}
	if !strings.HasPrefix(p.name, *i.titlePrefix) {
		return p.name
	}
	return strings.TrimSpace(p.name[len(*i.titlePrefix):])
}

// PartFullName is the part's T: field as written.
func (i *Info) PartFullName(index int) string {
	p, ok := i.Part(index)
	switch {
	case !ok:
		return fmt.Sprintf("Track %d", index+1)
	case p.rawName != "":
		return p.rawName
	case p.name != "":
		return p.name
	}
	return fmt.Sprintf("Track %d", index+1)
}
