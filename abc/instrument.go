package abc

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jsphweid/abcdex/pitch"
	"github.com/pkg/errors"
)

type Instrument int

const (
	Lute Instrument = iota
	LuteOfAges
	Harp
	MistyMountainHarp
	Theorbo
	Flute
	Clarinet
	Horn
	Bagpipe
	Pibgorn
	Drums
	Cowbell
	MoorCowbell
)

var ErrUnknownInstrument = errors.New("unknown instrument")

type instrumentSpec struct {
	name        string
	sustainable bool
	program     uint8
	octaveDelta int
	percussion  bool
}

var instruments = []instrumentSpec{
	Lute:              {"Lute", false, 25, 0, false},
	LuteOfAges:        {"Lute of Ages", false, 24, 0, false},
	Harp:              {"Harp", false, 46, 0, false},
	MistyMountainHarp: {"Misty Mountain Harp", false, 27, 0, false},
	Theorbo:           {"Theorbo", false, 32, -1, false},
	Flute:             {"Flute", true, 73, 2, false},
	Clarinet:          {"Clarinet", true, 71, 1, false},
	Horn:              {"Horn", true, 69, 0, false},
	Bagpipe:           {"Bagpipe", true, 109, 1, false},
	Pibgorn:           {"Pibgorn", true, 84, 2, false},
	Drums:             {"Drums", false, 118, 0, true},
	Cowbell:           {"Cowbell", false, 115, 0, true},
	MoorCowbell:       {"Moor Cowbell", false, 114, 0, true},
}

var nicknames = map[string]Instrument{
	"BANJO":        Lute,
	"GUITAR":       Lute,
	"DRUM":         Drums,
	"BASS":         Theorbo,
	"THEO":         Theorbo,
	"BAGPIPES":     Bagpipe,
	"MOORCOWBELL":  MoorCowbell,
	"MOOR COWBELL": MoorCowbell,
	"MORE COWBELL": MoorCowbell,
}

var (
	instrumentNames = map[string]Instrument{}
	instrumentRegex *regexp.Regexp
)

func init() {
	var words []string
	for i, spec := range instruments {
		upper := strings.ToUpper(spec.name)
		instrumentNames[upper] = Instrument(i)
		words = append(words, upper)
	}
	for nick, inst := range nicknames {
		instrumentNames[nick] = inst
		words = append(words, nick)
	}
	// longest first so "Lute of Ages" wins over "Lute"
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	instrumentRegex = regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`)
}

func Instruments() []Instrument {
	res := make([]Instrument, len(instruments))
	for i := range res {
		res[i] = Instrument(i)
	}
	return res
}

func (i Instrument) valid() bool   { return i >= 0 && int(i) < len(instruments) }
func (i Instrument) String() string { return instruments[i].name }
func (i Instrument) Program() uint8 { return instruments[i].program }
func (i Instrument) OctaveDelta() int {
	return instruments[i].octaveDelta
}
func (i Instrument) IsPercussion() bool { return instruments[i].percussion }

// IsSustainable reports whether a note held on this instrument keeps sounding.
func (i Instrument) IsSustainable(noteID int) bool {
	return instruments[i].sustainable && i.IsPlayable(noteID)
}

func (i Instrument) IsPlayable(noteID int) bool {
	return noteID >= pitch.MinPlayable.ID() && noteID <= pitch.MaxPlayable.ID()
}

// HasIndeterminatePitch is true for instruments whose written pitch is ignored.
func (i Instrument) HasIndeterminatePitch() bool {
	return i == Cowbell || i == MoorCowbell
}

// FindInstrument looks for an instrument name or nickname as a whole word in s.
func FindInstrument(s string) (Instrument, bool) {
	m := instrumentRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	inst, ok := instrumentNames[strings.ToUpper(m[1])]
	return inst, ok
}

// ParseInstrument accepts display names, constant style names and a couple
// of legacy aliases.
func ParseInstrument(s string) (Instrument, error) {
	key := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
	switch key {
	case "MM HARP":
		return MistyMountainHarp, nil
	case "BASIC LUTE":
		return Lute, nil
	}
	for i, spec := range instruments {
		if strings.ToUpper(spec.name) == key {
			return Instrument(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownInstrument, "%q", s)
}
