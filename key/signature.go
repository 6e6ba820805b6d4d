package key

import (
	"strings"

	"github.com/jsphweid/abcdex/pitch"
	"github.com/pkg/errors"
)

type Mode int

const (
	Major Mode = iota
	Minor
	Dorian
	Phrygian
	Lydian
	Mixolydian
	Locrian
)

var ErrInvalidKey = errors.New("invalid key signature")

var modeNames = map[Mode]string{
	Major:      "maj",
	Minor:      "min",
	Dorian:     "dor",
	Phrygian:   "phr",
	Lydian:     "lyd",
	Mixolydian: "mix",
	Locrian:    "loc",
}

// tonic names indexed by sharpsFlats+7
var tonics = map[Mode][15]string{
	Major:      {"Cb", "Gb", "Db", "Ab", "Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#"},
	Minor:      {"Ab", "Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#", "G#", "D#", "A#"},
	Dorian:     {"Db", "Ab", "Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#", "G#", "D#"},
	Phrygian:   {"Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#", "G#", "D#", "A#", "E#"},
	Lydian:     {"Fb", "Cb", "Gb", "Db", "Ab", "Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#"},
	Mixolydian: {"Gb", "Db", "Ab", "Eb", "Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#", "G#"},
	Locrian:    {"Bb", "F", "C", "G", "D", "A", "E", "B", "F#", "C#", "G#", "D#", "A#", "E#", "B#"},
}

// pitch classes in the order accidentals are added to a key signature
var (
	sharpOrder = [7]int{5, 0, 7, 2, 9, 4, 11}
	flatOrder  = [7]int{11, 4, 9, 2, 7, 0, 5}
)

// Signature is a key signature: up to seven sharps (positive) or flats
// (negative) plus a mode.
type Signature struct {
	sharpsFlats int
	mode        Mode
}

var CMajor = Signature{0, Major}

func New(sharpsFlats int, mode Mode) (Signature, error) {
	if sharpsFlats < -7 || sharpsFlats > 7 {
		return CMajor, errors.Wrap(ErrInvalidKey, "more than 7 sharps or flats")
	}
	if _, ok := modeNames[mode]; !ok {
		return CMajor, errors.Wrapf(ErrInvalidKey, "unknown mode %d", mode)
	}
	return Signature{sharpsFlats, mode}, nil
}

func parseMode(suffix string) (Mode, bool) {
	suffix = strings.ToLower(suffix)
	switch suffix {
	case "", "maj", "ion":
		return Major, true
	case "m", "min", "aeo":
		return Minor, true
	}
	for mode, name := range modeNames {
		if name == suffix {
			return mode, true
		}
	}
	return Major, false
}

// Parse reads a key field value such as "G", "F#m", "Bb mix" or "Ddorian".
func Parse(s string) (Signature, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CMajor, errors.Wrap(ErrInvalidKey, "empty key")
	}

	tonic := s[:1]
	if len(s) > 1 && (s[1] == 'b' || s[1] == '#' || s[1] == 's') {
		tonic = s[:1] + strings.Replace(s[1:2], "s", "#", 1)
	}

	suffix := strings.TrimSpace(s[len(tonic):])
	if len(suffix) > 3 {
		suffix = suffix[:3]
	}
	mode, ok := parseMode(suffix)
	if !ok {
		return CMajor, errors.Wrapf(ErrInvalidKey, "%q", s)
	}

	for i, name := range tonics[mode] {
		if strings.EqualFold(name, tonic) {
			return Signature{i - 7, mode}, nil
		}
	}
	return CMajor, errors.Wrapf(ErrInvalidKey, "%q", s)
}

func (k Signature) SharpsFlats() int { return k.sharpsFlats }
func (k Signature) Mode() Mode       { return k.mode }
func (k Signature) IsMajor() bool    { return k.mode == Major }
func (k Signature) IsMinor() bool    { return k.mode == Minor }

// Tonic is the name of the key's home note, e.g. "Bb".
func (k Signature) Tonic() string {
	return tonics[k.mode][k.sharpsFlats+7]
}

// DefaultAccidental is the accidental the key applies to a natural pitch
// that carries no explicit accidental.
func (k Signature) DefaultAccidental(naturalID int) Accidental {
	class := ((naturalID % 12) + 12) % 12
	for i := 0; i < k.sharpsFlats; i++ {
		if sharpOrder[i] == class {
			return Sharp
		}
	}
	for i := 0; i < -k.sharpsFlats; i++ {
		if flatOrder[i] == class {
			return Flat
		}
	}
	return None
}

// OutputAccidental is the accidental that has to be written for p in this
// key, or None when the key signature already implies it.
func (k Signature) OutputAccidental(p pitch.Pitch) Accidental {
	if p.IsRest() {
		return None
	}
	p = pitch.Enharmonic(p, k.sharpsFlats >= 0)
	delta := p.ID() - p.NaturalID()
	if delta == k.DefaultAccidental(p.NaturalID()).Delta() {
		return None
	}
	if delta == 0 {
		return Natural
	}
	acc, _ := AccidentalFromDelta(delta)
	return acc
}

// Transpose moves the key by a number of semitones around the circle of
// fifths, keeping the mode and preferring the spelling with fewer accidentals.
func (k Signature) Transpose(semitones int) Signature {
	if semitones%12 == 0 {
		return k
	}
	shift := (semitones * 7) % 12
	if shift > 6 {
		shift -= 12
	} else if shift < -6 {
		shift += 12
	}
	sf := k.sharpsFlats + shift
	if sf > 6 {
		sf -= 12
	} else if sf < -6 {
		sf += 12
	}
	return Signature{sf, k.mode}
}

func (k Signature) String() string {
	switch k.mode {
	case Major:
		return k.Tonic()
	case Minor:
		return k.Tonic() + "m"
	}
	return k.Tonic() + " " + modeNames[k.mode]
}

// MIDIKey returns the arguments of a key signature meta event. Only major
// and minor keys can be expressed.
func (k Signature) MIDIKey() (sharpsFlats int8, isMajor bool, ok bool) {
	if k.mode != Major && k.mode != Minor {
		return 0, false, false
	}
	return int8(k.sharpsFlats), k.mode == Major, true
}
