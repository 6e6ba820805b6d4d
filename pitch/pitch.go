package pitch

import (
	"fmt"
	"strings"
)

const (
	RestID = -1
	MinID  = 0
	MaxID  = 127
)

// Pitch is one entry of the pitch enumeration. Sharp and flat spellings of the
// same key are distinct entries that share an id.
type Pitch struct {
	ordinal    int
	id         int
	naturalID  int
	octave     int
	accidental int
	abc        string
	name       string
}

var (
	Rest        Pitch
	MinPlayable Pitch
	MaxPlayable Pitch
)

var (
	all      []Pitch
	byID     map[int]Pitch
	byABC    map[string]Pitch
	letters  = []byte{'C', 'D', 'E', 'F', 'G', 'A', 'B'}
	semitone = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}
)

func init() {
	Rest = Pitch{ordinal: 0, id: RestID, naturalID: RestID, abc: "z", name: "rest"}
	all = append(all, Rest)

	add := func(letter byte, octave, accidental int) {
		id := (octave+1)*12 + semitone[letter] + accidental
		if id < MinID || id > MaxID {
			return
		}
		p := Pitch{
			ordinal:    len(all),
			id:         id,
			naturalID:  id - accidental,
			octave:     octave,
			accidental: accidental,
		}
		p.abc = formatABC(letter, octave, accidental)
		p.name = formatName(letter, octave, accidental)
		all = append(all, p)
	}

	// a sharp is emitted before the flat of the next letter, so enharmonic
	// twins are always adjacent
	for octave := -1; octave <= 9; octave++ {
		for _, letter := range letters {
			if letter != 'C' && letter != 'F' {
				add(letter, octave, -1)
			}
			add(letter, octave, 0)
			if letter != 'E' && letter != 'B' {
				add(letter, octave, 1)
			}
		}
	}

	byID = make(map[int]Pitch, MaxID+2)
	byABC = make(map[string]Pitch, len(all))
	for _, p := range all {
		if _, ok := byID[p.id]; !ok {
			byID[p.id] = p
		}
		byABC[p.abc] = p
	}

	MinPlayable = byID[36]
	MaxPlayable = byID[72]
}

func formatABC(letter byte, octave, accidental int) string {
	var sb strings.Builder
	switch {
	case accidental > 0:
		sb.WriteByte('^')
	case accidental < 0:
		sb.WriteByte('_')
	}
	if octave <= 3 {
		sb.WriteByte(letter)
		for i := octave; i < 3; i++ {
			sb.WriteByte(',')
		}
	} else {
		sb.WriteByte(letter - 'A' + 'a')
		for i := octave; i > 4; i-- {
			sb.WriteByte('\'')
		}
	}
	return sb.String()
}

func formatName(letter byte, octave, accidental int) string {
	switch {
	case accidental > 0:
		return fmt.Sprintf("%c#%d", letter, octave)
	case accidental < 0:
		return fmt.Sprintf("%cb%d", letter, octave)
	}
	return fmt.Sprintf("%c%d", letter, octave)
}

// FromID returns the sharp spelling for id. The rest id always resolves.
func FromID(id int) (Pitch, bool) {
	p, ok := byID[id]
	return p, ok
}

// FromABC resolves a notation string such as "^c'" or "_B,".
func FromABC(s string) (Pitch, bool) {
	p, ok := byABC[s]
	return p, ok
}

// All returns every pitch in enumeration order, rest first.
func All() []Pitch {
	res := make([]Pitch, len(all))
	copy(res, all)
	return res
}

// Enharmonic returns p respelled with the preferred accidental. Pitches
// without an accidental are returned unchanged.
func Enharmonic(p Pitch, preferSharp bool) Pitch {
	switch {
	case p.accidental > 0 && !preferSharp:
		return all[p.ordinal+1]
	case p.accidental < 0 && preferSharp:
		return all[p.ordinal-1]
	}
	return p
}

func (p Pitch) ID() int          { return p.id }
func (p Pitch) NaturalID() int   { return p.naturalID }
func (p Pitch) Octave() int      { return p.octave }
func (p Pitch) IsRest() bool     { return p.id == RestID }
func (p Pitch) IsSharp() bool    { return p.accidental > 0 }
func (p Pitch) IsFlat() bool     { return p.accidental < 0 }
func (p Pitch) ABC() string      { return p.abc }
func (p Pitch) String() string   { return p.name }
func (p Pitch) Natural() Pitch   { return byID[p.naturalID] }
func (p Pitch) IsPlayable() bool { return p.id >= MinPlayable.id && p.id <= MaxPlayable.id }

// Transpose moves p by the given number of semitones, keeping the sharp
// spelling. It fails for rests and when the result leaves the MIDI range.
func (p Pitch) Transpose(semitones int) (Pitch, bool) {
	if p.IsRest() {
		return p, false
	}
	return FromID(p.id + semitones)
}
