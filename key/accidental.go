package key

import "github.com/pkg/errors"

type Accidental int

const (
	None Accidental = iota
	DoubleFlat
	Flat
	Natural
	Sharp
	DoubleSharp
)

var ErrInvalidAccidental = errors.New("invalid accidental")

var accidentals = []struct {
	notation string
	delta    int
}{
	None:        {"", 0},
	DoubleFlat:  {"__", -2},
	Flat:        {"_", -1},
	Natural:     {"=", 0},
	Sharp:       {"^", 1},
	DoubleSharp: {"^^", 2},
}

// Delta is the number of semitones the accidental moves a natural pitch.
func (a Accidental) Delta() int {
	return accidentals[a].delta
}

func (a Accidental) String() string {
	return accidentals[a].notation
}

func ParseAccidental(s string) (Accidental, error) {
	for i, acc := range accidentals {
		if acc.notation == s {
			return Accidental(i), nil
		}
	}
	return None, errors.Wrapf(ErrInvalidAccidental, "%q", s)
}

// AccidentalFromDelta returns the accidental for a semitone offset. A zero
// delta maps to None.
func AccidentalFromDelta(delta int) (Accidental, error) {
	switch delta {
	case -2:
		return DoubleFlat, nil
	case -1:
		return Flat, nil
	case 0:
		return None, nil
	case 1:
		return Sharp, nil
	case 2:
		return DoubleSharp, nil
	}
	return None, errors.Wrapf(ErrInvalidAccidental, "delta %d", delta)
}
