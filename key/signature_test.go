package key

import (
	"errors"
	"testing"

	"github.com/jsphweid/abcdex/pitch"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in          string
		sharpsFlats int
		mode        Mode
	}{
		{"C", 0, Major},
		{"G", 1, Major},
		{"F", -1, Major},
		{"F#m", 3, Minor},
		{"Fsm", 3, Minor},
		{"Bb mix", -3, Mixolydian},
		{"Ddorian", 0, Dorian},
		{"Am", 0, Minor},
		{"Ebmaj", -3, Major},
		{"c#", 7, Major},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			k, err := Parse(c.in)
			assert := assert.New(t)
			assert.NoError(err)
			assert.Equal(c.sharpsFlats, k.SharpsFlats())
			assert.Equal(c.mode, k.Mode())
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "H", "Cxyz", "G#b"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.True(t, errors.Is(err, ErrInvalidKey))
		})
	}
}

func TestDefaultAccidental(t *testing.T) {
	assert := assert.New(t)

	d, _ := Parse("D")
	assert.Equal(Sharp, d.DefaultAccidental(65)) // F
	assert.Equal(Sharp, d.DefaultAccidental(60)) // C
	assert.Equal(None, d.DefaultAccidental(67))  // G

	bb, _ := Parse("Bb")
	assert.Equal(Flat, bb.DefaultAccidental(71)) // B
	assert.Equal(Flat, bb.DefaultAccidental(64)) // E
	assert.Equal(None, bb.DefaultAccidental(69)) // A

	assert.Equal(None, CMajor.DefaultAccidental(65))
}

func TestOneDecisionPerPitchClass(t *testing.T) {
	assert := assert.New(t)
	for sf := -7; sf <= 7; sf++ {
		k, err := New(sf, Major)
		assert.NoError(err)
		altered := 0
		for _, natural := range []int{0, 2, 4, 5, 7, 9, 11} {
			if k.DefaultAccidental(natural) != None {
				altered++
			}
		}
		if sf < 0 {
			assert.Equal(-sf, altered)
		} else {
			assert.Equal(sf, altered)
		}
	}
}

func TestOutputAccidental(t *testing.T) {
	assert := assert.New(t)

	g, _ := Parse("G")
	fs, _ := pitch.FromABC("^f")
	f, _ := pitch.FromABC("f")
	assert.Equal(None, g.OutputAccidental(fs))
	assert.Equal(Natural, g.OutputAccidental(f))

	cs, _ := pitch.FromABC("^c")
	assert.Equal(Sharp, g.OutputAccidental(cs))
	assert.Equal(Flat, CMajor.Transpose(-2).OutputAccidental(pitch.Enharmonic(cs, false)))
}

func TestTransposeAndString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("D", CMajor.Transpose(2).String())
	assert.Equal("Bb", CMajor.Transpose(-2).String())
	assert.Equal("Db", CMajor.Transpose(1).String())
	assert.Equal(CMajor, CMajor.Transpose(12))

	am, _ := Parse("Am")
	assert.Equal("Bm", am.Transpose(2).String())

	dor, _ := Parse("D dor")
	assert.Equal("D dor", dor.String())

	sf, major, ok := am.MIDIKey()
	assert.True(ok)
	assert.False(major)
	assert.Equal(int8(0), sf)

	_, _, ok = dor.MIDIKey()
	assert.False(ok)
}

func TestAccidentals(t *testing.T) {
	assert := assert.New(t)
	for _, s := range []string{"__", "_", "=", "^", "^^", ""} {
		acc, err := ParseAccidental(s)
		assert.NoError(err)
		assert.Equal(s, acc.String())
	}
	assert.Equal(-2, DoubleFlat.Delta())
	assert.Equal(0, Natural.Delta())
	assert.Equal(2, DoubleSharp.Delta())

	_, err := ParseAccidental("^_")
	assert.True(errors.Is(err, ErrInvalidAccidental))
}
