package abc

import "github.com/jsphweid/abcdex/util"

type Dynamics int

const (
	PPPP Dynamics = iota
	PPP
	PP
	P
	MP
	MF
	F
	FF
	FFF
	FFFF
)

const DefaultDynamics = MF

var dynamics = []struct {
	name    string
	midiVol int
	abcVol  int
}{
	{"pppp", 4, 57},
	{"ppp", 16, 61},
	{"pp", 32, 75},
	{"p", 48, 87},
	{"mp", 64, 97},
	{"mf", 80, 106},
	{"f", 96, 115},
	{"ff", 112, 123},
	{"fff", 127, 127},
	{"ffff", 144, 127},
}

func ParseDynamics(s string) (Dynamics, bool) {
	for i, d := range dynamics {
		if d.name == s {
			return Dynamics(i), true
		}
	}
	return 0, false
}

func (d Dynamics) String() string {
	return dynamics[d].name
}

// Velocity is the note-on velocity for d. Game instruments use the louder
// in-game curve.
func (d Dynamics) Velocity(gameInstruments bool) uint8 {
	v := dynamics[d].midiVol
	if gameInstruments {
		v = dynamics[d].abcVol
	}
	return uint8(util.Clamp(v, 0, 127))
}

// DynamicsFromVelocity picks the marking whose midi volume is nearest.
func DynamicsFromVelocity(velocity int) Dynamics {
	best := PPPP
	bestDelta := abs(velocity - dynamics[0].midiVol)
	for i := 1; i < len(dynamics); i++ {
		delta := abs(velocity - dynamics[i].midiVol)
		if delta >= bestDelta {
			break
		}
		best, bestDelta = Dynamics(i), delta
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
