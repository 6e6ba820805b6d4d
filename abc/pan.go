package abc

import (
	"regexp"
	"strings"
)

const PanCenter = 64

var (
	leftRegex   = regexp.MustCompile(`\bleft\b`)
	rightRegex  = regexp.MustCompile(`\bright\b`)
	centerRegex = regexp.MustCompile(`\b(middle|center)\b`)
)

// PanGenerator spreads parts of the same instrument around that
// instrument's home position: right of it, then left, then on it.
type PanGenerator struct {
	count map[Instrument]int
}

func NewPanGenerator() *PanGenerator {
	return &PanGenerator{count: map[Instrument]int{}}
}

func (g *PanGenerator) Reset() {
	g.count = map[Instrument]int{}
}

// Get returns the pan for a part, letting left/right/center in its title win.
func (g *PanGenerator) Get(inst Instrument, partTitle string) int {
	pan := g.next(inst)
	title := strings.ToLower(partTitle)
	switch {
	case leftRegex.MatchString(title):
		pan = PanCenter - abs(pan-PanCenter)
	case rightRegex.MatchString(title):
		pan = PanCenter + abs(pan-PanCenter)
	case centerRegex.MatchString(title):
		pan = PanCenter
	}
	return pan
}

func (g *PanGenerator) next(inst Instrument) int {
	switch inst {
	case MistyMountainHarp:
		inst = Harp
	case MoorCowbell:
		inst = Cowbell
	}

	c := g.count[inst]
	g.count[inst]++
	sign := 0
	switch c % 3 {
	case 0:
		sign = 1
	case 1:
		sign = -1
	}

	var offset int
	switch inst {
	case Harp:
		offset = -45
	case Flute:
		offset = -40
	case Bagpipe:
		offset = -30
	case Theorbo:
		offset = -25
	case Cowbell:
		offset = -15
	case Drums:
		offset = 15
	case Pibgorn:
		offset = 20
	case Horn:
		offset = 25
	case Lute, LuteOfAges:
		offset = 35
	case Clarinet:
		offset = 45
	}
	return PanCenter + sign*offset
}
