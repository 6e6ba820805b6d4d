package abc

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jsphweid/abcdex/key"
	"github.com/jsphweid/abcdex/timing"
	"github.com/jsphweid/abcdex/util"
	"github.com/pkg/errors"
)

// UnitNoteTicks is the length of one unit note (the L: field) in ticks. It
// has many small prime factors so tuplets and broken rhythms divide evenly.
const UnitNoteTicks = (2 * 2 * 2 * 2 * 2 * 2) * (3 * 3) * 5

const (
	DefaultTempo = 120
	minTempo     = 1
	maxTempo     = 10000
)

var fieldSeparator = regexp.MustCompile(`[/:| ]`)

// tune is the header state of the part being read. Key, meter, note length
// and tempo carry over from one part to the next.
type tune struct {
	partNumber        int
	title             string
	titleFromExtended bool
	key               key.Signature
	meter             timing.Meter
	ppqn              int64
	primaryTempo      int
	curPartTempo      util.FloorMap[int64, int]
	allPartsTempo     map[int64]int
	instrument        Instrument
	instrumentSet     bool
	dynamics          Dynamics
}

func newTune() *tune {
	return &tune{
		key:           key.CMajor,
		meter:         timing.CommonTime,
		ppqn:          8 * UnitNoteTicks / 4,
		primaryTempo:  DefaultTempo,
		allPartsTempo: map[int64]int{},
		instrument:    Lute,
		dynamics:      DefaultDynamics,
	}
}

func (t *tune) newPart(number int) {
	t.partNumber = number
	t.instrument = Lute
	t.instrumentSet = false
	t.dynamics = DefaultDynamics
	t.title = ""
	t.titleFromExtended = false
	t.curPartTempo = util.FloorMap[int64, int]{}
}

func (t *tune) setTitle(title string, fromExtended bool) {
	if fromExtended || !t.titleFromExtended {
		t.title = title
		t.titleFromExtended = fromExtended
	}
}

func (t *tune) setInstrument(inst Instrument) {
	t.instrument = inst
	t.instrumentSet = true
}

func (t *tune) setKey(s string) error {
	k, err := key.Parse(s)
	if err != nil {
		return err
	}
	t.key = k
	return nil
}

func parseFraction(s, what, example string) (int, int, error) {
	parts := fieldSeparator.Split(strings.TrimSpace(s), -1)
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("%q is not a valid %s (expected format: %s)", s, what, example)
	}
	num, err1 := strconv.Atoi(parts[0])
	den, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, errors.Errorf("%q is not a valid %s (expected format: %s)", s, what, example)
	}
	return num, den, nil
}

func (t *tune) setNoteDivisor(s string) error {
	num, den, err := parseFraction(s, "note length", "1/4")
	if err != nil {
		return err
	}
	if num != 1 {
		return errors.New("the numerator of the note length must be 1 (example of valid note length: 1/4)")
	}
	if den < 1 {
		return errors.New("the denominator of the note length must be positive (example of valid note length: 1/4)")
	}
	t.ppqn = int64(den) * UnitNoteTicks / int64(t.meter.Denominator)
	return nil
}

func (t *tune) setMeter(s string) error {
	s = strings.TrimSpace(s)
	var m timing.Meter
	switch s {
	case "C":
		m = timing.Meter{Numerator: 4, Denominator: 4}
	case "C|":
		m = timing.Meter{Numerator: 2, Denominator: 2}
	default:
		num, den, err := parseFraction(s, "time signature", "4/4")
		if err != nil {
			return err
		}
		m = timing.Meter{Numerator: num, Denominator: den}
	}
	if m.Numerator < 1 || m.Numerator > 255 || m.Denominator < 1 || m.Denominator > 128 ||
		m.Denominator&(m.Denominator-1) != 0 {
		return errors.Errorf("%q is not a valid time signature", s)
	}

	t.meter = m
	divisor := int64(8)
	if 4*m.Numerator/m.Denominator < 3 {
		divisor = 16
	}
	t.ppqn = divisor * UnitNoteTicks / int64(m.Denominator)
	return nil
}

// parseTempo reads "120" or "1/4=120". The beat length is ignored.
func parseTempo(s string) (int, error) {
	parts := strings.Split(s, "=")
	if len(parts) > 2 {
		return 0, errors.New("unable to read tempo")
	}
	bpm, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return 0, errors.New("unable to read tempo")
	}
	if bpm < minTempo || bpm > maxTempo {
		return 0, errors.Errorf("tempo %d is out of range (expected %d-%d)", bpm, minTempo, maxTempo)
	}
	return bpm, nil
}

func (t *tune) setPrimaryTempo(s string) error {
	bpm, err := parseTempo(s)
	if err != nil {
		return err
	}
	t.primaryTempo = bpm
	if _, ok := t.allPartsTempo[0]; !ok {
		t.allPartsTempo[0] = bpm
	}
	if _, ok := t.curPartTempo.Floor(0); !ok {
		t.curPartTempo.Put(0, bpm)
	}
	return nil
}

func (t *tune) addTempoEvent(tick int64, s string) error {
	bpm, err := parseTempo(s)
	if err != nil {
		return err
	}
	t.allPartsTempo[tick] = bpm
	t.curPartTempo.Put(tick, bpm)
	return nil
}

func (t *tune) currentTempo(tick int64) int {
	return t.curPartTempo.ValueAt(tick, t.primaryTempo)
}
