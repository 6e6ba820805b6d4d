package timing

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	OneSecondMicros    = 1_000_000
	OneMinuteMicros    = 60 * OneSecondMicros
	ShortestNoteMicros = OneMinuteMicros / 1000
	LongestNoteMicros  = 6 * OneSecondMicros

	MaxTempo = OneMinuteMicros / ShortestNoteMicros
	MinTempo = (OneMinuteMicros + LongestNoteMicros/2) / LongestNoteMicros
)

var (
	ErrOutOfRangeTempo = errors.New("tempo out of range")
	ErrInvalidMeter    = errors.New("invalid meter")
)

type Meter struct {
	Numerator   int
	Denominator int
}

var CommonTime = Meter{4, 4}

func (m Meter) Valid() bool {
	return m.Numerator > 0 && m.Denominator > 0
}

func (m Meter) String() string {
	return strconv.Itoa(m.Numerator) + "/" + strconv.Itoa(m.Denominator)
}

// ParseMeter reads "n/d".
func ParseMeter(s string) (Meter, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Meter{}, errors.Wrap(ErrInvalidMeter, s)
	}
	n, err1 := strconv.Atoi(num)
	d, err2 := strconv.Atoi(den)
	m := Meter{n, d}
	if err1 != nil || err2 != nil || !m.Valid() {
		return Meter{}, errors.Wrap(ErrInvalidMeter, s)
	}
	return m, nil
}

// Compound meters have a numerator divisible by three.
func (m Meter) Compound() bool {
	return m.Numerator%3 == 0
}

// DefaultDivisor is 16 when the meter is below 3/4 and 8 otherwise.
func (m Meter) DefaultDivisor() int {
	if float64(m.Numerator)/float64(m.Denominator) < 0.75 {
		return 16
	}
	return 8
}

// Descriptor holds the note duration quanta derived from one tempo and meter.
// Durations are in microseconds. Tempo counts default-length notes per minute.
type Descriptor struct {
	Tempo               int
	Meter               Meter
	DefaultDivisor      int
	ShortestDivisor     int
	DefaultNoteDuration int64
	MinNoteDuration     int64
	MaxNoteDuration     int64
	BarDuration         int64
}

func NewDescriptor(tempo int, meter Meter) (Descriptor, error) {
	if !meter.Valid() {
		return Descriptor{}, errors.Wrapf(ErrInvalidMeter, "%d/%d", meter.Numerator, meter.Denominator)
	}
	if tempo > MaxTempo || tempo < MinTempo {
		return Descriptor{}, errors.Wrapf(ErrOutOfRangeTempo, "tempo %d must be between %d and %d", tempo, MinTempo, MaxTempo)
	}

	d := Descriptor{
		Tempo:          tempo,
		Meter:          meter,
		DefaultDivisor: meter.DefaultDivisor(),
	}

	raw := int64(OneMinuteMicros / tempo)
	min := raw
	shortest := 1
	for min >= 2*ShortestNoteMicros {
		min /= 2
		shortest *= 2
	}
	d.MinNoteDuration = min
	d.ShortestDivisor = shortest
	// The default is rebuilt from the quantum so the quantum divides it
	// exactly. At tempos where halving drops a remainder this is slightly
	// shorter than OneMinuteMicros/tempo (4615360 rather than 4615384 at 13).
	d.DefaultNoteDuration = min * int64(shortest)
	d.MaxNoteDuration = d.DefaultNoteDuration * (LongestNoteMicros / d.DefaultNoteDuration)
	d.BarDuration = math.MaxInt64
	return d, nil
}

// NewScaledDescriptor applies a tempo scale factor (1 keeps the tempo) before
// deriving the descriptor.
func NewScaledDescriptor(tempo int, meter Meter, scale float64) (Descriptor, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Descriptor{}, errors.Wrapf(ErrOutOfRangeTempo, "scale factor %v", scale)
	}
	return NewDescriptor(int(math.Round(float64(tempo)*scale)), meter)
}

// BPM is the tempo in quarter notes per minute.
func (d Descriptor) BPM() int {
	return d.Tempo * 4 / d.DefaultDivisor
}

// MPQ is the duration of a quarter note in microseconds.
func (d Descriptor) MPQ() int {
	return OneMinuteMicros / d.BPM()
}

// MIDIResolution is the number of ticks per quarter note needed to express
// the smallest quantum.
func (d Descriptor) MIDIResolution() int {
	res := d.ShortestDivisor * d.DefaultDivisor / 4
	if res < 1 {
		return 1
	}
	return res
}

// Ticks converts a duration to ticks at MIDIResolution.
func (d Descriptor) Ticks(micros int64) int64 {
	return int64(float64(micros) * float64(d.MIDIResolution()) / float64(d.MPQ()))
}
