package timing

import (
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var ErrInvalidTempo = errors.New("invalid tempo")

// TempoChange is a raw tempo event in source ticks.
type TempoChange struct {
	Tick int64
	MPQ  int64
}

// Event is one quantized tempo segment start.
type Event struct {
	Tick         int64
	Micros       int64
	BarNumber    float64
	MPQ          int64
	MinNoteTicks int64
	BarTicks     int64
	Timing       Descriptor
}

// Quantizer aligns tempo changes to the note grid of the segment before them
// and answers tick/time/bar questions against the aligned timeline.
type Quantizer struct {
	resolution int64
	meter      Meter
	scale      float64
	songLength int64
	events     []Event

	barsOnce  sync.Once
	barStarts []int64
}

type QuantizerConfig struct {
	Resolution int
	Meter      Meter
	// Scale multiplies every tempo. Zero means 1.
	Scale      float64
	PrimaryMPQ int64
	Changes    []TempoChange
	SongLength int64
}

func NewQuantizer(cfg QuantizerConfig) (*Quantizer, error) {
	if cfg.Resolution <= 0 {
		return nil, errors.Errorf("resolution must be positive, got %d", cfg.Resolution)
	}
	if !cfg.Meter.Valid() {
		return nil, errors.Wrapf(ErrInvalidMeter, "%d/%d", cfg.Meter.Numerator, cfg.Meter.Denominator)
	}
	if cfg.Scale == 0 {
		cfg.Scale = 1
	}

	q := &Quantizer{
		resolution: int64(cfg.Resolution),
		meter:      cfg.Meter,
		scale:      cfg.Scale,
		songLength: cfg.SongLength,
	}

	first, err := q.newEvent(cfg.PrimaryMPQ)
	if err != nil {
		return nil, err
	}
	q.events = append(q.events, first)

	changes := make([]TempoChange, len(cfg.Changes))
	copy(changes, cfg.Changes)
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Tick < changes[j].Tick
	})

	for _, change := range changes {
		ev, err := q.newEvent(change.MPQ)
		if err != nil {
			return nil, errors.Wrapf(err, "tempo change at tick %d", change.Tick)
		}

		if change.Tick <= 0 {
			q.events[0] = ev
			continue
		}

		prev := q.events[len(q.events)-1]
		// rounded on the previous segment's grid, even when the new segment's
		// grid is finer or coarser
		length := ((change.Tick - prev.Tick + prev.MinNoteTicks/2) / prev.MinNoteTicks) * prev.MinNoteTicks
		if length < 0 {
			length = 0
		}
		ev.Tick = prev.Tick + length
		ev.Micros = prev.Micros + q.ticksToMicros(length, prev.MPQ)
		ev.BarNumber = prev.BarNumber + float64(length)/float64(prev.BarTicks)

		if length == 0 {
			q.events[len(q.events)-1] = ev
		} else {
			q.events = append(q.events, ev)
		}
	}
	return q, nil
}

func (q *Quantizer) newEvent(mpq int64) (Event, error) {
	if mpq <= 0 {
		return Event{}, errors.Wrapf(ErrInvalidTempo, "%d microseconds per quarter", mpq)
	}
	divisor := q.meter.DefaultDivisor()
	tempo := int(math.Round(float64(OneMinuteMicros) * float64(divisor) / (4 * float64(mpq)) * q.scale))
	desc, err := NewDescriptor(tempo, q.meter)
	if err != nil {
		return Event{}, errors.Wrap(ErrInvalidTempo, err.Error())
	}

	minTicks := 4 * q.resolution / int64(divisor*desc.ShortestDivisor)
	if minTicks < 1 {
		minTicks = 1
	}
	barTicks := 4 * q.resolution * int64(q.meter.Numerator) / int64(q.meter.Denominator)
	if barTicks < 1 {
		barTicks = 1
	}
	return Event{
		MPQ:          int64(math.Round(float64(mpq) / q.scale)),
		MinNoteTicks: minTicks,
		BarTicks:     barTicks,
		Timing:       desc,
	}, nil
}

func (q *Quantizer) ticksToMicros(ticks, mpq int64) int64 {
	return ticks * mpq / q.resolution
}

func (q *Quantizer) Resolution() int   { return int(q.resolution) }
func (q *Quantizer) Meter() Meter      { return q.meter }
func (q *Quantizer) Scale() float64    { return q.scale }
func (q *Quantizer) SongLength() int64 { return q.songLength }

// Events returns the quantized segments in tick order. The first is at tick 0.
func (q *Quantizer) Events() []Event {
	res := make([]Event, len(q.events))
	copy(res, q.events)
	return res
}

// EventAt is the segment in effect at tick.
func (q *Quantizer) EventAt(tick int64) Event {
	i := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].Tick > tick
	})
	if i == 0 {
		return q.events[0]
	}
	return q.events[i-1]
}

func (q *Quantizer) TimingAt(tick int64) Descriptor {
	return q.EventAt(tick).Timing
}

// Quantize rounds tick to the nearest multiple of the active grid.
func (q *Quantizer) Quantize(tick int64) int64 {
	grid := q.EventAt(tick).MinNoteTicks
	return ((tick + grid/2) / grid) * grid
}

func (q *Quantizer) TickToMicros(tick int64) int64 {
	e := q.EventAt(tick)
	return e.Micros + q.ticksToMicros(tick-e.Tick, e.MPQ)
}

func (q *Quantizer) MicrosToTick(micros int64) int64 {
	e := q.events[0]
	for _, ev := range q.events {
		if ev.Micros > micros {
			break
		}
		e = ev
	}
	return e.Tick + (micros-e.Micros)*q.resolution/e.MPQ
}

func (q *Quantizer) BarNumberAt(tick int64) int {
	e := q.EventAt(tick)
	return int(math.Floor(e.BarNumber + float64(tick-e.Tick)/float64(e.BarTicks)))
}

func (q *Quantizer) bars() []int64 {
	q.barsOnce.Do(q.calcBarStarts)
	return q.barStarts
}

func (q *Quantizer) calcBarStarts() {
	starts := []int64{0}
	add := func(tick int64) {
		if tick > starts[len(starts)-1] {
			starts = append(starts, tick)
		}
	}
	firstBarIn := func(e Event) int64 {
		return e.Tick + int64(math.Round((math.Ceil(e.BarNumber)-e.BarNumber)*float64(e.BarTicks)))
	}

	for i := 1; i < len(q.events); i++ {
		prev, next := q.events[i-1], q.events[i]
		for start := firstBarIn(prev); start < next.Tick; start += prev.BarTicks {
			add(start)
		}
	}

	last := q.events[len(q.events)-1]
	start := firstBarIn(last)
	for ; start <= q.songLength; start += last.BarTicks {
		add(start)
	}
	add(start)

	q.barStarts = starts
}

// BarStart is the first tick of the bar containing tick.
func (q *Quantizer) BarStart(tick int64) int64 {
	starts := q.bars()
	if tick <= starts[len(starts)-1] {
		i := sort.Search(len(starts), func(i int) bool { return starts[i] > tick })
		if i == 0 {
			return starts[0]
		}
		return starts[i-1]
	}
	return q.BarNumberToStart(q.BarNumberAt(tick))
}

// BarEnd is the first tick after the bar containing tick.
func (q *Quantizer) BarEnd(tick int64) int64 {
	starts := q.bars()
	i := sort.Search(len(starts), func(i int) bool { return starts[i] > tick })
	if i < len(starts) {
		return starts[i]
	}
	return q.BarNumberToEnd(q.BarNumberAt(tick))
}

func (q *Quantizer) BarNumberToStart(bar int) int64 {
	starts := q.bars()
	if bar >= 0 && bar < len(starts) {
		return starts[bar]
	}
	e := q.events[len(q.events)-1]
	return e.Tick + int64(math.Round((float64(bar)-e.BarNumber)*float64(e.BarTicks)))
}

func (q *Quantizer) BarNumberToEnd(bar int) int64 {
	return q.BarNumberToStart(bar + 1)
}

func (q *Quantizer) BarNumberToMicros(bar int) int64 {
	return q.TickToMicros(q.BarNumberToStart(bar))
}
