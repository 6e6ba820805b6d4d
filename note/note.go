package note

import (
	"sort"

	"github.com/jsphweid/abcdex/pitch"
	"github.com/pkg/errors"
)

// Index addresses an event inside its owning List.
type Index int

const NoTie Index = -1

var (
	ErrBadIndex = errors.New("note index out of range")
	ErrBadTie   = errors.New("invalid tie")
	ErrBadSplit = errors.New("split point outside note")
)

// Event is one sounding (or silent) note. Times are in ticks.
type Event struct {
	Pitch      pitch.Pitch
	Velocity   int
	Start      int64
	End        int64
	Channel    uint8
	Instrument uint8

	tiesFrom Index
	tiesTo   Index
}

func (e Event) Length() int64 {
	return e.End - e.Start
}

// Less orders events by start, then pitch id, then end.
func (e Event) Less(o Event) bool {
	if e.Start != o.Start {
		return e.Start < o.Start
	}
	if e.Pitch.ID() != o.Pitch.ID() {
		return e.Pitch.ID() < o.Pitch.ID()
	}
	return e.End < o.End
}

// List owns the events of one track. Ties are stored as indices into the
// list and only ever point forward in time, so chains cannot loop.
type List struct {
	events []Event
}

func NewList() *List {
	return &List{}
}

func (l *List) Add(e Event) Index {
	e.tiesFrom = NoTie
	e.tiesTo = NoTie
	l.events = append(l.events, e)
	return Index(len(l.events) - 1)
}

func (l *List) Len() int {
	return len(l.events)
}

func (l *List) valid(i Index) bool {
	return i >= 0 && int(i) < len(l.events)
}

func (l *List) At(i Index) Event {
	return l.events[i]
}

func (l *List) SetEnd(i Index, end int64) {
	l.events[i].End = end
}

func (l *List) TiesFrom(i Index) Index { return l.events[i].tiesFrom }
func (l *List) TiesTo(i Index) Index   { return l.events[i].tiesTo }

// Tie links from to a later event of the same pitch.
func (l *List) Tie(from, to Index) error {
	if !l.valid(from) || !l.valid(to) {
		return ErrBadIndex
	}
	a, b := l.events[from], l.events[to]
	switch {
	case a.Pitch.IsRest() || b.Pitch.IsRest():
		return errors.Wrap(ErrBadTie, "rests are not tied")
	case a.Pitch.ID() != b.Pitch.ID():
		return errors.Wrapf(ErrBadTie, "pitch %s does not match %s", a.Pitch, b.Pitch)
	case b.Start <= a.Start:
		return errors.Wrap(ErrBadTie, "tie must move forward in time")
	case a.tiesTo != NoTie || b.tiesFrom != NoTie:
		return errors.Wrap(ErrBadTie, "note is already tied")
	}
	l.events[from].tiesTo = to
	l.events[to].tiesFrom = from
	return nil
}

// TieStart is the first event of the chain containing i.
func (l *List) TieStart(i Index) Index {
	for l.events[i].tiesFrom != NoTie {
		i = l.events[i].tiesFrom
	}
	return i
}

// TieEnd is the last event of the chain containing i.
func (l *List) TieEnd(i Index) Index {
	for l.events[i].tiesTo != NoTie {
		i = l.events[i].tiesTo
	}
	return i
}

// Chain returns the events tied together with i, in time order.
func (l *List) Chain(i Index) []Index {
	var res []Index
	for j := l.TieStart(i); j != NoTie; j = l.events[j].tiesTo {
		res = append(res, j)
	}
	return res
}

// SplitWithTie cuts event i at tick. The tail becomes a new event tied to
// the head, except for rests which are split without a tie.
func (l *List) SplitWithTie(i Index, tick int64) (Index, error) {
	if !l.valid(i) {
		return NoTie, ErrBadIndex
	}
	e := l.events[i]
	if tick <= e.Start || tick >= e.End {
		return NoTie, errors.Wrapf(ErrBadSplit, "tick %d outside (%d, %d)", tick, e.Start, e.End)
	}

	tail := e
	tail.Start = tick
	next := l.Add(tail)
	l.events[i].End = tick

	if e.Pitch.IsRest() {
		return next, nil
	}

	if e.tiesTo != NoTie {
		l.events[next].tiesTo = e.tiesTo
		l.events[e.tiesTo].tiesFrom = next
	}
	l.events[next].tiesFrom = i
	l.events[i].tiesTo = next
	return next, nil
}

// Sorted returns indices ordered by start, pitch and end.
func (l *List) Sorted() []Index {
	res := make([]Index, len(l.events))
	for i := range res {
		res[i] = Index(i)
	}
	sort.SliceStable(res, func(a, b int) bool {
		return l.events[res[a]].Less(l.events[res[b]])
	})
	return res
}

// Events returns a copy of the events in time order.
func (l *List) Events() []Event {
	idx := l.Sorted()
	res := make([]Event, len(idx))
	for i, j := range idx {
		res[i] = l.events[j]
	}
	return res
}
