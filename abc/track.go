package abc

import (
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

type timedEvent struct {
	tick  int64
	order int
	msg   []byte
}

// trackBuilder collects events at absolute ticks. Events on the same tick
// keep the order they were added in.
type trackBuilder struct {
	events []*timedEvent
	next   int
	first  int
}

func (b *trackBuilder) add(tick int64, msg []byte) *timedEvent {
	b.next++
	ev := &timedEvent{tick: tick, order: b.next, msg: msg}
	b.events = append(b.events, ev)
	return ev
}

// prepend adds an event ahead of everything already on its tick.
func (b *trackBuilder) prepend(tick int64, msg []byte) *timedEvent {
	b.first--
	ev := &timedEvent{tick: tick, order: b.first, msg: msg}
	b.events = append(b.events, ev)
	return ev
}

// move retimes ev as though it had just been added.
func (b *trackBuilder) move(ev *timedEvent, tick int64) {
	b.next++
	ev.tick = tick
	ev.order = b.next
}

func (b *trackBuilder) build() smf.Track {
	sort.SliceStable(b.events, func(i, j int) bool {
		if b.events[i].tick != b.events[j].tick {
			return b.events[i].tick < b.events[j].tick
		}
		return b.events[i].order < b.events[j].order
	})

	var tr smf.Track
	var last int64
	for _, ev := range b.events {
		tr.Add(uint32(ev.tick-last), ev.msg)
		last = ev.tick
	}
	tr.Close(0)
	return tr
}
