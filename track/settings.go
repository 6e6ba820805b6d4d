package track

import (
	"github.com/jsphweid/abcdex/note"
	"github.com/jsphweid/abcdex/pitch"
)

// Settings are caller supplied adjustments for one extracted track.
type Settings struct {
	Disabled  bool
	Transpose int
	// DrumMap rewrites drum note ids. Ids mapped to a negative value are muted.
	DrumMap map[int]int
	// Program replaces the recorded instrument when set.
	Program *uint8
}

// Apply returns the track's notes with s applied, in time order. Melodic
// notes transposed out of range are dropped.
func (i *Info) Apply(s Settings) []note.Event {
	if s.Disabled {
		return nil
	}

	var res []note.Event
	for _, e := range i.Notes.Events() {
		id := e.Pitch.ID()
		if i.IsDrum {
			if mapped, ok := s.DrumMap[id]; ok {
				id = mapped
			}
		} else {
			id += s.Transpose
		}
		if id < 0 {
			continue
		}
		p, ok := pitch.FromID(id)
		if !ok {
			continue
		}
		e.Pitch = p
		if s.Program != nil {
			e.Instrument = *s.Program
		}
		res = append(res, e)
	}
	return res
}
