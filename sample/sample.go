package sample

import (
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var ErrBarRange = errors.New("invalid bar range")

type noteKey struct {
	channel, key uint8
}

// Slice returns the window [from, to) of s shifted to start at tick zero.
// Events other than notes that come before from are moved to the start so
// the slice keeps its tempo, names and instruments. Notes that started
// before from are dropped and notes still sounding at to are cut there.
func Slice(s *smf.SMF, from, to int64) (*smf.SMF, error) {
	if from < 0 || to <= from {
		return nil, errors.Errorf("invalid tick window %d-%d", from, to)
	}

	res := smf.New()
	res.TimeFormat = s.TimeFormat
	for _, track := range s.Tracks {
		var out smf.Track
		var absTicks, last int64
		var open []noteKey
		emit := func(tick int64, msg []byte) {
			out.Add(uint32(tick-last), msg)
			last = tick
		}

	TrackEventLoop:
		for _, evt := range track {
			absTicks += int64(evt.Delta)
			if absTicks >= to {
				break
			}
			if evt.Message.Is(smf.MetaEndOfTrackMsg) {
				continue
			}

			rel := absTicks - from
			if rel < 0 {
				rel = 0
			}
			var ch, key, vel uint8
			m := midi.Message(evt.Message)
			switch {
			case m.GetNoteStart(&ch, &key, &vel):
				if absTicks < from {
					continue TrackEventLoop
				}
				open = append(open, noteKey{ch, key})
				emit(rel, evt.Message)
			case m.GetNoteEnd(&ch, &key):
				for i, k := range open {
					if k == (noteKey{ch, key}) {
						open = append(open[:i], open[i+1:]...)
						emit(rel, evt.Message)
						continue TrackEventLoop
					}
				}
			default:
				emit(rel, evt.Message)
			}
		}

		for _, k := range open {
			emit(to-from, midi.NoteOff(k.channel, k.key))
		}
		out.Close(0)
		if err := res.Add(out); err != nil {
			return nil, errors.Wrap(err, "adding sliced track")
		}
	}
	return res, nil
}

// BarWindow converts an inclusive 1-based bar range into a tick window.
// barLines holds the tick of each bar line in order, so bar n ends at
// barLines[n-1]. The last bar may be unterminated and runs to songEnd.
func BarWindow(barLines []int64, songEnd int64, fromBar, toBar int) (int64, int64, error) {
	bars := len(barLines)
	if bars == 0 || barLines[bars-1] < songEnd {
		bars++
	}
	if fromBar < 1 || toBar < fromBar || toBar > bars {
		return 0, 0, errors.Wrapf(ErrBarRange, "bars %d-%d of %d", fromBar, toBar, bars)
	}

	var from int64
	if fromBar > 1 {
		from = barLines[fromBar-2]
	}
	to := songEnd
	if toBar <= len(barLines) {
		to = barLines[toBar-1]
	}
	return from, to, nil
}
