package model

import (
	"github.com/jsphweid/abcdex/channel"
	"github.com/jsphweid/abcdex/track"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

type Note struct {
	Pitch       string `json:"pitch"`
	ABC         string `json:"abc"`
	ID          int    `json:"id"`
	Velocity    int    `json:"velocity"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	StartMicros int64  `json:"start_micros"`
	EndMicros   int64  `json:"end_micros"`
	Channel     uint8  `json:"channel"`
	Instrument  uint8  `json:"instrument"`
	TiedToNext  bool   `json:"tied_to_next,omitempty"`
}

type TrackNotes struct {
	Index     int      `json:"index"`
	Name      string   `json:"name,omitempty"`
	Drum      bool     `json:"drum"`
	Channels  []uint8  `json:"channels"`
	Programs  []uint8  `json:"programs"`
	Meter     string   `json:"meter,omitempty"`
	Key       string   `json:"key,omitempty"`
	Collapsed int      `json:"collapsed,omitempty"`
	Notes     []Note   `json:"notes"`
	Warnings  []string `json:"warnings"`
}

type ExtractResponse struct {
	Resolution     int          `json:"resolution"`
	Tempo          int          `json:"tempo"`
	Meter          string       `json:"meter"`
	SongLength     int64        `json:"song_length"`
	DurationMicros int64        `json:"duration_micros"`
	Duration       string       `json:"duration"`
	Tracks         []TrackNotes `json:"tracks"`
}

// NewExtractResponse extracts the notes of every track of s. Tracks without
// notes are left out.
func NewExtractResponse(s *smf.SMF) (ExtractResponse, error) {
	tl, err := channel.New(s)
	if err != nil {
		return ExtractResponse{}, errors.Wrap(err, "building timeline")
	}
	micros := tl.TickToMicros(tl.SongLength())
	resp := ExtractResponse{
		Resolution:     tl.Resolution(),
		Tempo:          tl.PrimaryTempoBPM(),
		Meter:          tl.Meter().String(),
		SongLength:     tl.SongLength(),
		DurationMicros: micros,
		Duration:       FormatDuration(micros),
		Tracks:         []TrackNotes{},
	}
	for _, info := range track.Extract(s, tl) {
		if !info.HasNotes() {
			continue
		}
		resp.Tracks = append(resp.Tracks, FromTrack(info, tl))
	}
	return resp, nil
}

func FromTrack(info *track.Info, tl *channel.Timeline) TrackNotes {
	tn := TrackNotes{
		Index:     info.Index,
		Name:      info.Name,
		Drum:      info.IsDrum,
		Channels:  info.Channels,
		Programs:  info.Programs,
		Collapsed: info.Collapsed,
		Notes:     make([]Note, 0, info.Notes.Len()),
		Warnings:  make([]string, 0, len(info.Warnings)),
	}
	if info.Meter != nil {
		tn.Meter = info.Meter.String()
	}
	if info.Key != nil {
		tn.Key = info.Key.String()
	}
	for _, i := range info.Notes.Sorted() {
		e := info.Notes.At(i)
		tn.Notes = append(tn.Notes, Note{
			Pitch:       e.Pitch.String(),
			ABC:         e.Pitch.ABC(),
			ID:          e.Pitch.ID(),
			Velocity:    e.Velocity,
			Start:       e.Start,
			End:         e.End,
			StartMicros: tl.TickToMicros(e.Start),
			EndMicros:   tl.TickToMicros(e.End),
			Channel:     e.Channel,
			Instrument:  e.Instrument,
			TiedToNext:  info.Notes.TiesTo(i) >= 0,
		})
	}
	for _, w := range info.Warnings {
		tn.Warnings = append(tn.Warnings, w.String())
	}
	return tn
}
