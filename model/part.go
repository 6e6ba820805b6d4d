package model

import (
	"time"

	"github.com/hako/durafmt"
	"github.com/jsphweid/abcdex/abc"
	"github.com/jsphweid/abcdex/channel"
	"github.com/pkg/errors"
)

type PartSummary struct {
	Number     int    `json:"number"`
	Track      int    `json:"track"`
	Channel    uint8  `json:"channel"`
	Name       string `json:"name"`
	Instrument string `json:"instrument"`
	File       string `json:"file"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
}

type ConvertResponse struct {
	ID             string        `json:"id,omitempty"`
	Title          string        `json:"title"`
	Composer       string        `json:"composer,omitempty"`
	Transcriber    string        `json:"transcriber,omitempty"`
	Meter          string        `json:"meter"`
	Key            string        `json:"key"`
	Tempo          int           `json:"tempo"`
	Resolution     int64         `json:"resolution"`
	Bars           int           `json:"bars"`
	HasTriplets    bool          `json:"has_triplets"`
	DurationMicros int64         `json:"duration_micros"`
	Duration       string        `json:"duration"`
	Parts          []PartSummary `json:"parts"`
	Warnings       []string      `json:"warnings"`
}

// FormatDuration renders micros like "2 minutes 5 seconds".
func FormatDuration(micros int64) string {
	d := time.Duration(micros) * time.Microsecond
	if d < time.Second {
		return "0 seconds"
	}
	return durafmt.Parse(d.Round(time.Second)).LimitFirstN(2).String()
}

// NewConvertResponse summarizes a conversion. The duration is measured on
// the written sequence so it includes every tempo change.
func NewConvertResponse(id string, res *abc.Result) (ConvertResponse, error) {
	tl, err := channel.New(res.SMF)
	if err != nil {
		return ConvertResponse{}, errors.Wrap(err, "reading converted sequence")
	}
	info := res.Info
	micros := tl.TickToMicros(tl.SongLength())

	resp := ConvertResponse{
		ID:             id,
		Title:          info.Title(),
		Composer:       info.Composer(),
		Transcriber:    info.Transcriber(),
		Meter:          info.Meter().String(),
		Key:            info.Key().String(),
		Tempo:          info.PrimaryTempo(),
		Resolution:     info.Resolution(),
		Bars:           info.BarCount(),
		HasTriplets:    info.HasTriplets(),
		DurationMicros: micros,
		Duration:       FormatDuration(micros),
		Parts:          make([]PartSummary, 0, info.PartCount()),
		Warnings:       make([]string, 0, len(res.Warnings)),
	}
	for i, p := range info.Parts() {
		resp.Parts = append(resp.Parts, PartSummary{
			Number:     p.Number,
			Track:      p.Track,
			Channel:    p.Channel,
			Name:       info.PartName(i),
			Instrument: p.Instrument.String(),
			File:       p.File,
			StartLine:  p.StartLine,
			EndLine:    p.EndLine,
		})
	}
	for _, w := range res.Warnings {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	return resp, nil
}
