package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jsphweid/abcdex/channel"
	"github.com/jsphweid/abcdex/midi"
	"github.com/jsphweid/abcdex/model"
	"github.com/jsphweid/abcdex/timing"
	"github.com/jsphweid/abcdex/track"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/smf"
)

type inspectFlags struct {
	json     bool
	meter    string
	scale    float64
	maxNotes int
}

var inspectArgs inspectFlags

func init() {
	f := inspectCmd.Flags()
	f.BoolVar(&inspectArgs.json, "json", false, "print the extracted notes as JSON")
	f.StringVar(&inspectArgs.meter, "meter", "", "meter for bar numbers, e.g. 3/4 (default: from the file)")
	f.Float64Var(&inspectArgs.scale, "scale", 1, "tempo scale applied before quantizing")
	f.IntVar(&inspectArgs.maxNotes, "notes", 16, "notes to list per track, 0 for all")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Inspects a MIDI file",
	Long:  `Prints the tempo map, the quantized timing grid and the notes of every track.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := midi.ReadMidiFile(args[0])
		if err != nil {
			return err
		}
		if inspectArgs.json {
			resp, err := model.NewExtractResponse(s)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		var size int64
		if info, err := os.Stat(args[0]); err == nil {
			size = info.Size()
		}
		return inspect(cmd.OutOrStdout(), s, size, inspectArgs)
	},
}

func inspect(w io.Writer, s *smf.SMF, size int64, f inspectFlags) error {
	tl, err := channel.New(s)
	if err != nil {
		return err
	}
	meter := tl.Meter()
	if f.meter != "" {
		if meter, err = timing.ParseMeter(f.meter); err != nil {
			return err
		}
	}
	q, err := timing.NewQuantizer(timing.QuantizerConfig{
		Resolution: tl.Resolution(),
		Meter:      meter,
		Scale:      f.scale,
		PrimaryMPQ: tl.PrimaryMPQ(),
		Changes:    tl.TempoChanges(),
		SongLength: tl.SongLength(),
	})
	if err != nil {
		return errors.Wrap(err, "quantizing tempo map")
	}

	fmt.Fprintf(w, "size:       %s\n", humanize.Bytes(uint64(size)))
	fmt.Fprintf(w, "tracks:     %d\n", len(s.Tracks))
	fmt.Fprintf(w, "resolution: %d ticks per quarter\n", tl.Resolution())
	fmt.Fprintf(w, "meter:      %s\n", meter)
	fmt.Fprintf(w, "tempo:      %d bpm\n", tl.PrimaryTempoBPM())
	fmt.Fprintf(w, "length:     %s ticks, %s, %d bars\n",
		humanize.Comma(tl.SongLength()),
		model.FormatDuration(q.TickToMicros(q.SongLength())),
		q.BarNumberAt(q.SongLength())+1)

	fmt.Fprintln(w, "\ntempo segments:")
	for _, e := range q.Events() {
		fmt.Fprintf(w, "  tick %-8d bar %-7.2f %4d bpm  grid %d ticks\n",
			e.Tick, e.BarNumber+1, e.Timing.BPM(), e.MinNoteTicks)
	}

	for _, info := range track.Extract(s, tl) {
		if !info.HasNotes() {
			continue
		}
		kind := "melodic"
		if info.IsDrum {
			kind = "drums"
		}
		fmt.Fprintf(w, "\ntrack %d %q: %s notes, %s, channels %v, programs %v\n",
			info.Index, info.Name, humanize.Comma(int64(info.Notes.Len())), kind, info.Channels, info.Programs)
		for n, i := range info.Notes.Sorted() {
			if f.maxNotes > 0 && n >= f.maxNotes {
				fmt.Fprintf(w, "  ... %d more\n", info.Notes.Len()-n)
				break
			}
			e := info.Notes.At(i)
			start := q.Quantize(e.Start)
			fmt.Fprintf(w, "  bar %-4d tick %-8d %-4s vel %-3d len %d\n",
				q.BarNumberAt(start)+1, start, e.Pitch, e.Velocity, e.Length())
		}
		for _, warn := range info.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn)
		}
	}
	return nil
}
