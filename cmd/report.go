package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jsphweid/abcdex/abc"
	"github.com/jsphweid/abcdex/constants"
	"github.com/jsphweid/abcdex/file"
	"github.com/jsphweid/abcdex/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report <file.abc|dir>...",
	Short: "Summarizes ABC songs",
	Long: `Converts every ABC file on its own and prints its parts, instruments,
bars, tempo and playing time. Files that fail are reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := file.FindInputs(args, file.ABCExtensions...)
		if err != nil {
			return err
		}
		opts := abc.DefaultOptions()
		opts.Strict = constants.GetStrict()

		var failed, totalParts int
		var totalBytes, totalMicros int64
		w := cmd.OutOrStdout()
		for _, p := range paths {
			info, err := os.Stat(p)
			if err == nil {
				totalBytes += info.Size()
			}
			summary, err := reportFile(w, p, opts)
			if err != nil {
				failed++
				logrus.WithField("file", p).Error(err)
				continue
			}
			totalParts += len(summary.Parts)
			totalMicros += summary.DurationMicros
		}

		fmt.Fprintf(w, "\n%s songs (%s), %s parts, %s failed, %s of music\n",
			humanize.Comma(int64(len(paths)-failed)),
			humanize.Bytes(uint64(totalBytes)),
			humanize.Comma(int64(totalParts)),
			humanize.Comma(int64(failed)),
			model.FormatDuration(totalMicros))
		return nil
	},
}

func reportFile(w io.Writer, path string, opts abc.Options) (model.ConvertResponse, error) {
	src, err := file.ReadSource(path)
	if err != nil {
		return model.ConvertResponse{}, err
	}
	res, err := abc.ConvertFiles([]abc.Source{src}, opts)
	if err != nil {
		return model.ConvertResponse{}, err
	}
	s, err := model.NewConvertResponse("", res)
	if err != nil {
		return s, err
	}

	fmt.Fprintf(w, "%s: %q", path, s.Title)
	if s.Composer != "" {
		fmt.Fprintf(w, " by %s", s.Composer)
	}
	fmt.Fprintf(w, "\n  %s, %s, %d bpm, %s bars, %s\n",
		s.Key, s.Meter, s.Tempo, humanize.Comma(int64(s.Bars)), s.Duration)
	if s.HasTriplets {
		fmt.Fprintln(w, "  has triplets")
	}
	for _, p := range s.Parts {
		fmt.Fprintf(w, "  %s %-20s %s\n", humanize.Ordinal(p.Number), p.Name, p.Instrument)
	}
	if len(s.Warnings) > 0 {
		fmt.Fprintf(w, "  %d warnings\n", len(s.Warnings))
	}
	return s, nil
}
