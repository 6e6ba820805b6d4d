package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/bep/debounce"
	"github.com/jsphweid/abcdex/abc"
	"github.com/jsphweid/abcdex/channel"
	"github.com/jsphweid/abcdex/constants"
	"github.com/jsphweid/abcdex/file"
	"github.com/jsphweid/abcdex/midi"
	"github.com/jsphweid/abcdex/sample"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/smf"
)

const watchPollInterval = 250 * time.Millisecond

type convertFlags struct {
	out         string
	outDir      string
	strict      bool
	mono        bool
	octaves     bool
	fromBar     int
	toBar       int
	watch       bool
	instruments map[string]string
}

var convertArgs convertFlags

func init() {
	f := convertCmd.Flags()
	f.StringVarP(&convertArgs.out, "out", "o", "", "output .mid path (default: first input with a .mid extension)")
	f.StringVar(&convertArgs.outDir, "out-dir", "", "write a uniquely named file into this directory instead")
	f.BoolVar(&convertArgs.strict, "strict", false, "treat unplayable notes as errors (default from ABCDEX_STRICT)")
	f.BoolVar(&convertArgs.mono, "mono", false, "center every part instead of spreading them across the stereo field")
	f.BoolVar(&convertArgs.octaves, "general-midi", false, "apply instrument octave shifts for general MIDI playback")
	f.IntVar(&convertArgs.fromBar, "from-bar", 0, "first bar to export, 1-based")
	f.IntVar(&convertArgs.toBar, "to-bar", 0, "last bar to export, inclusive")
	f.BoolVar(&convertArgs.watch, "watch", false, "convert again whenever an input changes")
	f.StringToStringVar(&convertArgs.instruments, "instrument", nil, "override a part's instrument, e.g. 2=flute")
	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:   "convert <file.abc|dir>...",
	Short: "Converts ABC files into one MIDI file",
	Long: `Converts ABC files into a single MIDI file. Every X: section becomes a
part on its own track. Several files are treated as one song.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("strict") {
			convertArgs.strict = constants.GetStrict()
		}
		paths, err := file.FindInputs(args, file.ABCExtensions...)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return errors.New("no ABC files found")
		}
		opts, err := convertArgs.options()
		if err != nil {
			return err
		}

		if _, err := convertPaths(paths, opts, convertArgs); err != nil {
			if !convertArgs.watch {
				return err
			}
			logrus.Error(err)
		}
		if !convertArgs.watch {
			return nil
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		logrus.WithField("files", len(paths)).Info("watching for changes")
		return watch(ctx, paths, func() {
			if _, err := convertPaths(paths, opts, convertArgs); err != nil {
				logrus.Error(err)
			}
		})
	},
}

func (f convertFlags) options() (abc.Options, error) {
	opts := abc.DefaultOptions()
	opts.Strict = f.strict
	opts.Stereo = !f.mono
	opts.UseGameInstruments = !f.octaves
	if len(f.instruments) > 0 {
		opts.InstrumentOverrides = map[int]abc.Instrument{}
	}
	for part, name := range f.instruments {
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return opts, errors.Errorf("invalid part number %q", part)
		}
		inst, err := abc.ParseInstrument(name)
		if err != nil {
			return opts, err
		}
		opts.InstrumentOverrides[n] = inst
	}
	return opts, nil
}

// convertPaths runs one full conversion and returns the written path.
func convertPaths(paths []string, opts abc.Options, f convertFlags) (string, error) {
	sources, err := file.ReadSources(paths)
	if err != nil {
		return "", err
	}
	res, err := abc.ConvertFiles(sources, opts)
	if err != nil {
		return "", err
	}

	out := res.SMF
	if f.fromBar > 0 || f.toBar > 0 {
		if out, err = sliceBars(res, f.fromBar, f.toBar); err != nil {
			return "", err
		}
	}

	dest := f.out
	switch {
	case dest != "":
	case f.outDir != "":
		if err := os.MkdirAll(f.outDir, 0o755); err != nil {
			return "", errors.Wrap(err, "creating output directory")
		}
		dest = filepath.Join(f.outDir, file.RenderName(res.Info.Title()))
	default:
		dest = file.OutputPath(paths[0])
	}
	if err := midi.WriteMidiFile(dest, out); err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"out":      dest,
		"parts":    res.Info.PartCount(),
		"warnings": len(res.Warnings),
	}).Info("converted")
	return dest, nil
}

func sliceBars(res *abc.Result, fromBar, toBar int) (*smf.SMF, error) {
	tl, err := channel.New(res.SMF)
	if err != nil {
		return nil, err
	}
	if fromBar == 0 {
		fromBar = 1
	}
	if toBar == 0 {
		toBar = res.Info.BarCount() + 1
		if bars := res.Info.BarTicks(); len(bars) > 0 && bars[len(bars)-1] >= tl.SongLength() {
			toBar--
		}
	}
	from, to, err := sample.BarWindow(res.Info.BarTicks(), tl.SongLength(), fromBar, toBar)
	if err != nil {
		return nil, err
	}
	return sample.Slice(res.SMF, from, to)
}

// watch polls the modification times of paths and calls run once edits
// settle.
func watch(ctx context.Context, paths []string, run func()) error {
	debounced := debounce.New(500 * time.Millisecond)
	mtimes := map[string]time.Time{}
	changed := func() bool {
		res := false
		for _, p := range paths {
			info, err := os.Stat(p)
			if err != nil {
				continue
			}
			if !info.ModTime().Equal(mtimes[p]) {
				mtimes[p] = info.ModTime()
				res = true
			}
		}
		return res
	}
	changed()

	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if changed() {
				debounced(run)
			}
		}
	}
}
