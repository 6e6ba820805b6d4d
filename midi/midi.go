package midi

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Read decodes a standard MIDI file. The decoder panics on some malformed
// input (https://github.com/gomidi/midi/issues/20); those panics come back
// as errors.
func Read(r io.Reader) (s *smf.SMF, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = errors.Errorf("decoding midi: %v", r)
		}
	}()

	s, err = smf.ReadFrom(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing midi")
	}
	return s, nil
}

func ReadMidiFile(path string) (*smf.SMF, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading midi file")
	}
	s, err := Read(bytes.NewReader(dat))
	return s, errors.Wrap(err, path)
}

func Write(w io.Writer, s *smf.SMF) error {
	_, err := s.WriteTo(w)
	return errors.Wrap(err, "writing midi")
}

// WriteMidiFile writes s to path, replacing any existing file.
func WriteMidiFile(path string, s *smf.SMF) error {
	var buf bytes.Buffer
	if err := Write(&buf, s); err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, buf.Bytes(), 0o644), "writing midi file")
}
