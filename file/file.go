package file

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jsphweid/abcdex/abc"
	"github.com/jsphweid/abcdex/util"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ABCExtensions  = []string{".abc", ".txt"}
	MIDIExtensions = []string{".mid", ".midi"}
)

// FindInputs expands directories in paths to the files inside them with one
// of exts. Plain file paths are kept as given, in order.
func FindInputs(paths []string, exts ...string) ([]string, error) {
	var res []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrap(err, "finding inputs")
		}
		if !info.IsDir() {
			res = append(res, p)
			continue
		}
		found, err := util.GatherPaths(p, 0, exts...)
		if err != nil {
			return nil, err
		}
		res = append(res, found...)
	}
	return res, nil
}

// DecodeLines reads text that may carry a UTF-8 or UTF-16 byte order mark.
// Input without a BOM that is not valid UTF-8 is read as Windows-1252, which
// older ABC tools wrote.
func DecodeLines(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading text")
	}

	var fallback transform.Transformer = unicode.UTF8.NewDecoder()
	if !utf8.Valid(data) {
		fallback = charmap.Windows1252.NewDecoder()
	}
	text, _, err := transform.Bytes(unicode.BOMOverride(fallback), data)
	if err != nil {
		return nil, errors.Wrap(err, "decoding text")
	}

	s := strings.ReplaceAll(string(text), "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil, nil
	}
	return strings.Split(s, "\n"), nil
}

func ReadSource(path string) (abc.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return abc.Source{}, errors.Wrap(err, "reading abc file")
	}
	lines, err := DecodeLines(bytes.NewReader(data))
	if err != nil {
		return abc.Source{}, errors.Wrap(err, path)
	}
	return abc.Source{Name: filepath.Base(path), Lines: lines}, nil
}

func ReadSources(paths []string) ([]abc.Source, error) {
	res := make([]abc.Source, 0, len(paths))
	for _, p := range paths {
		src, err := ReadSource(p)
		if err != nil {
			return nil, err
		}
		res = append(res, src)
	}
	return res, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// RenderName is a unique .mid file name derived from a song title.
func RenderName(title string) string {
	base := strings.Trim(unsafeChars.ReplaceAllString(title, "_"), "_.")
	if base == "" {
		base = "song"
	}
	return base + "-" + uuid.NewString() + ".mid"
}

// OutputPath replaces the extension of the first input with .mid.
func OutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".mid"
}
