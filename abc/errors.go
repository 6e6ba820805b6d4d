package abc

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMalformedTuplet       = errors.New("invalid tuplet")
	ErrUnterminated          = errors.New("unterminated construct")
	ErrUnexpectedCharacter   = errors.New("unexpected character")
	ErrWhitespaceInChord     = errors.New("unexpected whitespace inside a chord")
	ErrPitchRange            = errors.New("note is outside the playable range")
	ErrDurationRange         = errors.New("note duration is outside the playable range")
	ErrUnmatchedDecoration   = errors.New("there is no matching '+'")
	ErrUnsupportedDecoration = errors.New("unsupported +decoration+")
	ErrChordTooLarge         = errors.New("too many notes in a chord")
	ErrInconsistentTiming    = errors.New("parts disagree on timing")
	ErrTooManyParts          = errors.New("too many parts")
	ErrTie                   = errors.New("tied note does not connect to another note")
	ErrBrokenRhythm          = errors.New("invalid broken rhythm")
	ErrHeader                = errors.New("invalid header field")
	ErrNoNotes               = errors.New("the file contains no notes")
)

// ParseError points at the text that stopped a conversion. Line and Column
// are 1-based. A zero Column means the whole line.
type ParseError struct {
	File   string
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Err.Error()
	}
	if e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Warning is a recoverable problem noticed during conversion.
type Warning struct {
	File    string
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s:%d: %s", w.File, w.Line, w.Message)
}
