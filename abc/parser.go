package abc

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jsphweid/abcdex/pitch"
	"github.com/jsphweid/abcdex/util"
	"gitlab.com/gomidi/midi/v2"
)

var (
	infoPattern  = regexp.MustCompile(`^([A-Z]):\s*(.*)\s*$`)
	xinfoPattern = regexp.MustCompile(`^\s*%%([A-Za-z\-]+)((:?)|\s)\s*(.*)\s*$`)
	notePattern  = regexp.MustCompile(`^(_{1,2}|=|\^{1,2})?([xzA-Ga-g])(,{1,5}|'{1,5})?(\d+)?(//?\d*)?(>{1,3}|<{1,3})?(-)?`)
)

const (
	groupAccidental = 1 + iota
	groupLetter
	groupOctave
	groupNumerator
	groupDenominator
	groupBroken
	groupTie
)

// semitone offsets of a b c d e f g from C
var noteDelta = [7]int{9, 11, 0, 2, 4, 5, 7}

// lineState is the parse state that must not cross a line end.
type lineState struct {
	inChord       bool
	chordSize     int
	chordStartCol int
	tuplet        *tuplet
	brokenNum     int64
	brokenDen     int64
}

func (st *lineState) brokenPending() bool {
	return st.brokenNum != 1 || st.brokenDen != 1
}

func (c *converter) processLine(raw string) error {
	if m := xinfoPattern.FindStringSubmatch(raw); m != nil {
		return c.extendedField(m[1]+m[3], strings.TrimSpace(m[4]))
	}

	line := raw
	if i := strings.IndexByte(line, '%'); i >= 0 {
		line = line[:i]
	}
	if strings.TrimSpace(line) == "" {
		return nil
	}

	if m := infoPattern.FindStringSubmatchIndex(line); m != nil {
		value := strings.TrimSpace(line[m[4]:m[5]])
		return c.header(line[m[2]], value, m[4]+1)
	}
	return c.noteLine(line)
}

func (c *converter) extendedField(name, value string) error {
	f, ok := parseField(name)
	if !ok {
		return nil
	}
	if f == FieldTempo {
		if err := c.tune.addTempoEvent(round(c.chordStartTick), value); err != nil {
			c.warn("ignoring tempo change %q: %v", value, err)
		}
		return nil
	}

	c.info.extended[f] = value
	if f == FieldPartName {
		c.tune.setTitle(value, true)
		c.currentPart().setName(value, true)
		if !c.overridden() {
			if inst, ok := FindInstrument(value); ok {
				c.tune.setInstrument(inst)
			}
		}
	}
	return nil
}

func (c *converter) header(field byte, value string, valueCol int) error {
	c.info.setMetadata(field, value)

	var err error
	switch field {
	case 'X':
		if err := c.checkTies(); err != nil {
			return err
		}
		number, convErr := strconv.Atoi(value)
		if convErr != nil {
			return c.fail(valueCol, ErrHeader, "invalid part number %q", value)
		}
		c.closePart(c.line - 1)
		c.accidentals = map[int]int{}
		c.noteOffs = nil
		c.tune.newPart(number)
		c.partCount++
		c.part = &Part{Number: number, File: c.file, StartLine: c.line}
		c.chordStartTick = 0
		c.cur = nil
		if inst, ok := c.opts.InstrumentOverrides[c.partCount]; ok {
			c.tune.setInstrument(inst)
		}
	case 'T':
		if c.cur != nil {
			return c.fail(0, ErrHeader, "can't specify the title in the middle of a part")
		}
		c.tune.setTitle(value, false)
		c.currentPart().setName(value, false)
		if !c.overridden() && !c.tune.instrumentSet {
			if inst, ok := FindInstrument(value); ok {
				c.tune.setInstrument(inst)
			}
		}
	case 'K':
		err = c.tune.setKey(value)
	case 'L':
		err = c.tune.setNoteDivisor(value)
		c.divisorChangeLine = c.line
	case 'M':
		err = c.tune.setMeter(value)
		c.divisorChangeLine = c.line
	case 'Q':
		prev := c.tune.primaryTempo
		err = c.tune.setPrimaryTempo(value)
		if err == nil && c.tracks != nil && c.tune.primaryTempo != prev {
			return c.fail(0, ErrInconsistentTiming, "the tempo must be the same for all parts of the song")
		}
	}
	if err != nil {
		return c.fail(valueCol, ErrHeader, "%s", err.Error())
	}
	return nil
}

func isNoteStart(ch byte) bool {
	switch {
	case ch == '_' || ch == '=' || ch == '^' || ch == 'x' || ch == 'z':
		return true
	case ch >= 'A' && ch <= 'G', ch >= 'a' && ch <= 'g':
		return true
	}
	return false
}

func (c *converter) noteLine(line string) error {
	c.fileHasNotes = true
	if c.tracks == nil {
		if err := c.startSequence(); err != nil {
			return err
		}
	}
	if c.cur == nil {
		if err := c.openTrack(); err != nil {
			return err
		}
	}

	st := &lineState{brokenNum: 1, brokenDen: 1}
	for i := 0; i < len(line); {
		if isNoteStart(line[i]) {
			if loc := notePattern.FindStringSubmatchIndex(line[i:]); loc != nil {
				if err := c.note(line, i, loc, st); err != nil {
					return err
				}
				i += loc[1]
				continue
			}
		}
		next, err := c.symbol(line, i, st)
		if err != nil {
			return err
		}
		i = next
	}

	col := len(line) + 1
	switch {
	case st.inChord:
		return c.fail(col, ErrUnterminated, "unterminated chord")
	case st.tuplet != nil:
		return c.fail(col, ErrUnterminated, "unterminated tuplet")
	case st.brokenPending():
		return c.fail(col, ErrUnterminated, "unterminated broken rhythm")
	}
	return nil
}

// symbol handles one character that does not start a note and returns the
// index to continue from.
func (c *converter) symbol(line string, i int, st *lineState) (int, error) {
	ch := line[i]
	col := i + 1
	switch ch {
	case ' ', '\t':
		if st.inChord {
			return 0, c.fail(col, ErrWhitespaceInChord, "unexpected whitespace inside a chord")
		}
	case '[':
		if st.inChord {
			return 0, c.fail(col, ErrUnexpectedCharacter, "unexpected '[' inside a chord")
		}
		if st.brokenPending() {
			return 0, c.fail(col, ErrBrokenRhythm, "can't have broken rhythm (< or >) within a chord")
		}
		st.inChord = true
		st.chordSize = 0
		st.chordStartCol = i
	case ']':
		if !st.inChord {
			return 0, c.fail(col, ErrUnexpectedCharacter, "unexpected ']'")
		}
		st.inChord = false
		if st.tuplet != nil && st.tuplet.r == 0 {
			st.tuplet = nil
		}
		if c.opts.Regions && st.chordSize > 0 {
			c.addRegion(st.chordStartCol, i+1, round(c.chordStartTick), round(c.chordEndTick), nil)
		}
		c.chordStartTick = c.chordEndTick
	case '|':
		if st.inChord {
			return 0, c.fail(col, ErrUnexpectedCharacter, "unexpected '|' inside a chord")
		}
		if c.partCount == 1 {
			c.info.addBar(round(c.chordStartTick))
		}
		c.accidentals = map[int]int{}
		if i+1 < len(line) && line[i+1] == ']' {
			return i + 2, nil
		}
	case '+':
		j := strings.IndexByte(line[i+1:], '+')
		if j < 0 {
			return 0, c.fail(col, ErrUnmatchedDecoration, "there is no matching '+'")
		}
		j += i + 1
		deco := line[i+1 : j]
		d, ok := ParseDynamics(deco)
		if !ok {
			return 0, c.fail(col, ErrUnsupportedDecoration, "unsupported decoration +%s+", deco)
		}
		if c.opts.Strict && st.inChord {
			return 0, c.fail(col, ErrUnsupportedDecoration, "can't include a +decoration+ inside a chord")
		}
		c.tune.dynamics = d
		return j + 1, nil
	case '(':
		j := i + 1
		for j < len(line) && (line[j] == ':' || (line[j] >= '0' && line[j] <= '9')) {
			j++
		}
		if j == i+1 || line[i+1] == ':' {
			// slur
			if st.inChord {
				return 0, c.fail(col, ErrUnexpectedCharacter, "unexpected '(' inside a chord")
			}
			break
		}
		if st.tuplet != nil {
			return 0, c.fail(col, ErrMalformedTuplet, "unexpected '(' before the end of a tuplet")
		}
		t, err := newTuplet(line[i+1:j], c.tune.meter.Compound())
		if err != nil {
			return 0, c.fail(col, ErrMalformedTuplet, "%s", err.Error())
		}
		st.tuplet = t
		return j, nil
	case ')':
		if st.inChord {
			return 0, c.fail(col, ErrUnexpectedCharacter, "unexpected ')' inside a chord")
		}
	case '\\':
	default:
		r, _ := utf8.DecodeRuneInString(line[i:])
		return 0, c.fail(col, ErrUnexpectedCharacter, "unexpected character '%c'", r)
	}
	return i + 1, nil
}

func group(s string, loc []int, n int) (string, int) {
	if loc[2*n] < 0 {
		return "", -1
	}
	return s[loc[2*n]:loc[2*n+1]], loc[2*n]
}

func parseLength(num, den string) (int64, int64, bool) {
	n, d := int64(1), int64(1)
	if num != "" {
		v, err := strconv.ParseInt(num, 10, 32)
		if err != nil {
			return 0, 0, false
		}
		n = v
	}
	switch den {
	case "":
	case "/":
		d = 2
	case "//":
		d = 4
	default:
		if strings.HasPrefix(den, "//") {
			return 0, 0, false
		}
		v, err := strconv.ParseInt(den[1:], 10, 32)
		if err != nil {
			return 0, 0, false
		}
		d = v
	}
	return n, d, n > 0 && d > 0
}

// note reads the note matched at line[start:] by notePattern. loc holds the
// match's submatch offsets relative to start.
func (c *converter) note(line string, start int, loc []int, st *lineState) error {
	text := line[start:]
	col := func(off int) int { return start + off + 1 }

	if st.inChord {
		st.chordSize++
		if st.chordSize == MaxChordNotes+1 {
			if c.opts.Strict {
				return c.fail(col(0), ErrChordTooLarge, "too many notes in a chord (max %d)", MaxChordNotes)
			}
			c.warn("chord has more than %d notes", MaxChordNotes)
		}
	}

	numText, numOff := group(text, loc, groupNumerator)
	denText, denOff := group(text, loc, groupDenominator)
	num, den, ok := parseLength(numText, denText)
	if !ok {
		off := numOff
		if off < 0 {
			off = denOff
		}
		return c.fail(col(off), ErrUnexpectedCharacter, "invalid note length %q", numText+denText)
	}

	broken, brokenOff := group(text, loc, groupBroken)
	tie, tieOff := group(text, loc, groupTie)
	if broken != "" {
		switch {
		case st.brokenPending():
			return c.fail(col(brokenOff), ErrBrokenRhythm, "invalid broken rhythm: %s", broken)
		case st.inChord:
			return c.fail(col(brokenOff), ErrBrokenRhythm, "can't have broken rhythm (< or >) within a chord")
		case tie != "":
			return c.fail(col(brokenOff), ErrBrokenRhythm, "tied notes can't have broken rhythms (< or >)")
		}
		factor := int64(1) << len(broken)
		if broken[0] == '>' {
			num *= 2*factor - 1
			den *= factor
			st.brokenDen = factor
		} else {
			den *= factor
			st.brokenNum = 2*factor - 1
			st.brokenDen = factor
		}
	} else {
		num *= st.brokenNum
		den *= st.brokenDen
		st.brokenNum, st.brokenDen = 1, 1
	}

	if st.tuplet != nil {
		if !st.inChord || st.chordSize == 1 {
			st.tuplet.r--
		}
		num *= int64(st.tuplet.q)
		den *= int64(st.tuplet.p)
		// a chord ending the tuplet is scaled as a whole, so it stays open until ']'
		if st.tuplet.r == 0 && !st.inChord {
			st.tuplet = nil
		}
	}

	tempo := c.tune.currentTempo(round(c.chordStartTick))
	num *= int64(tempo)
	den *= int64(c.tune.primaryTempo)
	if g := util.GCD(num, den); (den/g)%3 == 0 && (num/g)%3 != 0 {
		c.info.hasTriplets = true
	}

	noteEnd := c.chordStartTick + float64(UnitNoteTicks)*float64(num)/float64(den)
	if !st.inChord || st.chordSize == 1 || noteEnd < c.chordEndTick {
		c.chordEndTick = noteEnd
	}

	letter, _ := group(text, loc, groupLetter)
	accText, accOff := group(text, loc, groupAccidental)
	octText, octOff := group(text, loc, groupOctave)

	if letter == "z" || letter == "x" {
		if accText != "" {
			return c.fail(col(accOff), ErrUnexpectedCharacter, "unexpected accidental on a rest")
		}
		if octText != "" {
			return c.fail(col(octOff), ErrUnexpectedCharacter, "unexpected octave indicator on a rest")
		}
		if c.opts.Regions {
			c.addRegion(start, start+loc[1], round(c.chordStartTick), round(noteEnd), &pitch.Rest)
		}
	} else if err := c.pitchedNote(line, start, loc, noteEnd, tie != "", tieOff); err != nil {
		return err
	}

	if !st.inChord {
		c.chordStartTick = noteEnd
	}
	return nil
}

func (c *converter) pitchedNote(line string, start int, loc []int, noteEnd float64, tied bool, tieOff int) error {
	text := line[start:]
	letter, _ := group(text, loc, groupLetter)
	accText, _ := group(text, loc, groupAccidental)
	octText, _ := group(text, loc, groupOctave)
	inst := c.tune.instrument

	lower := letter[0] | 0x20
	octave := 4
	if letter[0] != lower {
		octave = 3
	}
	switch {
	case strings.HasPrefix(octText, "'"):
		octave += len(octText)
	case strings.HasPrefix(octText, ","):
		octave -= len(octText)
	}

	noteID := (octave+1)*12 + noteDelta[lower-'a']
	gameID := noteID
	if !c.opts.UseGameInstruments {
		noteID += 12 * inst.OctaveDelta()
	}

	switch {
	case accText == "=":
		c.accidentals[noteID] = 0
	case accText != "" && accText[0] == '_':
		c.accidentals[noteID] = -len(accText)
	case accText != "":
		c.accidentals[noteID] = len(accText)
	}
	delta, ok := c.accidentals[noteID]
	if !ok {
		delta = c.tune.key.DefaultAccidental(noteID).Delta()
	}
	noteID += delta
	gameID += delta

	if !inst.IsPlayable(gameID) {
		msg := "note is too high"
		if gameID < pitch.MinPlayable.ID() {
			msg = "note is too low"
		}
		if c.opts.Strict {
			return c.fail(start+1, ErrPitchRange, "%s", msg)
		}
		if !c.rangeWarned {
			c.rangeWarned = true
			c.warn("%s for %s", msg, inst)
		}
	}

	if inst.HasIndeterminatePitch() {
		if c.opts.UseGameInstruments {
			if _, wasTied := c.tiedNotes[noteID]; !tied && !wasTied {
				lo, hi := pitch.MinPlayable.ID(), pitch.MaxPlayable.ID()
				noteID = lo + c.rng.Intn(hi-lo)
			}
		} else if inst == Cowbell {
			noteID = 76
		} else {
			noteID = 71
		}
	}

	if noteID < pitch.MinID || noteID > pitch.MaxID {
		return c.fail(start+1, ErrPitchRange, "note can't be represented in MIDI")
	}

	startTick := round(c.chordStartTick)
	for k := 0; k < len(c.noteOffs); {
		off := c.noteOffs[k]
		if float64(off.ev.tick) <= c.chordStartTick {
			c.noteOffs = append(c.noteOffs[:k], c.noteOffs[k+1:]...)
			continue
		}
		if off.noteID == noteID {
			// end the earlier note where this one starts
			c.cur.move(off.ev, startTick)
			c.noteOffs = append(c.noteOffs[:k], c.noteOffs[k+1:]...)
			break
		}
		k++
	}

	if c.opts.Regions {
		p, _ := pitch.FromID(noteID)
		idx := c.addRegion(start, start+loc[1], startTick, round(noteEnd), &p)
		if prev, ok := c.tiedRegions[noteID]; ok {
			c.info.regions[prev].TiesTo = idx
			c.info.regions[idx].TiesFrom = prev
			delete(c.tiedRegions, noteID)
		}
		if tied {
			c.tiedRegions[noteID] = idx
		}
	}

	channel := c.currentPart().Channel
	if _, continued := c.tiedNotes[noteID]; !continued {
		if c.tune.ppqn != c.ppqn {
			return &ParseError{
				File: c.file,
				Line: c.divisorChangeLine,
				Msg:  "the default note length must be the same for all parts of the song",
				Err:  ErrInconsistentTiming,
			}
		}
		c.cur.add(startTick, midi.NoteOn(channel, uint8(noteID), c.tune.dynamics.Velocity(c.opts.UseGameInstruments)))
	}

	if tied {
		c.tiedNotes[noteID] = position{file: c.file, line: c.line, col: start + tieOff + 1}
		return nil
	}

	mpq := float64(60_000_000) / float64(c.tune.currentTempo(startTick))
	micros := (noteEnd - c.chordStartTick) * mpq / float64(c.ppqn)
	if micros < 60_000 || micros > LongestNoteMicros {
		msg := "note's duration is too short"
		if micros > LongestNoteMicros {
			msg = "note's duration is too long"
		}
		if c.opts.Strict {
			return c.fail(start+1, ErrDurationRange, "%s", msg)
		}
		if !c.durationWarned {
			c.durationWarned = true
			c.warn("%s", msg)
		}
	}

	off := c.cur.add(round(noteEnd), midi.NoteOff(channel, uint8(noteID)))
	c.noteOffs = append(c.noteOffs, pendingOff{ev: off, noteID: noteID})
	delete(c.tiedNotes, noteID)
	return nil
}

func (c *converter) addRegion(startCol, endCol int, startTick, endTick int64, p *pitch.Pitch) int {
	c.info.regions = append(c.info.regions, Region{
		File:      c.file,
		Line:      c.line,
		StartCol:  startCol,
		EndCol:    endCol,
		StartTick: startTick,
		EndTick:   endTick,
		Pitch:     p,
		Track:     c.currentPart().Track,
		TiesFrom:  -1,
		TiesTo:    -1,
	})
	return len(c.info.regions) - 1
}
