package abc

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// tuplet puts p notes into the time of q for the next r notes.
type tuplet struct {
	p, q, r int
}

// newTuplet parses the text after '(' in "(p", "(p:q" or "(p:q:r". An empty
// q or r takes the default, so "(3::2" means "(3:2:2".
func newTuplet(spec string, compound bool) (*tuplet, error) {
	parts := strings.Split(spec, ":")
	if len(parts) > 3 {
		return nil, errors.Errorf("too many fields in tuplet %q", spec)
	}

	p, err := strconv.Atoi(parts[0])
	if err != nil || p < 2 || p > 9 {
		return nil, errors.Errorf("tuplet size must be between 2 and 9, got %q", parts[0])
	}
	t := &tuplet{p: p, q: defaultTupletTime(p, compound), r: p}

	if len(parts) >= 2 && parts[1] != "" {
		if t.q, err = strconv.Atoi(parts[1]); err != nil || t.q < 1 {
			return nil, errors.Errorf("invalid tuplet time %q", parts[1])
		}
	}
	if len(parts) >= 3 && parts[2] != "" {
		if t.r, err = strconv.Atoi(parts[2]); err != nil || t.r < 1 {
			return nil, errors.Errorf("invalid tuplet note count %q", parts[2])
		}
	}
	return t, nil
}

func defaultTupletTime(p int, compound bool) int {
	switch p {
	case 3, 6:
		return 2
	case 2, 4, 8:
		return 3
	}
	if compound {
		return 3
	}
	return 2
}
