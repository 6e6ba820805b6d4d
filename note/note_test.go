package note

import (
	"errors"
	"testing"

	"github.com/jsphweid/abcdex/pitch"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPitch(id int) pitch.Pitch {
	p, _ := pitch.FromID(id)
	return p
}

func TestSplitWithTie(t *testing.T) {
	l := NewList()
	a := l.Add(Event{Pitch: mustPitch(60), Velocity: 100, Start: 0, End: 100})

	b, err := l.SplitWithTie(a, 40)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(int64(40), l.At(a).End)
	assert.Equal(int64(40), l.At(b).Start)
	assert.Equal(int64(100), l.At(b).End)
	assert.Equal(b, l.TiesTo(a))
	assert.Equal(a, l.TiesFrom(b))

	c, err := l.SplitWithTie(a, 20)
	require.NoError(t, err)
	assert.Equal([]Index{a, c, b}, l.Chain(b))
	assert.Equal(a, l.TieStart(b))
	assert.Equal(b, l.TieEnd(a))
}

func TestSplitRestHasNoTie(t *testing.T) {
	l := NewList()
	r := l.Add(Event{Pitch: pitch.Rest, Start: 0, End: 10})
	tail, err := l.SplitWithTie(r, 5)
	require.NoError(t, err)
	assert.Equal(t, NoTie, l.TiesTo(r))
	assert.Equal(t, NoTie, l.TiesFrom(tail))
}

func TestSplitOutsideNote(t *testing.T) {
	l := NewList()
	a := l.Add(Event{Pitch: mustPitch(60), Start: 10, End: 20})
	for _, tick := range []int64{10, 20, 5, 25} {
		_, err := l.SplitWithTie(a, tick)
		assert.True(t, errors.Is(err, ErrBadSplit))
	}
	_, err := l.SplitWithTie(7, 15)
	assert.Equal(t, ErrBadIndex, err)
}

func TestTieRules(t *testing.T) {
	l := NewList()
	a := l.Add(Event{Pitch: mustPitch(60), Start: 0, End: 10})
	b := l.Add(Event{Pitch: mustPitch(60), Start: 10, End: 20})
	c := l.Add(Event{Pitch: mustPitch(62), Start: 20, End: 30})

	assert := assert.New(t)
	assert.True(errors.Is(l.Tie(b, a), ErrBadTie))
	assert.True(errors.Is(l.Tie(b, c), ErrBadTie))
	assert.NoError(l.Tie(a, b))
	assert.True(errors.Is(l.Tie(a, b), ErrBadTie))
}

func TestEventsSorted(t *testing.T) {
	l := NewList()
	l.Add(Event{Pitch: mustPitch(64), Start: 10, End: 20})
	l.Add(Event{Pitch: mustPitch(60), Start: 10, End: 30})
	l.Add(Event{Pitch: mustPitch(67), Start: 0, End: 5})

	events := l.Events()
	assert.Equal(t, []int{67, 60, 64}, []int{events[0].Pitch.ID(), events[1].Pitch.ID(), events[2].Pitch.ID()})
}

func TestTieChainProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("splitting never creates a cycle and chain ends agree", prop.ForAll(
		func(cuts []int64) bool {
			l := NewList()
			first := l.Add(Event{Pitch: mustPitch(60), Start: 0, End: 10000})
			for _, cut := range cuts {
				// split whichever event currently covers the cut
				for i := 0; i < l.Len(); i++ {
					e := l.At(Index(i))
					if cut > e.Start && cut < e.End {
						if _, err := l.SplitWithTie(Index(i), cut); err != nil {
							return false
						}
						break
					}
				}
			}
			for i := 0; i < l.Len(); i++ {
				n := Index(i)
				if l.TieStart(l.TieEnd(n)) != l.TieStart(n) {
					return false
				}
				if len(l.Chain(n)) != l.Len() {
					return false
				}
			}
			return l.TieStart(Index(l.Len()-1)) == first
		},
		gen.SliceOf(gen.Int64Range(1, 9999)),
	))

	properties.TestingRun(t)
}
