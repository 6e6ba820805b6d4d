package model

import (
	"testing"

	"github.com/jsphweid/abcdex/abc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reel = []string{"X:1", "T:Reel", "M:4/4", "L:1/4", "Q:120", "K:G", "GABc|d4|"}

func TestNewConvertResponse(t *testing.T) {
	assert := assert.New(t)
	res, err := abc.Convert("reel.abc", reel, abc.DefaultOptions())
	require.NoError(t, err)

	resp, err := NewConvertResponse("abc-123", res)
	require.NoError(t, err)
	assert.Equal("abc-123", resp.ID)
	assert.Equal("Reel", resp.Title)
	assert.Equal("4/4", resp.Meter)
	assert.Equal("G", resp.Key)
	assert.Equal(120, resp.Tempo)
	assert.Equal(int64(2880), resp.Resolution)
	assert.Equal(2, resp.Bars)
	assert.False(resp.HasTriplets)
	assert.InDelta(4_000_000, resp.DurationMicros, 10_000)
	assert.Equal("4 seconds", resp.Duration)
	assert.Empty(resp.Warnings)

	require.Len(t, resp.Parts, 1)
	p := resp.Parts[0]
	assert.Equal(1, p.Number)
	assert.Equal(1, p.Track)
	assert.Equal(uint8(1), p.Channel)
	assert.Equal("Reel", p.Name)
	assert.Equal("reel.abc", p.File)
	assert.NotEmpty(p.Instrument)
}

func TestNewExtractResponse(t *testing.T) {
	assert := assert.New(t)
	res, err := abc.Convert("reel.abc", reel, abc.DefaultOptions())
	require.NoError(t, err)

	resp, err := NewExtractResponse(res.SMF)
	require.NoError(t, err)
	assert.Equal(2880, resp.Resolution)
	assert.Equal(120, resp.Tempo)
	assert.Equal("4/4", resp.Meter)

	require.Len(t, resp.Tracks, 1)
	tr := resp.Tracks[0]
	assert.Equal(1, tr.Index)
	assert.False(tr.Drum)
	require.Len(t, tr.Notes, 5)
	assert.Equal(int64(0), tr.Notes[0].StartMicros)
	assert.Equal(int64(500_000), tr.Notes[0].EndMicros)
	assert.InDelta(4_000_000, tr.Notes[4].EndMicros, 10_000)
	for i := 1; i < len(tr.Notes); i++ {
		assert.True(tr.Notes[i-1].Start <= tr.Notes[i].Start)
	}
}

func TestFormatDuration(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("0 seconds", FormatDuration(999_999))
	assert.Equal("2 minutes 5 seconds", FormatDuration(125_000_000))
	assert.Equal("1 hour 1 minute", FormatDuration(3_661_000_000))
}
