package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robbie-likescodes/Tip-Calculator/generic"
)

// assertTiles checks that segs chain exactly from span.Start to span.End.
func assertTiles(t *testing.T, span generic.Span, segs []generic.Segment) {
	t.Helper()
	require.NotEmpty(t, segs)
	assert.Equal(t, span.Start, segs[0].Start, "first segment starts at span start")
	assert.Equal(t, span.End, segs[len(segs)-1].End, "last segment ends at span end")
	for i := 1; i < len(segs); i++ {
		assert.Equal(t, segs[i-1].End, segs[i].Start, "segments %d and %d must chain", i-1, i)
	}
	for _, s := range segs {
		assert.True(t, s.Valid(), "segment %s must be non-empty", s.Span)
	}
	assert.Equal(t, span.Duration(), generic.TotalDuration(segs))
}

func TestSegments_OverlappingShifts(t *testing.T) {
	// GIVEN: w1 09:00–13:00, w2 11:00–17:00
	idx := generic.NewPresenceIndex([]generic.Presence{
		{ID: "w1", Spans: []generic.Span{generic.MustSpan("09:00", "13:00")}},
		{ID: "w2", Spans: []generic.Span{generic.MustSpan("11:00", "17:00")}},
	})
	span := generic.MustSpan("09:00", "17:00")

	// WHEN: Decomposing the payout span
	segs := generic.Segments(span, idx)

	// THEN: Three segments with constant teams
	require.Len(t, segs, 3)
	assert.Equal(t, generic.MustSpan("09:00", "11:00"), segs[0].Span)
	assert.Equal(t, []string{"w1"}, segs[0].Workers)
	assert.Equal(t, generic.MustSpan("11:00", "13:00"), segs[1].Span)
	assert.Equal(t, []string{"w1", "w2"}, segs[1].Workers)
	assert.Equal(t, generic.MustSpan("13:00", "17:00"), segs[2].Span)
	assert.Equal(t, []string{"w2"}, segs[2].Workers)
	assertTiles(t, span, segs)
}

func TestSegments_KeepsUncoveredGaps(t *testing.T) {
	// GIVEN: Coverage with a hole from 12:00 to 13:00 and nobody after 16:00
	idx := generic.NewPresenceIndex([]generic.Presence{
		{ID: "w1", Spans: []generic.Span{generic.MustSpan("09:00", "12:00")}},
		{ID: "w2", Spans: []generic.Span{generic.MustSpan("13:00", "16:00")}},
	})
	span := generic.MustSpan("08:00", "17:00")

	segs := generic.Segments(span, idx)

	// THEN: Empty segments are present so the span is still tiled
	assertTiles(t, span, segs)
	var empty []generic.Span
	for _, s := range segs {
		if s.Empty() {
			empty = append(empty, s.Span)
		}
	}
	assert.Equal(t, []generic.Span{
		generic.MustSpan("08:00", "09:00"),
		generic.MustSpan("12:00", "13:00"),
		generic.MustSpan("16:00", "17:00"),
	}, empty)
}

func TestSegments_IgnoresBoundariesOutsideSpan(t *testing.T) {
	idx := generic.NewPresenceIndex([]generic.Presence{
		{ID: "w1", Spans: []generic.Span{generic.MustSpan("06:00", "20:00")}},
		{ID: "w2", Spans: []generic.Span{generic.MustSpan("07:00", "08:00")}},
	})
	span := generic.MustSpan("10:00", "12:00")

	segs := generic.Segments(span, idx)

	require.Len(t, segs, 1)
	assert.Equal(t, span, segs[0].Span)
	assert.Equal(t, []string{"w1"}, segs[0].Workers)
}

func TestSegments_TilesRandomisedLayouts(t *testing.T) {
	// GIVEN: Staggered shifts every 37 minutes
	var holders []generic.Presence
	for i := 0; i < 12; i++ {
		start := generic.Minute(8*60 + i*37)
		holders = append(holders, generic.Presence{
			ID:    string(rune('a' + i)),
			Spans: []generic.Span{{Start: start, End: start + generic.Minute(90+i*11)}},
		})
	}
	idx := generic.NewPresenceIndex(holders)

	for _, span := range []generic.Span{
		generic.MustSpan("07:00", "20:00"),
		generic.MustSpan("09:13", "09:14"),
		generic.MustSpan("10:00", "15:30"),
	} {
		segs := generic.Segments(span, idx)
		assertTiles(t, span, segs)
		for _, s := range segs {
			assert.Equal(t, generic.ActiveAt(s.Start, holders), nilIfEmpty(s.Workers))
			assert.Equal(t, generic.ActiveAt(s.End-1, holders), nilIfEmpty(s.Workers),
				"active set must not change inside %s", s.Span)
		}
	}
}

func TestCoveredSegments_DropsGapsWithoutMovingNeighbours(t *testing.T) {
	idx := generic.NewPresenceIndex([]generic.Presence{
		{ID: "w1", Spans: []generic.Span{generic.MustSpan("09:00", "12:00")}},
		{ID: "w2", Spans: []generic.Span{generic.MustSpan("13:00", "16:00")}},
	})

	segs := generic.CoveredSegments(idx)

	require.Len(t, segs, 2)
	assert.Equal(t, generic.MustSpan("09:00", "12:00"), segs[0].Span)
	assert.Equal(t, generic.MustSpan("13:00", "16:00"), segs[1].Span)
	assert.Nil(t, generic.CoveredSegments(generic.NewPresenceIndex(nil)))
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
