package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robbie-likescodes/Tip-Calculator/generic"
)

func twoShifts() []generic.Presence {
	return []generic.Presence{
		{ID: "w2", Spans: []generic.Span{generic.MustSpan("11:00", "17:00")}},
		{ID: "w1", Spans: []generic.Span{
			generic.MustSpan("09:00", "13:00"),
			generic.MustSpan("15:00", "16:00"),
		}},
	}
}

func TestActiveAt_CanonicalOrder(t *testing.T) {
	holders := twoShifts()

	assert.Equal(t, []string{"w1"}, generic.ActiveAt(generic.MustParseClock("10:00"), holders))
	assert.Equal(t, []string{"w1", "w2"}, generic.ActiveAt(generic.MustParseClock("11:00"), holders))
	assert.Equal(t, []string{"w2"}, generic.ActiveAt(generic.MustParseClock("13:00"), holders))
	assert.Empty(t, generic.ActiveAt(generic.MustParseClock("17:00"), holders))
}

func TestPresenceIndex_MatchesLinearScan(t *testing.T) {
	// GIVEN: Shifts with a hand-over, a gap and a split shift
	holders := append(twoShifts(), generic.Presence{
		ID: "w3",
		Spans: []generic.Span{
			generic.MustSpan("07:00", "09:00"),
			generic.MustSpan("09:00", "10:00"), // back-to-back spans of one worker
			generic.MustSpan("18:00", "19:00"),
		},
	})
	idx := generic.NewPresenceIndex(holders)

	// THEN: Every minute of the day agrees with the reference scan
	for m := generic.Minute(6 * 60); m < 20*60; m++ {
		want := generic.ActiveAt(m, holders)
		got := idx.ActiveAt(m)
		if len(want) == 0 {
			assert.Empty(t, got, "minute %s", m)
			continue
		}
		assert.Equal(t, want, got, "minute %s", m)
	}
}

func TestPresenceIndex_BoundariesWithin(t *testing.T) {
	idx := generic.NewPresenceIndex(twoShifts())

	got := idx.BoundariesWithin(generic.MustSpan("09:00", "16:00"))
	assert.Equal(t, []generic.Minute{
		generic.MustParseClock("11:00"),
		generic.MustParseClock("13:00"),
		generic.MustParseClock("15:00"),
	}, got, "span endpoints themselves are excluded")

	extent, ok := idx.Extent()
	assert.True(t, ok)
	assert.Equal(t, generic.MustSpan("09:00", "17:00"), extent)
}

func TestPresenceIndex_Empty(t *testing.T) {
	idx := generic.NewPresenceIndex(nil)

	assert.Nil(t, idx.ActiveAt(0))
	_, ok := idx.Extent()
	assert.False(t, ok)
}

func TestSameWorkers(t *testing.T) {
	assert.True(t, generic.SameWorkers([]string{"a", "b"}, []string{"a", "b"}))
	assert.False(t, generic.SameWorkers([]string{"a"}, []string{"a", "b"}))
	assert.True(t, generic.SameWorkers(nil, []string{}))
}
