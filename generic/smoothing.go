package generic

import "fmt"

// =============================================================================
// SMOOTHING - Merge identical neighbours, absorb too-short segments
// =============================================================================

// DefaultMinSegment is the default minimum period length in minutes.
const DefaultMinSegment = 5

// MergeDirection says which neighbour absorbed a short segment.
type MergeDirection string

const (
	MergedIntoPrevious MergeDirection = "previous"
	MergedIntoNext     MergeDirection = "next"
)

// MergeNote records one smoothing absorption. Purely diagnostic: it changes
// segment boundaries, never totals.
type MergeNote struct {
	Source        Span
	SourceWorkers []string
	Duration      int
	Into          Span // destination span after absorption
	IntoWorkers   []string
	Direction     MergeDirection
}

func (n MergeNote) String() string {
	return fmt.Sprintf("merged %s (%d min) into %s segment, now %s",
		n.Source, n.Duration, n.Direction, n.Into)
}

// MergeIdentical collapses touching neighbours with the same active set.
// It never mutates its input and is idempotent.
func MergeIdentical(segs []Segment) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if prev.End == s.Start && SameWorkers(prev.Workers, s.Workers) {
				prev.End = s.End
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// Smooth absorbs segments shorter than minDuration into a touching neighbour
// until none remain or a single segment is left.
//
// A short segment goes into the previous segment when one touches it;
// when it opens a contiguous run it goes into the next one instead, moving
// that segment's start backward. A short segment with no touching neighbour
// is left alone so the union of covered time never changes. After every
// absorption identical neighbours are merged again.
func Smooth(segs []Segment, minDuration int) ([]Segment, []MergeNote) {
	out := MergeIdentical(segs)
	var notes []MergeNote

	for len(out) > 1 {
		i := firstAbsorbable(out, minDuration)
		if i < 0 {
			break
		}
		short := out[i]
		note := MergeNote{
			Source:        short.Span,
			SourceWorkers: short.Workers,
			Duration:      short.Duration(),
		}

		if i > 0 && out[i-1].Touches(short.Span) {
			out[i-1].End = short.End
			note.Into, note.IntoWorkers, note.Direction = out[i-1].Span, out[i-1].Workers, MergedIntoPrevious
		} else {
			out[i+1].Start = short.Start
			note.Into, note.IntoWorkers, note.Direction = out[i+1].Span, out[i+1].Workers, MergedIntoNext
		}
		notes = append(notes, note)

		out = append(out[:i], out[i+1:]...)
		out = MergeIdentical(out)
	}
	return out, notes
}

func firstAbsorbable(segs []Segment, minDuration int) int {
	for i, s := range segs {
		if s.Duration() >= minDuration {
			continue
		}
		prev := i > 0 && segs[i-1].Touches(s.Span)
		next := i+1 < len(segs) && s.Touches(segs[i+1].Span)
		if prev || next {
			return i
		}
	}
	return -1
}
