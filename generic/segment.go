package generic

// =============================================================================
// SEGMENT BUILDER - Maximal sub-intervals with a constant active set
// =============================================================================

// Segment is a sub-interval [Start, End) over which the set of present
// workers does not change. Workers is canonically ordered.
type Segment struct {
	Span
	Workers []string
}

// Empty reports a segment nobody is present for.
func (s Segment) Empty() bool { return len(s.Workers) == 0 }

// Segments decomposes span into segments cut at every presence boundary
// strictly inside it. The result exactly tiles span; segments with nobody
// present are kept and reported as Empty so callers can account for them.
// span must be valid.
func Segments(span Span, idx *PresenceIndex) []Segment {
	cuts := make([]Minute, 0, 2)
	cuts = append(cuts, span.Start)
	cuts = append(cuts, idx.BoundariesWithin(span)...)
	cuts = append(cuts, span.End)
	return fromBreakpoints(cuts, idx, false)
}

// CoveredSegments decomposes the full extent of presence into segments and
// drops every segment nobody is present for. Used to derive periods from
// presence alone.
func CoveredSegments(idx *PresenceIndex) []Segment {
	if _, ok := idx.Extent(); !ok {
		return nil
	}
	return fromBreakpoints(idx.Boundaries(), idx, true)
}

// fromBreakpoints pairs consecutive sorted breakpoints. No presence boundary
// lies strictly inside a pair, so the active set at its start holds for all of it.
func fromBreakpoints(cuts []Minute, idx *PresenceIndex, dropEmpty bool) []Segment {
	segs := make([]Segment, 0, len(cuts))
	for i := 0; i+1 < len(cuts); i++ {
		a, b := cuts[i], cuts[i+1]
		if b <= a {
			continue // duplicate breakpoint
		}
		workers := idx.ActiveAt(a)
		if dropEmpty && len(workers) == 0 {
			continue
		}
		segs = append(segs, Segment{
			Span:    Span{Start: a, End: b},
			Workers: append([]string(nil), workers...),
		})
	}
	return segs
}

// TotalDuration sums segment durations in minutes.
func TotalDuration(segs []Segment) int {
	total := 0
	for _, s := range segs {
		total += s.Duration()
	}
	return total
}
