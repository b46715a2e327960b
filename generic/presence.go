package generic

import (
	"slices"
	"sort"
)

// =============================================================================
// PRESENCE LOOKUP - Who is active at an instant
// =============================================================================

// ActiveAt returns the ids of holders with a span containing t, sorted
// ascending. This is the reference linear scan; PresenceIndex is the fast path.
func ActiveAt(t Minute, holders []Presence) []string {
	var active []string
	for _, h := range holders {
		for _, s := range h.Spans {
			if s.Contains(t) {
				active = append(active, h.ID)
				break
			}
		}
	}
	slices.Sort(active)
	return active
}

// SameWorkers reports canonical-order equality of two active sets.
func SameWorkers(a, b []string) bool { return slices.Equal(a, b) }

// =============================================================================
// PRESENCE INDEX - Sorted boundary list + binary search
// =============================================================================

// PresenceIndex answers ActiveAt in O(log B) for B distinct boundaries.
// It is immutable after construction and safe for concurrent reads.
type PresenceIndex struct {
	points []Minute   // sorted, distinct presence boundaries
	sets   [][]string // sets[i] is the active set on [points[i], points[i+1])
}

// NewPresenceIndex sweeps every span boundary once. Invalid spans are ignored;
// callers validate before indexing.
func NewPresenceIndex(holders []Presence) *PresenceIndex {
	delta := make(map[Minute]map[string]int)
	bump := func(at Minute, id string, d int) {
		m, ok := delta[at]
		if !ok {
			m = make(map[string]int)
			delta[at] = m
		}
		m[id] += d
	}
	for _, h := range holders {
		for _, s := range h.Spans {
			if !s.Valid() {
				continue
			}
			bump(s.Start, h.ID, +1)
			bump(s.End, h.ID, -1)
		}
	}

	idx := &PresenceIndex{points: make([]Minute, 0, len(delta))}
	for p := range delta {
		idx.points = append(idx.points, p)
	}
	slices.Sort(idx.points)

	counts := make(map[string]int)
	idx.sets = make([][]string, len(idx.points))
	for i, p := range idx.points {
		for id, d := range delta[p] {
			counts[id] += d
			if counts[id] == 0 {
				delete(counts, id)
			}
		}
		set := make([]string, 0, len(counts))
		for id := range counts {
			set = append(set, id)
		}
		slices.Sort(set)
		idx.sets[i] = set
	}
	return idx
}

// ActiveAt returns the canonical active set at t. The slice is shared; do not modify.
func (idx *PresenceIndex) ActiveAt(t Minute) []string {
	// first point strictly after t, minus one = the interval starting at or before t
	i := sort.Search(len(idx.points), func(i int) bool { return idx.points[i] > t }) - 1
	if i < 0 || i >= len(idx.sets) {
		return nil
	}
	return idx.sets[i]
}

// Boundaries returns every distinct presence boundary, sorted.
func (idx *PresenceIndex) Boundaries() []Minute { return slices.Clone(idx.points) }

// BoundariesWithin returns boundaries strictly inside (span.Start, span.End).
func (idx *PresenceIndex) BoundariesWithin(span Span) []Minute {
	lo := sort.Search(len(idx.points), func(i int) bool { return idx.points[i] > span.Start })
	hi := sort.Search(len(idx.points), func(i int) bool { return idx.points[i] >= span.End })
	if lo >= hi {
		return nil
	}
	return slices.Clone(idx.points[lo:hi])
}

// Extent is [first boundary, last boundary); ok is false with no presence.
func (idx *PresenceIndex) Extent() (Span, bool) {
	if len(idx.points) < 2 {
		return Span{}, false
	}
	return Span{Start: idx.points[0], End: idx.points[len(idx.points)-1]}, true
}
