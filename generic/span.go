package generic

// =============================================================================
// SPAN - Half-open minute interval [Start, End)
// =============================================================================

// Span is a half-open interval [Start, End). An instant exactly at a boundary
// belongs to the span that starts there, never to the one that ends there.
type Span struct {
	Start Minute
	End   Minute
}

// NewSpan builds a span from two clock strings.
func NewSpan(start, end string) (Span, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Span{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Span{}, err
	}
	return Span{Start: s, End: e}, nil
}

// MustSpan is NewSpan for literals. It does not validate ordering.
func MustSpan(start, end string) Span {
	sp, err := NewSpan(start, end)
	if err != nil {
		panic(err)
	}
	return sp
}

// Valid reports End > Start.
func (s Span) Valid() bool { return s.End > s.Start }

// Validate returns an InvalidSpanError naming owner when End <= Start.
func (s Span) Validate(owner string) error {
	if !s.Valid() {
		return &InvalidSpanError{Owner: owner, Span: s}
	}
	return nil
}

// Duration is the span length in minutes.
func (s Span) Duration() int { return int(s.End - s.Start) }

// Contains reports Start <= t < End.
func (s Span) Contains(t Minute) bool { return s.Start <= t && t < s.End }

// Overlaps reports whether the two spans share at least one instant.
func (s Span) Overlaps(other Span) bool {
	return max(s.Start, other.Start) < min(s.End, other.End)
}

// Touches reports whether other starts exactly where s ends.
func (s Span) Touches(other Span) bool { return s.End == other.Start }

// Intersect returns the common part of both spans; ok is false when disjoint.
func (s Span) Intersect(other Span) (Span, bool) {
	out := Span{Start: max(s.Start, other.Start), End: min(s.End, other.End)}
	return out, out.Valid()
}

func (s Span) String() string {
	return s.Start.Clock() + "–" + s.End.Clock()
}

// Overlaps is the free-function form of Span.Overlaps.
func Overlaps(a, b Span) bool { return a.Overlaps(b) }

// Contains is the free-function form of Span.Contains.
func Contains(s Span, t Minute) bool { return s.Contains(t) }
