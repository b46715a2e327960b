/*
Package generic provides the core allocation engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms for splitting
  money over time among whoever is present. Whether the money is cash tips,
  card tips or any other pooled payout, the same engine handles interval
  arithmetic, presence lookup, segmentation, smoothing and cent reconciliation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Presence: who is present, as a set of half-open minute spans
  - Cents: integer money after reconciliation
  - Money helpers: rounding and formatting of decimal amounts

DESIGN PRINCIPLES:
  1. Purity: every function is deterministic and free of I/O
  2. Precision: uses decimal.Decimal to avoid floating-point errors
  3. Half-open spans: boundary instants belong to the span starting there
  4. Auditability: segmentation and smoothing report what they did

USAGE:
  idx := generic.NewPresenceIndex([]generic.Presence{
      {ID: "ann", Spans: []generic.Span{generic.MustSpan("09:00", "13:00")}},
  })
  segs := generic.Segments(generic.MustSpan("09:00", "17:00"), idx)

SEE ALSO:
  - span.go: Interval utilities
  - presence.go: Active-set lookup
  - segment.go: Segment builder
  - smoothing.go: Merge and minimum-duration smoothing
  - reconcile.go: Largest-remainder cent reconciliation
*/
package generic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRESENCE - Who is present, and when
// =============================================================================

// Presence lists the spans during which one holder counts as present.
// Spans of a single holder must not overlap.
type Presence struct {
	ID    string
	Spans []Span
}

// =============================================================================
// CENTS - Integer money
// =============================================================================

// Cents is a whole number of cents.
type Cents int64

var hundred = decimal.NewFromInt(100)

// ToCents rounds d to the nearest cent (half away from zero).
func ToCents(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Round(0).IntPart())
}

// Decimal converts back to a two-place decimal amount.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) String() string { return c.Decimal().StringFixed(2) }

// RoundCents rounds a decimal amount to two places.
func RoundCents(d decimal.Decimal) decimal.Decimal { return ToCents(d).Decimal() }

// FormatMoney renders an amount as "1,234.56".
func FormatMoney(d decimal.Decimal) string {
	s := RoundCents(d).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := fmt.Sprintf("%s.%s", b.String(), frac)
	if neg {
		return "-" + out
	}
	return out
}

// MustParseDecimal parses s or panics. For literals only.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
