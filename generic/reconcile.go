package generic

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RECONCILER - Largest-remainder cent distribution
// =============================================================================

// Share is one holder's raw (fractional) amount for a single payout type.
type Share struct {
	ID  string
	Raw decimal.Decimal
}

// Report describes what reconciliation did for one payout type.
type Report struct {
	Target   Cents    // allocated total rounded to the cent
	Rounded  Cents    // sum of per-holder nearest-cent amounts before adjustment
	Delta    Cents    // Target - Rounded
	Adjusted []string // holder ids in the order they received (or lost) a cent
	Passes   int      // wrap-around passes over the ranked list
}

// Reconcile rounds every share to the nearest cent and then moves single
// cents until the sum equals target rounded to the cent.
//
// Cents go to holders whose raw remainder best justifies them: descending
// fractional remainder when adding; descending (1 - remainder) when removing,
// with a remainder of exactly zero ranked first to lose. The sort is stable,
// so input order breaks ties. When more cents move than there are holders the
// ranked list is walked again from the top.
//
// Only holders with a positive raw amount take part in adjustments, and a
// holder already at zero cents never loses one. The returned cents are in
// input order.
func Reconcile(shares []Share, target decimal.Decimal) ([]Cents, Report, error) {
	out := make([]Cents, len(shares))
	report := Report{Target: ToCents(target)}
	for i, s := range shares {
		out[i] = ToCents(s.Raw)
		report.Rounded += out[i]
	}
	report.Delta = report.Target - report.Rounded
	if report.Delta == 0 {
		return out, report, nil
	}

	adding := report.Delta > 0
	type pref struct {
		pos   int
		score decimal.Decimal
	}
	prefs := make([]pref, 0, len(shares))
	for i, s := range shares {
		if !s.Raw.IsPositive() || (!adding && out[i] <= 0) {
			continue
		}
		raw := s.Raw.Mul(hundred)
		frac := raw.Sub(raw.Floor())
		score := frac
		if !adding {
			if frac.IsZero() {
				score = decimal.NewFromInt(1)
			} else {
				score = decimal.NewFromInt(1).Sub(frac)
			}
		}
		prefs = append(prefs, pref{pos: i, score: score})
	}
	drift := &DriftError{
		Type:     "reconcile",
		Expected: target,
		Actual:   report.Rounded.Decimal(),
	}
	if len(prefs) == 0 {
		return nil, report, drift
	}
	sort.SliceStable(prefs, func(a, b int) bool {
		return prefs[a].score.GreaterThan(prefs[b].score)
	})

	step, count := Cents(1), int(report.Delta)
	if !adding {
		step, count = -1, -count
	}
	k, idle := 0, 0
	for moved := 0; moved < count; k++ {
		pick := prefs[k%len(prefs)]
		if !adding && out[pick.pos] <= 0 {
			// A full lap with nobody left above zero.
			if idle++; idle == len(prefs) {
				return nil, report, drift
			}
			continue
		}
		idle = 0
		out[pick.pos] += step
		report.Adjusted = append(report.Adjusted, shares[pick.pos].ID)
		moved++
	}
	report.Passes = (k + len(prefs) - 1) / len(prefs)
	return out, report, nil
}
