// Package tips implements tip allocation on top of the generic engine.
// Workers carry presence spans; payouts are either chunks (split by presence
// density over time) or periods (split flat over a fixed team).
package tips

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/robbie-likescodes/Tip-Calculator/generic"
)

// =============================================================================
// PAYOUT TYPES
// =============================================================================

// PayoutType is one of the two money streams. Types are never mixed.
type PayoutType string

const (
	Cash PayoutType = "cash" // type A
	Card PayoutType = "card" // type B
)

// PayoutTypes lists every payout type in reporting order.
var PayoutTypes = []PayoutType{Cash, Card}

// ParsePayoutType accepts cash/card or A/B, case-insensitively.
func ParsePayoutType(s string) (PayoutType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash", "a":
		return Cash, nil
	case "card", "b":
		return Card, nil
	}
	return "", fmt.Errorf("%w: %q", generic.ErrUnknownPayoutType, s)
}

// Label is the upper-case name used in audit lines.
func (t PayoutType) Label() string { return strings.ToUpper(string(t)) }

// =============================================================================
// WORKERS
// =============================================================================

type WorkerID string

// Worker is read-only engine input. Presence spans must not overlap.
type Worker struct {
	ID       WorkerID
	Name     string
	Presence []generic.Span
}

func (w Worker) presence() generic.Presence {
	return generic.Presence{ID: string(w.ID), Spans: w.Presence}
}

// validate checks every span and rejects overlapping presence.
func (w Worker) validate() error {
	owner := "worker " + string(w.ID)
	for _, s := range w.Presence {
		if err := s.Validate(owner); err != nil {
			return err
		}
	}
	sorted := slices.Clone(w.Presence)
	slices.SortFunc(sorted, func(a, b generic.Span) int { return int(a.Start - b.Start) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Overlaps(sorted[i]) {
			return &generic.OverlapError{WorkerID: string(w.ID), First: sorted[i-1], Second: sorted[i]}
		}
	}
	return nil
}

// =============================================================================
// ALLOCATION RESULT
// =============================================================================

// Allocation is one worker's share. Amounts are fractional until
// reconciliation, whole cents after it.
type Allocation struct {
	WorkerID WorkerID
	Name     string
	Cash     decimal.Decimal
	Card     decimal.Decimal
	Total    decimal.Decimal
}

// Amount returns the allocation for one payout type.
func (a Allocation) Amount(t PayoutType) decimal.Decimal {
	if t == Card {
		return a.Card
	}
	return a.Cash
}

func (a *Allocation) set(t PayoutType, v decimal.Decimal) {
	if t == Card {
		a.Card = v
	} else {
		a.Cash = v
	}
	a.Total = a.Cash.Add(a.Card)
}

// TypeTotals summarises one payout type across all payouts.
type TypeTotals struct {
	Type        PayoutType
	Input       decimal.Decimal // sum of payout amounts
	Allocated   decimal.Decimal // money split among present workers
	Unallocated decimal.Decimal // money earned while nobody was present
	Distributed decimal.Decimal // sum of worker allocations as returned
	Report      *generic.Report // nil unless reconciliation ran
}

// TraceEntry is one line of the audit trail: a segment of a chunk, or one
// payout type of a period.
type TraceEntry struct {
	PayoutID      string
	Kind          PayoutKind
	Type          PayoutType
	PayoutAmount  decimal.Decimal
	PayoutSpan    generic.Span
	Segment       generic.Span
	Workers       []WorkerID
	SegmentAmount decimal.Decimal
	PerHead       decimal.Decimal
}

// Minutes is the traced segment length.
func (e TraceEntry) Minutes() int { return e.Segment.Duration() }

// Result is everything one invocation produces.
type Result struct {
	Allocations []Allocation // input worker order
	Totals      []TypeTotals // PayoutTypes order
	Trace       []TraceEntry
	Periods     []PeriodPayout      // period payouts used, with their teams
	Notes       []generic.MergeNote // smoothing adjustments behind Periods
	Warnings    []error             // NoCoverageError values
	Reconciled  bool
	Fingerprint string

	names map[WorkerID]string
}

// Allocation returns the allocation for id, if present.
func (r *Result) Allocation(id WorkerID) (Allocation, bool) {
	for _, a := range r.Allocations {
		if a.WorkerID == id {
			return a, true
		}
	}
	return Allocation{}, false
}

// TotalsFor returns the totals for one payout type.
func (r *Result) TotalsFor(t PayoutType) TypeTotals {
	for _, tt := range r.Totals {
		if tt.Type == t {
			return tt
		}
	}
	return TypeTotals{Type: t}
}

// Name resolves a worker id to its display name.
func (r *Result) Name(id WorkerID) string {
	if n, ok := r.names[id]; ok && n != "" {
		return n
	}
	return string(id)
}
