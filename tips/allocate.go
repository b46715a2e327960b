package tips

import (
	"github.com/shopspring/decimal"

	"github.com/robbie-likescodes/Tip-Calculator/generic"
)

// =============================================================================
// PROPORTIONAL ALLOCATOR - Exact (unrounded) running totals
// =============================================================================

// accumulator collects raw shares per worker per type. Nothing is rounded here.
type accumulator struct {
	raw         map[WorkerID]map[PayoutType]decimal.Decimal
	input       map[PayoutType]decimal.Decimal
	allocated   map[PayoutType]decimal.Decimal
	unallocated map[PayoutType]decimal.Decimal
	trace       []TraceEntry
	warnings    []error
	periods     []PeriodPayout
}

func newAccumulator() *accumulator {
	return &accumulator{
		raw:         make(map[WorkerID]map[PayoutType]decimal.Decimal),
		input:       make(map[PayoutType]decimal.Decimal),
		allocated:   make(map[PayoutType]decimal.Decimal),
		unallocated: make(map[PayoutType]decimal.Decimal),
	}
}

func (a *accumulator) credit(id WorkerID, t PayoutType, amount decimal.Decimal) {
	m, ok := a.raw[id]
	if !ok {
		m = make(map[PayoutType]decimal.Decimal)
		a.raw[id] = m
	}
	m[t] = m[t].Add(amount)
}

func (a *accumulator) rawFor(id WorkerID, t PayoutType) decimal.Decimal {
	return a.raw[id][t]
}

// split implements the density policy: the chunk's money accrues evenly over
// its span and, at every instant, is shared evenly by whoever is present.
// Segments nobody is present for contribute nothing; their money is reported
// as unallocated with a NoCoverage warning.
func (c Chunk) split(idx *generic.PresenceIndex, acc *accumulator) {
	acc.input[c.Type] = acc.input[c.Type].Add(c.Amount)

	total := decimal.NewFromInt(int64(c.Span.Duration()))
	segs := generic.Segments(c.Span, idx)

	var (
		uncovered []generic.Span
		lost      = decimal.Zero
	)
	for _, seg := range segs {
		// amount * d / D rather than density * d: exact whenever D divides evenly
		segAmount := c.Amount.Mul(decimal.NewFromInt(int64(seg.Duration()))).Div(total)
		entry := TraceEntry{
			PayoutID:      c.ID,
			Kind:          KindChunk,
			Type:          c.Type,
			PayoutAmount:  c.Amount,
			PayoutSpan:    c.Span,
			Segment:       seg.Span,
			SegmentAmount: segAmount,
		}

		if seg.Empty() {
			uncovered = append(uncovered, seg.Span)
			lost = lost.Add(segAmount)
			acc.trace = append(acc.trace, entry)
			continue
		}

		perHead := segAmount.Div(decimal.NewFromInt(int64(len(seg.Workers))))
		for _, id := range seg.Workers {
			acc.credit(WorkerID(id), c.Type, perHead)
			entry.Workers = append(entry.Workers, WorkerID(id))
		}
		entry.PerHead = perHead
		acc.allocated[c.Type] = acc.allocated[c.Type].Add(segAmount)
		acc.trace = append(acc.trace, entry)
	}

	if len(uncovered) > 0 {
		acc.unallocated[c.Type] = acc.unallocated[c.Type].Add(lost)
		acc.warnings = append(acc.warnings, &generic.NoCoverageError{
			PayoutID:  c.ID,
			Type:      string(c.Type),
			Uncovered: uncovered,
			Amount:    lost,
			Full:      len(uncovered) == len(segs),
		})
	}
}

// split implements the flat policy: each type's amount is divided evenly by
// the team size. The span is informational; no time weighting applies.
func (p PeriodPayout) split(_ *generic.PresenceIndex, acc *accumulator) {
	team := p.Members()
	p.Team = team
	acc.periods = append(acc.periods, p)

	for _, t := range PayoutTypes {
		amount := p.AmountOf(t)
		acc.input[t] = acc.input[t].Add(amount)

		entry := TraceEntry{
			PayoutID:      p.ID,
			Kind:          KindPeriod,
			Type:          t,
			PayoutAmount:  amount,
			PayoutSpan:    p.Span,
			Segment:       p.Span,
			Workers:       team,
			SegmentAmount: amount,
		}

		if len(team) == 0 {
			if amount.IsPositive() {
				acc.unallocated[t] = acc.unallocated[t].Add(amount)
				acc.warnings = append(acc.warnings, &generic.NoCoverageError{
					PayoutID:  p.ID,
					Type:      string(t),
					Uncovered: []generic.Span{p.Span},
					Amount:    amount,
					Full:      true,
				})
			}
			acc.trace = append(acc.trace, entry)
			continue
		}

		perHead := amount.Div(decimal.NewFromInt(int64(len(team))))
		for _, id := range team {
			acc.credit(id, t, perHead)
		}
		entry.PerHead = perHead
		acc.allocated[t] = acc.allocated[t].Add(amount)
		acc.trace = append(acc.trace, entry)
	}
}
