package tips

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/robbie-likescodes/Tip-Calculator/generic"
)

// =============================================================================
// PAYOUTS - Money to distribute
// =============================================================================

// PayoutKind names the split policy a payout uses.
type PayoutKind string

const (
	KindChunk  PayoutKind = "chunk"  // density split over presence
	KindPeriod PayoutKind = "period" // flat split over a fixed team
)

// Payout is a unit of money the engine distributes. The two implementations
// are Chunk and PeriodPayout; a deployment usually picks one.
type Payout interface {
	PayoutID() string
	Kind() PayoutKind
	// AmountOf is the payout's input amount for one type.
	AmountOf(t PayoutType) decimal.Decimal
	// Validate checks the payout against the set of known workers.
	Validate(known map[WorkerID]bool) error

	split(idx *generic.PresenceIndex, acc *accumulator)
}

// Chunk is money earned continuously over Span, split by presence density.
type Chunk struct {
	ID     string
	Type   PayoutType
	Amount decimal.Decimal
	Span   generic.Span
}

var _ Payout = Chunk{}

func (c Chunk) PayoutID() string { return c.ID }
func (c Chunk) Kind() PayoutKind { return KindChunk }

func (c Chunk) Validate(map[WorkerID]bool) error {
	owner := "chunk " + c.ID
	if err := c.Span.Validate(owner); err != nil {
		return err
	}
	if c.Type != Cash && c.Type != Card {
		return fmt.Errorf("%s: %w: %q", owner, generic.ErrUnknownPayoutType, c.Type)
	}
	if c.Amount.IsNegative() {
		return fmt.Errorf("%s: %w", owner, generic.ErrNegativeAmount)
	}
	return nil
}

// Density is the chunk's money per minute.
func (c Chunk) Density() decimal.Decimal {
	return c.Amount.Div(decimal.NewFromInt(int64(c.Span.Duration())))
}

func (c Chunk) AmountOf(t PayoutType) decimal.Decimal {
	if t == c.Type {
		return c.Amount
	}
	return decimal.Zero
}

// PeriodPayout is money already scoped to a fixed team, split flat.
type PeriodPayout struct {
	ID   string
	Span generic.Span
	Team []WorkerID
	Cash decimal.Decimal
	Card decimal.Decimal
}

var _ Payout = PeriodPayout{}

func (p PeriodPayout) PayoutID() string { return p.ID }
func (p PeriodPayout) Kind() PayoutKind { return KindPeriod }

func (p PeriodPayout) AmountOf(t PayoutType) decimal.Decimal {
	if t == Card {
		return p.Card
	}
	return p.Cash
}

func (p PeriodPayout) Validate(known map[WorkerID]bool) error {
	owner := "period " + p.ID
	if err := p.Span.Validate(owner); err != nil {
		return err
	}
	if p.Cash.IsNegative() || p.Card.IsNegative() {
		return fmt.Errorf("%s: %w", owner, generic.ErrNegativeAmount)
	}
	for _, id := range p.Team {
		if !known[id] {
			return fmt.Errorf("%s: %w: %s", owner, generic.ErrUnknownWorker, id)
		}
	}
	return nil
}

// Members returns the team canonically ordered with duplicates removed.
func (p PeriodPayout) Members() []WorkerID {
	team := slices.Clone(p.Team)
	slices.Sort(team)
	return slices.Compact(team)
}
