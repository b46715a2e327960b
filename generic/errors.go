/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The tips package and the API wrap these with additional context.

ERROR CATEGORIES:
  1. Input errors - Malformed spans, amounts, worker references (fatal for the call)
  2. Coverage warnings - Money earned while nobody was present (non-fatal)
  3. Invariant violations - Arithmetic drift before reconciliation (defect, fatal)
  4. Store errors - Lookups of missing records

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, generic.ErrInvalidSpan) {
        var spanErr *generic.InvalidSpanError
        errors.As(err, &spanErr)
        ...
    }

SEE ALSO:
  - span.go: Produces InvalidSpanError
  - reconcile.go: Produces DriftError
  - tips/engine.go: Collects NoCoverageError as warnings
*/
package generic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidSpan is returned when a span has End <= Start.
	ErrInvalidSpan = errors.New("invalid span: end must be after start")

	// ErrNoCoverage marks money earned while no worker was present.
	// It is reported as a warning, never as a failed calculation.
	ErrNoCoverage = errors.New("no worker coverage")

	// ErrArithmeticDrift is returned when raw allocations no longer add up to
	// the allocated total. This is a defect, not a user error.
	ErrArithmeticDrift = errors.New("arithmetic drift")

	// ErrNegativeAmount is returned for payouts with amounts below zero.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrUnknownWorker is returned when a payout team names a missing worker.
	ErrUnknownWorker = errors.New("unknown worker")

	// ErrDuplicateWorker is returned when two workers share an id.
	ErrDuplicateWorker = errors.New("duplicate worker id")

	// ErrOverlappingPresence is returned when one worker has overlapping intervals.
	ErrOverlappingPresence = errors.New("overlapping presence intervals")

	// ErrUnknownPayoutType is returned for payout types other than cash/card.
	ErrUnknownPayoutType = errors.New("unknown payout type")

	// ErrPeriodMismatch is returned when period amounts do not line up with planned periods.
	ErrPeriodMismatch = errors.New("period amounts do not match planned periods")

	// ErrNotFound is returned by stores for missing records.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateRun is returned when a run with the same idempotency key
	// was already stored. Expected for retries; callers may ignore it.
	ErrDuplicateRun = errors.New("duplicate run")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidSpanError names the offending span and who owns it.
type InvalidSpanError struct {
	Owner string
	Span  Span
}

func (e *InvalidSpanError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("invalid span %s→%s: end must be after start", e.Span.Start, e.Span.End)
	}
	return fmt.Sprintf("%s: invalid span %s→%s: end must be after start", e.Owner, e.Span.Start, e.Span.End)
}

func (e *InvalidSpanError) Unwrap() error { return ErrInvalidSpan }

// NoCoverageError reports the parts of a payout nobody was present for.
type NoCoverageError struct {
	PayoutID  string
	Type      string
	Uncovered []Span
	Amount    decimal.Decimal // money left unallocated
	Full      bool            // true when no part of the payout was covered
}

func (e *NoCoverageError) Error() string {
	parts := make([]string, len(e.Uncovered))
	for i, s := range e.Uncovered {
		parts[i] = s.String()
	}
	scope := "partial"
	if e.Full {
		scope = "full"
	}
	return fmt.Sprintf("no worker coverage (%s) for %s payout %s during [%s]: %s unallocated",
		scope, e.Type, e.PayoutID, strings.Join(parts, ", "), e.Amount.StringFixed(2))
}

func (e *NoCoverageError) Unwrap() error { return ErrNoCoverage }

// DriftError carries the expected and observed sums for a payout type.
type DriftError struct {
	Type     string
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("arithmetic drift on %s: expected %s, raw allocations sum to %s",
		e.Type, e.Expected.String(), e.Actual.String())
}

func (e *DriftError) Unwrap() error { return ErrArithmeticDrift }

// OverlapError names the worker and the two intervals that collide.
type OverlapError struct {
	WorkerID string
	First    Span
	Second   Span
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("worker %s: presence %s overlaps %s", e.WorkerID, e.First, e.Second)
}

func (e *OverlapError) Unwrap() error { return ErrOverlappingPresence }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidSpan) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrUnknownWorker) ||
		errors.Is(err, ErrDuplicateWorker) ||
		errors.Is(err, ErrOverlappingPresence) ||
		errors.Is(err, ErrUnknownPayoutType) ||
		errors.Is(err, ErrPeriodMismatch)
}

// IsWarning returns true for conditions that should be reported, not fail a call.
func IsWarning(err error) bool {
	return errors.Is(err, ErrNoCoverage)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
