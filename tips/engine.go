package tips

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robbie-likescodes/Tip-Calculator/generic"
)

// =============================================================================
// ENGINE - Validate, segment, allocate, reconcile
// =============================================================================

// Engine holds configuration only and is safe for concurrent use.
// Every call is a pure function of its input.
type Engine struct {
	// MinSegment is the smoothing threshold, in minutes, for planned periods.
	MinSegment int
	// DriftEpsilon bounds the difference between raw allocations and the
	// allocated total before the result is considered corrupt.
	DriftEpsilon decimal.Decimal
	Logger       *slog.Logger
	Metrics      Recorder
}

type Option func(*Engine)

func WithMinSegment(minutes int) Option {
	return func(e *Engine) {
		if minutes > 0 {
			e.MinSegment = minutes
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Logger = l
		}
	}
}

func WithMetrics(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.Metrics = r
		}
	}
}

func WithDriftEpsilon(eps decimal.Decimal) Option {
	return func(e *Engine) { e.DriftEpsilon = eps.Abs() }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		MinSegment:   generic.DefaultMinSegment,
		DriftEpsilon: decimal.New(1, -9),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:      nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input is one invocation's data. Workers keep their order in the result.
type Input struct {
	Workers   []Worker
	Payouts   []Payout
	Reconcile bool
}

// Calculate splits every payout among the workers present for it.
//
// Without reconciliation the allocations are exact fractional amounts.
// With it, every amount is whole cents and each type sums to its allocated
// total rounded to the cent. Money nobody was present for is reported in
// Totals as Unallocated with a NoCoverageError in Warnings.
func (e *Engine) Calculate(in Input) (*Result, error) {
	start := time.Now()
	res, err := e.calculate(in)
	e.observe("chunks", start, res, err)
	return res, err
}

func (e *Engine) calculate(in Input) (*Result, error) {
	known, err := validateWorkers(in.Workers)
	if err != nil {
		return nil, err
	}
	for _, p := range in.Payouts {
		if err := p.Validate(known); err != nil {
			return nil, err
		}
	}

	holders := make([]generic.Presence, len(in.Workers))
	names := make(map[WorkerID]string, len(in.Workers))
	for i, w := range in.Workers {
		holders[i] = w.presence()
		names[w.ID] = w.Name
	}
	idx := generic.NewPresenceIndex(holders)

	acc := newAccumulator()
	for _, p := range in.Payouts {
		p.split(idx, acc)
	}
	for _, entry := range acc.trace {
		e.Logger.Debug("segment allocated",
			"payout", entry.PayoutID,
			"type", entry.Type,
			"segment", entry.Segment.String(),
			"workers", len(entry.Workers),
			"amount", entry.SegmentAmount.StringFixed(4))
	}

	if err := e.checkDrift(in.Workers, acc); err != nil {
		return nil, err
	}

	res := &Result{
		Allocations: make([]Allocation, len(in.Workers)),
		Trace:       acc.trace,
		Periods:     acc.periods,
		Warnings:    acc.warnings,
		Reconciled:  in.Reconcile,
		Fingerprint: Fingerprint(in),
		names:       names,
	}
	for i, w := range in.Workers {
		a := Allocation{WorkerID: w.ID, Name: w.Name}
		for _, t := range PayoutTypes {
			a.set(t, acc.rawFor(w.ID, t))
		}
		res.Allocations[i] = a
	}

	reports := make(map[PayoutType]*generic.Report, len(PayoutTypes))
	if in.Reconcile {
		for _, t := range PayoutTypes {
			report, err := e.reconcile(res.Allocations, t, acc.allocated[t])
			if err != nil {
				return nil, err
			}
			reports[t] = report
		}
	}

	for _, t := range PayoutTypes {
		distributed := decimal.Zero
		for _, a := range res.Allocations {
			distributed = distributed.Add(a.Amount(t))
		}
		res.Totals = append(res.Totals, TypeTotals{
			Type:        t,
			Input:       acc.input[t],
			Allocated:   acc.allocated[t],
			Unallocated: acc.unallocated[t],
			Distributed: distributed,
			Report:      reports[t],
		})
	}

	for _, w := range res.Warnings {
		var nc *generic.NoCoverageError
		if errors.As(w, &nc) {
			e.Metrics.AddNoCoverage(PayoutType(nc.Type))
		}
		e.Logger.Warn("payout not fully covered", "error", w)
	}
	return res, nil
}

// reconcile replaces raw amounts of type t with whole cents summing to the
// allocated total rounded to the cent.
func (e *Engine) reconcile(allocs []Allocation, t PayoutType, allocated decimal.Decimal) (*generic.Report, error) {
	shares := make([]generic.Share, len(allocs))
	for i, a := range allocs {
		shares[i] = generic.Share{ID: string(a.WorkerID), Raw: a.Amount(t)}
	}
	cents, report, err := generic.Reconcile(shares, allocated)
	if err != nil {
		var drift *generic.DriftError
		if errors.As(err, &drift) {
			drift.Type = string(t)
		}
		return nil, err
	}
	for i := range allocs {
		allocs[i].set(t, cents[i].Decimal())
	}
	e.Metrics.AddAdjustedCents(t, len(report.Adjusted))
	e.Logger.Debug("reconciled",
		"type", t,
		"target", report.Target.String(),
		"delta", int64(report.Delta),
		"adjusted", report.Adjusted)
	return &report, nil
}

// checkDrift verifies that raw shares add up to the allocated total and that
// allocated plus unallocated money accounts for every input amount.
func (e *Engine) checkDrift(workers []Worker, acc *accumulator) error {
	for _, t := range PayoutTypes {
		sum := decimal.Zero
		for _, w := range workers {
			sum = sum.Add(acc.rawFor(w.ID, t))
		}
		if sum.Sub(acc.allocated[t]).Abs().GreaterThan(e.DriftEpsilon) {
			return &generic.DriftError{Type: string(t), Expected: acc.allocated[t], Actual: sum}
		}
		accounted := acc.allocated[t].Add(acc.unallocated[t])
		if accounted.Sub(acc.input[t]).Abs().GreaterThan(e.DriftEpsilon) {
			return &generic.DriftError{Type: string(t), Expected: acc.input[t], Actual: accounted}
		}
	}
	return nil
}

// ValidateWorkers checks ids are unique and every worker's presence is valid
// and non-overlapping, exactly as Calculate and PlanPeriods do.
func ValidateWorkers(workers []Worker) error {
	_, err := validateWorkers(workers)
	return err
}

func validateWorkers(workers []Worker) (map[WorkerID]bool, error) {
	known := make(map[WorkerID]bool, len(workers))
	for _, w := range workers {
		if known[w.ID] {
			return nil, fmt.Errorf("%w: %s", generic.ErrDuplicateWorker, w.ID)
		}
		known[w.ID] = true
		if err := w.validate(); err != nil {
			return nil, err
		}
	}
	return known, nil
}

func (e *Engine) observe(mode string, start time.Time, res *Result, err error) {
	outcome := "ok"
	switch {
	case err != nil && generic.IsClientError(err):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	case res != nil && len(res.Warnings) > 0:
		outcome = "warning"
	}
	e.Metrics.ObserveRun(mode, outcome, time.Since(start))
	if err != nil {
		e.Logger.Info("calculation rejected", "mode", mode, "error", err)
	}
}

// =============================================================================
// PERIOD PLANNING - Presence-derived periods with fixed teams
// =============================================================================

// PlannedPeriod is one presence-derived period. Team is constant across it.
type PlannedPeriod struct {
	ID   string
	Span generic.Span
	Team []WorkerID
}

// Plan is the period layout for a set of workers.
type Plan struct {
	Periods []PlannedPeriod
	Notes   []generic.MergeNote
}

// PlanPeriods derives periods from presence alone: the covered part of the
// presence extent cut at every boundary, identical neighbours merged and
// segments shorter than MinSegment absorbed into a neighbour.
func (e *Engine) PlanPeriods(workers []Worker) (*Plan, error) {
	return e.PlanPeriodsWith(workers, e.MinSegment)
}

// PlanPeriodsWith plans with a one-off smoothing threshold. Zero or less
// uses the engine default.
func (e *Engine) PlanPeriodsWith(workers []Worker, minSegment int) (*Plan, error) {
	start := time.Now()
	plan, err := e.plan(workers, minSegment)
	e.observe("plan", start, nil, err)
	return plan, err
}

func (e *Engine) plan(workers []Worker, minSegment int) (*Plan, error) {
	if _, err := validateWorkers(workers); err != nil {
		return nil, err
	}
	if minSegment <= 0 {
		minSegment = e.MinSegment
	}
	holders := make([]generic.Presence, len(workers))
	for i, w := range workers {
		holders[i] = w.presence()
	}

	segs := generic.MergeIdentical(generic.CoveredSegments(generic.NewPresenceIndex(holders)))
	segs, notes := generic.Smooth(segs, minSegment)

	plan := &Plan{Periods: make([]PlannedPeriod, len(segs)), Notes: notes}
	for i, s := range segs {
		team := make([]WorkerID, len(s.Workers))
		for j, id := range s.Workers {
			team[j] = WorkerID(id)
		}
		plan.Periods[i] = PlannedPeriod{ID: fmt.Sprintf("P%d", i+1), Span: s.Span, Team: team}
	}
	for _, n := range notes {
		e.Logger.Debug("period merged", "note", n.String())
	}
	return plan, nil
}

// PeriodAmount is the money collected during one planned period.
type PeriodAmount struct {
	Cash decimal.Decimal
	Card decimal.Decimal
}

// PeriodInput pairs workers with one amount per planned period, in order.
type PeriodInput struct {
	Workers    []Worker
	Amounts    []PeriodAmount
	MinSegment int // 0 uses the engine default
	Reconcile  bool
}

// CalculatePeriods plans periods from presence, attaches the amounts in
// order and splits each flat across its team.
func (e *Engine) CalculatePeriods(in PeriodInput) (*Result, error) {
	start := time.Now()
	res, err := e.calculatePeriods(in)
	e.observe("periods", start, res, err)
	return res, err
}

func (e *Engine) calculatePeriods(in PeriodInput) (*Result, error) {
	plan, err := e.plan(in.Workers, in.MinSegment)
	if err != nil {
		return nil, err
	}
	if len(in.Amounts) != len(plan.Periods) {
		return nil, fmt.Errorf("%w: %d amounts for %d periods",
			generic.ErrPeriodMismatch, len(in.Amounts), len(plan.Periods))
	}

	payouts := make([]Payout, len(plan.Periods))
	for i, p := range plan.Periods {
		payouts[i] = PeriodPayout{
			ID:   p.ID,
			Span: p.Span,
			Team: p.Team,
			Cash: in.Amounts[i].Cash,
			Card: in.Amounts[i].Card,
		}
	}

	res, err := e.calculate(Input{Workers: in.Workers, Payouts: payouts, Reconcile: in.Reconcile})
	if err != nil {
		return nil, err
	}
	res.Notes = plan.Notes
	return res, nil
}
