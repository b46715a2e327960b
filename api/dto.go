/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's result types from the external API contract. Worker and
  chunk bodies reuse the factory JSON schema so the API and the CLI accept
  the same documents.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Calculation:
    CalculateRequest, PeriodCalculateRequest, ResultDTO, AllocationDTO,
    TotalsDTO, ReconcileDTO, PeriodDTO

  Planning:
    PlanDTO

  Runs:
    RunDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

MONEY:
  Amounts are decimal strings. Unreconciled results carry the exact
  fractional shares; reconciled results are whole cents.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/document.go: WorkerJSON, ChunkJSON, PeriodAmountJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/robbie-likescodes/Tip-Calculator/factory"
	"github.com/robbie-likescodes/Tip-Calculator/generic"
	"github.com/robbie-likescodes/Tip-Calculator/tips"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CalculateRequest runs the chunk engine over the stored state.
// A nil Reconcile uses the server default.
type CalculateRequest struct {
	Reconcile *bool `json:"reconcile,omitempty"`
}

// PeriodCalculateRequest supplies one amount per planned period, in order.
type PeriodCalculateRequest struct {
	Amounts    []factory.PeriodAmountJSON `json:"amounts"`
	Reconcile  *bool                      `json:"reconcile,omitempty"`
	MinSegment int                        `json:"min_segment,omitempty"`
}

// PlanRequest optionally overrides the smoothing threshold.
type PlanRequest struct {
	MinSegment int `json:"min_segment,omitempty"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AllocationDTO is one worker's share.
type AllocationDTO struct {
	WorkerID string          `json:"worker_id"`
	Name     string          `json:"name"`
	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	Total    decimal.Decimal `json:"total"`
}

// ReconcileDTO reports what reconciliation did for one payout type.
type ReconcileDTO struct {
	Target   string   `json:"target"`
	Rounded  string   `json:"rounded"`
	Delta    int64    `json:"delta_cents"`
	Adjusted []string `json:"adjusted"`
}

// TotalsDTO summarises one payout type.
type TotalsDTO struct {
	Type        string          `json:"type"`
	Input       decimal.Decimal `json:"input"`
	Allocated   decimal.Decimal `json:"allocated"`
	Unallocated decimal.Decimal `json:"unallocated"`
	Distributed decimal.Decimal `json:"distributed"`
	Reconcile   *ReconcileDTO   `json:"reconcile,omitempty"`
}

// PeriodDTO is a period payout with its resolved team.
type PeriodDTO struct {
	ID    string          `json:"id"`
	Start string          `json:"start"`
	End   string          `json:"end"`
	Team  []string        `json:"team"`
	Cash  decimal.Decimal `json:"cash"`
	Card  decimal.Decimal `json:"card"`
}

// ResultDTO is a calculation result.
type ResultDTO struct {
	RunID       string          `json:"run_id,omitempty"`
	Fingerprint string          `json:"fingerprint"`
	Reconciled  bool            `json:"reconciled"`
	Allocations []AllocationDTO `json:"allocations"`
	Totals      []TotalsDTO     `json:"totals"`
	Periods     []PeriodDTO     `json:"periods,omitempty"`
	Notes       []string        `json:"notes,omitempty"`
	Warnings    []string        `json:"warnings"`
	Audit       []string        `json:"audit"`
}

// PlannedPeriodDTO is one presence-derived period.
type PlannedPeriodDTO struct {
	ID    string   `json:"id"`
	Start string   `json:"start"`
	End   string   `json:"end"`
	Team  []string `json:"team"`
}

// PlanDTO is the period layout plus smoothing notes.
type PlanDTO struct {
	Periods []PlannedPeriodDTO `json:"periods"`
	Notes   []string           `json:"notes"`
}

// RunDTO is a stored run.
type RunDTO struct {
	ID          string          `json:"id"`
	Fingerprint string          `json:"fingerprint"`
	Mode        string          `json:"mode"`
	Reconciled  bool            `json:"reconciled"`
	CreatedAt   string          `json:"created_at"`
	Allocations []AllocationDTO `json:"allocations"`
	Totals      []TotalsDTO     `json:"totals"`
	Warnings    []string        `json:"warnings"`
	Audit       []string        `json:"audit,omitempty"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Mode        string `json:"mode"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAllocationDTOs(allocs []tips.Allocation) []AllocationDTO {
	out := make([]AllocationDTO, len(allocs))
	for i, a := range allocs {
		out[i] = AllocationDTO{
			WorkerID: string(a.WorkerID),
			Name:     a.Name,
			Cash:     a.Cash,
			Card:     a.Card,
			Total:    a.Total,
		}
	}
	return out
}

func toTotalsDTOs(totals []tips.TypeTotals) []TotalsDTO {
	out := make([]TotalsDTO, len(totals))
	for i, t := range totals {
		out[i] = TotalsDTO{
			Type:        string(t.Type),
			Input:       t.Input,
			Allocated:   t.Allocated,
			Unallocated: t.Unallocated,
			Distributed: t.Distributed,
			Reconcile:   toReconcileDTO(t.Report),
		}
	}
	return out
}

func toReconcileDTO(r *generic.Report) *ReconcileDTO {
	if r == nil {
		return nil
	}
	adjusted := r.Adjusted
	if adjusted == nil {
		adjusted = []string{}
	}
	return &ReconcileDTO{
		Target:   r.Target.String(),
		Rounded:  r.Rounded.String(),
		Delta:    int64(r.Delta),
		Adjusted: adjusted,
	}
}

// NewResultDTO renders a result. runID may be empty.
func NewResultDTO(res *tips.Result, runID string) ResultDTO {
	dto := ResultDTO{
		RunID:       runID,
		Fingerprint: res.Fingerprint,
		Reconciled:  res.Reconciled,
		Allocations: toAllocationDTOs(res.Allocations),
		Totals:      toTotalsDTOs(res.Totals),
		Warnings:    make([]string, len(res.Warnings)),
		Audit:       res.AuditLines(),
	}
	for i, w := range res.Warnings {
		dto.Warnings[i] = w.Error()
	}
	for _, p := range res.Periods {
		dto.Periods = append(dto.Periods, PeriodDTO{
			ID:    p.ID,
			Start: p.Span.Start.Clock(),
			End:   p.Span.End.Clock(),
			Team:  workerIDs(p.Team),
			Cash:  p.Cash,
			Card:  p.Card,
		})
	}
	for _, n := range res.Notes {
		dto.Notes = append(dto.Notes, n.String())
	}
	return dto
}

func toPlanDTO(plan *tips.Plan) PlanDTO {
	dto := PlanDTO{
		Periods: make([]PlannedPeriodDTO, len(plan.Periods)),
		Notes:   make([]string, len(plan.Notes)),
	}
	for i, p := range plan.Periods {
		dto.Periods[i] = PlannedPeriodDTO{
			ID:    p.ID,
			Start: p.Span.Start.Clock(),
			End:   p.Span.End.Clock(),
			Team:  workerIDs(p.Team),
		}
	}
	for i, n := range plan.Notes {
		dto.Notes[i] = n.String()
	}
	return dto
}

func toRunDTO(r tips.Run, withAudit bool) RunDTO {
	dto := RunDTO{
		ID:          r.ID,
		Fingerprint: r.Fingerprint,
		Mode:        r.Mode,
		Reconciled:  r.Reconciled,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		Allocations: toAllocationDTOs(r.Allocations),
		Totals:      toTotalsDTOs(r.Totals),
		Warnings:    r.Warnings,
	}
	if dto.Warnings == nil {
		dto.Warnings = []string{}
	}
	if withAudit {
		dto.Audit = r.Audit
	}
	return dto
}

func workerIDs(ids []tips.WorkerID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
