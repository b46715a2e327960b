package tips

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Persistence of engine input and of finished runs
// =============================================================================

// Store persists workers and chunks (the editable input) and runs (an
// append-only history of results). The engine never touches a Store; callers
// load a snapshot, calculate, and append the run.
//
// Implementations:
//   - tips/store: in-memory, for tests and development
//   - store/sqlite: SQLite
type Store interface {
	// SaveWorker inserts or replaces a worker. Replaced workers keep their position.
	SaveWorker(ctx context.Context, w Worker) error
	GetWorker(ctx context.Context, id WorkerID) (Worker, error)
	// ListWorkers returns workers in insertion order.
	ListWorkers(ctx context.Context) ([]Worker, error)
	DeleteWorker(ctx context.Context, id WorkerID) error

	SaveChunk(ctx context.Context, c Chunk) error
	ListChunks(ctx context.Context) ([]Chunk, error)
	DeleteChunk(ctx context.Context, id string) error

	// Snapshot returns the complete editable state.
	Snapshot(ctx context.Context) (State, error)
	// Replace swaps the editable state atomically. Runs are kept.
	Replace(ctx context.Context, s State) error

	// AppendRun stores a run. A run whose IdempotencyKey was already stored is
	// rejected with generic.ErrDuplicateRun.
	AppendRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]Run, error)

	// Reset removes everything, runs included.
	Reset(ctx context.Context) error
}

// State is the editable input: workers and chunks.
type State struct {
	Workers []Worker
	Chunks  []Chunk
}

// Input builds engine input from the state.
func (s State) Input(reconcile bool) Input {
	payouts := make([]Payout, len(s.Chunks))
	for i, c := range s.Chunks {
		payouts[i] = c
	}
	return Input{Workers: s.Workers, Payouts: payouts, Reconcile: reconcile}
}

// =============================================================================
// RUNS - Persisted results
// =============================================================================

// Run modes.
const (
	ModeChunks  = "chunks"
	ModePeriods = "periods"
)

// Run is a calculation result as stored. Runs are never updated.
type Run struct {
	ID          string
	Fingerprint string
	Mode        string
	Reconciled  bool
	CreatedAt   time.Time
	Allocations []Allocation
	Totals      []TypeTotals
	Warnings    []string
	Audit       []string
}

// NewRun captures a result for storage.
func NewRun(id, mode string, res *Result, now time.Time) Run {
	warnings := make([]string, len(res.Warnings))
	for i, w := range res.Warnings {
		warnings[i] = w.Error()
	}
	return Run{
		ID:          id,
		Fingerprint: res.Fingerprint,
		Mode:        mode,
		Reconciled:  res.Reconciled,
		CreatedAt:   now.UTC(),
		Allocations: res.Allocations,
		Totals:      res.Totals,
		Warnings:    warnings,
		Audit:       res.AuditLines(),
	}
}

// IdempotencyKey identifies runs over identical input.
func (r Run) IdempotencyKey() string {
	return r.Mode + ":" + r.Fingerprint
}
