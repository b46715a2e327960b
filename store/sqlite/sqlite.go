/*
Package sqlite provides a SQLite-backed implementation of tips.Store.

PURPOSE:
  Persists the editable input (workers with their presence spans, chunks)
  and the append-only run history. The engine itself never reads or writes
  storage; callers snapshot, calculate and append.

KEY TABLES:
  workers:  Worker records, ordered by insertion position
  presence: Presence spans per worker (minutes since the business day's midnight)
  chunks:   Chunk payouts, amounts stored as decimal strings
  runs:     Immutable calculation results, unique per idempotency key

APPEND-ONLY RUNS:
  Runs are never updated. A second run with the same idempotency key
  (mode + input fingerprint) is rejected with generic.ErrDuplicateRun, so
  repeated calculations over unchanged input do not pile up.

MONEY:
  Amounts are stored as TEXT produced by decimal.String() and parsed back
  with decimal.NewFromString; nothing passes through float64.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection so that
  ":memory:" databases behave like files.

USAGE:
  store, err := sqlite.New("./data/tips.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - tips/store.go: Interface definition
  - tips/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/robbie-likescodes/Tip-Calculator/generic"
	"github.com/robbie-likescodes/Tip-Calculator/tips"
)

// Store implements tips.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ tips.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS presence (
		worker_id TEXT NOT NULL REFERENCES workers(id) ON DELETE CASCADE,
		start_min INTEGER NOT NULL,
		end_min INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_presence_worker
		ON presence(worker_id, start_min);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		payout_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		start_min INTEGER NOT NULL,
		end_min INTEGER NOT NULL,
		position INTEGER NOT NULL
	);

	-- Runs (append-only)
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		idempotency_key TEXT NOT NULL UNIQUE,
		fingerprint TEXT NOT NULL,
		mode TEXT NOT NULL,
		reconciled BOOLEAN NOT NULL DEFAULT FALSE,
		allocations_json TEXT NOT NULL,
		totals_json TEXT NOT NULL,
		warnings_json TEXT NOT NULL,
		audit_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at
		ON runs(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// WORKERS
// =============================================================================

// SaveWorker inserts or replaces a worker and its presence spans atomically.
func (s *Store) SaveWorker(ctx context.Context, w tips.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveWorkerTx(ctx, tx, w); err != nil {
		return err
	}
	return tx.Commit()
}

func saveWorkerTx(ctx context.Context, db execer, w tips.Worker) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO workers (id, name, position)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM workers))
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, string(w.ID), w.Name)
	if err != nil {
		return fmt.Errorf("failed to save worker: %w", err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM presence WHERE worker_id = ?", string(w.ID)); err != nil {
		return fmt.Errorf("failed to clear presence: %w", err)
	}
	for _, sp := range w.Presence {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO presence (worker_id, start_min, end_min) VALUES (?, ?, ?)",
			string(w.ID), int(sp.Start), int(sp.End),
		); err != nil {
			return fmt.Errorf("failed to save presence: %w", err)
		}
	}
	return nil
}

func (s *Store) GetWorker(ctx context.Context, id tips.WorkerID) (tips.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers, err := s.queryWorkers(ctx, "WHERE w.id = ?", string(id))
	if err != nil {
		return tips.Worker{}, err
	}
	if len(workers) == 0 {
		return tips.Worker{}, fmt.Errorf("worker %s: %w", id, generic.ErrNotFound)
	}
	return workers[0], nil
}

// ListWorkers returns workers in insertion order.
func (s *Store) ListWorkers(ctx context.Context) ([]tips.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryWorkers(ctx, "")
}

func (s *Store) queryWorkers(ctx context.Context, where string, args ...any) ([]tips.Worker, error) {
	query := `
		SELECT w.id, w.name, p.start_min, p.end_min
		FROM workers w
		LEFT JOIN presence p ON p.worker_id = w.id
		` + where + `
		ORDER BY w.position ASC, p.start_min ASC
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	var workers []tips.Worker
	for rows.Next() {
		var (
			id, name   string
			start, end sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &start, &end); err != nil {
			return nil, err
		}
		if n := len(workers); n == 0 || workers[n-1].ID != tips.WorkerID(id) {
			workers = append(workers, tips.Worker{ID: tips.WorkerID(id), Name: name})
		}
		if start.Valid && end.Valid {
			last := &workers[len(workers)-1]
			last.Presence = append(last.Presence, generic.Span{
				Start: generic.Minute(start.Int64),
				End:   generic.Minute(end.Int64),
			})
		}
	}
	return workers, rows.Err()
}

func (s *Store) DeleteWorker(ctx context.Context, id tips.WorkerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteByID(ctx, s.db, "workers", string(id), "worker")
}

// =============================================================================
// CHUNKS
// =============================================================================

func (s *Store) SaveChunk(ctx context.Context, c tips.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveChunkTx(ctx, s.db, c)
}

func saveChunkTx(ctx context.Context, db execer, c tips.Chunk) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO chunks (id, payout_type, amount, start_min, end_min, position)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM chunks))
		ON CONFLICT(id) DO UPDATE SET
			payout_type = excluded.payout_type,
			amount = excluded.amount,
			start_min = excluded.start_min,
			end_min = excluded.end_min
	`, c.ID, string(c.Type), c.Amount.String(), int(c.Span.Start), int(c.Span.End))
	if err != nil {
		return fmt.Errorf("failed to save chunk: %w", err)
	}
	return nil
}

func (s *Store) ListChunks(ctx context.Context) ([]tips.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryChunks(ctx)
}

func (s *Store) queryChunks(ctx context.Context) ([]tips.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payout_type, amount, start_min, end_min
		FROM chunks
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []tips.Chunk
	for rows.Next() {
		var (
			c          tips.Chunk
			typ, amt   string
			start, end int64
		)
		if err := rows.Scan(&c.ID, &typ, &amt, &start, &end); err != nil {
			return nil, err
		}
		if c.Amount, err = decimal.NewFromString(amt); err != nil {
			return nil, fmt.Errorf("chunk %s: bad amount %q: %w", c.ID, amt, err)
		}
		c.Type = tips.PayoutType(typ)
		c.Span = generic.Span{Start: generic.Minute(start), End: generic.Minute(end)}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *Store) DeleteChunk(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteByID(ctx, s.db, "chunks", id, "chunk")
}

func deleteByID(ctx context.Context, db execer, table, id, kind string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, generic.ErrNotFound)
	}
	return nil
}

// =============================================================================
// STATE
// =============================================================================

func (s *Store) Snapshot(ctx context.Context) (tips.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers, err := s.queryWorkers(ctx, "")
	if err != nil {
		return tips.State{}, err
	}
	chunks, err := s.queryChunks(ctx)
	if err != nil {
		return tips.State{}, err
	}
	return tips.State{Workers: workers, Chunks: chunks}, nil
}

// Replace swaps workers and chunks in one transaction. Runs are kept.
func (s *Store) Replace(ctx context.Context, st tips.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"presence", "workers", "chunks"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	for _, w := range st.Workers {
		if err := saveWorkerTx(ctx, tx, w); err != nil {
			return err
		}
	}
	for _, c := range st.Chunks {
		if err := saveChunkTx(ctx, tx, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// =============================================================================
// RUNS (append-only)
// =============================================================================

// AppendRun stores a run. Returns generic.ErrDuplicateRun for a repeated
// idempotency key.
func (s *Store) AppendRun(ctx context.Context, r tips.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	allocations, err := json.Marshal(r.Allocations)
	if err != nil {
		return fmt.Errorf("failed to encode allocations: %w", err)
	}
	totals, err := json.Marshal(r.Totals)
	if err != nil {
		return fmt.Errorf("failed to encode totals: %w", err)
	}
	warnings, _ := json.Marshal(nonNil(r.Warnings))
	audit, _ := json.Marshal(nonNil(r.Audit))

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, idempotency_key, fingerprint, mode, reconciled,
			allocations_json, totals_json, warnings_json, audit_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.IdempotencyKey(), r.Fingerprint, r.Mode, r.Reconciled,
		string(allocations), string(totals), string(warnings), string(audit),
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateRun
		}
		return fmt.Errorf("failed to append run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (tips.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs, err := s.queryRuns(ctx, "WHERE id = ?", id)
	if err != nil {
		return tips.Run{}, err
	}
	if len(runs) == 0 {
		return tips.Run{}, fmt.Errorf("run %s: %w", id, generic.ErrNotFound)
	}
	return runs[0], nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context) ([]tips.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryRuns(ctx, "")
}

func (s *Store) queryRuns(ctx context.Context, where string, args ...any) ([]tips.Run, error) {
	query := `
		SELECT id, fingerprint, mode, reconciled, allocations_json, totals_json,
		       warnings_json, audit_json, created_at
		FROM runs
		` + where + `
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []tips.Run
	for rows.Next() {
		var (
			r                                    tips.Run
			allocations, totals, warnings, audit string
			createdAt                            string
		)
		if err := rows.Scan(&r.ID, &r.Fingerprint, &r.Mode, &r.Reconciled,
			&allocations, &totals, &warnings, &audit, &createdAt); err != nil {
			return nil, err
		}
		if err := errors.Join(
			json.Unmarshal([]byte(allocations), &r.Allocations),
			json.Unmarshal([]byte(totals), &r.Totals),
			json.Unmarshal([]byte(warnings), &r.Warnings),
			json.Unmarshal([]byte(audit), &r.Audit),
		); err != nil {
			return nil, fmt.Errorf("run %s: failed to decode: %w", r.ID, err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"presence", "workers", "chunks", "runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
