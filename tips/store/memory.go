// Package store provides an in-memory tips.Store.
package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/robbie-likescodes/Tip-Calculator/generic"
	"github.com/robbie-likescodes/Tip-Calculator/tips"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	workers     []tips.Worker
	chunks      []tips.Chunk
	runs        []tips.Run // CreatedAt ascending
	idempotency map[string]bool
}

var _ tips.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{idempotency: make(map[string]bool)}
}

func (m *Memory) SaveWorker(_ context.Context, w tips.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w.Presence = slices.Clone(w.Presence)
	if i := m.workerIndex(w.ID); i >= 0 {
		m.workers[i] = w
		return nil
	}
	m.workers = append(m.workers, w)
	return nil
}

func (m *Memory) GetWorker(_ context.Context, id tips.WorkerID) (tips.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.workerIndex(id)
	if i < 0 {
		return tips.Worker{}, fmt.Errorf("worker %s: %w", id, generic.ErrNotFound)
	}
	return cloneWorker(m.workers[i]), nil
}

func (m *Memory) ListWorkers(_ context.Context) ([]tips.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneWorkers(m.workers), nil
}

func (m *Memory) DeleteWorker(_ context.Context, id tips.WorkerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.workerIndex(id)
	if i < 0 {
		return fmt.Errorf("worker %s: %w", id, generic.ErrNotFound)
	}
	m.workers = slices.Delete(m.workers, i, i+1)
	return nil
}

func (m *Memory) workerIndex(id tips.WorkerID) int {
	return slices.IndexFunc(m.workers, func(w tips.Worker) bool { return w.ID == id })
}

func (m *Memory) SaveChunk(_ context.Context, c tips.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.chunkIndex(c.ID); i >= 0 {
		m.chunks[i] = c
		return nil
	}
	m.chunks = append(m.chunks, c)
	return nil
}

func (m *Memory) ListChunks(_ context.Context) ([]tips.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.chunks), nil
}

func (m *Memory) DeleteChunk(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.chunkIndex(id)
	if i < 0 {
		return fmt.Errorf("chunk %s: %w", id, generic.ErrNotFound)
	}
	m.chunks = slices.Delete(m.chunks, i, i+1)
	return nil
}

func (m *Memory) chunkIndex(id string) int {
	return slices.IndexFunc(m.chunks, func(c tips.Chunk) bool { return c.ID == id })
}

func (m *Memory) Snapshot(_ context.Context) (tips.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return tips.State{Workers: cloneWorkers(m.workers), Chunks: slices.Clone(m.chunks)}, nil
}

// Replace swaps workers and chunks in one step. Readers never see a mix.
func (m *Memory) Replace(_ context.Context, s tips.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = cloneWorkers(s.Workers)
	m.chunks = slices.Clone(s.Chunks)
	return nil
}

// AppendRun adds a run. Append-only.
func (m *Memory) AppendRun(_ context.Context, r tips.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := r.IdempotencyKey()
	if m.idempotency[key] {
		return generic.ErrDuplicateRun
	}

	// Binary search for insertion point keeps runs ordered by CreatedAt
	i := sort.Search(len(m.runs), func(i int) bool {
		return m.runs[i].CreatedAt.After(r.CreatedAt)
	})
	m.runs = slices.Insert(m.runs, i, r)
	m.idempotency[key] = true
	return nil
}

func (m *Memory) GetRun(_ context.Context, id string) (tips.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return tips.Run{}, fmt.Errorf("run %s: %w", id, generic.ErrNotFound)
}

func (m *Memory) ListRuns(_ context.Context) ([]tips.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := slices.Clone(m.runs)
	slices.Reverse(result)
	return result, nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = nil
	m.chunks = nil
	m.runs = nil
	m.idempotency = make(map[string]bool)
	return nil
}

func cloneWorker(w tips.Worker) tips.Worker {
	w.Presence = slices.Clone(w.Presence)
	return w
}

func cloneWorkers(ws []tips.Worker) []tips.Worker {
	out := make([]tips.Worker, len(ws))
	for i, w := range ws {
		out[i] = cloneWorker(w)
	}
	return out
}
