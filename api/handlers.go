/*
handlers.go - HTTP API handlers for the tip allocation engine

PURPOSE:
  Exposes worker and chunk editing, calculation, period planning and run
  history via REST API. Handles HTTP request/response, JSON serialization,
  and delegates to the tips engine and store.

ENDPOINTS:
  Workers:
    GET    /api/workers                List workers in entry order
    POST   /api/workers                Create worker
    GET    /api/workers/{id}           Get worker
    PUT    /api/workers/{id}           Replace worker
    DELETE /api/workers/{id}           Delete worker

  Chunks:
    GET    /api/chunks                 List chunks
    POST   /api/chunks                 Create chunk
    DELETE /api/chunks/{id}            Delete chunk

  Calculation:
    POST   /api/calculate              Split stored chunks, record a run
    POST   /api/periods/plan           Presence-derived periods + merge notes
    POST   /api/periods/calculate      Split per-period amounts, record a run

  Runs:
    GET    /api/runs                   Run history, newest first
    GET    /api/runs/{id}              One run with its audit lines
    GET    /api/runs/{id}/export.csv   Run allocations as CSV

  State:
    GET    /api/state                  Export workers and chunks
    PUT    /api/state                  Replace workers and chunks
    POST   /api/state/legacy           Import a browser-tool snapshot
    POST   /api/reset                  Remove everything

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: tips.Store (SQLite or in-memory)
  - Engine: configured tips.Engine
  - Factory: JSON to engine input conversion

REQUEST FLOW:
  1. Parse HTTP request
  2. Convert through the factory
  3. Snapshot the store and call the engine
  4. Append the run (repeat calculations reuse the stored run)
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed bodies, invalid spans, amounts or references
  - 404: Worker, chunk or run not found
  - 500: Store failures and arithmetic drift

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/robbie-likescodes/Tip-Calculator/factory"
	"github.com/robbie-likescodes/Tip-Calculator/generic"
	"github.com/robbie-likescodes/Tip-Calculator/tips"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   tips.Store
	Engine  *tips.Engine
	Factory *factory.InputFactory
	Logger  *slog.Logger

	// Reconcile is used when a request does not say.
	Reconcile bool
	// Now stamps runs. Tests replace it.
	Now func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler with a default engine and factory.
func NewHandler(store tips.Store, engine *tips.Engine, logger *slog.Logger) *Handler {
	if engine == nil {
		engine = tips.NewEngine()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		Store:     store,
		Engine:    engine,
		Factory:   factory.NewInputFactory(),
		Logger:    logger,
		Reconcile: true,
		Now:       time.Now,
	}
}

// =============================================================================
// WORKER HANDLERS
// =============================================================================

// ListWorkers returns all workers in entry order.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.Store.ListWorkers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list workers", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Factory.ToJSON(tips.State{Workers: workers}).Workers)
}

// GetWorker returns one worker.
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	worker, err := h.Store.GetWorker(r.Context(), tips.WorkerID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Failed to get worker", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Factory.ToJSON(tips.State{Workers: []tips.Worker{worker}}).Workers[0])
}

// CreateWorker adds a worker. An id is generated when missing.
func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req factory.WorkerJSON
	if !decodeBody(w, r, &req) {
		return
	}
	h.saveWorker(w, r, req, http.StatusCreated)
}

// UpdateWorker replaces the worker named in the path.
func (h *Handler) UpdateWorker(w http.ResponseWriter, r *http.Request) {
	var req factory.WorkerJSON
	if !decodeBody(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")
	if _, err := h.Store.GetWorker(r.Context(), tips.WorkerID(req.ID)); err != nil {
		writeStoreError(w, "Failed to get worker", err)
		return
	}
	h.saveWorker(w, r, req, http.StatusOK)
}

func (h *Handler) saveWorker(w http.ResponseWriter, r *http.Request, req factory.WorkerJSON, status int) {
	worker, err := h.Factory.Worker(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid worker", err)
		return
	}
	// Spans and overlaps are checked the same way a calculation would.
	if err := tips.ValidateWorkers([]tips.Worker{worker}); err != nil {
		writeEngineError(w, "Invalid worker", err)
		return
	}
	if err := h.Store.SaveWorker(r.Context(), worker); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save worker", err)
		return
	}
	writeJSON(w, status, h.Factory.ToJSON(tips.State{Workers: []tips.Worker{worker}}).Workers[0])
}

// DeleteWorker removes a worker.
func (h *Handler) DeleteWorker(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteWorker(r.Context(), tips.WorkerID(chi.URLParam(r, "id"))); err != nil {
		writeStoreError(w, "Failed to delete worker", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CHUNK HANDLERS
// =============================================================================

// ListChunks returns all chunks in entry order.
func (h *Handler) ListChunks(w http.ResponseWriter, r *http.Request) {
	chunks, err := h.Store.ListChunks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list chunks", err)
		return
	}
	dtos := h.Factory.ToJSON(tips.State{Chunks: chunks}).Chunks
	if dtos == nil {
		dtos = []factory.ChunkJSON{}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateChunk adds a chunk. An id is generated when missing.
func (h *Handler) CreateChunk(w http.ResponseWriter, r *http.Request) {
	var req factory.ChunkJSON
	if !decodeBody(w, r, &req) {
		return
	}
	chunk, err := h.Factory.Chunk(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid chunk", err)
		return
	}
	if err := chunk.Validate(nil); err != nil {
		writeEngineError(w, "Invalid chunk", err)
		return
	}
	if err := h.Store.SaveChunk(r.Context(), chunk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save chunk", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Factory.ToJSON(tips.State{Chunks: []tips.Chunk{chunk}}).Chunks[0])
}

// DeleteChunk removes a chunk.
func (h *Handler) DeleteChunk(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteChunk(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, "Failed to delete chunk", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// Calculate splits the stored chunks among the stored workers.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	ctx := r.Context()

	state, err := h.Store.Snapshot(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load state", err)
		return
	}
	res, err := h.Engine.Calculate(state.Input(h.reconcile(req.Reconcile)))
	if err != nil {
		writeEngineError(w, "Calculation failed", err)
		return
	}
	runID, err := h.recordRun(ctx, tips.ModeChunks, res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record run", err)
		return
	}
	writeJSON(w, http.StatusOK, NewResultDTO(res, runID))
}

// PlanPeriods returns the presence-derived periods for the stored workers.
func (h *Handler) PlanPeriods(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	workers, err := h.Store.ListWorkers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list workers", err)
		return
	}

	plan, err := h.Engine.PlanPeriodsWith(workers, req.MinSegment)
	if err != nil {
		writeEngineError(w, "Planning failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

// CalculatePeriods splits one amount per planned period flat across its team.
func (h *Handler) CalculatePeriods(w http.ResponseWriter, r *http.Request) {
	var req PeriodCalculateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx := r.Context()

	workers, err := h.Store.ListWorkers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list workers", err)
		return
	}
	in := tips.PeriodInput{
		Workers:    workers,
		Amounts:    make([]tips.PeriodAmount, len(req.Amounts)),
		MinSegment: req.MinSegment,
		Reconcile:  h.reconcile(req.Reconcile),
	}
	for i, a := range req.Amounts {
		in.Amounts[i] = tips.PeriodAmount{Cash: a.Cash, Card: a.Card}
	}

	res, err := h.Engine.CalculatePeriods(in)
	if err != nil {
		writeEngineError(w, "Calculation failed", err)
		return
	}
	runID, err := h.recordRun(ctx, tips.ModePeriods, res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record run", err)
		return
	}
	writeJSON(w, http.StatusOK, NewResultDTO(res, runID))
}

func (h *Handler) reconcile(requested *bool) bool {
	if requested != nil {
		return *requested
	}
	return h.Reconcile
}

// recordRun appends the result as a run. A repeat of an identical
// calculation returns the id of the run already stored.
func (h *Handler) recordRun(ctx context.Context, mode string, res *tips.Result) (string, error) {
	run := tips.NewRun(uuid.NewString(), mode, res, h.Now())
	err := h.Store.AppendRun(ctx, run)
	if err == nil {
		h.Logger.Info("run recorded", "run", run.ID, "mode", mode, "fingerprint", run.Fingerprint)
		return run.ID, nil
	}
	if !errors.Is(err, generic.ErrDuplicateRun) {
		return "", err
	}

	runs, listErr := h.Store.ListRuns(ctx)
	if listErr != nil {
		return "", listErr
	}
	for _, existing := range runs {
		if existing.IdempotencyKey() == run.IdempotencyKey() {
			return existing.ID, nil
		}
	}
	return "", fmt.Errorf("run %s: %w but no stored run has that key", run.IdempotencyKey(), err)
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// ListRuns returns run history newest first, without audit lines.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns one run with its audit lines.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(run, true))
}

// ExportRun writes a run's allocations as CSV.
func (h *Handler) ExportRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get run", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tips-`+run.ID+`.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := tips.WriteCSV(w, run.Allocations); err != nil {
		h.Logger.Error("csv export failed", "run", run.ID, "error", err)
	}
}

// =============================================================================
// STATE HANDLERS
// =============================================================================

// GetState exports workers and chunks in the document schema.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load state", err)
		return
	}
	doc := h.Factory.ToJSON(state)
	doc.Reconcile = h.Reconcile
	writeJSON(w, http.StatusOK, doc)
}

// PutState replaces workers and chunks with a document. Runs are kept.
func (h *Handler) PutState(w http.ResponseWriter, r *http.Request) {
	var req factory.DocumentJSON
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := h.Factory.FromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid document", err)
		return
	}
	h.replaceState(w, r, doc.State, nil)
}

// ImportLegacy replaces state with a browser-tool snapshot.
func (h *Handler) ImportLegacy(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	imp, err := h.Factory.ImportLegacy(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid snapshot", err)
		return
	}
	h.replaceState(w, r, imp.State, imp.Skipped)
}

func (h *Handler) replaceState(w http.ResponseWriter, r *http.Request, state tips.State, skipped []string) {
	// Validate as a whole so a stored state always calculates.
	if err := tips.ValidateWorkers(state.Workers); err != nil {
		writeEngineError(w, "Invalid state", err)
		return
	}
	for _, c := range state.Chunks {
		if err := c.Validate(nil); err != nil {
			writeEngineError(w, "Invalid state", err)
			return
		}
	}
	if err := h.Store.Replace(r.Context(), state); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to replace state", err)
		return
	}
	h.setScenario("")
	if skipped == nil {
		skipped = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workers": len(state.Workers),
		"chunks":  len(state.Chunks),
		"skipped": skipped,
	})
}

// ResetDatabase removes workers, chunks and runs.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors to 400 or 500.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	if generic.IsClientError(err) {
		status = http.StatusBadRequest
	}
	writeError(w, status, message, err)
}

// writeStoreError maps store errors to 404 or 500.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	if generic.IsNotFound(err) {
		status = http.StatusNotFound
	}
	writeError(w, status, message, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// decodeOptionalBody accepts an empty body.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}
