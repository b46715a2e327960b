/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built shop days that populate the store with workers and
	chunks. Each scenario demonstrates one behaviour of the engine.

AVAILABLE SCENARIOS:

	single-worker:      One barista on all day, one cash chunk
	overlapping-shifts: Two overlapping shifts sharing one chunk by density
	odd-cents:          Card chunks that need a cent taken back
	coverage-gap:       A chunk running past the last shift
	saturday:           A full day with a three minute handoff, for periods

HOW SCENARIOS WORK:
 1. Reset the store (runs included)
 2. Convert the scenario document through the factory
 3. Replace the store state with it

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "overlapping-shifts"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add its document to scenarioDocuments

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: State and reset handlers
  - factory/document.go: Document JSON schema
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/robbie-likescodes/Tip-Calculator/factory"
	"github.com/robbie-likescodes/Tip-Calculator/tips"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-worker",
		Name:        "Single Worker",
		Description: "One barista 09:00-17:00 earns the whole $100.00 cash chunk",
		Mode:        tips.ModeChunks,
	},
	{
		ID:          "overlapping-shifts",
		Name:        "Overlapping Shifts",
		Description: "09:00-13:00 and 11:00-17:00 share $120.00: 45.00 and 75.00",
		Mode:        tips.ModeChunks,
	},
	{
		ID:          "odd-cents",
		Name:        "Odd Cents",
		Description: "Card shares of 10.005, 10.005 and 10.00 reconcile to $30.01",
		Mode:        tips.ModeChunks,
	},
	{
		ID:          "coverage-gap",
		Name:        "Coverage Gap",
		Description: "A $80.00 chunk until 17:00 with nobody after 12:00",
		Mode:        tips.ModeChunks,
	},
	{
		ID:          "saturday",
		Name:        "Saturday",
		Description: "Four baristas, a three minute handoff and period planning",
		Mode:        tips.ModePeriods,
	},
}

func shift(start, end string) factory.SpanJSON { return factory.SpanJSON{Start: start, End: end} }

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var scenarioDocuments = map[string]factory.DocumentJSON{
	"single-worker": {
		Workers: []factory.WorkerJSON{
			{ID: "ann", Name: "Ann", Presence: []factory.SpanJSON{shift("09:00", "17:00")}},
		},
		Chunks: []factory.ChunkJSON{
			{ID: "cash-day", Type: "cash", Amount: money("100.00"), Start: "09:00", End: "17:00"},
		},
	},
	"overlapping-shifts": {
		Workers: []factory.WorkerJSON{
			{ID: "ann", Name: "Ann", Presence: []factory.SpanJSON{shift("09:00", "13:00")}},
			{ID: "bob", Name: "Bob", Presence: []factory.SpanJSON{shift("11:00", "17:00")}},
		},
		Chunks: []factory.ChunkJSON{
			{ID: "cash-day", Type: "cash", Amount: money("120.00"), Start: "09:00", End: "17:00"},
		},
	},
	"odd-cents": {
		Workers: []factory.WorkerJSON{
			{ID: "ann", Name: "Ann", Presence: []factory.SpanJSON{shift("09:00", "11:00")}},
			{ID: "bob", Name: "Bob", Presence: []factory.SpanJSON{shift("09:00", "11:00")}},
			{ID: "cho", Name: "Cho", Presence: []factory.SpanJSON{shift("09:00", "10:00")}},
		},
		Chunks: []factory.ChunkJSON{
			{ID: "card-open", Type: "card", Amount: money("30.00"), Start: "09:00", End: "10:00"},
			{ID: "card-late", Type: "card", Amount: money("0.01"), Start: "10:00", End: "11:00"},
		},
	},
	"coverage-gap": {
		Workers: []factory.WorkerJSON{
			{ID: "ann", Name: "Ann", Presence: []factory.SpanJSON{shift("09:00", "12:00")}},
		},
		Chunks: []factory.ChunkJSON{
			{ID: "cash-day", Type: "cash", Amount: money("80.00"), Start: "09:00", End: "17:00"},
		},
	},
	"saturday": {
		Workers: []factory.WorkerJSON{
			{ID: "ann", Name: "Ann", Presence: []factory.SpanJSON{shift("07:00", "11:00"), shift("12:00", "13:00")}},
			{ID: "bob", Name: "Bob", Presence: []factory.SpanJSON{shift("09:00", "15:00")}},
			{ID: "cho", Name: "Cho", Presence: []factory.SpanJSON{shift("13:00", "18:00")}},
			{ID: "dev", Name: "Dev", Presence: []factory.SpanJSON{shift("15:03", "19:00")}},
		},
		Chunks: []factory.ChunkJSON{
			{ID: "cash-am", Type: "cash", Amount: money("64.20"), Start: "07:00", End: "12:00"},
			{ID: "card-am", Type: "card", Amount: money("118.75"), Start: "07:00", End: "12:00"},
			{ID: "cash-pm", Type: "cash", Amount: money("91.35"), Start: "12:00", End: "19:00"},
			{ID: "card-pm", Type: "card", Amount: money("203.10"), Start: "12:00", End: "19:00"},
		},
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, ok := scenarioDocuments[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err := h.loadScenario(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.setScenario(req.ScenarioID)
	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

func (h *Handler) loadScenario(ctx context.Context, dj factory.DocumentJSON) error {
	doc, err := h.Factory.FromJSON(dj)
	if err != nil {
		return err
	}
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	return h.Store.Replace(ctx, doc.State)
}

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}
