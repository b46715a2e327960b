/*
handlers_test.go - Tests for API handlers

Tests for:
- Worker and chunk editing
- Calculation end to end, run recording and CSV export
- Period planning and calculation
- State save/load, legacy import and reset
- Rate limiting and the metrics endpoint
*/
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robbie-likescodes/Tip-Calculator/factory"
	"github.com/robbie-likescodes/Tip-Calculator/generic"
	"github.com/robbie-likescodes/Tip-Calculator/metrics"
	"github.com/robbie-likescodes/Tip-Calculator/store/sqlite"
	"github.com/robbie-likescodes/Tip-Calculator/tips"
)

func setupTestServer(t *testing.T, opts Options) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, tips.NewEngine(), nil)
	h.Now = func() time.Time { return time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC) }
	return h, NewRouter(h, opts)
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func loadScenario(t *testing.T, srv http.Handler, id string) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func allocationFor(t *testing.T, allocs []AllocationDTO, id string) AllocationDTO {
	t.Helper()
	for _, a := range allocs {
		if a.WorkerID == id {
			return a
		}
	}
	t.Fatalf("no allocation for %s", id)
	return AllocationDTO{}
}

func totalsFor(t *testing.T, totals []TotalsDTO, typ string) TotalsDTO {
	t.Helper()
	for _, tt := range totals {
		if tt.Type == typ {
			return tt
		}
	}
	t.Fatalf("no totals for %s", typ)
	return TotalsDTO{}
}

// =============================================================================
// WORKERS AND CHUNKS
// =============================================================================

func TestWorkers_CRUD(t *testing.T) {
	_, srv := setupTestServer(t, Options{})

	// GIVEN: Two workers created in order
	rec := do(t, srv, http.MethodPost, "/api/workers",
		`{"id": "ann", "name": "Ann", "presence": [{"start": "09:00", "end": "13:00"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, srv, http.MethodPost, "/api/workers",
		`{"name": "Bob", "presence": [{"start": "11:00", "end": "17:00"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bob := decode[factory.WorkerJSON](t, rec)
	assert.NotEmpty(t, bob.ID, "id is generated")

	// WHEN: Updating the first one
	rec = do(t, srv, http.MethodPut, "/api/workers/ann",
		`{"name": "Ann K", "presence": [{"start": "08:00", "end": "12:00"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: The list keeps entry order and shows the update
	workers := decode[[]factory.WorkerJSON](t, do(t, srv, http.MethodGet, "/api/workers", ""))
	require.Len(t, workers, 2)
	assert.Equal(t, "Ann K", workers[0].Name)
	assert.Equal(t, "08:00", workers[0].Presence[0].Start)
	assert.Equal(t, "Bob", workers[1].Name)

	// AND: Deleting makes it disappear
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/workers/ann", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/workers/ann", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/workers/ann", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPut, "/api/workers/ann", `{"name": "x"}`).Code)
}

func TestCreateWorker_Rejected(t *testing.T) {
	_, srv := setupTestServer(t, Options{})

	tests := []struct {
		name string
		body string
	}{
		{"overlapping presence", `{"id": "a", "presence": [{"start": "09:00", "end": "12:00"}, {"start": "11:00", "end": "13:00"}]}`},
		{"reversed span", `{"id": "a", "presence": [{"start": "12:00", "end": "09:00"}]}`},
		{"bad clock", `{"id": "a", "presence": [{"start": "9am", "end": "12:00"}]}`},
		{"malformed body", `{"id": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/workers", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestChunks_CreateListDelete(t *testing.T) {
	_, srv := setupTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/api/chunks",
		`{"id": "c1", "type": "B", "amount": "42.50", "start": "09:00", "end": "12:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "card", decode[factory.ChunkJSON](t, rec).Type)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/chunks",
		`{"type": "tokens", "amount": "1", "start": "09:00", "end": "10:00"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/chunks",
		`{"type": "cash", "amount": "-1", "start": "09:00", "end": "10:00"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/chunks",
		`{"type": "cash", "amount": "1", "start": "10:00", "end": "10:00"}`).Code)

	chunks := decode[[]factory.ChunkJSON](t, do(t, srv, http.MethodGet, "/api/chunks", ""))
	require.Len(t, chunks, 1)
	assertMoney(t, "42.50", chunks[0].Amount)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/chunks/c1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/chunks/c1", "").Code)
}

// =============================================================================
// CALCULATION
// =============================================================================

func TestCalculate_OverlappingShifts(t *testing.T) {
	_, srv := setupTestServer(t, Options{})
	loadScenario(t, srv, "overlapping-shifts")

	// WHEN: Calculating with the server default (reconcile)
	rec := do(t, srv, http.MethodPost, "/api/calculate", "")

	// THEN: 09-11 alone, 11-13 shared, 13-17 alone gives 45 and 75
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[ResultDTO](t, rec)
	assert.True(t, res.Reconciled)
	assertMoney(t, "45.00", allocationFor(t, res.Allocations, "ann").Cash)
	assertMoney(t, "75.00", allocationFor(t, res.Allocations, "bob").Cash)
	assertMoney(t, "120.00", totalsFor(t, res.Totals, "cash").Distributed)
	assert.Empty(t, res.Warnings)
	assert.Len(t, res.Audit, 3)
	assert.NotEmpty(t, res.RunID)
	assert.NotEmpty(t, res.Fingerprint)

	// AND: Repeating the calculation reuses the stored run
	again := decode[ResultDTO](t, do(t, srv, http.MethodPost, "/api/calculate", `{"reconcile": true}`))
	assert.Equal(t, res.RunID, again.RunID)

	runs := decode[[]RunDTO](t, do(t, srv, http.MethodGet, "/api/runs", ""))
	require.Len(t, runs, 1)
	assert.Equal(t, tips.ModeChunks, runs[0].Mode)
	assert.Empty(t, runs[0].Audit, "list omits audit lines")
}

func TestCalculate_CoverageGapIsAWarning(t *testing.T) {
	_, srv := setupTestServer(t, Options{})
	loadScenario(t, srv, "coverage-gap")

	rec := do(t, srv, http.MethodPost, "/api/calculate", `{"reconcile": false}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[ResultDTO](t, rec)
	assert.False(t, res.Reconciled)
	assertMoney(t, "30", allocationFor(t, res.Allocations, "ann").Cash)
	cash := totalsFor(t, res.Totals, "cash")
	assertMoney(t, "50", cash.Unallocated)
	assert.Nil(t, cash.Reconcile)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "cash-day")
}

func TestCalculate_InvalidStoredStateIsBadRequest(t *testing.T) {
	h, srv := setupTestServer(t, Options{})

	// GIVEN: A chunk saved around the API's checks
	bad := tips.Chunk{ID: "bad", Type: tips.Cash, Amount: decimal.NewFromInt(5)}
	bad.Span.Start, bad.Span.End = 600, 540
	require.NoError(t, h.Store.SaveChunk(context.Background(), bad))

	rec := do(t, srv, http.MethodPost, "/api/calculate", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "chunk bad")
}

func TestGetRun_AuditAndCSVExport(t *testing.T) {
	_, srv := setupTestServer(t, Options{})
	loadScenario(t, srv, "odd-cents")
	res := decode[ResultDTO](t, do(t, srv, http.MethodPost, "/api/calculate", ""))

	// GIVEN: A reconciled run where Cho loses the odd cent
	card := totalsFor(t, res.Totals, "card")
	require.NotNil(t, card.Reconcile)
	assert.Equal(t, int64(-1), card.Reconcile.Delta)
	assert.Equal(t, []string{"cho"}, card.Reconcile.Adjusted)

	// WHEN: Fetching the run
	run := decode[RunDTO](t, do(t, srv, http.MethodGet, "/api/runs/"+res.RunID, ""))
	assert.Equal(t, res.Fingerprint, run.Fingerprint)
	assert.Equal(t, "2026-03-14T18:00:00Z", run.CreatedAt)
	assert.NotEmpty(t, run.Audit)

	// THEN: The CSV has sorted, quoted rows and a totals line
	rec := do(t, srv, http.MethodGet, "/api/runs/"+res.RunID+"/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	want := `"Worker","Cash","Card","Total"
"Ann","0.00","10.01","10.01"
"Bob","0.00","10.01","10.01"
"Cho","0.00","9.99","9.99"
"Totals","0.00","30.01","30.01"
`
	assert.Equal(t, want, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/runs/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/runs/nope/export.csv", "").Code)
}

// =============================================================================
// PERIODS
// =============================================================================

func TestPeriods_PlanAndCalculate(t *testing.T) {
	_, srv := setupTestServer(t, Options{})
	loadScenario(t, srv, "saturday")

	// WHEN: Planning
	rec := do(t, srv, http.MethodPost, "/api/periods/plan", "")

	// THEN: Eight presence segments become seven periods; 15:00-15:03 is absorbed
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decode[PlanDTO](t, rec)
	require.Len(t, plan.Periods, 7)
	require.Len(t, plan.Notes, 1)
	assert.Contains(t, plan.Notes[0], "15:00")
	assert.Equal(t, "P1", plan.Periods[0].ID)
	assert.Equal(t, []string{"ann"}, plan.Periods[0].Team)

	finer := decode[PlanDTO](t, do(t, srv, http.MethodPost, "/api/periods/plan", `{"min_segment": 1}`))
	assert.Len(t, finer.Periods, 8)

	// AND: One amount per period splits flat
	amounts := make([]string, len(plan.Periods))
	for i := range amounts {
		amounts[i] = `{"cash": "10.00", "card": "0"}`
	}
	rec = do(t, srv, http.MethodPost, "/api/periods/calculate",
		`{"amounts": [`+strings.Join(amounts, ",")+`], "reconcile": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[ResultDTO](t, rec)
	assert.Len(t, res.Periods, 7)
	assert.Len(t, res.Notes, 1)
	assertMoney(t, "70.00", totalsFor(t, res.Totals, "cash").Distributed)
	// Ann: 10 alone, then 5 + 5 in the two periods shared with Bob
	assertMoney(t, "20.00", allocationFor(t, res.Allocations, "ann").Cash)
	assertMoney(t, "25.00", allocationFor(t, res.Allocations, "bob").Cash)

	runs := decode[[]RunDTO](t, do(t, srv, http.MethodGet, "/api/runs", ""))
	require.Len(t, runs, 1)
	assert.Equal(t, tips.ModePeriods, runs[0].Mode)
}

func TestPeriods_AmountCountMismatch(t *testing.T) {
	_, srv := setupTestServer(t, Options{})
	loadScenario(t, srv, "saturday")

	rec := do(t, srv, http.MethodPost, "/api/periods/calculate", `{"amounts": [{"cash": "1"}]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "1 amounts for 7 periods")
}

// =============================================================================
// STATE
// =============================================================================

func TestState_PutAndGet(t *testing.T) {
	_, srv := setupTestServer(t, Options{})

	body := `{
		"workers": [{"id": "ann", "name": "Ann", "presence": [{"start": "09:00", "end": "17:00"}]}],
		"chunks": [{"id": "c1", "type": "cash", "amount": "100.00", "start": "09:00", "end": "17:00"}]
	}`
	rec := do(t, srv, http.MethodPut, "/api/state", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc := decode[factory.DocumentJSON](t, do(t, srv, http.MethodGet, "/api/state", ""))
	require.Len(t, doc.Workers, 1)
	require.Len(t, doc.Chunks, 1)
	assert.Equal(t, "ann", doc.Workers[0].ID)
	assertMoney(t, "100", doc.Chunks[0].Amount)
	assert.True(t, doc.Reconcile)

	// Duplicate worker ids never reach the store
	rec = do(t, srv, http.MethodPut, "/api/state",
		`{"workers": [{"id": "a"}, {"id": "a"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode[factory.DocumentJSON](t, do(t, srv, http.MethodGet, "/api/state", "")).Workers, 1)
}

func TestState_ImportLegacy(t *testing.T) {
	_, srv := setupTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/api/state/legacy", `{
		"baristas": [
			{"id": "k3j2", "name": "Ann", "shifts": [{"start": "09:00", "end": "13:00"}]},
			{"id": "p9x1", "name": "Bob", "shifts": [{"start": "11:00", "end": "17:00"}, {"start": "18:00", "end": "17:30"}]}
		],
		"tips": [{"id": "t1", "type": "cash", "amount": 120, "start": "09:00", "end": "17:00"}]
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[map[string]any](t, rec)
	assert.Equal(t, float64(2), summary["workers"])
	assert.Equal(t, float64(1), summary["chunks"])
	assert.Len(t, summary["skipped"], 1)

	res := decode[ResultDTO](t, do(t, srv, http.MethodPost, "/api/calculate", ""))
	assertMoney(t, "45.00", allocationFor(t, res.Allocations, "k3j2").Cash)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/state/legacy", `{"baristas": [`).Code)
}

func TestReset(t *testing.T) {
	_, srv := setupTestServer(t, Options{})
	loadScenario(t, srv, "single-worker")
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/calculate", "").Code)

	rec := do(t, srv, http.MethodPost, "/api/reset", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]factory.WorkerJSON](t, do(t, srv, http.MethodGet, "/api/workers", "")))
	assert.Empty(t, decode[[]RunDTO](t, do(t, srv, http.MethodGet, "/api/runs", "")))
	assert.Equal(t, "null\n", do(t, srv, http.MethodGet, "/api/scenarios/current", "").Body.String())
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRateLimit(t *testing.T) {
	_, srv := setupTestServer(t, Options{RateLimit: 1, Burst: 1})

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/workers", "").Code)
	rec := do(t, srv, http.MethodGet, "/api/workers", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Health checks are outside /api
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewPrometheus(reg, "")
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	h := NewHandler(store, tips.NewEngine(tips.WithMetrics(collector)), nil)
	srv := NewRouter(h, Options{Metrics: collector, Gatherer: reg})

	loadScenario(t, srv, "single-worker")
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/calculate", "").Code)

	rec := do(t, srv, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `tips_http_requests_total{code="200",method="POST"} 2`)
	assert.Contains(t, body, `tips_engine_runs_total{mode="chunks",outcome="ok"} 1`)
}

func TestPlanPeriods_MinSegmentKeepsEngineMetrics(t *testing.T) {
	// GIVEN: A handler whose engine reports to Prometheus
	reg := prometheus.NewRegistry()
	collector := metrics.NewPrometheus(reg, "")
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	h := NewHandler(store, tips.NewEngine(tips.WithMetrics(collector)), nil)
	srv := NewRouter(h, Options{Gatherer: reg})
	loadScenario(t, srv, "saturday")

	// WHEN: Planning with a one-off threshold
	rec := do(t, srv, http.MethodPost, "/api/periods/plan", `{"min_segment": 1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[PlanDTO](t, rec).Periods, 8)

	// THEN: The plan went through the configured engine
	body := do(t, srv, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, body, `tips_engine_runs_total{mode="plan",outcome="ok"} 1`)
}

// lostRunStore rejects every run as a duplicate but never lists one.
type lostRunStore struct {
	tips.Store
}

func (lostRunStore) AppendRun(context.Context, tips.Run) error { return generic.ErrDuplicateRun }

func TestCalculate_DuplicateWithoutStoredRunFails(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	h := NewHandler(lostRunStore{Store: store}, tips.NewEngine(), nil)
	srv := NewRouter(h, Options{})
	loadScenario(t, srv, "single-worker")

	rec := do(t, srv, http.MethodPost, "/api/calculate", "")

	// THEN: No result goes out with an empty run id
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "duplicate run")
}

func TestScenarios_ListAndLoad(t *testing.T) {
	_, srv := setupTestServer(t, Options{})

	list := decode[[]ScenarioDTO](t, do(t, srv, http.MethodGet, "/api/scenarios", ""))
	require.Len(t, list, len(scenarioDocuments))

	// Every scenario loads and calculates
	for _, s := range list {
		loadScenario(t, srv, s.ID)
		current := decode[ScenarioDTO](t, do(t, srv, http.MethodGet, "/api/scenarios/current", ""))
		assert.Equal(t, s.ID, current.ID)
		rec := do(t, srv, http.MethodPost, "/api/calculate", "")
		assert.Equal(t, http.StatusOK, rec.Code, "%s: %s", s.ID, rec.Body.String())
	}

	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
