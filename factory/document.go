/*
Package factory converts JSON documents into engine input.

PURPOSE:
  Callers (the HTTP API, the CLI) describe workers and payouts in JSON with
  "HH:MM" clock strings and decimal amounts. The factory parses clocks,
  normalises payout types, fills in missing ids and produces tips types the
  engine can consume. It also imports the browser tool's saved state.

JSON SCHEMA:
  {
    "workers": [
      {"id": "ann", "name": "Ann", "presence": [{"start": "09:00", "end": "13:00"}]}
    ],
    "chunks": [
      {"id": "c1", "type": "cash", "amount": "120.00", "start": "09:00", "end": "17:00"}
    ],
    "periods": [
      {"id": "p1", "start": "09:00", "end": "11:00", "team": ["ann"], "cash": "30", "card": "0"}
    ],
    "period_amounts": [{"cash": "30.00", "card": "12.50"}],
    "reconcile": true,
    "min_segment": 5
  }

  Amounts may be JSON strings or numbers; strings are preferred because
  they never pass through float64. Payout types accept cash/card or A/B.

KEY FEATURES:
  - Validates clocks and payout types (spans are validated by the engine)
  - Generates uuid ids for records without one
  - Round-trips tips.State through ToJSON
  - ImportLegacy reads {baristas, tips} snapshots with gjson

USAGE:
  f := factory.NewInputFactory()
  doc, err := f.ParseDocument(data)
  res, err := tips.NewEngine().Calculate(doc.Input())

SEE ALSO:
  - tips/types.go: Worker and payout types
  - factory/legacy.go: Saved-state import
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robbie-likescodes/Tip-Calculator/generic"
	"github.com/robbie-likescodes/Tip-Calculator/tips"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SpanJSON is a clock interval.
type SpanJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WorkerJSON is the JSON representation of a worker.
type WorkerJSON struct {
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name"`
	Presence []SpanJSON `json:"presence"`
}

// ChunkJSON is the JSON representation of a chunk payout.
type ChunkJSON struct {
	ID     string          `json:"id,omitempty"`
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Start  string          `json:"start"`
	End    string          `json:"end"`
}

// PeriodJSON is the JSON representation of a period payout.
type PeriodJSON struct {
	ID    string          `json:"id,omitempty"`
	Start string          `json:"start"`
	End   string          `json:"end"`
	Team  []string        `json:"team"`
	Cash  decimal.Decimal `json:"cash"`
	Card  decimal.Decimal `json:"card"`
}

// PeriodAmountJSON is the money collected during one planned period.
type PeriodAmountJSON struct {
	Cash decimal.Decimal `json:"cash"`
	Card decimal.Decimal `json:"card"`
}

// DocumentJSON is a complete calculation request.
type DocumentJSON struct {
	Workers       []WorkerJSON       `json:"workers"`
	Chunks        []ChunkJSON        `json:"chunks,omitempty"`
	Periods       []PeriodJSON       `json:"periods,omitempty"`
	PeriodAmounts []PeriodAmountJSON `json:"period_amounts,omitempty"`
	Reconcile     bool               `json:"reconcile,omitempty"`
	MinSegment    int                `json:"min_segment,omitempty"`
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a parsed DocumentJSON.
type Document struct {
	State         tips.State
	Periods       []tips.PeriodPayout
	PeriodAmounts []tips.PeriodAmount
	Reconcile     bool
	MinSegment    int
}

// Input returns chunks and explicit periods as engine input.
func (d *Document) Input() tips.Input {
	in := d.State.Input(d.Reconcile)
	for _, p := range d.Periods {
		in.Payouts = append(in.Payouts, p)
	}
	return in
}

// PeriodInput returns the presence-derived period request.
func (d *Document) PeriodInput() tips.PeriodInput {
	return tips.PeriodInput{
		Workers:    d.State.Workers,
		Amounts:    d.PeriodAmounts,
		MinSegment: d.MinSegment,
		Reconcile:  d.Reconcile,
	}
}

// =============================================================================
// FACTORY
// =============================================================================

// InputFactory builds engine input from JSON.
type InputFactory struct {
	// NewID generates ids for records that arrive without one.
	NewID func() string
}

func NewInputFactory() *InputFactory {
	return &InputFactory{NewID: uuid.NewString}
}

// ParseDocument parses a JSON document.
func (f *InputFactory) ParseDocument(data []byte) (*Document, error) {
	var dj DocumentJSON
	if err := json.Unmarshal(data, &dj); err != nil {
		return nil, fmt.Errorf("failed to parse document JSON: %w", err)
	}
	return f.FromJSON(dj)
}

// FromJSON converts a DocumentJSON.
func (f *InputFactory) FromJSON(dj DocumentJSON) (*Document, error) {
	doc := &Document{Reconcile: dj.Reconcile, MinSegment: dj.MinSegment}

	for _, wj := range dj.Workers {
		w, err := f.Worker(wj)
		if err != nil {
			return nil, err
		}
		doc.State.Workers = append(doc.State.Workers, w)
	}
	for _, cj := range dj.Chunks {
		c, err := f.Chunk(cj)
		if err != nil {
			return nil, err
		}
		doc.State.Chunks = append(doc.State.Chunks, c)
	}
	for _, pj := range dj.Periods {
		p, err := f.Period(pj)
		if err != nil {
			return nil, err
		}
		doc.Periods = append(doc.Periods, p)
	}
	for _, aj := range dj.PeriodAmounts {
		doc.PeriodAmounts = append(doc.PeriodAmounts, tips.PeriodAmount{Cash: aj.Cash, Card: aj.Card})
	}
	return doc, nil
}

// Worker converts one worker, assigning an id when missing.
func (f *InputFactory) Worker(wj WorkerJSON) (tips.Worker, error) {
	w := tips.Worker{ID: tips.WorkerID(wj.ID), Name: wj.Name}
	if w.ID == "" {
		w.ID = tips.WorkerID(f.NewID())
	}
	if w.Name == "" {
		w.Name = string(w.ID)
	}
	for _, sj := range wj.Presence {
		sp, err := parseSpan(sj)
		if err != nil {
			return tips.Worker{}, fmt.Errorf("worker %q: %w", w.Name, err)
		}
		w.Presence = append(w.Presence, sp)
	}
	return w, nil
}

// Chunk converts one chunk, normalising its payout type.
func (f *InputFactory) Chunk(cj ChunkJSON) (tips.Chunk, error) {
	c := tips.Chunk{ID: cj.ID, Amount: cj.Amount}
	if c.ID == "" {
		c.ID = f.NewID()
	}
	t, err := tips.ParsePayoutType(cj.Type)
	if err != nil {
		return tips.Chunk{}, fmt.Errorf("chunk %s: %w", c.ID, err)
	}
	c.Type = t
	if c.Span, err = parseSpan(SpanJSON{Start: cj.Start, End: cj.End}); err != nil {
		return tips.Chunk{}, fmt.Errorf("chunk %s: %w", c.ID, err)
	}
	return c, nil
}

// Period converts one explicit period payout.
func (f *InputFactory) Period(pj PeriodJSON) (tips.PeriodPayout, error) {
	p := tips.PeriodPayout{ID: pj.ID, Cash: pj.Cash, Card: pj.Card}
	if p.ID == "" {
		p.ID = f.NewID()
	}
	var err error
	if p.Span, err = parseSpan(SpanJSON{Start: pj.Start, End: pj.End}); err != nil {
		return tips.PeriodPayout{}, fmt.Errorf("period %s: %w", p.ID, err)
	}
	for _, id := range pj.Team {
		p.Team = append(p.Team, tips.WorkerID(id))
	}
	return p, nil
}

// ToJSON renders state in the document schema.
func (f *InputFactory) ToJSON(s tips.State) DocumentJSON {
	dj := DocumentJSON{Workers: make([]WorkerJSON, 0, len(s.Workers))}
	for _, w := range s.Workers {
		wj := WorkerJSON{ID: string(w.ID), Name: w.Name, Presence: make([]SpanJSON, 0, len(w.Presence))}
		for _, sp := range w.Presence {
			wj.Presence = append(wj.Presence, SpanJSON{Start: sp.Start.Clock(), End: sp.End.Clock()})
		}
		dj.Workers = append(dj.Workers, wj)
	}
	for _, c := range s.Chunks {
		dj.Chunks = append(dj.Chunks, ChunkJSON{
			ID:     c.ID,
			Type:   string(c.Type),
			Amount: c.Amount,
			Start:  c.Span.Start.Clock(),
			End:    c.Span.End.Clock(),
		})
	}
	return dj
}

func parseSpan(sj SpanJSON) (generic.Span, error) {
	return generic.NewSpan(sj.Start, sj.End)
}
