package factory

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/robbie-likescodes/Tip-Calculator/generic"
	"github.com/robbie-likescodes/Tip-Calculator/tips"
)

// =============================================================================
// LEGACY IMPORT - Saved state of the browser tip splitter
// =============================================================================

// LegacyImport is the result of reading a saved browser snapshot:
//
//	{"baristas": [{"id", "name", "shifts": [{"start", "end"}]}],
//	 "tips":     [{"id", "type": "cash"|"card", "amount": 12.5, "start", "end"}]}
//
// The browser tool ignored unusable shifts and chunks rather than failing;
// they are dropped here too and listed in Skipped.
type LegacyImport struct {
	State   tips.State
	Skipped []string
}

// ImportLegacy reads a saved snapshot. Missing arrays are treated as empty.
func (f *InputFactory) ImportLegacy(data []byte) (*LegacyImport, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("legacy snapshot: invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	out := &LegacyImport{}

	doc.Get("baristas").ForEach(func(_, b gjson.Result) bool {
		w := tips.Worker{
			ID:   tips.WorkerID(b.Get("id").String()),
			Name: b.Get("name").String(),
		}
		if w.ID == "" {
			w.ID = tips.WorkerID(f.NewID())
		}
		if w.Name == "" {
			w.Name = string(w.ID)
		}
		b.Get("shifts").ForEach(func(_, sh gjson.Result) bool {
			sp, err := generic.NewSpan(sh.Get("start").String(), sh.Get("end").String())
			if err != nil || !sp.Valid() {
				out.Skipped = append(out.Skipped, fmt.Sprintf("shift %s→%s of %s",
					sh.Get("start").String(), sh.Get("end").String(), w.Name))
				return true
			}
			w.Presence = append(w.Presence, sp)
			return true
		})
		out.State.Workers = append(out.State.Workers, w)
		return true
	})

	doc.Get("tips").ForEach(func(_, t gjson.Result) bool {
		c, err := f.legacyChunk(t)
		if err != nil {
			out.Skipped = append(out.Skipped, err.Error())
			return true
		}
		out.State.Chunks = append(out.State.Chunks, c)
		return true
	})

	return out, nil
}

func (f *InputFactory) legacyChunk(t gjson.Result) (tips.Chunk, error) {
	c := tips.Chunk{ID: t.Get("id").String()}
	if c.ID == "" {
		c.ID = f.NewID()
	}
	typ, err := tips.ParsePayoutType(t.Get("type").String())
	if err != nil {
		return tips.Chunk{}, fmt.Errorf("chunk %s: %w", c.ID, err)
	}
	c.Type = typ

	// Numbers keep their raw text so no float rounding creeps in
	amount := t.Get("amount")
	raw := amount.Raw
	if amount.Type == gjson.String {
		raw = amount.Str
	}
	if c.Amount, err = decimal.NewFromString(raw); err != nil {
		return tips.Chunk{}, fmt.Errorf("chunk %s: bad amount %s", c.ID, amount.Raw)
	}

	c.Span, err = generic.NewSpan(t.Get("start").String(), t.Get("end").String())
	if err != nil || !c.Span.Valid() {
		return tips.Chunk{}, fmt.Errorf("chunk %s: bad span %s→%s", c.ID, t.Get("start").String(), t.Get("end").String())
	}
	return c, nil
}
