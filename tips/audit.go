package tips

import (
	"fmt"
	"strings"

	"github.com/robbie-likescodes/Tip-Calculator/generic"
)

// AuditLines renders the trace as one human-readable line per segment,
// followed by one line per smoothing adjustment.
func (r *Result) AuditLines() []string {
	lines := make([]string, 0, len(r.Trace)+len(r.Notes))
	for _, e := range r.Trace {
		lines = append(lines, r.auditLine(e))
	}
	for _, n := range r.Notes {
		lines = append(lines, "Smoothing: "+n.String())
	}
	return lines
}

func (r *Result) auditLine(e TraceEntry) string {
	names := make([]string, len(e.Workers))
	for i, id := range e.Workers {
		names[i] = r.Name(id)
	}

	switch e.Kind {
	case KindPeriod:
		head := fmt.Sprintf("Period %s %s $%s [%s]",
			e.PayoutID, e.Type.Label(), generic.FormatMoney(e.PayoutAmount), e.PayoutSpan)
		if len(e.Workers) == 0 {
			return head + ": no team → unallocated"
		}
		return fmt.Sprintf("%s: %d on team (%s) → $%s each",
			head, len(e.Workers), strings.Join(names, ", "), generic.FormatMoney(e.PerHead))
	default:
		head := fmt.Sprintf("Chunk %s $%s [%s→%s] segment %s (%d min)",
			e.Type.Label(), generic.FormatMoney(e.PayoutAmount),
			e.PayoutSpan.Start, e.PayoutSpan.End, e.Segment, e.Minutes())
		if len(e.Workers) == 0 {
			return fmt.Sprintf("%s: 0 active → $%s unallocated", head, generic.FormatMoney(e.SegmentAmount))
		}
		return fmt.Sprintf("%s: %d active (%s) → $%s split → $%s each",
			head, len(e.Workers), strings.Join(names, ", "),
			generic.FormatMoney(e.SegmentAmount), generic.FormatMoney(e.PerHead))
	}
}
