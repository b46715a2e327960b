package tips

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// Fingerprint hashes the canonical form of an input. Two inputs with the same
// fingerprint produce the same result; worker and payout order is part of the
// identity because it breaks reconciliation ties. Free-text fields are
// quoted so no name can imitate a field separator.
func Fingerprint(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "reconcile=%t\n", in.Reconcile)
	for _, w := range in.Workers {
		fmt.Fprintf(&b, "w|%q|%q", w.ID, w.Name)
		for _, s := range w.Presence {
			fmt.Fprintf(&b, "|%d-%d", s.Start, s.End)
		}
		b.WriteByte('\n')
	}
	for _, p := range in.Payouts {
		switch p := p.(type) {
		case Chunk:
			fmt.Fprintf(&b, "c|%q|%s|%s|%d-%d\n", p.ID, p.Type, p.Amount.String(), p.Span.Start, p.Span.End)
		case PeriodPayout:
			fmt.Fprintf(&b, "p|%q|%d-%d|%s|%s", p.ID, p.Span.Start, p.Span.End, p.Cash.String(), p.Card.String())
			for _, id := range p.Members() {
				fmt.Fprintf(&b, "|%q", id)
			}
			b.WriteByte('\n')
		}
	}
	return fmt.Sprintf("%016x", xxh3.HashString(b.String()))
}
