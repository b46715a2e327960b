package tips

import (
	"bufio"
	"io"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// csvHeader is the export column layout.
var csvHeader = []string{"Worker", "Cash", "Card", "Total"}

// WriteCSV writes allocations as CSV sorted by worker name, followed by a
// Totals row. Every cell is quoted and amounts carry two decimals.
func WriteCSV(w io.Writer, allocs []Allocation) error {
	rows := slices.Clone(allocs)
	slices.SortStableFunc(rows, func(a, b Allocation) int {
		return strings.Compare(displayName(a), displayName(b))
	})

	bw := bufio.NewWriter(w)
	writeRow := func(cells ...string) {
		for i, c := range cells {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteByte('"')
			bw.WriteString(strings.ReplaceAll(c, `"`, `""`))
			bw.WriteByte('"')
		}
		bw.WriteByte('\n')
	}

	writeRow(csvHeader...)
	var cash, card, total decimal.Decimal
	for _, a := range rows {
		writeRow(displayName(a), a.Cash.StringFixed(2), a.Card.StringFixed(2), a.Total.StringFixed(2))
		cash = cash.Add(a.Cash)
		card = card.Add(a.Card)
		total = total.Add(a.Total)
	}
	writeRow("Totals", cash.StringFixed(2), card.StringFixed(2), total.StringFixed(2))
	return bw.Flush()
}

func displayName(a Allocation) string {
	if a.Name != "" {
		return a.Name
	}
	return string(a.WorkerID)
}
