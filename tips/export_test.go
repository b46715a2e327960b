package tips_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robbie-likescodes/Tip-Calculator/tips"
)

func TestWriteCSV_SortedQuotedWithTotals(t *testing.T) {
	// GIVEN: Reconciled allocations in input order
	allocs := []tips.Allocation{
		{WorkerID: "z", Name: "Zoe", Cash: d("10.01"), Card: d("5"), Total: d("15.01")},
		{WorkerID: "a", Name: `Al "Ace"`, Cash: d("9.99"), Card: d("0"), Total: d("9.99")},
		{WorkerID: "b", Cash: d("0"), Card: d("2.5"), Total: d("2.5")},
	}

	// WHEN: Exporting
	var buf bytes.Buffer
	require.NoError(t, tips.WriteCSV(&buf, allocs))

	// THEN: Rows are sorted by name, every cell quoted, totals last
	want := `"Worker","Cash","Card","Total"
"Al ""Ace""","9.99","0.00","9.99"
"Zoe","10.01","5.00","15.01"
"b","0.00","2.50","2.50"
"Totals","20.00","7.50","27.50"
`
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tips.WriteCSV(&buf, nil))
	assert.Equal(t, "\"Worker\",\"Cash\",\"Card\",\"Total\"\n\"Totals\",\"0.00\",\"0.00\",\"0.00\"\n", buf.String())
}
