package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robbie-likescodes/Tip-Calculator/api"
)

const overlappingDay = `{
	"workers": [
		{"id": "ann", "name": "Ann", "presence": [{"start": "09:00", "end": "13:00"}]},
		{"id": "bob", "name": "Bob", "presence": [{"start": "11:00", "end": "17:00"}]}
	],
	"chunks": [{"id": "c1", "type": "cash", "amount": "120.00", "start": "09:00", "end": "17:00"}]
}`

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_TableFromStdin(t *testing.T) {
	code, out, errOut := runCLI(t, overlappingDay, "-rounding")

	require.Equal(t, ExitSuccess, code, errOut)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "Ann")
	assert.Contains(t, lines[1], "45.00")
	assert.Contains(t, lines[2], "75.00")
	assert.Contains(t, lines[3], "120.00")
	assert.Empty(t, errOut)
}

func TestRun_CSVFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day.json")
	require.NoError(t, os.WriteFile(path, []byte(overlappingDay), 0o600))

	code, out, _ := runCLI(t, "", "-input", path, "-format", "csv", "-rounding")

	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, `"Worker","Cash","Card","Total"
"Ann","45.00","0.00","45.00"
"Bob","75.00","0.00","75.00"
"Totals","120.00","0.00","120.00"
`, out)
}

func TestRun_AuditAndJSON(t *testing.T) {
	code, out, _ := runCLI(t, overlappingDay, "-format", "audit")
	require.Equal(t, ExitSuccess, code)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
	assert.True(t, strings.HasPrefix(out, "Chunk CASH $120.00"), out)

	code, out, _ = runCLI(t, overlappingDay, "-format", "json")
	require.Equal(t, ExitSuccess, code)
	var res api.ResultDTO
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Reconciled)
	require.Len(t, res.Allocations, 2)
	assert.True(t, decimal.NewFromInt(45).Equal(res.Allocations[0].Cash), res.Allocations[0].Cash.String())
}

func TestRun_PeriodsWithMinSegment(t *testing.T) {
	doc := `{
		"workers": [
			{"id": "a", "presence": [{"start": "09:00", "end": "13:00"}]},
			{"id": "b", "presence": [{"start": "11:00", "end": "17:00"}]},
			{"id": "c", "presence": [{"start": "13:03", "end": "17:00"}]}
		],
		"period_amounts": [{"cash": "30"}, {"cash": "20", "card": "10"}, {"cash": "40"}],
		"reconcile": true
	}`

	code, out, errOut := runCLI(t, doc, "-periods", "-format", "audit")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, "Smoothing: merged")

	// A finer threshold plans four periods, so three amounts no longer fit
	code, _, errOut = runCLI(t, doc, "-periods", "-min-segment", "1")
	assert.Equal(t, ExitInvalidInput, code)
	assert.Contains(t, errOut, "3 amounts for 4 periods")
}

func TestRun_CoverageWarningGoesToStderr(t *testing.T) {
	doc := `{
		"workers": [{"id": "ann", "presence": [{"start": "09:00", "end": "12:00"}]}],
		"chunks": [{"id": "c1", "type": "cash", "amount": "80", "start": "09:00", "end": "17:00"}]
	}`

	code, out, errOut := runCLI(t, doc)

	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "UNALLOCATED")
	assert.Contains(t, errOut, "warning: no worker coverage (partial)")
}

func TestRun_Errors(t *testing.T) {
	code, _, errOut := runCLI(t, overlappingDay, "-format", "xml")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "-format")

	code, _, _ = runCLI(t, `{"workers": [`)
	assert.Equal(t, ExitInvalidInput, code)

	code, _, errOut = runCLI(t, `{"chunks": [{"id": "late", "type": "cash", "amount": "1", "start": "18:00", "end": "17:00"}]}`)
	assert.Equal(t, ExitInvalidInput, code)
	assert.Contains(t, errOut, "chunk late")

	code, _, _ = runCLI(t, "", "-input", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, ExitError, code)
}
