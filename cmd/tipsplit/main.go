// Command tipsplit splits tips from a JSON document without a server.
//
//	tipsplit -input day.json -rounding -format table
//	tipsplit -input day.json -periods -min-segment 10 -format audit
//	cat day.json | tipsplit -format csv > day.csv
//
// The document schema is the one factory.ParseDocument reads. Coverage
// warnings go to stderr and do not change the exit code.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/robbie-likescodes/Tip-Calculator/api"
	"github.com/robbie-likescodes/Tip-Calculator/config"
	"github.com/robbie-likescodes/Tip-Calculator/factory"
	"github.com/robbie-likescodes/Tip-Calculator/generic"
	"github.com/robbie-likescodes/Tip-Calculator/logging"
	"github.com/robbie-likescodes/Tip-Calculator/tips"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitInvalidInput = 1
	ExitError        = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tipsplit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("input", "-", "JSON document path, - for stdin")
	rounding := fs.Bool("rounding", false, "reconcile to whole cents (overrides the document)")
	format := fs.String("format", "table", "output format: table, csv, audit, json")
	minSegment := fs.Int("min-segment", generic.DefaultMinSegment, "shortest period in minutes when planning")
	periods := fs.Bool("periods", false, "split period_amounts over presence-derived periods")
	verbose := fs.Bool("verbose", false, "log engine decisions to stderr")
	if err := fs.Parse(args); err != nil {
		return ExitError
	}

	switch *format {
	case "table", "csv", "audit", "json":
	default:
		fmt.Fprintf(stderr, "error: -format must be table, csv, audit or json, got %q\n", *format)
		return ExitError
	}

	data, err := readInput(*input, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
	doc, err := factory.NewInputFactory().ParseDocument(data)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitInvalidInput
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rounding":
			doc.Reconcile = *rounding
		case "min-segment":
			doc.MinSegment = *minSegment
		}
	})

	level := "error"
	if *verbose {
		level = "debug"
	}
	engine := tips.NewEngine(
		tips.WithMinSegment(*minSegment),
		tips.WithLogger(logging.New(config.LoggingConfig{Level: level}, stderr)),
	)

	var res *tips.Result
	if *periods {
		res, err = engine.CalculatePeriods(doc.PeriodInput())
	} else {
		res, err = engine.Calculate(doc.Input())
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if generic.IsClientError(err) {
			return ExitInvalidInput
		}
		return ExitError
	}

	if err := printResult(stdout, *format, res); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(stderr, "warning: %v\n", w)
	}
	return ExitSuccess
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func printResult(w io.Writer, format string, res *tips.Result) error {
	switch format {
	case "csv":
		return tips.WriteCSV(w, res.Allocations)
	case "audit":
		for _, line := range res.AuditLines() {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(api.NewResultDTO(res, ""))
	}
	return printTable(w, res)
}

// printTable lists workers in input order with formatted money, then totals.
func printTable(w io.Writer, res *tips.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "WORKER\tCASH\tCARD\tTOTAL\t")
	for _, a := range res.Allocations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", res.Name(a.WorkerID),
			generic.FormatMoney(a.Cash), generic.FormatMoney(a.Card), generic.FormatMoney(a.Total))
	}
	cash, card := res.TotalsFor(tips.Cash), res.TotalsFor(tips.Card)
	fmt.Fprintf(tw, "TOTAL\t%s\t%s\t%s\t\n", generic.FormatMoney(cash.Distributed),
		generic.FormatMoney(card.Distributed), generic.FormatMoney(cash.Distributed.Add(card.Distributed)))
	if cash.Unallocated.IsPositive() || card.Unallocated.IsPositive() {
		fmt.Fprintf(tw, "UNALLOCATED\t%s\t%s\t%s\t\n", generic.FormatMoney(cash.Unallocated),
			generic.FormatMoney(card.Unallocated), generic.FormatMoney(cash.Unallocated.Add(card.Unallocated)))
	}
	return tw.Flush()
}
