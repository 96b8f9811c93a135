// Command caseenginectl exercises the case-processing pipeline end to
// end: it reads a small CSV-like dataset from stdin, builds a dictionary
// from its header, optionally drops cases whose weight is missing or not
// positive, sorts
// by a named key, and writes the result back out as CSV, reporting any
// diagnostics raised along the way to stderr.
//
// Input format: the first line is a comma-separated list of
// "name:width" column specs (width 0, or omitted, means numeric; a
// positive width means a string of that many bytes). Every following
// line supplies one value per column.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cprocess/caseengine/casereader"
	"github.com/cprocess/caseengine/config"
	"github.com/cprocess/caseengine/diag"
	"github.com/cprocess/caseengine/dictionary"
	"github.com/cprocess/caseengine/sortengine"
	"github.com/cprocess/caseengine/u8line"
	"github.com/cprocess/caseengine/value"
)

// stderrReporter is the diag.Reporter this command wires its workspace to:
// every note/warning/error raised while processing cases is printed to
// stderr as it happens, tagged with its severity.
type stderrReporter struct{}

func (stderrReporter) Report(sev diag.Severity, loc diag.Location, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if l := loc.String(); l != "" {
		fmt.Fprintf(os.Stderr, "caseenginectl: %s: %s: %s\n", sev, l, msg)
	} else {
		fmt.Fprintf(os.Stderr, "caseenginectl: %s: %s\n", sev, msg)
	}
}

func main() {
	sortKey := flag.String("sort", "", "name of the variable to sort by (ascending)")
	desc := flag.Bool("desc", false, "sort descending instead of ascending")
	weightVar := flag.String("weight", "", "name of a numeric variable to use as a case weight filter")
	mem := flag.Int("mem", config.DefaultMaxCasesInMemory, "max cases held in memory before a sort spills to disk")
	merge := flag.Int("merge", config.DefaultMaxMergeOrder, "max number of runs merged in one external-sort pass")
	flag.Parse()

	if err := run(os.Stdin, os.Stdout, *sortKey, *desc, *weightVar, *mem, *merge); err != nil {
		fmt.Fprintln(os.Stderr, "caseenginectl:", err)
		os.Exit(1)
	}
}

func run(in *os.File, out *os.File, sortKey string, desc bool, weightVar string, mem, merge int) error {
	vars, rows, err := readCSV(in)
	if err != nil {
		return err
	}
	dict := dictionary.New(vars)

	cases, err := buildCases(dict, rows)
	if err != nil {
		return err
	}

	ws := config.New(config.WithMaxCasesInMemory(mem), config.WithMergeOrder(merge), config.WithReporter(stderrReporter{}))

	var r casereader.Reader = casereader.NewSliceReader(cases)

	if weightVar != "" {
		v, ok := dict.Lookup(weightVar)
		if !ok {
			return fmt.Errorf("unknown weight variable %q", weightVar)
		}
		excluded := casereader.NewNullSink()
		r = casereader.NewWeightFilter(r, v, dictionary.NeverMissing{}, excluded, func(c value.Case) {
			ws.Reporter.Report(diag.Warning, diag.Location{}, "case excluded: weight %q missing or non-positive", v.Name)
			value.Destroy(&c)
		})
	}

	if sortKey != "" {
		v, ok := dict.Lookup(sortKey)
		if !ok {
			return fmt.Errorf("unknown sort variable %q", sortKey)
		}
		sorted, err := sortengine.Sort(ws, dict.SlotCount(), r, []sortengine.Key{
			{SlotIndex: v.SlotIndex, Width: v.Width, Descending: desc},
		})
		if err != nil {
			return fmt.Errorf("sort: %w", err)
		}
		r = sorted
	}

	defer r.Destroy()
	return writeCSV(out, dict, r)
}

func readCSV(f *os.File) ([]dictionary.Variable, [][]string, error) {
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("empty input: expected a header line")
	}
	header := strings.Split(scanner.Text(), ",")
	vars := make([]dictionary.Variable, len(header))
	for i, col := range header {
		name, width := col, 0
		if idx := strings.LastIndex(col, ":"); idx >= 0 {
			name = col[:idx]
			w, err := strconv.Atoi(col[idx+1:])
			if err != nil {
				return nil, nil, fmt.Errorf("column %q: bad width: %w", col, err)
			}
			width = w
		}
		vars[i] = dictionary.Variable{Name: strings.TrimSpace(name), Width: width}
	}

	var rows [][]string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, ","))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return vars, rows, nil
}

func buildCases(dict dictionary.Dictionary, rows [][]string) ([]value.Case, error) {
	cases := make([]value.Case, 0, len(rows))
	for _, row := range rows {
		if len(row) != dict.VariableCount() {
			for i := range cases {
				value.Destroy(&cases[i])
			}
			return nil, fmt.Errorf("row has %d fields, want %d", len(row), dict.VariableCount())
		}
		c := value.NewCase(dict.SlotCount())
		for i := 0; i < dict.VariableCount(); i++ {
			v := dict.VariableAt(i)
			field := strings.TrimSpace(row[i])
			if v.IsNumeric() {
				if field == "" || field == "." {
					c.SetNumAt(v.SlotIndex, value.SysMiss)
					continue
				}
				n, err := strconv.ParseFloat(field, 64)
				if err != nil {
					value.Destroy(&c)
					for i := range cases {
						value.Destroy(&cases[i])
					}
					return nil, fmt.Errorf("variable %s: %w", v.Name, err)
				}
				c.SetNumAt(v.SlotIndex, n)
			} else {
				c.SetStrAt(v.SlotIndex, v.Width, []byte(field))
			}
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func writeCSV(out *os.File, dict dictionary.Dictionary, r casereader.Reader) error {
	w := bufio.NewWriter(out)
	defer w.Flush()

	names := make([]string, dict.VariableCount())
	for i := range names {
		names[i] = dict.VariableAt(i).Name
	}
	fmt.Fprintln(w, strings.Join(names, ","))

	var line u8line.Line
	for {
		c, ok, err := r.Read()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		fields := make([]string, dict.VariableCount())
		for i := 0; i < dict.VariableCount(); i++ {
			v := dict.VariableAt(i)
			if v.IsNumeric() {
				n := c.NumAt(v.SlotIndex)
				if value.IsSysmis(n) {
					fields[i] = "."
				} else {
					fields[i] = strconv.FormatFloat(n, 'g', -1, 64)
				}
			} else {
				fields[i] = strings.TrimRight(string(c.StrAt(v.SlotIndex, v.Width)), " ")
			}
		}
		value.Destroy(&c)

		line.Clear()
		line.Append(strings.Join(fields, ","))
		fmt.Fprintln(w, line.String())
	}
	if r.Taint().IsTainted() {
		return fmt.Errorf("pipeline tainted: one or more stages failed")
	}
	return nil
}
