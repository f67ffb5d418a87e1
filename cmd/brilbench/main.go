// Command brilbench aggregates brench-style CSV benchmark results —
// one row per (benchmark, optimization run) pair with either an
// instruction count or a failure marker — and reports the instruction
// count reduction each non-baseline run achieves relative to a named
// baseline run.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/briltools/brilopt/internal/store"
)

// result is one row of a brench CSV: a benchmark run under a named
// optimization pipeline, either succeeding with an instruction count or
// failing with one of a fixed set of outcome markers.
type result struct {
	benchmark string
	run       string
	outcome   string // "pass", or one of timeout|missing|incorrect
	instrs    int
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	csvPaths := flag.String("csv", "", "Comma-separated brench CSV result files (required)")
	baseline := flag.String("baseline", "baseline", "Name of the run to compare every other run against")
	record := flag.String("record", "", "Optional SQLite path to record the aggregated report via internal/store")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: brilbench --csv a.csv[,b.csv,...] [--baseline name] [--record path.db]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *csvPaths == "" {
		flag.Usage()
		return fmt.Errorf("--csv is required")
	}
	paths := splitNonEmpty(*csvPaths, ',')

	results, err := readAll(paths)
	if err != nil {
		return err
	}

	report := aggregate(results, *baseline)
	printReport(report, *baseline)

	if *record != "" {
		if err := recordReport(*record, report); err != nil {
			return fmt.Errorf("record report: %w", err)
		}
	}
	return nil
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if s[start:i] != "" {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if s[start:] != "" {
		out = append(out, s[start:])
	}
	return out
}

// readAll parses every CSV file concurrently, bounded by GOMAXPROCS —
// aggregating independent result files has no ordering dependency, so
// there is nothing to serialize.
func readAll(paths []string) ([]result, error) {
	perFile := make([][]result, len(paths))
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			rows, err := readCSV(p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			perFile[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var all []result
	for _, rows := range perFile {
		all = append(all, rows...)
	}
	return all, nil
}

// readCSV parses one brench-format CSV: header `benchmark,run,result`,
// where `result` is either an instruction count or one of
// timeout|missing|incorrect.
func readCSV(path string) ([]result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	records = records[1:] // drop header

	out := make([]result, 0, len(records))
	for _, rec := range records {
		if len(rec) < 3 {
			continue
		}
		res := result{benchmark: rec[0], run: rec[1]}
		switch rec[2] {
		case "timeout", "missing", "incorrect":
			res.outcome = rec[2]
		default:
			var n int
			if _, err := fmt.Sscanf(rec[2], "%d", &n); err != nil {
				res.outcome = "incorrect"
			} else {
				res.outcome = "pass"
				res.instrs = n
			}
		}
		out = append(out, res)
	}
	return out, nil
}

// benchReport is one benchmark's comparison of every non-baseline run
// against the baseline run's instruction count.
type benchReport struct {
	benchmark       string
	baselineInstrs  int
	baselineOK      bool
	runs            map[string]result
}

func aggregate(results []result, baseline string) []benchReport {
	byBench := map[string][]result{}
	for _, r := range results {
		byBench[r.benchmark] = append(byBench[r.benchmark], r)
	}

	names := make([]string, 0, len(byBench))
	for name := range byBench {
		names = append(names, name)
	}
	sort.Strings(names)

	reports := make([]benchReport, 0, len(names))
	for _, name := range names {
		rep := benchReport{benchmark: name, runs: map[string]result{}}
		for _, r := range byBench[name] {
			rep.runs[r.run] = r
		}
		if base, ok := rep.runs[baseline]; ok && base.outcome == "pass" {
			rep.baselineInstrs = base.instrs
			rep.baselineOK = true
		}
		reports = append(reports, rep)
	}
	return reports
}

func printReport(reports []benchReport, baseline string) {
	for _, rep := range reports {
		runNames := make([]string, 0, len(rep.runs))
		for name := range rep.runs {
			if name == baseline {
				continue
			}
			runNames = append(runNames, name)
		}
		sort.Strings(runNames)

		for _, name := range runNames {
			r := rep.runs[name]
			if r.outcome != "pass" {
				fmt.Printf("%s/%s: %s\n", rep.benchmark, name, r.outcome)
				continue
			}
			if !rep.baselineOK {
				fmt.Printf("%s/%s: %s instructions (no passing baseline)\n", rep.benchmark, name, humanize.Comma(int64(r.instrs)))
				continue
			}
			reduction := float64(rep.baselineInstrs-r.instrs) / float64(rep.baselineInstrs) * 100
			fmt.Printf("%s/%s: %s -> %s instructions (%.1f%% reduction)\n",
				rep.benchmark, name, humanize.Comma(int64(rep.baselineInstrs)), humanize.Comma(int64(r.instrs)), reduction)
		}
	}
}

func recordReport(path string, reports []benchReport) error {
	start := time.Now()
	w, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	var rows []store.Benchmark
	for _, rep := range reports {
		for name, r := range rep.runs {
			rows = append(rows, store.Benchmark{
				ID:              store.NewBenchmarkID(),
				Benchmark:       rep.benchmark,
				Run:             name,
				Result:          r.outcome,
				BaselineInstrs:  rep.baselineInstrs,
				OptimizedInstrs: r.instrs,
			})
		}
	}
	if err := w.WriteBenchmarks(rows); err != nil {
		return err
	}
	fmt.Printf("recorded %d benchmark rows, write started %s\n", len(rows), humanize.RelTime(start, time.Now(), "ago", "from now"))
	return nil
}
