// Command brilopt reads a JSON-encoded IR program from stdin, applies
// the requested optimization passes, and writes the transformed
// program back out as JSON on stdout.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/briltools/brilopt/internal/diagnostics"
	"github.com/briltools/brilopt/internal/ir"
	"github.com/briltools/brilopt/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the real entry point; it returns any error for main to report
// and turn into a non-zero exit.
func run() error {
	debugFlag := flag.Bool("debug", false, "Print verbose progress to stderr")
	toSSA := flag.Bool("to-ssa", false, "Convert each function to SSA form")
	fromSSA := flag.Bool("from-ssa", false, "Convert each function out of SSA form")
	roundTrip := flag.Bool("round-trip", false, "Convert to SSA and immediately back out, as a correctness check")
	checkSSA := flag.Bool("check-ssa", false, "After --to-ssa, verify the result is valid SSA and report if not")
	lvnFlag := flag.Bool("local_value_numbering", false, "Run local value numbering with constant folding")
	licmFlag := flag.Bool("licm", false, "Hoist loop-invariant computations to their loop's preheader")
	deadStore := flag.Bool("dead-store-elimination", false, "Remove stores with no intervening load before being overwritten")
	livenessFlag := flag.Bool("liveness", false, "Run liveness-driven local dead-code elimination")
	global := flag.Bool("global", false, "Run global dead-code elimination to a fixed point")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: brilopt [flags] < program.json > optimized.json\n\n")
		fmt.Fprintf(os.Stderr, "Reads a JSON IR program from stdin and writes the transformed program to stdout.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	program, err := ir.Decode(input)
	if err != nil {
		return fmt.Errorf("decode program: %w", err)
	}

	prog := pipeline.NewProgress(*debugFlag)
	opts := pipeline.Options{
		ToSSA:                *toSSA,
		FromSSA:              *fromSSA,
		RoundTrip:            *roundTrip,
		CheckSSA:             *checkSSA,
		LocalValueNumbering:  *lvnFlag,
		LICM:                 *licmFlag,
		DeadStoreElimination: *deadStore,
		Liveness:             *livenessFlag,
		Global:               *global,
	}

	out, err := pipeline.Run(program, opts, prog)
	if err != nil {
		var diagErr *diagnostics.Error
		if errors.As(err, &diagErr) {
			diagnostics.NewReporter(os.Stderr).Report(diagErr)
		}
		return err
	}

	encoded, err := ir.Encode(out)
	if err != nil {
		return fmt.Errorf("encode program: %w", err)
	}
	if _, err := os.Stdout.Write(encoded); err != nil {
		return fmt.Errorf("write stdout: %w", err)
	}
	return nil
}
