// Command brildot renders a function's control-flow graph as Graphviz
// DOT text, reading a JSON IR program from stdin.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/briltools/brilopt/internal/cfg"
	"github.com/briltools/brilopt/internal/ir"
	"github.com/briltools/brilopt/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	funcName := flag.String("func", "", "Render only this function (default: every function in the program)")
	recordPath := flag.String("record", "", "Persist every rendered graph to this SQLite file, for the dashboard server to read")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: brildot [--func name] [--record path.db] < program.json > graph.dot\n\n")
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

	var recorded []store.Graph
	for _, fn := range program.Functions {
		if *funcName != "" && fn.Name != *funcName {
			continue
		}
		g, err := cfg.Build(fn, false)
		if err != nil {
			return fmt.Errorf("function %s: %w", fn.Name, err)
		}
		dot := cfg.ToDot(g)
		fmt.Printf("// %s\n%s\n", fn.Name, dot)
		if *recordPath != "" {
			recorded = append(recorded, store.Graph{Function: fn.Name, Hash: graphHash(fn), Dot: dot})
		}
	}

	if *recordPath != "" {
		w, err := store.Open(*recordPath)
		if err != nil {
			return fmt.Errorf("open record db: %w", err)
		}
		defer w.Close()
		if err := w.WriteGraphs(recorded); err != nil {
			return fmt.Errorf("write graphs: %w", err)
		}
	}
	return nil
}

// graphHash hashes a function's name and instruction sequence, so the
// dashboard server can tell whether a cached copy of a graph is stale
// without re-rendering it.
func graphHash(fn *ir.Function) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n", fn.Name)
	for _, in := range fn.Instrs {
		fmt.Fprintf(h, "%s|%s|%v|%v\n", in.Op, in.Dest, in.Args, in.Labels)
	}
	return hex.EncodeToString(h.Sum(nil))
}
