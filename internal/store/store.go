// Package store persists pass-run history, benchmark outcomes, and
// precomputed CFG renderings to a SQLite file: a handful of pragmas
// tuned for bulk writes, one immediate transaction, and
// prepared-statement batch inserts.
package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Run records one pass application against one function.
type Run struct {
	ID           string
	Function     string
	Pass         string
	InstrsBefore int
	InstrsAfter  int
	StartedAt    time.Time
	DurationMS   int64
}

// Benchmark records one benchmark's outcome relative to a named
// baseline run, per cmd/brilbench's --baseline comparison.
type Benchmark struct {
	ID              string
	Benchmark       string
	Run             string
	Result          string // "pass", "timeout", "missing", or "incorrect"
	BaselineInstrs  int
	OptimizedInstrs int
}

// Graph is one function's precomputed CFG rendering, keyed by a content
// hash of its instruction list so a later write for the same function
// with unchanged instructions is a no-op for readers already holding a
// cached copy of the same hash.
type Graph struct {
	Function string
	Hash     string
	Dot      string
}

// NewRunID and NewBenchmarkID mint primary keys the same way across
// every writer, so callers never construct IDs by hand.
func NewRunID() string       { return uuid.NewString() }
func NewBenchmarkID() string { return uuid.NewString() }

const createTablesDDL = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    function TEXT NOT NULL,
    pass TEXT NOT NULL,
    instrs_before INTEGER NOT NULL,
    instrs_after INTEGER NOT NULL,
    started_at TEXT NOT NULL,
    duration_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS benchmarks (
    id TEXT PRIMARY KEY,
    benchmark TEXT NOT NULL,
    run TEXT NOT NULL,
    result TEXT NOT NULL,
    baseline_instrs INTEGER NOT NULL,
    optimized_instrs INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS graphs (
    function TEXT PRIMARY KEY,
    hash TEXT NOT NULL,
    dot TEXT NOT NULL
);
`

// Writer owns one SQLite connection opened for bulk writing.
type Writer struct {
	conn *sqlite.Conn
}

// Open creates the database file at path if it doesn't already exist.
// A run/benchmark/graph history accumulates across many independent
// brilbench/brildot invocations, so an existing file is opened
// and appended to rather than truncated, and the connection is tuned
// with write-throughput pragmas suited to that append-heavy load.
func Open(path string) (*Writer, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA mmap_size = 268435456",
		"PRAGMA cache_size = -64000",
		"PRAGMA journal_mode = WAL",
	}
	for _, p := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, p, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	if err := sqlitex.ExecuteScript(conn, createTablesDDL, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Writer{conn: conn}, nil
}

// Close releases the underlying connection.
func (w *Writer) Close() error { return w.conn.Close() }

// WriteRuns inserts runs in a single immediate transaction.
func (w *Writer) WriteRuns(runs []Run) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(w.conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer endFn(&err)

	stmt, err := w.conn.Prepare(`INSERT INTO runs (id, function, pass, instrs_before, instrs_after, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare run insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, r := range runs {
		stmt.BindText(1, r.ID)
		stmt.BindText(2, r.Function)
		stmt.BindText(3, r.Pass)
		stmt.BindInt64(4, int64(r.InstrsBefore))
		stmt.BindInt64(5, int64(r.InstrsAfter))
		stmt.BindText(6, r.StartedAt.UTC().Format(time.RFC3339Nano))
		stmt.BindInt64(7, r.DurationMS)
		if _, err = stmt.Step(); err != nil {
			return fmt.Errorf("insert run %s: %w", r.ID, err)
		}
		if err = stmt.Reset(); err != nil {
			return fmt.Errorf("reset run insert: %w", err)
		}
	}
	return nil
}

// WriteBenchmarks inserts benchmark rows in a single immediate transaction.
func (w *Writer) WriteBenchmarks(benches []Benchmark) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(w.conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer endFn(&err)

	stmt, err := w.conn.Prepare(`INSERT INTO benchmarks (id, benchmark, run, result, baseline_instrs, optimized_instrs) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare benchmark insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, b := range benches {
		stmt.BindText(1, b.ID)
		stmt.BindText(2, b.Benchmark)
		stmt.BindText(3, b.Run)
		stmt.BindText(4, b.Result)
		stmt.BindInt64(5, int64(b.BaselineInstrs))
		stmt.BindInt64(6, int64(b.OptimizedInstrs))
		if _, err = stmt.Step(); err != nil {
			return fmt.Errorf("insert benchmark %s: %w", b.ID, err)
		}
		if err = stmt.Reset(); err != nil {
			return fmt.Errorf("reset benchmark insert: %w", err)
		}
	}
	return nil
}

// WriteGraphs persists rendered DOT graphs, replacing any existing row
// for the same function — brildot --record re-renders a function's
// whole graph each time, so there is nothing to reconcile against a
// prior row, unlike runs/benchmarks which only ever append.
func (w *Writer) WriteGraphs(graphs []Graph) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(w.conn)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer endFn(&err)

	stmt, err := w.conn.Prepare(`INSERT OR REPLACE INTO graphs (function, hash, dot) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare graph insert: %w", err)
	}
	defer func() {
		if cerr := stmt.Finalize(); err == nil {
			err = cerr
		}
	}()

	for _, g := range graphs {
		stmt.BindText(1, g.Function)
		stmt.BindText(2, g.Hash)
		stmt.BindText(3, g.Dot)
		if _, err = stmt.Step(); err != nil {
			return fmt.Errorf("insert graph %s: %w", g.Function, err)
		}
		if err = stmt.Reset(); err != nil {
			return fmt.Errorf("reset graph insert: %w", err)
		}
	}
	return nil
}
