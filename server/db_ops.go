package main

import "database/sql"

// ListRuns returns runs, most recent first, optionally filtered to one
// function name (empty means all functions), capped at maxListRows.
func (db *DB) ListRuns(function string, limit int) ([]Run, error) {
	if limit <= 0 || limit > maxListRows {
		limit = maxListRows
	}
	var rows interface {
		Next() bool
		Scan(...any) error
		Err() error
		Close() error
	}
	var err error
	if function == "" {
		rows, err = db.Query(queryListRuns, limit)
	} else {
		rows, err = db.Query(queryRunsByFunction, function, limit)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Function, &r.Pass, &r.InstrsBefore, &r.InstrsAfter, &r.StartedAt, &r.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListBenchmarks returns benchmark rows, optionally filtered to one
// benchmark name (empty means all), capped at maxListRows.
func (db *DB) ListBenchmarks(benchmark string, limit int) ([]Benchmark, error) {
	if limit <= 0 || limit > maxListRows {
		limit = maxListRows
	}
	var rows interface {
		Next() bool
		Scan(...any) error
		Err() error
		Close() error
	}
	var err error
	if benchmark == "" {
		rows, err = db.Query(queryListBenchmarks, limit)
	} else {
		rows, err = db.Query(queryBenchmarksByName, benchmark, limit)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []Benchmark{}
	for rows.Next() {
		var b Benchmark
		if err := rows.Scan(&b.ID, &b.Benchmark, &b.Run, &b.Result, &b.BaselineInstrs, &b.OptimizedInstrs); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetGraph returns the rendered DOT text and content hash for a
// function's most recently recorded graph, as written by brildot
// --record. ok is false if no row exists for that function.
func (db *DB) GetGraph(function string) (dot string, hash string, ok bool, err error) {
	row := db.QueryRow(queryGraphByFunction, function)
	if err := row.Scan(&hash, &dot); err != nil {
		if err == sql.ErrNoRows {
			return "", "", false, nil
		}
		return "", "", false, err
	}
	return dot, hash, true, nil
}
