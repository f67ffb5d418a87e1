package main

// SQL constants aligned with internal/store's schema.

const queryListRuns = `
SELECT id, function, pass, instrs_before, instrs_after, started_at, duration_ms
FROM runs
ORDER BY started_at DESC
LIMIT ?
`

const queryRunsByFunction = `
SELECT id, function, pass, instrs_before, instrs_after, started_at, duration_ms
FROM runs
WHERE function = ?
ORDER BY started_at DESC
LIMIT ?
`

const queryListBenchmarks = `
SELECT id, benchmark, run, result, baseline_instrs, optimized_instrs
FROM benchmarks
ORDER BY benchmark, run
LIMIT ?
`

const queryBenchmarksByName = `
SELECT id, benchmark, run, result, baseline_instrs, optimized_instrs
FROM benchmarks
WHERE benchmark = ?
ORDER BY run
LIMIT ?
`

const queryGraphByFunction = `
SELECT hash, dot
FROM graphs
WHERE function = ?
`
