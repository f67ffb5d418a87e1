package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

func (a *App) handleRuns(w http.ResponseWriter, r *http.Request) {
	function := r.URL.Query().Get("function")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := a.db.ListRuns(function, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (a *App) handleBenchmarks(w http.ResponseWriter, r *http.Request) {
	benchmark := r.URL.Query().Get("benchmark")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	benches, err := a.db.ListBenchmarks(benchmark, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, benches)
}

// handleDot serves a function's CFG as DOT text. The graph itself is
// rendered offline by brildot --record into the graphs table; this
// handler only ever reads that table, caching by the row's content
// hash so a re-recorded graph for the same function invalidates the
// cached copy without evicting anything else.
func (a *App) handleDot(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("function")
	if name == "" {
		http.Error(w, "missing query parameter function", http.StatusBadRequest)
		return
	}

	dot, hash, ok, err := a.db.GetGraph(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, fmt.Sprintf("no recorded graph for function %q (run brildot --record)", name), http.StatusNotFound)
		return
	}

	key := name + "|" + hash
	if cached, ok := a.dotCache.Get(key); ok {
		writeDot(w, cached)
		return
	}
	a.dotCache.Add(key, dot)
	writeDot(w, dot)
}

func writeDot(w http.ResponseWriter, dot string) {
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = w.Write([]byte(dot))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
