package main

import (
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"
)

// App holds server dependencies.
type App struct {
	db        *DB
	dotCache  *lru.Cache[string, string]
	staticDir string
}

// NewApp creates an App with the given database and optional static
// directory. Rendered graphs are read from the graphs table; the
// server never loads or builds an IR program itself.
func NewApp(db *sql.DB, staticDir string) *App {
	cache, _ := lru.New[string, string](256)
	return &App{
		db:        NewDB(db),
		dotCache:  cache,
		staticDir: strings.TrimSuffix(staticDir, "/"),
	}
}

// Handler returns the HTTP handler (router with CORS, recovery, routes).
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(allowCrossOrigin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", a.handleRuns)
		r.Get("/benchmarks", a.handleBenchmarks)
		r.Get("/dot", a.handleDot)
	})

	// Dashboard SPA: serve static files if dir set, else 404 for /
	if a.staticDir != "" {
		r.Get("/*", a.serveDashboard)
	} else {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "No static dir configured (set -static or STATIC_DIR)", http.StatusNotFound)
		})
	}

	return r
}

// allowCrossOrigin sets CORS headers on every /api response, since the
// dashboard frontend is commonly served from a different dev port than
// this API.
func allowCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// serveDashboard serves the runs/benchmarks/graph dashboard's static
// assets from staticDir, falling back to index.html for client-side
// routes so deep links into the SPA resolve correctly.
func (a *App) serveDashboard(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}
	fpath := filepath.Join(a.staticDir, filepath.Clean(path))
	if info, err := os.Stat(fpath); err == nil && !info.IsDir() {
		http.ServeFile(w, r, fpath)
		return
	}
	// Client-side routing: any other path → index.html
	indexPath := filepath.Join(a.staticDir, "index.html")
	if _, err := os.Stat(indexPath); err == nil {
		http.ServeFile(w, r, indexPath)
		return
	}
	http.NotFound(w, r)
}
