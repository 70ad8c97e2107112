// Package server exposes the snapshot over HTTP: JSON endpoints for
// stories, queries, per-symbol impacts, and alerts, plus an HTML digest
// page. Searches run concurrently; rebuilds swap the snapshot atomically.
package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/yuin/goldmark"

	"github.com/finwire/newsintel/internal/digest"
	"github.com/finwire/newsintel/internal/pipeline"
	"github.com/finwire/newsintel/internal/store"
)

var md = goldmark.New()

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>newsintel</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 880px; margin: 2rem auto; padding: 0 1rem; color: #1f2937; }
h1 { border-bottom: 2px solid #e5e7eb; padding-bottom: .4rem; }
h2 { margin-top: 2rem; }
em { color: #6b7280; }
li strong { color: #1d4ed8; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>`

// Server serves the enriched story set over HTTP.
type Server struct {
	db   *store.DB
	pipe *pipeline.Pipeline
	mux  *http.ServeMux
	page *template.Template

	mu       sync.RWMutex
	snapshot *pipeline.Snapshot
}

// New creates a server around an initial snapshot.
func New(db *store.DB, pipe *pipeline.Pipeline, snapshot *pipeline.Snapshot) *Server {
	s := &Server{
		db:       db,
		pipe:     pipe,
		snapshot: snapshot,
		mux:      http.NewServeMux(),
		page:     template.Must(template.New("page").Parse(pageTemplate)),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve blocks serving HTTP on the given port.
func Serve(db *store.DB, pipe *pipeline.Pipeline, snapshot *pipeline.Snapshot, port int) error {
	s := New(db, pipe, snapshot)
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/stories", s.handleStories)
	s.mux.HandleFunc("/query", s.handleQuery)
	s.mux.HandleFunc("/stock/", s.handleStock)
	s.mux.HandleFunc("/alerts", s.handleAlerts)
	s.mux.HandleFunc("/rebuild", s.handleRebuild)
}

func (s *Server) current() *pipeline.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	snap := s.current()
	var buf strings.Builder
	if err := md.Convert([]byte(digest.Compose(snap.Enriched)), &buf); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.page.Execute(w, map[string]any{
		"Body": template.HTML(buf.String()), //nolint: gosec
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.current()
	writeJSON(w, map[string]any{
		"status":          "ok",
		"articles_loaded": len(snap.Articles),
		"stories_indexed": len(snap.Enriched),
	})
}

func (s *Server) handleStories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.current().Enriched)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "missing query parameter 'q'", http.StatusBadRequest)
		return
	}

	topK := queryInt(r, "top_k", 5)
	minScore := queryFloat(r, "min_score", 0.05)

	results, err := s.current().Search(r.Context(), q, topK, minScore)
	if err != nil {
		log.Printf("Search failed: %v", err)
		http.Error(w, "search failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, map[string]any{
		"query":   q,
		"results": results,
	})
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/stock/"))
	if symbol == "" {
		http.Error(w, "missing stock symbol", http.StatusBadRequest)
		return
	}

	minConfidence := queryFloat(r, "min_confidence", 0.3)
	writeJSON(w, s.current().StoriesForSymbol(symbol, minConfidence))
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	minConfidence := queryFloat(r, "min_confidence", 0.9)
	writeJSON(w, s.current().Alerts(minConfidence))
}

// handleRebuild re-reads the archive and rebuilds the snapshot. Searches
// keep hitting the old snapshot until the swap.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	articles, err := s.db.GetAllArticles()
	if err != nil {
		log.Printf("Rebuild: reading archive: %v", err)
		http.Error(w, "reading archive failed", http.StatusInternalServerError)
		return
	}

	snap, err := s.pipe.Build(r.Context(), articles)
	if err != nil {
		log.Printf("Rebuild failed: %v", err)
		http.Error(w, "rebuild failed", http.StatusBadGateway)
		return
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	writeJSON(w, map[string]any{
		"status":          "ok",
		"total_articles":  len(snap.Articles),
		"stories_indexed": len(snap.Enriched),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Encoding response: %v", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	if v := r.URL.Query().Get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return fallback
}
