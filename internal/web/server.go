// ABOUTME: Read-only HTTP dashboard over collected messages and reports
// ABOUTME: JSON endpoints for health, recent data and collection stats
package web

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harper/chatdigest/internal/storage/sqlite"
)

// defaultLimit bounds list endpoints when no limit parameter is given
const defaultLimit = 50

// Server exposes the status dashboard
type Server struct {
	storage *sqlite.Storage
	router  chi.Router
	started time.Time
}

// NewServer creates the dashboard server over the given storage
func NewServer(storage *sqlite.Storage) *Server {
	s := &Server{
		storage: storage,
		started: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/messages", s.handleMessages)
	r.Get("/api/messages/search", s.handleSearch)
	r.Get("/api/reports", s.handleReports)
	r.Get("/api/reports/{id}", s.handleReport)
	r.Get("/api/stats", s.handleStats)

	s.router = r
	return s
}

// Handler returns the HTTP handler for mounting or serving
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving the dashboard on addr
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("[web] Dashboard listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.storage.Messages().Recent(limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(msgs),
		"messages": msgs,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing q parameter"})
		return
	}
	msgs, err := s.storage.Messages().Search(query, limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(msgs),
		"messages": msgs,
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.storage.Reports().Recent(limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(reports),
		"reports": reports,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.storage.Reports().GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if report == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	messageCount, err := s.storage.Messages().Count()
	if err != nil {
		writeError(w, err)
		return
	}
	reportCount, err := s.storage.Reports().Count()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messageCount,
		"reports":  reportCount,
	})
}

func limitParam(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultLimit
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[web] Encode response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	log.Printf("[web] Request failed: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
