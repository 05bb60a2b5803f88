// Package backendtest provides an in-memory analysis backend for tests.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/artbeyondsight/sight/pkg/backend"
)

type Server struct {
	*httptest.Server

	mu      sync.Mutex
	records map[string]backend.Record
	nextID  int
	saves   int

	failSaves bool
	failReads bool
}

func NewServer() *Server {
	s := &Server{records: make(map[string]backend.Record)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("POST /api/image-analysis", s.save)
	mux.HandleFunc("GET /api/image-analysis", s.list)
	mux.HandleFunc("GET /api/image-analysis/search/{name}", s.search)
	mux.HandleFunc("GET /api/image-analysis/{id}", s.get)
	mux.HandleFunc("PUT /api/image-analysis/{id}", s.update)
	mux.HandleFunc("DELETE /api/image-analysis/{id}", s.remove)
	s.Server = httptest.NewServer(mux)
	return s
}

// SetFailSaves makes create-or-update return 500.
func (s *Server) SetFailSaves(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSaves = fail
}

// SetFailReads makes list and search return 500.
func (s *Server) SetFailReads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = fail
}

func (s *Server) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *Server) Records() []backend.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Seed stores a record directly and returns its ID.
func (s *Server) Seed(record backend.Record) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record.ID = strconv.Itoa(s.nextID)
	record.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	record.UpdatedAt = record.CreatedAt
	s.records[record.ID] = record
	return record.ID
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, backend.Health{Status: "healthy", Timestamp: time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves {
		http.Error(w, `{"detail":"Failed to save or update analysis: database unavailable"}`, http.StatusInternalServerError)
		return
	}

	record := backend.Record{}
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.saves++

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for id, existing := range s.records {
		if existing.ImageName == record.ImageName && existing.AnalysisType == record.AnalysisType {
			record.ID = id
			record.CreatedAt = existing.CreatedAt
			record.UpdatedAt = now
			s.records[id] = record
			writeJSON(w, http.StatusOK, record)
			return
		}
	}

	s.nextID++
	record.ID = strconv.Itoa(s.nextID)
	record.CreatedAt = now
	record.UpdatedAt = now
	s.records[record.ID] = record
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	analysisType := r.URL.Query().Get("analysis_type")
	limit := backend.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusUnprocessableEntity)
			return
		}
		limit = parsed
	}
	out := make([]backend.Record, 0)
	for _, record := range s.sortedLocked() {
		if len(out) == limit {
			break
		}
		if analysisType == "" || record.AnalysisType == analysisType {
			out = append(out, record)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	needle := strings.ToLower(r.PathValue("name"))
	out := make([]backend.Record, 0)
	for _, record := range s.sortedLocked() {
		if strings.Contains(strings.ToLower(record.ImageName), needle) {
			out = append(out, record)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[r.PathValue("id")]
	if !ok {
		http.Error(w, `{"detail":"Analysis not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[r.PathValue("id")]
	if !ok {
		http.Error(w, `{"detail":"Analysis not found"}`, http.StatusNotFound)
		return
	}
	update := backend.Update{}
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if update.Descriptions != nil {
		record.Descriptions = update.Descriptions
	}
	if update.Metadata != nil {
		record.Metadata = *update.Metadata
	}
	record.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	s.records[record.ID] = record
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := s.records[id]; !ok {
		http.Error(w, `{"detail":"Analysis not found"}`, http.StatusNotFound)
		return
	}
	delete(s.records, id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (s *Server) sortedLocked() []backend.Record {
	out := make([]backend.Record, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a > b
	})
	return out
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
