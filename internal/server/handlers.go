package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/meibo/internal/models"
)

type searchRequest struct {
	Query         string `json:"query"`
	SessionID     string `json:"session_id,omitempty"`
	ForceEscalate bool   `json:"force_escalate,omitempty"`
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type addEntriesRequest struct {
	SourceQuery string                   `json:"source_query,omitempty"`
	Entries     []*models.DirectoryEntry `json:"entries"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query", req.Query), zap.String("session_id", req.SessionID),
		zap.Bool("force_escalate", req.ForceEscalate))

	start := time.Now()
	results := s.orch.Search(r.Context(), req.Query, req.SessionID, req.ForceEscalate)
	s.respondJSON(w, http.StatusOK, searchResponse(req.Query, results, start))
}

func (s *Server) handleSearchMore(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	s.logger.Debug("search-for-more request", zap.String("query", req.Query))

	start := time.Now()
	results := s.orch.SearchForMore(r.Context(), req.Query)
	s.respondJSON(w, http.StatusOK, searchResponse(req.Query, results, start))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	// an empty body means cancel with the default reason
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "client request"
	}
	s.orch.Cancel(reason)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleImportant(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	results := s.orch.Search(r.Context(), "", "", false)
	s.respondJSON(w, http.StatusOK, searchResponse("", results, start))
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	ok, err := s.store.HasGoodCoverage(r.Context(), query)
	if err != nil {
		s.logger.Error("coverage check failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":         query,
		"good_coverage": ok,
	})
}

func (s *Server) handleAddEntries(w http.ResponseWriter, r *http.Request) {
	var req addEntriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Entries) == 0 {
		s.respondError(w, http.StatusBadRequest, "entries are required")
		return
	}
	for _, e := range req.Entries {
		if e.ID == "" {
			s.respondError(w, http.StatusBadRequest, "entry id is required")
			return
		}
	}
	s.logger.Debug("add entries request",
		zap.Int("count", len(req.Entries)), zap.String("source_query", req.SourceQuery))
	if err := s.store.AddItemsFromSearch(r.Context(), req.SourceQuery, req.Entries); err != nil {
		s.logger.Error("add entries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "added",
		"count":  len(req.Entries),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountEntries(r.Context())
	if err != nil {
		s.logger.Error("status: count entries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"entries": count,
	}
	if s.appCfg != nil {
		sc := s.orch.Config()
		resp["config"] = map[string]interface{}{
			"database_path":     s.appCfg.Storage.DatabasePath,
			"bleve_index_path":  s.appCfg.Storage.BleveIndexPath,
			"remote_base_url":   s.appCfg.Remote.BaseURL,
			"local_limit":       sc.LocalLimit,
			"min_local_results": sc.MinLocalResults,
			"strong_score":      sc.StrongScore,
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func searchResponse(query string, results []*models.SearchResult, start time.Time) *models.SearchResponse {
	usedRemote := false
	if len(results) > 0 {
		usedRemote = results[0].UsedRemote
	}
	return &models.SearchResponse{
		Results:     results,
		Total:       len(results),
		Query:       query,
		UsedRemote:  usedRemote,
		QueryTimeMs: time.Since(start).Milliseconds(),
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
