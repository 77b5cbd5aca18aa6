// Package server exposes SpeakNode over HTTP: dataset lifecycle, agent
// queries, meeting reads, graph export/import and node patches.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kinder1203/SpeakNode/internal/agent"
	"github.com/Kinder1203/SpeakNode/internal/config"
	"github.com/Kinder1203/SpeakNode/internal/extract"
	"github.com/Kinder1203/SpeakNode/internal/llm"
	"github.com/Kinder1203/SpeakNode/internal/search"
	"github.com/Kinder1203/SpeakNode/internal/session"
	"github.com/Kinder1203/SpeakNode/internal/store"
	"github.com/Kinder1203/SpeakNode/internal/tools"
)

// Server wires the session manager, search engine, pipeline and agent
// behind an HTTP API.
type Server struct {
	cfg      config.HTTPConfig
	sessions *session.Manager
	engine   *search.Engine
	orch     *agent.Orchestrator
	pipeline *extract.Pipeline
	server   *http.Server
	log      zerolog.Logger
}

func NewServer(cfg config.HTTPConfig, sessions *session.Manager, engine *search.Engine, orch *agent.Orchestrator, pipeline *extract.Pipeline, logger zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		engine:   engine,
		orch:     orch,
		pipeline: pipeline,
		log:      logger,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	s.log.Info().Str("addr", s.cfg.Addr).Msg("API server starting")
	return s.server.ListenAndServe()
}

// Handler builds the route table. Exposed so tests can drive the API
// without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/datasets", s.handleDatasets)
	mux.HandleFunc("/api/datasets/", s.handleDataset)
	mux.HandleFunc("/api/agent/query", s.handleAgentQuery)
	mux.HandleFunc("/api/ingest", s.handleIngest)
	mux.HandleFunc("/api/meetings", s.handleMeetings)
	mux.HandleFunc("/api/meetings/", s.handleMeeting)
	mux.HandleFunc("/api/graph/export", s.handleExport)
	mux.HandleFunc("/api/graph/import", s.handleImport)
	mux.HandleFunc("/api/nodes/update", s.handleNodeUpdate)

	return s.loggingMiddleware(mux)
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// storeStatus maps store errors onto HTTP codes.
func storeStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAmbiguousNode):
		return http.StatusConflict
	case errors.Is(err, store.ErrFieldNotAllowed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) dataset(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.URL.Query().Get("dataset")
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("dataset query parameter is required"))
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) deps(sess *session.Session) tools.Deps {
	return tools.Deps{Store: sess.Store, Search: s.engine}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ids, err := s.sessions.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"datasets": ids})

	case http.MethodPost:
		var req struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
			return
		}
		if _, err := s.sessions.Get(req.ID); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/datasets/")
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("dataset id required"))
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.sessions.Reset(id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAgentQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Dataset string `json:"dataset"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}

	sess, err := s.sessions.Get(req.Dataset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// One turn per dataset at a time; concurrent callers queue here.
	sess.Lock()
	defer sess.Unlock()

	history := append(sess.History, llm.Message{Role: "user", Content: req.Message})
	state, err := s.orch.Answer(r.Context(), s.deps(sess), history)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	sess.History = state.Messages

	writeJSON(w, http.StatusOK, map[string]any{
		"answer": state.FinalAnswer,
		"tool":   state.ToolName,
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxImportBytes)
	var req struct {
		Dataset    string          `json:"dataset"`
		Title      string          `json:"title"`
		Date       string          `json:"date"`
		SourceFile string          `json:"source_file"`
		Segments   []store.Segment `json:"segments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}
	if len(req.Segments) > s.cfg.MaxImportElements {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Errorf("transcript has %d segments, limit is %d", len(req.Segments), s.cfg.MaxImportElements))
		return
	}

	sess, err := s.sessions.Get(req.Dataset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess.Lock()
	defer sess.Unlock()

	meetingID, count, err := s.pipeline.IngestTranscript(r.Context(), sess.Store, req.Title, req.Date, req.SourceFile, req.Segments)
	if err != nil {
		if meetingID != "" {
			// Transcript landed but enrichment failed; report both.
			writeJSON(w, http.StatusAccepted, map[string]any{
				"meeting_id": meetingID,
				"utterances": count,
				"warning":    err.Error(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meeting_id": meetingID,
		"utterances": count,
	})
}

func (s *Server) handleMeetings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.dataset(w, r)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()

	meetings, err := sess.Store.Meetings(r.URL.Query().Get("q"), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if meetings == nil {
		meetings = []store.Meeting{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"meetings": meetings})
}

func (s *Server) handleMeeting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/meetings/")
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("meeting id required"))
		return
	}
	sess, ok := s.dataset(w, r)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()

	sum, err := sess.Store.MeetingSummary(id)
	if err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.dataset(w, r)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()

	includeEmbeddings := r.URL.Query().Get("embeddings") == "true"
	dump, err := sess.Store.ExportDump(includeEmbeddings)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, dump)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.dataset(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxImportBytes)
	var dump store.Dump
	if err := json.NewDecoder(r.Body).Decode(&dump); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid dump: %w", err))
		return
	}
	total := len(dump.Meetings) + len(dump.People) + len(dump.Topics) + len(dump.Decisions) +
		len(dump.Tasks) + len(dump.Entities) + len(dump.Utterances)
	if total > s.cfg.MaxImportElements {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Errorf("dump has %d elements, limit is %d", total, s.cfg.MaxImportElements))
		return
	}

	sess.Lock()
	defer sess.Unlock()
	if err := sess.Store.RestoreDump(&dump); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meetings":   len(dump.Meetings),
		"utterances": len(dump.Utterances),
	})
}

func (s *Server) handleNodeUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Dataset  string `json:"dataset"`
		NodeType string `json:"node_type"`
		Key      string `json:"key"`
		Field    string `json:"field"`
		Value    string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	sess, err := s.sessions.Get(req.Dataset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess.Lock()
	defer sess.Unlock()

	if err := sess.Store.UpdateNodeField(req.NodeType, req.Key, req.Field, req.Value); err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
