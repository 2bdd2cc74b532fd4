package ui

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/askql-labs/askql/internal/backend"
	"github.com/askql-labs/askql/internal/schema"
	"github.com/askql-labs/askql/internal/session"
	"github.com/askql-labs/askql/internal/workbench"
)

// uploadLimit caps multipart uploads at 100 MB.
const uploadLimit = 100 << 20

// statePayload is the full state document clients re-fetch after each
// update ping.
type statePayload struct {
	Session   session.Snapshot        `json:"session"`
	Schema    map[string]schema.Table `json:"schema,omitempty"`
	Workbench workbench.Snapshot      `json:"workbench"`
}

func (s *Server) statePayload() statePayload {
	snap := s.session.Snapshot()
	p := statePayload{
		Session:   snap,
		Workbench: s.workbench.Snapshot(),
	}
	if snap.Schema != nil {
		p.Schema = make(map[string]schema.Table, snap.Schema.Len())
		for _, name := range snap.Schema.Tables() {
			tbl, _ := snap.Schema.Table(name)
			p.Schema[name] = tbl
		}
	}
	return p
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.client.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"status": "degraded", "backend": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadLimit); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer func() { _ = file.Close() }()

	if err := s.session.UploadDataset(r.Context(), header.Filename, file); err != nil {
		status := http.StatusBadGateway
		if err == session.ErrUploadInFlight {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		Model    string `json:"model,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	model := backend.ModelPrimary
	if req.Model != "" {
		model = backend.ModelType(req.Model)
		if !model.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid model %q", req.Model))
			return
		}
	}

	if !s.session.AskQuestion(r.Context(), req.Question, model) {
		writeError(w, http.StatusConflict, fmt.Errorf("question rejected: empty or another question pending"))
		return
	}
	writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.session.ChangeDataset()
	writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handleSetBuffer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Buffer string `json:"buffer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	s.workbench.SetBuffer(req.Buffer)
	writeJSON(w, http.StatusOK, s.workbench.Snapshot())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !s.workbench.RunQuery(r.Context()) {
		writeError(w, http.StatusConflict, fmt.Errorf("run rejected: empty buffer or operation pending"))
		return
	}
	writeJSON(w, http.StatusOK, s.workbench.Snapshot())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
		Model  string `json:"model,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	model := backend.ModelPrimary
	if req.Model != "" {
		model = backend.ModelType(req.Model)
		if !model.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid model %q", req.Model))
			return
		}
	}

	s.workbench.SetPrompt(req.Prompt)
	if !s.workbench.GenerateFromPrompt(r.Context(), model) {
		writeError(w, http.StatusConflict, fmt.Errorf("generate rejected: empty prompt or operation pending"))
		return
	}
	writeJSON(w, http.StatusOK, s.workbench.Snapshot())
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Table string `json:"table"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Table == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing table name"))
		return
	}
	s.workbench.ToggleTableExpansion(req.Table)
	writeJSON(w, http.StatusOK, s.workbench.Snapshot())
}

// handleUpdates streams one SSE event per state change. Events carry no
// body beyond the name; clients re-fetch /api/state.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	_, _ = fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			_, _ = fmt.Fprintf(w, "event: update\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
