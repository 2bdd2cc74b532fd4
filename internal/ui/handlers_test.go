package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askql-labs/askql/internal/backend"
	"github.com/askql-labs/askql/internal/notify"
	"github.com/askql-labs/askql/internal/session"
	"github.com/askql-labs/askql/internal/workbench"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sql":      "SELECT 1",
			"answer":   "One.",
			"rows":     []map[string]any{{"n": 1}},
			"attempts": 1,
		})
	})
	mux.HandleFunc("/api/execute_sql", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"rows": []map[string]any{{"n": 2}},
		})
	})
	mux.HandleFunc("/api/generate_sql", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sql": "SELECT region FROM sales",
		})
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "ok " + header.Filename,
			"schema":  map[string]any{"sales": []any{"region", "amount"}},
		})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	agent := httptest.NewServer(mux)
	t.Cleanup(agent.Close)

	client := backend.New(backend.Config{BaseURL: agent.URL})
	hub := notify.NewHub()
	sess := session.New(session.Config{Client: client, Hub: hub})
	wb := workbench.New(workbench.Config{Client: client, Hub: hub})
	sess.OnDatasetCleared(wb.Reset)

	srv := NewServer(ServerConfig{
		Addr:      "127.0.0.1:0",
		Session:   sess,
		Workbench: wb,
		Client:    client,
		Hub:       hub,
	})
	return srv, agent
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	return rec
}

func TestStateEndpoint_Empty(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state struct {
		Session struct {
			HasDataset bool `json:"has_dataset"`
		} `json:"session"`
		Workbench struct {
			Buffer string `json:"buffer"`
		} `json:"workbench"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.False(t, state.Session.HasDataset)
	assert.Equal(t, workbench.DefaultBuffer, state.Workbench.Buffer)
}

func TestAskEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/ask", map[string]string{"question": "how many?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var state struct {
		Session struct {
			Turns []struct {
				Role    string `json:"role"`
				Content string `json:"content,omitempty"`
			} `json:"turns"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Len(t, state.Session.Turns, 2)
	assert.Equal(t, "user", state.Session.Turns[0].Role)
	assert.Equal(t, "agent", state.Session.Turns[1].Role)
}

func TestAskEndpoint_EmptyQuestion(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/ask", map[string]string{"question": "   "})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAskEndpoint_InvalidModel(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/ask",
		map[string]string{"question": "q", "model": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkbenchRunEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/workbench/buffer",
		map[string]string{"buffer": "SELECT 2"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/workbench/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap workbench.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.NotNil(t, snap.LastResult)
	assert.Empty(t, snap.LastResult.Error)
	require.Len(t, snap.LastResult.Rows, 1)
}

func TestWorkbenchRunEndpoint_EmptyBuffer(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/workbench/buffer",
		map[string]string{"buffer": "   "})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/workbench/run", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWorkbenchGenerateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/workbench/generate",
		map[string]string{"prompt": "regions in sales"})
	require.Equal(t, http.StatusOK, rec.Code)

	var snap workbench.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "SELECT region FROM sales", snap.Buffer)
}

func TestUploadEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sales.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("region,amount\nwest,10\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var state struct {
		Session struct {
			HasDataset bool `json:"has_dataset"`
		} `json:"session"`
		Schema map[string]json.RawMessage `json:"schema"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.Session.HasDataset)
	assert.Contains(t, state.Schema, "sales")
}

func TestResetEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/ask", map[string]string{"question": "q"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state struct {
		Session struct {
			Turns []json.RawMessage `json:"turns"`
		} `json:"session"`
		Workbench struct {
			Buffer string `json:"buffer"`
		} `json:"workbench"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Empty(t, state.Session.Turns)
	assert.Equal(t, workbench.DefaultBuffer, state.Workbench.Buffer)
}

func TestHealthzEndpoint(t *testing.T) {
	srv, agent := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	agent.Close()
	rec = doRequest(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestExpandEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/workbench/expand",
		map[string]string{"table": "sales"})
	require.Equal(t, http.StatusOK, rec.Code)

	var snap workbench.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Contains(t, snap.Expanded, "sales")

	rec = doRequest(t, srv, http.MethodPost, "/api/workbench/expand",
		map[string]string{"table": "sales"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.NotContains(t, snap.Expanded, "sales")
}

func TestUpdatesEndpoint_Ping(t *testing.T) {
	srv, _ := newTestServer(t)

	// The SSE stream sends a connected event immediately; cancel after
	// reading it via a short-lived request context.
	req := httptest.NewRequest(http.MethodGet, "/updates", nil)
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, req)
		done <- rec
	}()
	cancel()
	rec := <-done

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Body.String(), "event: connected"))
}
