package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the root command with args against a stub backend,
// returning stdout and the command error.
func runCommand(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()

	out := new(bytes.Buffer)
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--server", serverURL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func newStubBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question  string `json:"question"`
			ModelType string `json:"model_type"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sql":      "SELECT COUNT(*) AS n FROM orders",
			"answer":   "There are 42 orders.",
			"rows":     []map[string]any{{"n": 42}},
			"attempts": 1,
		})
	})
	mux.HandleFunc("/api/execute_sql", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"rows": []map[string]any{{"region": "west", "total": 10.5}},
		})
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "uploaded " + header.Filename,
			"schema": map[string]any{
				"orders": []any{"id", map[string]any{"name": "amount", "type": "REAL"}},
			},
		})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	return httptest.NewServer(mux)
}

func TestAskCommand(t *testing.T) {
	ts := newStubBackend(t)
	defer ts.Close()

	out, err := runCommand(t, ts.URL, "ask", "how", "many", "orders?")
	require.NoError(t, err)

	assert.Contains(t, out, "There are 42 orders.")
	assert.Contains(t, out, "SELECT COUNT(*) AS n FROM orders")
	assert.Contains(t, out, "42")
}

func TestAskCommand_JSONFormat(t *testing.T) {
	ts := newStubBackend(t)
	defer ts.Close()

	out, err := runCommand(t, ts.URL, "ask", "-o", "json", "how many orders?")
	require.NoError(t, err)

	var result struct {
		SQL    string `json:"sql"`
		Answer string `json:"answer"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "There are 42 orders.", result.Answer)
	assert.Equal(t, "SELECT COUNT(*) AS n FROM orders", result.SQL)
}

func TestAskCommand_BackendError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "model overload"})
	}))
	defer ts.Close()

	out, err := runCommand(t, ts.URL, "ask", "anything")
	require.NoError(t, err, "payload errors are reported, not returned")
	assert.Contains(t, out, "model overload")
}

func TestExecCommand(t *testing.T) {
	ts := newStubBackend(t)
	defer ts.Close()

	out, err := runCommand(t, ts.URL, "exec", "SELECT region, SUM(amount) AS total FROM sales GROUP BY region")
	require.NoError(t, err)

	assert.Contains(t, out, "west")
	assert.Contains(t, out, "10.5")
}

func TestExecCommand_CSVFormat(t *testing.T) {
	ts := newStubBackend(t)
	defer ts.Close()

	out, err := runCommand(t, ts.URL, "exec", "-f", "csv", "SELECT 1")
	require.NoError(t, err)

	assert.Contains(t, out, "region,total")
	assert.Contains(t, out, "west,10.5")
}

func TestExecCommand_BackendError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "no such table: sales"})
	}))
	defer ts.Close()

	_, err := runCommand(t, ts.URL, "exec", "SELECT * FROM sales")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table: sales")
}

func TestStatusCommand(t *testing.T) {
	ts := newStubBackend(t)
	defer ts.Close()

	out, err := runCommand(t, ts.URL, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "healthy")
}

func TestStatusCommand_Unreachable(t *testing.T) {
	ts := httptest.NewServer(nil)
	ts.Close()

	_, err := runCommand(t, ts.URL, "status")
	require.Error(t, err)
}

func TestUploadCommand(t *testing.T) {
	ts := newStubBackend(t)
	defer ts.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,amount\n1,10.5\n"), 0o644))

	out, err := runCommand(t, ts.URL, "upload", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Successfully loaded orders.csv")
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "COLUMNS")
}

func TestVersionCommand(t *testing.T) {
	out := new(bytes.Buffer)
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "AskQL v")
}
