package tui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askql-labs/askql/internal/backend"
	"github.com/askql-labs/askql/internal/notify"
	"github.com/askql-labs/askql/internal/session"
	"github.com/askql-labs/askql/internal/workbench"
)

func newTestModel(t *testing.T) Model {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sql":    "SELECT 1",
			"answer": "One.",
			"rows":   []map[string]any{{"n": 1}},
		})
	})
	agent := httptest.NewServer(mux)
	t.Cleanup(agent.Close)

	client := backend.New(backend.Config{BaseURL: agent.URL})
	hub := notify.NewHub()
	sess := session.New(session.Config{Client: client, Hub: hub})
	wb := workbench.New(workbench.Config{Client: client, Hub: hub})

	return New(Config{
		Session:   sess,
		Workbench: wb,
		Hub:       hub,
		Model:     backend.ModelPrimary,
		ServerURL: agent.URL,
	})
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantCmd string
		wantArg string
	}{
		{"plain question", "how many orders?", "", "how many orders?"},
		{"sql command", "/sql SELECT 1", "/sql", "SELECT 1"},
		{"generate command", "/gen top customers", "/gen", "top customers"},
		{"bare command", "/quit", "/quit", ""},
		{"whitespace", "   ", "", ""},
		{"padded command", "  /reset  ", "/reset", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, arg := parseInput(tt.line)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArg, arg)
		})
	}
}

func TestViewBeforeReady(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, "loading...", m.View())
}

func TestWindowSizeMakesReady(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)

	assert.True(t, m.ready)
	assert.Contains(t, m.View(), "AskQL")
	assert.Contains(t, m.View(), "schema")
}

func TestSubmitQuestion(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)

	m.input.SetValue("how many orders?")
	cmd := m.submit()
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	// Resolving the command runs the ask and reports completion.
	msg := cmd()
	assert.IsType(t, askDoneMsg{}, msg)

	snap := m.session.Snapshot()
	require.Len(t, snap.Turns, 2)
	assert.Equal(t, "One.", snap.Turns[1].Result.Answer)
	assert.Equal(t, "SELECT 1", snap.Turns[1].Result.SQL)
	require.Len(t, snap.Turns[1].Result.Rows, 1)
}

func TestSubmitEmptyIsNoop(t *testing.T) {
	m := newTestModel(t)

	m.input.SetValue("   ")
	assert.Nil(t, m.submit())
	assert.False(t, m.busy)
}

func TestSubmitWhileBusyIsNoop(t *testing.T) {
	m := newTestModel(t)
	m.busy = true

	m.input.SetValue("question")
	assert.Nil(t, m.submit())
}

func TestTableToggle(t *testing.T) {
	m := newTestModel(t)

	m.input.SetValue("/table orders")
	assert.Nil(t, m.submit())
	assert.True(t, m.workbench.IsExpanded("orders"))

	m.input.SetValue("/table orders")
	assert.Nil(t, m.submit())
	assert.False(t, m.workbench.IsExpanded("orders"))
}

func TestQuitCommand(t *testing.T) {
	m := newTestModel(t)

	m.input.SetValue("/quit")
	cmd := m.submit()
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
