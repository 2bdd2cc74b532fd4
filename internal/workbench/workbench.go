// Package workbench holds the state of the raw-SQL editing surface: the
// editor buffer, the last execution result, the schema-tree expansion
// set, and the AI-assist prompt. It is independent of the conversational
// flow: its single-flight discipline serializes only workbench-issued
// calls, so a query can run here while a question is pending in the
// session.
package workbench

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/askql-labs/askql/internal/backend"
	"github.com/askql-labs/askql/internal/notify"
	"github.com/askql-labs/askql/internal/schema"
)

// DefaultBuffer is the editor content of a fresh workbench.
const DefaultBuffer = "-- Write your SQL query here\nSELECT * FROM \nLIMIT 10;"

// Op identifies the workbench call currently in flight.
type Op string

// Workbench operations. At most one is outstanding at a time.
const (
	OpNone     Op = ""
	OpExecute  Op = "execute"
	OpGenerate Op = "generate"
)

// Result is the outcome of the most recent execution or failed
// generation. When Error is set, Rows is empty.
type Result struct {
	Rows  []schema.Row `json:"rows"`
	Error string       `json:"error,omitempty"`
}

// Runner is the slice of the backend client the workbench needs.
type Runner interface {
	ExecuteSQL(ctx context.Context, sql string) (*backend.QueryResult, error)
	GenerateSQL(ctx context.Context, question string, model backend.ModelType) (*backend.GenerateResult, error)
}

// Config holds the workbench dependencies.
type Config struct {
	Client Runner
	Hub    *notify.Hub
	Logger *slog.Logger
}

// Workbench is the raw-SQL surface state container.
type Workbench struct {
	client Runner
	hub    *notify.Hub
	logger *slog.Logger

	mu         sync.Mutex
	buffer     string
	lastResult *Result
	expanded   map[string]struct{}
	aiPrompt   string
	pending    Op
}

// Snapshot is an immutable view of the workbench state.
type Snapshot struct {
	Buffer     string   `json:"buffer"`
	LastResult *Result  `json:"last_result,omitempty"`
	Expanded   []string `json:"expanded_tables"`
	AIPrompt   string   `json:"ai_prompt"`
	Pending    Op       `json:"pending_op"`
}

// New creates a workbench with the default editor buffer.
func New(cfg Config) *Workbench {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	hub := cfg.Hub
	if hub == nil {
		hub = notify.NewHub()
	}
	return &Workbench{
		client:   cfg.Client,
		hub:      hub,
		logger:   logger,
		buffer:   DefaultBuffer,
		expanded: make(map[string]struct{}),
	}
}

// Hub returns the notification hub consumers subscribe to.
func (w *Workbench) Hub() *notify.Hub { return w.hub }

// Snapshot returns a copy of the current state.
func (w *Workbench) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	expanded := make([]string, 0, len(w.expanded))
	for name := range w.expanded {
		expanded = append(expanded, name)
	}

	var result *Result
	if w.lastResult != nil {
		r := *w.lastResult
		result = &r
	}
	return Snapshot{
		Buffer:     w.buffer,
		LastResult: result,
		Expanded:   expanded,
		AIPrompt:   w.aiPrompt,
		Pending:    w.pending,
	}
}

// Buffer returns the current editor content.
func (w *Workbench) Buffer() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer
}

// SetBuffer replaces the editor content unconditionally. The buffer is
// opaque text; syntax validation is the service's job.
func (w *Workbench) SetBuffer(text string) {
	w.mu.Lock()
	w.buffer = text
	w.mu.Unlock()
	w.hub.Broadcast()
}

// SetPrompt replaces the AI-assist prompt text.
func (w *Workbench) SetPrompt(text string) {
	w.mu.Lock()
	w.aiPrompt = text
	w.mu.Unlock()
	w.hub.Broadcast()
}

// ToggleTableExpansion flips the expansion state of one schema table.
// Toggling twice restores the original state.
func (w *Workbench) ToggleTableExpansion(name string) {
	w.mu.Lock()
	if _, ok := w.expanded[name]; ok {
		delete(w.expanded, name)
	} else {
		w.expanded[name] = struct{}{}
	}
	w.mu.Unlock()
	w.hub.Broadcast()
}

// IsExpanded reports whether a table is expanded in the schema tree.
func (w *Workbench) IsExpanded(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.expanded[name]
	return ok
}

// RunQuery executes the current buffer verbatim. It is a no-op while
// another workbench call is in flight or when the buffer trims to
// empty; the return value reports whether the call was dispatched.
// The settle handler always stores a result and frees the surface:
// rows on success, an error message on either a payload-carried or a
// transport failure.
func (w *Workbench) RunQuery(ctx context.Context) bool {
	w.mu.Lock()
	if w.pending != OpNone || strings.TrimSpace(w.buffer) == "" {
		w.mu.Unlock()
		return false
	}
	w.pending = OpExecute
	sql := w.buffer
	w.mu.Unlock()

	w.hub.Broadcast()

	res, err := w.client.ExecuteSQL(ctx, sql)

	w.mu.Lock()
	switch {
	case err != nil:
		w.lastResult = &Result{Rows: []schema.Row{}, Error: err.Error()}
	case res.Error != "":
		w.lastResult = &Result{Rows: []schema.Row{}, Error: res.Error}
	default:
		w.lastResult = &Result{Rows: res.Rows}
	}
	w.pending = OpNone
	w.mu.Unlock()

	w.hub.Broadcast()
	return true
}

// GenerateFromPrompt asks the service to write SQL for the current
// prompt. It is a no-op while another workbench call is in flight or
// when the prompt trims to empty.
//
// Two failure paths must stay distinct from success: a transport
// failure and a 200 response whose payload carries an error. Both leave
// the buffer untouched and surface the message through the result
// panel; only a success with non-empty SQL replaces the buffer, and
// that path leaves the last result alone.
func (w *Workbench) GenerateFromPrompt(ctx context.Context, model backend.ModelType) bool {
	w.mu.Lock()
	prompt := w.aiPrompt
	if w.pending != OpNone || strings.TrimSpace(prompt) == "" {
		w.mu.Unlock()
		return false
	}
	w.pending = OpGenerate
	w.mu.Unlock()

	w.hub.Broadcast()

	res, err := w.client.GenerateSQL(ctx, prompt, model)

	w.mu.Lock()
	switch {
	case err != nil:
		w.lastResult = &Result{Rows: []schema.Row{}, Error: err.Error()}
	case res.Error != "":
		w.lastResult = &Result{Rows: []schema.Row{}, Error: res.Error}
	case res.SQL != "":
		w.buffer = res.SQL
	}
	w.pending = OpNone
	w.mu.Unlock()

	w.hub.Broadcast()
	return true
}

// Reset returns the workbench to its initial values. Called when the
// session's dataset is cleared.
func (w *Workbench) Reset() {
	w.mu.Lock()
	w.buffer = DefaultBuffer
	w.lastResult = nil
	w.expanded = make(map[string]struct{})
	w.aiPrompt = ""
	w.pending = OpNone
	w.mu.Unlock()
	w.hub.Broadcast()
}
