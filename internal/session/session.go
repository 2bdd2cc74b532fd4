// Package session owns the conversational state of one client session:
// the active dataset's schema, the append-only turn log, and the
// single-flight discipline for questions and uploads.
//
// All mutations commit under one mutex and are followed by a hub
// broadcast; consumers read immutable snapshots. Network calls are the
// only blocking points and are issued outside the lock, so the session
// stays readable while a question or upload is in flight.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/askql-labs/askql/internal/backend"
	"github.com/askql-labs/askql/internal/notify"
	"github.com/askql-labs/askql/internal/schema"
)

// FallbackAnswer is the answer text of an agent turn synthesized for a
// failed ask.
const FallbackAnswer = "Sorry, I encountered an error processing your request."

// greetingFormat seeds the conversation after a successful upload.
const greetingFormat = "Successfully loaded %s. You can now ask questions about your data!"

// ErrUploadInFlight is returned when an upload is rejected because
// another upload has not settled yet.
var ErrUploadInFlight = errors.New("an upload is already in progress")

// Collaborator is the slice of the backend client the session needs.
type Collaborator interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*backend.UploadResult, error)
	Ask(ctx context.Context, question string, model backend.ModelType) (*backend.AgentResult, error)
}

// Config holds the session dependencies.
type Config struct {
	Client Collaborator
	Hub    *notify.Hub
	Logger *slog.Logger
}

// Session is the top-level state owner. It exclusively owns the schema
// model and the conversation log; the workbench is an independent
// sibling that registers a reset hook to be cleared alongside the
// dataset.
type Session struct {
	client Collaborator
	hub    *notify.Hub
	logger *slog.Logger

	mu           sync.Mutex
	hasDataset   bool
	schema       *schema.Model
	turns        []Turn
	pendingQuery bool
	uploading    bool
	resetHooks   []func()
}

// Snapshot is an immutable view of the session state.
type Snapshot struct {
	HasDataset   bool          `json:"has_dataset"`
	Schema       *schema.Model `json:"-"`
	Turns        []Turn        `json:"turns"`
	PendingQuery bool          `json:"pending_query"`
	Uploading    bool          `json:"uploading"`
}

// New creates an empty session with no dataset loaded.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	hub := cfg.Hub
	if hub == nil {
		hub = notify.NewHub()
	}
	return &Session{
		client: cfg.Client,
		hub:    hub,
		logger: logger,
	}
}

// Hub returns the notification hub consumers subscribe to.
func (s *Session) Hub() *notify.Hub { return s.hub }

// OnDatasetCleared registers a hook that runs whenever the dataset is
// cleared. The workbench registers its Reset here so a dataset change
// cascades to both state containers.
func (s *Session) OnDatasetCleared(fn func()) {
	s.mu.Lock()
	s.resetHooks = append(s.resetHooks, fn)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state. The turn slice is a
// fresh copy; the schema model is shared but read-only after load.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := make([]Turn, len(s.turns))
	copy(turns, s.turns)
	return Snapshot{
		HasDataset:   s.hasDataset,
		Schema:       s.schema,
		Turns:        turns,
		PendingQuery: s.pendingQuery,
		Uploading:    s.uploading,
	}
}

// Schema returns the active schema model, nil when no dataset is loaded.
func (s *Session) Schema() *schema.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema
}

// AppendUserTurn appends a user turn and marks a query as pending.
// Text that trims to empty is silently ignored, matching the input
// surface's own gate. Returns the appended turn and whether it was
// accepted.
func (s *Session) AppendUserTurn(text string) (Turn, bool) {
	if strings.TrimSpace(text) == "" {
		return Turn{}, false
	}

	s.mu.Lock()
	turn := Turn{ID: newTurnID(), Role: RoleUser, Content: text}
	s.turns = append(s.turns, turn)
	s.pendingQuery = true
	s.mu.Unlock()

	s.hub.Broadcast()
	return turn, true
}

// AppendAgentResult appends an agent turn carrying a full result and
// clears the pending flag.
func (s *Session) AppendAgentResult(result *backend.AgentResult) Turn {
	s.mu.Lock()
	turn := Turn{ID: newTurnID(), Role: RoleAgent, Result: result}
	s.turns = append(s.turns, turn)
	s.pendingQuery = false
	s.mu.Unlock()

	s.hub.Broadcast()
	return turn
}

// AppendAgentNotice appends an agent turn carrying plain informational
// text, used for the post-upload greeting.
func (s *Session) AppendAgentNotice(text string) Turn {
	s.mu.Lock()
	turn := Turn{ID: newTurnID(), Role: RoleAgent, Content: text}
	s.turns = append(s.turns, turn)
	s.pendingQuery = false
	s.mu.Unlock()

	s.hub.Broadcast()
	return turn
}

// AskQuestion runs one question through the agent. It is a no-op when a
// question is already in flight or the question trims to empty; the
// return value reports whether the call was dispatched.
//
// The user turn is committed and visible before the network call is
// issued. The call always settles into exactly one agent turn: the
// service result on success, or a synthesized error result carrying the
// failure text. The method never returns an error; ask failures are
// data, not faults.
func (s *Session) AskQuestion(ctx context.Context, question string, model backend.ModelType) bool {
	s.mu.Lock()
	if s.pendingQuery || strings.TrimSpace(question) == "" {
		s.mu.Unlock()
		return false
	}
	s.turns = append(s.turns, Turn{ID: newTurnID(), Role: RoleUser, Content: question})
	s.pendingQuery = true
	s.mu.Unlock()

	s.hub.Broadcast()

	result, err := s.client.Ask(ctx, question, model)
	if err != nil {
		s.logger.Debug("ask failed", "error", err)
		result = errorResult(err)
	}
	s.AppendAgentResult(result)
	return true
}

// errorResult synthesizes the agent result for a failed ask.
func errorResult(err error) *backend.AgentResult {
	msg := backend.FallbackErrorMessage
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &backend.AgentResult{
		Answer: FallbackAnswer,
		Rows:   []schema.Row{},
		Error:  msg,
	}
}

// UploadDataset sends a dataset file to the service. On success the
// schema is replaced and the conversation is reset to a single greeting
// turn. On failure the session is left untouched and the failure is
// returned for the consumer to present. Concurrent uploads are rejected
// with ErrUploadInFlight.
func (s *Session) UploadDataset(ctx context.Context, filename string, r io.Reader) error {
	s.mu.Lock()
	if s.uploading {
		s.mu.Unlock()
		return ErrUploadInFlight
	}
	s.uploading = true
	s.mu.Unlock()

	s.hub.Broadcast()

	res, err := s.client.Upload(ctx, filename, r)

	s.mu.Lock()
	s.uploading = false
	if err != nil {
		s.mu.Unlock()
		s.hub.Broadcast()
		s.logger.Debug("upload failed", "file", filename, "error", err)
		return fmt.Errorf("upload failed: %w", err)
	}

	s.hasDataset = true
	s.schema = schema.Load(res.Schema)
	s.turns = []Turn{{
		ID:      newTurnID(),
		Role:    RoleAgent,
		Content: fmt.Sprintf(greetingFormat, filename),
	}}
	s.pendingQuery = false
	s.mu.Unlock()

	s.hub.Broadcast()
	s.logger.Info("dataset loaded", "file", filename, "tables", s.Schema().Len())
	return nil
}

// ChangeDataset clears the dataset, the schema, and the conversation,
// and runs the registered reset hooks so sibling state (the workbench)
// returns to its initial values. This is the only teardown path.
func (s *Session) ChangeDataset() {
	s.mu.Lock()
	s.hasDataset = false
	s.schema = nil
	s.turns = nil
	s.pendingQuery = false
	hooks := make([]func(), len(s.resetHooks))
	copy(hooks, s.resetHooks)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	s.hub.Broadcast()
}
