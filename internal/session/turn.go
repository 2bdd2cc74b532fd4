package session

import (
	"github.com/askql-labs/askql/internal/backend"
	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn.
type Role string

// Turn roles.
const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one entry in the conversation log. Turns are immutable once
// appended and the log itself is append-only for the life of a dataset.
// Exactly one of Content and Result is meaningful: user turns and the
// post-upload greeting carry Content, answered questions carry Result.
type Turn struct {
	ID      string               `json:"id"`
	Role    Role                 `json:"role"`
	Content string               `json:"content,omitempty"`
	Result  *backend.AgentResult `json:"result,omitempty"`
}

// newTurnID returns a fresh opaque turn identifier. Ordering is carried
// by position in the log, not by the identifier.
func newTurnID() string {
	return uuid.NewString()
}
