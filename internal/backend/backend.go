// Package backend implements the HTTP client for the text-to-SQL agent
// service. The service owns dataset ingestion, SQL generation, and SQL
// execution; this client only speaks its four operations plus a health
// probe and normalizes every failure into a readable message.
package backend

import (
	"github.com/askql-labs/askql/internal/schema"
)

// ModelType selects which generation engine the service should use for a
// request. It is a closed two-valued enumeration.
type ModelType string

// Available generation engines.
const (
	ModelPrimary   ModelType = "primary"
	ModelSecondary ModelType = "secondary"
)

// wire maps the model selector to the value the service expects.
// Unknown values fall back to the primary engine.
func (m ModelType) wire() string {
	if m == ModelSecondary {
		return "local"
	}
	return "openai"
}

// Valid reports whether the selector is one of the two known engines.
func (m ModelType) Valid() bool {
	return m == ModelPrimary || m == ModelSecondary
}

// AgentResult is the structured payload of one answered question.
// When Error is set, Rows is empty and Answer carries a fallback message.
type AgentResult struct {
	SQL      string       `json:"sql"`
	Answer   string       `json:"answer"`
	Rows     []schema.Row `json:"rows"`
	Attempts int          `json:"attempts"`
	Error    string       `json:"error,omitempty"`
}

// QueryResult is the response of a raw SQL execution. A 200 response can
// still carry Error when the statement itself failed.
type QueryResult struct {
	Rows  []schema.Row `json:"rows"`
	Error string       `json:"error,omitempty"`
}

// GenerateResult is the response of an AI SQL-generation request.
// Exactly one of SQL and Error is meaningful.
type GenerateResult struct {
	SQL   string `json:"sql"`
	Error string `json:"error,omitempty"`
}

// UploadResult is the response of a dataset upload.
type UploadResult struct {
	Message string                  `json:"message"`
	Schema  map[string]schema.Table `json:"schema"`
}
