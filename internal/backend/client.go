package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// FallbackErrorMessage is used when a failure carries no usable text.
const FallbackErrorMessage = "An unknown error occurred."

// Service paths of the agent backend.
const (
	pathUpload   = "/upload"
	pathAsk      = "/query"
	pathGenerate = "/api/generate_sql"
	pathExecute  = "/api/execute_sql"
	pathHealth   = "/health"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the root of the agent service, e.g. http://localhost:8000.
	BaseURL string
	// Timeout bounds each request. Zero means no client-side timeout:
	// an issued call runs until the service settles it.
	Timeout time.Duration
	// Logger receives request-level debug logging. Nil discards.
	Logger *slog.Logger
}

// Client talks to the agent service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client for the given service.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// Upload sends a dataset file and returns the extracted schema.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathUpload, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResult
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask runs the full agent loop for a natural-language question.
func (c *Client) Ask(ctx context.Context, question string, model ModelType) (*AgentResult, error) {
	payload := map[string]string{
		"question":   question,
		"model_type": model.wire(),
	}

	var out AgentResult
	if err := c.postJSON(ctx, pathAsk, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateSQL asks the service to produce SQL for a prompt without
// executing it. A 200 response may carry Error instead of SQL.
func (c *Client) GenerateSQL(ctx context.Context, question string, model ModelType) (*GenerateResult, error) {
	payload := map[string]string{
		"question":   question,
		"model_type": model.wire(),
	}

	var out GenerateResult
	if err := c.postJSON(ctx, pathGenerate, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecuteSQL runs a raw SQL statement against the loaded dataset.
// A 200 response may carry Error when the statement failed.
func (c *Client) ExecuteSQL(ctx context.Context, sql string) (*QueryResult, error) {
	payload := map[string]string{"sql": sql}

	var out QueryResult
	if err := c.postJSON(ctx, pathExecute, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health probes the service liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathHealth, nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}
	return c.do(req, nil)
}

// postJSON issues a JSON POST and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// do executes the request, maps non-2xx responses to errors, and decodes
// a successful body into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "path", req.URL.Path, "error", err)
		return fmt.Errorf("%s", transportMessage(err))
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("request settled",
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s", statusMessage(resp))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusMessage extracts the most specific message available from a
// non-success response: the structured detail field, then the raw body,
// then a generic status line.
func statusMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(body) > 0 {
		var detail struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
			return detail.Detail
		}
		if text := strings.TrimSpace(string(body)); text != "" {
			return text
		}
	}
	return fmt.Sprintf("request failed with status %d", resp.StatusCode)
}

// transportMessage renders a low-level transport failure.
func transportMessage(err error) string {
	if err == nil || err.Error() == "" {
		return FallbackErrorMessage
	}
	return err.Error()
}
