package commands

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/askql-labs/askql/internal/backend"
	"github.com/askql-labs/askql/internal/cli/config"
	"github.com/askql-labs/askql/internal/notify"
	"github.com/askql-labs/askql/internal/session"
	"github.com/askql-labs/askql/internal/workbench"
)

// CommandContext holds the wired dependencies shared by CLI commands:
// the backend client plus the session and workbench state containers
// connected to one notification hub. The workbench reset is registered
// as a dataset-cleared hook so a dataset change cascades to both.
type CommandContext struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Client    *backend.Client
	Session   *session.Session
	Workbench *workbench.Workbench
	Hub       *notify.Hub
}

// NewCommandContext builds the dependencies for one command invocation.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	client := backend.New(backend.Config{
		BaseURL: cfg.ServerURL,
		Timeout: cfg.Timeout(),
		Logger:  logger,
	})

	hub := notify.NewHub()
	sess := session.New(session.Config{Client: client, Hub: hub, Logger: logger})
	wb := workbench.New(workbench.Config{Client: client, Hub: hub, Logger: logger})
	sess.OnDatasetCleared(wb.Reset)

	return &CommandContext{
		Cfg:       cfg,
		Logger:    logger,
		Client:    client,
		Session:   sess,
		Workbench: wb,
		Hub:       hub,
	}
}

// getConfig returns the current configuration, falling back to defaults
// when no config was loaded (e.g. in tests driving a command directly).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		ServerURL:    config.DefaultServerURL,
		Model:        config.DefaultModel,
		OutputFormat: config.DefaultOutput,
		HistoryFile:  config.DefaultHistoryFile,
	}
}

// resolveFormat returns the output format for a command, preferring the
// command-local flag over the configured default.
func resolveFormat(cfg *config.Config, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.OutputFormat
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
