// Package tui provides the Bubble Tea terminal interface: a scrolling
// conversation transcript with a schema sidebar, driven by the shared
// session and workbench state containers.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/askql-labs/askql/internal/backend"
	"github.com/askql-labs/askql/internal/notify"
	"github.com/askql-labs/askql/internal/session"
	"github.com/askql-labs/askql/internal/workbench"
)

// Layout constants for viewport height calculation.
const (
	inputLines   = 1
	statusLines  = 1
	minViewport  = 3
	sidebarWidth = 28
)

// Slash commands handled by the input line.
const (
	cmdSQL      = "/sql"
	cmdGenerate = "/gen"
	cmdTable    = "/table"
	cmdReset    = "/reset"
	cmdQuit     = "/quit"
)

// Config holds the TUI dependencies.
type Config struct {
	Session   *session.Session
	Workbench *workbench.Workbench
	Hub       *notify.Hub
	Model     backend.ModelType
	ServerURL string
}

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	session   *session.Session
	workbench *workbench.Workbench
	hub       *notify.Hub
	modelType backend.ModelType
	serverURL string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	updates chan struct{}
	busy    bool
	status  string

	width  int
	height int
	ready  bool

	styles Styles
}

// New creates the chat interface model.
func New(cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question about your data (or /sql, /gen, /quit)"
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	styles := DefaultStyles()
	sp.Style = styles.Spinner

	return Model{
		session:   cfg.Session,
		workbench: cfg.Workbench,
		hub:       cfg.Hub,
		modelType: cfg.Model,
		serverURL: cfg.ServerURL,
		input:     ti,
		spinner:   sp,
		updates:   cfg.Hub.Subscribe(),
		styles:    styles,
	}
}

// Init subscribes to state updates and starts the input blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate())
}

// waitForUpdate returns a command that resolves on the next hub ping.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		<-m.updates
		return stateUpdatedMsg{}
	}
}

// askCmd runs a question through the session off the event loop.
func (m Model) askCmd(question string) tea.Cmd {
	sess, model := m.session, m.modelType
	return func() tea.Msg {
		sess.AskQuestion(context.Background(), question, model)
		return askDoneMsg{}
	}
}

// runSQLCmd executes a raw statement through the workbench.
func (m Model) runSQLCmd(sql string) tea.Cmd {
	wb := m.workbench
	return func() tea.Msg {
		wb.SetBuffer(sql)
		wb.RunQuery(context.Background())
		return workbenchDoneMsg{}
	}
}

// generateCmd turns a prompt into SQL in the workbench buffer.
func (m Model) generateCmd(prompt string) tea.Cmd {
	wb, model := m.workbench, m.modelType
	return func() tea.Msg {
		wb.SetPrompt(prompt)
		wb.GenerateFromPrompt(context.Background(), model)
		return workbenchDoneMsg{}
	}
}

// parseInput splits a submitted line into a slash command and its
// argument. Plain text is a question.
func parseInput(line string) (cmd, arg string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", line
	}
	cmd, arg, _ = strings.Cut(line, " ")
	return cmd, strings.TrimSpace(arg)
}
