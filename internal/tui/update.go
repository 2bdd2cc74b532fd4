package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Messages delivered to the update loop.
type (
	stateUpdatedMsg  struct{}
	askDoneMsg       struct{}
	workbenchDoneMsg struct{}
)

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if cmd := m.submit(); cmd != nil {
				cmds = append(cmds, cmd, m.spinner.Tick)
			}
		}

	case stateUpdatedMsg:
		m.refreshTranscript()
		cmds = append(cmds, m.waitForUpdate())

	case askDoneMsg, workbenchDoneMsg:
		m.busy = false
		m.status = ""
		m.refreshTranscript()

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit consumes the input line and dispatches the matching command.
// Returns nil when there is nothing to do.
func (m *Model) submit() tea.Cmd {
	if m.busy {
		return nil
	}
	cmd, arg := parseInput(m.input.Value())
	m.input.SetValue("")

	switch cmd {
	case cmdQuit:
		return tea.Quit

	case cmdReset:
		m.session.ChangeDataset()
		m.refreshTranscript()
		return nil

	case cmdTable:
		if arg != "" {
			m.workbench.ToggleTableExpansion(arg)
		}
		return nil

	case cmdSQL:
		if arg == "" {
			return nil
		}
		m.busy = true
		m.status = "running query..."
		return m.runSQLCmd(arg)

	case cmdGenerate:
		if arg == "" {
			return nil
		}
		m.busy = true
		m.status = "generating SQL..."
		return m.generateCmd(arg)

	default:
		if arg == "" {
			return nil
		}
		m.busy = true
		m.status = "thinking..."
		return m.askCmd(arg)
	}
}

// layout recomputes the viewport dimensions after a resize.
func (m *Model) layout() {
	height := m.height - inputLines - statusLines - 2
	if height < minViewport {
		height = minViewport
	}
	width := m.width - sidebarWidth - 3
	if width < 20 {
		width = m.width
	}
	if !m.ready {
		m.viewport = viewport.New(width, height)
	} else {
		m.viewport.Width = width
		m.viewport.Height = height
	}
	m.refreshTranscript()
}
