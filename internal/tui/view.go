package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/askql-labs/askql/internal/render"
	"github.com/askql-labs/askql/internal/session"
)

// Styles holds the lipgloss styles of the interface.
type Styles struct {
	Title    lipgloss.Style
	User     lipgloss.Style
	Agent    lipgloss.Style
	Error    lipgloss.Style
	SQL      lipgloss.Style
	Sidebar  lipgloss.Style
	Table    lipgloss.Style
	Column   lipgloss.Style
	Status   lipgloss.Style
	Spinner  lipgloss.Style
	InputBar lipgloss.Style
}

// DefaultStyles returns the default color scheme.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		User:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Agent:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		SQL:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Sidebar:  lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).PaddingLeft(1),
		Table:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78")),
		Column:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Status:   lipgloss.NewStyle().Faint(true),
		Spinner:  lipgloss.NewStyle().Foreground(lipgloss.Color("63")),
		InputBar: lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderTop(true),
	}
}

// View renders the full screen.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	main := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.viewport.View(),
		m.sidebar(),
	)

	status := ""
	if m.busy {
		status = m.spinner.View() + " " + m.styles.Status.Render(m.status)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.styles.Title.Render("AskQL — "+m.serverURL),
		main,
		status,
		m.styles.InputBar.Width(m.width).Render(m.input.View()),
	)
}

// refreshTranscript rebuilds the viewport content from the session and
// workbench state and scrolls to the latest entry.
func (m *Model) refreshTranscript() {
	snap := m.session.Snapshot()

	var b strings.Builder
	if !snap.HasDataset {
		b.WriteString(m.styles.Status.Render("No dataset loaded. Use `askql upload` or start with --load."))
		b.WriteString("\n\n")
	}
	for _, turn := range snap.Turns {
		m.renderTurn(&b, turn)
	}

	wb := m.workbench.Snapshot()
	if wb.LastResult != nil {
		b.WriteString(m.styles.Title.Render("workbench"))
		b.WriteString("\n")
		if wb.LastResult.Error != "" {
			b.WriteString(m.styles.Error.Render(wb.LastResult.Error))
			b.WriteString("\n")
		} else {
			rows := wb.LastResult.Rows
			b.WriteString(render.RowsString(render.Columns(rows), rows, render.FormatTable))
		}
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *Model) renderTurn(b *strings.Builder, turn session.Turn) {
	switch turn.Role {
	case session.RoleUser:
		b.WriteString(m.styles.User.Render("you: "))
		b.WriteString(turn.Content)
		b.WriteString("\n\n")

	case session.RoleAgent:
		if turn.Result == nil {
			b.WriteString(m.styles.Agent.Render(turn.Content))
			b.WriteString("\n\n")
			return
		}
		b.WriteString(m.styles.Agent.Render(turn.Result.Answer))
		b.WriteString("\n")
		if turn.Result.SQL != "" {
			b.WriteString(m.styles.SQL.Render(turn.Result.SQL))
			b.WriteString("\n")
		}
		if turn.Result.Error != "" {
			b.WriteString(m.styles.Error.Render(turn.Result.Error))
			b.WriteString("\n")
		}
		if len(turn.Result.Rows) > 0 {
			rows := turn.Result.Rows
			b.WriteString(render.RowsString(render.Columns(rows), rows, render.FormatTable))
		}
		b.WriteString("\n")
	}
}

// sidebar renders the schema tree. Expanded tables list their columns;
// toggle with /table <name>.
func (m Model) sidebar() string {
	model := m.session.Schema()

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("schema"))
	b.WriteString("\n")
	if model == nil || model.Len() == 0 {
		b.WriteString(m.styles.Status.Render("(empty)"))
	}
	if model != nil {
		for _, name := range model.Tables() {
			tbl, _ := model.Table(name)
			b.WriteString(m.styles.Table.Render(name))
			b.WriteString("\n")
			if m.workbench.IsExpanded(name) {
				for _, col := range tbl.Columns {
					b.WriteString(m.styles.Column.Render(fmt.Sprintf("  %s %s", col.Name, col.Type)))
					b.WriteString("\n")
				}
			}
		}
	}
	return m.styles.Sidebar.Width(sidebarWidth).Height(m.viewport.Height).Render(b.String())
}
