package commands

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/askql-labs/askql/internal/tui"
)

// NewChatCommand creates the chat command.
func NewChatCommand() *cobra.Command {
	opts := &struct {
		Load string
	}{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Full-screen conversational interface",
		Long: `Start the full-screen terminal interface. The left pane holds the
conversation with the agent; the schema of the loaded dataset is shown
alongside it. Questions are answered with the generated SQL and the
result rows inline in the transcript.`,
		Example: `  # Start the chat interface
  askql chat

  # Start with a dataset loaded
  askql chat --load sales.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)

			if opts.Load != "" {
				if err := uploadFile(cmd, cc, opts.Load); err != nil {
					return err
				}
			}

			m := tui.New(tui.Config{
				Session:   cc.Session,
				Workbench: cc.Workbench,
				Hub:       cc.Hub,
				Model:     cc.Cfg.ModelType(),
				ServerURL: cc.Cfg.ServerURL,
			})
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err := p.Run()
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Load, "load", "", "Upload a dataset before starting")

	return cmd
}
