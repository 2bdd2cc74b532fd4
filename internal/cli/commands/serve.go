package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askql-labs/askql/internal/ui"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session state over HTTP",
		Long: `Expose the conversation, workbench, and upload surfaces as a local
JSON API. Mutating endpoints drive the same session state the other
commands use, and /updates streams a server-sent event whenever the
state changes, so a browser front end can re-fetch and re-render.`,
		Example: `  # Serve on the default port
  askql serve

  # Serve on a specific port
  askql serve --port 9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)

			if port == 0 {
				port = cc.Cfg.ServePort()
			}
			srv := ui.NewServer(ui.ServerConfig{
				Addr:      fmt.Sprintf("127.0.0.1:%d", port),
				Session:   cc.Session,
				Workbench: cc.Workbench,
				Client:    cc.Client,
				Hub:       cc.Hub,
				Logger:    cc.Logger,
			})
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "listening on http://127.0.0.1:%d\n", port)
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on")

	return cmd
}
