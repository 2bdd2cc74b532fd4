package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the agent service is reachable",
		Long: `Probe the agent service health endpoint and report whether the
service is up.`,
		Example: `  # Check the default service
  askql status

  # Check a specific service
  askql status --server http://agent.internal:8000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			out := cmd.OutOrStdout()

			if err := cc.Client.Health(cmd.Context()); err != nil {
				return fmt.Errorf("service at %s is not healthy: %w", cc.Cfg.ServerURL, err)
			}
			_, _ = fmt.Fprintf(out, "service at %s is healthy\n", cc.Cfg.ServerURL)
			return nil
		},
	}
}
