package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askql-labs/askql/internal/render"
)

// AskOptions holds options for the ask command.
type AskOptions struct {
	Format string
}

// NewAskCommand creates the ask command.
func NewAskCommand() *cobra.Command {
	opts := &AskOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the loaded dataset",
		Long: `Ask a plain-language question about the dataset loaded on the
agent service. The service generates SQL, executes it, and returns the
answer together with the query and the result rows.

The service keeps the dataset between calls, so upload once and ask as
many questions as you like.`,
		Example: `  # Ask a question
  askql ask "what were total sales last month?"

  # Use the secondary generation engine
  askql ask -m secondary "top 5 customers by revenue"

  # Output the full result as JSON
  askql ask "count orders per day" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, opts *AskOptions) error {
	cc := NewCommandContext(cmd)
	out := cmd.OutOrStdout()

	model := cc.Cfg.ModelType()
	if !cc.Session.AskQuestion(cmd.Context(), question, model) {
		return fmt.Errorf("question must not be empty")
	}

	snap := cc.Session.Snapshot()
	result := snap.Turns[len(snap.Turns)-1].Result

	format := resolveFormat(cc.Cfg, opts.Format)
	if format == render.FormatJSON {
		return printJSON(out, result)
	}

	_, _ = fmt.Fprintln(out, result.Answer)
	if result.SQL != "" {
		_, _ = fmt.Fprintf(out, "\nSQL: %s\n", result.SQL)
	}
	if result.Error != "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\nError: %s\n", result.Error)
		return nil
	}
	if len(result.Rows) > 0 {
		_, _ = fmt.Fprintln(out)
		if err := render.Rows(out, render.Columns(result.Rows), result.Rows, format); err != nil {
			return err
		}
	}
	if result.Attempts > 1 {
		_, _ = fmt.Fprintf(out, "(%d attempts)\n", result.Attempts)
	}
	return nil
}
