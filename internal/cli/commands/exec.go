package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askql-labs/askql/internal/render"
)

// ExecOptions holds options for the exec command.
type ExecOptions struct {
	Format string
	File   string
}

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "exec [sql]",
		Short: "Execute a SQL statement against the loaded dataset",
		Long: `Execute a SQL statement directly against the dataset loaded on the
agent service and print the result rows. The statement can be given as
an argument, read from a file with --file, or piped on stdin.`,
		Example: `  # Execute a statement
  askql exec "SELECT region, SUM(amount) FROM sales GROUP BY region"

  # Read the statement from a file
  askql exec --file report.sql

  # Pipe from stdin and emit CSV
  cat report.sql | askql exec -f csv`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readStatement(cmd, args, opts)
			if err != nil {
				return err
			}
			return runExec(cmd, sql, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")
	cmd.Flags().StringVar(&opts.File, "file", "", "Read the SQL statement from a file")

	return cmd
}

func readStatement(cmd *cobra.Command, args []string, opts *ExecOptions) (string, error) {
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", opts.File, err)
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func runExec(cmd *cobra.Command, sql string, opts *ExecOptions) error {
	cc := NewCommandContext(cmd)
	out := cmd.OutOrStdout()

	cc.Workbench.SetBuffer(sql)
	if !cc.Workbench.RunQuery(cmd.Context()) {
		return fmt.Errorf("no SQL statement to execute")
	}

	snap := cc.Workbench.Snapshot()
	if snap.LastResult == nil {
		return fmt.Errorf("no result")
	}
	if snap.LastResult.Error != "" {
		return errors.New(snap.LastResult.Error)
	}

	format := resolveFormat(cc.Cfg, opts.Format)
	rows := snap.LastResult.Rows
	return render.Rows(out, render.Columns(rows), rows, format)
}
