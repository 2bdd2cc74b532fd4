package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/askql-labs/askql/internal/backend"
	"github.com/askql-labs/askql/internal/render"
)

// WorkbenchOptions holds options for the workbench command.
type WorkbenchOptions struct {
	Format string
}

// NewWorkbenchCommand creates the workbench command.
func NewWorkbenchCommand() *cobra.Command {
	opts := &WorkbenchOptions{}

	cmd := &cobra.Command{
		Use:   "workbench",
		Short: "Interactive SQL workbench",
		Long: `Start an interactive SQL workbench against the agent service. SQL
statements end with a semicolon and run against the loaded dataset;
dot-commands drive the session (type .help inside the workbench).

The .ai command turns a plain-language prompt into SQL and places the
generated statement in the edit buffer, where it can be reviewed and
run with .run or replaced by typing a new statement.`,
		Example: `  # Start the workbench
  askql workbench

  # Start with a dataset loaded
  askql workbench --load sales.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorkbench(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")
	cmd.Flags().String("load", "", "Upload a dataset before starting")

	return cmd
}

func runWorkbench(cmd *cobra.Command, opts *WorkbenchOptions) error {
	cc := NewCommandContext(cmd)
	out := cmd.OutOrStdout()
	format := resolveFormat(cc.Cfg, opts.Format)
	model := cc.Cfg.ModelType()

	if load, _ := cmd.Flags().GetString("load"); load != "" {
		if err := uploadFile(cmd, cc, load); err != nil {
			return err
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "askql> ",
		HistoryFile:     cc.Cfg.HistoryFile,
		AutoComplete:    workbenchCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize workbench: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(out, "AskQL Workbench (service: %s)\n", cc.Cfg.ServerURL)
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	var multiLineBuffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			multiLineBuffer.Reset()
			rl.SetPrompt("askql> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") && multiLineBuffer.Len() == 0 {
			quit := handleWorkbenchCommand(cmd, cc, line, format, &model)
			if quit {
				break
			}
			continue
		}

		multiLineBuffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			multiLineBuffer.WriteString(" ")
			rl.SetPrompt("  ...> ")
			continue
		}
		rl.SetPrompt("askql> ")

		cc.Workbench.SetBuffer(multiLineBuffer.String())
		multiLineBuffer.Reset()
		runBuffer(cmd, cc, format)
	}

	return nil
}

func handleWorkbenchCommand(cmd *cobra.Command, cc *CommandContext, line, format string, model *backend.ModelType) (quit bool) {
	out := cmd.OutOrStdout()
	errw := cmd.ErrOrStderr()
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printWorkbenchHelp(out)

	case ".load":
		if arg == "" {
			_, _ = fmt.Fprintln(errw, "Usage: .load <file.csv>")
			break
		}
		if err := uploadFile(cmd, cc, arg); err != nil {
			_, _ = fmt.Fprintf(errw, "Error: %v\n", err)
		}

	case ".tables":
		m := cc.Session.Schema()
		if m == nil || m.Len() == 0 {
			_, _ = fmt.Fprintln(out, "no dataset loaded")
			break
		}
		for _, name := range m.Tables() {
			_, _ = fmt.Fprintln(out, name)
		}

	case ".schema":
		m := cc.Session.Schema()
		if m == nil || m.Len() == 0 {
			_, _ = fmt.Fprintln(out, "no dataset loaded")
			break
		}
		if arg == "" {
			render.SchemaSummary(out, m)
			break
		}
		tbl, ok := m.Table(arg)
		if !ok {
			_, _ = fmt.Fprintf(errw, "unknown table: %s\n", arg)
			break
		}
		render.SchemaTable(out, arg, tbl)

	case ".ai":
		if arg == "" {
			_, _ = fmt.Fprintln(errw, "Usage: .ai <question>")
			break
		}
		cc.Workbench.SetPrompt(arg)
		if !cc.Workbench.GenerateFromPrompt(cmd.Context(), *model) {
			break
		}
		snap := cc.Workbench.Snapshot()
		if snap.LastResult != nil && snap.LastResult.Error != "" {
			_, _ = fmt.Fprintf(errw, "Error: %s\n", snap.LastResult.Error)
			break
		}
		_, _ = fmt.Fprintf(out, "-- generated SQL (run with .run)\n%s\n", snap.Buffer)

	case ".run":
		runBuffer(cmd, cc, format)

	case ".buffer":
		_, _ = fmt.Fprintln(out, cc.Workbench.Buffer())

	case ".model":
		if arg == "" {
			_, _ = fmt.Fprintln(out, string(*model))
			break
		}
		next := backend.ModelType(arg)
		if !next.Valid() {
			_, _ = fmt.Fprintf(errw, "invalid model %q (primary or secondary)\n", arg)
			break
		}
		*model = next

	case ".reset":
		cc.Session.ChangeDataset()
		_, _ = fmt.Fprintln(out, "dataset cleared")

	case ".clear":
		fmt.Print("\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(errw, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func runBuffer(cmd *cobra.Command, cc *CommandContext, format string) {
	out := cmd.OutOrStdout()
	errw := cmd.ErrOrStderr()

	if !cc.Workbench.RunQuery(cmd.Context()) {
		_, _ = fmt.Fprintln(errw, "Error: empty query buffer")
		return
	}
	snap := cc.Workbench.Snapshot()
	if snap.LastResult == nil {
		return
	}
	if snap.LastResult.Error != "" {
		_, _ = fmt.Fprintf(errw, "Error: %s\n", snap.LastResult.Error)
		return
	}
	rows := snap.LastResult.Rows
	if err := render.Rows(out, render.Columns(rows), rows, format); err != nil {
		_, _ = fmt.Fprintf(errw, "Error: %v\n", err)
	}
	_, _ = fmt.Fprintln(out)
}

func uploadFile(cmd *cobra.Command, cc *CommandContext, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := cc.Session.UploadDataset(cmd.Context(), filepath.Base(path), f); err != nil {
		return err
	}
	snap := cc.Session.Snapshot()
	if len(snap.Turns) > 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), snap.Turns[len(snap.Turns)-1].Content)
	}
	return nil
}

func printWorkbenchHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .load <file>     Upload a CSV dataset
  .tables          List the tables of the loaded dataset
  .schema [table]  Show the dataset schema, or one table
  .ai <question>   Generate SQL from a question into the buffer
  .run             Run the current buffer
  .buffer          Show the current buffer
  .model [name]    Show or switch the generation engine
  .reset           Clear the dataset and the conversation
  .clear           Clear the screen
  .quit / .exit    Exit the workbench

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

func workbenchCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".load"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema"),
		readline.PcItem(".ai"),
		readline.PcItem(".run"),
		readline.PcItem(".buffer"),
		readline.PcItem(".model",
			readline.PcItem("primary"),
			readline.PcItem("secondary"),
		),
		readline.PcItem(".reset"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
	)
}
