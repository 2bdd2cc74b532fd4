package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/askql-labs/askql/internal/render"
)

// NewUploadCommand creates the upload command.
func NewUploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a CSV dataset to the agent service",
		Long: `Upload a CSV file to the agent service. The service ingests the file,
derives its schema, and keeps the dataset available for subsequent
questions and queries.`,
		Example: `  # Upload a dataset
  askql upload sales.csv`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}
	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	out := cmd.OutOrStdout()
	path := args[0]

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
		_, _ = fmt.Fprintln(out, snap.Turns[len(snap.Turns)-1].Content)
	}
	if m := cc.Session.Schema(); m != nil && m.Len() > 0 {
		_, _ = fmt.Fprintln(out)
		render.SchemaSummary(out, m)
	}
	return nil
}
