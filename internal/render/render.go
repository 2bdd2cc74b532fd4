// Package render formats result rows for terminal output. It is shared
// by the one-shot commands, the workbench REPL, and the chat TUI so all
// surfaces present rows identically.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/askql-labs/askql/internal/schema"
)

// Output formats.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "md"
)

// Columns returns the header order for a row set. When the schema does
// not dictate an order (ask and workbench results are plain mappings),
// the keys of the first row are used, sorted for determinism.
func Columns(rows []schema.Row) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// Rows renders a row set in the requested format. Column order follows
// cols; pass Columns(rows) when no schema order applies.
func Rows(w io.Writer, cols []string, rows []schema.Row, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, rows)
	case FormatCSV:
		return renderCSV(w, cols, rows)
	case FormatMarkdown, "markdown":
		return renderMarkdown(w, cols, rows)
	default:
		return renderTable(w, cols, rows)
	}
}

// RowsString renders a row set to a string, for surfaces that compose
// views in memory.
func RowsString(cols []string, rows []schema.Row, format string) string {
	var sb strings.Builder
	_ = Rows(&sb, cols, rows, format)
	return sb.String()
}

func renderTable(w io.Writer, cols []string, rows []schema.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		out := make(table.Row, len(cols))
		for i, col := range cols {
			out[i] = row.Get(col).String()
		}
		t.AppendRow(out)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderJSON(w io.Writer, rows []schema.Row) error {
	if rows == nil {
		rows = []schema.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderCSV(w io.Writer, cols []string, rows []schema.Row) error {
	_, _ = fmt.Fprintln(w, strings.Join(cols, ","))

	for _, row := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = escapeCSV(row.Get(col).String())
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, cols []string, rows []schema.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cols, " | "))
	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = row.Get(col).String()
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// SchemaTable renders one table of the schema model: its column list
// with types and, when present, the sample-row preview in schema column
// order.
func SchemaTable(w io.Writer, name string, tbl schema.Table) {
	_, _ = fmt.Fprintf(w, "%s (%d columns)\n", name, len(tbl.Columns))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"column", "type"})
	for _, col := range tbl.Columns {
		t.AppendRow(table.Row{col.Name, col.Type})
	}
	t.Render()

	if len(tbl.SampleRows) > 0 {
		_, _ = fmt.Fprintf(w, "sample rows (%d):\n", len(tbl.SampleRows))
		_ = renderTable(w, tbl.ColumnNames(), tbl.SampleRows)
	}
}

// SchemaSummary renders the table list of a schema model.
func SchemaSummary(w io.Writer, m *schema.Model) {
	if m == nil || m.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(no dataset loaded)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"table", "columns"})
	for _, name := range m.Tables() {
		tbl, _ := m.Table(name)
		t.AppendRow(table.Row{name, len(tbl.Columns)})
	}
	t.Render()
}
