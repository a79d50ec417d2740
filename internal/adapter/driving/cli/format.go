package cli

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	activeMark = "●"
	greenCheck = "✓"
)

// newTable returns a table writer that renders to out.
func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	return t
}

func applyTableFormat(t table.Writer) {
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Options.DrawBorder = false
	t.Style().Format.Header = text.FormatUpper
}

// truncate cuts s to at most n columns with a trailing ellipsis.
func truncate(s string, n int) string {
	return text.Snip(s, n, "…")
}

// orDash renders a missing optional value.
func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
