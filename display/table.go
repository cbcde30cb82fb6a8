package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/pterm/pterm"

	"github.com/teranos/psq/peoplesoft"
)

// TableOptions control row rendering
type TableOptions struct {
	Limit    int // 0 = all rows
	MaxWidth int // cells wider than this are truncated; 0 = no limit
}

// DefaultCellWidth keeps wide DESCR columns from wrapping the terminal
const DefaultCellWidth = 40

// RenderTable renders rows as a pterm table with columns in first-seen order.
// Fields a row lacks render as empty cells.
func RenderTable(rs *peoplesoft.ResultSet, opts TableOptions) (string, error) {
	if len(rs.Columns) == 0 {
		return "", nil
	}

	rows := rs.Rows
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}

	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, rs.Columns)
	for _, row := range rows {
		cells := make([]string, len(rs.Columns))
		for i, col := range rs.Columns {
			cells[i] = truncate(sanitize(row[col]), opts.MaxWidth)
		}
		data = append(data, cells)
	}

	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

// PrintTable writes the table followed by a row count footer
func PrintTable(w io.Writer, rs *peoplesoft.ResultSet, opts TableOptions) error {
	table, err := RenderTable(rs, opts)
	if err != nil {
		return err
	}
	if table != "" {
		fmt.Fprintln(w, table)
	}
	fmt.Fprintln(w, RowCountFooter(len(rs.Rows), opts.Limit))
	return nil
}

// RowCountFooter describes how many rows were shown
func RowCountFooter(total, limit int) string {
	switch {
	case total == 1:
		return "1 row"
	case limit > 0 && total > limit:
		return fmt.Sprintf("%d rows (showing first %d)", total, limit)
	default:
		return fmt.Sprintf("%d rows", total)
	}
}

// sanitize keeps multi-line values on one table line
func sanitize(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ").Replace(s)
}

func truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
