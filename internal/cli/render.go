package cli

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/canonica-labs/d1bridge/internal/result"
)

// renderTable prints a header and rows as a table.
func (c *CLI) renderTable(header []string, rows [][]string) error {
	if c.quiet {
		return nil
	}
	data := pterm.TableData{header}
	data = append(data, rows...)

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	fmt.Fprintln(c.out, out)
	return nil
}

// renderCanonical prints a canonical result, or its write stats when it
// has no columns.
func (c *CLI) renderCanonical(res *result.CanonicalQueryResult) error {
	if len(res.Columns) == 0 {
		if res.Meta != nil {
			c.printf("%d row(s) written in %.2fms\n", res.Meta.RowsWritten, res.Meta.Duration)
		} else {
			c.println("(no rows)")
		}
		return nil
	}

	rows := make([][]string, len(res.Rows))
	for i, row := range res.Rows {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = cellString(cell)
		}
	}
	if err := c.renderTable(res.Columns, rows); err != nil {
		return err
	}
	c.printf("%d row(s)\n", len(res.Rows))
	return nil
}

func cellString(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
