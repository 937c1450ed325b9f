package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/internal/result"
)

func (c *CLI) newTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Browse and edit tables",
		Long: `Browse the tables of the selected database and edit their rows.

Commands:
  list      - List tables
  describe  - Show the columns of a table
  rows      - Show one page of rows
  count     - Count rows
  insert    - Insert a row
  update    - Update rows matching a WHERE clause
  delete    - Delete rows matching a WHERE clause`,
	}

	cmd.AddCommand(c.newTableListCmd())
	cmd.AddCommand(c.newTableDescribeCmd())
	cmd.AddCommand(c.newTableRowsCmd())
	cmd.AddCommand(c.newTableCountCmd())
	cmd.AddCommand(c.newTableInsertCmd())
	cmd.AddCommand(c.newTableUpdateCmd())
	cmd.AddCommand(c.newTableDeleteCmd())

	return cmd
}

func (c *CLI) newTableListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTableList(cmd.Context())
		},
	}
}

func (c *CLI) runTableList(ctx context.Context) error {
	client, err := c.newGatewayClient(ctx)
	if err != nil {
		return err
	}
	tables, err := client.Tables(ctx)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"tables": tables,
			"count":  len(tables),
		})
	}

	if len(tables) == 0 {
		c.println("No tables.")
		return nil
	}
	rows := make([][]string, 0, len(tables))
	for _, t := range tables {
		name, _ := t.Get("name")
		typ, _ := t.Get("type")
		rows = append(rows, []string{cellString(name), cellString(typ)})
	}
	if err := c.renderTable([]string{"NAME", "TYPE"}, rows); err != nil {
		return err
	}
	c.printf("%d table(s)\n", len(tables))
	return nil
}

func (c *CLI) newTableDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table_name>",
		Short: "Describe the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTableDescribe(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runTableDescribe(ctx context.Context, table string) error {
	client, err := c.newGatewayClient(ctx)
	if err != nil {
		return err
	}
	schema, err := client.Schema(ctx, table)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(schema)
	}

	c.println("Table:", schema.TableName)
	rows := make([][]string, 0, len(schema.Columns))
	for _, col := range schema.Columns {
		name, _ := col.Get("name")
		typ, _ := col.Get("type")
		notnull, _ := col.Get("notnull")
		dflt, _ := col.Get("dflt_value")
		pk, _ := col.Get("pk")
		rows = append(rows, []string{
			cellString(name), cellString(typ), flag(notnull), cellString(dflt), flag(pk),
		})
	}
	return c.renderTable([]string{"COLUMN", "TYPE", "NOT NULL", "DEFAULT", "PK"}, rows)
}

// flag renders a 0/1 catalog column.
func flag(v interface{}) string {
	switch fmt.Sprint(v) {
	case "", "0", "<nil>", "false":
		return ""
	default:
		return "yes"
	}
}

func (c *CLI) newTableRowsCmd() *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "rows <table_name>",
		Short: "Show one page of rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTableRows(cmd.Context(), args[0], page, pageSize)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "rows per page (max 1000)")

	return cmd
}

func (c *CLI) runTableRows(ctx context.Context, table string, page, pageSize int) error {
	client, err := c.newGatewayClient(ctx)
	if err != nil {
		return err
	}
	rows, err := client.Rows(ctx, table, page, pageSize)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(rows)
	}
	if err := c.renderCanonical(&rows.CanonicalQueryResult); err != nil {
		return err
	}
	c.printf("page %d, %d per page\n", rows.Page, rows.PageSize)
	return nil
}

func (c *CLI) newTableCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count <table_name>",
		Short: "Count the rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTableCount(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runTableCount(ctx context.Context, table string) error {
	client, err := c.newGatewayClient(ctx)
	if err != nil {
		return err
	}
	n, err := client.Count(ctx, table)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"table": table,
			"count": n,
		})
	}
	c.printf("%d\n", n)
	return nil
}

func (c *CLI) newTableInsertCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "insert <table_name>",
		Short: "Insert a row",
		Long: `Insert one row. Columns and values are given as a JSON object.

Example:
  d1bridge table insert users --data '{"name":"Ann","email":"ann@example.com"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseRow(data)
			if err != nil {
				return err
			}
			return c.runTableWrite(cmd.Context(), func(client *GatewayClient) (*result.CanonicalQueryResult, error) {
				return client.Insert(cmd.Context(), args[0], row)
			})
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "row as a JSON object (required)")

	return cmd
}

func (c *CLI) newTableUpdateCmd() *cobra.Command {
	var data, where string

	cmd := &cobra.Command{
		Use:   "update <table_name>",
		Short: "Update rows matching a WHERE clause",
		Long: `Set columns on every row matching a WHERE clause.

Example:
  d1bridge table update users --data '{"email":null}' --where "id = 2"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseRow(data)
			if err != nil {
				return err
			}
			return c.runTableWrite(cmd.Context(), func(client *GatewayClient) (*result.CanonicalQueryResult, error) {
				return client.Update(cmd.Context(), args[0], row, where)
			})
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "columns to set as a JSON object (required)")
	cmd.Flags().StringVar(&where, "where", "", "WHERE clause selecting the rows (required)")

	return cmd
}

func (c *CLI) newTableDeleteCmd() *cobra.Command {
	var where string
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <table_name>",
		Short: "Delete rows matching a WHERE clause",
		Long: `Delete every row matching a WHERE clause.

Requires confirmation unless --force is provided.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				c.printf("Delete rows of '%s' where %s? [y/N]: ", args[0], where)
				var confirm string
				fmt.Scanln(&confirm)
				if strings.ToLower(confirm) != "y" {
					c.println("Cancelled")
					return nil
				}
			}
			return c.runTableWrite(cmd.Context(), func(client *GatewayClient) (*result.CanonicalQueryResult, error) {
				return client.Delete(cmd.Context(), args[0], where)
			})
		},
	}

	cmd.Flags().StringVar(&where, "where", "", "WHERE clause selecting the rows (required)")
	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation")

	return cmd
}

func (c *CLI) runTableWrite(ctx context.Context, write func(*GatewayClient) (*result.CanonicalQueryResult, error)) error {
	client, err := c.newGatewayClient(ctx)
	if err != nil {
		return err
	}
	res, err := write(client)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(res)
	}
	return c.renderCanonical(res)
}

// parseRow decodes a JSON object, keeping its key order.
func parseRow(data string) (*result.Row, error) {
	if strings.TrimSpace(data) == "" {
		return nil, errors.NewBadRequest("data", "Row data is required")
	}
	if !gjson.Valid(data) {
		return nil, errors.NewBadRequest("data", "--data must be valid JSON")
	}
	row := result.NewRow()
	if err := row.UnmarshalJSON([]byte(data)); err != nil {
		return nil, errors.NewBadRequest("data", fmt.Sprintf("--data must be a JSON object: %v", err))
	}
	return row, nil
}
