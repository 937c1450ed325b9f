package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/d1bridge/internal/errors"
)

func (c *CLI) newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query execution commands",
		Long:  `Execute SQL statements through the d1bridge gateway.`,
	}

	cmd.AddCommand(c.newQueryExecCmd())
	cmd.AddCommand(c.newQueryPingCmd())

	return cmd
}

func (c *CLI) newQueryExecCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "exec [SQL]",
		Short: "Execute a SQL statement",
		Long: `Execute one SQL statement through the d1bridge gateway.

The statement is sent as is; the gateway does not parse or validate it.
Use --file to read it from a file, or "-" for standard input.

Example:
  d1bridge query exec "SELECT * FROM users LIMIT 10"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := c.statement(args, file)
			if err != nil {
				return err
			}
			return c.runQueryExec(cmd.Context(), sql)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the statement from a file")

	return cmd
}

// statement returns the SQL given as argument or read from file.
func (c *CLI) statement(args []string, file string) (string, error) {
	switch {
	case len(args) == 1 && file != "":
		return "", errors.NewBadRequest("sql", "give the statement as argument or --file, not both")
	case len(args) == 1:
		return args[0], nil
	case file == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read statement: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read statement: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", errors.NewBadRequest("sql", "SQL query is required")
	}
}

func (c *CLI) runQueryExec(ctx context.Context, sql string) error {
	client, err := c.newGatewayClient(ctx)
	if err != nil {
		return err
	}

	c.debugf("executing: %s\n", sql)
	res, err := client.Query(ctx, sql)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(res)
	}
	return c.renderCanonical(res)
}

func (c *CLI) newQueryPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test the connection of the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQueryPing(cmd.Context())
		},
	}
}

func (c *CLI) runQueryPing(ctx context.Context) error {
	client, err := c.newGatewayClient(ctx)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{"connected": true})
	}
	c.println("✓ Connection successful")
	return nil
}
