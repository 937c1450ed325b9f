package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func (c *CLI) newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Gateway audit commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Show aggregated gateway operation statistics",
		Long: `Show request counts by outcome, mode and operation, and the most
frequent errors. No statements or result rows are included.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAuditSummary(cmd.Context())
		},
	})

	return cmd
}

func (c *CLI) runAuditSummary(ctx context.Context) error {
	client, err := c.newGatewayClient(ctx)
	if err != nil {
		return err
	}
	summary, err := client.AuditSummary(ctx)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(summary)
	}

	c.println("Audit Summary")
	c.println("=============")
	c.printf("Succeeded: %d\n", summary.SuccessCount)
	c.printf("Failed:    %d\n", summary.FailureCount)

	if len(summary.ModeCounts) > 0 {
		modes := make([]string, 0, len(summary.ModeCounts))
		for m := range summary.ModeCounts {
			modes = append(modes, m)
		}
		sort.Strings(modes)
		c.println("")
		c.println("By mode:")
		for _, m := range modes {
			c.printf("  %-8s %d\n", m, summary.ModeCounts[m])
		}
	}

	if len(summary.TopOperations) > 0 {
		rows := make([][]string, len(summary.TopOperations))
		for i, op := range summary.TopOperations {
			rows[i] = []string{op.Operation, fmt.Sprint(op.Count)}
		}
		c.println("")
		if err := c.renderTable([]string{"OPERATION", "COUNT"}, rows); err != nil {
			return err
		}
	}

	if len(summary.TopErrors) > 0 {
		rows := make([][]string, len(summary.TopErrors))
		for i, e := range summary.TopErrors {
			rows[i] = []string{e.Error, fmt.Sprint(e.Count)}
		}
		c.println("")
		if err := c.renderTable([]string{"ERROR", "COUNT"}, rows); err != nil {
			return err
		}
	}
	return nil
}
