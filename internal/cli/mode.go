package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func (c *CLI) newModeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mode",
		Short: "Show which connection modes the gateway can serve",
		Long: `Ask the gateway whether a local database is bound and whether remote
mode is enabled. No database is contacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMode(cmd.Context())
		},
	}
}

func (c *CLI) runMode(ctx context.Context) error {
	client, err := c.newGatewayClient(ctx)
	if err != nil {
		return err
	}
	info, err := client.Mode(ctx)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(info)
	}

	c.printf("Gateway:     %s\n", client.Endpoint())
	c.printf("Local:       %s\n", availability(info.Local))
	c.printf("Remote:      %s\n", availability(info.Remote))
	c.printf("Has binding: %v\n", info.HasBinding)
	if client.Credentials().Remote() {
		c.println("Requests from this profile are served remotely.")
	} else {
		c.println("Requests from this profile are served locally.")
	}
	return nil
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "unavailable"
}

func (c *CLI) newDatabasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List databases",
		Long: `List the databases reachable with the active profile: the D1 databases
of the account in remote mode, or the bound database in local mode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDatabases(cmd.Context())
		},
	}
}

func (c *CLI) runDatabases(ctx context.Context) error {
	client, err := c.newGatewayClient(ctx)
	if err != nil {
		return err
	}
	dbs, err := client.Databases(ctx)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"databases": dbs,
		})
	}

	rows := make([][]string, 0, len(dbs))
	for _, db := range dbs {
		name, _ := db.Get("name")
		uuid, _ := db.Get("uuid")
		created, _ := db.Get("created_at")
		rows = append(rows, []string{cellString(name), cellString(uuid), cellString(created)})
	}
	if err := c.renderTable([]string{"NAME", "UUID", "CREATED"}, rows); err != nil {
		return err
	}
	c.printf("%d database(s)\n", len(dbs))
	return nil
}
