package cli

import (
	"github.com/spf13/cobra"

	"github.com/canonica-labs/d1bridge/internal/adapters/local"
)

func (c *CLI) newDriverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "driver",
		Short: "Local database driver inspection",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the drivers a local database can be bound with",
		Long: `List the drivers compiled into d1bridge for the local.driver setting,
with the SQL dialect used for their catalog statements.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDriverList()
		},
	})

	return cmd
}

// DriverInfo describes one local driver.
type DriverInfo struct {
	Name     string `json:"name"`
	SQLName  string `json:"sql_driver"`
	Dialect  string `json:"dialect"`
	Selected bool   `json:"selected"`
}

func (c *CLI) runDriverList() error {
	var drivers []DriverInfo
	for _, name := range local.Drivers.Available() {
		d, _ := local.Drivers.Get(name)
		drivers = append(drivers, DriverInfo{
			Name:     d.Name,
			SQLName:  d.SQLDriver,
			Dialect:  d.Dialect.Name,
			Selected: c.cfg != nil && c.cfg.Local.Driver == d.Name,
		})
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"drivers": drivers,
		})
	}

	rows := make([][]string, len(drivers))
	for i, d := range drivers {
		marker := ""
		if d.Selected {
			marker = "*"
		}
		rows[i] = []string{marker, d.Name, d.SQLName, d.Dialect}
	}
	return c.renderTable([]string{"", "NAME", "SQL DRIVER", "DIALECT"}, rows)
}
