package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/d1bridge/internal/config"
)

func (c *CLI) newInitCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Long: `Write the default configuration to ~/.d1bridge/config.yaml, or to the
path given with --output. An existing file is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInit(output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "configuration file to write")

	return cmd
}

func (c *CLI) runInit(output string) error {
	if output == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		output = filepath.Join(home, ".d1bridge", "config.yaml")
	}

	if err := config.WriteDefault(output); err != nil {
		return err
	}
	absPath, _ := filepath.Abs(output)

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"status": "created",
			"path":   absPath,
		})
	}

	c.printf("✓ Configuration file created: %s\n", absPath)
	c.println("\nNext steps:")
	c.println("  1. Set local.dsn to bind a local database to the gateway")
	c.println("  2. Start the gateway binary (cmd/gateway)")
	c.println("  3. Add a remote profile with 'd1bridge profile add --mode remote'")
	return nil
}
