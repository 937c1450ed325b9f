package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/canonica-labs/d1bridge/pkg/models"
)

func (c *CLI) newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage connection profiles",
		Long: `Manage the connection profiles the CLI forwards to the gateway.

A local profile forwards no credentials, so the gateway serves its bound
database. A remote profile forwards a Cloudflare account id, API token and
database id. API tokens are kept in the system keyring, never in the
state database.`,
	}

	cmd.AddCommand(c.newProfileListCmd())
	cmd.AddCommand(c.newProfileShowCmd())
	cmd.AddCommand(c.newProfileAddCmd())
	cmd.AddCommand(c.newProfileUpdateCmd())
	cmd.AddCommand(c.newProfileRemoveCmd())
	cmd.AddCommand(c.newProfileUseCmd())
	cmd.AddCommand(c.newProfileExportCmd())
	cmd.AddCommand(c.newProfileImportCmd())

	return cmd
}

func (c *CLI) newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runProfileList(cmd.Context())
		},
	}
}

func (c *CLI) runProfileList(ctx context.Context) error {
	svc, err := c.profileService(ctx)
	if err != nil {
		return err
	}
	profiles, err := svc.List(ctx)
	if err != nil {
		return err
	}
	active, err := svc.ActiveID(ctx)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"profiles": profiles,
			"active":   active,
		})
	}

	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		marker := ""
		if p.ID == active {
			marker = "*"
		}
		rows = append(rows, []string{marker, p.ID, p.Name, p.Mode, p.DatabaseID})
	}
	return c.renderTable([]string{"", "ID", "NAME", "MODE", "DATABASE"}, rows)
}

func (c *CLI) newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a profile (default: the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return c.runProfileShow(cmd.Context(), id)
		},
	}
}

func (c *CLI) runProfileShow(ctx context.Context, id string) error {
	svc, err := c.profileService(ctx)
	if err != nil {
		return err
	}

	var p *models.Profile
	if id == "" {
		p, err = c.activeProfile(ctx)
	} else {
		p, err = svc.Get(ctx, id)
	}
	if err != nil {
		return err
	}

	shown := *p
	if shown.APIToken != "" {
		shown.APIToken = maskToken(shown.APIToken)
	}

	if c.jsonOutput {
		return c.outputJSON(shown)
	}

	c.printf("ID:          %s\n", shown.ID)
	c.printf("Name:        %s\n", shown.Name)
	c.printf("Mode:        %s\n", shown.Mode)
	if shown.Description != "" {
		c.printf("Description: %s\n", shown.Description)
	}
	if shown.IsRemote() {
		c.printf("Account ID:  %s\n", shown.AccountID)
		c.printf("Database ID: %s\n", shown.DatabaseID)
		c.printf("API token:   %s\n", shown.APIToken)
	}
	return nil
}

// maskToken keeps the last four characters of a token.
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + token[len(token)-4:]
}

type profileFlags struct {
	name        string
	mode        string
	description string
	accountID   string
	databaseID  string
	token       string
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "display name")
	cmd.Flags().StringVar(&f.mode, "mode", models.ModeLocal, "local or remote")
	cmd.Flags().StringVar(&f.description, "description", "", "free-form description")
	cmd.Flags().StringVar(&f.accountID, "account-id", "", "Cloudflare account id (remote)")
	cmd.Flags().StringVar(&f.databaseID, "database-id", "", "D1 database id (remote)")
	cmd.Flags().StringVar(&f.token, "token", "", "Cloudflare API token (remote; prompted when omitted)")
}

func (c *CLI) newProfileAddCmd() *cobra.Command {
	var f profileFlags

	cmd := &cobra.Command{
		Use:   "add [id]",
		Short: "Add a profile",
		Long: `Add a connection profile. Without an id, one is generated.

Example:
  d1bridge profile add prod --name Production --mode remote \
      --account-id 0123abcd --database-id 6f1c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := uuid.NewString()
			if len(args) == 1 {
				id = args[0]
			}
			p := &models.Profile{
				ID:          id,
				Name:        f.name,
				Mode:        f.mode,
				Description: f.description,
				AccountID:   f.accountID,
				DatabaseID:  f.databaseID,
				APIToken:    f.token,
			}
			if p.Name == "" {
				p.Name = id
			}
			return c.runProfileAdd(cmd.Context(), p)
		},
	}

	f.register(cmd)

	return cmd
}

func (c *CLI) runProfileAdd(ctx context.Context, p *models.Profile) error {
	svc, err := c.profileService(ctx)
	if err != nil {
		return err
	}

	if p.IsRemote() && p.APIToken == "" {
		if p.APIToken, err = c.promptToken(); err != nil {
			return err
		}
	}
	if err := svc.Add(ctx, p); err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"status": "created",
			"id":     p.ID,
		})
	}
	c.printf("✓ Profile '%s' added\n", p.ID)
	return nil
}

// promptToken reads an API token from the terminal without echo.
func (c *CLI) promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(c.errOut, "Cloudflare API token: ")
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(c.errOut)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *CLI) newProfileUpdateCmd() *cobra.Command {
	var f profileFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a profile",
		Long: `Update the given fields of a profile. Omitted flags keep their value,
including the stored API token.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runProfileUpdate(cmd, args[0], &f)
		},
	}

	f.register(cmd)

	return cmd
}

func (c *CLI) runProfileUpdate(cmd *cobra.Command, id string, f *profileFlags) error {
	ctx := cmd.Context()
	svc, err := c.profileService(ctx)
	if err != nil {
		return err
	}
	p, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}

	set := cmd.Flags().Changed
	if set("name") {
		p.Name = f.name
	}
	if set("mode") {
		p.Mode = f.mode
	}
	if set("description") {
		p.Description = f.description
	}
	if set("account-id") {
		p.AccountID = f.accountID
	}
	if set("database-id") {
		p.DatabaseID = f.databaseID
	}
	if set("token") {
		p.APIToken = f.token
	}

	if err := svc.Update(ctx, p); err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"status": "updated",
			"id":     p.ID,
		})
	}
	c.printf("✓ Profile '%s' updated\n", p.ID)
	return nil
}

func (c *CLI) newProfileRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a profile and its stored token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runProfileRemove(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runProfileRemove(ctx context.Context, id string) error {
	svc, err := c.profileService(ctx)
	if err != nil {
		return err
	}
	if err := svc.Remove(ctx, id); err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"status": "removed",
			"id":     id,
		})
	}
	c.printf("✓ Profile '%s' removed\n", id)
	return nil
}

func (c *CLI) newProfileUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Make a profile the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runProfileUse(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runProfileUse(ctx context.Context, id string) error {
	svc, err := c.profileService(ctx)
	if err != nil {
		return err
	}
	if err := svc.Use(ctx, id); err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"status": "active",
			"id":     id,
		})
	}
	c.printf("✓ Now using profile '%s'\n", id)
	return nil
}

func (c *CLI) newProfileExportCmd() *cobra.Command {
	var output string
	var withTokens bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export profiles as YAML",
		Long: `Export all profiles as YAML, to standard output or a file.
API tokens are left out unless --with-tokens is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runProfileExport(cmd.Context(), output, withTokens)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of standard output")
	cmd.Flags().BoolVar(&withTokens, "with-tokens", false, "include API tokens")

	return cmd
}

func (c *CLI) runProfileExport(ctx context.Context, output string, withTokens bool) error {
	svc, err := c.profileService(ctx)
	if err != nil {
		return err
	}
	data, err := svc.Export(ctx, withTokens)
	if err != nil {
		return err
	}

	if output == "" {
		_, err := c.out.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	c.printf("✓ Profiles exported to %s\n", output)
	return nil
}

func (c *CLI) newProfileImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import profiles from a YAML export",
		Long: `Create or update every profile of an export file, and activate the
profile that was active when it was exported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runProfileImport(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runProfileImport(ctx context.Context, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read import: %w", err)
	}
	svc, err := c.profileService(ctx)
	if err != nil {
		return err
	}
	n, err := svc.Import(ctx, data)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"status":   "imported",
			"profiles": n,
		})
	}
	c.printf("✓ %d profile(s) imported\n", n)
	return nil
}
