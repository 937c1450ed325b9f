// Package cli provides the d1bridge command-line interface.
// The CLI is a client of the gateway: every database operation goes over
// HTTP, carrying the active profile's credentials.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/d1bridge/internal/config"
	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/internal/router"
	"github.com/canonica-labs/d1bridge/internal/storage"
	"github.com/canonica-labs/d1bridge/pkg/models"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitValidation  = 1
	ExitUnavailable = 2
	ExitBackend     = 3
	ExitInternal    = 4
)

// Build information, overridden through SetVersionInfo.
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

// CLI holds the command-line interface state.
type CLI struct {
	rootCmd *cobra.Command
	cfg     *config.Config
	out     io.Writer
	errOut  io.Writer

	state    *storage.DB
	profiles *storage.ProfileService

	// Global flags
	configPath string
	endpoint   string
	profile    string
	jsonOutput bool
	quiet      bool
	debug      bool
}

// New creates a new CLI instance.
func New() *CLI {
	cli := &CLI{out: os.Stdout, errOut: os.Stderr}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

// SetOutput redirects standard and error output.
func (c *CLI) SetOutput(out, errOut io.Writer) {
	c.out = out
	c.errOut = errOut
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(errOut)
}

// SetArgs sets the arguments of the next Execute.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// Execute runs the CLI and returns the process exit code.
func (c *CLI) Execute() int {
	defer c.close()

	if err := c.rootCmd.Execute(); err != nil {
		c.errorf("Error: %v\n", err)
		return ExitCode(err)
	}
	return ExitSuccess
}

// ExitCode maps an error onto the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	b, ok := errors.As(err)
	if !ok {
		return ExitInternal
	}
	switch b.Code {
	case errors.CodeValidation, errors.CodeNotFound, errors.CodeTooLarge:
		return ExitValidation
	case errors.CodeUnavailable:
		return ExitUnavailable
	case errors.CodeBackend:
		return ExitBackend
	default:
		return ExitInternal
	}
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "d1bridge",
		Short: "d1bridge - one HTTP surface for local and remote D1 databases",
		Long: `d1bridge browses and edits a SQL database through the d1bridge gateway.

The gateway serves a local database when one is bound, or a remote
Cloudflare D1 database when the request carries account credentials.
Connection profiles decide which credentials the CLI forwards.`,
		Version:       VersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	// Global flags
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.d1bridge/config.yaml)")
	cmd.PersistentFlags().StringVar(&c.endpoint, "endpoint", "", "gateway endpoint")
	cmd.PersistentFlags().StringVar(&c.profile, "profile", "", "connection profile (overrides the active one)")
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVar(&c.quiet, "quiet", false, "suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "verbose debug logs")

	cmd.AddCommand(c.newModeCmd())
	cmd.AddCommand(c.newDatabasesCmd())
	cmd.AddCommand(c.newQueryCmd())
	cmd.AddCommand(c.newTableCmd())
	cmd.AddCommand(c.newProfileCmd())
	cmd.AddCommand(c.newAuditCmd())
	cmd.AddCommand(c.newDriverCmd())
	cmd.AddCommand(c.newInitCmd())
	cmd.AddCommand(c.newDoctorCmd())
	cmd.AddCommand(c.newVersionCmd())

	return cmd
}

func (c *CLI) initConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	// Override with flags
	if c.endpoint != "" {
		c.cfg.Endpoint = c.endpoint
	}
	if c.profile != "" {
		c.cfg.Profile = c.profile
	}

	return nil
}

// profileService opens the state store and keyring on first use.
func (c *CLI) profileService(ctx context.Context) (*storage.ProfileService, error) {
	if c.profiles != nil {
		return c.profiles, nil
	}

	db, err := storage.Open(ctx, c.cfg.State.Driver, c.cfg.State.DSN)
	if err != nil {
		return nil, err
	}
	secrets, err := storage.OpenKeyring(storage.KeyringConfig{
		Backend:  c.cfg.Keyring.Backend,
		Dir:      c.cfg.Keyring.Dir,
		Password: c.cfg.Keyring.Password,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	svc := storage.NewProfileService(storage.NewSQLRepository(db), secrets)
	if err := svc.EnsureDefault(ctx); err != nil {
		db.Close()
		return nil, err
	}
	c.debugf("state store: %s %s\n", c.cfg.State.Driver, c.cfg.State.DSN)

	c.state = db
	c.profiles = svc
	return svc, nil
}

// activeProfile returns the --profile / config override, else the stored
// active profile.
func (c *CLI) activeProfile(ctx context.Context) (*models.Profile, error) {
	svc, err := c.profileService(ctx)
	if err != nil {
		return nil, err
	}
	if c.cfg.Profile != "" {
		return svc.Get(ctx, c.cfg.Profile)
	}
	return svc.Active(ctx)
}

// newGatewayClient creates a gateway client forwarding the credentials of
// the active profile. Local profiles forward nothing.
func (c *CLI) newGatewayClient(ctx context.Context) (*GatewayClient, error) {
	p, err := c.activeProfile(ctx)
	if err != nil {
		return nil, err
	}

	var creds router.Credentials
	if p.IsRemote() {
		creds = router.Credentials{
			AccountID:  p.AccountID,
			APIToken:   p.APIToken,
			DatabaseID: p.DatabaseID,
		}
	}
	c.debugf("profile %s (%s), gateway %s\n", p.ID, p.Mode, c.cfg.Endpoint)

	return NewGatewayClient(c.cfg.Endpoint, c.cfg.Server.Prefix, creds), nil
}

func (c *CLI) close() {
	if c.state != nil {
		c.state.Close()
		c.state = nil
		c.profiles = nil
	}
}

// Helper functions for output

func (c *CLI) printf(format string, args ...interface{}) {
	if !c.quiet {
		fmt.Fprintf(c.out, format, args...)
	}
}

func (c *CLI) println(args ...interface{}) {
	if !c.quiet {
		fmt.Fprintln(c.out, args...)
	}
}

func (c *CLI) errorf(format string, args ...interface{}) {
	fmt.Fprintf(c.errOut, format, args...)
}

func (c *CLI) debugf(format string, args ...interface{}) {
	if c.debug {
		fmt.Fprintf(c.errOut, "[DEBUG] "+format, args...)
	}
}

func (c *CLI) outputJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
