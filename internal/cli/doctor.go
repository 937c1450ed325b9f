package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/d1bridge/internal/errors"
	"github.com/canonica-labs/d1bridge/internal/router"
	"github.com/canonica-labs/d1bridge/pkg/models"
)

func (c *CLI) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run system diagnostics",
		Long: `Run system diagnostics.

Checks:
  - configuration
  - state store and active profile
  - connectivity to the gateway
  - the database selected by the active profile
  - reachability of the remote API (remote profiles)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDoctor(cmd.Context())
		},
	}
}

func (c *CLI) runDoctor(ctx context.Context) error {
	if !c.jsonOutput {
		c.println("d1bridge System Diagnostics")
		c.println("===========================")
		c.println("")
	}

	checks := []DiagnosticCheck{}
	allPassed := true
	record := func(check DiagnosticCheck) {
		checks = append(checks, check)
		if !check.Passed {
			allPassed = false
		}
		if !c.jsonOutput {
			c.printCheck(check)
		}
	}

	record(c.checkConfig())

	profile, profileCheck := c.checkProfile(ctx)
	record(profileCheck)

	gatewayCheck := c.checkGateway(ctx)
	record(gatewayCheck)

	if profile != nil && gatewayCheck.Passed {
		record(c.checkConnection(ctx))
	}
	if profile != nil && profile.IsRemote() {
		record(c.checkRemoteAPI(ctx))
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"checks":     checks,
			"all_passed": allPassed,
		})
	}

	c.println("")
	if allPassed {
		c.println("✓ All checks passed")
	} else {
		c.println("✗ Some checks failed - see above for details")
	}
	return nil
}

// DiagnosticCheck represents a single diagnostic check result.
type DiagnosticCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (c *CLI) printCheck(check DiagnosticCheck) {
	status := "✗"
	if check.Passed {
		status = "✓"
	}
	c.printf("%s %s: %s\n", status, check.Name, check.Message)
	if check.Details != "" && !check.Passed {
		c.printf("  → %s\n", check.Details)
	}
}

// failed fills a failed check from err, using the suggestion of typed
// errors as details.
func failed(check DiagnosticCheck, err error) DiagnosticCheck {
	check.Passed = false
	check.Message = errors.Message(err)
	if b, ok := errors.As(err); ok {
		if b.Reason != "" {
			check.Message = fmt.Sprintf("%s (%s)", b.Message, b.Reason)
		}
		check.Details = b.Suggestion
	}
	return check
}

func (c *CLI) checkConfig() DiagnosticCheck {
	check := DiagnosticCheck{Name: "Configuration"}

	if c.cfg.Endpoint == "" {
		check.Message = "No endpoint configured"
		check.Details = "Set endpoint in config or use --endpoint flag"
		return check
	}

	check.Passed = true
	check.Message = fmt.Sprintf("Endpoint: %s", c.cfg.Endpoint)
	return check
}

func (c *CLI) checkProfile(ctx context.Context) (*models.Profile, DiagnosticCheck) {
	check := DiagnosticCheck{Name: "Active Profile"}

	p, err := c.activeProfile(ctx)
	if err != nil {
		return nil, failed(check, err)
	}
	if p.IsRemote() && (p.APIToken == "" || p.DatabaseID == "") {
		check.Message = fmt.Sprintf("%s (remote) is incomplete", p.ID)
		check.Details = "Set --database-id and --token with 'd1bridge profile update " + p.ID + "'"
		return p, check
	}

	check.Passed = true
	check.Message = fmt.Sprintf("%s (%s)", p.ID, p.Mode)
	return p, check
}

func (c *CLI) checkGateway(ctx context.Context) DiagnosticCheck {
	check := DiagnosticCheck{Name: "Gateway Connectivity"}

	client := NewGatewayClient(c.cfg.Endpoint, c.cfg.Server.Prefix, router.Credentials{})
	health, err := client.Health(ctx)
	if err != nil {
		return failed(check, err)
	}

	check.Passed = true
	check.Message = fmt.Sprintf("Connected to %s (version %s)", c.cfg.Endpoint, health.Version)
	return check
}

func (c *CLI) checkConnection(ctx context.Context) DiagnosticCheck {
	check := DiagnosticCheck{Name: "Database Connection"}

	client, err := c.newGatewayClient(ctx)
	if err != nil {
		return failed(check, err)
	}
	if err := client.Ping(ctx); err != nil {
		return failed(check, err)
	}

	mode := "local"
	if client.Credentials().Remote() {
		mode = "remote"
	}
	check.Passed = true
	check.Message = fmt.Sprintf("Served in %s mode", mode)
	return check
}

// checkRemoteAPI verifies the remote API endpoint answers at all. Any HTTP
// status counts as reachable.
func (c *CLI) checkRemoteAPI(ctx context.Context) DiagnosticCheck {
	check := DiagnosticCheck{Name: "Remote API"}
	endpoint := c.cfg.Remote.Endpoint

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return failed(check, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return failed(check, errors.NewTransportFault(endpoint, err))
	}
	resp.Body.Close()

	check.Passed = true
	check.Message = fmt.Sprintf("%s reachable (HTTP %d)", endpoint, resp.StatusCode)
	return check
}
