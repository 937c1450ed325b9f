package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/d1bridge/internal/router"
)

// SetVersionInfo records the build information passed in by ldflags.
// Empty values keep the defaults. Call it before New.
func SetVersionInfo(version, commit, date string) {
	if version != "" {
		Version = version
	}
	if commit != "" {
		GitCommit = commit
	}
	if date != "" {
		BuildDate = date
	}
}

// VersionString is the one-line build description printed by --version.
func VersionString() string {
	return fmt.Sprintf("d1bridge version %s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}

// VersionInfo describes the CLI build and the gateway it talks to.
type VersionInfo struct {
	Version   string     `json:"version"`
	GitCommit string     `json:"git_commit"`
	BuildDate string     `json:"build_date"`
	GoVersion string     `json:"go_version"`
	Platform  string     `json:"platform"`
	Gateway   ServerInfo `json:"server"`
}

// ServerInfo is the gateway side of the version report.
type ServerInfo struct {
	Version string `json:"version,omitempty"`
	Status  string `json:"status"`
}

func (c *CLI) newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long: `Display the CLI build and, when an endpoint is configured, the version
reported by the gateway's health operation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				c.println(VersionString())
				return nil
			}
			return c.runVersion(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print the build line only, without contacting the gateway")

	return cmd
}

func (c *CLI) runVersion(ctx context.Context) error {
	info := VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Gateway:   c.gatewayVersion(ctx),
	}

	if c.jsonOutput {
		return c.outputJSON(info)
	}

	c.println(VersionString())
	c.printf("  Go:       %s (%s)\n", info.GoVersion, info.Platform)
	if info.Gateway.Version != "" {
		c.printf("  Gateway:  %s, %s\n", info.Gateway.Version, info.Gateway.Status)
	} else {
		c.printf("  Gateway:  %s\n", info.Gateway.Status)
	}
	return nil
}

func (c *CLI) gatewayVersion(ctx context.Context) ServerInfo {
	if c.cfg == nil || c.cfg.Endpoint == "" {
		return ServerInfo{Status: "not configured"}
	}
	client := NewGatewayClient(c.cfg.Endpoint, c.cfg.Server.Prefix, router.Credentials{})
	health, err := client.Health(ctx)
	if err != nil {
		return ServerInfo{Status: "unavailable"}
	}
	return ServerInfo{Version: health.Version, Status: health.Status}
}
