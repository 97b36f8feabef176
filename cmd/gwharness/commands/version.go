package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information - populated at build time via ldflags
// Build with: go build -ldflags "-X tengw/cmd/gwharness/commands.Version=v1.0.0 -X tengw/cmd/gwharness/commands.GitCommit=$(git rev-parse --short HEAD) -X tengw/cmd/gwharness/commands.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the release
	Version = "dev"

	// GitCommit is the git commit hash
	GitCommit = "unknown"

	// BuildTime is the UTC build timestamp
	BuildTime = "unknown"
)

// BuildInfo returns version information as a formatted string
func BuildInfo() string {
	return Version + " (" + GitCommit + ") built " + BuildTime
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "gwharness %s\n", BuildInfo())
			return err
		},
	}
}
