package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"album-engine/internal/logging"
	"album-engine/internal/startup"
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "albumd",
		Short: "Photo and video album engine",
		Long: `albumd keeps a SQLite-backed catalog of pictures and videos, imports
from folders and mounted devices, manages a trash with retention, and
serves an admin API with Prometheus metrics.

Examples:
  # Run the service
  albumd serve

  # Import a folder into an album
  albumd import --album Holidays ~/Pictures/2024

  # Show the ten most recent items
  albumd page --count 10`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel == "" {
				return nil
			}
			level, ok := logging.ParseLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}
			logging.SetLevel(level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn or error (default from LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(),
		newImportCmd(),
		newImportMountCmd(),
		newTrashCmd(),
		newRecoverCmd(),
		newPurgeCmd(),
		newRemoveCmd(),
		newReloadCmd(),
		newPageCmd(),
		newRotateCmd(),
		newListMountCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := startup.GetBuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "albumd %s (commit %s, built %s, %s)\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion)
		},
	}
}
