// Package cli implements the respcache command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped into the root command.
const Version = "0.1.0"

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "respcache",
	Short:   "Caching proxy that stores upstream responses on disk",
	Long:    `respcache is a development proxy that persists upstream responses as JSON files and serves them back until they go stale or are purged.`,
	Version: Version,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the YAML config file")
}
