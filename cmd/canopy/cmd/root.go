// Package cmd provides the CLI commands for canopy.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/canopy-web/canopy/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Canopy - declarative web application server",
	Long: `Canopy serves declarative JSON APIs with session-based
authentication, role-based access control, and per-path CORS rules.

Quick start:
  1. Create a config file: canopy.yaml
  2. Run: canopy serve

Configuration:
  Config is loaded from canopy.yaml in the current directory,
  $HOME/.canopy/, or /etc/canopy/.

  Environment variables can override config values with the CANOPY_ prefix.
  Example: CANOPY_SERVER_ADDR=0.0.0.0:9090

Commands:
  serve          Start the server
  config         Print the effective configuration
  hash-password  Hash a password for the user store
  version        Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./canopy.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
