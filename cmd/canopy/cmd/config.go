package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/canopy-web/canopy/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration the server would run with, after file
loading, environment overrides, and defaults. Secrets are redacted.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	redacted := *cfg
	if redacted.Session.Redis.Password != "" {
		redacted.Session.Redis.Password = "***"
	}
	if len(redacted.Users.Seed) > 0 {
		seed := make([]config.SeedUser, len(redacted.Users.Seed))
		copy(seed, redacted.Users.Seed)
		for i := range seed {
			seed[i].Password = "***"
		}
		redacted.Users.Seed = seed
	}

	if file := config.ConfigFileUsed(); file != "" {
		fmt.Fprintf(os.Stderr, "# loaded from %s\n", file)
	} else {
		fmt.Fprintln(os.Stderr, "# no config file found, defaults and environment only")
	}

	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
