package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and
// environment variables. If configFile is empty, standard locations are
// searched for canopy.yaml/.yml. The search requires an explicit YAML
// extension so the binary itself is never matched.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file in any standard location; ReadInConfig will
		// report ConfigFileNotFoundError, which callers tolerate.
		viper.SetConfigName("canopy")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: CANOPY_SERVER_ADDR etc.
	viper.SetEnvPrefix("CANOPY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for canopy.yaml or .yml.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".canopy"),
		"/etc/canopy",
	}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "canopy"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds nested config keys so environment variables
// can override them individually. Arrays (cors, users.seed) are config
// file only.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.handler_timeout")
	_ = viper.BindEnv("server.tls_cert")
	_ = viper.BindEnv("server.tls_key")

	_ = viper.BindEnv("session.cookie_name")
	_ = viper.BindEnv("session.ttl")
	_ = viper.BindEnv("session.backend")
	_ = viper.BindEnv("session.redis.addr")
	_ = viper.BindEnv("session.redis.password")
	_ = viper.BindEnv("session.redis.db")
	_ = viper.BindEnv("session.redis.key_prefix")

	_ = viper.BindEnv("users.backend")
	_ = viper.BindEnv("users.path")

	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration, applies environment overrides and
// defaults, and validates the result.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}

	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigRaw reads the configuration and applies defaults but skips
// dev defaults and validation. Use when CLI flags may still override
// DevMode before validation.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: environment variables and defaults only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the loaded config file path, or "" when
// running from environment variables only.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
