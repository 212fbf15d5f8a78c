// Package config loads the CLI configuration from a YAML file and the
// environment. Environment variables use the DEVTEAM_ prefix and override
// file values (DEVTEAM_LISTEN, DEVTEAM_STORE_DIR, ...).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AgentConfig describes one agent CLI backend to register.
type AgentConfig struct {
	// Type is the agent type name ("claude", "codex", ...).
	Type string `mapstructure:"type"`

	// Command is the CLI executable.
	Command string `mapstructure:"command"`

	// Args precede the per-call flags.
	Args []string `mapstructure:"args"`

	// TokenEnv names the environment variable holding the credential.
	TokenEnv string `mapstructure:"token_env"`

	// Model is the default model for new sessions.
	Model string `mapstructure:"model"`

	// PermissionMode is the agent's default in unified spelling.
	PermissionMode string `mapstructure:"permission_mode"`
}

// Config is the application configuration.
type Config struct {
	// Listen is the serve command's bind address.
	Listen string `mapstructure:"listen"`

	// StoreDir persists sessions and tasks; empty keeps them in memory.
	StoreDir string `mapstructure:"store_dir"`

	// ToolServersFile is the YAML tool-server registry, watched for
	// changes when set.
	ToolServersFile string `mapstructure:"tool_servers_file"`

	// DefaultAgent is the agent type used when none is specified.
	DefaultAgent string `mapstructure:"default_agent"`

	// IdleTimeoutSeconds overrides the stream idle threshold.
	IdleTimeoutSeconds int `mapstructure:"idle_timeout_seconds"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`

	Agents []AgentConfig `mapstructure:"agents"`
}

// Load reads the configuration. An empty path searches ./devteam.yaml and
// ~/.config/devteam/devteam.yaml; a missing file yields defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("listen", "127.0.0.1:7433")
	v.SetDefault("default_agent", "claude")
	v.SetDefault("idle_timeout_seconds", 300)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("DEVTEAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("devteam")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/devteam")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Agent returns the configuration for one agent type.
func (c *Config) Agent(agentType string) (AgentConfig, bool) {
	for _, a := range c.Agents {
		if a.Type == agentType {
			return a, true
		}
	}
	return AgentConfig{}, false
}
