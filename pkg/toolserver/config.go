package toolserver

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes the worker process the client spawns.
type Config struct {
	Command string            `yaml:"command" json:"command"`
	Args    []string          `yaml:"args" json:"args"`
	Env     map[string]string `yaml:"env" json:"env"`
	Timeout time.Duration     `yaml:"timeout" json:"timeout"`
}

// EnvCommandVar overrides the worker command line when set. The value is
// split on whitespace: first field is the command, the rest are arguments.
const EnvCommandVar = "SURF_TOOLSERVER_CMD"

// DefaultConfig returns the default worker: the Playwright MCP tool server
// run through npx, which spawns and drives its own browser.
func DefaultConfig() Config {
	return Config{
		Command: "npx",
		Args:    []string{"@playwright/mcp@latest"},
		Timeout: 30 * time.Second,
	}
}

// LoadConfigFile reads a worker definition from a YAML file. Missing file is
// not an error: the default worker is returned. The SURF_TOOLSERVER_CMD
// environment variable overrides the command line in either case.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read worker config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse worker config: %w", err)
		}
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	applyEnvOverride(&cfg)
	return cfg, nil
}

// applyEnvOverride replaces the command line from SURF_TOOLSERVER_CMD.
func applyEnvOverride(cfg *Config) {
	override := strings.TrimSpace(os.Getenv(EnvCommandVar))
	if override == "" {
		return
	}
	fields := strings.Fields(override)
	cfg.Command = fields[0]
	cfg.Args = fields[1:]
}
