package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Output formats understood by the client commands.
const (
	OutputStyled = "styled"
	OutputJSON   = "json"
	OutputPlain  = "plain"
)

// ClientConfig is the per-user profile read by the client commands.
type ClientConfig struct {
	ControllerAddress string   `json:"controller_address"`
	Timeout           Duration `json:"timeout"`
	OutputFormat      string   `json:"output_format"`
}

func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ControllerAddress: DefaultControllerConfig().Address,
		Timeout:           Duration(10 * time.Second),
		OutputFormat:      OutputStyled,
	}
}

// GetConfigDir returns the vmstore configuration directory
func GetConfigDir() string {
	if dir := os.Getenv("VMSTORE_CONFIG_DIR"); dir != "" {
		return dir
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "vmstore")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".vmstore"
	}
	return filepath.Join(home, ".vmstore")
}

func GetClientConfigPath() string {
	return filepath.Join(GetConfigDir(), "client.json")
}

// LoadClientConfig reads the client profile. A missing file yields the
// defaults.
func LoadClientConfig() (*ClientConfig, error) {
	cfg := DefaultClientConfig()

	data, err := os.ReadFile(GetClientConfigPath())
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read client config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	if c.ControllerAddress == "" {
		return fmt.Errorf("controller_address is required")
	}
	switch c.OutputFormat {
	case OutputStyled, OutputJSON, OutputPlain:
	default:
		return fmt.Errorf("unknown output_format %q", c.OutputFormat)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func (c *ClientConfig) Save() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(GetConfigDir(), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal client config: %w", err)
	}
	if err := os.WriteFile(GetClientConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write client config: %w", err)
	}
	return nil
}
