package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"vmstore/pkg/utils"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeController Mode = "controller"
	ModeNode       Mode = "node"
)

type Config struct {
	Mode       Mode             `json:"mode"`
	Controller ControllerConfig `json:"controller,omitempty"`
	Node       NodeConfig       `json:"node,omitempty"`
}

type ControllerConfig struct {
	Address        string   `json:"address"`
	ReapInterval   Duration `json:"reap_interval"`
	OfflineTimeout Duration `json:"offline_timeout"`
	FanoutTimeout  Duration `json:"fanout_timeout"`
	FanoutDeadline Duration `json:"fanout_deadline"`
	FanoutWorkers  int      `json:"fanout_workers"`
	MetricsAddress string   `json:"metrics_address"`
}

type NodeConfig struct {
	NodeID            string   `json:"node_id"`
	Host              string   `json:"host"`
	Port              int      `json:"port"`
	ControllerAddress string   `json:"controller_address"`
	DataDir           string   `json:"data_dir"`
	HeartbeatInterval Duration `json:"heartbeat_interval"`
	RequestTimeout    Duration `json:"request_timeout"`
	MaxMessageSize    DataSize `json:"max_message_size"`
}

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Address:        "127.0.0.1:6000",
		ReapInterval:   Duration(5 * time.Second),
		OfflineTimeout: Duration(15 * time.Second),
		FanoutTimeout:  Duration(2 * time.Second),
		FanoutDeadline: Duration(5 * time.Second),
		FanoutWorkers:  8,
	}
}

func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		Host:              "127.0.0.1",
		Port:              5000,
		ControllerAddress: "127.0.0.1:6000",
		DataDir:           "./data",
		HeartbeatInterval: Duration(5 * time.Second),
		RequestTimeout:    Duration(10 * time.Second),
		MaxMessageSize:    DataSize(16 * utils.MegaByte),
	}
}

func (c ControllerConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("controller address is required")
	}
	if c.ReapInterval <= 0 || c.OfflineTimeout <= 0 {
		return fmt.Errorf("reap_interval and offline_timeout must be positive")
	}
	if c.FanoutTimeout <= 0 || c.FanoutDeadline <= 0 {
		return fmt.Errorf("fanout_timeout and fanout_deadline must be positive")
	}
	if c.FanoutWorkers < 1 {
		return fmt.Errorf("fanout_workers must be at least 1, got %d", c.FanoutWorkers)
	}
	return nil
}

func (c NodeConfig) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node id is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ControllerAddress == "" {
		return fmt.Errorf("controller address is required")
	}
	if c.HeartbeatInterval <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("heartbeat_interval and request_timeout must be positive")
	}
	return nil
}

// LoadConfig reads a JSON config file. Unset fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{
		Controller: DefaultControllerConfig(),
		Node:       DefaultNodeConfig(),
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv builds a config from VMSTORE_* variables. Both the controller
// and node sections are filled; Mode only records which one the caller
// asked for. A .env file in the working directory is loaded first if
// present, and real environment variables win over it.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Mode:       Mode(getEnv("VMSTORE_MODE", string(ModeController))),
		Controller: DefaultControllerConfig(),
		Node:       DefaultNodeConfig(),
	}

	var err error
	c := &cfg.Controller
	c.Address = getEnv("VMSTORE_CONTROLLER_ADDRESS", c.Address)
	c.MetricsAddress = getEnv("VMSTORE_METRICS_ADDRESS", c.MetricsAddress)
	if c.ReapInterval, err = envDuration("VMSTORE_REAP_INTERVAL", c.ReapInterval); err != nil {
		return nil, err
	}
	if c.OfflineTimeout, err = envDuration("VMSTORE_OFFLINE_TIMEOUT", c.OfflineTimeout); err != nil {
		return nil, err
	}
	if c.FanoutTimeout, err = envDuration("VMSTORE_FANOUT_TIMEOUT", c.FanoutTimeout); err != nil {
		return nil, err
	}
	if c.FanoutDeadline, err = envDuration("VMSTORE_FANOUT_DEADLINE", c.FanoutDeadline); err != nil {
		return nil, err
	}
	if v := os.Getenv("VMSTORE_FANOUT_WORKERS"); v != "" {
		if c.FanoutWorkers, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid VMSTORE_FANOUT_WORKERS: %w", err)
		}
	}

	n := &cfg.Node
	n.NodeID = getEnv("VMSTORE_NODE_ID", n.NodeID)
	n.Host = getEnv("VMSTORE_NODE_HOST", n.Host)
	n.ControllerAddress = getEnv("VMSTORE_CONTROLLER_ADDRESS", n.ControllerAddress)
	n.DataDir = getEnv("VMSTORE_DATA_DIR", n.DataDir)
	if v := os.Getenv("VMSTORE_NODE_PORT"); v != "" {
		if n.Port, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid VMSTORE_NODE_PORT: %w", err)
		}
	}
	if n.HeartbeatInterval, err = envDuration("VMSTORE_HEARTBEAT_INTERVAL", n.HeartbeatInterval); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envDuration(key string, def Duration) (Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return Duration(d), nil
}
