// Copyright 2025 Certen Protocol
//
// Node configuration loader: YAML with ${VAR} / ${VAR:-default}
// environment substitution applied before unmarshal.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeConfig is the top-level configuration for a poda-node process.
type NodeConfig struct {
	Environment string          `yaml:"environment"`
	Wallet      WalletSettings  `yaml:"wallet"`
	Server      ServerSettings  `yaml:"server"`
	Peers       PeerSettings    `yaml:"peers"`
	Store       StoreSettings   `yaml:"store"`
	Monitoring  MonitorSettings `yaml:"monitoring"`
}

// WalletSettings configures the node's signing identity.
type WalletSettings struct {
	PrivateKeyHex string `yaml:"private_key_hex"`
}

// ServerSettings configures the HTTP listener serving peer requests.
type ServerSettings struct {
	ListenAddr string   `yaml:"listen_addr"`
	Timeout    Duration `yaml:"timeout"`
}

// PeerSettings lists known peer endpoints by authority address.
type PeerSettings struct {
	Directory map[string]string `yaml:"directory"`
	Timeout   Duration          `yaml:"timeout"`
}

// StoreSettings selects and configures the message store backend.
type StoreSettings struct {
	Backend   string            `yaml:"backend"` // "memory", "kv", or "firestore"
	KVPath    string            `yaml:"kv_path"` // directory the embedded db lives in
	Firestore FirestoreSettings `yaml:"firestore"`
}

// FirestoreSettings configures the optional Firestore-backed store.
type FirestoreSettings struct {
	Enabled         bool   `yaml:"enabled"`
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	Collection      string `yaml:"collection"`
}

// MonitorSettings configures Prometheus metrics exposure.
type MonitorSettings struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Duration wraps time.Duration for YAML unmarshaling of "30s"-style values.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads and parses a NodeConfig from a YAML file at path, substituting
// ${VAR_NAME} references against the process environment before parsing.
func Load(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	var cfg NodeConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *NodeConfig) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = Duration(10 * time.Second)
	}
	if c.Peers.Timeout == 0 {
		c.Peers.Timeout = Duration(10 * time.Second)
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Store.KVPath == "" {
		c.Store.KVPath = "./data"
	}
	if c.Store.Firestore.Collection == "" {
		c.Store.Firestore.Collection = "podaMessages"
	}
	if c.Monitoring.Addr == "" {
		c.Monitoring.Addr = ":9090"
	}
	if c.Monitoring.Path == "" {
		c.Monitoring.Path = "/metrics"
	}
}

// Validate rejects configurations missing fields required to run.
func (c *NodeConfig) Validate() error {
	if c.Wallet.PrivateKeyHex == "" {
		return fmt.Errorf("config: wallet.private_key_hex is required")
	}
	switch c.Store.Backend {
	case "memory", "kv", "firestore":
	default:
		return fmt.Errorf("config: store.backend must be memory, kv, or firestore, got %q", c.Store.Backend)
	}
	if c.Store.Backend == "firestore" && c.Store.Firestore.ProjectID == "" {
		return fmt.Errorf("config: store.firestore.project_id is required when backend is firestore")
	}
	return nil
}
