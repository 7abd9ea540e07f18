// Package config loads the node configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"

	"github.com/whiskylabs/whisky-protocol-core-sub001/pda"
)

// Allocation credits Amount of Mint to Owner at genesis. Mint "native" is
// the native asset.
type Allocation struct {
	Owner  string `yaml:"owner"`
	Mint   string `yaml:"mint"`
	Amount uint64 `yaml:"amount"`
}

// GenesisConfig describes the ledger's initial state.
type GenesisConfig struct {
	ChainID string       `yaml:"chain_id"`
	Alloc   []Allocation `yaml:"alloc"`
}

type StorageConfig struct {
	Type string `yaml:"type"` // leveldb | badger
}

type RPCConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"` // required bearer token for sendTx; empty disables auth
}

type NATSConfig struct {
	URL           string `yaml:"url"` // empty disables the bridge
	SubjectPrefix string `yaml:"subject_prefix"`
}

// RngConfig enables the built-in RNG provider. Its key must be registered as
// rng_address (or rng_address2) in the protocol configuration.
type RngConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Keystore string `yaml:"keystore"`
	SeedDir  string `yaml:"seed_dir"`
}

// Config holds all node configuration.
type Config struct {
	NodeID       string        `yaml:"node_id"`
	DataDir      string        `yaml:"data_dir"`
	LogLevel     string        `yaml:"log_level"`
	ProgramID    string        `yaml:"program_id"`
	SlotInterval time.Duration `yaml:"slot_interval"`
	MaxSlotTxs   int           `yaml:"max_slot_txs"` // 0 → 500
	Storage      StorageConfig `yaml:"storage"`
	RPC          RPCConfig     `yaml:"rpc"`
	NATS         NATSConfig    `yaml:"nats"`
	Rng          RngConfig     `yaml:"rng"`
	Genesis      GenesisConfig `yaml:"genesis"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:       "node0",
		DataDir:      "./data",
		LogLevel:     "info",
		ProgramID:    pda.DefaultProgramID.String(),
		SlotInterval: 400 * time.Millisecond,
		MaxSlotTxs:   500,
		Storage:      StorageConfig{Type: "leveldb"},
		RPC:          RPCConfig{Port: 8899},
		NATS:         NATSConfig{SubjectPrefix: "whisky"},
		Rng:          RngConfig{SeedDir: "./data/rng"},
		Genesis:      GenesisConfig{ChainID: "whisky-dev"},
	}
}

// Load reads a YAML config file from path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks fields that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if _, err := c.Program(); err != nil {
		return err
	}
	switch c.Storage.Type {
	case "leveldb", "badger":
	default:
		return fmt.Errorf("storage.type must be leveldb or badger, got %q", c.Storage.Type)
	}
	if c.SlotInterval <= 0 {
		return fmt.Errorf("slot_interval must be positive")
	}
	if c.Rng.Enabled && c.Rng.Keystore == "" {
		return fmt.Errorf("rng.keystore required when rng.enabled")
	}
	return nil
}

// Program returns the configured program id.
func (c *Config) Program() (solana.PublicKey, error) {
	id, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("program_id: %w", err)
	}
	return id, nil
}
