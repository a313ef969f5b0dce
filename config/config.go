// Package config loads the hypervisor's runtime configuration from a YAML
// file with environment-variable overrides layered on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the hypervisor's complete runtime configuration.
type Config struct {
	Environment string            `yaml:"environment" json:"environment"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Sandbox     SandboxConfig     `yaml:"sandbox" json:"sandbox"`
	Attestation AttestationConfig `yaml:"attestation" json:"attestation"`
	Payment     PaymentConfig     `yaml:"payment" json:"payment"`
	Ledger      LedgerConfig      `yaml:"ledger" json:"ledger"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics" json:"metrics"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	BindAddr        string        `yaml:"bind_addr" json:"bind_addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// SandboxConfig controls the sandbox runners.
type SandboxConfig struct {
	ScriptInterpreter     string        `yaml:"script_interpreter" json:"script_interpreter"`
	ScriptInterpreterArgs []string      `yaml:"script_interpreter_args" json:"script_interpreter_args"`
	WasmEpochPeriod       time.Duration `yaml:"wasm_epoch_period" json:"wasm_epoch_period"`
}

// AttestationConfig selects the attestation provider.
type AttestationConfig struct {
	// Provider is "mock" or "sevsnp".
	Provider string `yaml:"provider" json:"provider"`
}

// PaymentConfig fixes the price tag and facilitator for gated routes.
type PaymentConfig struct {
	Recipient      string `yaml:"recipient" json:"recipient"`
	Asset          string `yaml:"asset" json:"asset"`
	Network        string `yaml:"network" json:"network"`
	Price          string `yaml:"price" json:"price"`
	FacilitatorURL string `yaml:"facilitator_url" json:"facilitator_url"`
	RelayerKeyEnv  string `yaml:"relayer_key_env" json:"relayer_key_env"`
	RPCURL         string `yaml:"rpc_url" json:"rpc_url"`
	ChainID        int64  `yaml:"chain_id" json:"chain_id"`
}

// LedgerConfig configures the optional audit ledger. An empty DSN disables
// Postgres and falls back to an in-memory ledger.
type LedgerConfig struct {
	DSN string `yaml:"dsn" json:"dsn"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("config: parse file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path, choosing JSON or YAML by extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if len(path) > 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = ":8080"
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Sandbox.ScriptInterpreter == "" {
		cfg.Sandbox.ScriptInterpreter = "python3"
	}
	if len(cfg.Sandbox.ScriptInterpreterArgs) == 0 {
		cfg.Sandbox.ScriptInterpreterArgs = []string{"-"}
	}
	if cfg.Sandbox.WasmEpochPeriod == 0 {
		cfg.Sandbox.WasmEpochPeriod = 50 * time.Millisecond
	}
	if cfg.Attestation.Provider == "" {
		cfg.Attestation.Provider = "mock"
	}
	if cfg.Payment.Network == "" {
		cfg.Payment.Network = "eip155:84532"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
