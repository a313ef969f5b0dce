package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:default}
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment variable values
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		// Extract variable name and default value
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		// Get environment variable
		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}

// SubstituteEnvVarsInConfig recursively substitutes environment variables in config
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Server.BindAddr = SubstituteEnvVars(cfg.Server.BindAddr)

	cfg.Sandbox.ScriptInterpreter = SubstituteEnvVars(cfg.Sandbox.ScriptInterpreter)
	for i, a := range cfg.Sandbox.ScriptInterpreterArgs {
		cfg.Sandbox.ScriptInterpreterArgs[i] = SubstituteEnvVars(a)
	}

	cfg.Attestation.Provider = SubstituteEnvVars(cfg.Attestation.Provider)

	cfg.Payment.Recipient = SubstituteEnvVars(cfg.Payment.Recipient)
	cfg.Payment.Asset = SubstituteEnvVars(cfg.Payment.Asset)
	cfg.Payment.Network = SubstituteEnvVars(cfg.Payment.Network)
	cfg.Payment.Price = SubstituteEnvVars(cfg.Payment.Price)
	cfg.Payment.FacilitatorURL = SubstituteEnvVars(cfg.Payment.FacilitatorURL)
	cfg.Payment.RelayerKeyEnv = SubstituteEnvVars(cfg.Payment.RelayerKeyEnv)
	cfg.Payment.RPCURL = SubstituteEnvVars(cfg.Payment.RPCURL)

	cfg.Ledger.DSN = SubstituteEnvVars(cfg.Ledger.DSN)

	cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
	cfg.Logging.Format = SubstituteEnvVars(cfg.Logging.Format)
	cfg.Logging.Output = SubstituteEnvVars(cfg.Logging.Output)

	cfg.Metrics.Path = SubstituteEnvVars(cfg.Metrics.Path)
}

// GetEnvironment returns the current environment from HYPERVISOR_ENV or defaults to development
func GetEnvironment() string {
	env := os.Getenv("HYPERVISOR_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction returns true if running in production environment
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment returns true if running in development or local environment
func IsDevelopment() bool {
	env := GetEnvironment()
	return env == "development" || env == "local"
}
