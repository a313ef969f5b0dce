package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.Environment)
	require.Equal(t, ":8080", cfg.Server.BindAddr)
	require.Equal(t, "python3", cfg.Sandbox.ScriptInterpreter)
	require.Equal(t, []string{"-"}, cfg.Sandbox.ScriptInterpreterArgs)
	require.Equal(t, "mock", cfg.Attestation.Provider)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSaveThenLoadFromFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roundtrip.yaml")

	cfg := &Config{}
	setDefaults(cfg)
	cfg.Payment.Recipient = "0xabc"
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "0xabc", loaded.Payment.Recipient)
	require.Equal(t, cfg.Server.BindAddr, loaded.Server.BindAddr)
}

func TestSaveToFile_JSONExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := &Config{}
	setDefaults(cfg)
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Logging.Level, loaded.Logging.Level)
}
