package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubstituteEnvVars_UsesEnvWhenSet(t *testing.T) {
	t.Setenv("HV_TEST_VAR", "hello")
	require.Equal(t, "hello-world", SubstituteEnvVars("${HV_TEST_VAR}-world"))
}

func TestSubstituteEnvVars_FallsBackToDefault(t *testing.T) {
	os.Unsetenv("HV_TEST_UNSET")
	require.Equal(t, "fallback", SubstituteEnvVars("${HV_TEST_UNSET:fallback}"))
}

func TestSubstituteEnvVars_EmptyDefaultWhenUnsetAndNoDefault(t *testing.T) {
	os.Unsetenv("HV_TEST_UNSET2")
	require.Equal(t, "", SubstituteEnvVars("${HV_TEST_UNSET2}"))
}

func TestSubstituteEnvVarsInConfig_ExpandsPaymentFields(t *testing.T) {
	t.Setenv("HV_RECIPIENT", "0xdead")
	cfg := &Config{}
	cfg.Payment.Recipient = "${HV_RECIPIENT}"

	SubstituteEnvVarsInConfig(cfg)
	require.Equal(t, "0xdead", cfg.Payment.Recipient)
}

func TestGetEnvironment_DefaultsToDevelopment(t *testing.T) {
	os.Unsetenv("HYPERVISOR_ENV")
	os.Unsetenv("ENVIRONMENT")
	require.Equal(t, "development", GetEnvironment())
}

func TestGetEnvironment_HypervisorEnvTakesPriority(t *testing.T) {
	t.Setenv("HYPERVISOR_ENV", "production")
	t.Setenv("ENVIRONMENT", "staging")
	require.Equal(t, "production", GetEnvironment())
	require.True(t, IsProduction())
	require.False(t, IsDevelopment())
}
