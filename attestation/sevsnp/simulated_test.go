package sevsnp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimulatedPlatform_Deterministic(t *testing.T) {
	p1 := NewSimulatedPlatform([]byte("build-1"))
	p2 := NewSimulatedPlatform([]byte("build-1"))

	sig1, err := p1.SignReport([]byte("report"))
	require.NoError(t, err)
	sig2, err := p2.SignReport([]byte("report"))
	require.NoError(t, err)
	require.Equal(t, sig1, sig2)
}

func TestSimulatedPlatform_DifferentSeedsDiverge(t *testing.T) {
	p1 := NewSimulatedPlatform([]byte("build-1"))
	p2 := NewSimulatedPlatform([]byte("build-2"))

	sig1, _ := p1.SignReport([]byte("report"))
	sig2, _ := p2.SignReport([]byte("report"))
	require.NotEqual(t, sig1, sig2)
}
