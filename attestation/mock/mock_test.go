package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProvider_QuoteEmbedsCommitment(t *testing.T) {
	p := New()
	var commitment [32]byte
	copy(commitment[:], []byte("0123456789abcdef0123456789abcde"))

	quote, err := p.Quote(context.Background(), commitment)
	require.NoError(t, err)
	require.Equal(t, "MOCKQUOTE", string(quote[:9]))
	require.Equal(t, commitment[:], quote[9:])
}

func TestProvider_Deterministic(t *testing.T) {
	p := New()
	var commitment [32]byte
	commitment[0] = 0xAB

	q1, err := p.Quote(context.Background(), commitment)
	require.NoError(t, err)
	q2, err := p.Quote(context.Background(), commitment)
	require.NoError(t, err)
	require.Equal(t, q1, q2)
}
