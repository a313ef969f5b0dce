package sevsnp

import (
	"context"
	"errors"
	"testing"

	"github.com/cexlabs/hypervisor/apperr"
	"github.com/stretchr/testify/require"
)

type stubPlatform struct {
	sig []byte
	err error
}

func (s stubPlatform) SignReport(report []byte) ([]byte, error) {
	return s.sig, s.err
}

func TestProvider_QuoteEmbedsCommitmentInReportData(t *testing.T) {
	p := New(stubPlatform{sig: []byte("sig")})
	var commitment [32]byte
	copy(commitment[:], []byte("0123456789abcdef0123456789abcde"))

	quote, err := p.Quote(context.Background(), commitment)
	require.NoError(t, err)
	require.Equal(t, commitment[:], quote[4:36])
	require.Equal(t, "sig", string(quote[len(quote)-3:]))
}

func TestProvider_WrapsPlatformFailureAsInternal(t *testing.T) {
	p := New(stubPlatform{err: errors.New("device unavailable")})
	var commitment [32]byte

	_, err := p.Quote(context.Background(), commitment)
	require.Error(t, err)
	require.Equal(t, apperr.KindInternal, apperr.As(err).Kind)
}
