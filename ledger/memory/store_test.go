package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cexlabs/hypervisor/ledger"
)

func TestStore_RecordAppends(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.Record(ctx, ledger.Receipt{SessionID: "s1", Commitment: []byte("c1"), Route: "/test/execute/wasm", RecordedAt: time.Now()})
	require.NoError(t, err)
	err = s.Record(ctx, ledger.Receipt{SessionID: "s2", Commitment: []byte("c2"), Route: "/x402_execute/verifiable/wasm", RecordedAt: time.Now()})
	require.NoError(t, err)

	all := s.All()
	require.Len(t, all, 2)
	require.Equal(t, "s1", all[0].SessionID)
	require.Equal(t, "s2", all[1].SessionID)
}

func TestStore_PingAndClose(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
}
