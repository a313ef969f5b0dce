package envelope

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDeriveSymmetric_Agreement(t *testing.T) {
	clientSecret, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	serverSecret, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	sessionID := uuid.New()

	clientKey, err := DeriveSymmetric(clientSecret, serverSecret.PubKey(), sessionID)
	require.NoError(t, err)

	serverKey, err := DeriveSymmetric(serverSecret, clientSecret.PubKey(), sessionID)
	require.NoError(t, err)

	require.Equal(t, clientKey, serverKey)
}

func TestDeriveSymmetric_DifferentSessionsDiverge(t *testing.T) {
	a, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	b, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	k1, err := DeriveSymmetric(a, b.PubKey(), uuid.New())
	require.NoError(t, err)
	k2, err := DeriveSymmetric(a, b.PubKey(), uuid.New())
	require.NoError(t, err)

	require.NotEqual(t, k1, k2)
}

func TestDeriveNonce_Deterministic(t *testing.T) {
	ctx := []byte("session-id||role=response")
	n1 := DeriveNonce(ctx)
	n2 := DeriveNonce(ctx)
	require.Equal(t, n1, n2)

	n3 := DeriveNonce([]byte("session-id||role=request"))
	require.NotEqual(t, n1, n3)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	var key [KeySize]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))
	nonce := DeriveNonce([]byte("ctx"))
	aad := []byte("aad-binding")
	plaintext := []byte("the quick brown fox")

	ct, err := Encrypt(key, nonce, aad, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ct)

	pt, err := Decrypt(key, nonce, aad, ct)
	require.NoError(t, err)
	require.Equal(t, plaintext, pt)
}

func TestDecrypt_RejectsTamperedAAD(t *testing.T) {
	var key [KeySize]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))
	nonce := DeriveNonce([]byte("ctx"))

	ct, err := Encrypt(key, nonce, []byte("aad-a"), []byte("payload"))
	require.NoError(t, err)

	_, err = Decrypt(key, nonce, []byte("aad-b"), ct)
	require.Error(t, err)
}

func TestPubkeyHexRoundTrip(t *testing.T) {
	secret, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	hexStr := PubkeyToHex(secret.PubKey())
	pub, err := PubkeyFromHex(hexStr)
	require.NoError(t, err)
	require.True(t, secret.PubKey().IsEqual(pub))
}
