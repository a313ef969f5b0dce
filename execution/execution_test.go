package execution

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/cexlabs/hypervisor/apperr"
	"github.com/cexlabs/hypervisor/crypto/envelope"
	"github.com/cexlabs/hypervisor/session"
)

func mustGenerateKey(t *testing.T) *secp256k1.PrivateKey {
	t.Helper()
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

// echoRun returns "Hello" followed by its arguments, joined by spaces and
// ending in a newline, mimicking a trivial guest program for round-trip
// tests.
func echoRun(ctx context.Context, program []byte, args []string) ([]byte, error) {
	out := "Hello"
	for _, a := range args {
		out += " " + a
	}
	out += "\n"
	return []byte(out), nil
}

func TestHandler_ExecuteRoundTrip(t *testing.T) {
	registry := session.NewRegistry()

	clientSecret := mustGenerateKey(t)
	clientPub := clientSecret.PubKey()
	var clientPubBytes [33]byte
	copy(clientPubBytes[:], clientPub.SerializeCompressed())

	entry, err := registry.Create(clientPubBytes)
	require.NoError(t, err)

	key, err := envelope.DeriveSymmetric(clientSecret, entry.PublicKey, entry.ID)
	require.NoError(t, err)
	serverKey, err := envelope.DeriveSymmetric(entry.Secret, clientPub, entry.ID)
	require.NoError(t, err)
	require.Equal(t, key, serverKey)

	msgNonce := envelope.DeriveNonce(entry.ID[:])

	programCT, err := envelope.Encrypt(key, msgNonce, nil, []byte("fake-component-bytes"))
	require.NoError(t, err)
	argCT, err := envelope.Encrypt(key, msgNonce, nil, []byte("tress"))
	require.NoError(t, err)

	h := NewHandler(registry)
	req := Request{
		ProgramCiphertextHex:  hex.EncodeToString(programCT),
		ArgumentCiphertextHex: []string{hex.EncodeToString(argCT)},
		ClientPublicKeyHex:    hex.EncodeToString(clientPubBytes[:]),
	}

	result, err := h.Execute(context.Background(), req, echoRun, false, "wasm")
	require.NoError(t, err)
	require.Equal(t, entry.ID, result.SessionID)

	outputNonceBytes, err := hex.DecodeString(result.OutputNonceHex)
	require.NoError(t, err)
	var outputNonce [12]byte
	copy(outputNonce[:], outputNonceBytes)

	outputCT, err := hex.DecodeString(result.OutputCiphertextHex)
	require.NoError(t, err)

	plaintext, err := envelope.Decrypt(key, outputNonce, nil, outputCT)
	require.NoError(t, err)
	require.Equal(t, "Hello tress\n", string(plaintext))
}

func TestHandler_ExecuteUnknownSession(t *testing.T) {
	registry := session.NewRegistry()
	h := NewHandler(registry)

	clientSecret := mustGenerateKey(t)
	var clientPubBytes [33]byte
	copy(clientPubBytes[:], clientSecret.PubKey().SerializeCompressed())

	req := Request{
		ProgramCiphertextHex: "aa",
		ClientPublicKeyHex:   hex.EncodeToString(clientPubBytes[:]),
	}

	_, err := h.Execute(context.Background(), req, echoRun, false, "wasm")
	require.Error(t, err)
	appErr := apperr.As(err)
	require.Equal(t, apperr.KindUnauthorized, appErr.Kind)
}

func TestHandler_ExecuteEmptyProgram(t *testing.T) {
	registry := session.NewRegistry()
	h := NewHandler(registry)

	req := Request{
		ProgramCiphertextHex: "",
		ClientPublicKeyHex:   "ab",
	}

	_, err := h.Execute(context.Background(), req, echoRun, false, "wasm")
	require.Error(t, err)
	appErr := apperr.As(err)
	require.Equal(t, apperr.KindBadInput, appErr.Kind)
}

func TestHandler_ExecuteTamperedArgument(t *testing.T) {
	registry := session.NewRegistry()

	clientSecret := mustGenerateKey(t)
	clientPub := clientSecret.PubKey()
	var clientPubBytes [33]byte
	copy(clientPubBytes[:], clientPub.SerializeCompressed())

	entry, err := registry.Create(clientPubBytes)
	require.NoError(t, err)

	key, err := envelope.DeriveSymmetric(clientSecret, entry.PublicKey, entry.ID)
	require.NoError(t, err)

	msgNonce := envelope.DeriveNonce(entry.ID[:])

	programCT, err := envelope.Encrypt(key, msgNonce, nil, []byte("component"))
	require.NoError(t, err)
	argCT, err := envelope.Encrypt(key, msgNonce, nil, []byte("tress"))
	require.NoError(t, err)

	// Flip one nibble of the argument ciphertext.
	argCT[0] ^= 0x0F

	h := NewHandler(registry)
	req := Request{
		ProgramCiphertextHex:  hex.EncodeToString(programCT),
		ArgumentCiphertextHex: []string{hex.EncodeToString(argCT)},
		ClientPublicKeyHex:    hex.EncodeToString(clientPubBytes[:]),
	}

	_, err = h.Execute(context.Background(), req, echoRun, false, "wasm")
	require.Error(t, err)
	appErr := apperr.As(err)
	require.Equal(t, apperr.KindBadInput, appErr.Kind)
}

func TestHandler_ExecuteDeterministic(t *testing.T) {
	registry := session.NewRegistry()

	clientSecret := mustGenerateKey(t)
	clientPub := clientSecret.PubKey()
	var clientPubBytes [33]byte
	copy(clientPubBytes[:], clientPub.SerializeCompressed())

	entry, err := registry.Create(clientPubBytes)
	require.NoError(t, err)

	key, err := envelope.DeriveSymmetric(clientSecret, entry.PublicKey, entry.ID)
	require.NoError(t, err)

	msgNonce := envelope.DeriveNonce(entry.ID[:])
	programCT, err := envelope.Encrypt(key, msgNonce, nil, []byte("component"))
	require.NoError(t, err)

	h := NewHandler(registry)
	req := Request{
		ProgramCiphertextHex: hex.EncodeToString(programCT),
		ClientPublicKeyHex:   hex.EncodeToString(clientPubBytes[:]),
	}

	r1, err := h.Execute(context.Background(), req, echoRun, false, "wasm")
	require.NoError(t, err)
	r2, err := h.Execute(context.Background(), req, echoRun, false, "wasm")
	require.NoError(t, err)

	require.Equal(t, r1.OutputCiphertextHex, r2.OutputCiphertextHex)
	require.Equal(t, r1.OutputNonceHex, r2.OutputNonceHex)
	require.Equal(t, r1.Commitment, r2.Commitment)
}
