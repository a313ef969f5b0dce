// Package envelope implements the session-key agreement and authenticated
// encryption used to move request and response payloads across the
// hypervisor boundary without ever putting plaintext on the wire.
package envelope

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the length in bytes of a derived symmetric key.
const KeySize = 32

// NonceSize is the length in bytes of an AES-GCM-SIV nonce.
const NonceSize = 12

const hkdfInfoPrefix = "hypervisor/session-v1/"

// DeriveSymmetric computes the shared symmetric key for a session from a
// local secp256k1 secret and a peer's compressed public key, using ECDH
// followed by HKDF. sessionID is folded into the HKDF info string so that
// two sessions between the same two keys never collide on the same key.
func DeriveSymmetric(secret *secp256k1.PrivateKey, peerPublic *secp256k1.PublicKey, sessionID uuid.UUID) ([KeySize]byte, error) {
	var out [KeySize]byte
	if secret == nil || peerPublic == nil {
		return out, fmt.Errorf("envelope: nil key material")
	}

	var peerJacobian secp256k1.JacobianPoint
	peerPublic.AsJacobian(&peerJacobian)

	var shared secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&secret.Key, &peerJacobian, &shared)
	shared.ToAffine()

	sharedX := shared.X.Bytes()

	info := append([]byte(hkdfInfoPrefix), sessionID[:]...)
	reader := hkdf.New(sha256.New, sharedX[:], nil, info)
	if _, err := reader.Read(out[:]); err != nil {
		return out, fmt.Errorf("envelope: hkdf expand: %w", err)
	}
	return out, nil
}

// DeriveNonce derives a deterministic 12-byte AES-GCM-SIV nonce from
// arbitrary context bytes: the execution envelope passes the raw session
// ID for request ciphertexts and the plaintext output for the response
// ciphertext. It returns the first 12 bytes of SHA-256(context).
// Determinism is safe here only because
// GCM-SIV is nonce-misuse resistant.
func DeriveNonce(context []byte) [NonceSize]byte {
	sum := sha256.Sum256(context)
	var nonce [NonceSize]byte
	copy(nonce[:], sum[:NonceSize])
	return nonce
}

// PubkeyToHex renders a compressed secp256k1 public key as a lowercase hex
// string (33 bytes, 66 hex characters).
func PubkeyToHex(pub *secp256k1.PublicKey) string {
	return hex.EncodeToString(pub.SerializeCompressed())
}

// PubkeyFromHex parses a compressed secp256k1 public key previously
// produced by PubkeyToHex.
func PubkeyFromHex(s string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("envelope: decode pubkey hex: %w", err)
	}
	return secp256k1.ParsePubKey(raw)
}
