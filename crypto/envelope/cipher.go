package envelope

import (
	"crypto/cipher"
	"fmt"

	"github.com/secure-io/siv-go"
)

// Encrypt seals plaintext under key using AES-GCM-SIV with the given
// deterministic nonce and additional authenticated data. GCM-SIV tolerates
// nonce reuse without catastrophic key recovery, which is what lets the
// hypervisor derive nonces deterministically instead of drawing randomness
// it would then have to thread through the sandbox boundary.
func Encrypt(key [KeySize]byte, nonce [NonceSize]byte, aad, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce[:], plaintext, aad), nil
}

// Decrypt opens a ciphertext previously produced by Encrypt with the same
// key, nonce and AAD.
func Decrypt(key [KeySize]byte, nonce [NonceSize]byte, aad, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("envelope: open sealed payload: %w", err)
	}
	return plaintext, nil
}

func newAEAD(key [KeySize]byte) (cipher.AEAD, error) {
	aead, err := siv.NewGCM(key[:])
	if err != nil {
		return nil, fmt.Errorf("envelope: init aes-gcm-siv: %w", err)
	}
	return aead, nil
}
