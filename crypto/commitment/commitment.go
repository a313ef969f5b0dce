// Package commitment builds the cryptographic commitment that binds an
// execution's inputs and outputs together into a single 32-byte digest,
// which is what the attestation quote ultimately certifies.
package commitment

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Size is the length in bytes of a commitment digest.
const Size = 32

// Builder accumulates length-prefixed entries (an 8-byte big-endian length
// followed by the entry bytes) and hashes them with SHA3-256 in Sum.
// Length-prefixing each entry (rather than concatenating raw bytes) gives
// domain separation between entries so that "ab"+"c" and "a"+"bc" never
// collide on the same digest.
type Builder struct {
	d []byte
}

// New returns an empty commitment builder.
func New() *Builder {
	return &Builder{}
}

// Add appends one length-prefixed entry to the commitment.
func (b *Builder) Add(entry []byte) *Builder {
	var lenPrefix [8]byte
	binary.BigEndian.PutUint64(lenPrefix[:], uint64(len(entry)))
	b.d = append(b.d, lenPrefix[:]...)
	b.d = append(b.d, entry...)
	return b
}

// Sum finalizes the commitment over every entry added so far.
func (b *Builder) Sum() [Size]byte {
	return sha3.Sum256(b.d)
}

// BuildExecutionCommitment assembles the canonical execution commitment
// from the client's session-establishment public key, the server's
// ephemeral session public key, the session identifier, the encrypted
// program, the encrypted arguments (in call order), the output nonce, and
// the encrypted output, in that fixed order.
func BuildExecutionCommitment(clientPub, sessionPub [33]byte, sessionID [16]byte, programCT []byte, argCTs [][]byte, outputNonce [12]byte, outputCT []byte) [Size]byte {
	b := New().
		Add(clientPub[:]).
		Add(sessionPub[:]).
		Add(sessionID[:]).
		Add(programCT)
	for _, arg := range argCTs {
		b.Add(arg)
	}
	b.Add(outputNonce[:]).Add(outputCT)
	return b.Sum()
}
