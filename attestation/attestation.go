// Package attestation wraps a 32-byte execution commitment into a remote
// attestation quote. It is a pure function of the commitment: callers
// supply one, providers return an opaque quote, and nothing else about the
// response is altered.
package attestation

import "context"

// Provider produces a quote binding commitment. Implementations differ in
// where the report is actually generated (real hardware vs. a local fake)
// but never inspect anything beyond the commitment itself.
type Provider interface {
	Quote(ctx context.Context, commitment [32]byte) ([]byte, error)
}
