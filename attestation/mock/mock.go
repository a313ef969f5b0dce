// Package mock provides a deterministic attestation.Provider for local
// development and tests, where no SEV-SNP or equivalent hardware interface
// is available.
package mock

import "context"

var quotePrefix = []byte("MOCKQUOTE")

// Provider returns quotes of the form "MOCKQUOTE" || commitment. It never
// fails and never contacts any hardware.
type Provider struct{}

// New returns a mock Provider.
func New() *Provider { return &Provider{} }

// Quote implements attestation.Provider.
func (p *Provider) Quote(ctx context.Context, commitment [32]byte) ([]byte, error) {
	out := make([]byte, 0, len(quotePrefix)+len(commitment))
	out = append(out, quotePrefix...)
	out = append(out, commitment[:]...)
	return out, nil
}
