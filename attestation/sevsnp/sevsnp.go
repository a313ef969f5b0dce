// Package sevsnp implements the attestation.Provider interface over an
// AMD SEV-SNP style attestation report: the commitment is zero-padded into
// a fixed 64-byte report-data field and submitted to the platform
// attestation interface for signing.
package sevsnp

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/cexlabs/hypervisor/apperr"
)

// ReportVersion is the SNP attestation report format version this
// provider emits.
const ReportVersion = 2

// ReportDataSize is the fixed width of the report-data field the
// commitment is embedded into.
const ReportDataSize = 64

// PlatformInterface abstracts the actual hardware or driver call that
// signs a report. A real deployment backs this with /dev/sev-guest; tests
// and non-hardware environments use a stub.
type PlatformInterface interface {
	SignReport(report []byte) (signature []byte, err error)
}

// Provider produces SNP-style quotes over execution commitments.
type Provider struct {
	platform PlatformInterface
}

// New returns a Provider backed by platform.
func New(platform PlatformInterface) *Provider {
	return &Provider{platform: platform}
}

// Quote builds a fixed-layout report embedding commitment in its
// report-data field and asks the platform interface to sign it.
func (p *Provider) Quote(ctx context.Context, commitment [32]byte) ([]byte, error) {
	report := make([]byte, 0, 4+ReportDataSize)

	var version [4]byte
	binary.BigEndian.PutUint32(version[:], ReportVersion)
	report = append(report, version[:]...)

	var reportData [ReportDataSize]byte
	copy(reportData[:], commitment[:])
	report = append(report, reportData[:]...)

	signature, err := p.platform.SignReport(report)
	if err != nil {
		return nil, apperr.Internal("hardware quote failure", fmt.Errorf("sevsnp: sign report: %w", err))
	}

	return append(report, signature...), nil
}
