package sevsnp

import "crypto/sha512"

// SimulatedPlatform implements PlatformInterface without touching any real
// SEV-SNP hardware: it signs a report by hashing it together with a fixed
// launch digest, matching the deterministic "simulation mode" fallback
// other SEV-SNP integrations use when /dev/sev-guest is unavailable. It is
// meant for local development and CI, never for a production deployment
// that needs a real hardware-rooted quote.
type SimulatedPlatform struct {
	launchDigest [48]byte
}

// NewSimulatedPlatform derives a fixed pseudo launch-digest from seed (e.g.
// a build identifier) so quotes are reproducible across restarts of the
// same build.
func NewSimulatedPlatform(seed []byte) *SimulatedPlatform {
	digest := sha512.Sum384(seed)
	p := &SimulatedPlatform{}
	copy(p.launchDigest[:], digest[:])
	return p
}

// SignReport implements PlatformInterface.
func (p *SimulatedPlatform) SignReport(report []byte) ([]byte, error) {
	h := sha512.New384()
	h.Write(p.launchDigest[:])
	h.Write(report)
	return h.Sum(nil), nil
}
