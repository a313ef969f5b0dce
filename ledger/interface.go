package ledger

import "context"

// Writer records execution receipts. Every implementation must be
// best-effort from the caller's point of view: a ledger outage must never
// fail or delay an execution response.
type Writer interface {
	// Record stores one receipt. Failures are logged by the caller, not
	// surfaced to the HTTP client.
	Record(ctx context.Context, r Receipt) error

	// Close releases any underlying connection.
	Close() error

	// Ping checks whether the ledger backend is reachable.
	Ping(ctx context.Context) error
}
