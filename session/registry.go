// Package session manages the per-client ephemeral keypairs the hypervisor
// hands out over its session-establishment exchange.
package session

import (
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
)

// Entry is one client's current session state. The secret key never leaves
// the registry and is never logged or serialized.
type Entry struct {
	Secret    *secp256k1.PrivateKey
	PublicKey *secp256k1.PublicKey
	ID        uuid.UUID
}

// Registry holds one live session per client public key. Registering a new
// session for a client that already has one overwrites the previous entry;
// the hypervisor keeps no history and persists nothing to disk.
type Registry struct {
	mu       sync.RWMutex
	sessions map[[33]byte]*Entry
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[[33]byte]*Entry)}
}

// Create generates a fresh server-side secp256k1 keypair and session ID for
// clientPub, storing it as that client's current session and discarding
// whatever session previously existed for the same key.
func (r *Registry) Create(clientPub [33]byte) (*Entry, error) {
	secret, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		Secret:    secret,
		PublicKey: secret.PubKey(),
		ID:        id,
	}

	r.mu.Lock()
	r.sessions[clientPub] = entry
	r.mu.Unlock()

	return entry, nil
}

// Lookup returns the current session for clientPub, if one exists.
func (r *Registry) Lookup(clientPub [33]byte) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[clientPub]
	return entry, ok
}

// Count returns the number of clients with a live session. Intended for
// health and metrics reporting only.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
