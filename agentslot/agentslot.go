// Package agentslot manages the hypervisor's single optional background
// helper task: a mutex-guarded slot holding at most one running agent,
// where starting a new one stops and replaces whatever was running. It is
// not wired to any HTTP route; the agent registry that would front it
// lives outside this process.
package agentslot

import (
	"context"
	"sync"
)

// Slot is one running helper agent: a name and a cancel function for its
// background task.
type Slot struct {
	Name   string
	cancel context.CancelFunc
	done   <-chan struct{}
}

// Manager holds at most one live Slot at a time, guarded by a single
// mutex. Start overrides whatever was previously running; no I/O happens
// under the lock.
type Manager struct {
	mu      sync.Mutex
	current *Slot
}

// NewManager returns an empty agent slot manager.
func NewManager() *Manager {
	return &Manager{}
}

// Start launches task under name, stopping and replacing any
// currently-running agent first. task must return promptly once ctx is
// canceled.
func (m *Manager) Start(name string, task func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	prev := m.current
	m.current = &Slot{Name: name, cancel: cancel, done: done}
	m.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	go func() {
		defer close(done)
		task(ctx)
	}()
}

// Stop aborts the current agent, if any, and waits for its task to
// return. It is a no-op if no agent is running.
func (m *Manager) Stop() {
	m.mu.Lock()
	slot := m.current
	m.current = nil
	m.mu.Unlock()

	if slot == nil {
		return
	}
	slot.cancel()
	<-slot.done
}

// Current returns the name of the currently running agent, if any.
func (m *Manager) Current() (name string, running bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", false
	}
	return m.current.Name, true
}
