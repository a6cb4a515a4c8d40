package monitor

import (
	"sync"

	"github.com/manelneto/penguin/pkg/monitor/types"
)

// ConnectionState is a thread-safe snapshot of the link connection's
// current role and device, updated by cmd/penguin around the open/close
// calls. It never sees the byte channel or protocol internals, only what
// a status endpoint needs to report.
type ConnectionState struct {
	mu       sync.RWMutex
	snapshot types.Snapshot
}

// NewConnectionState returns a state with no connection open.
func NewConnectionState() *ConnectionState {
	return &ConnectionState{}
}

// SetOpen records that a connection of the given role/device is active.
func (s *ConnectionState) SetOpen(role, device string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = types.Snapshot{Open: true, Role: role, Device: device}
}

// SetClosed records that no connection is active.
func (s *ConnectionState) SetClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = types.Snapshot{}
}

// Snapshot returns the current state. Its method value satisfies the
// func() types.Snapshot signature handlers.NewHealthHandler expects.
func (s *ConnectionState) Snapshot() types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}
