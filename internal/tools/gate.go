package tools

import "sync/atomic"

// readOnlyMessage is the fixed refusal returned by every write tool
// while the gate is closed. It names the two switches that open it.
const readOnlyMessage = "write operations are disabled: the server is running in read-only mode; " +
	"restart with --read-write or TERRAMCP_ENABLE_WRITES=true to enable writes"

// PermissionGateError is returned when a write tool is invoked while
// the server is read-only.
type PermissionGateError struct{}

func (*PermissionGateError) Error() string {
	return readOnlyMessage
}

// Gate is the process-wide write switch. It is injected into the tool
// service rather than shared as a global so tests can run gates
// side by side.
type Gate struct {
	writes atomic.Bool
}

// NewGate returns a gate with the write switch in the given position.
func NewGate(enableWrites bool) *Gate {
	g := &Gate{}
	g.writes.Store(enableWrites)
	return g
}

// SetWrites flips the write switch at runtime.
func (g *Gate) SetWrites(enabled bool) {
	g.writes.Store(enabled)
}

// WritesEnabled reports the current switch position.
func (g *Gate) WritesEnabled() bool {
	return g.writes.Load()
}

// Check returns a PermissionGateError when writes are disabled.
func (g *Gate) Check() error {
	if !g.writes.Load() {
		return &PermissionGateError{}
	}
	return nil
}
