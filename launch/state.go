package launch

// State is the controller's position in the runtime lifecycle. States
// move strictly forward; any state may drop to StateFailed.
type State int

const (
	// StateUnloaded means no shared library has been opened.
	StateUnloaded State = iota
	// StateBound means the library is open and all entry points are
	// resolved.
	StateBound
	// StateConfigured means a configuration structure has been
	// populated for the library's version.
	StateConfigured
	// StateStarted means the interpreter is initialized.
	StateStarted
	// StateRunning means the bootstrap modules are imported and
	// application code is executing.
	StateRunning
	// StateFinalized means the interpreter was shut down and the
	// library released.
	StateFinalized
	// StateFailed is the terminal error state.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateBound:
		return "bound"
	case StateConfigured:
		return "configured"
	case StateStarted:
		return "started"
	case StateRunning:
		return "running"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
