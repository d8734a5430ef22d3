package codec

// ProcState is the lifecycle state of one supervised process instance.
type ProcState string

const (
	StateStopped  ProcState = "STOPPED"
	StateStarting ProcState = "STARTING"
	StateRunning  ProcState = "RUNNING"
	StateBackoff  ProcState = "BACKOFF"
	StateStopping ProcState = "STOPPING"
	StateExited   ProcState = "EXITED"
	StateFatal    ProcState = "FATAL"
	StateUnknown  ProcState = "UNKNOWN"
)

// Alive reports whether an OS process may exist in this state.
func (s ProcState) Alive() bool {
	switch s {
	case StateStarting, StateRunning, StateStopping:
		return true
	}
	return false
}

// Startable reports whether a start request is legal from this state.
// BACKOFF is excluded because the supervisor already owns a pending
// retry there, and STOPPING because the old process is still draining.
func (s ProcState) Startable() bool {
	switch s {
	case StateStopped, StateExited, StateFatal, StateUnknown:
		return true
	}
	return false
}

// Stoppable reports whether a stop request has anything to act on.
func (s ProcState) Stoppable() bool {
	switch s {
	case StateStarting, StateRunning, StateBackoff:
		return true
	}
	return false
}

func (s ProcState) String() string {
	return string(s)
}
