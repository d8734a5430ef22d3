package codec

// Response status codes, loosely HTTP shaped.
const (
	StatusOK       = 200
	StatusBadInput = 400
	StatusNotFound = 404
	StatusError    = 500
)

// SessionCtl tells the serving loop what to do once the response has
// been flushed to the client.
type SessionCtl int

const (
	SessionContinue SessionCtl = iota
	SessionShutdown
)

// ProcInfo is one per-instance row of a response. Error is set instead
// of State when the request could not be applied to the instance, for
// example an unknown program name.
type ProcInfo struct {
	Name      string    `cbor:"name"`
	Pid       int       `cbor:"pid,omitempty"`
	State     ProcState `cbor:"state,omitempty"`
	Detail    string    `cbor:"detail,omitempty"`
	Error     string    `cbor:"error,omitempty"`
	StartedAt int64     `cbor:"started_at,omitempty"`
	ExitCode  *int      `cbor:"exit_code,omitempty"`
	Restarts  uint32    `cbor:"restarts,omitempty"`
}

// ConfigDiff is the outcome of comparing the running configuration
// against the one on disk. Names are program names, sorted.
type ConfigDiff struct {
	Added   []string `cbor:"added,omitempty"`
	Changed []string `cbor:"changed,omitempty"`
	Removed []string `cbor:"removed,omitempty"`
}

// Empty reports whether the diff carries no changes at all.
func (d *ConfigDiff) Empty() bool {
	return d == nil || len(d.Added)+len(d.Changed)+len(d.Removed) == 0
}

// Response is the single reply the daemon sends for one command.
type Response struct {
	Code    int         `cbor:"code"`
	Message string      `cbor:"message,omitempty"`
	Procs   []ProcInfo  `cbor:"procs,omitempty"`
	Diff    *ConfigDiff `cbor:"diff,omitempty"`
}

// Ok reports whether the command as a whole succeeded. Individual rows
// may still carry their own Error.
func (r *Response) Ok() bool {
	return r.Code == StatusOK
}
