package codec

// CommandType names one control verb understood by the daemon. The wire
// value is the capitalized verb so that dumps stay readable in logs.
type CommandType string

const (
	CmdAdd     CommandType = "Add"
	CmdClear   CommandType = "Clear"
	CmdExit    CommandType = "Exit"
	CmdPid     CommandType = "Pid"
	CmdRemove  CommandType = "Remove"
	CmdReread  CommandType = "Reread"
	CmdRestart CommandType = "Restart"
	CmdStart   CommandType = "Start"
	CmdStatus  CommandType = "Status"
	CmdStop    CommandType = "Stop"
	CmdUpdate  CommandType = "Update"
)

// Command is one decoded control request. Targets holds program names;
// for Pid and Status an empty list means every known program, and for
// Exit and Reread it is always empty.
type Command struct {
	Type    CommandType `cbor:"type"`
	Targets []string    `cbor:"targets,omitempty"`
}

// Unspecified reports whether the command was sent without explicit
// targets and therefore addresses the whole registry.
func (c *Command) Unspecified() bool {
	return len(c.Targets) == 0
}
