package codec

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors mirror the grammar: every malformed line maps to exactly
// one of these so the shell can print a single-line diagnostic.
var (
	ErrEmptyCommand        = errors.New("empty command")
	ErrUnexpectedArguments = errors.New("unexpected arguments")
	ErrMissingArguments    = errors.New("missing arguments")
)

// UnknownCommandError is returned when the verb itself is not part of
// the control vocabulary.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command: %s", e.Name)
}

// arity classes for the control verbs
const (
	arityNone = iota // no targets allowed
	arityAny         // zero or more targets, empty means all
	aritySome        // at least one target required
)

var verbs = map[string]struct {
	typ   CommandType
	arity int
}{
	"add":     {CmdAdd, aritySome},
	"clear":   {CmdClear, aritySome},
	"exit":    {CmdExit, arityNone},
	"pid":     {CmdPid, arityAny},
	"remove":  {CmdRemove, aritySome},
	"reread":  {CmdReread, arityNone},
	"restart": {CmdRestart, aritySome},
	"start":   {CmdStart, aritySome},
	"status":  {CmdStatus, arityAny},
	"stop":    {CmdStop, aritySome},
	"update":  {CmdUpdate, aritySome},
}

// ParseLine tokenizes one line of shell input on ASCII whitespace and
// parses it into a Command.
func ParseLine(line string) (*Command, error) {
	return ParseArgs(strings.Fields(line))
}

// ParseArgs parses an already tokenized command line. The first token
// is the verb, the rest are program names.
func ParseArgs(args []string) (*Command, error) {
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}

	verb, ok := verbs[args[0]]
	if !ok {
		return nil, &UnknownCommandError{Name: args[0]}
	}

	targets := args[1:]
	switch verb.arity {
	case arityNone:
		if len(targets) > 0 {
			return nil, ErrUnexpectedArguments
		}
	case aritySome:
		if len(targets) == 0 {
			return nil, ErrMissingArguments
		}
	}

	cmd := &Command{Type: verb.typ}
	if len(targets) > 0 {
		cmd.Targets = append(cmd.Targets, targets...)
	}
	return cmd, nil
}
