// Package client is the operator side of the control protocol. Every
// call dials the configured listen address, ships exactly one framed
// command and hands back the decoded response. Rendering stays in the
// cmd layer, this package only moves frames.
package client

import (
	"fmt"
	"net"
	"time"

	"taskmaster/pkg/codec"
	"taskmaster/pkg/config"
	"taskmaster/pkg/utils"
)

const (
	dialTimeout = 3 * time.Second

	// replyTimeout bounds the whole exchange. A stop answers only after
	// the target's stop grace ran out, so this has to stay generous.
	replyTimeout = 60 * time.Second
)

// Send delivers one command to the daemon and returns its response.
func Send(cmd *codec.Command) (*codec.Response, error) {
	network, address, err := utils.SplitAddr(config.Get().Listen)
	if err != nil {
		return nil, err
	}

	conn, err := net.DialTimeout(network, address, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("cannot reach taskmasterd at %s: %w", config.Get().Listen, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(replyTimeout))

	if err := codec.WriteFrame(conn, cmd); err != nil {
		return nil, fmt.Errorf("send %s: %w", cmd.Type, err)
	}

	resp := new(codec.Response)
	if err := codec.ReadFrame(conn, resp); err != nil {
		return nil, fmt.Errorf("read %s response: %w", cmd.Type, err)
	}
	return resp, nil
}

// Status reports every named program, or all of them when no names are given.
func Status(targets ...string) (*codec.Response, error) {
	return Send(&codec.Command{Type: codec.CmdStatus, Targets: targets})
}

// Pid reports the main pid of each named program.
func Pid(targets ...string) (*codec.Response, error) {
	return Send(&codec.Command{Type: codec.CmdPid, Targets: targets})
}

// Start brings the named programs up.
func Start(targets ...string) (*codec.Response, error) {
	return Send(&codec.Command{Type: codec.CmdStart, Targets: targets})
}

// Stop takes the named programs down and waits for them to settle.
func Stop(targets ...string) (*codec.Response, error) {
	return Send(&codec.Command{Type: codec.CmdStop, Targets: targets})
}

// Restart stops and then starts the named programs.
func Restart(targets ...string) (*codec.Response, error) {
	return Send(&codec.Command{Type: codec.CmdRestart, Targets: targets})
}

// Clear truncates the log files of the named programs.
func Clear(targets ...string) (*codec.Response, error) {
	return Send(&codec.Command{Type: codec.CmdClear, Targets: targets})
}

// Add activates programs that are defined on disk but not loaded.
func Add(targets ...string) (*codec.Response, error) {
	return Send(&codec.Command{Type: codec.CmdAdd, Targets: targets})
}

// Remove deactivates loaded programs without touching the program file.
func Remove(targets ...string) (*codec.Response, error) {
	return Send(&codec.Command{Type: codec.CmdRemove, Targets: targets})
}

// Reread loads the program file again and reports the pending changes.
func Reread() (*codec.Response, error) {
	return Send(&codec.Command{Type: codec.CmdReread})
}

// Update applies the pending program file changes to the named programs.
func Update(targets ...string) (*codec.Response, error) {
	return Send(&codec.Command{Type: codec.CmdUpdate, Targets: targets})
}

// Exit asks the daemon to drain every program and terminate.
func Exit() (*codec.Response, error) {
	return Send(&codec.Command{Type: codec.CmdExit})
}
