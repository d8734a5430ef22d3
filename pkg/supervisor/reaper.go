package supervisor

import (
	"errors"
	"os/exec"
	"syscall"
)

// exitEvent is one reaped child exit on its way from a monitor
// goroutine to the reap loop.
type exitEvent struct {
	instance *Instance
	seq      uint64
	code     int
	signaled bool
	sig      syscall.Signal
	err      error
}

// monitor waits on one spawned child and funnels its exit into the
// reap loop. One monitor goroutine exists per live spawn.
func (s *Supervisor) monitor(in *Instance, seq uint64, cmd *exec.Cmd) {
	err := cmd.Wait()

	ev := exitEvent{instance: in, seq: seq}
	var xerr *exec.ExitError
	switch {
	case err == nil:
	case errors.Is(err, exec.ErrWaitDelay):
		// clean exit, something else kept the log pipes open
	case errors.As(err, &xerr):
		ws, ok := xerr.Sys().(syscall.WaitStatus)
		if !ok {
			ev.err = xerr
			break
		}
		if ws.Signaled() {
			ev.signaled = true
			ev.sig = ws.Signal()
			ev.code = 128 + int(ws.Signal())
		} else {
			ev.code = ws.ExitStatus()
		}
	default:
		ev.err = err
	}

	select {
	case s.exits <- ev:
	case <-s.ctx.Done():
		// reap loop is gone, deliver in place
		in.handleExit(ev.seq, ev.code, ev.signaled, ev.sig, ev.err)
	}
}

// reapLoop applies exit events to their instances one at a time. It is
// the only consumer of the exits channel and runs for the daemon's
// whole lifetime.
func (s *Supervisor) reapLoop() {
	defer s.wg.Done()
	for {
		select {
		case ev := <-s.exits:
			ev.instance.handleExit(ev.seq, ev.code, ev.signaled, ev.sig, ev.err)
		case <-s.ctx.Done():
			return
		}
	}
}
