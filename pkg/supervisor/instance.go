package supervisor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskmaster/pkg/codec"
	"taskmaster/pkg/config"
	"taskmaster/pkg/logger"
	"taskmaster/pkg/metrics"
)

// minStopGrace is the wait before SIGKILL when stoptime is zero, one
// beat so the stop signal has a chance to land first.
const minStopGrace = 100 * time.Millisecond

// Instance is one supervised process slot. A program with numprocs N
// owns N instances. All mutable fields are guarded by mu; operations
// on different instances run concurrently, operations on the same
// instance serialize on it.
type Instance struct {
	id      string
	program string
	index   int

	sup *Supervisor
	log *zap.SugaredLogger

	mu        sync.Mutex
	spec      *config.Program
	state     codec.ProcState
	changed   chan struct{}
	pid       int
	cmd       *exec.Cmd
	sinks     []io.Closer
	startedAt time.Time
	stoppedAt time.Time
	exitCode  *int
	lastError string
	retries   int
	wantUp    bool

	// spawnSeq increments on every spawn; exit events and timer
	// callbacks carry the value they were armed with and are dropped
	// when it no longer matches.
	spawnSeq     uint64
	startTimer   *time.Timer
	killTimer    *time.Timer
	backoffTimer *time.Timer
}

func newInstance(sup *Supervisor, program string, index int, spec *config.Program) *Instance {
	id := program
	if spec.NumProcs > 1 {
		id = fmt.Sprintf("%s:%d", program, index)
	}
	metrics.ProcStates.WithLabelValues(string(codec.StateStopped)).Inc()
	return &Instance{
		id:      id,
		program: program,
		index:   index,
		sup:     sup,
		log:     logger.Logging(id),
		spec:    spec,
		state:   codec.StateStopped,
		changed: make(chan struct{}),
	}
}

// ID returns the instance's display name.
func (in *Instance) ID() string {
	return in.id
}

// State returns the current lifecycle state.
func (in *Instance) State() codec.ProcState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

func (in *Instance) setStateLocked(next codec.ProcState) {
	if in.state == next {
		return
	}
	in.log.Infow("state change", "from", in.state, "to", next)
	metrics.ProcStates.WithLabelValues(string(in.state)).Dec()
	metrics.ProcStates.WithLabelValues(string(next)).Inc()
	in.state = next

	up := 0.0
	if next == codec.StateRunning {
		up = 1
	}
	metrics.ProcessUp.WithLabelValues(in.program, in.id).Set(up)

	close(in.changed)
	in.changed = make(chan struct{})
}

func (in *Instance) stopTimersLocked() {
	for _, t := range []*time.Timer{in.startTimer, in.killTimer, in.backoffTimer} {
		if t != nil {
			t.Stop()
		}
	}
	in.startTimer, in.killTimer, in.backoffTimer = nil, nil, nil
}

// Start brings the instance up if it is in a startable state. The
// returned state is the one reached right after initiating, STARTING
// or RUNNING on success.
func (in *Instance) Start() (codec.ProcState, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if !in.state.Startable() {
		return in.state, nil
	}
	in.wantUp = true
	in.retries = 0
	in.spawnLocked()
	return in.state, nil
}

// autostart is Start for the boot and update paths.
func (in *Instance) autostart() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.state.Startable() {
		return
	}
	in.wantUp = true
	in.retries = 0
	in.spawnLocked()
}

// spawnLocked launches the child and moves to STARTING or RUNNING.
// Spawn failures run through the retry accounting like a premature
// exit.
func (in *Instance) spawnLocked() {
	in.stopTimersLocked()
	in.spawnSeq++
	seq := in.spawnSeq

	cmd, sinks, err := in.sup.launch(in)
	metrics.SpawnsTotal.WithLabelValues(in.program).Inc()
	if err != nil {
		metrics.SpawnFailuresTotal.WithLabelValues(in.program).Inc()
		in.log.Errorw("spawn failed", "error", err)
		in.failStartLocked(err.Error())
		return
	}

	in.cmd = cmd
	in.sinks = sinks
	in.pid = cmd.Process.Pid
	in.startedAt = time.Now()
	in.exitCode = nil
	in.lastError = ""
	in.log.Infow("spawned", "pid", in.pid, "cmd", in.spec.Cmd)

	go in.sup.monitor(in, seq, cmd)

	if in.spec.StartTime <= 0 {
		in.setStateLocked(codec.StateStarting)
		in.retries = 0
		in.setStateLocked(codec.StateRunning)
		return
	}

	in.setStateLocked(codec.StateStarting)
	in.startTimer = time.AfterFunc(time.Duration(in.spec.StartTime)*time.Second, func() {
		in.promoteRunning(seq)
	})
}

// promoteRunning fires when the child survived starttime.
func (in *Instance) promoteRunning(seq uint64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if seq != in.spawnSeq || in.state != codec.StateStarting {
		return
	}
	in.retries = 0
	in.setStateLocked(codec.StateRunning)
}

// failStartLocked applies the retry budget after a failed start
// attempt: below the budget the instance parks in BACKOFF and retries,
// beyond it the instance goes FATAL.
func (in *Instance) failStartLocked(reason string) {
	in.pid = 0
	in.cmd = nil
	in.stoppedAt = time.Now()

	if in.retries >= in.spec.StartRetries {
		in.lastError = reason
		in.wantUp = false
		in.setStateLocked(codec.StateFatal)
		return
	}

	in.retries++
	delay := backoffDelay(in.retries - 1)
	in.lastError = reason
	in.setStateLocked(codec.StateBackoff)
	in.log.Infow("backoff", "attempt", in.retries, "delay", delay)

	seq := in.spawnSeq
	in.backoffTimer = time.AfterFunc(delay, func() {
		in.retrySpawn(seq)
	})
}

func (in *Instance) retrySpawn(seq uint64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if seq != in.spawnSeq || in.state != codec.StateBackoff {
		return
	}
	in.spawnLocked()
}

// Stop initiates shutdown of the instance. RUNNING and STARTING move
// to STOPPING, get the configured signal and a SIGKILL escalation
// timer; BACKOFF just cancels the pending retry. The state after
// initiating is returned, callers that need the final state use
// AwaitLeave.
func (in *Instance) Stop() codec.ProcState {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.wantUp = false
	switch in.state {
	case codec.StateStarting, codec.StateRunning:
		in.stopTimersLocked()
		in.setStateLocked(codec.StateStopping)
		in.signalLocked(in.spec.Signal())

		grace := time.Duration(in.spec.StopTime) * time.Second
		if grace <= 0 {
			grace = minStopGrace
		}
		seq := in.spawnSeq
		in.killTimer = time.AfterFunc(grace, func() {
			in.escalateKill(seq)
		})
	case codec.StateBackoff:
		in.stopTimersLocked()
		in.setStateLocked(codec.StateStopped)
	}
	return in.state
}

// escalateKill fires when the child ignored the stop signal for the
// whole grace period.
func (in *Instance) escalateKill(seq uint64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if seq != in.spawnSeq || in.state != codec.StateStopping {
		return
	}
	in.log.Warnw("stop grace expired, sending SIGKILL", "pid", in.pid)
	in.signalLocked(syscall.SIGKILL)
}

// signalLocked delivers sig to the child's process group.
func (in *Instance) signalLocked(sig syscall.Signal) {
	if in.pid <= 0 {
		return
	}
	if err := syscall.Kill(-in.pid, sig); err != nil {
		// group may be gone already, fall back to the leader
		if err := syscall.Kill(in.pid, sig); err != nil {
			in.log.Debugw("signal failed", "signal", sig, "error", err)
		}
	}
}

// handleExit consumes the reaped exit of the spawn identified by seq.
func (in *Instance) handleExit(seq uint64, code int, signaled bool, sig syscall.Signal, waitErr error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if seq != in.spawnSeq {
		return
	}
	in.stopTimersLocked()
	in.pid = 0
	in.cmd = nil
	for _, sink := range in.sinks {
		_ = sink.Close()
	}
	in.sinks = nil
	in.stoppedAt = time.Now()
	in.exitCode = &code

	expected := in.spec.ExpectedExit(code)
	metrics.ExitsTotal.WithLabelValues(in.program, fmt.Sprintf("%t", expected)).Inc()

	if waitErr != nil {
		in.lastError = waitErr.Error()
		in.wantUp = false
		in.log.Errorw("wait failed", "error", waitErr)
		in.setStateLocked(codec.StateUnknown)
		return
	}

	desc := fmt.Sprintf("exited with code %d", code)
	if signaled {
		desc = fmt.Sprintf("terminated by SIG%s", sigName(sig))
	}
	in.log.Infow("reaped", "detail", desc, "expected", expected)

	switch in.state {
	case codec.StateStopping:
		in.setStateLocked(codec.StateStopped)

	case codec.StateStarting:
		in.failStartLocked(fmt.Sprintf("%s before starttime", desc))

	case codec.StateRunning:
		in.lastError = desc
		in.setStateLocked(codec.StateExited)
		if in.shouldRestartLocked(expected) {
			metrics.RestartsTotal.WithLabelValues(in.program).Inc()
			in.log.Infow("restarting", "policy", in.spec.AutoRestart)
			in.spawnLocked()
		} else {
			in.wantUp = false
		}

	default:
		// exit event in a state that should not own a process
		in.lastError = desc
		in.wantUp = false
		in.setStateLocked(codec.StateExited)
	}
}

func (in *Instance) shouldRestartLocked(expected bool) bool {
	switch in.spec.AutoRestart {
	case config.RestartAlways:
		return true
	case config.RestartUnexpected:
		return !expected
	}
	return false
}

// AwaitLeave blocks until the state differs from the given one or the
// deadline passes, and returns the state seen last.
func (in *Instance) AwaitLeave(from codec.ProcState, deadline time.Time) codec.ProcState {
	for {
		in.mu.Lock()
		st := in.state
		ch := in.changed
		in.mu.Unlock()

		if st != from {
			return st
		}
		wait := time.Until(deadline)
		if wait <= 0 {
			return st
		}

		timer := time.NewTimer(wait)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// WantUp reports whether the supervisor still owes this instance a
// running process.
func (in *Instance) WantUp() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.wantUp
}

// StopWait is how long a stop is given before the caller may give up:
// the configured grace plus room for the SIGKILL escalation to land.
func (in *Instance) StopWait() time.Duration {
	return time.Duration(in.spec.StopTime)*time.Second + 2*time.Second
}

// ClearLogs truncates the live stdout/stderr sinks and removes rotated
// backups.
func (in *Instance) ClearLogs() error {
	in.mu.Lock()
	stdout := sinkPath(in.spec.Stdout, in.index, in.spec.NumProcs)
	stderr := sinkPath(in.spec.Stderr, in.index, in.spec.NumProcs)
	in.mu.Unlock()

	var firstErr error
	for _, path := range []string{stdout, stderr} {
		if err := truncateSink(path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func truncateSink(path string) error {
	if err := os.Truncate(path, 0); err != nil && !os.IsNotExist(err) {
		return err
	}

	// lumberjack backups live next to the file as <base>-<ts><ext>
	ext := filepath.Ext(path)
	prefix := path[:len(path)-len(ext)]
	backups, err := filepath.Glob(prefix + "-*" + ext)
	if err != nil {
		return err
	}
	for _, b := range backups {
		if err := os.Remove(b); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Info snapshots the instance for a response row.
func (in *Instance) Info() codec.ProcInfo {
	in.mu.Lock()
	defer in.mu.Unlock()

	info := codec.ProcInfo{
		Name:     in.id,
		Pid:      in.pid,
		State:    in.state,
		Restarts: uint32(in.retries),
	}
	if !in.startedAt.IsZero() {
		info.StartedAt = in.startedAt.Unix()
	}
	if in.exitCode != nil {
		code := *in.exitCode
		info.ExitCode = &code
	}

	switch in.state {
	case codec.StateRunning, codec.StateStarting:
		info.Detail = fmt.Sprintf("pid %d, uptime %s", in.pid, formatUptime(time.Since(in.startedAt)))
	case codec.StateStopping:
		info.Detail = fmt.Sprintf("stopping (pid %d)", in.pid)
	case codec.StateBackoff:
		info.Detail = fmt.Sprintf("%s, retry %d pending", in.lastError, in.retries)
	case codec.StateExited:
		info.Detail = in.lastError
	case codec.StateFatal, codec.StateUnknown:
		info.Detail = in.lastError
	case codec.StateStopped:
		if in.stoppedAt.IsZero() {
			info.Detail = "not started"
		} else {
			info.Detail = fmt.Sprintf("stopped at %s", in.stoppedAt.Format("15:04:05"))
		}
	}
	return info
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func sigName(sig syscall.Signal) string {
	if name := sigString(sig); name != "" {
		return name
	}
	return fmt.Sprintf("%d", int(sig))
}

func sigString(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGHUP:
		return "HUP"
	case syscall.SIGINT:
		return "INT"
	case syscall.SIGQUIT:
		return "QUIT"
	case syscall.SIGKILL:
		return "KILL"
	case syscall.SIGTERM:
		return "TERM"
	case syscall.SIGUSR1:
		return "USR1"
	case syscall.SIGUSR2:
		return "USR2"
	}
	return ""
}
