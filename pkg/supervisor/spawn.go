package supervisor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"taskmaster/pkg/utils"
)

// spawnMu serializes the umask bracket around fork, the umask is
// process-wide state.
var spawnMu sync.Mutex

// pipeDrainDelay bounds how long a reap waits on the child's log pipes
// after the process itself exited. A grandchild that inherited the
// pipes must not stall reaping.
const pipeDrainDelay = 5 * time.Second

// launch forks the instance's child process. The command line is split
// on whitespace and executed directly, without a shell. Returned sinks
// are the child's log writers, closed by the caller once the child is
// reaped.
func (s *Supervisor) launch(in *Instance) (*exec.Cmd, []io.Closer, error) {
	spec := in.spec

	args := strings.Fields(spec.Cmd)
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("empty command")
	}

	stdout := newSink(sinkPath(spec.Stdout, in.index, spec.NumProcs))
	stderr := newSink(sinkPath(spec.Stderr, in.index, spec.NumProcs))

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = spec.WorkingDir
	cmd.Env = utils.MergeEnv(os.Environ(), s.globalEnv(), spec.Env, map[string]string{
		"TASKMASTER_PROGRAM": in.program,
		"TASKMASTER_PROCESS": in.id,
	})
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = pipeDrainDelay

	spawnMu.Lock()
	old := unix.Umask(spec.Umask)
	err := cmd.Start()
	unix.Umask(old)
	spawnMu.Unlock()

	if err != nil {
		_ = stdout.Close()
		_ = stderr.Close()
		return nil, nil, err
	}
	return cmd, []io.Closer{stdout, stderr}, nil
}

func newSink(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 3,
	}
}

// sinkPath derives the per-instance log path. Multi-instance programs
// get an index suffix so the slots never share a file.
func sinkPath(base string, index, numprocs int) string {
	if numprocs <= 1 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, index)
}
