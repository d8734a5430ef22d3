package supervisor

import (
	"path/filepath"
	"testing"
	"time"

	"taskmaster/pkg/codec"
	"taskmaster/pkg/config"
)

func TestExitWithoutRestart(t *testing.T) {
	sup := newTestSupervisor(t)
	dir := t.TempDir()
	spec := testSpec(t, writeScript(t, dir, "ok.sh", "exit 0"))
	p := addProgram(t, sup, "oneshot", spec)
	in := p.Instances()[0]

	if st, err := in.Start(); err != nil || !st.Alive() {
		t.Fatalf("start = %s, %v", st, err)
	}
	waitState(t, in, codec.StateExited, 3*time.Second)

	info := in.Info()
	if info.ExitCode == nil || *info.ExitCode != 0 {
		t.Fatalf("exit code = %v, want 0", info.ExitCode)
	}
	if in.WantUp() {
		t.Error("instance still wants up after a final exit")
	}

	time.Sleep(200 * time.Millisecond)
	if st := in.State(); st != codec.StateExited {
		t.Fatalf("respawned into %s with autorestart never", st)
	}
}

func TestAutoRestartAlways(t *testing.T) {
	sup := newTestSupervisor(t)
	dir := t.TempDir()
	marker := filepath.Join(dir, "runs")
	spec := testSpec(t, writeScript(t, dir, "flaky.sh", "echo x >> "+marker+"\nsleep 0.2\nexit 3"))
	spec.AutoRestart = config.RestartAlways
	p := addProgram(t, sup, "flaky", spec)
	in := p.Instances()[0]

	if _, err := in.Start(); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for countRuns(t, marker) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("not respawned, runs = %d", countRuns(t, marker))
		}
		time.Sleep(20 * time.Millisecond)
	}

	in.Stop()
	waitState(t, in, codec.StateStopped, 3*time.Second)

	runs := countRuns(t, marker)
	time.Sleep(400 * time.Millisecond)
	if got := countRuns(t, marker); got != runs {
		t.Fatalf("respawned after stop: %d -> %d runs", runs, got)
	}
	if st := in.State(); st != codec.StateStopped {
		t.Fatalf("state after stop = %s", st)
	}
}

func TestAutoRestartUnexpected(t *testing.T) {
	t.Run("expected code stays down", func(t *testing.T) {
		sup := newTestSupervisor(t)
		dir := t.TempDir()
		marker := filepath.Join(dir, "runs")
		spec := testSpec(t, writeScript(t, dir, "done.sh", "echo x >> "+marker+"\nexit 7"))
		spec.AutoRestart = config.RestartUnexpected
		spec.ExitCodes = []int{7}
		p := addProgram(t, sup, "done", spec)
		in := p.Instances()[0]

		if _, err := in.Start(); err != nil {
			t.Fatal(err)
		}
		waitState(t, in, codec.StateExited, 3*time.Second)

		time.Sleep(400 * time.Millisecond)
		if got := countRuns(t, marker); got != 1 {
			t.Fatalf("runs = %d, want 1", got)
		}
		if in.WantUp() {
			t.Error("wants up after an expected exit")
		}
	})

	t.Run("unexpected code restarts", func(t *testing.T) {
		sup := newTestSupervisor(t)
		dir := t.TempDir()
		marker := filepath.Join(dir, "runs")
		spec := testSpec(t, writeScript(t, dir, "crash.sh", "echo x >> "+marker+"\nsleep 0.2\nexit 7"))
		spec.AutoRestart = config.RestartUnexpected
		p := addProgram(t, sup, "crash", spec)
		in := p.Instances()[0]

		if _, err := in.Start(); err != nil {
			t.Fatal(err)
		}

		deadline := time.Now().Add(5 * time.Second)
		for countRuns(t, marker) < 2 {
			if time.Now().After(deadline) {
				t.Fatalf("not respawned, runs = %d", countRuns(t, marker))
			}
			time.Sleep(20 * time.Millisecond)
		}

		in.Stop()
		waitState(t, in, codec.StateStopped, 3*time.Second)
	})
}

func TestStartRetriesExhaustToFatal(t *testing.T) {
	sup := newTestSupervisor(t)
	dir := t.TempDir()
	marker := filepath.Join(dir, "runs")
	spec := testSpec(t, writeScript(t, dir, "bad.sh", "echo x >> "+marker+"\nexit 1"))
	spec.StartTime = 1
	spec.StartRetries = 1
	p := addProgram(t, sup, "bad", spec)
	in := p.Instances()[0]

	if _, err := in.Start(); err != nil {
		t.Fatal(err)
	}

	waitState(t, in, codec.StateBackoff, 2*time.Second)
	waitState(t, in, codec.StateFatal, 4*time.Second)

	if got := countRuns(t, marker); got != 2 {
		t.Fatalf("spawn attempts = %d, want 2", got)
	}
	info := in.Info()
	if info.Restarts != 1 {
		t.Fatalf("retries = %d, want 1", info.Restarts)
	}
	if info.Detail == "" {
		t.Error("fatal row has no detail")
	}
	if in.WantUp() {
		t.Error("fatal instance still wants up")
	}
}

func TestNoRetriesGoesFatalImmediately(t *testing.T) {
	sup := newTestSupervisor(t)
	dir := t.TempDir()
	marker := filepath.Join(dir, "runs")
	spec := testSpec(t, writeScript(t, dir, "bad.sh", "echo x >> "+marker+"\nexit 1"))
	spec.StartTime = 1
	p := addProgram(t, sup, "bad", spec)
	in := p.Instances()[0]

	if _, err := in.Start(); err != nil {
		t.Fatal(err)
	}
	waitState(t, in, codec.StateFatal, 3*time.Second)

	if got := countRuns(t, marker); got != 1 {
		t.Fatalf("spawn attempts = %d, want 1", got)
	}
}

func TestSpawnFailureGoesFatal(t *testing.T) {
	sup := newTestSupervisor(t)
	spec := testSpec(t, "/nonexistent/taskmaster-test-missing")
	p := addProgram(t, sup, "missing", spec)
	in := p.Instances()[0]

	st, err := in.Start()
	if err != nil {
		t.Fatal(err)
	}
	if st != codec.StateFatal {
		t.Fatalf("start = %s, want FATAL", st)
	}
	if in.Info().Detail == "" {
		t.Error("no spawn error recorded")
	}
}

func TestStopTerminatesChild(t *testing.T) {
	sup := newTestSupervisor(t)
	spec := testSpec(t, "sleep 60")
	p := addProgram(t, sup, "svc", spec)
	in := p.Instances()[0]

	if st, _ := in.Start(); st != codec.StateRunning {
		t.Fatalf("start = %s", st)
	}
	firstPid := in.Info().Pid
	if firstPid <= 0 {
		t.Fatalf("pid = %d", firstPid)
	}

	// starting a running instance is a no-op
	if st, _ := in.Start(); st != codec.StateRunning {
		t.Fatalf("second start = %s", st)
	}
	if in.Info().Pid != firstPid {
		t.Fatal("second start respawned the child")
	}

	if st := in.Stop(); st != codec.StateStopping {
		t.Fatalf("stop = %s", st)
	}
	waitState(t, in, codec.StateStopped, 3*time.Second)

	info := in.Info()
	if info.Pid != 0 {
		t.Fatalf("pid after stop = %d", info.Pid)
	}
	if info.ExitCode == nil || *info.ExitCode != 143 {
		t.Fatalf("exit code = %v, want 143 from SIGTERM", info.ExitCode)
	}

	// the slot is reusable
	if st, _ := in.Start(); st != codec.StateRunning {
		t.Fatalf("restart = %s", st)
	}
	if pid := in.Info().Pid; pid <= 0 || pid == firstPid {
		t.Fatalf("pid after restart = %d", pid)
	}
	in.Stop()
	waitState(t, in, codec.StateStopped, 3*time.Second)
}

func TestStopEscalatesToKill(t *testing.T) {
	sup := newTestSupervisor(t)
	dir := t.TempDir()
	spec := testSpec(t, writeScript(t, dir, "stubborn.sh", "trap '' TERM\nwhile :; do sleep 1; done"))
	p := addProgram(t, sup, "stubborn", spec)
	in := p.Instances()[0]

	if _, err := in.Start(); err != nil {
		t.Fatal(err)
	}
	waitState(t, in, codec.StateRunning, 3*time.Second)
	time.Sleep(300 * time.Millisecond) // let the trap arm

	if st := in.Stop(); st != codec.StateStopping {
		t.Fatalf("stop = %s", st)
	}
	waitState(t, in, codec.StateStopped, 5*time.Second)

	info := in.Info()
	if info.ExitCode == nil || *info.ExitCode != 137 {
		t.Fatalf("exit code = %v, want 137 from SIGKILL", info.ExitCode)
	}
}

func TestStopDuringBackoffCancelsRetry(t *testing.T) {
	sup := newTestSupervisor(t)
	dir := t.TempDir()
	marker := filepath.Join(dir, "runs")
	spec := testSpec(t, writeScript(t, dir, "bad.sh", "echo x >> "+marker+"\nexit 1"))
	spec.StartTime = 1
	spec.StartRetries = 5
	p := addProgram(t, sup, "bad", spec)
	in := p.Instances()[0]

	if _, err := in.Start(); err != nil {
		t.Fatal(err)
	}
	waitState(t, in, codec.StateBackoff, 2*time.Second)

	if st := in.Stop(); st != codec.StateStopped {
		t.Fatalf("stop during backoff = %s", st)
	}

	time.Sleep(1300 * time.Millisecond)
	if got := countRuns(t, marker); got != 1 {
		t.Fatalf("retry fired after stop, runs = %d", got)
	}
	if st := in.State(); st != codec.StateStopped {
		t.Fatalf("state = %s", st)
	}
}

func TestStopRacesNaturalExit(t *testing.T) {
	sup := newTestSupervisor(t)
	dir := t.TempDir()
	spec := testSpec(t, writeScript(t, dir, "brief.sh", "sleep 0.15"))
	spec.AutoRestart = config.RestartAlways
	p := addProgram(t, sup, "brief", spec)
	in := p.Instances()[0]

	if _, err := in.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	in.Stop()

	// whichever side wins, the instance settles in STOPPED and the
	// restart policy must not resurrect it
	waitState(t, in, codec.StateStopped, 3*time.Second)
	time.Sleep(400 * time.Millisecond)
	if st := in.State(); st != codec.StateStopped {
		t.Fatalf("state after stop = %s", st)
	}
	if in.WantUp() {
		t.Error("stopped instance still wants up")
	}
}
