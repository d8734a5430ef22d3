package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	sent := &Command{Type: CmdStart, Targets: []string{"web", "worker"}}
	if err := WriteFrame(&buf, sent); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	var got Command
	if err := ReadFrame(&buf, &got); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got.Type != sent.Type || len(got.Targets) != 2 || got.Targets[0] != "web" || got.Targets[1] != "worker" {
		t.Errorf("round trip = %+v, want %+v", got, sent)
	}
}

func TestFrameResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	code := 0
	sent := &Response{
		Code:    StatusOK,
		Message: "started",
		Procs: []ProcInfo{
			{Name: "web:0", Pid: 4242, State: StateRunning, Restarts: 2},
			{Name: "worker:0", State: StateExited, ExitCode: &code},
			{Name: "ghost", Error: "no such program"},
		},
		Diff: &ConfigDiff{Added: []string{"cron"}},
	}
	if err := WriteFrame(&buf, sent); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	var got Response
	if err := ReadFrame(&buf, &got); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got.Code != StatusOK || len(got.Procs) != 3 {
		t.Fatalf("round trip = %+v, want %+v", got, sent)
	}
	if got.Procs[0].State != StateRunning || got.Procs[0].Pid != 4242 {
		t.Errorf("proc[0] = %+v", got.Procs[0])
	}
	if got.Procs[1].ExitCode == nil || *got.Procs[1].ExitCode != 0 {
		t.Errorf("proc[1] exit code = %v, want 0", got.Procs[1].ExitCode)
	}
	if got.Procs[2].Error != "no such program" {
		t.Errorf("proc[2] error = %q", got.Procs[2].Error)
	}
	if got.Diff.Empty() || got.Diff.Added[0] != "cron" {
		t.Errorf("diff = %+v", got.Diff)
	}
}

func TestFrameMultipleSequential(t *testing.T) {
	var buf bytes.Buffer
	for _, name := range []string{"a", "b", "c"} {
		if err := WriteFrame(&buf, &Command{Type: CmdStop, Targets: []string{name}}); err != nil {
			t.Fatalf("WriteFrame(%s): %v", name, err)
		}
	}
	for _, name := range []string{"a", "b", "c"} {
		var got Command
		if err := ReadFrame(&buf, &got); err != nil {
			t.Fatalf("ReadFrame(%s): %v", name, err)
		}
		if got.Targets[0] != name {
			t.Errorf("frame target = %q, want %q", got.Targets[0], name)
		}
	}
	var extra Command
	if err := ReadFrame(&buf, &extra); err != io.EOF {
		t.Errorf("ReadFrame past end = %v, want io.EOF", err)
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], MaxFrameSize+1)

	var got Command
	err := ReadFrame(bytes.NewReader(hdr[:]), &got)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("ReadFrame = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, &Command{Type: CmdStatus}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-1]

	var got Command
	if err := ReadFrame(bytes.NewReader(truncated), &got); err == nil {
		t.Error("ReadFrame on truncated payload succeeded, want error")
	}
}

func TestMarshalDeterministic(t *testing.T) {
	cmd := &Command{Type: CmdRestart, Targets: []string{"web"}}
	a, err := Marshal(cmd)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	b, err := Marshal(cmd)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical payloads encoded differently")
	}
}
