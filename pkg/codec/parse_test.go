package codec

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		name string
		line string
		want *Command
	}{
		{"exit", "exit", &Command{Type: CmdExit}},
		{"reread", "reread", &Command{Type: CmdReread}},
		{"status bare", "status", &Command{Type: CmdStatus}},
		{"pid bare", "pid", &Command{Type: CmdPid}},
		{"status with targets", "status web worker", &Command{Type: CmdStatus, Targets: []string{"web", "worker"}}},
		{"pid with target", "pid web", &Command{Type: CmdPid, Targets: []string{"web"}}},
		{"start one", "start web", &Command{Type: CmdStart, Targets: []string{"web"}}},
		{"stop many", "stop web worker cron", &Command{Type: CmdStop, Targets: []string{"web", "worker", "cron"}}},
		{"restart", "restart web", &Command{Type: CmdRestart, Targets: []string{"web"}}},
		{"add", "add web", &Command{Type: CmdAdd, Targets: []string{"web"}}},
		{"remove", "remove web", &Command{Type: CmdRemove, Targets: []string{"web"}}},
		{"clear", "clear web", &Command{Type: CmdClear, Targets: []string{"web"}}},
		{"update", "update all", &Command{Type: CmdUpdate, Targets: []string{"all"}}},
		{"extra whitespace", "  start   web  ", &Command{Type: CmdStart, Targets: []string{"web"}}},
		{"tabs", "stop\tweb", &Command{Type: CmdStop, Targets: []string{"web"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLine(tc.line)
			if err != nil {
				t.Fatalf("ParseLine(%q) returned error: %v", tc.line, err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseLine(%q) = %+v, want %+v", tc.line, got, tc.want)
			}
		})
	}
}

func TestParseLineErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
		want error
	}{
		{"empty", "", ErrEmptyCommand},
		{"whitespace only", "   \t  ", ErrEmptyCommand},
		{"exit with args", "exit now", ErrUnexpectedArguments},
		{"reread with args", "reread web", ErrUnexpectedArguments},
		{"start bare", "start", ErrMissingArguments},
		{"stop bare", "stop", ErrMissingArguments},
		{"restart bare", "restart", ErrMissingArguments},
		{"add bare", "add", ErrMissingArguments},
		{"remove bare", "remove", ErrMissingArguments},
		{"clear bare", "clear", ErrMissingArguments},
		{"update bare", "update", ErrMissingArguments},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLine(tc.line)
			if !errors.Is(err, tc.want) {
				t.Errorf("ParseLine(%q) error = %v, want %v", tc.line, err, tc.want)
			}
		})
	}
}

func TestParseLineUnknownVerb(t *testing.T) {
	for _, line := range []string{"launch web", "Start web", "halt", "statu"} {
		t.Run(line, func(t *testing.T) {
			_, err := ParseLine(line)
			var unknown *UnknownCommandError
			if !errors.As(err, &unknown) {
				t.Fatalf("ParseLine(%q) error = %v, want UnknownCommandError", line, err)
			}
			if want := strings.Fields(line)[0]; unknown.Name != want {
				t.Errorf("unknown verb = %q, want %q", unknown.Name, want)
			}
		})
	}
}
