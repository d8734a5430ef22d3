package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"taskmaster/pkg/codec"
	"taskmaster/pkg/utils"
	"taskmaster/pkg/utils/constants"
)

// RestartPolicy says when an exited process is started again.
type RestartPolicy string

const (
	RestartNever      RestartPolicy = "never"
	RestartAlways     RestartPolicy = "always"
	RestartUnexpected RestartPolicy = "unexpected"
)

// Program is one supervised program definition from the program file.
// Fields left out of the YAML keep their defaults, unknown keys are
// rejected.
type Program struct {
	Cmd          string            `yaml:"cmd"`
	NumProcs     int               `yaml:"numprocs"`
	Umask        int               `yaml:"umask"`
	WorkingDir   string            `yaml:"workingdir"`
	AutoStart    bool              `yaml:"autostart"`
	AutoRestart  RestartPolicy     `yaml:"autorestart"`
	ExitCodes    []int             `yaml:"exitcodes"`
	StartRetries int               `yaml:"startretries"`
	StartTime    int               `yaml:"starttime"`
	StopSignal   string            `yaml:"stopsignal"`
	StopTime     int               `yaml:"stoptime"`
	Stdout       string            `yaml:"stdout"`
	Stderr       string            `yaml:"stderr"`
	Env          map[string]string `yaml:"env,omitempty"`
}

var programKeys = map[string]bool{
	"cmd": true, "numprocs": true, "umask": true, "workingdir": true,
	"autostart": true, "autorestart": true, "exitcodes": true,
	"startretries": true, "starttime": true, "stopsignal": true,
	"stoptime": true, "stdout": true, "stderr": true, "env": true,
}

// DefaultProgram returns the built-in defaults a program file entry
// starts from before its own keys are applied.
func DefaultProgram() Program {
	return Program{
		Cmd:          "ls",
		NumProcs:     1,
		Umask:        0o027,
		WorkingDir:   "~",
		AutoStart:    true,
		AutoRestart:  RestartNever,
		ExitCodes:    []int{0},
		StartRetries: 0,
		StartTime:    0,
		StopSignal:   "SIGTERM",
		StopTime:     0,
	}
}

// UnmarshalYAML decodes a program entry on top of the defaults and
// rejects keys that are not part of the schema.
func (p *Program) UnmarshalYAML(node *yaml.Node) error {
	var fields map[string]yaml.Node
	if err := node.Decode(&fields); err != nil {
		return err
	}
	for key := range fields {
		if !programKeys[key] {
			return fmt.Errorf("unknown program key %q", key)
		}
	}

	type plain Program
	out := plain(DefaultProgram())
	if err := node.Decode(&out); err != nil {
		return err
	}
	*p = Program(out)
	return nil
}

// Normalize expands paths and fills the log file defaults that depend
// on the program's name. It must run before Validate.
func (p *Program) Normalize(name string) {
	p.WorkingDir = utils.ExpandHome(p.WorkingDir)

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	if p.Stdout == "" {
		p.Stdout = filepath.Join(home, name+".stdout")
	}
	if p.Stderr == "" {
		p.Stderr = filepath.Join(home, name+".stderr")
	}
	p.Stdout = utils.ExpandHome(p.Stdout)
	p.Stderr = utils.ExpandHome(p.Stderr)
}

// Validate checks a normalized program entry.
func (p *Program) Validate(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if strings.TrimSpace(p.Cmd) == "" {
		return fmt.Errorf("program %q: cmd is empty", name)
	}
	if p.NumProcs < 1 {
		return fmt.Errorf("program %q: numprocs must be at least 1", name)
	}
	if p.Umask < 0 || p.Umask > 0o777 {
		return fmt.Errorf("program %q: umask %#o out of range", name, p.Umask)
	}
	if p.StartRetries < 0 {
		return fmt.Errorf("program %q: startretries is negative", name)
	}
	if p.StartTime < 0 {
		return fmt.Errorf("program %q: starttime is negative", name)
	}
	if p.StopTime < 0 {
		return fmt.Errorf("program %q: stoptime is negative", name)
	}
	switch p.AutoRestart {
	case RestartNever, RestartAlways, RestartUnexpected:
	default:
		return fmt.Errorf("program %q: autorestart %q is not never, always or unexpected", name, p.AutoRestart)
	}
	if _, err := ParseSignal(p.StopSignal); err != nil {
		return fmt.Errorf("program %q: %w", name, err)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty program name")
	}
	if name == "all" {
		return fmt.Errorf("program name %q is reserved", name)
	}
	if strings.ContainsAny(name, ": \t\n") {
		return fmt.Errorf("program name %q contains a colon or whitespace", name)
	}
	return nil
}

// Signal returns the parsed stop signal. Only valid after Validate.
func (p *Program) Signal() syscall.Signal {
	sig, err := ParseSignal(p.StopSignal)
	if err != nil {
		return syscall.SIGTERM
	}
	return sig
}

// ExpectedExit reports whether the exit code counts as expected.
func (p *Program) ExpectedExit(code int) bool {
	for _, c := range p.ExitCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Equal reports whether two program entries are identical. Used by the
// reread diff.
func (p *Program) Equal(other *Program) bool {
	return reflect.DeepEqual(p, other)
}

type programFile struct {
	Programs map[string]*Program `yaml:"programs"`
}

// ErrNoProgramFile is returned when none of the usual locations holds
// a program file and no explicit path was given.
var ErrNoProgramFile = fmt.Errorf("no program file found")

// FindProgramFile returns the first program file present in the search
// list.
func FindProgramFile() (string, error) {
	for _, path := range constants.ProgramFileLookup {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNoProgramFile
}

// LoadPrograms reads, normalizes and validates the program file. An
// empty path walks the search list.
func LoadPrograms(path string) (map[string]*Program, error) {
	if path == "" {
		found, err := FindProgramFile()
		if err != nil {
			return nil, err
		}
		path = found
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("program file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var file programFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for name, prog := range file.Programs {
		if prog == nil {
			p := DefaultProgram()
			prog = &p
			file.Programs[name] = prog
		}
		prog.Normalize(name)
		if err := prog.Validate(name); err != nil {
			return nil, err
		}
	}
	if file.Programs == nil {
		file.Programs = map[string]*Program{}
	}
	return file.Programs, nil
}

// Diff compares two program maps and reports the names that were
// added, changed or removed, each list sorted.
func Diff(before, after map[string]*Program) *codec.ConfigDiff {
	d := &codec.ConfigDiff{}
	for name, prog := range after {
		old, ok := before[name]
		switch {
		case !ok:
			d.Added = append(d.Added, name)
		case !old.Equal(prog):
			d.Changed = append(d.Changed, name)
		}
	}
	for name := range before {
		if _, ok := after[name]; !ok {
			d.Removed = append(d.Removed, name)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Changed)
	sort.Strings(d.Removed)
	return d
}
