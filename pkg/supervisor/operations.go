package supervisor

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"taskmaster/pkg/codec"
	"taskmaster/pkg/metrics"
)

// ErrStillStopping marks an instance whose previous process has not
// finished draining, the requested action was skipped for it.
var ErrStillStopping = errors.New("still stopping")

// Dispatch runs one decoded control command against the supervisor
// and returns the response together with the session verdict.
func (s *Supervisor) Dispatch(cmd *codec.Command) (*codec.Response, codec.SessionCtl) {
	started := time.Now()
	resp, verdict := s.route(cmd)

	outcome := "ok"
	if !resp.Ok() {
		outcome = "error"
	}
	metrics.ObserveCommand(string(cmd.Type), outcome, started)
	return resp, verdict
}

func (s *Supervisor) route(cmd *codec.Command) (*codec.Response, codec.SessionCtl) {
	switch cmd.Type {
	case codec.CmdStart:
		return s.opStart(cmd.Targets), codec.SessionContinue
	case codec.CmdStop:
		return s.opStop(cmd.Targets), codec.SessionContinue
	case codec.CmdRestart:
		return s.opRestart(cmd.Targets), codec.SessionContinue
	case codec.CmdStatus:
		return s.opStatus(cmd.Targets), codec.SessionContinue
	case codec.CmdPid:
		return s.opPid(cmd.Targets), codec.SessionContinue
	case codec.CmdClear:
		return s.opClear(cmd.Targets), codec.SessionContinue
	case codec.CmdAdd:
		return s.opAdd(cmd.Targets), codec.SessionContinue
	case codec.CmdRemove:
		return s.opRemove(cmd.Targets), codec.SessionContinue
	case codec.CmdReread:
		return s.opReread(), codec.SessionContinue
	case codec.CmdUpdate:
		return s.opUpdate(cmd.Targets), codec.SessionContinue
	case codec.CmdExit:
		s.log.Info("exit requested by client")
		s.RequestShutdown()
		return &codec.Response{
			Code:    codec.StatusOK,
			Message: "daemon shutting down",
		}, codec.SessionShutdown
	}

	return &codec.Response{
		Code:    codec.StatusBadInput,
		Message: fmt.Sprintf("unknown command type %q", cmd.Type),
	}, codec.SessionContinue
}

func unknownRows(unknown []string) []codec.ProcInfo {
	rows := make([]codec.ProcInfo, 0, len(unknown))
	for _, name := range unknown {
		err := &UnknownProgramError{Name: name}
		rows = append(rows, codec.ProcInfo{Name: name, Error: err.Error()})
	}
	return rows
}

func opResponse(rows []codec.ProcInfo) *codec.Response {
	failed := 0
	for _, r := range rows {
		if r.Error != "" {
			failed++
		}
	}
	msg := fmt.Sprintf("%d ok", len(rows)-failed)
	if failed > 0 {
		msg = fmt.Sprintf("%d ok, %d failed", len(rows)-failed, failed)
	}
	return &codec.Response{Code: codec.StatusOK, Message: msg, Procs: rows}
}

func errResponse(code int, err error) *codec.Response {
	return &codec.Response{Code: code, Message: err.Error()}
}

func (s *Supervisor) opStart(targets []string) *codec.Response {
	progs, unknown := s.registry.Resolve(targets)
	rows := unknownRows(unknown)

	for _, p := range progs {
		for _, in := range p.Instances() {
			if in.State() == codec.StateStopping {
				row := in.Info()
				row.Error = ErrStillStopping.Error()
				rows = append(rows, row)
				continue
			}
			_, _ = in.Start()
			rows = append(rows, in.Info())
		}
	}

	s.saveSnapshot()
	return opResponse(rows)
}

func (s *Supervisor) opStop(targets []string) *codec.Response {
	progs, unknown := s.registry.Resolve(targets)
	rows := unknownRows(unknown)

	type pending struct {
		in  *Instance
		idx int
	}
	var waits []pending

	base := len(rows)
	var all []*Instance
	for _, p := range progs {
		all = append(all, p.Instances()...)
	}
	rows = append(rows, make([]codec.ProcInfo, len(all))...)

	for i, in := range all {
		if in.Stop() == codec.StateStopping {
			waits = append(waits, pending{in: in, idx: base + i})
			continue
		}
		rows[base+i] = in.Info()
	}

	var wg sync.WaitGroup
	for _, w := range waits {
		wg.Add(1)
		go func(w pending) {
			defer wg.Done()
			deadline := time.Now().Add(w.in.StopWait())
			final := w.in.AwaitLeave(codec.StateStopping, deadline)
			row := w.in.Info()
			if final == codec.StateStopping {
				row.Error = ErrStillStopping.Error()
			}
			rows[w.idx] = row
		}(w)
	}
	wg.Wait()

	s.saveSnapshot()
	return opResponse(rows)
}

func (s *Supervisor) opRestart(targets []string) *codec.Response {
	progs, unknown := s.registry.Resolve(targets)
	rows := unknownRows(unknown)

	base := len(rows)
	var all []*Instance
	for _, p := range progs {
		all = append(all, p.Instances()...)
	}
	rows = append(rows, make([]codec.ProcInfo, len(all))...)

	var wg sync.WaitGroup
	for i, in := range all {
		wg.Add(1)
		go func(idx int, in *Instance) {
			defer wg.Done()

			if in.Stop() == codec.StateStopping {
				deadline := time.Now().Add(in.StopWait())
				if in.AwaitLeave(codec.StateStopping, deadline) == codec.StateStopping {
					row := in.Info()
					row.Error = fmt.Sprintf("%s, start skipped", ErrStillStopping)
					rows[idx] = row
					return
				}
			}
			_, _ = in.Start()
			rows[idx] = in.Info()
		}(base+i, in)
	}
	wg.Wait()

	s.saveSnapshot()
	return opResponse(rows)
}

func (s *Supervisor) opStatus(targets []string) *codec.Response {
	progs, unknown := s.registry.Resolve(targets)
	rows := unknownRows(unknown)

	for _, p := range progs {
		rows = append(rows, p.Infos()...)
	}
	return opResponse(rows)
}

func (s *Supervisor) opPid(targets []string) *codec.Response {
	progs, unknown := s.registry.Resolve(targets)
	rows := unknownRows(unknown)

	for _, p := range progs {
		for _, in := range p.Instances() {
			info := in.Info()
			rows = append(rows, codec.ProcInfo{Name: info.Name, Pid: info.Pid})
		}
	}
	return opResponse(rows)
}

func (s *Supervisor) opClear(targets []string) *codec.Response {
	progs, unknown := s.registry.Resolve(targets)
	rows := unknownRows(unknown)

	for _, p := range progs {
		for _, in := range p.Instances() {
			row := codec.ProcInfo{Name: in.ID(), Detail: "logs cleared"}
			if err := in.ClearLogs(); err != nil {
				row.Detail = ""
				row.Error = err.Error()
			}
			rows = append(rows, row)
		}
	}
	return opResponse(rows)
}

// opAdd activates programs that are present in the loaded program file
// but not in the registry.
func (s *Supervisor) opAdd(targets []string) *codec.Response {
	_, loaded := s.pending()

	names := targets
	if expandsAll(targets) {
		names = nil
		for name := range loaded {
			if _, active := s.registry.Get(name); !active {
				names = append(names, name)
			}
		}
		sort.Strings(names)
	}

	var rows []codec.ProcInfo
	for _, name := range names {
		if _, active := s.registry.Get(name); active {
			rows = append(rows, codec.ProcInfo{Name: name, Detail: "already active"})
			continue
		}
		spec, ok := loaded[name]
		if !ok {
			err := &UnknownProgramError{Name: name}
			rows = append(rows, codec.ProcInfo{Name: name, Error: err.Error()})
			continue
		}
		p := s.activate(name, spec, spec.AutoStart)
		rows = append(rows, p.Infos()...)
	}

	s.recomputePending()
	s.saveSnapshot()
	return opResponse(rows)
}

func (s *Supervisor) opRemove(targets []string) *codec.Response {
	progs, unknown := s.registry.Resolve(targets)
	rows := unknownRows(unknown)

	for _, p := range progs {
		rows = append(rows, s.deactivate(p))
	}

	s.recomputePending()
	s.saveSnapshot()
	return opResponse(rows)
}

// deactivate drains a program and removes it from the registry,
// returning its result row.
func (s *Supervisor) deactivate(p *Program) codec.ProcInfo {
	var wg sync.WaitGroup
	for _, in := range p.Instances() {
		if in.Stop() != codec.StateStopping {
			continue
		}
		wg.Add(1)
		go func(in *Instance) {
			defer wg.Done()
			in.AwaitLeave(codec.StateStopping, time.Now().Add(in.StopWait()))
		}(in)
	}
	wg.Wait()

	if err := s.registry.Remove(p.name); err != nil {
		return codec.ProcInfo{Name: p.name, Error: err.Error()}
	}
	p.forgetMetrics()
	if s.snap != nil {
		_ = s.snap.Forget(p.name)
	}
	s.log.Infow("deactivated", "program", p.name)
	return codec.ProcInfo{Name: p.name, Detail: "removed"}
}

func (s *Supervisor) opReread() *codec.Response {
	diff, err := s.Reread()
	if err != nil {
		return errResponse(codec.StatusError, err)
	}
	msg := "no changes"
	if !diff.Empty() {
		msg = "changes pending, apply with update"
	}
	return &codec.Response{Code: codec.StatusOK, Message: msg, Diff: diff}
}

func (s *Supervisor) opUpdate(targets []string) *codec.Response {
	diff, loaded := s.pending()
	if diff == nil {
		fresh, err := s.Reread()
		if err != nil {
			return errResponse(codec.StatusError, err)
		}
		diff = fresh
		_, loaded = s.pending()
	}

	restrict := !expandsAll(targets)
	wanted := make(map[string]bool, len(targets))
	for _, t := range targets {
		wanted[t] = true
	}
	take := func(name string) bool {
		return !restrict || wanted[name]
	}

	applied := &codec.ConfigDiff{}
	var rows []codec.ProcInfo
	touched := make(map[string]bool)

	for _, name := range diff.Added {
		if !take(name) {
			continue
		}
		touched[name] = true
		spec := loaded[name]
		p := s.activate(name, spec, spec.AutoStart)
		applied.Added = append(applied.Added, name)
		rows = append(rows, p.Infos()...)
	}

	for _, name := range diff.Changed {
		if !take(name) {
			continue
		}
		touched[name] = true
		p, ok := s.registry.Get(name)
		if !ok {
			continue
		}

		wasUp := p.anyWantUp()
		row := s.drainForSwap(p)
		if row.Error != "" {
			rows = append(rows, row)
			continue
		}

		spec := loaded[name]
		next := newProgram(s, name, spec)
		p.forgetMetrics()
		s.registry.Replace(next)
		if wasUp || spec.AutoStart {
			for _, in := range next.Instances() {
				in.autostart()
			}
		}
		applied.Changed = append(applied.Changed, name)
		rows = append(rows, next.Infos()...)
		s.log.Infow("updated", "program", name)
	}

	for _, name := range diff.Removed {
		if !take(name) {
			continue
		}
		touched[name] = true
		p, ok := s.registry.Get(name)
		if !ok {
			continue
		}
		row := s.deactivate(p)
		if row.Error == "" {
			applied.Removed = append(applied.Removed, name)
		}
		rows = append(rows, row)
	}

	if restrict {
		for _, t := range targets {
			if !touched[t] {
				rows = append(rows, codec.ProcInfo{Name: t, Detail: "up to date"})
			}
		}
	}

	s.recomputePending()
	s.saveSnapshot()

	resp := opResponse(rows)
	resp.Diff = applied
	return resp
}

// drainForSwap stops a program's instances ahead of a spec swap.
func (s *Supervisor) drainForSwap(p *Program) codec.ProcInfo {
	var wg sync.WaitGroup
	for _, in := range p.Instances() {
		if in.Stop() != codec.StateStopping {
			continue
		}
		wg.Add(1)
		go func(in *Instance) {
			defer wg.Done()
			in.AwaitLeave(codec.StateStopping, time.Now().Add(in.StopWait()))
		}(in)
	}
	wg.Wait()

	if p.anyAlive() {
		return codec.ProcInfo{Name: p.name, Error: fmt.Sprintf("%s, not updated", ErrStillStopping)}
	}
	return codec.ProcInfo{Name: p.name}
}

func expandsAll(targets []string) bool {
	if len(targets) == 0 {
		return true
	}
	for _, t := range targets {
		if t == "all" {
			return true
		}
	}
	return false
}
