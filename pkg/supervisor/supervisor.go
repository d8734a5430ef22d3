// Package supervisor implements the daemon core: the program
// registry, the per-instance lifecycle state machine, the reap loop
// and the control server that serves client commands.
package supervisor

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"taskmaster/pkg/codec"
	"taskmaster/pkg/config"
	"taskmaster/pkg/logger"
	"taskmaster/pkg/store"
)

// Supervisor owns every supervised program and the machinery around
// them. One exists per daemon.
type Supervisor struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	registry *Registry
	snap     *store.Store
	exits    chan exitEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cfgMu       sync.Mutex
	programPath string
	loaded      map[string]*config.Program
	pendingDiff *codec.ConfigDiff

	reqOnce   sync.Once
	done      chan struct{}
	drainOnce sync.Once
}

// New builds a supervisor and starts its reap loop. snap may be nil
// when snapshot persistence is unavailable.
func New(cfg *config.Config, snap *store.Store) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		cfg:      cfg,
		log:      logger.Logging("supervisor"),
		registry: NewRegistry(),
		snap:     snap,
		exits:    make(chan exitEvent, 64),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.reapLoop()
	return s
}

// Registry exposes the active program table.
func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// ProgramPath returns the program file the supervisor booted from.
func (s *Supervisor) ProgramPath() string {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	return s.programPath
}

func (s *Supervisor) globalEnv() map[string]string {
	if s.cfg == nil {
		return nil
	}
	return s.cfg.Env
}

// Boot loads the program file, activates every program in it and
// starts the ones that should be up: autostart by default, overridden
// by the restored operator intent when a snapshot exists.
func (s *Supervisor) Boot(path string, restore bool) error {
	if path == "" {
		found, err := config.FindProgramFile()
		if err != nil {
			return err
		}
		path = found
	}
	progs, err := config.LoadPrograms(path)
	if err != nil {
		return err
	}

	s.cfgMu.Lock()
	s.programPath = path
	s.loaded = progs
	s.pendingDiff = nil
	s.cfgMu.Unlock()

	intents := map[string]store.Intent{}
	if restore && s.snap != nil {
		stored, err := s.snap.Intents()
		if err != nil {
			s.log.Warnw("snapshot restore failed, booting clean", "error", err)
		} else {
			intents = stored
		}
	}

	names := make([]string, 0, len(progs))
	for name := range progs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := progs[name]
		want := spec.AutoStart
		if intent, ok := intents[name]; ok {
			want = intent.Running
		}
		s.activate(name, spec, want)
	}

	s.log.Infow("booted", "programs", len(names), "file", path)
	s.saveSnapshot()
	return nil
}

// activate registers a new program and optionally brings it up.
func (s *Supervisor) activate(name string, spec *config.Program, start bool) *Program {
	p := newProgram(s, name, spec)
	if err := s.registry.Put(p); err != nil {
		s.log.Warnw("activate", "program", name, "error", err)
		existing, _ := s.registry.Get(name)
		return existing
	}
	s.log.Infow("activated", "program", name, "numprocs", spec.NumProcs, "autostart", start)
	if start {
		for _, in := range p.Instances() {
			in.autostart()
		}
	}
	return p
}

// Reread reloads the program file and caches the diff against the
// active set. The active set itself is untouched.
func (s *Supervisor) Reread() (*codec.ConfigDiff, error) {
	s.cfgMu.Lock()
	path := s.programPath
	s.cfgMu.Unlock()

	progs, err := config.LoadPrograms(path)
	if err != nil {
		return nil, err
	}

	diff := config.Diff(s.activeSpecs(), progs)

	s.cfgMu.Lock()
	s.loaded = progs
	s.pendingDiff = diff
	s.cfgMu.Unlock()

	s.log.Infow("reread", "added", diff.Added, "changed", diff.Changed, "removed", diff.Removed)
	return diff, nil
}

// pending returns the cached diff and the program set it was computed
// from. The diff is nil when no reread happened since the last update.
func (s *Supervisor) pending() (*codec.ConfigDiff, map[string]*config.Program) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	return s.pendingDiff, s.loaded
}

// recomputePending refreshes the cached diff after an update applied
// part of it.
func (s *Supervisor) recomputePending() {
	s.cfgMu.Lock()
	loaded := s.loaded
	s.cfgMu.Unlock()

	if loaded == nil {
		return
	}
	diff := config.Diff(s.activeSpecs(), loaded)
	if diff.Empty() {
		diff = nil
	}

	s.cfgMu.Lock()
	s.pendingDiff = diff
	s.cfgMu.Unlock()
}

// activeSpecs snapshots the specs of the active programs.
func (s *Supervisor) activeSpecs() map[string]*config.Program {
	out := make(map[string]*config.Program)
	for _, p := range s.registry.All() {
		out[p.name] = p.spec
	}
	return out
}

// saveSnapshot persists the active set and per-program intent. Only
// logged on failure, persistence never blocks supervision.
func (s *Supervisor) saveSnapshot() {
	if s.snap == nil {
		return
	}

	active := s.registry.All()
	progs := make(map[string]*config.Program, len(active))
	for _, p := range active {
		progs[p.name] = p.spec
		if err := s.snap.SetIntent(p.name, p.anyWantUp()); err != nil {
			s.log.Warnw("snapshot intent", "program", p.name, "error", err)
		}
	}
	if err := s.snap.SavePrograms(progs); err != nil {
		s.log.Warnw("snapshot save failed", "error", err)
		return
	}

	if stored, err := s.snap.Intents(); err == nil {
		for name := range stored {
			if _, ok := s.registry.Get(name); !ok {
				_ = s.snap.Forget(name)
			}
		}
	}
}

// RequestShutdown asks the daemon to exit. Safe from any goroutine,
// the actual drain happens in Shutdown.
func (s *Supervisor) RequestShutdown() {
	s.reqOnce.Do(func() {
		close(s.done)
	})
}

// ShutdownRequested is closed once an exit command or signal asked the
// daemon to stop.
func (s *Supervisor) ShutdownRequested() <-chan struct{} {
	return s.done
}

// Shutdown drains every instance, persists the snapshot and stops the
// reap loop. Blocks until done or the overall drain deadline passes.
func (s *Supervisor) Shutdown() {
	s.drainOnce.Do(func() {
		s.RequestShutdown()
		s.log.Info("draining instances")

		deadline := time.Now().Add(s.drainBudget())
		var wg sync.WaitGroup
		for _, p := range s.registry.All() {
			for _, in := range p.Instances() {
				if st := in.Stop(); st != codec.StateStopping {
					continue
				}
				wg.Add(1)
				go func(in *Instance) {
					defer wg.Done()
					if final := in.AwaitLeave(codec.StateStopping, deadline); final == codec.StateStopping {
						s.log.Warnw("instance survived drain", "instance", in.ID())
					}
				}(in)
			}
		}
		wg.Wait()

		s.saveSnapshot()
		s.cancel()
		s.wg.Wait()
		if s.snap != nil {
			if err := s.snap.Close(); err != nil {
				s.log.Warnw("snapshot close", "error", err)
			}
		}
		s.log.Info("supervisor stopped")
	})
}

// drainBudget is the overall shutdown wait: the largest per-instance
// stop grace plus escalation room, capped so exit stays prompt.
func (s *Supervisor) drainBudget() time.Duration {
	budget := 2 * time.Second
	for _, p := range s.registry.All() {
		if w := time.Duration(p.spec.StopTime)*time.Second + 2*time.Second; w > budget {
			budget = w
		}
	}
	if budget > 10*time.Second {
		budget = 10 * time.Second
	}
	return budget
}
