package supervisor

import (
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrProgramInUse is returned when a program cannot be deactivated
// because instances are still alive.
var ErrProgramInUse = fmt.Errorf("program has live instances")

// UnknownProgramError names a target that is not in the registry.
type UnknownProgramError struct {
	Name string
}

func (e *UnknownProgramError) Error() string {
	return fmt.Sprintf("no such program: %s", e.Name)
}

// Registry holds the active programs in insertion order, so that
// whole-registry operations and status listings stay deterministic.
type Registry struct {
	mu       sync.RWMutex
	programs *orderedmap.OrderedMap[string, *Program]
}

func NewRegistry() *Registry {
	return &Registry{
		programs: orderedmap.New[string, *Program](),
	}
}

// Put activates a program. Re-adding an existing name is an error,
// callers go through update for spec swaps.
func (r *Registry) Put(p *Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.programs.Get(p.name); ok {
		return fmt.Errorf("program %q already active", p.name)
	}
	r.programs.Set(p.name, p)
	return nil
}

// Replace swaps the value under an existing name, keeping its
// position in the iteration order. Inserts when the name is new.
func (r *Registry) Replace(p *Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs.Set(p.name, p)
}

// Get returns the named program.
func (r *Registry) Get(name string) (*Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.programs.Get(name)
}

// Remove deactivates a program. It refuses while any instance still
// has a live process.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.programs.Get(name)
	if !ok {
		return &UnknownProgramError{Name: name}
	}
	for _, in := range p.instances {
		if in.State().Alive() {
			return ErrProgramInUse
		}
	}
	r.programs.Delete(name)
	return nil
}

// Len returns the number of active programs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.programs.Len()
}

// All returns the active programs in insertion order.
func (r *Registry) All() []*Program {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Program, 0, r.programs.Len())
	for pair := r.programs.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Names returns the active program names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, r.programs.Len())
	for pair := r.programs.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Resolve maps command targets to programs. An empty target list and
// the reserved name "all" both expand to the whole registry. Unknown
// names are reported separately so operations can emit per-target
// errors while still acting on the known ones.
func (r *Registry) Resolve(targets []string) (found []*Program, unknown []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	expandAll := len(targets) == 0
	for _, t := range targets {
		if t == "all" {
			expandAll = true
			break
		}
	}
	if expandAll {
		for pair := r.programs.Oldest(); pair != nil; pair = pair.Next() {
			found = append(found, pair.Value)
		}
		return found, nil
	}

	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if seen[t] {
			continue
		}
		seen[t] = true
		if p, ok := r.programs.Get(t); ok {
			found = append(found, p)
		} else {
			unknown = append(unknown, t)
		}
	}
	return found, unknown
}
