package supervisor

import (
	"taskmaster/pkg/codec"
	"taskmaster/pkg/config"
	"taskmaster/pkg/metrics"
)

// Program groups the instance slots of one configured program. The
// slot list is fixed at construction, an update that changes the spec
// builds a replacement Program and swaps it into the registry.
type Program struct {
	name      string
	spec      *config.Program
	instances []*Instance
}

func newProgram(sup *Supervisor, name string, spec *config.Program) *Program {
	p := &Program{name: name, spec: spec}
	for i := 0; i < spec.NumProcs; i++ {
		p.instances = append(p.instances, newInstance(sup, name, i, spec))
	}
	return p
}

func (p *Program) Name() string {
	return p.name
}

func (p *Program) Spec() *config.Program {
	return p.spec
}

// Instances returns the slot list. The slice is shared but never
// mutated after construction.
func (p *Program) Instances() []*Instance {
	return p.instances
}

// Infos snapshots every slot for a response.
func (p *Program) Infos() []codec.ProcInfo {
	out := make([]codec.ProcInfo, 0, len(p.instances))
	for _, in := range p.instances {
		out = append(out, in.Info())
	}
	return out
}

// anyAlive reports whether any slot still owns an OS process.
func (p *Program) anyAlive() bool {
	for _, in := range p.instances {
		if in.State().Alive() {
			return true
		}
	}
	return false
}

// anyWantUp reports whether any slot is still owed a running process,
// the per-program desired state persisted in the snapshot.
func (p *Program) anyWantUp() bool {
	for _, in := range p.instances {
		if in.WantUp() {
			return true
		}
	}
	return false
}

// forgetMetrics drops the per-instance gauge rows, called when the
// program is deactivated or replaced.
func (p *Program) forgetMetrics() {
	for _, in := range p.instances {
		metrics.ProcStates.WithLabelValues(string(in.State())).Dec()
		metrics.ProcessUp.DeleteLabelValues(p.name, in.id)
	}
}
