package supervisor

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"taskmaster/pkg/codec"
)

func TestRegistryKeepsInsertionOrder(t *testing.T) {
	sup := newTestSupervisor(t)
	for _, name := range []string{"c", "a", "b"} {
		addProgram(t, sup, name, testSpec(t, "sleep 60"))
	}

	if got := sup.registry.Names(); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Fatalf("names = %v", got)
	}

	if err := sup.registry.Put(newProgram(sup, "a", testSpec(t, "sleep 60"))); err == nil {
		t.Fatal("duplicate put accepted")
	}

	// a spec swap keeps the position
	next := newProgram(sup, "a", testSpec(t, "sleep 61"))
	sup.registry.Replace(next)
	if got := sup.registry.Names(); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Fatalf("names after replace = %v", got)
	}
	got, ok := sup.registry.Get("a")
	if !ok || got != next {
		t.Fatal("replace did not swap the value")
	}
}

func TestRegistryRefusesRemovingLivePrograms(t *testing.T) {
	sup := newTestSupervisor(t)
	p := addProgram(t, sup, "svc", testSpec(t, "sleep 60"))
	in := p.Instances()[0]

	if _, err := in.Start(); err != nil {
		t.Fatal(err)
	}
	if err := sup.registry.Remove("svc"); !errors.Is(err, ErrProgramInUse) {
		t.Fatalf("remove of a live program = %v", err)
	}

	in.Stop()
	waitState(t, in, codec.StateStopped, 3*time.Second)
	if err := sup.registry.Remove("svc"); err != nil {
		t.Fatal(err)
	}
	if sup.registry.Len() != 0 {
		t.Fatalf("len = %d after remove", sup.registry.Len())
	}

	var unknown *UnknownProgramError
	if err := sup.registry.Remove("svc"); !errors.As(err, &unknown) {
		t.Fatalf("second remove = %v", err)
	}
}

func TestRegistryResolve(t *testing.T) {
	sup := newTestSupervisor(t)
	for _, name := range []string{"one", "two"} {
		addProgram(t, sup, name, testSpec(t, "sleep 60"))
	}

	names := func(progs []*Program) []string {
		out := make([]string, 0, len(progs))
		for _, p := range progs {
			out = append(out, p.Name())
		}
		return out
	}

	tests := []struct {
		name    string
		targets []string
		found   []string
		unknown []string
	}{
		{"empty expands to all", nil, []string{"one", "two"}, nil},
		{"all expands to all", []string{"all"}, []string{"one", "two"}, nil},
		{"all wins over names", []string{"two", "all"}, []string{"one", "two"}, nil},
		{"duplicates collapse", []string{"two", "two"}, []string{"two"}, nil},
		{"unknown reported", []string{"one", "ghost"}, []string{"one"}, []string{"ghost"}},
		{"only unknown", []string{"ghost"}, nil, []string{"ghost"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			found, unknown := sup.registry.Resolve(tc.targets)
			if got := names(found); !reflect.DeepEqual(got, tc.found) && !(len(got) == 0 && len(tc.found) == 0) {
				t.Errorf("found = %v, want %v", got, tc.found)
			}
			if !reflect.DeepEqual(unknown, tc.unknown) && !(len(unknown) == 0 && len(tc.unknown) == 0) {
				t.Errorf("unknown = %v, want %v", unknown, tc.unknown)
			}
		})
	}
}
