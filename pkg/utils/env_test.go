package utils

import (
	"reflect"
	"testing"
)

func TestMergeEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/root", "LANG=C"}

	got := MergeEnv(base,
		map[string]string{"HOME": "/srv", "ZED": "1", "AAA": "2"},
		map[string]string{"ZED": "9"},
	)

	want := []string{
		"PATH=/usr/bin",
		"HOME=/srv",
		"LANG=C",
		"AAA=2",
		"ZED=9",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeEnv = %v, want %v", got, want)
	}
}

func TestMergeEnvNoOverlays(t *testing.T) {
	base := []string{"A=1"}
	got := MergeEnv(base)
	if !reflect.DeepEqual(got, base) {
		t.Errorf("MergeEnv = %v, want %v", got, base)
	}
	// the base slice itself is left alone
	got[0] = "A=2"
	if base[0] != "A=1" {
		t.Error("MergeEnv mutated its input")
	}
}
