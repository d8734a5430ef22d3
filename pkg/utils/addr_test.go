package utils

import (
	"os"
	"testing"
)

func TestSplitAddr(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		network string
		address string
		wantErr bool
	}{
		{"tcp scheme", "tcp://127.0.0.1:2121", "tcp", "127.0.0.1:2121", false},
		{"unix scheme", "unix:///run/taskmasterd.sock", "unix", "/run/taskmasterd.sock", false},
		{"bare host port", "localhost:2121", "tcp", "localhost:2121", false},
		{"unknown scheme", "udp://127.0.0.1:2121", "", "", true},
		{"empty", "", "", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			network, address, err := SplitAddr(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("SplitAddr(%q) succeeded, want error", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitAddr(%q): %v", tc.in, err)
			}
			if network != tc.network || address != tc.address {
				t.Errorf("SplitAddr(%q) = %q, %q, want %q, %q", tc.in, network, address, tc.network, tc.address)
			}
		})
	}
}

func TestAlive(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Error("Alive(self) = false")
	}
	if Alive(0) || Alive(-5) {
		t.Error("Alive accepted a non-positive pid")
	}
}
