package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SplitAddr splits a listen address into the network and address pair
// expected by net.Listen and net.Dial. Supported forms are
// tcp://host:port, unix:///path/to.sock and a bare host:port, which is
// taken as tcp.
func SplitAddr(addr string) (network, address string, err error) {
	switch {
	case strings.HasPrefix(addr, "tcp://"):
		return "tcp", strings.TrimPrefix(addr, "tcp://"), nil
	case strings.HasPrefix(addr, "unix://"):
		return "unix", strings.TrimPrefix(addr, "unix://"), nil
	case strings.Contains(addr, "://"):
		return "", "", fmt.Errorf("unsupported listen address %q", addr)
	case addr == "":
		return "", "", fmt.Errorf("empty listen address")
	default:
		return "tcp", addr, nil
	}
}

// ExpandHome rewrites a leading ~ to the current user's home directory.
// Paths that cannot be expanded are returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
