// Package constants
package constants

import (
	"fmt"
	"os"
)

const (
	DefaultLogLevel   = "info"
	DefaultDaemonName = "taskmasterd"
	DefaultListenAddr = "tcp://127.0.0.1:2121"

	// EnvPrefix scopes environment overrides, e.g. TASKMASTER_LISTEN.
	EnvPrefix = "TASKMASTER"

	// DefaultPoolSize is the number of concurrent client sessions the
	// control server will process.
	DefaultPoolSize = 4
)

// ProgramFileLookup is searched in order when no program file is given
// on the command line or in the daemon configuration.
var ProgramFileLookup = []string{
	"../etc/taskmasterd.yaml",
	"../taskmasterd.yaml",
	"./taskmasterd.yaml",
	"./etc/taskmasterd.yaml",
	"/etc/taskmasterd.yaml",
	"/etc/taskmaster/taskmasterd.yaml",
}

var TaskmasterHome = getHome()

var DaemonLogFilePath = getDaemonPath("log")
var DaemonPidFilePath = getDaemonPath("pid")
var DaemonSnapshotDirPath = fmt.Sprintf("%s/snapshot", TaskmasterHome)

func getHome() string {
	return fmt.Sprintf("%s/.taskmaster", os.Getenv("HOME"))
}

func getDaemonPath(suffix string) string {
	return fmt.Sprintf("%s/%s.%s", TaskmasterHome, DefaultDaemonName, suffix)
}
