// Package logger owns the daemon's zap root logger. Subsystems obtain
// named children through Logging. Until Init runs the root writes to
// stderr, which is what the client-side commands want; the daemon calls
// Init right after loading its configuration and before wiring any
// subsystem, so their loggers land in the configured file.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu   sync.RWMutex
	root *zap.Logger
)

func init() {
	root = zap.New(consoleCore(os.Stderr, zapcore.InfoLevel))
}

func encoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func consoleCore(f *os.File, level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(encoder(), zapcore.Lock(f), level)
}

// Init points the root logger at a rotating log file. With nodaemon the
// daemon stays attached to a terminal, so lines are mirrored to stderr
// as well. An empty path keeps plain stderr logging.
func Init(path, level string, nodaemon bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}

	var cores []zapcore.Core
	if path != "" {
		sink := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder(), zapcore.AddSync(sink), lvl))
	}
	if path == "" || nodaemon {
		cores = append(cores, consoleCore(os.Stderr, lvl))
	}

	mu.Lock()
	root = zap.New(zapcore.NewTee(cores...))
	mu.Unlock()
	return nil
}

// Logging returns a named sugared logger backed by the current root.
func Logging(name string) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(name).Sugar()
}

// Sync flushes buffered log entries. Called on daemon shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
