package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gnuos/daemon"

	"taskmaster/pkg/config"
	"taskmaster/pkg/logger"
	"taskmaster/pkg/metrics"
	"taskmaster/pkg/store"
	"taskmaster/pkg/utils"
)

var daemonCtx *daemon.Context

// GetDaemon returns the daemonization context, built once. The child
// keeps the caller's working directory so relative program file paths
// mean the same thing before and after the fork.
func GetDaemon() *daemon.Context {
	if daemonCtx == nil {
		wd, err := os.Getwd()
		if err != nil {
			wd = "/"
		}
		daemonCtx = &daemon.Context{
			PidFileName: config.Get().PidFile,
			PidFilePerm: 0644,
			WorkDir:     wd,
			Umask:       027,
			Args:        os.Args,
		}
	}
	return daemonCtx
}

// DaemonOptions are the command-line knobs of the daemon verb.
type DaemonOptions struct {
	Foreground  bool
	ProgramFile string
	Restore     bool
}

// Daemon runs the supervisor until a shutdown request arrives by
// signal or exit command. In background mode the calling process
// returns right after forking and the reborn child carries on here.
func Daemon(cfg *config.Config, opts DaemonOptions) error {
	if opts.Foreground {
		if err := utils.WritePid(cfg.PidFile, os.Getpid()); err != nil {
			return err
		}
		defer func() {
			_ = utils.RemovePid(cfg.PidFile)
		}()
	} else {
		dctx := GetDaemon()
		child, err := dctx.Reborn()
		if err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
		if child != nil {
			fmt.Printf("taskmasterd started, pid %d\n", child.Pid)
			return nil
		}
		defer func() {
			_ = dctx.Release()
		}()
	}

	if err := utils.EnsureHome(); err != nil {
		return err
	}

	logPath := ""
	if cfg.Log.FileEnabled {
		logPath = cfg.Log.FilePath
	}
	if err := logger.Init(logPath, cfg.Log.Level, opts.Foreground); err != nil {
		return err
	}
	defer logger.Sync()

	log := logger.Logging("daemon")
	log.Infow("taskmasterd starting", "pid", os.Getpid())

	var snap *store.Store
	if cfg.SnapshotDir != "" {
		st, err := store.Open(cfg.SnapshotDir)
		if err != nil {
			log.Warnw("snapshot store unavailable, continuing without", "error", err)
		} else {
			snap = st
		}
	}

	sup := New(cfg, snap)
	if err := sup.Boot(opts.ProgramFile, opts.Restore); err != nil {
		log.Errorw("boot failed", "error", err)
		sup.Shutdown()
		return err
	}

	srv, err := NewServer(sup, cfg.Listen, cfg.Pool)
	if err != nil {
		log.Errorw("control server failed", "error", err)
		sup.Shutdown()
		return err
	}
	go srv.Serve()

	mctx, mcancel := context.WithCancel(context.Background())
	defer mcancel()
	go metrics.Serve(mctx, cfg.Metrics)

	stopWatch := WatchPrograms(sup)
	defer stopWatch()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer signal.Stop(sigs)

LOOP:
	for {
		select {
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				log.Info("SIGHUP received, rereading program file")
				diff, err := sup.Reread()
				switch {
				case err != nil:
					log.Errorw("reread failed", "error", err)
				case diff.Empty():
					log.Info("program file unchanged")
				default:
					log.Infow("changes pending, apply with update",
						"added", diff.Added, "changed", diff.Changed, "removed", diff.Removed)
				}
				continue
			}
			log.Infow("signal received, shutting down", "signal", sig)
			sup.RequestShutdown()
		case <-sup.ShutdownRequested():
			break LOOP
		}
	}

	srv.Close()
	sup.Shutdown()
	log.Info("taskmasterd stopped")
	return nil
}
