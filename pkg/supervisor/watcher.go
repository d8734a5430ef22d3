package supervisor

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"taskmaster/pkg/logger"
)

const watchDebounce = 500 * time.Millisecond

// WatchPrograms watches the program file and logs the pending diff
// when it changes on disk. Nothing is applied here, the operator stays
// in charge through update. The returned func stops the watcher.
func WatchPrograms(sup *Supervisor) (stop func()) {
	log := logger.Logging("watcher")
	noop := func() {}

	path := sup.ProgramPath()
	if path == "" {
		return noop
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		log.Warnw("watch disabled", "file", path, "error", err)
		return noop
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warnw("watch disabled", "error", err)
		return noop
	}
	// Watch the directory, not the file: editors replace config files
	// by rename and a watch on the old inode dies with it.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		log.Warnw("watch disabled", "dir", filepath.Dir(abs), "error", err)
		_ = w.Close()
		return noop
	}

	done := make(chan struct{})
	go func() {
		timer := time.NewTimer(watchDebounce)
		if !timer.Stop() {
			<-timer.C
		}
		armed := false
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				timer.Reset(watchDebounce)
				armed = true
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warnw("watch error", "error", err)
			case <-timer.C:
				if !armed {
					continue
				}
				armed = false
				diff, err := sup.Reread()
				switch {
				case err != nil:
					log.Warnw("program file changed on disk but does not load", "error", err)
				case diff.Empty():
					log.Info("program file rewritten, no effective changes")
				default:
					log.Infow("program file changed on disk, run update to apply",
						"added", diff.Added, "changed", diff.Changed, "removed", diff.Removed)
				}
			case <-done:
				return
			}
		}
	}()

	log.Infow("watching program file", "file", abs)
	return func() {
		close(done)
		_ = w.Close()
	}
}
