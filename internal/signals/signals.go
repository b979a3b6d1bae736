// Package signals provides file-based run control via the .herald
// directory. Writing an abort or pause file lets external tooling steer a
// run without holding a handle to the process.
package signals

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	abortFile = "abort"
	pauseFile = "pause"
)

// Watcher monitors the .herald/signals directory for abort and pause
// files. An fsnotify watcher delivers signals immediately; direct stat
// checks in ShouldAbort/ShouldPause act as a polling fallback in case the
// watcher could not be started or missed an event.
type Watcher struct {
	heraldDir string

	mu    sync.RWMutex
	abort bool
	pause bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a signal watcher rooted at projectRoot/.herald.
func NewWatcher(projectRoot string) (*Watcher, error) {
	heraldDir := filepath.Join(projectRoot, ".herald")
	signalsDir := filepath.Join(heraldDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	w := &Watcher{
		heraldDir: heraldDir,
		done:      make(chan struct{}),
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		// Fall back to stat-based polling only.
		return w, nil
	}
	if err := fw.Add(signalsDir); err != nil {
		fw.Close()
		return w, nil
	}
	w.watcher = fw

	go w.watch()

	return w, nil
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.mu.Lock()
			switch filepath.Base(event.Name) {
			case abortFile:
				w.abort = true
			case pauseFile:
				w.pause = true
			}
			w.mu.Unlock()
		case <-w.watcher.Errors:
			// Keep watching; the stat fallback still works.
		}
	}
}

func (w *Watcher) signalPath(name string) string {
	return filepath.Join(w.heraldDir, "signals", name)
}

// ShouldAbort reports whether an abort signal has been received.
func (w *Watcher) ShouldAbort() bool {
	if _, err := os.Stat(w.signalPath(abortFile)); err == nil {
		w.mu.Lock()
		w.abort = true
		w.mu.Unlock()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.abort
}

// ShouldPause reports whether a pause signal is in effect. Unlike abort,
// pause is live: removing the pause file lifts it.
func (w *Watcher) ShouldPause() bool {
	w.mu.Lock()
	if _, err := os.Stat(w.signalPath(pauseFile)); err == nil {
		w.pause = true
	} else {
		w.pause = false
	}
	paused := w.pause
	w.mu.Unlock()
	return paused
}

// SendAbort creates the abort signal file.
func (w *Watcher) SendAbort() error {
	return os.WriteFile(w.signalPath(abortFile), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates the pause signal file.
func (w *Watcher) SendPause() error {
	return os.WriteFile(w.signalPath(pauseFile), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Clear removes all signal files and resets signal state.
func (w *Watcher) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.abort = false
	w.pause = false
	os.Remove(w.signalPath(abortFile))
	os.Remove(w.signalPath(pauseFile))
}

// HeraldDir returns the path to the .herald directory.
func (w *Watcher) HeraldDir() string {
	return w.heraldDir
}

// Close shuts down the watcher.
func (w *Watcher) Close() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
}
