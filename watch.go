package jbeamsync

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the settle window for file change batching.
const DefaultDebounce = 250 * time.Millisecond

// Watcher re-runs a callback when a part file changes on disk, debounced so
// a burst of writes from a save triggers one reload. The parent directory is
// watched rather than the file itself, because editors that save via
// rename-over would otherwise detach the watch.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func()
	log      *slog.Logger

	fw   *fsnotify.Watcher
	done chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// WatchFile starts watching path. onChange fires on the watcher's goroutine
// after changes settle for the debounce window; zero debounce means
// DefaultDebounce.
func WatchFile(path string, debounce time.Duration, onChange func(), log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = NopLogger()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("jbeamsync: watch %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("jbeamsync: start watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("jbeamsync: watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		log:      log,
		fw:       fw,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops the watcher. A debounced callback that has not fired yet is
// dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	close(w.done)
	return w.fw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Debug("file event", "op", ev.Op.String(), "path", ev.Name)
			w.arm()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "err", err.Error())
		}
	}
}

// arm restarts the debounce timer.
func (w *Watcher) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.onChange()
	})
}
