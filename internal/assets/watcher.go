package assets

import (
	"path/filepath"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
)

// Watcher marks itself dirty whenever a compiled shader blob in the watched
// directory is created or rewritten. The render loop polls and clears it.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *log.Logger

	dirty atomic.Bool
	done  chan struct{}
}

func NewWatcher(dir string, logger *log.Logger) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "shader watcher")
	}

	if err := fsWatch.Add(dir); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "shader watcher: watch %s", dir)
	}

	w := &Watcher{
		watcher: fsWatch,
		logger:  logger.With("component", "shader-watcher"),
		done:    make(chan struct{}),
	}
	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case e, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(e.Name) != ".spv" {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.logger.Debug("shader changed", "file", e.Name, "op", e.Op)
				w.dirty.Store(true)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "err", err)

		case <-w.done:
			return
		}
	}
}

// TakeDirty reports whether shaders changed since the last call.
func (w *Watcher) TakeDirty() bool {
	return w.dirty.Swap(false)
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
