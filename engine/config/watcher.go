package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Watches a config file and publishes every valid reload. The frame
 * loop drains Updates between frames; nothing else is shared with the
 * watcher goroutine.
 */
type Watcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	isClosed bool
	updates  chan *Config
	errors   chan error
	done     chan struct{}
	stopped  chan struct{}
}

func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors often replace the file instead of writing it, so the
	// directory is watched and events are filtered by name.
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w := &Watcher{
		path:     abs,
		fsnotify: fsWatch,
		updates:  make(chan *Config, 1),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.start()
	return w, nil
}

func (w *Watcher) Updates() <-chan *Config { return w.updates }
func (w *Watcher) Errors() <-chan error    { return w.errors }

func (w *Watcher) start() {
	defer close(w.stopped)
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path || e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				core.LogWarn("config reload of %s failed: %s", w.path, err)
				w.publishError(err)
				continue
			}
			core.LogDebug("config %s reloaded", w.path)
			w.publish(cfg)

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("%s", err)
			w.publishError(err)

		case <-w.done:
			return
		}
	}
}

// publish keeps only the newest config when the reader lags behind.
func (w *Watcher) publish(cfg *Config) {
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- cfg:
	case <-w.done:
	}
}

func (w *Watcher) publishError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// Drain returns the newest pending config, or nil when nothing changed.
func (w *Watcher) Drain() *Config {
	var latest *Config
	for {
		select {
		case cfg := <-w.updates:
			latest = cfg
		default:
			return latest
		}
	}
}

func (w *Watcher) Close() error {
	if w.isClosed {
		return errors.New("config watcher already closed")
	}
	w.isClosed = true
	close(w.done)
	err := w.fsnotify.Close()
	<-w.stopped
	return err
}
