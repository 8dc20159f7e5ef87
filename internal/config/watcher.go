// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for docchat.
package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// Watcher reloads the configuration when the config file changes on disk.
// Editors replace files via rename, so the parent directory is watched and
// events are debounced before a reload is attempted.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func(*Config)

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending bool
	closed  bool
	done    chan struct{}
}

// NewWatcher creates a watcher for the active config file. onReload is
// invoked with the freshly loaded configuration after each valid change;
// invalid intermediate states are skipped silently.
func NewWatcher(onReload func(*Config)) (*Watcher, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     path,
		debounce: 250 * time.Millisecond,
		onReload: onReload,
		watcher:  fsw,
		done:     make(chan struct{}),
	}
	return w, nil
}

// Watch starts watching for config changes.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.processEvents()
	return nil
}

// Close stops watching and releases resources. Idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()
	return w.watcher.Close()
}

// processEvents consumes fsnotify events and schedules debounced reloads.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != filepath.Clean(w.path) {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next event still reloads.
		}
	}
}

// scheduleReload arms a single debounced reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	if w.pending || w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = true
	w.mu.Unlock()

	time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.pending = false
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}

		cfg, err := Load()
		if err != nil {
			// Half-written file mid-edit; wait for the next event.
			return
		}
		w.onReload(cfg)
	})
}
