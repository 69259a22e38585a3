// Package watch triggers corpus rebuilds when documents change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rcliao/alphamind/internal/loader"
)

// DefaultDebounce coalesces bursts of file events into one rebuild.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a corpus tree and calls OnChange after relevant changes
// settle.
type Watcher struct {
	root     string
	opts     loader.Options
	debounce time.Duration
	onChange func(context.Context) error
	log      *slog.Logger
}

// New creates a watcher over root. Files are relevant when opts accepts
// them; onChange is called at most once per debounce window.
func New(root string, opts loader.Options, debounce time.Duration, onChange func(context.Context) error) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		opts:     opts,
		debounce: debounce,
		onChange: onChange,
		log:      slog.Default().With("component", "watch"),
	}
}

// Run watches until ctx is cancelled. A missing root is logged and Run
// returns nil immediately.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := os.Stat(w.root); errors.Is(err, fs.ErrNotExist) {
		w.log.Warn("corpus root not found, not watching", "root", w.root)
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	w.log.Info("watching corpus", "root", w.root)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) {
				if !loader.Hidden(filepath.Base(ev.Name)) {
					if err := w.addTree(fw, ev.Name); err != nil {
						w.log.Warn("watch new directory", "path", ev.Name, "error", err)
					}
				}
				continue
			}
			if !w.Relevant(ev) {
				continue
			}
			w.log.Debug("corpus change", "path", ev.Name, "op", ev.Op.String())
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)

		case <-timer.C:
			pending = false
			if err := w.onChange(ctx); err != nil {
				w.log.Error("rebuild after change failed", "error", err)
			}
		}
	}
}

// Relevant reports whether ev should trigger a rebuild: a create, write,
// remove or rename of a visible file with an accepted extension. Directory
// and chmod-only events are ignored.
func (w *Watcher) Relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if loader.Hidden(filepath.Base(ev.Name)) || hiddenDir(w.root, ev.Name) {
		return false
	}
	if (ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) && isDir(ev.Name) {
		return false
	}
	return w.opts.Accepts(ev.Name)
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && loader.Hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// hiddenDir reports whether any directory between root and path is hidden.
func hiddenDir(root, path string) bool {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		return false
	}
	for rel != "." && rel != string(filepath.Separator) && rel != "" {
		if loader.Hidden(filepath.Base(rel)) {
			return true
		}
		rel = filepath.Dir(rel)
	}
	return false
}
