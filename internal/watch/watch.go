// Package watch reruns a callback when watched source files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler is called with the path of a file that changed.
type Handler func(path string)

// Run watches paths until ctx is done. After a burst of writes to one file
// settles for debounce, fn is called once with the path as given. Calls to fn
// happen on the Run goroutine, one at a time.
func Run(ctx context.Context, paths []string, debounce time.Duration, log *slog.Logger, fn Handler) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace a file instead of writing it in place, so the
	// directories are watched and events filtered by name.
	byName := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		byName[abs] = p
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory: %w", err)
		}
		dirs[dir] = true
	}
	log.Info("watching", "files", len(paths), "dirs", len(dirs))

	pending := make(map[string]*time.Timer)
	due := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			path, ok := byName[abs]
			if !ok || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("file event", "file", path, "op", event.Op.String())
			if t, ok := pending[path]; ok {
				// A timer that already fired is delivering on due and fn
				// will see this write.
				if t.Stop() {
					t.Reset(debounce)
				}
				continue
			}
			pending[path] = time.AfterFunc(debounce, func() {
				select {
				case due <- path:
				case <-ctx.Done():
				}
			})

		case path := <-due:
			delete(pending, path)
			fn(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", "error", err)
		}
	}
}
