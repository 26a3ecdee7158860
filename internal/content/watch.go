package content

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kic113/site/internal/logger"
)

// DefaultDebounce is how long Watch waits after the last change before
// reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watch reloads store whenever files under dir change. It blocks until ctx is
// cancelled. Reload errors are logged and the previous catalog is kept.
func Watch(ctx context.Context, dir string, store *Store, log *logger.Logger, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(p); err != nil {
				return fmt.Errorf("failed to watch %s: %w", p, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set up watch on %s: %w", dir, err)
	}

	log = log.WithFields(map[string]any{"component": "content-watch", "dir": dir})
	log.Info("watching content for changes")

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debug(fmt.Sprintf("change detected: %s (%s)", event.Name, event.Op))

			// New subdirectories are not watched automatically.
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := watcher.Add(event.Name); err != nil {
					log.Error(err, "failed to watch new directory")
				}
			}
			timer.Reset(debounce)

		case <-timer.C:
			if err := store.Reload(); err != nil {
				log.Error(err, "content reload failed, keeping previous content")
				continue
			}
			log.Info("content reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(err, "watcher error")
		}
	}
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	return info.IsDir()
}
