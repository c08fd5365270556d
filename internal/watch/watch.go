// Package watch feeds newly created image files of a directory to the
// pipeline.
package watch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"

	"beancard/internal/logger"
)

const (
	tick   = 250 * time.Millisecond
	settle = 300 * time.Millisecond
)

// Watch sends the path of every file matching accept once it has stopped
// changing for a short while. It closes out when ctx ends or the watcher
// fails.
func Watch(ctx context.Context, dir string, accept func(name string) bool, out chan<- string) error {
	defer close(out)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	log.Printf("Watching %s for new card photos ...", dir)

	// pending files and the time of their last write
	pending := map[string]time.Time{}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !accept(ev.Name) {
				continue
			}
			logger.DebugLog("[watch]: %s %s", ev.Op, ev.Name)
			pending[ev.Name] = time.Now()
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) < settle {
					continue
				}
				delete(pending, name)
				select {
				case out <- name:
				case <-ctx.Done():
					return nil
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}
