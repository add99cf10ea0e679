package catalog

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long Watch waits after the last structural event
// before rescanning.
const DefaultDebounce = 500 * time.Millisecond

// Watch rescans the root whenever a top-level entry is created, removed or
// renamed. Bursts of events (an unpacked archive, a git clone) collapse
// into one rescan once the root has been quiet for debounce.
//
// Watch returns once the watcher is installed; processing runs in a
// background goroutine until ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Only the root itself: the grouping depends on top-level names alone.
	if err := w.Add(c.root); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer w.Close()

		// fire is nil while no rescan is pending.
		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !structural(event) {
					continue
				}
				c.log.Debug("watcher: event", zap.String("op", event.Op.String()), zap.String("name", event.Name))
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				fire = timer.C

			case <-fire:
				fire = nil
				if _, err := c.Refresh(); err != nil {
					c.log.Warn("watcher: rescan failed, keeping previous snapshot", zap.Error(err))
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.log.Warn("watcher: error", zap.Error(err))
			}
		}
	}()
	return nil
}

// structural reports whether event can change the set of top-level names.
// Writes and chmods to existing entries cannot.
func structural(event fsnotify.Event) bool {
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
