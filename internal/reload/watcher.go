// Package reload applies configuration changes to a running App, on
// SIGHUP or when the configuration file changes on disk.
package reload

import (
	"context"
	"os"
	"time"
)

// DefaultInterval is how often the watcher checks the file.
const DefaultInterval = 5 * time.Second

// Watcher polls a file and signals when its modification time or size
// changes. Signals are coalesced: at most one is pending.
type Watcher struct {
	path     string
	interval time.Duration
	changes  chan struct{}
}

// NewWatcher creates a watcher for path. A non-positive interval means
// DefaultInterval.
func NewWatcher(path string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		path:     path,
		interval: interval,
		changes:  make(chan struct{}, 1),
	}
}

// Changes delivers one value per detected change.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Run polls until ctx is done. A file that disappears is not a change;
// its reappearance is.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last, _ := w.fingerprint()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current, ok := w.fingerprint()
			if !ok || current == last {
				continue
			}
			last = current
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

type fingerprint struct {
	mod  time.Time
	size int64
}

func (w *Watcher) fingerprint() (fingerprint, bool) {
	info, err := os.Stat(w.path)
	if err != nil {
		return fingerprint{}, false
	}
	return fingerprint{mod: info.ModTime(), size: info.Size()}, true
}
