package vault

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports vault directory changes over a debounced channel so
// the day view can rebuild when notes are edited outside the tracker.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	// Events receives one value per burst of filesystem changes.
	Events chan struct{}

	done chan struct{}
}

// NewWatcher starts watching dir. Close releases the underlying watcher.
func NewWatcher(dir string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		logger:   logger,
		Events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("vault change", "op", ev.Op.String(), "path", ev.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("vault watcher error", "error", err)

		case <-fire:
			timer = nil
			fire = nil
			// Drop the notification if the consumer is still busy with
			// the previous one; it rebuilds from current disk state
			// anyway.
			select {
			case w.Events <- struct{}{}:
			default:
			}
		}
	}
}
