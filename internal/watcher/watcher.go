// Package watcher signals folder changes so the session owner can
// rebuild the media registry without polling.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/pageturn/pageturn/internal/logging"
	"github.com/pageturn/pageturn/internal/media"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher watches one folder and emits a debounced rescan signal when
// media files are created, removed, or renamed in it.
type Watcher struct {
	dir      string
	debounce time.Duration

	fsw       *fsnotify.Watcher
	rescan    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// New creates a watcher for dir. debounce of 0 uses the default.
func New(dir string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		fsw:      fsw,
		rescan:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Rescan returns the channel that receives one signal per debounced burst
// of relevant changes. The channel has capacity one; coalesced signals
// are intentional.
func (w *Watcher) Rescan() <-chan struct{} {
	return w.rescan
}

// Close stops the watcher.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			logging.Debug("folder change",
				zap.String("op", event.Op.String()),
				zap.String("path", event.Name))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case w.rescan <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("watcher error", zap.Error(err))
		}
	}
}

// relevant filters events down to additions, removals, and renames of
// supported media files. Chmod and writes to unrelated files do not
// invalidate the registry's ordering.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return media.IsSupported(event.Name)
}
