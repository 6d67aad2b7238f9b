// Package prefetch schedules and executes decode work ahead of the
// viewport so manga-mode scrolling never waits on I/O. It owns the
// priority queue, the decode worker pool, and the result channel that
// feeds the texture cache.
package prefetch

import (
	"github.com/pageturn/pageturn/internal/decode"
	"github.com/pageturn/pageturn/internal/media"
	"github.com/pageturn/pageturn/internal/texcache"
)

// Job is one pending decode request. Lower Priority means more urgent
// (the original loader convention). Order breaks priority ties: smaller
// is closer to the visible range's leading edge. Generation tags the
// browsing session the job was issued for; results from an older
// generation are dropped at the delivery boundary.
type Job struct {
	Key        texcache.Key
	Path       string
	Kind       media.Kind
	MaxSide    int
	Priority   int
	Order      int
	Generation uint64
}

// Result carries one completed decode back to the consuming side. Err is
// non-nil for typed decode failures; cancellation never produces a
// Result. Exactly one of Frame/Err is set.
type Result struct {
	Key        texcache.Key
	Generation uint64
	Frame      *decode.Frame
	Err        error
}

// DecodeFunc turns one media file into a frame. It is called only from
// worker goroutines and is treated as opaque, slow, and fallible.
type DecodeFunc func(path string, kind media.Kind, maxSide int) (*decode.Frame, error)

// Stats is a snapshot of loader progress for a UI overlay.
type Stats struct {
	Loaded  int // results delivered to the cache this session
	Failed  int // items with a recorded decode failure
	Pending int // jobs queued or dispatched
}
