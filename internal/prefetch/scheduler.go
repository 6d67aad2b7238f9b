package prefetch

import (
	"sync"

	"go.uber.org/zap"

	"github.com/pageturn/pageturn/internal/events"
	"github.com/pageturn/pageturn/internal/logging"
	"github.com/pageturn/pageturn/internal/media"
	"github.com/pageturn/pageturn/internal/metrics"
	"github.com/pageturn/pageturn/internal/texcache"
)

// directionPenalty is added to the priority of items behind the scroll
// direction so forward content always decodes first at equal distance.
const directionPenalty = 10

// defaultUploadBatch caps results drained per Collect call; inserting too
// many textures in one frame causes visible stutter.
const defaultUploadBatch = 4

// Config holds the scheduler tunables. All values come in as plain
// numbers, parsed elsewhere.
type Config struct {
	Workers            int
	InFlightMultiplier int
	PreloadAhead       int
	PreloadBehind      int
	VelocityThreshold  float64
	MaxTextureSide     int
	ResultBuffer       int
	UploadBatchSize    int
	// Window overrides the adaptive policy when set.
	Window WindowPolicy
}

// Scheduler translates viewport telemetry into a ranked set of decode
// jobs, bounded by a maximum in-flight count. One scheduler serves one
// folder-browsing session; tear it down with Close on folder change.
type Scheduler struct {
	cfg    Config
	reg    *media.Registry
	cache  *texcache.Cache
	dims   *media.DimensionCache
	bus    *events.Broadcaster
	pool   *pool
	window WindowPolicy

	mu            sync.Mutex
	cond          *sync.Cond
	queue         *jobQueue
	inflight      map[texcache.Key]*Job
	cancelledKeys map[texcache.Key]struct{}
	failed        map[texcache.Key]error
	generation    uint64
	lastCenter    int
	direction     int
	closed        bool
	inflightCount int
	maxInflight   int
	loaded        int
}

// New creates a scheduler and starts its worker pool. dims and bus may be
// nil. decodeFn runs on worker goroutines only.
func New(cfg Config, reg *media.Registry, cache *texcache.Cache, dims *media.DimensionCache, bus *events.Broadcaster, decodeFn DecodeFunc) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.InFlightMultiplier <= 0 {
		cfg.InFlightMultiplier = 2
	}
	if cfg.UploadBatchSize <= 0 {
		cfg.UploadBatchSize = defaultUploadBatch
	}
	window := cfg.Window
	if window == nil {
		window = AdaptiveWindow{
			BaseAhead:         cfg.PreloadAhead,
			BaseBehind:        cfg.PreloadBehind,
			VelocityThreshold: cfg.VelocityThreshold,
		}
	}

	s := &Scheduler{
		cfg:           cfg,
		reg:           reg,
		cache:         cache,
		dims:          dims,
		bus:           bus,
		pool:          newPool(decodeFn, cfg.ResultBuffer),
		window:        window,
		queue:         newJobQueue(),
		inflight:      make(map[texcache.Key]*Job),
		cancelledKeys: make(map[texcache.Key]struct{}),
		failed:        make(map[texcache.Key]error),
		direction:     1,
		maxInflight:   cfg.Workers * cfg.InFlightMultiplier,
	}
	s.cond = sync.NewCond(&s.mu)
	s.pool.start(cfg.Workers, s)

	logging.Info("prefetch scheduler started",
		zap.Int("workers", cfg.Workers),
		zap.Int("max_inflight", s.maxInflight),
		zap.Int("items", reg.Len()))
	return s
}

// Update recomputes priorities from the latest viewport telemetry. It is
// non-blocking and idempotent: repeated calls with the same telemetry
// create no duplicate jobs and no duplicate cancellations. Call once per
// frame or per input event.
func (s *Scheduler) Update(low, high int, velocity float64, zoomTier int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.reg.Len() == 0 {
		return
	}

	last := s.reg.Len() - 1
	low = clamp(low, 0, last)
	high = clamp(high, 0, last)
	if low > high {
		low, high = high, low
	}
	center := (low + high) / 2

	// Velocity gives the travel direction; fall back to position delta
	// when the viewport is at rest.
	switch {
	case velocity > 0:
		s.direction = 1
	case velocity < 0:
		s.direction = -1
	case center > s.lastCenter:
		s.direction = 1
	case center < s.lastCenter:
		s.direction = -1
	}
	s.lastCenter = center

	win := s.window.Window(velocity)
	lo, hi := low-win.Behind, high+win.Ahead
	if s.direction < 0 {
		lo, hi = low-win.Ahead, high+win.Behind
	}
	lo = clamp(lo, 0, last)
	hi = clamp(hi, 0, last)

	if zoomTier < 0 {
		zoomTier = 0
	}
	maxSide := s.cfg.MaxTextureSide >> uint(zoomTier)
	if maxSide < 1 {
		maxSide = 1
	}

	desired := make(map[texcache.Key]struct{}, hi-lo+1)
	for ord := lo; ord <= hi; ord++ {
		item, ok := s.reg.Get(ord)
		if !ok {
			continue
		}
		key := texcache.Key{Ordinal: ord, Tier: zoomTier}
		desired[key] = struct{}{}

		// Failed decodes are not retried automatically; the viewer
		// clears the failure if the user asks for a reload.
		if _, bad := s.failed[key]; bad {
			continue
		}
		// Resident: touch for LRU bookkeeping only.
		if s.cache.Contains(key) {
			s.cache.Touch(key)
			continue
		}
		// Dispatched: a running decode cannot change priority.
		if _, running := s.inflight[key]; running {
			delete(s.cancelledKeys, key)
			continue
		}

		prio, order := s.priorityFor(ord, low, high)
		if s.queue.contains(key) {
			s.queue.bump(key, prio, order)
			continue
		}
		s.queue.push(&Job{
			Key:        key,
			Path:       item.Path,
			Kind:       item.Kind,
			MaxSide:    maxSide,
			Priority:   prio,
			Order:      order,
			Generation: s.generation,
		})
	}

	// Cancellation sweep: queued jobs that fell outside the window are
	// removed outright; dispatched ones are marked and dropped at the
	// delivery boundary.
	for _, key := range s.queue.keys() {
		if _, keep := desired[key]; !keep {
			s.queue.remove(key)
			metrics.RecordCancellation()
		}
	}
	for key := range s.inflight {
		if _, keep := desired[key]; !keep {
			s.cancelledKeys[key] = struct{}{}
		}
	}

	metrics.SetQueueDepth(s.queue.Len())
	s.cond.Broadcast()
}

// priorityFor ranks an ordinal against the visible range. Visible items
// get the top band; look-ahead items rank by distance from the nearest
// visible edge, with a penalty for trailing content. Order breaks ties
// toward the leading edge.
func (s *Scheduler) priorityFor(ord, low, high int) (priority, order int) {
	leading := high
	if s.direction < 0 {
		leading = low
	}
	order = abs(ord - leading)

	if ord >= low && ord <= high {
		return 0, order
	}

	ahead := ord > high
	if s.direction < 0 {
		ahead = ord < low
	}
	d := ord - high
	if ord < low {
		d = low - ord
	}
	priority = d
	if !ahead {
		priority += directionPenalty
	}
	return priority, order
}

// Collect drains up to the configured upload batch of completed decodes
// into the texture cache. center is the viewport's current ordinal for
// eviction tie-breaks. Non-blocking; call from the consumer thread once
// per frame. Returns the number of results applied.
func (s *Scheduler) Collect(center int) int {
	collected := 0
	for collected < s.cfg.UploadBatchSize {
		select {
		case res := <-s.pool.results:
			s.deliver(res, center)
			collected++
		default:
			return collected
		}
	}
	return collected
}

// deliver applies one result: stale or cancelled results are dropped,
// failures are recorded, successes transfer payload ownership to the
// cache exactly once.
func (s *Scheduler) deliver(res Result, center int) {
	s.mu.Lock()
	delete(s.inflight, res.Key)
	s.inflightCount--
	stale := res.Generation != s.generation
	_, wasCancelled := s.cancelledKeys[res.Key]
	delete(s.cancelledKeys, res.Key)
	metrics.SetInFlight(s.inflightCount)
	s.cond.Broadcast()
	s.mu.Unlock()

	if stale || wasCancelled {
		metrics.RecordCancellation()
		return
	}

	if res.Err != nil {
		s.mu.Lock()
		s.failed[res.Key] = res.Err
		s.mu.Unlock()
		logging.Warn("decode failed",
			zap.Int("ordinal", res.Key.Ordinal),
			zap.Int("tier", res.Key.Tier),
			zap.Error(res.Err))
		s.publish(events.Event{
			Type:    events.EventFailed,
			Ordinal: res.Key.Ordinal,
			Tier:    res.Key.Tier,
			Error:   res.Err.Error(),
		})
		return
	}

	evicted := s.cache.Put(res.Key, res.Frame, res.Frame.SizeBytes(), center)
	if s.dims != nil {
		s.dims.Set(res.Key.Ordinal, res.Frame.OriginalWidth, res.Frame.OriginalHeight)
	}

	s.mu.Lock()
	s.loaded++
	s.mu.Unlock()

	s.publish(events.Event{
		Type:    events.EventDecoded,
		Ordinal: res.Key.Ordinal,
		Tier:    res.Key.Tier,
	})
	for _, key := range evicted {
		s.publish(events.Event{
			Type:    events.EventEvicted,
			Ordinal: key.Ordinal,
			Tier:    key.Tier,
		})
	}
}

// Failed returns the recorded decode failure for a key, if any.
func (s *Scheduler) Failed(key texcache.Key) (error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err, ok := s.failed[key]
	return err, ok
}

// ClearFailure forgets a recorded failure so the next Update can
// re-request the item. Retry policy is the viewer's decision.
func (s *Scheduler) ClearFailure(key texcache.Key) {
	s.mu.Lock()
	delete(s.failed, key)
	s.mu.Unlock()
}

// Stats returns a snapshot of loader progress.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Loaded:  s.loaded,
		Failed:  len(s.failed),
		Pending: s.queue.Len() + s.inflightCount,
	}
}

// Clear resets the session: bumps the generation so every in-flight job
// becomes stale, empties the queue, drains pending results, and drops the
// cache and dimension state. The scheduler stays usable for the next
// session over the same registry.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	s.generation++
	for _, key := range s.queue.keys() {
		s.queue.remove(key)
	}
	s.failed = make(map[texcache.Key]error)
	s.cancelledKeys = make(map[texcache.Key]struct{})
	s.loaded = 0
	metrics.SetQueueDepth(0)
	s.mu.Unlock()

	// Drain results already delivered by workers; their generation is
	// stale now, but the in-flight accounting must still be released.
	for {
		select {
		case res := <-s.pool.results:
			s.mu.Lock()
			delete(s.inflight, res.Key)
			s.inflightCount--
			s.cond.Broadcast()
			s.mu.Unlock()
		default:
			s.cache.Clear()
			if s.dims != nil {
				s.dims.Clear()
			}
			return
		}
	}
}

// Close shuts the scheduler down and waits for workers to exit. Results
// still in flight are discarded.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	s.cond.Broadcast()
	s.mu.Unlock()

	// Workers may be blocked on a full result channel send; they are
	// not, because sends are non-blocking, so waiting is safe.
	s.pool.wait()
	logging.Info("prefetch scheduler stopped")
}

// jobSource implementation (called from worker goroutines).

func (s *Scheduler) next() (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.closed && (s.queue.Len() == 0 || s.inflightCount >= s.maxInflight) {
		s.cond.Wait()
	}
	if s.closed {
		return nil, false
	}

	job := s.queue.pop()
	s.inflight[job.Key] = job
	s.inflightCount++
	metrics.SetInFlight(s.inflightCount)
	metrics.SetQueueDepth(s.queue.Len())
	return job, true
}

func (s *Scheduler) cancelled(job *Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.Generation != s.generation {
		return true
	}
	_, ok := s.cancelledKeys[job.Key]
	return ok
}

func (s *Scheduler) release(job *Job, reason releaseReason) {
	s.mu.Lock()
	delete(s.inflight, job.Key)
	delete(s.cancelledKeys, job.Key)
	s.inflightCount--
	metrics.SetInFlight(s.inflightCount)
	if reason == releaseCancelled {
		metrics.RecordCancellation()
	}
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *Scheduler) publish(event events.Event) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
