package prefetch

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pageturn/pageturn/internal/logging"
	"github.com/pageturn/pageturn/internal/metrics"
)

// releaseReason says why a dispatched job ended without delivery.
type releaseReason int

const (
	releaseCancelled releaseReason = iota
	releaseDropped
)

// jobSource feeds workers. Implemented by the scheduler; a test can
// substitute its own.
type jobSource interface {
	// next blocks until a job is available or the source is closed.
	next() (*Job, bool)
	// cancelled reports whether the job was cancelled or superseded
	// after dispatch. Workers check it before starting a decode.
	cancelled(*Job) bool
	// release returns a dispatch slot for a job that produced no
	// delivered result.
	release(*Job, releaseReason)
}

// pool runs a fixed number of decode workers. Workers share nothing but
// the job source and the result channel; a stuck decode occupies one
// worker slot, never the pipeline.
type pool struct {
	decode  DecodeFunc
	results chan Result
	wg      sync.WaitGroup
}

func newPool(decode DecodeFunc, resultBuffer int) *pool {
	if resultBuffer <= 0 {
		resultBuffer = 1
	}
	return &pool{
		decode:  decode,
		results: make(chan Result, resultBuffer),
	}
}

// start launches the worker goroutines. Pool size is fixed for the life
// of the pool; oversubscription is handled by queue priority, not by
// spawning more workers.
func (p *pool) start(workers int, source jobSource) {
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(source)
	}
}

// wait blocks until all workers have exited (source closed).
func (p *pool) wait() {
	p.wg.Wait()
}

func (p *pool) worker(source jobSource) {
	defer p.wg.Done()

	for {
		job, ok := source.next()
		if !ok {
			return
		}

		// A job cancelled between dispatch and decode start is dropped
		// without touching the file.
		if source.cancelled(job) {
			source.release(job, releaseCancelled)
			continue
		}

		start := time.Now()
		frame, err := p.decode(job.Path, job.Kind, job.MaxSide)
		if err != nil {
			metrics.RecordDecode(job.Kind.String(), "error", time.Since(start))
		} else {
			metrics.RecordDecode(job.Kind.String(), "ok", time.Since(start))
		}

		res := Result{
			Key:        job.Key,
			Generation: job.Generation,
			Frame:      frame,
			Err:        err,
		}

		// Non-blocking delivery: if the consumer is behind, drop the
		// result and free the slot. The scheduler will re-request the
		// item on the next telemetry update.
		select {
		case p.results <- res:
		default:
			metrics.RecordDroppedResult()
			logging.Debug("result channel full, dropping decode",
				zap.Int("ordinal", job.Key.Ordinal),
				zap.Int("tier", job.Key.Tier))
			source.release(job, releaseDropped)
		}
	}
}
