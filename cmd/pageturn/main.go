// pageturn headless pipeline driver
//
// Scans a folder, runs the manga-mode prefetch pipeline while sweeping a
// synthetic viewport across it, and reports cache/decode statistics.
// Useful for profiling decode throughput and cache behavior on a real
// folder without the GUI. Serves Prometheus metrics when METRICS_ADDR is
// set.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pageturn/pageturn/internal/config"
	"github.com/pageturn/pageturn/internal/decode"
	"github.com/pageturn/pageturn/internal/events"
	"github.com/pageturn/pageturn/internal/logging"
	"github.com/pageturn/pageturn/internal/media"
	"github.com/pageturn/pageturn/internal/metrics"
	"github.com/pageturn/pageturn/internal/prefetch"
	"github.com/pageturn/pageturn/internal/texcache"
	"github.com/pageturn/pageturn/internal/watcher"
)

// visibleSpan is how many ordinals the synthetic viewport covers.
const visibleSpan = 2

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	dir := "."
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			logging.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logging.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.Info("shutting down...")
		cancel()
	}()

	w, err := watcher.New(dir, 0)
	if err != nil {
		logging.Fatal("watcher failed", zap.Error(err))
	}
	defer w.Close()
	w.Start(ctx)

	for {
		done, err := runSession(ctx, cfg, dir, w)
		if err != nil {
			logging.Fatal("session failed", zap.Error(err))
		}
		if done {
			return
		}
		logging.Info("folder changed, rescanning", zap.String("dir", dir))
	}
}

// runSession builds one browsing session and sweeps the viewport across
// the folder. Returns done=true when the sweep finished or the context
// was cancelled; done=false when the folder changed and the session must
// be rebuilt.
func runSession(ctx context.Context, cfg *config.Config, dir string, w *watcher.Watcher) (bool, error) {
	reg, err := media.Scan(dir)
	if err != nil {
		return false, err
	}
	if reg.Len() == 0 {
		logging.Info("no supported media in folder", zap.String("dir", dir))
		return true, nil
	}
	logging.Info("session start",
		zap.String("dir", dir),
		zap.Int("items", reg.Len()))

	dims := media.NewDimensionCache()
	start := time.Now()
	dims.Prewarm(reg, decode.Dimensions, cfg.Workers)
	logging.Info("dimensions prewarmed", zap.Duration("took", time.Since(start)))

	cache := texcache.New(cfg.CacheBudgetBytes)
	bus := events.NewBroadcaster()
	decoder := decode.NewDecoder(nil)

	sched := prefetch.New(prefetch.Config{
		Workers:            cfg.Workers,
		InFlightMultiplier: cfg.InFlightMultiplier,
		PreloadAhead:       cfg.PreloadAhead,
		PreloadBehind:      cfg.PreloadBehind,
		VelocityThreshold:  cfg.VelocityThreshold,
		MaxTextureSide:     cfg.MaxTextureSide,
		ResultBuffer:       cfg.ResultBuffer,
		UploadBatchSize:    cfg.UploadBatchSize,
	}, reg, cache, dims, bus, decoder.Decode)
	defer sched.Close()

	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	go func() {
		for ev := range sub {
			if ev.Type == events.EventFailed {
				logging.Warn("item failed",
					zap.Int("ordinal", ev.Ordinal),
					zap.String("error", ev.Error))
			}
		}
	}()

	// Sweep the viewport forward at one item per frame, then idle until
	// the tail of the queue drains.
	frame := time.NewTicker(16 * time.Millisecond)
	defer frame.Stop()

	center := 0
	sweeping := true
	idleFrames := 0
	sessionStart := time.Now()

	for {
		select {
		case <-ctx.Done():
			report(sched, cache, time.Since(sessionStart))
			return true, nil
		case <-w.Rescan():
			sched.Clear()
			return false, nil
		case <-frame.C:
			cache.Tick()
			low := clamp(center-visibleSpan/2, 0, reg.Len()-1)
			high := clamp(center+visibleSpan/2, 0, reg.Len()-1)

			velocity := 0.0
			if sweeping {
				velocity = 1.0
			}
			sched.Update(low, high, velocity, 0)
			sched.Collect(center)

			if sweeping {
				center++
				if center >= reg.Len() {
					center = reg.Len() - 1
					sweeping = false
				}
				continue
			}
			if sched.Stats().Pending == 0 {
				idleFrames++
				if idleFrames > 10 {
					report(sched, cache, time.Since(sessionStart))
					return true, nil
				}
			} else {
				idleFrames = 0
			}
		}
	}
}

func report(sched *prefetch.Scheduler, cache *texcache.Cache, took time.Duration) {
	stats := sched.Stats()
	size, budget, count := cache.Stats()
	logging.Info("session finished",
		zap.Duration("took", took),
		zap.Int("loaded", stats.Loaded),
		zap.Int("failed", stats.Failed),
		zap.Int("cached", count),
		zap.String("cache", fmt.Sprintf("%d/%d MiB", size>>20, budget>>20)))
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
