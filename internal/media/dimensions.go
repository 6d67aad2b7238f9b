package media

import (
	"sync"
)

// ProbeFunc reads the pixel dimensions of an image from its header
// without a full decode.
type ProbeFunc func(path string) (width, height int, err error)

// DimensionCache holds original pixel dimensions per ordinal so the strip
// layout stays stable before decodes land. Entries are written by Prewarm
// and by decode results; reads come from the render layer.
type DimensionCache struct {
	mu   sync.RWMutex
	dims map[int][2]int
}

// NewDimensionCache creates an empty dimension cache.
func NewDimensionCache() *DimensionCache {
	return &DimensionCache{dims: make(map[int][2]int)}
}

// Prewarm reads file headers for every image item in the registry using
// the given number of parallel workers. Header reads are a few bytes per
// file, so this is cheap even for large folders. Video items are skipped;
// their dimensions come from the thumbnail decode.
func (d *DimensionCache) Prewarm(reg *Registry, probe ProbeFunc, workers int) {
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan Item)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				w, h, err := probe(item.Path)
				if err != nil {
					continue
				}
				d.Set(item.Ordinal, w, h)
			}
		}()
	}

	for _, item := range reg.Items() {
		if item.Kind == KindVideoThumbnail {
			continue
		}
		jobs <- item
	}
	close(jobs)
	wg.Wait()
}

// Set stores dimensions for an ordinal.
func (d *DimensionCache) Set(ordinal, width, height int) {
	d.mu.Lock()
	d.dims[ordinal] = [2]int{width, height}
	d.mu.Unlock()
}

// Get returns the cached dimensions for an ordinal.
func (d *DimensionCache) Get(ordinal int) (width, height int, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	wh, ok := d.dims[ordinal]
	return wh[0], wh[1], ok
}

// Clear drops all cached dimensions (folder/session change).
func (d *DimensionCache) Clear() {
	d.mu.Lock()
	d.dims = make(map[int][2]int)
	d.mu.Unlock()
}
