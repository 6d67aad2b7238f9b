package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/pageturn/pageturn/internal/logging"
)

// ScanError reports a failed folder scan. A folder with no supported
// files is not a scan error; only an unreadable directory is.
type ScanError struct {
	Dir string
	Err error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Dir, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Registry is the immutable, ordered list of media items for one folder.
// It is built once per folder-open event and is safe for concurrent reads
// without synchronization.
type Registry struct {
	dir   string
	items []Item
}

// Scan reads a directory and builds a registry of its supported media
// files, ordered by natural file-name sort. Returns a *ScanError when the
// directory cannot be read; an empty registry when nothing is supported.
func Scan(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ScanError{Dir: dir, Err: err}
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		kind, ok := KindOf(entry.Name())
		if !ok {
			continue
		}
		items = append(items, Item{
			Path: filepath.Join(dir, entry.Name()),
			Kind: kind,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return naturalLess(filepath.Base(items[i].Path), filepath.Base(items[j].Path))
	})
	for i := range items {
		items[i].Ordinal = i
	}

	logging.Debug("folder scanned",
		zap.String("dir", dir),
		zap.Int("items", len(items)))

	return &Registry{dir: dir, items: items}, nil
}

// Dir returns the scanned folder path.
func (r *Registry) Dir() string {
	return r.dir
}

// Len returns the number of items in the registry.
func (r *Registry) Len() int {
	return len(r.items)
}

// Get returns the item at the given ordinal.
func (r *Registry) Get(ordinal int) (Item, bool) {
	if ordinal < 0 || ordinal >= len(r.items) {
		return Item{}, false
	}
	return r.items[ordinal], true
}

// Items returns the full ordered item list. The returned slice must be
// treated as read-only.
func (r *Registry) Items() []Item {
	return r.items
}
