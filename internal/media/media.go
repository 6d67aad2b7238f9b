// Package media builds the ordered list of browsable items for a folder.
package media

import (
	"path/filepath"
	"strings"
)

// Kind classifies a browsable media file.
type Kind int

const (
	KindImage Kind = iota
	KindAnimatedImage
	KindVideoThumbnail
)

// String returns the kind name for logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindAnimatedImage:
		return "animated"
	case KindVideoThumbnail:
		return "video"
	default:
		return "unknown"
	}
}

// Item is one browsable file entry in the active folder. Items are
// immutable once the registry is built; everything downstream refers to
// them by ordinal.
type Item struct {
	Ordinal int
	Path    string
	Kind    Kind
}

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {},
	".bmp": {}, ".ico": {}, ".tiff": {}, ".tif": {},
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".webm": {}, ".avi": {}, ".mov": {},
	".wmv": {}, ".flv": {}, ".m4v": {}, ".3gp": {}, ".ogv": {},
}

// KindOf reports the media kind for a path, or ok=false when the
// extension is not supported.
func KindOf(path string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := imageExtensions[ext]; ok {
		if ext == ".gif" {
			return KindAnimatedImage, true
		}
		return KindImage, true
	}
	if _, ok := videoExtensions[ext]; ok {
		return KindVideoThumbnail, true
	}
	return 0, false
}

// IsSupported reports whether the path has a supported media extension.
func IsSupported(path string) bool {
	_, ok := KindOf(path)
	return ok
}
