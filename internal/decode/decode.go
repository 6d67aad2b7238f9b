// Package decode turns media files into pixel buffers for texture upload.
// It is called only from worker goroutines; callers treat it as opaque,
// potentially slow, and potentially failing.
package decode

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"

	"github.com/pageturn/pageturn/internal/media"

	// Register decoders beyond the stdlib defaults.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrorKind classifies a decode failure.
type ErrorKind int

const (
	// ErrCorrupt means the file exists but its content cannot be decoded.
	ErrCorrupt ErrorKind = iota
	// ErrUnsupported means the sub-format is not handled by any decoder.
	ErrUnsupported
	// ErrCodecUnavailable means no codec is wired for this media kind
	// (video thumbnails without a thumbnailer).
	ErrCodecUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case ErrCorrupt:
		return "corrupt"
	case ErrUnsupported:
		return "unsupported"
	case ErrCodecUnavailable:
		return "codec_unavailable"
	default:
		return "unknown"
	}
}

// Error is a typed per-item decode failure. It never affects other jobs.
type Error struct {
	Path string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode %s (%s): %v", e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Frame is a decoded pixel buffer ready for texture upload. Width/Height
// are the buffer dimensions after any downscale; OriginalWidth/Height come
// from the file header and drive strip layout.
type Frame struct {
	Pixels         *image.NRGBA
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
}

// SizeBytes returns the pixel buffer size for cache accounting.
func (f *Frame) SizeBytes() int64 {
	if f == nil || f.Pixels == nil {
		return 0
	}
	return int64(len(f.Pixels.Pix))
}

// Thumbnailer extracts a poster frame from a video file. The real
// implementation lives with the video player, outside this package.
type Thumbnailer interface {
	Thumbnail(path string, maxSide int) (*Frame, error)
}

// Decoder decodes media files, downscaled to fit a maximum texture side.
type Decoder struct {
	thumbnailer Thumbnailer
}

// NewDecoder creates a decoder. thumbnailer may be nil, in which case
// video items fail with ErrCodecUnavailable.
func NewDecoder(thumbnailer Thumbnailer) *Decoder {
	return &Decoder{thumbnailer: thumbnailer}
}

// Decode reads and decodes one media file. maxSide of 0 means no
// downscaling. Animated images decode to their first frame; playback is
// the viewer's concern, the strip only needs a static texture.
func (d *Decoder) Decode(path string, kind media.Kind, maxSide int) (*Frame, error) {
	if kind == media.KindVideoThumbnail {
		if d.thumbnailer == nil {
			return nil, &Error{Path: path, Kind: ErrCodecUnavailable, Err: fmt.Errorf("no video thumbnailer configured")}
		}
		return d.thumbnailer.Thumbnail(path, maxSide)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Kind: ErrCorrupt, Err: err}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, &Error{Path: path, Kind: ErrUnsupported, Err: err}
	}

	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, &Error{Path: path, Kind: ErrCorrupt, Err: err}
	}

	orientation := Orientation(bytes.NewReader(content))
	img = applyOrientation(img, orientation)

	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		// Linear is the fast filter; manga pages are re-decoded at full
		// quality when the zoom tier changes.
		nrgba = imaging.Fit(nrgba, maxSide, maxSide, imaging.Linear)
		w = nrgba.Bounds().Dx()
		h = nrgba.Bounds().Dy()
	}

	origW, origH := cfg.Width, cfg.Height
	if orientation >= 5 && orientation <= 8 {
		origW, origH = origH, origW
	}

	return &Frame{
		Pixels:         nrgba,
		Width:          w,
		Height:         h,
		OriginalWidth:  origW,
		OriginalHeight: origH,
	}, nil
}

// Dimensions reads an image's pixel dimensions from its header only.
func Dimensions(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
