package decode

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pageturn/pageturn/internal/media"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecodeKeepsSmallImages(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "page.png", 10, 6)

	d := NewDecoder(nil)
	frame, err := d.Decode(path, media.KindImage, 256)
	if err != nil {
		t.Fatal(err)
	}
	if frame.Width != 10 || frame.Height != 6 {
		t.Errorf("got %dx%d, want 10x6", frame.Width, frame.Height)
	}
	if frame.OriginalWidth != 10 || frame.OriginalHeight != 6 {
		t.Errorf("original %dx%d, want 10x6", frame.OriginalWidth, frame.OriginalHeight)
	}
	if frame.SizeBytes() != 10*6*4 {
		t.Errorf("SizeBytes = %d, want %d", frame.SizeBytes(), 10*6*4)
	}
}

func TestDecodeDownscalesToMaxSide(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "wide.png", 100, 50)

	d := NewDecoder(nil)
	frame, err := d.Decode(path, media.KindImage, 32)
	if err != nil {
		t.Fatal(err)
	}
	if frame.Width != 32 || frame.Height != 16 {
		t.Errorf("got %dx%d, want 32x16", frame.Width, frame.Height)
	}
	// Layout still sees the file's true dimensions.
	if frame.OriginalWidth != 100 || frame.OriginalHeight != 50 {
		t.Errorf("original %dx%d, want 100x50", frame.OriginalWidth, frame.OriginalHeight)
	}
}

func TestDecodeZeroMaxSideMeansNoScaling(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "tall.png", 20, 40)

	d := NewDecoder(nil)
	frame, err := d.Decode(path, media.KindImage, 0)
	if err != nil {
		t.Fatal(err)
	}
	if frame.Width != 20 || frame.Height != 40 {
		t.Errorf("got %dx%d, want 20x40", frame.Width, frame.Height)
	}
}

func TestDecodeGarbageReportsUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noise.png")
	if err := os.WriteFile(path, []byte("this is not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	d := NewDecoder(nil)
	_, err := d.Decode(path, media.KindImage, 256)
	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if derr.Kind != ErrUnsupported {
		t.Errorf("kind = %s, want %s", derr.Kind, ErrUnsupported)
	}
	if derr.Path != path {
		t.Errorf("path = %s, want %s", derr.Path, path)
	}
}

func TestDecodeTruncatedReportsCorrupt(t *testing.T) {
	dir := t.TempDir()
	full := writePNG(t, dir, "full.png", 64, 64)
	content, err := os.ReadFile(full)
	if err != nil {
		t.Fatal(err)
	}
	// Keep the header so DecodeConfig succeeds, then cut the pixel data.
	path := filepath.Join(dir, "cut.png")
	if err := os.WriteFile(path, content[:64], 0644); err != nil {
		t.Fatal(err)
	}

	d := NewDecoder(nil)
	_, err = d.Decode(path, media.KindImage, 256)
	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if derr.Kind != ErrCorrupt {
		t.Errorf("kind = %s, want %s", derr.Kind, ErrCorrupt)
	}
}

func TestDecodeMissingFileReportsCorrupt(t *testing.T) {
	d := NewDecoder(nil)
	_, err := d.Decode(filepath.Join(t.TempDir(), "gone.png"), media.KindImage, 256)
	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if derr.Kind != ErrCorrupt {
		t.Errorf("kind = %s, want %s", derr.Kind, ErrCorrupt)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("expected wrapped os.ErrNotExist")
	}
}

type stubThumbnailer struct {
	lastPath    string
	lastMaxSide int
}

func (s *stubThumbnailer) Thumbnail(path string, maxSide int) (*Frame, error) {
	s.lastPath = path
	s.lastMaxSide = maxSide
	return &Frame{
		Pixels:         image.NewNRGBA(image.Rect(0, 0, 4, 4)),
		Width:          4,
		Height:         4,
		OriginalWidth:  1920,
		OriginalHeight: 1080,
	}, nil
}

func TestVideoWithoutThumbnailerFails(t *testing.T) {
	d := NewDecoder(nil)
	_, err := d.Decode("/media/clip.mp4", media.KindVideoThumbnail, 256)
	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if derr.Kind != ErrCodecUnavailable {
		t.Errorf("kind = %s, want %s", derr.Kind, ErrCodecUnavailable)
	}
}

func TestVideoDelegatesToThumbnailer(t *testing.T) {
	thumb := &stubThumbnailer{}
	d := NewDecoder(thumb)
	frame, err := d.Decode("/media/clip.mp4", media.KindVideoThumbnail, 512)
	if err != nil {
		t.Fatal(err)
	}
	if thumb.lastPath != "/media/clip.mp4" || thumb.lastMaxSide != 512 {
		t.Errorf("thumbnailer called with %s/%d", thumb.lastPath, thumb.lastMaxSide)
	}
	if frame.OriginalWidth != 1920 {
		t.Errorf("original width = %d, want 1920", frame.OriginalWidth)
	}
}

func TestDimensionsReadsHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "page.png", 300, 200)

	w, h, err := Dimensions(path)
	if err != nil {
		t.Fatal(err)
	}
	if w != 300 || h != 200 {
		t.Errorf("got %dx%d, want 300x200", w, h)
	}

	if _, _, err := Dimensions(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
