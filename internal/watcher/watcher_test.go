package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestRescanAfterMediaChange(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := os.WriteFile(filepath.Join(dir, "page001.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Rescan():
	case <-time.After(3 * time.Second):
		t.Fatal("no rescan signal after creating a media file")
	}
}

func TestBurstCoalescesToOneSignal(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "page"+string(rune('a'+i))+".jpg")
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-w.Rescan():
	case <-time.After(3 * time.Second):
		t.Fatal("no rescan signal after burst")
	}

	// The burst was debounced into a single signal.
	select {
	case <-w.Rescan():
		t.Error("expected one coalesced signal, got a second")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestIrrelevantEventsFiltered(t *testing.T) {
	cases := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/m/page.png", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/m/page.jpg", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "/m/clip.mp4", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/m/page.png", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/m/page.png", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/m/notes.txt", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/m/.hidden.swp", Op: fsnotify.Create}, false},
	}
	for _, tc := range cases {
		if got := relevant(tc.event); got != tc.want {
			t.Errorf("relevant(%s %s) = %v, want %v", tc.event.Op, tc.event.Name, got, tc.want)
		}
	}
}
