package pebble

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mhbvr/photorater"
	"github.com/mhbvr/photorater/layout"
)

func TestPebbleCatalogRoundTrip(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "catalog")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	infos := []photorater.PhotoInfo{
		{Name: "c.jpg", Orientation: layout.Vertical, ModTime: base.Add(2 * time.Hour)},
		{Name: "a.jpg", Orientation: layout.Horizontal, ModTime: base},
		{Name: "b.jpg", Orientation: layout.Vertical, ModTime: base.Add(time.Hour)},
	}

	writer, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := writer.AddPhotosBatch(infos); err != nil {
		t.Fatalf("AddPhotosBatch() failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	reader, err := NewReader(dbPath)
	if err != nil {
		t.Fatalf("NewReader() failed: %v", err)
	}
	defer reader.Close()

	got, err := reader.ListPhotos()
	if err != nil {
		t.Fatalf("ListPhotos() failed: %v", err)
	}

	wantOrder := []string{"a.jpg", "b.jpg", "c.jpg"}
	if len(got) != len(wantOrder) {
		t.Fatalf("ListPhotos() returned %d photos, want %d", len(got), len(wantOrder))
	}
	for i, name := range wantOrder {
		if got[i].Name != name {
			t.Errorf("photo %d = %s, want %s", i, got[i].Name, name)
		}
	}
	if got[0].Orientation != layout.Horizontal {
		t.Errorf("photo 0 orientation = %s, want horizontal", got[0].Orientation)
	}
	if !got[2].ModTime.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("photo 2 mod time = %v, want %v", got[2].ModTime, base.Add(2*time.Hour))
	}
}

func TestPebbleCatalogAddPhoto(t *testing.T) {
	t.Parallel()

	writer, err := New(filepath.Join(t.TempDir(), "catalog"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer writer.Close()

	info := photorater.PhotoInfo{
		Name:        "single.jpg",
		Orientation: layout.Vertical,
		ModTime:     time.Now(),
	}
	if err := writer.AddPhoto(info); err != nil {
		t.Fatalf("AddPhoto() failed: %v", err)
	}

	got, err := writer.ListPhotos()
	if err != nil {
		t.Fatalf("ListPhotos() failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "single.jpg" || got[0].Orientation != layout.Vertical {
		t.Fatalf("ListPhotos() = %+v, want one vertical entry single.jpg", got)
	}
}
