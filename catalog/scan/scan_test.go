package scan

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mhbvr/photorater/layout"
)

func writeImage(t *testing.T, path string, width, height int, mtime time.Time) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{G: 120, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime on %s: %v", path, err)
	}
}

func TestScanDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

	// Written out of chronological order on purpose.
	writeImage(t, filepath.Join(dir, "newest.png"), 3, 5, base.Add(2*time.Hour))
	writeImage(t, filepath.Join(dir, "oldest.png"), 5, 3, base)
	writeImage(t, filepath.Join(dir, "middle.png"), 4, 4, base.Add(time.Hour))

	// Non-image content must be ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a photo"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "._oldest.png"), []byte{0, 5, 22, 7}, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0755); err != nil {
		t.Fatal(err)
	}

	infos, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir() failed: %v", err)
	}

	wantOrder := []string{"oldest.png", "middle.png", "newest.png"}
	if len(infos) != len(wantOrder) {
		t.Fatalf("ScanDir() returned %d photos, want %d: %+v", len(infos), len(wantOrder), infos)
	}
	for i, name := range wantOrder {
		if infos[i].Name != name {
			t.Errorf("photo %d = %s, want %s", i, infos[i].Name, name)
		}
	}

	if infos[0].Orientation != layout.Horizontal {
		t.Errorf("oldest.png orientation = %s, want horizontal", infos[0].Orientation)
	}
	// Square photos count as vertical, same as the width > height rule.
	if infos[1].Orientation != layout.Vertical {
		t.Errorf("middle.png orientation = %s, want vertical", infos[1].Orientation)
	}
	if infos[2].Orientation != layout.Vertical {
		t.Errorf("newest.png orientation = %s, want vertical", infos[2].Orientation)
	}
}

func TestScanDirUnreadableImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("corrupt bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	infos, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir() failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("ScanDir() returned %d photos, want 1", len(infos))
	}
	// Undecodable files keep the horizontal fallback.
	if infos[0].Orientation != layout.Horizontal {
		t.Errorf("broken.jpg orientation = %s, want horizontal fallback", infos[0].Orientation)
	}
}

func TestScanDirMissing(t *testing.T) {
	t.Parallel()

	if _, err := ScanDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("ScanDir() on missing directory should fail")
	}
}

func TestReader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "one.png"), 6, 2, time.Now())

	reader, err := NewReader(dir)
	if err != nil {
		t.Fatalf("NewReader() failed: %v", err)
	}
	defer reader.Close()

	infos, err := reader.ListPhotos()
	if err != nil {
		t.Fatalf("ListPhotos() failed: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "one.png" {
		t.Fatalf("ListPhotos() = %+v, want one.png", infos)
	}

	// Callers may mutate the returned slice freely.
	infos[0].Name = "mutated"
	again, err := reader.ListPhotos()
	if err != nil {
		t.Fatalf("ListPhotos() failed: %v", err)
	}
	if again[0].Name != "one.png" {
		t.Error("ListPhotos() must return a copy")
	}
}
