package main

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mhbvr/photorater"
	"github.com/mhbvr/photorater/layout"
)

type fakeReader struct {
	infos []photorater.PhotoInfo
}

func (f *fakeReader) ListPhotos() ([]photorater.PhotoInfo, error) { return f.infos, nil }
func (f *fakeReader) Close() error                                { return nil }

func TestHandleRows(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	reader := &fakeReader{infos: []photorater.PhotoInfo{
		{Name: "a.jpg", Orientation: layout.Horizontal, ModTime: base},
		{Name: "b.jpg", Orientation: layout.Vertical, ModTime: base.Add(time.Minute)},
		{Name: "c.jpg", Orientation: layout.Vertical, ModTime: base.Add(2 * time.Minute)},
		{Name: "d.jpg", Orientation: layout.Horizontal, ModTime: base.Add(3 * time.Minute)},
		{Name: "e.jpg", Orientation: layout.Vertical, ModTime: base.Add(4 * time.Minute)},
	}}
	gs := NewGalleryServer(reader, "/photos/", 4)

	rec := httptest.NewRecorder()
	gs.handleRows(rec, httptest.NewRequest("GET", "/api/rows", nil))

	if rec.Code != 200 {
		t.Fatalf("handleRows returned status %d, want 200", rec.Code)
	}

	var rows []layout.Row
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("failed to decode rows: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(rows), rows)
	}
	if len(rows[0].Photos) != 3 || rows[0].Units != 4 {
		t.Errorf("row 0 = %d photos / %d units, want 3 / 4", len(rows[0].Photos), rows[0].Units)
	}
	if len(rows[1].Photos) != 2 || rows[1].Units != 3 {
		t.Errorf("row 1 = %d photos / %d units, want 2 / 3", len(rows[1].Photos), rows[1].Units)
	}
	if rows[0].Photos[0].URL != "/photos/a.jpg" {
		t.Errorf("photo URL = %s, want /photos/a.jpg", rows[0].Photos[0].URL)
	}
}

func TestPhotoURLEscaping(t *testing.T) {
	t.Parallel()

	gs := NewGalleryServer(&fakeReader{}, "/static/images", 0)
	if got := gs.photoURL("my cat.jpg"); got != "/static/images/my%20cat.jpg" {
		t.Errorf("photoURL() = %s, want /static/images/my%%20cat.jpg", got)
	}
}

func TestOpenReaderValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		photosDir string
		dbPath    string
		dbType    string
	}{
		{"scan without photos dir", "", "", "scan"},
		{"bolt without db path", "", "", "bolt"},
		{"pebble without db path", "", "", "pebble"},
		{"unknown type", "x", "y", "filetree"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := openReader(tt.photosDir, tt.dbPath, tt.dbType); err == nil {
				t.Error("openReader() should fail")
			}
		})
	}
}
