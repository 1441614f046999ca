// Package scan reads photo metadata straight from an image directory,
// with no prebuilt catalog.
package scan

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/mhbvr/photorater"
	"github.com/mhbvr/photorater/layout"
)

// ScanDir reads every image in dir and returns photo metadata ordered by
// file modification time, oldest first. Files whose dimensions cannot be
// read are kept with a horizontal fallback orientation.
func ScanDir(dir string) ([]photorater.PhotoInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo directory: %w", err)
	}

	var infos []photorater.PhotoInfo
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}

		infos = append(infos, photorater.PhotoInfo{
			Name:        entry.Name(),
			Orientation: readOrientation(filepath.Join(dir, entry.Name())),
			ModTime:     fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ModTime.Before(infos[j].ModTime)
	})
	return infos, nil
}

func isImageFile(name string) bool {
	// "._" files are AppleDouble sidecars, not images.
	if strings.HasPrefix(name, "._") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

func readOrientation(path string) layout.Orientation {
	f, err := os.Open(path)
	if err != nil {
		return layout.Horizontal
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return layout.Horizontal
	}
	if cfg.Width > cfg.Height {
		return layout.Horizontal
	}
	return layout.Vertical
}

// Reader implements CatalogReader by scanning the directory once at open
// time.
type Reader struct {
	infos []photorater.PhotoInfo
}

func NewReader(dir string) (*Reader, error) {
	infos, err := ScanDir(dir)
	if err != nil {
		return nil, err
	}
	return &Reader{infos: infos}, nil
}

func (r *Reader) ListPhotos() ([]photorater.PhotoInfo, error) {
	infos := make([]photorater.PhotoInfo, len(r.infos))
	copy(infos, r.infos)
	return infos, nil
}

func (r *Reader) Close() error {
	return nil
}
