// Package photorater holds the shared photo catalog model used by the
// gallery binaries and the catalog storage backends.
package photorater

import (
	"time"

	"github.com/mhbvr/photorater/layout"
)

// PhotoInfo describes one gallery photo: opaque identity, orientation and
// the chronological ordering key (file modification time).
type PhotoInfo struct {
	Name        string
	Orientation layout.Orientation
	ModTime     time.Time
}

// CatalogWriter provides an abstract interface for building photo catalogs.
// Different implementations can store metadata in different formats.
type CatalogWriter interface {
	// AddPhoto adds a single photo to the catalog
	AddPhoto(info PhotoInfo) error

	// AddPhotosBatch adds multiple photos in a single transaction for better performance
	AddPhotosBatch(infos []PhotoInfo) error

	// Close closes the catalog and releases resources
	Close() error
}

// CatalogReader provides an abstract interface for reading photo catalogs.
type CatalogReader interface {
	// ListPhotos returns all photos ordered by modification time, oldest first
	ListPhotos() ([]PhotoInfo, error)

	// Close closes the catalog and releases resources
	Close() error
}
