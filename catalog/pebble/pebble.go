// Package pebble stores a photo catalog in a Pebble key-value store.
package pebble

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/mhbvr/photorater"
	"github.com/mhbvr/photorater/layout"
)

const photoPrefix = "photo:"

// PebbleCatalog implements CatalogReader and CatalogWriter using Pebble
// key-value storage. Keys carry the big-endian modification time after
// the prefix, so iteration order is chronological.
type PebbleCatalog struct {
	db *pebble.DB
}

// New creates a new PebbleCatalog for writing
func New(dbPath string) (*PebbleCatalog, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}
	return &PebbleCatalog{db: db}, nil
}

// NewReader creates a new PebbleCatalog for reading (read-only mode)
func NewReader(dbPath string) (*PebbleCatalog, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}
	return &PebbleCatalog{db: db}, nil
}

func (p *PebbleCatalog) Close() error {
	return p.db.Close()
}

func encodeKey(info photorater.PhotoInfo) []byte {
	key := make([]byte, len(photoPrefix)+8+len(info.Name))
	copy(key, photoPrefix)
	binary.BigEndian.PutUint64(key[len(photoPrefix):len(photoPrefix)+8], uint64(info.ModTime.UnixNano()))
	copy(key[len(photoPrefix)+8:], info.Name)
	return key
}

func encodeValue(info photorater.PhotoInfo) []byte {
	if info.Orientation == layout.Horizontal {
		return []byte{'h'}
	}
	return []byte{'v'}
}

func decodeEntry(key, value []byte) (photorater.PhotoInfo, error) {
	if len(key) <= len(photoPrefix)+8 || len(value) != 1 {
		return photorater.PhotoInfo{}, fmt.Errorf("malformed catalog entry")
	}

	orientation := layout.Vertical
	if value[0] == 'h' {
		orientation = layout.Horizontal
	}
	nanos := int64(binary.BigEndian.Uint64(key[len(photoPrefix) : len(photoPrefix)+8]))
	return photorater.PhotoInfo{
		Name:        string(key[len(photoPrefix)+8:]),
		Orientation: orientation,
		ModTime:     time.Unix(0, nanos),
	}, nil
}

func (p *PebbleCatalog) AddPhoto(info photorater.PhotoInfo) error {
	if err := p.db.Set(encodeKey(info), encodeValue(info), pebble.Sync); err != nil {
		return fmt.Errorf("failed to store photo %s: %w", info.Name, err)
	}
	return nil
}

func (p *PebbleCatalog) AddPhotosBatch(infos []photorater.PhotoInfo) error {
	batch := p.db.NewBatch()
	defer batch.Close()

	for _, info := range infos {
		if err := batch.Set(encodeKey(info), encodeValue(info), nil); err != nil {
			return fmt.Errorf("failed to store photo %s: %w", info.Name, err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (p *PebbleCatalog) ListPhotos() ([]photorater.PhotoInfo, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(photoPrefix),
		UpperBound: []byte(photoPrefix[:len(photoPrefix)-1] + ";"), // ':' + 1
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var infos []photorater.PhotoInfo
	for iter.First(); iter.Valid(); iter.Next() {
		info, err := decodeEntry(iter.Key(), iter.Value())
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterator error: %w", err)
	}
	return infos, nil
}
