// Package bolt stores a photo catalog in a single bbolt file.
package bolt

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mhbvr/photorater"
	"github.com/mhbvr/photorater/layout"
	bolt "go.etcd.io/bbolt"
)

const photoBucket = "photos"

// BoltCatalog implements CatalogReader and CatalogWriter using a single
// bbolt file. Keys start with the big-endian modification time, so a
// cursor scan yields chronological order without sorting.
type BoltCatalog struct {
	db *bolt.DB
}

// New creates a new BoltCatalog for writing
func New(dbPath string) (*BoltCatalog, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(photoBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltCatalog{db: db}, nil
}

// NewReader creates a new BoltCatalog for reading (read-only mode)
func NewReader(dbPath string) (*BoltCatalog, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}
	return &BoltCatalog{db: db}, nil
}

func (c *BoltCatalog) Close() error {
	return c.db.Close()
}

func encodeKey(info photorater.PhotoInfo) []byte {
	key := make([]byte, 8+len(info.Name))
	binary.BigEndian.PutUint64(key[:8], uint64(info.ModTime.UnixNano()))
	copy(key[8:], info.Name)
	return key
}

func encodeValue(info photorater.PhotoInfo) []byte {
	if info.Orientation == layout.Horizontal {
		return []byte{'h'}
	}
	return []byte{'v'}
}

func decodeEntry(key, value []byte) (photorater.PhotoInfo, error) {
	if len(key) <= 8 || len(value) != 1 {
		return photorater.PhotoInfo{}, fmt.Errorf("malformed catalog entry")
	}

	orientation := layout.Vertical
	if value[0] == 'h' {
		orientation = layout.Horizontal
	}
	return photorater.PhotoInfo{
		Name:        string(key[8:]),
		Orientation: orientation,
		ModTime:     time.Unix(0, int64(binary.BigEndian.Uint64(key[:8]))),
	}, nil
}

func (c *BoltCatalog) AddPhoto(info photorater.PhotoInfo) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(photoBucket))
		if err := bucket.Put(encodeKey(info), encodeValue(info)); err != nil {
			return fmt.Errorf("failed to store photo %s: %w", info.Name, err)
		}
		return nil
	})
}

func (c *BoltCatalog) AddPhotosBatch(infos []photorater.PhotoInfo) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(photoBucket))
		for _, info := range infos {
			if err := bucket.Put(encodeKey(info), encodeValue(info)); err != nil {
				return fmt.Errorf("failed to store photo %s: %w", info.Name, err)
			}
		}
		return nil
	})
}

func (c *BoltCatalog) ListPhotos() ([]photorater.PhotoInfo, error) {
	var infos []photorater.PhotoInfo

	err := c.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket([]byte(photoBucket)).Cursor()
		for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
			info, err := decodeEntry(key, value)
			if err != nil {
				return err
			}
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return infos, nil
}
