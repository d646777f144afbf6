package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when an evidence blob exceeds the store's limit.
var ErrTooLarge = fmt.Errorf("evidence blob exceeds size limit")

// EvidenceStore persists departure photo evidence. Writes are synchronous
// and happen before the database commit; a failed commit retracts the
// just-written blobs so no record references missing evidence and no blob
// is orphaned by a missing record.
type EvidenceStore interface {
	Save(data []byte, ext string) (string, error)
	Remove(key string) error
}

// DiskStore stores blobs under a root directory, bucketed by date.
type DiskStore struct {
	root    string
	maxSize int
}

func NewDiskStore(root string, maxSize int) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create evidence root: %w", err)
	}
	return &DiskStore{root: root, maxSize: maxSize}, nil
}

// Save writes one blob and returns its key relative to the store root.
func (s *DiskStore) Save(data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty evidence blob")
	}
	if len(data) > s.maxSize {
		return "", ErrTooLarge
	}
	if ext == "" {
		ext = ".jpg"
	}

	bucket := time.Now().Format("2006-01-02")
	if err := os.MkdirAll(filepath.Join(s.root, bucket), 0o755); err != nil {
		return "", fmt.Errorf("failed to create evidence bucket: %w", err)
	}

	key := filepath.Join(bucket, uuid.NewString()+ext)
	if err := os.WriteFile(filepath.Join(s.root, key), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write evidence blob: %w", err)
	}
	return key, nil
}

// Remove retracts a previously saved blob. Missing files are not an error;
// retraction after a failed commit must be idempotent.
func (s *DiskStore) Remove(key string) error {
	err := os.Remove(filepath.Join(s.root, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove evidence blob: %w", err)
	}
	return nil
}
