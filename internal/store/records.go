package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LambTjops/vod-downloader/internal/monitoring"
)

// DownloadRecord is the persisted proof that a catalog item has been fetched
type DownloadRecord struct {
	DownloadedAt int64   `json:"downloaded_at"`
	Filename     string  `json:"filename"`
	SizeMB       float64 `json:"size_mb"`
}

// RecordStore is a durable itemId -> DownloadRecord mapping, held in memory
// and mirrored to a JSON file. Saves go through a temp-file-then-rename
// sequence so the backing file is always a complete prior snapshot.
type RecordStore struct {
	path    string
	mu      sync.RWMutex
	records map[string]DownloadRecord
	logger  *zap.Logger
}

// NewRecordStore creates a record store backed by the given file path
func NewRecordStore(path string, logger *zap.Logger) *RecordStore {
	return &RecordStore{
		path:    path,
		records: make(map[string]DownloadRecord),
		logger:  logger,
	}
}

// Load reads the backing file into memory. A missing file yields an empty
// store. An unparseable file is renamed aside as a backup and the store
// starts empty; corruption never fails the caller.
func (s *RecordStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.records = make(map[string]DownloadRecord)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read record store: %w", err)
	}

	records := make(map[string]DownloadRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		backupPath := s.path + ".backup"
		s.logger.Warn("record store file is corrupt, starting empty",
			zap.String("path", s.path),
			zap.String("backup", backupPath),
			zap.Error(err))
		monitoring.RecordError("store_corrupt")

		if renameErr := os.Rename(s.path, backupPath); renameErr != nil {
			s.logger.Error("failed to back up corrupt record store",
				zap.Error(renameErr))
		}

		s.records = make(map[string]DownloadRecord)
		return nil
	}

	s.records = records
	s.logger.Info("record store loaded",
		zap.String("path", s.path),
		zap.Int("records", len(records)))
	return nil
}

// Save writes the entire mapping to a temporary file in the same directory
// and atomically renames it over the backing file.
func (s *RecordStore) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.records, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		monitoring.RecordStoreSave(false)
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	if err := s.writeAtomic(data); err != nil {
		monitoring.RecordStoreSave(false)
		return err
	}

	monitoring.RecordStoreSave(true)
	return nil
}

// writeAtomic writes data to a temp file next to the backing file, syncs it,
// and renames it into place.
func (s *RecordStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".records-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace record store: %w", err)
	}

	return nil
}

// Record upserts a download record with the current timestamp and saves.
// Re-marking an item overwrites its prior record.
func (s *RecordStore) Record(itemID, filename string, sizeMB float64) error {
	s.mu.Lock()
	s.records[itemID] = DownloadRecord{
		DownloadedAt: time.Now().Unix(),
		Filename:     filename,
		SizeMB:       sizeMB,
	}
	s.mu.Unlock()

	return s.Save()
}

// Contains reports whether an item has a download record
func (s *RecordStore) Contains(itemID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[itemID]
	return ok
}

// Get returns the download record for an item, if any
func (s *RecordStore) Get(itemID string) (DownloadRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[itemID]
	return rec, ok
}

// Remove deletes an item's download record and saves. It reports whether
// the record existed; the save error is returned separately.
func (s *RecordStore) Remove(itemID string) (bool, error) {
	s.mu.Lock()
	_, ok := s.records[itemID]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.records, itemID)
	s.mu.Unlock()

	return true, s.Save()
}

// All returns a copy of the current mapping
func (s *RecordStore) All() map[string]DownloadRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]DownloadRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = rec
	}
	return out
}

// Len returns the number of download records
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Path returns the backing file path
func (s *RecordStore) Path() string {
	return s.path
}
