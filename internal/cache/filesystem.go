package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codeargus/pkg/models"
)

// FilesystemStore persists one JSON entry per key under
// baseDir/<namespace>/<digest>.json. Writes go to a temporary file in
// the same directory and are published with an atomic rename, so a
// concurrent Get never observes a partial entry.
type FilesystemStore struct {
	baseDir string
	log     zerolog.Logger
}

// NewFilesystemStore creates a filesystem-backed store rooted at baseDir
func NewFilesystemStore(baseDir string, log zerolog.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FilesystemStore{baseDir: baseDir, log: log}, nil
}

// Get looks up a key. A missing or undecodable entry is a miss, never
// an error the caller has to handle; corrupt entries are removed.
func (s *FilesystemStore) Get(ctx context.Context, key Key) (*models.AnalysisResult, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	path := s.entryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		s.log.Warn().Err(err).Str("key", key.String()).Msg("cache read failed, treating as miss")
		return nil, false, nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Result == nil {
		s.log.Warn().Err(ErrCorruptEntry).Str("key", key.String()).Msg("corrupt cache entry, removing")
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log.Warn().Err(rmErr).Str("key", key.String()).Msg("failed to remove corrupt entry")
		}
		return nil, false, nil
	}

	return entry.Result, true, nil
}

// Put writes through a result. Re-writing an identical result is a
// no-op; a different result under the same key implies a fingerprint
// collision, which is logged as an anomaly before the overwrite
// (last write wins).
func (s *FilesystemStore) Put(ctx context.Context, key Key, result *models.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(s.baseDir, key.Namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create namespace directory: %w", err)
	}

	if existing, ok, _ := s.Get(ctx, key); ok {
		if reflect.DeepEqual(existing, result) {
			return nil
		}
		s.log.Warn().Str("key", key.String()).Msg("overwriting cache entry with different result, possible key collision")
	}

	entry := Entry{
		Key:       key.String(),
		CreatedAt: time.Now().UTC(),
		Result:    result,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	// Unique temp name keeps concurrent writers of the same key from
	// clobbering each other's in-progress files
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", key.Digest, uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tmp, s.entryPath(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish cache entry: %w", err)
	}

	return nil
}

// Clear removes every entry under the store's base directory
func (s *FilesystemStore) Clear() error {
	if err := os.RemoveAll(s.baseDir); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return os.MkdirAll(s.baseDir, 0o755)
}

// Stats walks the store and reports entry count and total size in bytes
func (s *FilesystemStore) Stats() (entries int, bytes int64, err error) {
	err = filepath.Walk(s.baseDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() && filepath.Ext(path) == ".json" {
			entries++
			bytes += info.Size()
		}
		return nil
	})
	return entries, bytes, err
}

func (s *FilesystemStore) entryPath(key Key) string {
	return filepath.Join(s.baseDir, key.Namespace, key.Digest+".json")
}
