// Package cache provides content-addressed persistence for AI analysis
// responses. Keys are deterministic fingerprints of every input that can
// influence a result, so a hit is always safe to return without a
// provider call.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/codeargus/pkg/models"
)

// ErrCorruptEntry marks a stored entry that could not be decoded.
// Callers treat it as a miss; the store removes the entry best-effort.
var ErrCorruptEntry = errors.New("cache: corrupt entry")

// Key addresses one cached analysis result. Digest is a fixed-length
// hex digest; Namespace isolates entries per provider+model so that
// switching providers can never produce a false hit.
type Key struct {
	Namespace string
	Digest    string
}

// String renders the key in namespace/digest form for logs
func (k Key) String() string {
	return k.Namespace + "/" + k.Digest
}

// Entry is the persisted envelope around a result. Entries are created
// once on a cache miss and never mutated; removal is left to external
// maintenance.
type Entry struct {
	Key       string                 `json:"key"`
	CreatedAt time.Time              `json:"created_at"`
	Result    *models.AnalysisResult `json:"result"`
}

// Store is the abstract key-value backing for cached analysis results.
// Get returns (nil, false, nil) on a miss. Both operations are
// idempotent and safe for concurrent use; a reader never observes a
// partially written entry.
type Store interface {
	Get(ctx context.Context, key Key) (*models.AnalysisResult, bool, error)
	Put(ctx context.Context, key Key, result *models.AnalysisResult) error
}
