package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/codeargus/pkg/models"
)

// DBPool abstracts the pgxpool.Pool so the store can be mocked in tests
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	sqlGetEntry = `SELECT result, created_at FROM analysis_cache WHERE namespace = $1 AND digest = $2`

	sqlPutEntry = `INSERT INTO analysis_cache (namespace, digest, result, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (namespace, digest) DO UPDATE SET
            result = EXCLUDED.result,
            created_at = EXCLUDED.created_at`

	sqlDeleteEntry = `DELETE FROM analysis_cache WHERE namespace = $1 AND digest = $2`
)

// PostgresStore keeps cached results in an analysis_cache table keyed
// by (namespace, digest). It is the networked Store backing for setups
// where several runners share one cache.
type PostgresStore struct {
	pool DBPool
	log  zerolog.Logger
}

// NewPostgresStore creates a Postgres-backed store over an existing pool
func NewPostgresStore(pool DBPool, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, log: log}
}

// Get looks up a key. An undecodable row is treated as a miss and
// deleted best-effort, mirroring the filesystem backing.
func (s *PostgresStore) Get(ctx context.Context, key Key) (*models.AnalysisResult, bool, error) {
	var payload []byte
	var createdAt time.Time

	err := s.pool.QueryRow(ctx, sqlGetEntry, key.Namespace, key.Digest).Scan(&payload, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		s.log.Warn().Err(err).Str("key", key.String()).Msg("cache query failed, treating as miss")
		return nil, false, nil
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		s.log.Warn().Err(ErrCorruptEntry).Str("key", key.String()).Msg("corrupt cache entry, removing")
		if _, delErr := s.pool.Exec(ctx, sqlDeleteEntry, key.Namespace, key.Digest); delErr != nil {
			s.log.Warn().Err(delErr).Str("key", key.String()).Msg("failed to remove corrupt entry")
		}
		return nil, false, nil
	}

	return &result, true, nil
}

// Put upserts a result; the row swap is atomic so readers never see a
// partial write
func (s *PostgresStore) Put(ctx context.Context, key Key, result *models.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if _, err := s.pool.Exec(ctx, sqlPutEntry, key.Namespace, key.Digest, payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}
