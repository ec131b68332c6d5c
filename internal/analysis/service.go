// Package analysis orchestrates single analysis calls through the
// response cache: look up first, delegate to the provider on a miss,
// write the result through before returning it.
package analysis

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/codeargus/internal/ai"
	"github.com/codeargus/internal/cache"
	"github.com/codeargus/pkg/models"
)

// Service evaluates analysis requests with write-through caching.
// With caching disabled every call goes straight to the provider and
// the store is never touched.
type Service struct {
	store        cache.Store
	cacheEnabled bool
	log          zerolog.Logger
}

// NewService creates an analysis service. store may be nil when
// cacheEnabled is false.
func NewService(store cache.Store, cacheEnabled bool, log zerolog.Logger) *Service {
	return &Service{
		store:        store,
		cacheEnabled: cacheEnabled,
		log:          log,
	}
}

// Evaluate returns the critique for req, from cache when possible.
// Provider failures propagate unchanged and are never cached; cache
// write failures are logged and absorbed, because a completed provider
// call must not be lost to a full disk.
func (s *Service) Evaluate(ctx context.Context, req *models.AnalysisRequest, provider ai.Provider) (*models.AnalysisResult, error) {
	if !s.cacheEnabled || s.store == nil {
		return provider.Analyze(ctx, req)
	}

	key := cache.Fingerprint(req, provider.Identity())

	if result, ok, err := s.store.Get(ctx, key); err != nil {
		return nil, err
	} else if ok {
		s.log.Debug().Str("key", key.String()).Str("change", req.ChangeID).Msg("cache hit")
		return result, nil
	}

	s.log.Debug().Str("key", key.String()).Str("change", req.ChangeID).Msg("cache miss")

	result, err := provider.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	if putErr := s.store.Put(ctx, key, result); putErr != nil {
		s.log.Warn().Err(putErr).Str("key", key.String()).Msg("cache write failed")
	}

	return result, nil
}
