package ai

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/codeargus/internal/retry"
	"github.com/codeargus/pkg/models"
)

// resilientProvider retries transient failures with exponential backoff.
// Deterministic failures (auth, malformed response) pass through
// immediately.
type resilientProvider struct {
	inner  Provider
	config retry.Config
	log    zerolog.Logger
}

// WithRetry wraps a provider with backoff retry for transient failures
func WithRetry(inner Provider, config retry.Config, log zerolog.Logger) Provider {
	return &resilientProvider{inner: inner, config: config, log: log}
}

func (p *resilientProvider) Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	var result *models.AnalysisResult

	err := retry.Do(ctx, p.config, p.log, Retryable, func() error {
		var callErr error
		result, callErr = p.inner.Analyze(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *resilientProvider) Name() string     { return p.inner.Name() }
func (p *resilientProvider) Identity() string { return p.inner.Identity() }
