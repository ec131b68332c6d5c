package ai

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/codeargus/pkg/models"
)

// rateLimitedProvider throttles live calls so concurrent analyses share
// one requests-per-minute budget
type rateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps a provider with a requests-per-minute limiter.
// A non-positive limit disables throttling.
func WithRateLimit(inner Provider, requestsPerMinute int) Provider {
	if requestsPerMinute <= 0 {
		return inner
	}
	limiter := rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	return &rateLimitedProvider{inner: inner, limiter: limiter}
}

func (p *rateLimitedProvider) Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, Classify(p.inner.Name(), err)
	}
	return p.inner.Analyze(ctx, req)
}

func (p *rateLimitedProvider) Name() string     { return p.inner.Name() }
func (p *rateLimitedProvider) Identity() string { return p.inner.Identity() }
