// Package ai defines the provider-agnostic analysis capability and the
// shared response normalization every backend variant uses. Concrete
// variants live in subpackages (gemini, openai); selection happens once
// at startup, and everything downstream only sees the Provider interface.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codeargus/pkg/models"
)

// Provider represents an AI backend that can critique a code change set
type Provider interface {
	// Analyze submits one analysis request and returns the normalized
	// critique. Transport failures surface as *ProviderError.
	Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error)

	// Name returns the provider's name (e.g. "gemini")
	Name() string

	// Identity returns the provider/model pair that namespaces cached
	// responses, in "name/model" form
	Identity() string
}

// ErrorKind classifies provider failures for the orchestrator's
// partial-failure reporting
type ErrorKind string

// Provider failure kinds
const (
	KindAuth              ErrorKind = "AUTH"
	KindRateLimit         ErrorKind = "RATE_LIMIT"
	KindTimeout           ErrorKind = "TIMEOUT"
	KindMalformedResponse ErrorKind = "MALFORMED_RESPONSE"
	KindUnknown           ErrorKind = "UNKNOWN"
)

// ProviderError is the only error type Analyze returns. It never
// carries a partial result; parse trouble short of transport failure is
// absorbed into a degraded AnalysisResult instead.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AsProviderError unwraps err into a *ProviderError if one is present
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Classify wraps a transport error with its failure kind. Backends
// mostly surface failures as status text, so classification is by
// substring the same way retryability is judged.
func Classify(provider string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	kind := KindUnknown
	msg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "timeout"):
		kind = KindTimeout
	case strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "quota"):
		kind = KindRateLimit
	case strings.Contains(msg, "401") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "api key"):
		kind = KindAuth
	}

	return &ProviderError{Kind: kind, Provider: provider, Err: err}
}

// Retryable reports whether a failed call is worth repeating. Auth and
// malformed-response failures are deterministic; everything transient
// (rate limits, timeouts, unknown transport trouble) is retried.
func Retryable(err error) bool {
	pe, ok := AsProviderError(err)
	if !ok {
		return false
	}
	switch pe.Kind {
	case KindRateLimit, KindTimeout, KindUnknown:
		return true
	}
	return false
}
