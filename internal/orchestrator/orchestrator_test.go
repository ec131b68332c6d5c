package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeargus/internal/ai"
	"github.com/codeargus/internal/analysis"
	"github.com/codeargus/internal/cache"
	"github.com/codeargus/internal/localproject"
	"github.com/codeargus/pkg/models"
)

// stubProvider returns scripted results keyed by change id
type stubProvider struct {
	mu       sync.Mutex
	requests []*models.AnalysisRequest
	results  map[string]*models.AnalysisResult
	errs     map[string]error
	delay    time.Duration
}

func (p *stubProvider) Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ai.Classify("stub", ctx.Err())
		case <-time.After(p.delay):
		}
	}

	if err, ok := p.errs[req.ChangeID]; ok {
		return nil, err
	}
	if result, ok := p.results[req.ChangeID]; ok {
		return result, nil
	}
	return &models.AnalysisResult{Summary: "ok", Confidence: models.ConfidenceNormal}, nil
}

func (p *stubProvider) Name() string     { return "stub" }
func (p *stubProvider) Identity() string { return "stub/model" }

func (p *stubProvider) requestFor(changeID string) *models.AnalysisRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, req := range p.requests {
		if req.ChangeID == changeID {
			return req
		}
	}
	return nil
}

func newOrchestrator(t *testing.T, provider ai.Provider, reader *localproject.Reader, opts Options) *Orchestrator {
	t.Helper()
	service := analysis.NewService(cache.NewMemoryStore(), true, zerolog.Nop())
	return New(provider, service, reader, opts, zerolog.Nop())
}

func changeSet(id, diff string) models.ChangeSet {
	return models.ChangeSet{ID: id, Title: "change " + id, DiffText: diff}
}

const trivialDiff = `diff --git a/main.go b/main.go
index 1111111..2222222 100644
--- a/main.go
+++ b/main.go
@@ -1,2 +1,3 @@
 package main
+// touched
 func main() {}
`

func TestAnalyzeAllPartialFailureIsolation(t *testing.T) {
	provider := &stubProvider{
		results: map[string]*models.AnalysisResult{
			"1": {Summary: "fine", Confidence: models.ConfidenceNormal},
			"3": {Summary: "also fine", Confidence: models.ConfidenceNormal},
		},
		errs: map[string]error{
			"2": &ai.ProviderError{Kind: ai.KindRateLimit, Provider: "stub"},
		},
	}
	orch := newOrchestrator(t, provider, nil, Options{Strictness: models.StrictnessMedium, Parallelism: 3})

	findings := orch.AnalyzeAll(context.Background(), []models.ChangeSet{
		changeSet("1", trivialDiff),
		changeSet("2", trivialDiff),
		changeSet("3", trivialDiff),
	})

	require.Len(t, findings, 3)
	assert.Equal(t, models.StatusAnalyzed, findings[0].Status)
	assert.Equal(t, models.StatusFailed, findings[1].Status)
	assert.Equal(t, string(ai.KindRateLimit), findings[1].ErrorKind)
	assert.Nil(t, findings[1].Result)
	assert.Equal(t, models.StatusAnalyzed, findings[2].Status)
}

func TestAnalyzeAllPreservesInputOrder(t *testing.T) {
	provider := &stubProvider{}
	orch := newOrchestrator(t, provider, nil, Options{Strictness: models.StrictnessMedium, Parallelism: 4})

	sets := []models.ChangeSet{
		changeSet("a", trivialDiff),
		changeSet("b", trivialDiff),
		changeSet("c", trivialDiff),
	}
	findings := orch.AnalyzeAll(context.Background(), sets)

	require.Len(t, findings, 3)
	for i, cs := range sets {
		assert.Equal(t, cs.ID, findings[i].ChangeID)
	}
}

func TestAnalyzeChangeDegradedConfidence(t *testing.T) {
	provider := &stubProvider{
		results: map[string]*models.AnalysisResult{
			"1": {Summary: "repaired", Confidence: models.ConfidenceDegraded},
		},
	}
	orch := newOrchestrator(t, provider, nil, Options{Strictness: models.StrictnessMedium})

	finding := orch.AnalyzeChange(context.Background(), changeSet("1", trivialDiff))

	assert.Equal(t, models.StatusDegraded, finding.Status)
	assert.True(t, finding.Degraded())
	require.NotNil(t, finding.Result)
	assert.Equal(t, "repaired", finding.Result.Summary)
}

func TestAnalyzeChangeTimeout(t *testing.T) {
	provider := &stubProvider{delay: 500 * time.Millisecond}
	orch := newOrchestrator(t, provider, nil, Options{
		Strictness: models.StrictnessMedium,
		Timeout:    20 * time.Millisecond,
	})

	start := time.Now()
	finding := orch.AnalyzeChange(context.Background(), changeSet("1", trivialDiff))

	assert.Less(t, time.Since(start), 400*time.Millisecond, "the timeout must bound the call")
	assert.Equal(t, models.StatusFailed, finding.Status)
	assert.Equal(t, string(ai.KindTimeout), finding.ErrorKind)
}

func TestFocusAreaFilteringWithoutTests(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	reader, err := localproject.NewReader(dir)
	require.NoError(t, err)

	provider := &stubProvider{}
	orch := newOrchestrator(t, provider, reader, Options{
		Strictness: models.StrictnessMedium,
		FocusAreas: []string{"security", models.FocusAreaTestCoverage},
	})

	finding := orch.AnalyzeChange(context.Background(), changeSet("1", trivialDiff))

	assert.False(t, finding.Heuristics.HasTests)
	req := provider.requestFor("1")
	require.NotNil(t, req)
	assert.Equal(t, []string{"security"}, req.FocusAreas,
		"test_coverage must be dropped when the project has no tests")
}

func TestFocusAreaKeptWithTests(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main_test.go"), []byte("package main\n"), 0o644))
	reader, err := localproject.NewReader(dir)
	require.NoError(t, err)

	provider := &stubProvider{}
	orch := newOrchestrator(t, provider, reader, Options{
		Strictness: models.StrictnessMedium,
		FocusAreas: []string{"security", models.FocusAreaTestCoverage},
	})

	finding := orch.AnalyzeChange(context.Background(), changeSet("1", trivialDiff))

	assert.True(t, finding.Heuristics.HasTests)
	req := provider.requestFor("1")
	require.NotNil(t, req)
	assert.Equal(t, []string{"security", models.FocusAreaTestCoverage}, req.FocusAreas)
}

func TestGatherContextReadsTouchedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	reader, err := localproject.NewReader(dir)
	require.NoError(t, err)

	provider := &stubProvider{}
	orch := newOrchestrator(t, provider, reader, Options{Strictness: models.StrictnessMedium})

	finding := orch.AnalyzeChange(context.Background(), changeSet("1", trivialDiff))

	assert.Equal(t, models.StatusAnalyzed, finding.Status)
	req := provider.requestFor("1")
	require.NotNil(t, req)
	require.Len(t, req.LocalContext, 1)
	assert.Equal(t, "main.go", req.LocalContext[0].Path)
	assert.Equal(t, "package main\n", req.LocalContext[0].Content)
}

func TestGatherContextUnreadableFileDegrades(t *testing.T) {
	dir := t.TempDir()
	// main.go named by the diff does not exist in the checkout
	reader, err := localproject.NewReader(dir)
	require.NoError(t, err)

	provider := &stubProvider{}
	orch := newOrchestrator(t, provider, reader, Options{Strictness: models.StrictnessMedium})

	finding := orch.AnalyzeChange(context.Background(), changeSet("1", trivialDiff))

	assert.Equal(t, models.StatusDegraded, finding.Status,
		"missing context must degrade, not fail, the analysis")
	require.NotEmpty(t, finding.Notes)
	assert.Contains(t, finding.Notes[0], "main.go")

	req := provider.requestFor("1")
	require.NotNil(t, req)
	assert.Empty(t, req.LocalContext)
}

func TestGatherContextCapsFileSize(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("x", maxContextFileBytes+1024)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(big), 0o644))
	reader, err := localproject.NewReader(dir)
	require.NoError(t, err)

	provider := &stubProvider{}
	orch := newOrchestrator(t, provider, reader, Options{Strictness: models.StrictnessMedium})

	finding := orch.AnalyzeChange(context.Background(), changeSet("1", trivialDiff))

	req := provider.requestFor("1")
	require.NotNil(t, req)
	require.Len(t, req.LocalContext, 1)
	assert.Len(t, req.LocalContext[0].Content, maxContextFileBytes)
	assert.Equal(t, models.StatusDegraded, finding.Status)
	assert.Contains(t, strings.Join(finding.Notes, " "), "truncated")
}
