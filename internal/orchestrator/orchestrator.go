// Package orchestrator runs the full review pipeline over a batch of
// change sets: gather local context, derive heuristics, evaluate each
// change through the cached analysis service, and collect per-change
// outcomes without letting one failure sink the batch.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/codeargus/internal/ai"
	"github.com/codeargus/internal/analysis"
	"github.com/codeargus/internal/diff"
	"github.com/codeargus/internal/localproject"
	"github.com/codeargus/pkg/models"
)

const (
	// maxContextFileBytes caps a single baseline file sent as context
	maxContextFileBytes = 32 * 1024
	// maxContextTotalBytes caps the combined context payload
	maxContextTotalBytes = 128 * 1024
)

// Options configure a pipeline run
type Options struct {
	Strictness  models.Strictness
	FocusAreas  []string
	Params      models.ProviderParams
	Timeout     time.Duration // per-change-set budget, 0 means none
	Parallelism int
}

// Orchestrator evaluates change sets against an AI provider
type Orchestrator struct {
	provider ai.Provider
	service  *analysis.Service
	reader   *localproject.Reader // nil when no local checkout is configured
	parser   *diff.Parser
	opts     Options
	log      zerolog.Logger
}

// New creates an orchestrator. reader may be nil; analyses then run
// without local context and without test-coverage heuristics.
func New(provider ai.Provider, service *analysis.Service, reader *localproject.Reader, opts Options, log zerolog.Logger) *Orchestrator {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return &Orchestrator{
		provider: provider,
		service:  service,
		reader:   reader,
		parser:   diff.NewParser(),
		opts:     opts,
		log:      log,
	}
}

// AnalyzeAll evaluates every change set with bounded parallelism and
// returns one finding per input, in input order. A provider failure on
// one change set never aborts the others.
func (o *Orchestrator) AnalyzeAll(ctx context.Context, sets []models.ChangeSet) []models.AggregateFinding {
	findings := make([]models.AggregateFinding, len(sets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Parallelism)

	for i, cs := range sets {
		i, cs := i, cs
		g.Go(func() error {
			findings[i] = o.AnalyzeChange(gctx, cs)
			return nil
		})
	}

	// workers report failures through findings, never through errors
	_ = g.Wait()

	return findings
}

// AnalyzeChange evaluates one change set and always returns a finding:
// analyzed on a clean result, degraded when the provider answer needed
// repair or context was incomplete, failed when the provider gave up.
func (o *Orchestrator) AnalyzeChange(ctx context.Context, cs models.ChangeSet) models.AggregateFinding {
	finding := models.AggregateFinding{
		ChangeID: cs.ID,
		Title:    cs.Title,
		URL:      cs.URL,
	}

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	heuristics := o.deriveHeuristics()
	finding.Heuristics = heuristics

	contextFiles, notes := o.gatherContext(cs)
	finding.Notes = notes

	req := &models.AnalysisRequest{
		ChangeID:     cs.ID,
		DiffText:     cs.DiffText,
		LocalContext: contextFiles,
		FocusAreas:   o.effectiveFocusAreas(heuristics),
		Strictness:   o.opts.Strictness,
		Params:       o.opts.Params,
	}

	result, err := o.service.Evaluate(ctx, req, o.provider)
	if err != nil {
		finding.Status = models.StatusFailed
		finding.ErrorKind = errorKind(err)
		finding.Notes = append(finding.Notes, err.Error())
		o.log.Error().Err(err).Str("change", cs.ID).Str("kind", finding.ErrorKind).Msg("analysis failed")
		return finding
	}

	finding.Result = result
	if result.Confidence == models.ConfidenceDegraded || len(notes) > 0 {
		finding.Status = models.StatusDegraded
	} else {
		finding.Status = models.StatusAnalyzed
	}

	o.log.Info().
		Str("change", cs.ID).
		Str("status", string(finding.Status)).
		Int("findings", len(result.Findings)).
		Msg("change set analyzed")

	return finding
}

// effectiveFocusAreas drops the test-coverage focus when the project
// shows no sign of a test suite, so the provider is not asked to
// review coverage that cannot exist
func (o *Orchestrator) effectiveFocusAreas(h models.Heuristics) []string {
	areas := make([]string, 0, len(o.opts.FocusAreas))
	for _, area := range o.opts.FocusAreas {
		if area == models.FocusAreaTestCoverage && !h.HasTests {
			continue
		}
		areas = append(areas, area)
	}
	return areas
}

func (o *Orchestrator) deriveHeuristics() models.Heuristics {
	if o.reader == nil {
		return models.Heuristics{}
	}
	return models.Heuristics{
		HasTests:          o.reader.HasTestIndicators(),
		TestFrameworkHint: o.reader.TestFrameworkHint(),
	}
}

// gatherContext reads the baseline content of files the diff touches,
// subject to per-file and total size caps. Unreadable files become
// notes, not failures.
func (o *Orchestrator) gatherContext(cs models.ChangeSet) ([]models.ContextFile, []string) {
	if o.reader == nil {
		return nil, nil
	}

	paths, err := o.parser.ChangedPaths(cs.DiffText)
	if err != nil {
		o.log.Warn().Err(err).Str("change", cs.ID).Msg("diff parse failed, proceeding without local context")
		return nil, []string{"diff could not be parsed for context selection: " + err.Error()}
	}

	var files []models.ContextFile
	var notes []string
	total := 0

	for _, path := range paths {
		if total >= maxContextTotalBytes {
			notes = append(notes, "context truncated: total size cap reached")
			break
		}

		content, err := o.reader.ReadFile(path)
		if err != nil {
			var ctxErr *localproject.ContextError
			if errors.As(err, &ctxErr) {
				o.log.Debug().Str("path", path).Err(ctxErr.Err).Msg("context file unavailable")
				notes = append(notes, ctxErr.Error())
				continue
			}
			notes = append(notes, err.Error())
			continue
		}

		if len(content) > maxContextFileBytes {
			content = content[:maxContextFileBytes]
			notes = append(notes, "context truncated: "+path)
		}
		if total+len(content) > maxContextTotalBytes {
			content = content[:maxContextTotalBytes-total]
			notes = append(notes, "context truncated: "+path)
		}

		files = append(files, models.ContextFile{Path: path, Content: content})
		total += len(content)
	}

	return files, notes
}

// errorKind maps an analysis failure to its reportable kind
func errorKind(err error) string {
	if provErr, ok := ai.AsProviderError(err); ok {
		return string(provErr.Kind)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(ai.KindTimeout)
	}
	return string(ai.KindUnknown)
}
