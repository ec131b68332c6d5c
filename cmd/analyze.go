package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/codeargus/internal/ai"
	"github.com/codeargus/internal/ai/gemini"
	"github.com/codeargus/internal/ai/openai"
	"github.com/codeargus/internal/analysis"
	"github.com/codeargus/internal/cache"
	"github.com/codeargus/internal/changes"
	githubsource "github.com/codeargus/internal/changes/github"
	gitlabsource "github.com/codeargus/internal/changes/gitlab"
	"github.com/codeargus/internal/config"
	"github.com/codeargus/internal/localproject"
	"github.com/codeargus/internal/logging"
	"github.com/codeargus/internal/orchestrator"
	"github.com/codeargus/internal/report"
	"github.com/codeargus/internal/retry"
	"github.com/codeargus/pkg/models"
)

// AnalyzeCommand returns the analyze command
func AnalyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze open change sets with an AI provider",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "change",
				Usage: "Analyze a single change set by `ID` instead of all open ones",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Bypass the response cache for this run",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "List the change sets that would be analyzed without calling the provider",
			},
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Override the change source to use",
			},
			&cli.StringFlag{
				Name:    "ai",
				Aliases: []string{"a"},
				Usage:   "Override the AI provider to use",
			},
			&cli.IntFlag{
				Name:    "parallel",
				Aliases: []string{"p"},
				Usage:   "Override the number of change sets analyzed concurrently",
			},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply command-line overrides before validation
	if override := c.String("source"); override != "" {
		cfg.Source.Type = override
	}
	if override := c.String("ai"); override != "" {
		cfg.AI.Provider = override
	}
	if override := c.Int("parallel"); override > 0 {
		cfg.Parallel = override
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.New(cfg.Reporting.LogLevel)
	ctx := context.Background()

	source, err := createSource(cfg)
	if err != nil {
		return fmt.Errorf("failed to create change source: %w", err)
	}

	sets, err := fetchChangeSets(ctx, source, c.String("change"))
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		fmt.Println("No open change sets to analyze")
		return nil
	}

	if c.Bool("dry-run") {
		return printDryRun(sets)
	}

	provider, err := createAIProvider(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create AI provider: %w", err)
	}

	store, cleanup, err := createStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create cache store: %w", err)
	}
	defer cleanup()

	reader, err := localproject.NewReader(cfg.Project.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to open local project: %w", err)
	}

	service := analysis.NewService(store, cfg.Cache.Enabled, log)

	orch := orchestrator.New(provider, service, reader, orchestrator.Options{
		Strictness: models.Strictness(cfg.AI.Strictness),
		FocusAreas: cfg.AI.FocusAreas,
		Params: models.ProviderParams{
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
		},
		Timeout:     time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		Parallelism: cfg.Parallel,
	}, log)

	run := report.NewRun(source.Name(), cfg.Source.Repository, provider.Identity())
	run.Findings = orch.AnalyzeAll(ctx, sets)
	run.Finished = time.Now()

	writer := report.NewWriter(cfg.Reporting.OutputDir, log)
	dir, err := writer.Write(run)
	if err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}

	terminal := report.NewTerminal(cfg.Reporting.TerminalColors)
	fmt.Print(terminal.Render(run))
	fmt.Printf("Reports written to %s\n", dir)

	if _, _, failed := run.Counts(); failed == len(run.Findings) {
		return fmt.Errorf("all %d change sets failed to analyze", failed)
	}
	return nil
}

func fetchChangeSets(ctx context.Context, source changes.Source, changeID string) ([]models.ChangeSet, error) {
	if changeID != "" {
		cs, err := source.ChangeSet(ctx, changeID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch change set %s: %w", changeID, err)
		}
		return []models.ChangeSet{*cs}, nil
	}

	sets, err := source.OpenChangeSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open change sets: %w", err)
	}
	return sets, nil
}

func printDryRun(sets []models.ChangeSet) error {
	fmt.Printf("Would analyze %d change set(s):\n", len(sets))
	for _, cs := range sets {
		fmt.Printf("  #%s  %s (%s)\n", cs.ID, cs.Title, cs.Author)
	}
	return nil
}

func createSource(cfg *config.Config) (changes.Source, error) {
	switch cfg.Source.Type {
	case "github":
		return githubsource.New(githubsource.Config{
			Repository: cfg.Source.Repository,
			Token:      cfg.Source.Token,
			BaseURL:    cfg.Source.BaseURL,
		})
	case "gitlab":
		return gitlabsource.New(gitlabsource.Config{
			Repository: cfg.Source.Repository,
			Token:      cfg.Source.Token,
			BaseURL:    cfg.Source.BaseURL,
		})
	default:
		return nil, fmt.Errorf("unsupported change source: %s", cfg.Source.Type)
	}
}

// createAIProvider builds the configured backend and wraps it with the
// rate-limit and retry decorators, innermost first
func createAIProvider(cfg *config.Config, log zerolog.Logger) (ai.Provider, error) {
	var provider ai.Provider
	var err error

	switch cfg.AI.Provider {
	case "gemini":
		provider, err = gemini.New(gemini.Config{
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
		})
	case "openai":
		provider, err = openai.New(openai.Config{
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			BaseURL:     cfg.AI.BaseURL,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.AI.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AI.RequestsPerMinute > 0 {
		provider = ai.WithRateLimit(provider, cfg.AI.RequestsPerMinute)
	}
	provider = ai.WithRetry(provider, retry.LLMConfig(), log)

	return provider, nil
}

// createStore builds the configured cache backend. The cleanup function
// releases backend resources (the postgres pool) and is a no-op for the
// others.
func createStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (cache.Store, func(), error) {
	noop := func() {}

	if !cfg.Cache.Enabled {
		return nil, noop, nil
	}

	switch cfg.Cache.Backend {
	case "filesystem":
		store, err := cache.NewFilesystemStore(cfg.Cache.Directory, log)
		return store, noop, err
	case "memory":
		return cache.NewMemoryStore(), noop, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Cache.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return cache.NewPostgresStore(pool, log), pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}
