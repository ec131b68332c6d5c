package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/codeargus/pkg/models"
)

// ConfigError indicates invalid or missing settings. It is the only
// error class that aborts a run before any change set is processed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %s", e.Reason)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// SourceConfig selects and configures the change source (forge)
type SourceConfig struct {
	Type       string `koanf:"type"`
	Repository string `koanf:"repository"`
	Token      string `koanf:"token"`
	BaseURL    string `koanf:"base_url"`
}

// AIConfig selects and configures the analysis provider
type AIConfig struct {
	Provider          string   `koanf:"provider"`
	Model             string   `koanf:"model"`
	APIKey            string   `koanf:"api_key"`
	BaseURL           string   `koanf:"base_url"`
	Temperature       float64  `koanf:"temperature"`
	MaxTokens         int      `koanf:"max_tokens"`
	Strictness        string   `koanf:"strictness"`
	FocusAreas        []string `koanf:"focus_areas"`
	TimeoutSeconds    int      `koanf:"timeout_seconds"`
	RequestsPerMinute int      `koanf:"requests_per_minute"`
}

// CacheConfig configures the analysis response cache
type CacheConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Backend   string `koanf:"backend"`
	Directory string `koanf:"directory"`
	// DatabaseURL is only used when backend is "postgres"
	DatabaseURL string `koanf:"database_url"`
}

// ProjectConfig points at the local baseline checkout
type ProjectConfig struct {
	LocalPath string `koanf:"local_path"`
}

// ReportingConfig configures report output
type ReportingConfig struct {
	OutputDir      string `koanf:"output_dir"`
	TerminalColors bool   `koanf:"terminal_colors"`
	LogLevel       string `koanf:"log_level"`
}

// Config represents the application configuration
type Config struct {
	Source    SourceConfig    `koanf:"source"`
	AI        AIConfig        `koanf:"ai"`
	Project   ProjectConfig   `koanf:"project"`
	Cache     CacheConfig     `koanf:"cache"`
	Reporting ReportingConfig `koanf:"reporting"`
	Parallel  int             `koanf:"parallel"`
}

// LoadConfig loads the configuration from a TOML file, layered under
// CODEARGUS_ environment variables
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"source.type":            "github",
		"ai.provider":            "gemini",
		"ai.temperature":         0.4,
		"ai.max_tokens":          8192,
		"ai.strictness":          "medium",
		"ai.timeout_seconds":     120,
		"ai.requests_per_minute": 30,
		"cache.enabled":          true,
		"cache.backend":          "filesystem",
		"cache.directory":        ".codeargus_cache",
		"project.local_path":     ".",
		"reporting.output_dir":   "analysis_results",
		"reporting.terminal_colors": true,
		"reporting.log_level":       "info",
		"parallel":                  2,
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("error loading %s: %v", configPath, err)}
		}
	} else {
		// Try default locations
		defaultPaths := []string{"./codeargus.toml", "$HOME/.codeargus.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix CODEARGUS_
	k.Load(env.Provider("CODEARGUS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "CODEARGUS_")), "_", ".", 1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("error unmarshalling config: %v", err)}
	}

	// Resolve env: indirection for secrets
	if err := resolveSecret(&config.Source.Token, "source.token"); err != nil {
		return nil, err
	}
	if err := resolveSecret(&config.AI.APIKey, "ai.api_key"); err != nil {
		return nil, err
	}
	if err := resolveSecret(&config.Cache.DatabaseURL, "cache.database_url"); err != nil {
		return nil, err
	}

	return &config, nil
}

// resolveSecret expands values of the form "env:VAR_NAME" from the
// process environment, so tokens never have to live in the config file
func resolveSecret(value *string, field string) error {
	const prefix = "env:"
	if !strings.HasPrefix(*value, prefix) {
		return nil
	}
	name := strings.TrimPrefix(*value, prefix)
	resolved, ok := os.LookupEnv(name)
	if !ok {
		return &ConfigError{Field: field, Reason: fmt.Sprintf("environment variable %s not set", name)}
	}
	*value = resolved
	return nil
}

// Validate validates the configuration
func Validate(config *Config) error {
	switch config.Source.Type {
	case "github", "gitlab":
	default:
		return &ConfigError{Field: "source.type", Reason: fmt.Sprintf("unsupported change source %q", config.Source.Type)}
	}
	if config.Source.Repository == "" {
		return &ConfigError{Field: "source.repository", Reason: "repository is required"}
	}
	if config.Source.Token == "" {
		return &ConfigError{Field: "source.token", Reason: "token is required"}
	}

	switch config.AI.Provider {
	case "gemini", "openai":
	default:
		return &ConfigError{Field: "ai.provider", Reason: fmt.Sprintf("unsupported AI provider %q", config.AI.Provider)}
	}
	if config.AI.APIKey == "" && config.AI.BaseURL == "" {
		// A missing key is only acceptable for local OpenAI-compatible endpoints
		return &ConfigError{Field: "ai.api_key", Reason: "api_key is required"}
	}
	if config.AI.Model == "" {
		return &ConfigError{Field: "ai.model", Reason: "model is required"}
	}
	if !models.ValidStrictness(models.Strictness(config.AI.Strictness)) {
		return &ConfigError{Field: "ai.strictness", Reason: fmt.Sprintf("unknown strictness %q", config.AI.Strictness)}
	}
	if config.AI.TimeoutSeconds <= 0 {
		return &ConfigError{Field: "ai.timeout_seconds", Reason: "must be positive"}
	}

	switch config.Cache.Backend {
	case "filesystem", "memory":
	case "postgres":
		if config.Cache.Enabled && config.Cache.DatabaseURL == "" {
			return &ConfigError{Field: "cache.database_url", Reason: "required for postgres backend"}
		}
	default:
		return &ConfigError{Field: "cache.backend", Reason: fmt.Sprintf("unsupported backend %q", config.Cache.Backend)}
	}

	if config.Project.LocalPath == "" {
		return &ConfigError{Field: "project.local_path", Reason: "local_path is required"}
	}
	if config.Parallel < 1 {
		return &ConfigError{Field: "parallel", Reason: "must be at least 1"}
	}

	return nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	// Create sample configuration
	sampleConfig := `# CodeArgus Configuration

[source]
type = "github"
repository = "owner/repo"
token = "env:GITHUB_TOKEN"
# base_url = "https://github.example.com/api/v3/"

[ai]
provider = "gemini"
model = "gemini-2.5-flash"
api_key = "env:GEMINI_API_KEY"
temperature = 0.4
max_tokens = 8192
strictness = "medium"
focus_areas = ["code_quality", "security", "test_coverage"]
timeout_seconds = 120
requests_per_minute = 30

[project]
local_path = "."

[cache]
enabled = true
backend = "filesystem"
directory = ".codeargus_cache"

[reporting]
output_dir = "analysis_results"
terminal_colors = true
log_level = "info"

parallel = 2
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}
