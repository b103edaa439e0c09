package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigurationError reports an invalid option before a run starts.
// It is never recovered from mid-run; validation happens up front.
type ConfigurationError struct {
	Option string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Option, e.Reason)
}

// Config holds all configuration options for doppel.
type Config struct {
	// Similarity scoring settings
	Similarity SimilarityConfig `koanf:"similarity" toml:"similarity"`

	// Run scheduling and reporting settings
	Run RunConfig `koanf:"run" toml:"run"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// SimilarityConfig controls how entity pairs are scored.
type SimilarityConfig struct {
	FastScan          bool    `koanf:"fast_scan" toml:"fast_scan"`
	FastScanThreshold float64 `koanf:"fast_scan_threshold" toml:"fast_scan_threshold"`
	MinScore          float64 `koanf:"min_score" toml:"min_score"`
	// AttributeWeight and BodyWeight fix the blend between attribute
	// and body similarity. Both zero means weights follow the evidence
	// each side contributes.
	AttributeWeight   float64 `koanf:"attribute_weight" toml:"attribute_weight"`
	BodyWeight        float64 `koanf:"body_weight" toml:"body_weight"`
	SkipShortEntities bool    `koanf:"skip_short_entities" toml:"skip_short_entities"`
	ShortEntityTokens int     `koanf:"short_entity_tokens" toml:"short_entity_tokens"`
}

// RunConfig controls parallelism and result detail.
type RunConfig struct {
	WorkerCount     int  `koanf:"worker_count" toml:"worker_count"`
	ResidentLimit   int  `koanf:"resident_limit" toml:"resident_limit"`
	WeightReporting bool `koanf:"weight_reporting" toml:"weight_reporting"`
	Debug           bool `koanf:"debug" toml:"debug"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns" toml:"patterns"`
	Extensions []string `koanf:"extensions" toml:"extensions"`
	Dirs       []string `koanf:"dirs" toml:"dirs"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color  bool   `koanf:"color" toml:"color"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Similarity: SimilarityConfig{
			FastScan:          true,
			FastScanThreshold: 0.5,
			MinScore:          0.3,
			SkipShortEntities: false,
			ShortEntityTokens: 3,
		},
		Run: RunConfig{
			WorkerCount:   0, // 2x NumCPU
			ResidentLimit: 0, // unbounded
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"test_*.py",
				"*_test.py",
				"*Test.java",
			},
			Extensions: []string{
				".class",
				".pyc",
			},
			Dirs: []string{
				".git",
				"venv",
				".venv",
				"__pycache__",
				"target",
				"build",
				"out",
			},
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file and validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() (*Config, error) {
	configNames := []string{
		"doppel.toml",
		"doppel.yaml",
		"doppel.yml",
		"doppel.json",
		".doppel.toml",
		".doppel.yaml",
		".doppel.yml",
		".doppel.json",
	}

	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			return Load(name)
		}
	}

	return DefaultConfig(), nil
}

// Validate checks option ranges. It returns a ConfigurationError for
// the first violation found.
func (c *Config) Validate() error {
	s := c.Similarity
	if s.FastScanThreshold < 0 || s.FastScanThreshold > 1 {
		return &ConfigurationError{
			Option: "similarity.fast_scan_threshold",
			Reason: fmt.Sprintf("must be in [0, 1], got %g", s.FastScanThreshold),
		}
	}
	if s.MinScore < 0 || s.MinScore > 1 {
		return &ConfigurationError{
			Option: "similarity.min_score",
			Reason: fmt.Sprintf("must be in [0, 1], got %g", s.MinScore),
		}
	}
	if s.AttributeWeight < 0 || s.BodyWeight < 0 {
		return &ConfigurationError{
			Option: "similarity.attribute_weight",
			Reason: "weights must not be negative",
		}
	}
	// One-sided fixed weights would silently discard a whole evidence
	// channel; require both or neither.
	if (s.AttributeWeight > 0) != (s.BodyWeight > 0) {
		return &ConfigurationError{
			Option: "similarity.body_weight",
			Reason: "attribute_weight and body_weight must be set together",
		}
	}
	if s.ShortEntityTokens < 0 {
		return &ConfigurationError{
			Option: "similarity.short_entity_tokens",
			Reason: "must not be negative",
		}
	}

	if c.Run.WorkerCount < 0 {
		return &ConfigurationError{
			Option: "run.worker_count",
			Reason: "must not be negative",
		}
	}
	// A limit of 1 can never hold both sides of a pair.
	if c.Run.ResidentLimit == 1 || c.Run.ResidentLimit < 0 {
		return &ConfigurationError{
			Option: "run.resident_limit",
			Reason: "must be 0 (unbounded) or at least 2",
		}
	}

	switch c.Output.Format {
	case "text", "json", "markdown", "toon":
	default:
		return &ConfigurationError{
			Option: "output.format",
			Reason: fmt.Sprintf("unknown format %q", c.Output.Format),
		}
	}
	return nil
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	ext := filepath.Ext(path)
	for _, excludeExt := range c.Exclude.Extensions {
		if ext == excludeExt {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
