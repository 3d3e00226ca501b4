package duplication

import (
	"fmt"
	"os"
	"regexp"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/vitruves/dupsense/internal/preprocess"
)

// Config controls one detection run. It is validated once by NewEngine and
// treated as read-only afterwards.
type Config struct {
	MinDuplicateLines             int     `yaml:"min_duplicate_lines"`
	MinDuplicateChars             int     `yaml:"min_duplicate_chars"`
	StructuralSimilarityThreshold float64 `yaml:"structural_similarity_threshold"`

	EnableExact      bool `yaml:"enable_exact_detection"`
	EnableStructural bool `yaml:"enable_structural_detection"`
	EnableCrossFile  bool `yaml:"enable_cross_file_detection"`

	// IgnorePatterns are doublestar globs matched against project-relative paths.
	IgnorePatterns []string `yaml:"ignore_patterns"`
	// IgnoreCode are regular expressions; matching lines are dropped before analysis.
	IgnoreCode []string `yaml:"ignore_code_patterns"`
	// Whitelist lists paths (globs or directory prefixes) that are never reported.
	Whitelist []string `yaml:"whitelist"`

	StripComments   bool `yaml:"strip_comments"`
	StripBlankLines bool `yaml:"strip_blank_lines"`
	StripImports    bool `yaml:"strip_imports"`

	// MaxExactWindowLines caps exact-match windows. Zero keeps the full
	// quadratic enumeration.
	MaxExactWindowLines int `yaml:"max_exact_window_lines"`
	// MaxBucketSize skips signature groups larger than this; zero disables the cap.
	MaxBucketSize int `yaml:"max_bucket_size"`
	// Jobs bounds per-file parallelism; zero means one worker per CPU.
	Jobs int `yaml:"jobs"`

	ignoreCode []*regexp.Regexp
}

// DefaultConfig returns the stock detection settings.
func DefaultConfig() Config {
	return Config{
		MinDuplicateLines:             5,
		MinDuplicateChars:             100,
		StructuralSimilarityThreshold: 0.8,
		EnableExact:                   true,
		EnableStructural:              true,
		EnableCrossFile:               true,
		StripComments:                 true,
		StripBlankLines:               true,
		StripImports:                  true,
		MaxBucketSize:                 1000,
		Jobs:                          runtime.NumCPU(),
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks thresholds and compiles every user-supplied pattern.
// Malformed globs or regular expressions are configuration errors.
func (c *Config) Validate() error {
	if c.MinDuplicateLines < 1 {
		return fmt.Errorf("%w: min_duplicate_lines must be at least 1, got %d", ErrInvalidConfig, c.MinDuplicateLines)
	}
	if c.MinDuplicateChars < 0 {
		return fmt.Errorf("%w: min_duplicate_chars must not be negative, got %d", ErrInvalidConfig, c.MinDuplicateChars)
	}
	if c.StructuralSimilarityThreshold < 0 || c.StructuralSimilarityThreshold > 1 {
		return fmt.Errorf("%w: structural_similarity_threshold must be within [0,1], got %.2f", ErrInvalidConfig, c.StructuralSimilarityThreshold)
	}
	if c.MaxExactWindowLines < 0 || c.MaxBucketSize < 0 || c.Jobs < 0 {
		return fmt.Errorf("%w: max_exact_window_lines, max_bucket_size and jobs must not be negative", ErrInvalidConfig)
	}

	for _, pattern := range append(append([]string{}, c.IgnorePatterns...), c.Whitelist...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: malformed glob pattern %q", ErrInvalidConfig, pattern)
		}
	}

	compiled := make([]*regexp.Regexp, 0, len(c.IgnoreCode))
	for _, expr := range c.IgnoreCode {
		re, err := regexp.Compile(expr)
		if err != nil {
			return fmt.Errorf("%w: ignore code pattern %q: %v", ErrInvalidConfig, expr, err)
		}
		compiled = append(compiled, re)
	}
	c.ignoreCode = compiled

	return nil
}

// PreprocessOptions returns the normalizations applied before detection.
// IgnoreCode is only populated after Validate.
func (c *Config) PreprocessOptions() preprocess.Options {
	return preprocess.Options{
		StripComments:   c.StripComments,
		StripBlankLines: c.StripBlankLines,
		StripImports:    c.StripImports,
		IgnoreCode:      c.ignoreCode,
	}
}

func (c *Config) jobs() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	return runtime.NumCPU()
}

// minNonBlankLines is the number of non-blank lines a window needs to be a candidate.
func (c *Config) minNonBlankLines() int {
	return (c.MinDuplicateLines + 1) / 2
}
