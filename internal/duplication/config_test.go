package duplication

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.MinDuplicateLines)
	assert.Equal(t, 100, cfg.MinDuplicateChars)
	assert.Equal(t, 0.8, cfg.StructuralSimilarityThreshold)
	assert.True(t, cfg.EnableExact && cfg.EnableStructural && cfg.EnableCrossFile)
	assert.Equal(t, 3, cfg.minNonBlankLines())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero min lines", func(c *Config) { c.MinDuplicateLines = 0 }},
		{"negative min chars", func(c *Config) { c.MinDuplicateChars = -1 }},
		{"threshold above one", func(c *Config) { c.StructuralSimilarityThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.StructuralSimilarityThreshold = -0.1 }},
		{"negative jobs", func(c *Config) { c.Jobs = -2 }},
		{"malformed glob", func(c *Config) { c.IgnorePatterns = []string{"src/[abc"} }},
		{"malformed whitelist", func(c *Config) { c.Whitelist = []string{"{vendor"} }},
		{"malformed regex", func(c *Config) { c.IgnoreCode = []string{"log\\.(debug"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfigCompilesIgnoreCode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IgnoreCode = []string{`^\s*log\.`}
	require.NoError(t, cfg.Validate())

	opts := cfg.PreprocessOptions()
	require.Len(t, opts.IgnoreCode, 1)
	assert.True(t, opts.IgnoreCode[0].MatchString(`	log.Printf("x")`))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".dupsense.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
min_duplicate_lines: 8
structural_similarity_threshold: 0.9
enable_cross_file_detection: false
ignore_patterns:
  - "**/*_test.go"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MinDuplicateLines)
	assert.Equal(t, 100, cfg.MinDuplicateChars)
	assert.Equal(t, 0.9, cfg.StructuralSimilarityThreshold)
	assert.False(t, cfg.EnableCrossFile)
	assert.True(t, cfg.EnableExact)
	assert.Equal(t, []string{"**/*_test.go"}, cfg.IgnorePatterns)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("structural_similarity_threshold: 3\n"), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
