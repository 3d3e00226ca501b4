package duplication

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitruves/dupsense/internal/language"
	"github.com/vitruves/dupsense/internal/preprocess"
)

// scaleFunc is a six-line Go function used as a verbatim copy in fixtures.
const scaleFunc = `func scale(values []float64, factor float64) []float64 {
	out := make([]float64, len(values))
	for i := range values { out[i] = values[i] * factor }
	sort.Float64s(out)
	return out
}
`

const sumPositive = `package alpha

func sumPositive(values []int) int {
	total := 0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	return total
}
`

const countLarge = `package beta

func countLarge(items []int) int {
	count := 0
	for _, item := range items {
		if item > 10 {
			count += item
		}
	}
	return count
}
`

// sumNegative renames every identifier of sumPositive while keeping first
// letters and lengths, so only the text itself tells the copies apart.
const sumNegative = `package alpha

func sumNegative(vector []int) int {
	tally := 0
	for _, v := range vector {
		if v > 0 {
			tally += v
		}
	}
	return tally
}
`

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Jobs = 2
	require.NoError(t, cfg.Validate())
	return &cfg
}

func process(t *testing.T, cfg *Config, path, src string) preprocess.Content {
	t.Helper()
	return preprocess.Process(path, src, language.FromPath(path), cfg.PreprocessOptions())
}

// mapReader serves file content from memory; missing paths fail to read.
type mapReader map[string]string

func (m mapReader) ReadFile(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return []byte(content), nil
}

func (m mapReader) paths() []string {
	var out []string
	for p := range m {
		out = append(out, p)
	}
	return sortedStrings(out)
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func assertInvariants(t *testing.T, dups []Duplication) {
	t.Helper()
	for _, d := range dups {
		assert.GreaterOrEqual(t, len(d.Blocks), 2, d.ID)
		assert.GreaterOrEqual(t, d.SimilarityScore, 0.0, d.ID)
		assert.LessOrEqual(t, d.SimilarityScore, 1.0, d.ID)
		if d.Type == Exact {
			assert.Equal(t, 1.0, d.SimilarityScore, d.ID)
		}
		if d.Type == CrossFile {
			assert.GreaterOrEqual(t, len(d.Files()), 2, d.ID)
		}
		for _, b := range d.Blocks {
			assert.GreaterOrEqual(t, b.EndLine, b.StartLine, b.String())
		}
	}
}

func locations(d Duplication) []string {
	out := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		out[i] = b.String()
	}
	return out
}

func joinLines(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}
