package duplication

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitruves/dupsense/internal/language"
	"github.com/vitruves/dupsense/internal/preprocess"
)

func TestStructuralDetectorRenamedIdentifiers(t *testing.T) {
	cfg := testConfig(t)
	files := []preprocess.Content{
		process(t, cfg, "a.go", sumPositive),
		process(t, cfg, "b.go", countLarge),
	}

	dups, err := NewStructuralDetector(cfg, nil).Detect(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, dups, 1)

	d := dups[0]
	assert.Equal(t, Structural, d.Type)
	assert.GreaterOrEqual(t, d.SimilarityScore, cfg.StructuralSimilarityThreshold)
	assert.Less(t, d.SimilarityScore, 1.0)
	assert.Equal(t, []string{"a.go:1-11", "b.go:1-11"}, locations(d))
	assert.NotEqual(t, d.Blocks[0].ContentHash, d.Blocks[1].ContentHash)
	assertInvariants(t, dups)
}

func TestStructuralDetectorNeverScoresDistinctTextAsIdentical(t *testing.T) {
	cfg := testConfig(t)
	files := []preprocess.Content{
		process(t, cfg, "a.go", sumPositive),
		process(t, cfg, "b.go", sumNegative),
	}

	dups, err := NewStructuralDetector(cfg, nil).Detect(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, []string{"a.go:1-11", "b.go:1-11"}, locations(dups[0]))
	assert.GreaterOrEqual(t, dups[0].SimilarityScore, 0.8)
	assert.Less(t, dups[0].SimilarityScore, 1.0)

	cfg.StructuralSimilarityThreshold = 1.0
	dups, err = NewStructuralDetector(cfg, nil).Detect(context.Background(), files)
	require.NoError(t, err)
	assert.Empty(t, dups)
}

func TestStructuralDetectorLeavesIdenticalCopiesToExact(t *testing.T) {
	cfg := testConfig(t)
	files := []preprocess.Content{
		process(t, cfg, "a.go", sumPositive),
		process(t, cfg, "b.go", sumPositive),
	}

	dups, err := NewStructuralDetector(cfg, nil).Detect(context.Background(), files)
	require.NoError(t, err)
	assert.Empty(t, dups)
}

func TestStructuralDetectorThreshold(t *testing.T) {
	cfg := testConfig(t)
	cfg.StructuralSimilarityThreshold = 1.0
	files := []preprocess.Content{
		process(t, cfg, "a.go", sumPositive),
		process(t, cfg, "b.go", countLarge),
	}

	dups, err := NewStructuralDetector(cfg, nil).Detect(context.Background(), files)
	require.NoError(t, err)
	assert.Empty(t, dups)
}

func TestStructuralDetectorBucketCap(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxBucketSize = 1
	files := []preprocess.Content{
		process(t, cfg, "a.go", sumPositive),
		process(t, cfg, "b.go", countLarge),
	}

	dups, err := NewStructuralDetector(cfg, nil).Detect(context.Background(), files)
	require.NoError(t, err)
	assert.Empty(t, dups)
}

func TestStructuralDetectorCache(t *testing.T) {
	cfg := testConfig(t)
	files := []preprocess.Content{
		process(t, cfg, "a.go", sumPositive),
		process(t, cfg, "b.go", countLarge),
	}
	detector := NewStructuralDetector(cfg, nil)

	first, err := detector.Detect(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, CacheStats{Entries: 2, Misses: 2}, detector.CacheStats())

	second, err := detector.Detect(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, CacheStats{Entries: 2, Hits: 2, Misses: 2}, detector.CacheStats())

	detector.ClearCache()
	assert.Equal(t, CacheStats{}, detector.CacheStats())
}

func TestBuildStructuralPattern(t *testing.T) {
	lines := []string{
		"func load(path string) ([]Item, error) {",
		"	data, err := os.ReadFile(path)",
		"	if err != nil {",
		`		return nil, fmt.Errorf("read: %w", err)`,
		"	}",
		"	return parseItems(data)",
		"}",
	}

	p := BuildStructuralPattern(lines, language.Go)

	assert.Equal(t, []string{"if"}, p.ControlFlow)
	require.Len(t, p.Calls, 3)
	assert.Equal(t, CallSite{Name: "os.ReadFile", Kind: CallStdlib}, p.Calls[0])
	assert.Equal(t, CallSite{Name: "fmt.Errorf", Kind: CallStdlib}, p.Calls[1])
	assert.Equal(t, CallSite{Name: "parseItems", Kind: CallUser}, p.Calls[2])
	assert.Equal(t, []string{"short"}, p.Declarations)
	assert.Equal(t, NestingDepth{Braces: 2, Parens: 1, Brackets: 1}, p.Nesting)
	assert.True(t, p.HasStructure())
	assert.Greater(t, p.Complexity, clusterComplexity)
}

func TestStructuralSimilarityBounds(t *testing.T) {
	a := &structFeatures{lines: 10, keywords: 4, commentRatio: 0.1, identifiers: "a2b3c4", indentation: "01210"}
	b := &structFeatures{lines: 20, keywords: 0, commentRatio: 0.9, identifiers: "zzzzzzzz", indentation: "0"}

	assert.InDelta(t, 1.0, structuralSimilarity(a, a), 1e-9)
	sim := structuralSimilarity(a, b)
	assert.GreaterOrEqual(t, sim, 0.0)
	assert.Less(t, sim, 0.5)
	assert.GreaterOrEqual(t, similarityUpperBound(a, b), sim)
}
