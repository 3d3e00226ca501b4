package duplication

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitruves/dupsense/internal/language"
	"github.com/vitruves/dupsense/internal/logging"
)

func scaleProject() mapReader {
	return mapReader{
		"/proj/a.go": "package alpha\n\n" + scaleFunc,
		"/proj/b.go": "package beta\n\n" + scaleFunc,
	}
}

func newTestEngine(t *testing.T, cfg Config, reader FileReader, opts ...Option) *Engine {
	t.Helper()
	cfg.Jobs = 2
	opts = append([]Option{WithFileReader(reader), WithLogger(logging.Discard())}, opts...)
	engine, err := NewEngine(cfg, opts...)
	require.NoError(t, err)
	return engine
}

func TestEngineFindsExactAndCrossFileCopies(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig(), scaleProject())

	result, err := engine.DetectDuplications(context.Background(), "/proj", []string{"a.go", "b.go"})
	require.NoError(t, err)
	assertInvariants(t, result.Duplications)

	exact := result.OfType(Exact)
	require.Len(t, exact, 1)
	assert.Equal(t, []string{"a.go:3-8", "b.go:3-8"}, locations(exact[0]))

	crossFile := result.OfType(CrossFile)
	require.NotEmpty(t, crossFile)
	assert.Equal(t, []string{"a.go:3-8", "b.go:3-8"}, locations(crossFile[0]))

	s := result.Summary
	assert.Equal(t, "/proj", result.ProjectPath)
	assert.Equal(t, 2, s.FilesAnalyzed)
	assert.Equal(t, 0, s.FilesSkipped)
	assert.Equal(t, 16, s.TotalLines)
	assert.Equal(t, 1, s.ExactCount)
	assert.Equal(t, len(crossFile), s.CrossFileCount)
	assert.Equal(t, len(result.Duplications), s.ExactCount+s.StructuralCount+s.CrossFileCount)
	assert.Equal(t, 1, s.CrossFile.FilePairsAnalyzed)
	assert.Equal(t, len(result.Suggestions), s.SuggestionCount)
	assert.NotEmpty(t, result.Suggestions)
}

func TestEngineRenamedIdentifiers(t *testing.T) {
	reader := mapReader{"/proj/a.go": sumPositive, "/proj/b.go": countLarge}
	engine := newTestEngine(t, DefaultConfig(), reader)

	result, err := engine.DetectDuplications(context.Background(), "/proj", []string{"a.go", "b.go"})
	require.NoError(t, err)
	assertInvariants(t, result.Duplications)

	structural := result.OfType(Structural)
	require.Len(t, structural, 1)
	assert.GreaterOrEqual(t, structural[0].SimilarityScore, 0.8)
	assert.Less(t, structural[0].SimilarityScore, 1.0)
	assert.Empty(t, result.OfType(Exact))
}

func TestEngineIsDeterministic(t *testing.T) {
	reader := mapReader{
		"/proj/a.go": sumPositive,
		"/proj/b.go": countLarge,
		"/proj/c.go": "package gamma\n\n" + scaleFunc + "var first = 1\n" + scaleFunc,
		"/proj/d.go": "package delta\n\n" + scaleFunc,
	}
	files := []string{"a.go", "b.go", "c.go", "d.go"}

	engine := newTestEngine(t, DefaultConfig(), reader)
	first, err := engine.DetectDuplications(context.Background(), "/proj", files)
	require.NoError(t, err)
	second, err := engine.DetectDuplications(context.Background(), "/proj", files)
	require.NoError(t, err)
	fresh, err := newTestEngine(t, DefaultConfig(), reader).DetectDuplications(context.Background(), "/proj", files)
	require.NoError(t, err)

	assert.Equal(t, first.Duplications, second.Duplications)
	assert.Equal(t, first.Suggestions, second.Suggestions)
	assert.Equal(t, first.Duplications, fresh.Duplications)
	assert.Equal(t, first.Suggestions, fresh.Suggestions)
	assertInvariants(t, first.Duplications)
}

func TestEngineSkipsUnreadableFiles(t *testing.T) {
	var buf bytes.Buffer
	engine := newTestEngine(t, DefaultConfig(), scaleProject(), WithLogger(logging.New(&buf, false)))

	result, err := engine.DetectDuplications(context.Background(), "/proj", []string{"a.go", "missing.go", "b.go"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Summary.FilesAnalyzed)
	assert.Equal(t, 1, result.Summary.FilesSkipped)
	assert.Len(t, result.OfType(Exact), 1)
	assert.Contains(t, buf.String(), "WARNING")
	assert.Contains(t, buf.String(), "missing.go")
}

func TestEngineFiltersFiles(t *testing.T) {
	reader := scaleProject()
	reader["/proj/gen/api.pb.go"] = "package gen\n\n" + scaleFunc
	reader["/proj/vendor/lib/c.go"] = "package lib\n\n" + scaleFunc
	reader["/proj/notes.txt"] = "package notes\n\n" + scaleFunc
	reader["/proj/blob.go"] = "package blob\x00\n"

	cfg := DefaultConfig()
	cfg.IgnorePatterns = []string{"*.pb.go"}
	cfg.Whitelist = []string{"vendor/"}

	var loaded int
	engine := newTestEngine(t, cfg, reader, WithProgress(func(stage string, done, total int) {
		if stage == StageLoad {
			loaded = total
		}
	}))

	files := []string{"a.go", "b.go", "gen/api.pb.go", "vendor/lib/c.go", "notes.txt", "blob.go"}
	result, err := engine.DetectDuplications(context.Background(), "/proj", files)
	require.NoError(t, err)

	assert.Equal(t, 4, loaded)
	assert.Equal(t, 2, result.Summary.FilesAnalyzed)
	assert.Equal(t, 4, result.Summary.FilesSkipped)
	for _, d := range result.Duplications {
		assert.ElementsMatch(t, []string{"a.go", "b.go"}, d.Files())
	}
}

func TestEngineDetectorToggles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableStructural = false
	cfg.EnableCrossFile = false
	engine := newTestEngine(t, cfg, scaleProject())

	result, err := engine.DetectDuplications(context.Background(), "/proj", []string{"a.go", "b.go"})
	require.NoError(t, err)

	require.Len(t, result.Duplications, 1)
	assert.Equal(t, Exact, result.Duplications[0].Type)
	assert.Equal(t, CrossFileStats{}, result.Summary.CrossFile)
}

func TestEngineProgressStages(t *testing.T) {
	var stages []string
	engine := newTestEngine(t, DefaultConfig(), scaleProject(), WithProgress(func(stage string, done, total int) {
		if done == total {
			stages = append(stages, stage)
		}
	}))

	_, err := engine.DetectDuplications(context.Background(), "/proj", []string{"a.go", "b.go"})
	require.NoError(t, err)
	assert.Equal(t, []string{StageLoad, StageCrossFile, StageSuggest}, stages)
}

type constantDetector struct{ lang language.Language }

func (d constantDetector) Detect(string, []byte) language.Language { return d.lang }

func TestEngineLanguageDetector(t *testing.T) {
	reader := mapReader{
		"/proj/one": "package alpha\n\n" + scaleFunc,
		"/proj/two": "package beta\n\n" + scaleFunc,
	}
	engine := newTestEngine(t, DefaultConfig(), reader, WithLanguageDetector(constantDetector{language.Go}))

	result, err := engine.DetectDuplications(context.Background(), "/proj", []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.FilesAnalyzed)
	assert.Len(t, result.OfType(Exact), 1)
}

func TestEngineCancelled(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig(), scaleProject())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.DetectDuplications(ctx, "/proj", []string{"a.go", "b.go"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IgnoreCode = []string{"("}

	_, err := NewEngine(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEngineCaches(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig(), scaleProject())
	_, err := engine.DetectDuplications(context.Background(), "/proj", []string{"a.go", "b.go"})
	require.NoError(t, err)

	stats := engine.CacheStats()
	assert.Len(t, stats, 3)
	assert.Positive(t, stats[StageExact].Entries)
	assert.Positive(t, stats[StageStructural].Entries)
	assert.Positive(t, stats[StageCrossFile].Entries)

	engine.ClearCaches()
	for name, s := range engine.CacheStats() {
		assert.Equal(t, CacheStats{}, s, name)
	}
}

func TestDetectDuplicationsFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package alpha\n\n"+scaleFunc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package beta\n\n"+scaleFunc), 0o644))

	cfg := DefaultConfig()
	cfg.EnableStructural = false
	result, err := DetectDuplications(context.Background(), cfg, dir, []string{"a.go", filepath.Join(dir, "b.go")})
	require.NoError(t, err)

	require.Len(t, result.OfType(Exact), 1)
	assert.Equal(t, 2, result.Summary.FilesAnalyzed)
}

func TestWhitelistAndGlobMatching(t *testing.T) {
	assert.True(t, matchesGlob([]string{"*.pb.go"}, "api/v1/service.pb.go"))
	assert.True(t, matchesGlob([]string{"**/testdata/**"}, "pkg/testdata/x.go"))
	assert.False(t, matchesGlob([]string{"cmd/*.go"}, "internal/cmd/root.go"))

	assert.True(t, whitelisted([]string{"third_party"}, "third_party/lib/a.go"))
	assert.True(t, whitelisted([]string{"legacy/*.go"}, "legacy/old.go"))
	assert.False(t, whitelisted([]string{"third_party"}, "third_party_tools/a.go"))

	assert.Equal(t, "pkg/a.go", relativePath("/proj", "/proj/pkg/a.go"))
	assert.Equal(t, "/elsewhere/a.go", relativePath("/proj", "/elsewhere/a.go"))
}
