package duplication

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vitruves/dupsense/internal/language"
	"github.com/vitruves/dupsense/internal/logging"
	"github.com/vitruves/dupsense/internal/preprocess"
)

// FileReader loads file content. A failing read skips that file only.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// OSFileReader reads from the local file system.
type OSFileReader struct{}

func (OSFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ProgressFunc is called as files are loaded and detection stages finish.
type ProgressFunc func(stage string, done, total int)

const (
	StageLoad       = "load"
	StageExact      = "exact"
	StageStructural = "structural"
	StageCrossFile  = "cross_file"
	StageSuggest    = "suggest"
)

type Option func(*Engine)

// WithLanguageDetector replaces extension-based language detection.
func WithLanguageDetector(detector language.Detector) Option {
	return func(e *Engine) {
		if shared, ok := detector.(*language.Shared); ok {
			e.languages = shared
			return
		}
		e.languages = language.NewShared(detector)
	}
}

func WithFileReader(reader FileReader) Option {
	return func(e *Engine) { e.reader = reader }
}

func WithLogger(log *logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// Engine runs the full detection pipeline. Detector caches live as long as
// the engine. An Engine must not be used by concurrent DetectDuplications calls.
type Engine struct {
	config    Config
	languages *language.Shared
	reader    FileReader
	log       *logging.Logger
	progress  ProgressFunc

	exact       *ExactDetector
	structural  *StructuralDetector
	crossFile   *CrossFileDetector
	suggestions *SuggestionGenerator
}

// NewEngine validates cfg and prepares the detectors.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config:    cfg,
		languages: language.NewShared(nil),
		reader:    OSFileReader{},
		log:       logging.New(os.Stderr, false),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.exact = NewExactDetector(&e.config)
	e.structural = NewStructuralDetector(&e.config, e.log)
	e.crossFile = NewCrossFileDetector(&e.config, e.log)
	e.suggestions = NewSuggestionGenerator()
	return e, nil
}

// DetectDuplications is a one-shot run with a fresh Engine.
func DetectDuplications(ctx context.Context, cfg Config, projectPath string, files []string) (*Result, error) {
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return engine.DetectDuplications(ctx, projectPath, files)
}

// DetectDuplications filters, loads and preprocesses files, runs the enabled
// detectors and generates suggestions. Relative file paths are resolved
// against projectPath. Any detector error or cancellation fails the whole call.
func (e *Engine) DetectDuplications(ctx context.Context, projectPath string, files []string) (*Result, error) {
	started := time.Now()

	selected := e.selectFiles(projectPath, files)
	e.log.Info("Analyzing %d of %d files", len(selected), len(files))

	contents, skipped, totalLines, err := e.load(ctx, projectPath, selected)
	if err != nil {
		return nil, err
	}
	skipped += len(files) - len(selected)

	var dups []Duplication
	stages := []struct {
		name    string
		enabled bool
		detect  func(context.Context, []preprocess.Content) ([]Duplication, error)
	}{
		{StageExact, e.config.EnableExact, e.exact.Detect},
		{StageStructural, e.config.EnableStructural, e.structural.Detect},
		{StageCrossFile, e.config.EnableCrossFile, e.crossFile.Detect},
	}
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("detection cancelled: %w", err)
		}
		if stage.enabled {
			found, err := stage.detect(ctx, contents)
			if err != nil {
				return nil, fmt.Errorf("%s detection failed: %w", stage.name, err)
			}
			e.log.Debug("%s detection found %d duplications", stage.name, len(found))
			dups = append(dups, found...)
		}
		e.report(stage.name, i+1, len(stages))
	}
	dups = dedupeByID(dups)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("detection cancelled: %w", err)
	}
	suggestions := e.suggestions.Generate(dups)
	e.report(StageSuggest, 1, 1)

	result := &Result{
		ProjectPath:  projectPath,
		Duplications: dups,
		Suggestions:  suggestions,
		Summary: Summary{
			FilesAnalyzed:   len(contents),
			FilesSkipped:    skipped,
			TotalLines:      totalLines,
			ByRisk:          make(map[string]int),
			SuggestionCount: len(suggestions),
		},
	}
	for _, d := range dups {
		switch d.Type {
		case Exact:
			result.Summary.ExactCount++
		case Structural:
			result.Summary.StructuralCount++
		case CrossFile:
			result.Summary.CrossFileCount++
		}
		result.Summary.ByRisk[d.Risk.String()]++
	}
	if e.config.EnableCrossFile {
		result.Summary.CrossFile = e.crossFile.Stats()
	}
	result.Summary.Duration = time.Since(started)

	return result, nil
}

// load reads and preprocesses files one at a time. Unreadable, binary and
// unknown-language files are skipped.
func (e *Engine) load(ctx context.Context, projectPath string, files []string) ([]preprocess.Content, int, int, error) {
	opts := e.config.PreprocessOptions()
	contents := make([]preprocess.Content, 0, len(files))
	skipped, totalLines := 0, 0

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, 0, 0, fmt.Errorf("detection cancelled: %w", err)
		}
		e.report(StageLoad, i+1, len(files))

		data, err := e.reader.ReadFile(resolvePath(projectPath, file))
		if err != nil {
			e.log.Warn("Skipping %s: %v", file, err)
			skipped++
			continue
		}
		if bytes.IndexByte(data, 0) >= 0 {
			e.log.Debug("Skipping binary file %s", file)
			skipped++
			continue
		}

		lang := e.languages.Detect(file, data)
		if lang == language.Unknown {
			e.log.Debug("Skipping %s: unknown language", file)
			skipped++
			continue
		}

		content := preprocess.Process(file, string(data), lang, opts)
		totalLines += content.OriginalLineCount()
		contents = append(contents, content)
	}
	return contents, skipped, totalLines, nil
}

func (e *Engine) report(stage string, done, total int) {
	if e.progress != nil {
		e.progress(stage, done, total)
	}
}

func resolvePath(projectPath, file string) string {
	if projectPath == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(projectPath, file)
}

// selectFiles drops ignored and whitelisted files, keeping input order.
func (e *Engine) selectFiles(projectPath string, files []string) []string {
	selected := make([]string, 0, len(files))
	for _, file := range files {
		rel := relativePath(projectPath, file)
		switch {
		case matchesGlob(e.config.IgnorePatterns, rel):
			e.log.Debug("Ignoring %s", file)
		case whitelisted(e.config.Whitelist, rel):
			e.log.Debug("Whitelisted %s", file)
		default:
			selected = append(selected, file)
		}
	}
	return selected
}

func relativePath(projectPath, file string) string {
	if projectPath != "" && filepath.IsAbs(file) {
		if rel, err := filepath.Rel(projectPath, file); err == nil && !strings.HasPrefix(rel, "..") {
			file = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(file))
}

// matchesGlob matches rel against each pattern. Patterns without a slash
// also match the base name, so "*.pb.go" ignores generated files anywhere.
func matchesGlob(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := doublestar.Match(pattern, path.Base(rel)); ok {
				return true
			}
		}
	}
	return false
}

// whitelisted accepts globs and plain directory prefixes.
func whitelisted(entries []string, rel string) bool {
	if matchesGlob(entries, rel) {
		return true
	}
	for _, entry := range entries {
		prefix := strings.TrimSuffix(filepath.ToSlash(filepath.Clean(entry)), "/")
		if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
			return true
		}
	}
	return false
}

func dedupeByID(dups []Duplication) []Duplication {
	seen := make(map[string]bool, len(dups))
	out := dups[:0:0]
	for _, d := range dups {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}

// ClearCaches empties every detector cache.
func (e *Engine) ClearCaches() {
	e.exact.ClearCache()
	e.structural.ClearCache()
	e.crossFile.ClearCache()
}

// CacheStats reports cache usage per detector.
func (e *Engine) CacheStats() map[string]CacheStats {
	return map[string]CacheStats{
		StageExact:      e.exact.CacheStats(),
		StageStructural: e.structural.CacheStats(),
		StageCrossFile:  e.crossFile.CacheStats(),
	}
}

// Config returns a copy of the validated configuration.
func (e *Engine) Config() Config {
	return e.config
}
