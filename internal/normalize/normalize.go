// Package normalize prints files the way the duplication detectors see them.
package normalize

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/semaphore"

	"github.com/vitruves/dupsense/internal/language"
	"github.com/vitruves/dupsense/internal/logging"
	"github.com/vitruves/dupsense/internal/preprocess"
)

type Config struct {
	Root  string
	Files []string
	Jobs  int

	Preprocess     preprocess.Options
	AddLineNumbers bool
	AddHeaders     bool
	// Progress draws a progress bar on stderr.
	Progress bool
}

// Run preprocesses every file in parallel and writes the results to w in input order.
// Files that cannot be read or whose language is unknown are skipped with a warning.
func Run(ctx context.Context, cfg Config, w io.Writer, log *logging.Logger) error {
	if len(cfg.Files) == 0 {
		log.Warn("No files found matching criteria")
		return nil
	}
	log.Info("Normalizing %d files", len(cfg.Files))

	jobs := cfg.Jobs
	if jobs <= 0 {
		jobs = 1
	}

	var bar *progressbar.ProgressBar
	if cfg.Progress {
		bar = progressbar.NewOptions(len(cfg.Files),
			progressbar.OptionSetDescription("Processing files"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionClearOnFinish(),
		)
	}

	sem := semaphore.NewWeighted(int64(jobs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make([]string, len(cfg.Files))

	for i, file := range cfg.Files {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			out, err := processFile(cfg, file)
			if err != nil {
				log.Warn("Skipping %s: %v", file, err)
			}

			mu.Lock()
			results[i] = out
			if bar != nil {
				bar.Add(1)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if bar != nil {
		bar.Finish()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("normalize cancelled: %w", err)
	}

	for _, out := range results {
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
	return nil
}

func processFile(cfg Config, file string) (string, error) {
	path := file
	if cfg.Root != "" && !filepath.IsAbs(file) {
		path = filepath.Join(cfg.Root, file)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	lang := language.FromPath(file)
	if lang == language.Unknown {
		return "", fmt.Errorf("unknown language")
	}

	content := preprocess.Process(file, string(data), lang, cfg.Preprocess)
	return format(content, cfg), nil
}

// format renders one processed file. Line numbers refer to the original file.
func format(content preprocess.Content, cfg Config) string {
	var sb strings.Builder
	comment := "//"
	if content.Language.CommentStyle() == language.CommentHash {
		comment = "#"
	}

	if cfg.AddHeaders {
		fmt.Fprintf(&sb, "%s === %s ===\n", comment, content.FilePath)
		fmt.Fprintf(&sb, "%s Language: %s\n\n", comment, content.Language.DisplayName())
	}

	lines := content.Lines()
	for i, line := range lines {
		if cfg.AddLineNumbers {
			fmt.Fprintf(&sb, "%4d: %s\n", content.OriginalLine(i+1), line)
		} else {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	if cfg.AddHeaders {
		sb.WriteString("\n")
	}
	return sb.String()
}
