package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vitruves/dupsense/internal/language"
)

// DefaultExcludes are directory names never worth scanning for duplicates.
var DefaultExcludes = []string{".git", ".hg", ".svn", "node_modules", "vendor", "target", "dist", "build", "__pycache__", ".venv"}

// CollectOptions controls which files CollectFiles returns.
type CollectOptions struct {
	// Languages limits files to these languages. Empty accepts every known language.
	Languages []language.Language
	// Depth is the maximum directory depth below root; -1 is unlimited.
	Depth int
	// Excludes are directory or file names, or doublestar globs against the root-relative path.
	Excludes []string
	// NoDefaultExcludes disables DefaultExcludes.
	NoDefaultExcludes bool
	SkipTests         bool
}

// CollectFiles walks root and returns the root-relative, slash-separated paths of
// source files, sorted. A root that is a single file is returned as its base name.
func CollectFiles(root string, opts CollectOptions) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", root, err)
	}
	if !info.IsDir() {
		if !accepted(root, opts.Languages) {
			return nil, fmt.Errorf("input file has unsupported extension: %s", root)
		}
		return []string{filepath.Base(root)}, nil
	}

	excludes := opts.Excludes
	if !opts.NoDefaultExcludes {
		excludes = append(append([]string{}, DefaultExcludes...), excludes...)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if excluded(rel, excludes) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if opts.Depth >= 0 && strings.Count(rel, "/")+1 > opts.Depth {
				return filepath.SkipDir
			}
			return nil
		}

		if opts.SkipTests && language.IsTestFile(rel) {
			return nil
		}
		if d.Type().IsRegular() && accepted(path, opts.Languages) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

func excluded(rel string, excludes []string) bool {
	base := filepath.Base(rel)
	for _, exclude := range excludes {
		exclude = strings.TrimSuffix(filepath.ToSlash(exclude), "/")
		if exclude == base || exclude == rel || strings.HasPrefix(rel, exclude+"/") {
			return true
		}
		if ok, _ := doublestar.Match(exclude, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(exclude, base); ok {
			return true
		}
	}
	return false
}

func accepted(path string, languages []language.Language) bool {
	lang := language.FromPath(path)
	if lang == language.Unknown {
		return false
	}
	if len(languages) == 0 {
		return true
	}
	for _, l := range languages {
		if l == lang {
			return true
		}
	}
	return false
}

// ParseLanguages resolves comma-separated language names. "all" or an empty list selects every language.
func ParseLanguages(names []string) ([]language.Language, error) {
	var out []language.Language
	for _, name := range RemoveDuplicates(names) {
		for _, part := range strings.Split(name, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if strings.EqualFold(part, "all") {
				return nil, nil
			}
			lang := language.Parse(part)
			if lang == language.Unknown {
				return nil, fmt.Errorf("unsupported language %q", part)
			}
			out = append(out, lang)
		}
	}
	return out, nil
}

// RemoveDuplicates removes duplicate strings from a slice, keeping the first occurrence.
func RemoveDuplicates(slice []string) []string {
	seen := make(map[string]bool, len(slice))
	list := make([]string, 0, len(slice))
	for _, entry := range slice {
		if !seen[entry] {
			seen[entry] = true
			list = append(list, entry)
		}
	}
	return list
}
