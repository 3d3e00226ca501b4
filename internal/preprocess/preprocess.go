// Package preprocess normalizes source text before duplication analysis.
//
// Processing is pure and idempotent: running Process over an already
// processed text returns the same text.
package preprocess

import (
	"regexp"
	"strings"

	"github.com/vitruves/dupsense/internal/language"
)

// Options selects which normalizations are applied.
type Options struct {
	StripComments   bool
	StripBlankLines bool
	StripImports    bool
	// IgnoreCode removes every line matched by one of the expressions.
	IgnoreCode []*regexp.Regexp
}

// Content is the normalized form of one file.
type Content struct {
	FilePath  string
	Language  language.Language
	Original  string
	Processed string
	// LineMap holds, for each processed line, its 1-based line number in Original.
	LineMap []int
}

// Lines splits the processed text into lines.
func (c Content) Lines() []string {
	if c.Processed == "" {
		return nil
	}
	return strings.Split(c.Processed, "\n")
}

// OriginalLine maps a 1-based processed line number back to the original file.
func (c Content) OriginalLine(processedLine int) int {
	if processedLine < 1 || processedLine > len(c.LineMap) {
		return processedLine
	}
	return c.LineMap[processedLine-1]
}

// OriginalLineCount counts the lines of the unprocessed file.
func (c Content) OriginalLineCount() int {
	if c.Original == "" {
		return 0
	}
	n := strings.Count(c.Original, "\n")
	if !strings.HasSuffix(c.Original, "\n") {
		n++
	}
	return n
}

// Process normalizes original according to lang and opts.
func Process(path, original string, lang language.Language, opts Options) Content {
	text := strings.ReplaceAll(original, "\r\n", "\n")
	if opts.StripComments {
		text = RemoveComments(text, lang)
	}

	lines := strings.Split(text, "\n")
	imports := newImportFilter(lang)
	kept := make([]string, 0, len(lines))
	lineMap := make([]int, 0, len(lines))

	for i, line := range lines {
		line = strings.TrimRight(line, " \t\r")

		if opts.StripImports && imports.skip(line) {
			continue
		}
		if matchesAny(opts.IgnoreCode, line) {
			continue
		}
		if opts.StripBlankLines && strings.TrimSpace(line) == "" {
			continue
		}

		kept = append(kept, line)
		lineMap = append(lineMap, i+1)
	}

	for len(kept) > 0 && strings.TrimSpace(kept[len(kept)-1]) == "" {
		kept = kept[:len(kept)-1]
		lineMap = lineMap[:len(lineMap)-1]
	}

	return Content{
		FilePath:  path,
		Language:  lang,
		Original:  original,
		Processed: strings.Join(kept, "\n"),
		LineMap:   lineMap,
	}
}

func matchesAny(patterns []*regexp.Regexp, line string) bool {
	for _, re := range patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
