package duplication

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/vitruves/dupsense/internal/preprocess"
)

// span is the window of processed lines [start, end) in files[file].
type span struct {
	file  int
	start int
	end   int
}

func (s span) lines() int {
	return s.end - s.start
}

func (s span) overlaps(o span) bool {
	return s.file == o.file && s.start < o.end && o.start < s.end
}

func (s span) contains(o span) bool {
	return s.file == o.file && s.start <= o.start && o.end <= s.end
}

func (s span) less(o span) bool {
	if s.file != o.file {
		return s.file < o.file
	}
	if s.start != o.start {
		return s.start < o.start
	}
	return s.end < o.end
}

func sortSpans(spans []span) {
	sort.Slice(spans, func(i, j int) bool { return spans[i].less(spans[j]) })
}

// dropOverlapping keeps the first of any group of overlapping same-file
// spans. The input must be sorted.
func dropOverlapping(spans []span) []span {
	kept := spans[:0:0]
	for _, s := range spans {
		overlapping := false
		for i := len(kept) - 1; i >= 0 && kept[i].file == s.file; i-- {
			if kept[i].overlaps(s) {
				overlapping = true
				break
			}
		}
		if !overlapping {
			kept = append(kept, s)
		}
	}
	return kept
}

// coverageIndex remembers reported groups so that a smaller group lying
// entirely inside one of them can be suppressed.
type coverageIndex struct {
	groups [][]span
	byFile map[int][]spanRef
}

type spanRef struct {
	group int
	span  span
}

func newCoverageIndex() *coverageIndex {
	return &coverageIndex{byFile: make(map[int][]spanRef)}
}

// covered reports whether a single recorded group contains every span of g.
func (c *coverageIndex) covered(g []span) bool {
	if len(g) == 0 {
		return false
	}
	for _, ref := range c.byFile[g[0].file] {
		if ref.span.contains(g[0]) && c.coversAll(ref.group, g[1:]) {
			return true
		}
	}
	return false
}

func (c *coverageIndex) coversAll(group int, spans []span) bool {
	for _, s := range spans {
		found := false
		for _, h := range c.groups[group] {
			if h.contains(s) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (c *coverageIndex) add(g []span) {
	id := len(c.groups)
	c.groups = append(c.groups, g)
	for _, s := range g {
		c.byFile[s.file] = append(c.byFile[s.file], spanRef{group: id, span: s})
	}
}

// codeBlock converts a span into a CodeBlock with original line numbers.
func codeBlock(files []preprocess.Content, s span, hash uint64) CodeBlock {
	content := files[s.file]
	return CodeBlock{
		FilePath:    content.FilePath,
		StartLine:   content.OriginalLine(s.start + 1),
		EndLine:     content.OriginalLine(s.end),
		ContentHash: formatHash(hash),
	}
}

func formatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// spanText joins the processed lines of s.
func spanText(lines []string, s span) string {
	return strings.Join(lines[s.start:s.end], "\n")
}

func hashText(text string) uint64 {
	return xxhash.Sum64String(text)
}

// sortDuplications orders by risk, then the given tie-breakers, then location.
func sortDuplications(dups []Duplication, bySimilarity bool) {
	sort.SliceStable(dups, func(i, j int) bool {
		a, b := dups[i], dups[j]
		if a.Risk != b.Risk {
			return a.Risk > b.Risk
		}
		if bySimilarity && a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if a.LineCount != b.LineCount {
			return a.LineCount > b.LineCount
		}
		return blockLess(a.Blocks[0], b.Blocks[0])
	})
}

func blockLess(a, b CodeBlock) bool {
	if a.FilePath != b.FilePath {
		return a.FilePath < b.FilePath
	}
	if a.StartLine != b.StartLine {
		return a.StartLine < b.StartLine
	}
	return a.EndLine < b.EndLine
}
