package duplication

import (
	"context"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/vitruves/dupsense/internal/preprocess"
)

// ExactDetector finds windows of normalized lines that occur verbatim in
// more than one place.
//
// Every window length from MinDuplicateLines up to the file length is hashed
// at every offset, so the work grows quadratically with the number of lines
// in a file. This is the dominant cost of a run; MaxExactWindowLines bounds it
// when set.
type ExactDetector struct {
	config *Config

	// contentCache maps a window hash to its text.
	contentCache map[uint64]string
	hits         int
	misses       int
}

func NewExactDetector(cfg *Config) *ExactDetector {
	return &ExactDetector{
		config:       cfg,
		contentCache: make(map[uint64]string),
	}
}

type exactGroup struct {
	hash  uint64
	lines int
	spans []span
}

// Detect returns one Exact duplication per distinct repeated window, sorted
// by risk and size. Windows wholly contained in a larger reported
// duplication are not reported again.
func (d *ExactDetector) Detect(ctx context.Context, files []preprocess.Content) ([]Duplication, error) {
	cfg := d.config
	first := make(map[uint64]span)
	repeated := make(map[uint64][]span)
	fileLines := make([][]string, len(files))

	for fi, content := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lines := content.Lines()
		for i, line := range lines {
			lines[i] = strings.TrimRight(line, " \t")
		}
		fileLines[fi] = lines

		n := len(lines)
		if n < cfg.MinDuplicateLines {
			continue
		}
		ix := indexLines(lines)
		maxWindow := n
		if cfg.MaxExactWindowLines > 0 && cfg.MaxExactWindowLines < maxWindow {
			maxWindow = cfg.MaxExactWindowLines
		}

		for start := 0; start+cfg.MinDuplicateLines <= n; start++ {
			digest := xxhash.New()
			limit := min(n, start+maxWindow)
			for end := start + 1; end <= limit; end++ {
				if end > start+1 {
					digest.WriteString("\n")
				}
				digest.WriteString(lines[end-1])

				if end-start < cfg.MinDuplicateLines || !ix.candidate(start, end, cfg) {
					continue
				}

				sum := digest.Sum64()
				s := span{file: fi, start: start, end: end}
				if prev, ok := first[sum]; !ok {
					first[sum] = s
				} else if existing, ok := repeated[sum]; ok {
					repeated[sum] = append(existing, s)
				} else {
					repeated[sum] = []span{prev, s}
				}
			}
		}
	}

	groups := make([]exactGroup, 0, len(repeated))
	for sum, spans := range repeated {
		sortSpans(spans)
		spans = dropOverlapping(spans)
		if len(spans) < 2 {
			continue
		}
		groups = append(groups, exactGroup{hash: sum, lines: spans[0].lines(), spans: spans})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].lines != groups[j].lines {
			return groups[i].lines > groups[j].lines
		}
		return groups[i].spans[0].less(groups[j].spans[0])
	})

	coverage := newCoverageIndex()
	dups := make([]Duplication, 0, len(groups))
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if coverage.covered(g.spans) {
			continue
		}
		coverage.add(g.spans)

		blocks := make([]CodeBlock, len(g.spans))
		for i, s := range g.spans {
			blocks[i] = codeBlock(files, s, g.hash)
		}
		content := d.text(g.hash, fileLines[g.spans[0].file], g.spans[0])

		dup, err := newDuplication(Exact, blocks, content, g.lines, 1.0)
		if err != nil {
			return nil, err
		}
		dups = append(dups, dup)
	}

	sortDuplications(dups, false)
	return dups, nil
}

func (d *ExactDetector) text(hash uint64, lines []string, s span) string {
	if text, ok := d.contentCache[hash]; ok {
		d.hits++
		return text
	}
	d.misses++
	text := spanText(lines, s)
	d.contentCache[hash] = text
	return text
}

// ClearCache drops memoized window text.
func (d *ExactDetector) ClearCache() {
	d.contentCache = make(map[uint64]string)
	d.hits, d.misses = 0, 0
}

func (d *ExactDetector) CacheStats() CacheStats {
	return CacheStats{Entries: len(d.contentCache), Hits: d.hits, Misses: d.misses}
}
