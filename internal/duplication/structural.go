package duplication

import (
	"context"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/vitruves/dupsense/internal/logging"
	"github.com/vitruves/dupsense/internal/preprocess"
)

const (
	structuralMaxWindow = 100
	// acceptComplexity admits structure-free blocks that are still non-trivial.
	acceptComplexity = 3.0
	// clusterComplexity is required for blocks without control flow to be clustered.
	clusterComplexity = 5.0
	// distinctCeiling caps the pairwise score of blocks whose text differs.
	// A score of 1.0 is reserved for identical text.
	distinctCeiling = 0.99
)

// StructuralDetector groups blocks that share a control-flow, call and
// nesting shape even when their text differs.
type StructuralDetector struct {
	config *Config
	log    *logging.Logger

	// featureCache holds per-file line analysis keyed by the hash of the processed text.
	featureCache map[uint64]*fileFeatures
	hits         int
	misses       int
}

func NewStructuralDetector(cfg *Config, log *logging.Logger) *StructuralDetector {
	return &StructuralDetector{
		config:       cfg,
		log:          log,
		featureCache: make(map[uint64]*fileFeatures),
	}
}

// structFeatures are the secondary features compared within a signature group.
type structFeatures struct {
	lines        int
	keywords     int
	commentRatio float64
	identifiers  string
	indentation  string
}

func (f *fileFeatures) structFeatures(s span) *structFeatures {
	return &structFeatures{
		lines:        s.lines(),
		keywords:     f.keywordCount(s.start, s.end),
		commentRatio: f.commentRatio(s.start, s.end),
		identifiers:  f.identifierPattern(s.start, s.end),
		indentation:  f.indentPattern(s.start, s.end),
	}
}

// structuralSimilarity combines line-count ratio, keyword ratio,
// comment-ratio closeness and two pattern similarities with weights
// 0.2/0.3/0.1/0.2/0.2.
func structuralSimilarity(a, b *structFeatures) float64 {
	return clamp01(cheapStructuralScore(a, b) +
		0.2*levenshteinRatio(a.identifiers, b.identifiers) +
		0.2*levenshteinRatio(a.indentation, b.indentation))
}

func cheapStructuralScore(a, b *structFeatures) float64 {
	return 0.2*ratio(a.lines, b.lines) +
		0.3*ratio(a.keywords, b.keywords) +
		0.1*(1.0-math.Abs(a.commentRatio-b.commentRatio))
}

// similarityUpperBound bounds structuralSimilarity without computing edit
// distances: the distance is at least the difference in length.
func similarityUpperBound(a, b *structFeatures) float64 {
	lengthRatio := func(x, y string) float64 {
		return ratio(min(len(x), maxPatternLength), min(len(y), maxPatternLength))
	}
	return cheapStructuralScore(a, b) +
		0.2*lengthRatio(a.identifiers, b.identifiers) +
		0.2*lengthRatio(a.indentation, b.indentation)
}

type structuralCluster struct {
	spans      []span
	seed       span
	lines      int
	similarity float64
	hashes     []uint64
}

// Detect returns Structural duplications sorted by risk, similarity and size.
func (d *StructuralDetector) Detect(ctx context.Context, files []preprocess.Content) ([]Duplication, error) {
	cfg := d.config

	features, fileLines, err := d.analyze(ctx, files)
	if err != nil {
		return nil, err
	}

	groups := make(map[uint64][]span)
	for fi := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := features[fi]
		n := len(fileLines[fi])
		for start := 0; start+cfg.MinDuplicateLines <= n; start++ {
			limit := min(n, start+structuralMaxWindow)
			for end := start + cfg.MinDuplicateLines; end <= limit; end++ {
				if !f.candidate(start, end, cfg) {
					continue
				}
				p := f.pattern(start, end)
				if !p.HasStructure() && p.Complexity < acceptComplexity {
					continue
				}
				if len(p.ControlFlow) == 0 && p.Complexity < clusterComplexity {
					continue
				}
				sig := structuralSignature(p)
				groups[sig] = append(groups[sig], span{file: fi, start: start, end: end})
			}
		}
	}

	keys := make([]uint64, 0, len(groups))
	for sig, members := range groups {
		if len(members) >= 2 {
			keys = append(keys, sig)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return groups[keys[i]][0].less(groups[keys[j]][0]) })

	var clusters []structuralCluster
	for _, sig := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		members := groups[sig]
		if cfg.MaxBucketSize > 0 && len(members) > cfg.MaxBucketSize {
			d.log.Debug("skipping structural signature %016x with %d blocks", sig, len(members))
			continue
		}
		clusters = append(clusters, d.cluster(members, features, fileLines)...)
	}

	sort.Slice(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.lines != b.lines {
			return a.lines > b.lines
		}
		if a.similarity != b.similarity {
			return a.similarity > b.similarity
		}
		return a.spans[0].less(b.spans[0])
	})

	coverage := newCoverageIndex()
	var dups []Duplication
	for _, c := range clusters {
		if coverage.covered(c.spans) {
			continue
		}
		coverage.add(c.spans)

		blocks := make([]CodeBlock, len(c.spans))
		for i, s := range c.spans {
			blocks[i] = codeBlock(files, s, c.hashes[i])
		}
		content := spanText(fileLines[c.seed.file], c.seed)

		dup, err := newDuplication(Structural, blocks, content, c.lines, c.similarity)
		if err != nil {
			return nil, err
		}
		dups = append(dups, dup)
	}

	sortDuplications(dups, true)
	return dups, nil
}

// analyze computes line features for every file, reusing cached analyses.
func (d *StructuralDetector) analyze(ctx context.Context, files []preprocess.Content) ([]*fileFeatures, [][]string, error) {
	features := make([]*fileFeatures, len(files))
	fileLines := make([][]string, len(files))
	keys := make([]uint64, len(files))

	sem := semaphore.NewWeighted(int64(d.config.jobs()))
	var wg sync.WaitGroup

	for i, content := range files {
		fileLines[i] = content.Lines()
		keys[i] = hashText(string(content.Language) + "\x00" + content.Processed)
		if cached, ok := d.featureCache[keys[i]]; ok {
			d.hits++
			features[i] = cached
			continue
		}
		d.misses++

		wg.Add(1)
		go func(idx int, lines []string, content preprocess.Content) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			features[idx] = analyzeLines(lines, content.Language)
		}(i, fileLines[i], content)
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	for i := range files {
		d.featureCache[keys[i]] = features[i]
	}
	return features, fileLines, nil
}

// cluster greedily groups members around seeds, largest blocks first.
func (d *StructuralDetector) cluster(members []span, features []*fileFeatures, fileLines [][]string) []structuralCluster {
	threshold := d.config.StructuralSimilarityThreshold

	ordered := append([]span(nil), members...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].lines() != ordered[j].lines() {
			return ordered[i].lines() > ordered[j].lines()
		}
		return ordered[i].less(ordered[j])
	})

	feats := make([]*structFeatures, len(ordered))
	featureOf := func(i int) *structFeatures {
		if feats[i] == nil {
			feats[i] = features[ordered[i].file].structFeatures(ordered[i])
		}
		return feats[i]
	}

	hashes := make([]uint64, len(ordered))
	hashed := make([]bool, len(ordered))
	hashOf := func(i int) uint64 {
		if !hashed[i] {
			hashes[i] = hashText(spanText(fileLines[ordered[i].file], ordered[i]))
			hashed[i] = true
		}
		return hashes[i]
	}
	score := func(i, j int) float64 {
		sim := structuralSimilarity(featureOf(i), featureOf(j))
		if hashOf(i) != hashOf(j) {
			sim = min(sim, distinctCeiling)
		}
		return sim
	}

	grouped := make([]bool, len(ordered))
	var clusters []structuralCluster

	for seed := range ordered {
		if grouped[seed] {
			continue
		}
		grouped[seed] = true
		idx := []int{seed}

		for other := seed + 1; other < len(ordered); other++ {
			if grouped[other] || overlapsAny(ordered[other], ordered, idx) {
				continue
			}
			if similarityUpperBound(featureOf(seed), featureOf(other)) < threshold {
				continue
			}
			if score(seed, other) >= threshold {
				idx = append(idx, other)
			}
		}

		if len(idx) < 2 {
			continue
		}
		for _, i := range idx[1:] {
			grouped[i] = true
		}

		spans := make([]span, len(idx))
		spanHashes := make([]uint64, len(idx))
		identical := true
		for k, i := range idx {
			spans[k] = ordered[i]
			spanHashes[k] = hashOf(i)
			if spanHashes[k] != spanHashes[0] {
				identical = false
			}
		}
		// Verbatim copies belong to the exact detector.
		if identical {
			continue
		}

		total, pairs := 0.0, 0
		for x := 0; x < len(idx); x++ {
			for y := x + 1; y < len(idx); y++ {
				total += score(idx[x], idx[y])
				pairs++
			}
		}

		cluster := structuralCluster{
			seed:       ordered[seed],
			lines:      ordered[seed].lines(),
			similarity: clamp01(total / float64(pairs)),
		}
		cluster.spans, cluster.hashes = sortSpansWithHashes(spans, spanHashes)
		clusters = append(clusters, cluster)
	}

	return clusters
}

func overlapsAny(s span, ordered []span, idx []int) bool {
	for _, i := range idx {
		if ordered[i].overlaps(s) {
			return true
		}
	}
	return false
}

func sortSpansWithHashes(spans []span, hashes []uint64) ([]span, []uint64) {
	order := make([]int, len(spans))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return spans[order[a]].less(spans[order[b]]) })

	sortedSpans := make([]span, len(spans))
	sortedHashes := make([]uint64, len(hashes))
	for i, o := range order {
		sortedSpans[i] = spans[o]
		sortedHashes[i] = hashes[o]
	}
	return sortedSpans, sortedHashes
}

// ClearCache drops cached per-file analyses.
func (d *StructuralDetector) ClearCache() {
	d.featureCache = make(map[uint64]*fileFeatures)
	d.hits, d.misses = 0, 0
}

func (d *StructuralDetector) CacheStats() CacheStats {
	return CacheStats{Entries: len(d.featureCache), Hits: d.hits, Misses: d.misses}
}
