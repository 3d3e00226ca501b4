package duplication

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/vitruves/dupsense/internal/language"
	"github.com/vitruves/dupsense/internal/logging"
	"github.com/vitruves/dupsense/internal/preprocess"
)

const (
	crossFileMaxWindow = 50
	maxSizeRatio       = 3.0
	// overlapLimit is the share of the shorter block above which two
	// cross-file findings are considered the same.
	overlapLimit = 0.8
)

var sizeBreakpoints = []int{1000, 5000, 20000, 100000}

// crossFileBlock is one extracted window. hash covers the language tag and
// the trimmed non-blank lines; signature is empty for windows without
// enough structure to take part in structural matching.
type crossFileBlock struct {
	file      int
	start     int
	end       int
	hash      uint64
	signature string
}

func (b crossFileBlock) span() span {
	return span{file: b.file, start: b.start, end: b.end}
}

type extraction struct {
	key      uint64
	features *fileFeatures
	lines    []string
	blocks   []crossFileBlock
}

// CrossFileDetector finds duplications whose copies live in different
// files. It runs a prefilter, extract, exact, structural and optimize
// pipeline and keeps per-path extraction results between runs.
type CrossFileDetector struct {
	config *Config
	log    *logging.Logger

	blockCache map[string]*extraction

	blockHits   int
	blockMisses int

	sigMu          sync.Mutex
	signatureCache map[uint64]string
	sigHits        int
	sigMisses      int

	stats CrossFileStats
}

func NewCrossFileDetector(cfg *Config, log *logging.Logger) *CrossFileDetector {
	return &CrossFileDetector{
		config:         cfg,
		log:            log,
		blockCache:     make(map[string]*extraction),
		signatureCache: make(map[uint64]string),
	}
}

type crossFileCandidate struct {
	spans      []span
	hashes     []uint64
	lines      int
	similarity float64
	content    string
}

// Detect returns CrossFile duplications ordered by risk, similarity and size
// with overlapping findings removed.
func (d *CrossFileDetector) Detect(ctx context.Context, files []preprocess.Content) ([]Duplication, error) {
	started := time.Now()
	d.stats = CrossFileStats{}

	pairs := d.prefilter(files)
	d.stats.FilePairsAnalyzed = len(pairs)
	d.log.Debug("cross-file prefilter kept %d pairs", len(pairs))

	extractions, err := d.extract(ctx, files, pairs.partnered(len(files)))
	if err != nil {
		return nil, err
	}

	var blocks []crossFileBlock
	for fi, ex := range extractions {
		if ex == nil {
			continue
		}
		for _, b := range ex.blocks {
			b.file = fi
			blocks = append(blocks, b)
		}
	}
	d.stats.BlocksExtracted = len(blocks)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidates := d.exactMatches(blocks, extractions, pairs)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	structural, err := d.structuralMatches(ctx, blocks, extractions, pairs)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, structural...)

	dups := make([]Duplication, 0, len(candidates))
	for _, c := range candidates {
		located := make([]CodeBlock, len(c.spans))
		for i, s := range c.spans {
			located[i] = codeBlock(files, s, c.hashes[i])
		}
		dup, err := newDuplication(CrossFile, located, c.content, c.lines, c.similarity)
		if err != nil {
			return nil, err
		}
		dups = append(dups, dup)
	}

	dups = optimize(dups)
	d.stats.DuplicationsFound = len(dups)
	d.stats.Elapsed = time.Since(started)
	return dups, nil
}

func sizeBucket(size int) int {
	for i, limit := range sizeBreakpoints {
		if size < limit {
			return i
		}
	}
	return len(sizeBreakpoints)
}

type bucketKey struct {
	lang language.Language
	size int
}

// filePairs holds the file index pairs, lower index first, that may be
// compared with each other.
type filePairs map[[2]int]bool

func (p filePairs) allowed(a, b int) bool {
	if a == b {
		return true
	}
	if a > b {
		a, b = b, a
	}
	return p[[2]int{a, b}]
}

// allowedWith reports whether file may join a group already holding files.
func (p filePairs) allowedWith(file int, files []int) bool {
	for _, f := range files {
		if !p.allowed(file, f) {
			return false
		}
	}
	return true
}

func (p filePairs) partnered(n int) []bool {
	out := make([]bool, n)
	for pair := range p {
		out[pair[0]] = true
		out[pair[1]] = true
	}
	return out
}

// split partitions sorted spans into groups in which every pair of files is
// allowed, placing each span in the first group that accepts its file.
func (p filePairs) split(spans []span) [][]span {
	var groups [][]span
	var groupFiles [][]int
	for _, s := range spans {
		placed := false
		for g := range groups {
			if p.allowedWith(s.file, groupFiles[g]) {
				groups[g] = append(groups[g], s)
				groupFiles[g] = append(groupFiles[g], s.file)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []span{s})
			groupFiles = append(groupFiles, []int{s.file})
		}
	}
	return groups
}

// prefilter returns the pairs of files that share a language and size
// bucket and whose sizes are within maxSizeRatio of each other.
func (d *CrossFileDetector) prefilter(files []preprocess.Content) filePairs {
	buckets := make(map[bucketKey][]int)
	for i, f := range files {
		if len(f.Processed) < d.config.MinDuplicateChars {
			continue
		}
		key := bucketKey{lang: f.Language, size: sizeBucket(len(f.Processed))}
		buckets[key] = append(buckets[key], i)
	}

	pairs := make(filePairs)
	for _, members := range buckets {
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				a, b := len(files[members[x]].Processed), len(files[members[y]].Processed)
				if float64(max(a, b)) > maxSizeRatio*float64(min(a, b)) {
					continue
				}
				pairs[[2]int{members[x], members[y]}] = true
			}
		}
	}
	return pairs
}

// extract returns the blocks of every partnered file, reusing cached
// extractions whose content is unchanged.
func (d *CrossFileDetector) extract(ctx context.Context, files []preprocess.Content, partnered []bool) ([]*extraction, error) {
	extractions := make([]*extraction, len(files))
	keys := make([]uint64, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.jobs())

	for i, content := range files {
		if !partnered[i] {
			continue
		}
		keys[i] = hashText(string(content.Language) + "\x00" + content.Processed)
		if cached, ok := d.blockCache[content.FilePath]; ok && cached.key == keys[i] {
			d.blockHits++
			extractions[i] = cached
			continue
		}
		d.blockMisses++

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			extractions[i] = d.extractFile(content, keys[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, ex := range extractions {
		if ex != nil {
			d.blockCache[files[i].FilePath] = ex
		}
	}
	return extractions, nil
}

func (d *CrossFileDetector) extractFile(content preprocess.Content, key uint64) *extraction {
	cfg := d.config
	lines := content.Lines()
	f := analyzeLines(lines, content.Language)
	ex := &extraction{key: key, features: f, lines: lines}

	n := len(lines)
	for start := 0; start+cfg.MinDuplicateLines <= n; start++ {
		digest := xxhash.New()
		digest.WriteString(string(content.Language))
		// raw keeps indentation, which carries nesting in hash-comment languages.
		raw := xxhash.New()
		raw.WriteString(string(content.Language))
		limit := min(n, start+crossFileMaxWindow)
		for end := start + 1; end <= limit; end++ {
			if trimmed := strings.TrimSpace(lines[end-1]); trimmed != "" {
				digest.WriteString("\n")
				digest.WriteString(trimmed)
			}
			raw.WriteString("\n")
			raw.WriteString(lines[end-1])
			if end-start < cfg.MinDuplicateLines || !f.candidate(start, end, cfg) {
				continue
			}

			block := crossFileBlock{start: start, end: end, hash: digest.Sum64()}
			p := f.pattern(start, end)
			if (p.HasStructure() || p.Complexity >= acceptComplexity) &&
				(len(p.ControlFlow) > 0 || p.Complexity >= clusterComplexity) {
				block.signature = d.signature(raw.Sum64(), p)
			}
			ex.blocks = append(ex.blocks, block)
		}
	}
	return ex
}

// signature returns the cached signature of the window whose untrimmed text
// hashes to key.
func (d *CrossFileDetector) signature(key uint64, p StructuralPattern) string {
	d.sigMu.Lock()
	defer d.sigMu.Unlock()

	if sig, ok := d.signatureCache[key]; ok {
		d.sigHits++
		return sig
	}
	d.sigMisses++
	sig := signatureString(p)
	d.signatureCache[key] = sig
	return sig
}

// exactMatches groups blocks by normalized hash, keeping groups that span
// at least two files. Groups inside a larger reported group are skipped.
func (d *CrossFileDetector) exactMatches(blocks []crossFileBlock, extractions []*extraction, pairs filePairs) []crossFileCandidate {
	byHash := make(map[uint64][]span)
	for _, b := range blocks {
		byHash[b.hash] = append(byHash[b.hash], b.span())
	}

	type group struct {
		hash  uint64
		spans []span
	}
	var groups []group
	for hash, spans := range byHash {
		if len(spans) < 2 || distinctFiles(spans) < 2 {
			continue
		}
		sortSpans(spans)
		for _, part := range pairs.split(dropOverlapping(spans)) {
			if distinctFiles(part) < 2 {
				continue
			}
			groups = append(groups, group{hash: hash, spans: part})
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].spans[0], groups[j].spans[0]
		if a.lines() != b.lines() {
			return a.lines() > b.lines()
		}
		return a.less(b)
	})

	coverage := newCoverageIndex()
	var candidates []crossFileCandidate
	for _, g := range groups {
		if coverage.covered(g.spans) {
			continue
		}
		coverage.add(g.spans)

		hashes := make([]uint64, len(g.spans))
		for i := range hashes {
			hashes[i] = g.hash
		}
		first := g.spans[0]
		candidates = append(candidates, crossFileCandidate{
			spans:      g.spans,
			hashes:     hashes,
			lines:      first.lines(),
			similarity: 1.0,
			content:    spanText(extractions[first.file].lines, first),
		})
	}
	return candidates
}

type crossFileMember struct {
	span       span
	hash       uint64
	trimmed    []string
	constructs []int
}

// detailedSimilarity weighs line-level LCS against idiomatic construct counts.
func detailedSimilarity(a, b *crossFileMember) float64 {
	return clamp01(0.6*lcsRatio(a.trimmed, b.trimmed) + 0.4*constructSimilarity(a.constructs, b.constructs))
}

func detailedUpperBound(a, b *crossFileMember) float64 {
	return 0.6*ratio(len(a.trimmed), len(b.trimmed)) + 0.4*constructSimilarity(a.constructs, b.constructs)
}

// structuralMatches clusters blocks that share a language and structural
// signature but differ in text.
func (d *CrossFileDetector) structuralMatches(ctx context.Context, blocks []crossFileBlock, extractions []*extraction, pairs filePairs) ([]crossFileCandidate, error) {
	type sigKey struct {
		lang      language.Language
		signature string
	}
	groups := make(map[sigKey][]crossFileBlock)
	for _, b := range blocks {
		if b.signature == "" {
			continue
		}
		key := sigKey{lang: extractions[b.file].features.lang, signature: b.signature}
		groups[key] = append(groups[key], b)
	}

	var keys []sigKey
	for key, members := range groups {
		if len(members) < 2 || sameHash(members) {
			continue
		}
		spans := make([]span, len(members))
		for i, m := range members {
			spans[i] = m.span()
		}
		if distinctFiles(spans) < 2 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return groups[keys[i]][0].span().less(groups[keys[j]][0].span()) })

	var candidates []crossFileCandidate
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		members := groups[key]
		if d.config.MaxBucketSize > 0 && len(members) > d.config.MaxBucketSize {
			d.log.Debug("skipping cross-file signature %q with %d blocks", key.signature, len(members))
			continue
		}
		candidates = append(candidates, d.clusterSignature(members, extractions, pairs)...)
	}
	return candidates, nil
}

func (d *CrossFileDetector) clusterSignature(members []crossFileBlock, extractions []*extraction, pairs filePairs) []crossFileCandidate {
	threshold := d.config.StructuralSimilarityThreshold

	ordered := append([]crossFileBlock(nil), members...)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i].span(), ordered[j].span()
		if a.lines() != b.lines() {
			return a.lines() > b.lines()
		}
		return a.less(b)
	})

	views := make([]*crossFileMember, len(ordered))
	view := func(i int) *crossFileMember {
		if views[i] == nil {
			b := ordered[i]
			f := extractions[b.file].features
			views[i] = &crossFileMember{
				span:       b.span(),
				hash:       b.hash,
				trimmed:    f.trimmedLines(b.start, b.end),
				constructs: f.constructCounts(b.start, b.end),
			}
		}
		return views[i]
	}

	grouped := make([]bool, len(ordered))
	var candidates []crossFileCandidate

	for seed := range ordered {
		if grouped[seed] {
			continue
		}
		grouped[seed] = true
		idx := []int{seed}
		files := []int{ordered[seed].file}

		for other := seed + 1; other < len(ordered); other++ {
			if grouped[other] || overlapsAnyBlock(ordered[other], ordered, idx) {
				continue
			}
			if !pairs.allowedWith(ordered[other].file, files) {
				continue
			}
			a, b := view(seed), view(other)
			if detailedUpperBound(a, b) < threshold {
				continue
			}
			if detailedSimilarity(a, b) >= threshold {
				idx = append(idx, other)
				files = append(files, ordered[other].file)
			}
		}
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx[1:] {
			grouped[i] = true
		}

		spans := make([]span, len(idx))
		hashes := make([]uint64, len(idx))
		identical := true
		for k, i := range idx {
			spans[k] = ordered[i].span()
			hashes[k] = ordered[i].hash
			if hashes[k] != hashes[0] {
				identical = false
			}
		}
		if identical || distinctFiles(spans) < 2 {
			continue
		}

		total, pairs := 0.0, 0
		for x := 0; x < len(idx); x++ {
			for y := x + 1; y < len(idx); y++ {
				total += detailedSimilarity(view(idx[x]), view(idx[y]))
				pairs++
			}
		}
		avg := clamp01(total / float64(pairs))
		if avg < threshold {
			continue
		}

		seedSpan := ordered[seed].span()
		c := crossFileCandidate{
			lines:      seedSpan.lines(),
			similarity: avg,
			content:    spanText(extractions[seedSpan.file].lines, seedSpan),
		}
		c.spans, c.hashes = sortSpansWithHashes(spans, hashes)
		candidates = append(candidates, c)
	}
	return candidates
}

func overlapsAnyBlock(b crossFileBlock, ordered []crossFileBlock, idx []int) bool {
	s := b.span()
	for _, i := range idx {
		if ordered[i].span().overlaps(s) {
			return true
		}
	}
	return false
}

func sameHash(members []crossFileBlock) bool {
	for _, m := range members[1:] {
		if m.hash != members[0].hash {
			return false
		}
	}
	return true
}

func distinctFiles(spans []span) int {
	seen := make(map[int]bool, 2)
	for _, s := range spans {
		seen[s.file] = true
	}
	return len(seen)
}

// optimize sorts findings by risk, similarity and size and drops any
// finding with a block overlapping a kept finding's block in the same file
// by more than 80% of the shorter span.
func optimize(dups []Duplication) []Duplication {
	sortDuplications(dups, true)

	kept := dups[:0:0]
	for _, dup := range dups {
		redundant := false
		for _, k := range kept {
			if blocksOverlap(dup.Blocks, k.Blocks) {
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, dup)
		}
	}
	return kept
}

func blocksOverlap(a, b []CodeBlock) bool {
	for _, x := range a {
		for _, y := range b {
			if x.FilePath != y.FilePath {
				continue
			}
			overlap := min(x.EndLine, y.EndLine) - max(x.StartLine, y.StartLine) + 1
			if overlap <= 0 {
				continue
			}
			if float64(overlap) > overlapLimit*float64(min(x.Lines(), y.Lines())) {
				return true
			}
		}
	}
	return false
}

// Stats reports the counters of the most recent Detect call.
func (d *CrossFileDetector) Stats() CrossFileStats {
	return d.stats
}

// ClearCache drops cached extractions and signatures.
func (d *CrossFileDetector) ClearCache() {
	d.sigMu.Lock()
	defer d.sigMu.Unlock()
	d.blockCache = make(map[string]*extraction)
	d.signatureCache = make(map[uint64]string)
	d.blockHits, d.blockMisses = 0, 0
	d.sigHits, d.sigMisses = 0, 0
}

func (d *CrossFileDetector) CacheStats() CacheStats {
	d.sigMu.Lock()
	defer d.sigMu.Unlock()
	return CacheStats{
		Entries: len(d.blockCache) + len(d.signatureCache),
		Hits:    d.blockHits + d.sigHits,
		Misses:  d.blockMisses + d.sigMisses,
	}
}
