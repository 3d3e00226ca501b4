package duplication

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/vitruves/dupsense/internal/language"
)

// CallSite is one call found in a block.
type CallSite struct {
	Name string
	Kind CallKind
}

// NestingDepth holds the maximum bracket nesting reached inside a block.
type NestingDepth struct {
	Braces   int
	Parens   int
	Brackets int
}

func (n NestingDepth) Max() int {
	return max(n.Braces, n.Parens, n.Brackets)
}

// OperatorCounts is the number of operators and their weighted sum.
type OperatorCounts struct {
	Count    int
	Weighted float64
}

// StructuralPattern is the coarse shape of a block: what it branches on,
// what it calls, what it declares and how deeply it nests.
type StructuralPattern struct {
	ControlFlow  []string
	Calls        []CallSite
	Declarations []string
	Nesting      NestingDepth
	Operators    OperatorCounts
	Complexity   float64
}

// HasStructure reports whether the block contains control flow, calls or declarations.
func (p StructuralPattern) HasStructure() bool {
	return len(p.ControlFlow)+len(p.Calls)+len(p.Declarations) > 0
}

func complexityScore(controlFlow, calls, declarations int, nesting NestingDepth, operators float64) float64 {
	return float64(controlFlow)*2.0 +
		float64(calls)*1.5 +
		float64(declarations)*1.0 +
		float64(nesting.Max())*3.0 +
		operators*0.5
}

// BuildStructuralPattern computes the pattern of a standalone block of lines.
func BuildStructuralPattern(lines []string, lang language.Language) StructuralPattern {
	return analyzeLines(lines, lang).pattern(0, len(lines))
}

// lineIndex holds prefix sums used by the window candidate rule. Entry i
// covers lines [0, i).
type lineIndex struct {
	nonBlank []int
	chars    []int
}

func indexLines(lines []string) lineIndex {
	ix := lineIndex{
		nonBlank: make([]int, len(lines)+1),
		chars:    make([]int, len(lines)+1),
	}
	for i, line := range lines {
		ix.nonBlank[i+1] = ix.nonBlank[i]
		if strings.TrimSpace(line) != "" {
			ix.nonBlank[i+1]++
		}
		ix.chars[i+1] = ix.chars[i] + len(line) + 1
	}
	return ix
}

// candidate applies the window rule to lines [start, end).
func (ix lineIndex) candidate(start, end int, cfg *Config) bool {
	if ix.nonBlank[end]-ix.nonBlank[start] < cfg.minNonBlankLines() {
		return false
	}
	return ix.chars[end]-ix.chars[start]-1 >= cfg.MinDuplicateChars
}

type depthDelta struct {
	net  int
	peak int
}

type lineInfo struct {
	blank        bool
	comment      bool
	indent       int
	trimmed      string
	identPattern string
	depth        [3]depthDelta
}

// fileFeatures is the per-line analysis of one file. Per-line lists are
// flattened; the entries of line i live in [off[i], off[i+1]).
type fileFeatures struct {
	lineIndex
	lang  language.Language
	lines []lineInfo

	controlFlow []string
	cfOff       []int
	calls       []CallSite
	callOff     []int
	decls       []string
	declOff     []int

	// Prefix sums over lines. Operator weights are kept in half units so
	// identical windows always produce identical scores.
	opHalfUnits []int
	opCount     []int
	keywords    []int
	comments    []int
	constructs  [][]int
}

func analyzeLines(lines []string, lang language.Language) *fileFeatures {
	ps := patterns()
	lp := ps.forLanguage(lang)
	n := len(lines)
	wordOps := lang == language.Python || lang == language.Ruby

	f := &fileFeatures{
		lineIndex:   indexLines(lines),
		lang:        lang,
		lines:       make([]lineInfo, n),
		cfOff:       make([]int, n+1),
		callOff:     make([]int, n+1),
		declOff:     make([]int, n+1),
		opHalfUnits: make([]int, n+1),
		opCount:     make([]int, n+1),
		keywords:    make([]int, n+1),
		comments:    make([]int, n+1),
		constructs:  make([][]int, len(lp.constructs)),
	}
	for c := range f.constructs {
		f.constructs[c] = make([]int, n+1)
	}

	var ident strings.Builder
	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		info := lineInfo{
			trimmed: trimmed,
			blank:   trimmed == "",
			indent:  indentWidth(raw),
		}
		if !info.blank {
			info.comment = lp.isComment(trimmed)
		}

		halfUnits, ops, keywords := 0, 0, 0
		constructCounts := make([]int, len(lp.constructs))

		if !info.blank && !info.comment {
			code := lp.stringLiteral.ReplaceAllString(raw, `""`)

			ident.Reset()
			for _, w := range ps.word.FindAllString(code, -1) {
				if lp.keywords[w] {
					keywords++
				} else {
					ident.WriteByte(lowerFirst(w))
					ident.WriteByte(lengthBucket(len(w)))
				}
				if tok := lp.controlFlow[w]; tok != "" {
					f.controlFlow = append(f.controlFlow, tok)
				}
				if wt, ok := wordOperators[w]; ok && wordOps {
					halfUnits += int(wt * 2)
					ops++
				}
			}
			info.identPattern = ident.String()

			skipFirst := lp.startsDeclaration(trimmed)
			for k, m := range ps.call.FindAllStringSubmatchIndex(code, -1) {
				if k == 0 && skipFirst {
					continue
				}
				name := code[m[2]:m[3]]
				if lp.keywords[name] || lp.controlFlow[name] != "" {
					continue
				}
				macro := m[5] > m[4]
				kind := lp.classifyCall(name, macro)
				if macro {
					name += "!"
				}
				f.calls = append(f.calls, CallSite{Name: name, Kind: kind})
			}

			for _, rule := range lp.declarations {
				if rule.re.MatchString(code) {
					f.decls = append(f.decls, rule.class)
					break
				}
			}

			for _, op := range ps.operator.FindAllString(code, -1) {
				ops++
				halfUnits += int(operatorWeights[op] * 2)
			}

			for c, re := range lp.constructs {
				constructCounts[c] = len(re.FindAllStringIndex(code, -1))
			}

			info.depth = depthDeltas(code)
		}

		f.lines[i] = info
		f.cfOff[i+1] = len(f.controlFlow)
		f.callOff[i+1] = len(f.calls)
		f.declOff[i+1] = len(f.decls)
		f.opHalfUnits[i+1] = f.opHalfUnits[i] + halfUnits
		f.opCount[i+1] = f.opCount[i] + ops
		f.keywords[i+1] = f.keywords[i] + keywords
		f.comments[i+1] = f.comments[i]
		if info.comment {
			f.comments[i+1]++
		}
		for c := range f.constructs {
			f.constructs[c][i+1] = f.constructs[c][i] + constructCounts[c]
		}
	}

	return f
}

// pattern builds the structural pattern of lines [start, end). The slices
// alias the file tables and must not be appended to.
func (f *fileFeatures) pattern(start, end int) StructuralPattern {
	p := StructuralPattern{
		ControlFlow:  f.controlFlow[f.cfOff[start]:f.cfOff[end]:f.cfOff[end]],
		Calls:        f.calls[f.callOff[start]:f.callOff[end]:f.callOff[end]],
		Declarations: f.decls[f.declOff[start]:f.declOff[end]:f.declOff[end]],
		Nesting:      f.nesting(start, end),
		Operators: OperatorCounts{
			Count:    f.opCount[end] - f.opCount[start],
			Weighted: float64(f.opHalfUnits[end]-f.opHalfUnits[start]) / 2,
		},
	}
	p.Complexity = complexityScore(len(p.ControlFlow), len(p.Calls), len(p.Declarations), p.Nesting, p.Operators.Weighted)
	return p
}

func (f *fileFeatures) nesting(start, end int) NestingDepth {
	var depth [3]int
	for t := 0; t < 3; t++ {
		running, peak := 0, 0
		for i := start; i < end; i++ {
			d := f.lines[i].depth[t]
			if running+d.peak > peak {
				peak = running + d.peak
			}
			running += d.net
		}
		depth[t] = peak
	}

	n := NestingDepth{Braces: depth[0], Parens: depth[1], Brackets: depth[2]}
	if f.lang.CommentStyle() == language.CommentHash {
		// Indentation is the block structure of hash-comment languages.
		if levels := f.indentLevels(start, end); levels > n.Braces {
			n.Braces = levels
		}
	}
	return n
}

func (f *fileFeatures) indentLevels(start, end int) int {
	base, deepest := math.MaxInt, 0
	for i := start; i < end; i++ {
		if f.lines[i].blank {
			continue
		}
		base = min(base, f.lines[i].indent)
		deepest = max(deepest, f.lines[i].indent)
	}
	if base == math.MaxInt {
		return 0
	}
	return (deepest - base) / 4
}

// structuralSignature hashes the coarse shape of a pattern for pre-clustering.
func structuralSignature(p StructuralPattern) uint64 {
	d := xxhash.New()
	for _, tok := range p.ControlFlow {
		d.WriteString(tok)
		d.WriteString(",")
	}
	buf := make([]byte, 0, 48)
	buf = append(buf, '|')
	buf = strconv.AppendInt(buf, int64(len(p.Calls)), 10)
	buf = append(buf, '|')
	buf = strconv.AppendInt(buf, int64(len(p.Declarations)), 10)
	buf = append(buf, '|')
	buf = strconv.AppendInt(buf, int64(p.Nesting.Braces), 10)
	buf = append(buf, '|')
	buf = strconv.AppendInt(buf, int64(math.Round(p.Complexity)), 10)
	d.Write(buf)
	return d.Sum64()
}

// signatureString is the readable signature used by the cross-file matcher.
func signatureString(p StructuralPattern) string {
	names := make([]string, 0, len(p.Calls))
	seen := make(map[string]bool, len(p.Calls))
	for _, c := range p.Calls {
		if !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("cf:")
	b.WriteString(strings.Join(p.ControlFlow, ","))
	b.WriteString("|calls:")
	b.WriteString(strings.Join(names, ","))
	b.WriteString("|depth:")
	b.WriteString(strconv.Itoa(p.Nesting.Braces))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(p.Nesting.Parens))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(p.Nesting.Brackets))
	return b.String()
}

func (f *fileFeatures) keywordCount(start, end int) int {
	return f.keywords[end] - f.keywords[start]
}

func (f *fileFeatures) commentRatio(start, end int) float64 {
	if end <= start {
		return 0
	}
	return float64(f.comments[end]-f.comments[start]) / float64(end-start)
}

func (f *fileFeatures) constructCounts(start, end int) []int {
	counts := make([]int, len(f.constructs))
	for c := range f.constructs {
		counts[c] = f.constructs[c][end] - f.constructs[c][start]
	}
	return counts
}

// identifierPattern concatenates, for every identifier, its first letter and a length bucket.
func (f *fileFeatures) identifierPattern(start, end int) string {
	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(f.lines[i].identPattern)
	}
	return b.String()
}

// indentPattern encodes the indentation of each non-blank line relative to the shallowest one.
func (f *fileFeatures) indentPattern(start, end int) string {
	base := math.MaxInt
	for i := start; i < end; i++ {
		if !f.lines[i].blank {
			base = min(base, f.lines[i].indent)
		}
	}
	const levels = "0123456789abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	for i := start; i < end; i++ {
		if f.lines[i].blank {
			continue
		}
		level := (f.lines[i].indent - base) / 2
		if level >= len(levels) {
			level = len(levels) - 1
		}
		b.WriteByte(levels[level])
	}
	return b.String()
}

// trimmedLines returns the non-blank lines of [start, end) without surrounding whitespace.
func (f *fileFeatures) trimmedLines(start, end int) []string {
	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		if !f.lines[i].blank {
			out = append(out, f.lines[i].trimmed)
		}
	}
	return out
}

func depthDeltas(code string) [3]depthDelta {
	var d [3]depthDelta
	var cur [3]int
	for i := 0; i < len(code); i++ {
		t := -1
		step := 1
		switch code[i] {
		case '{':
			t = 0
		case '}':
			t, step = 0, -1
		case '(':
			t = 1
		case ')':
			t, step = 1, -1
		case '[':
			t = 2
		case ']':
			t, step = 2, -1
		}
		if t < 0 {
			continue
		}
		cur[t] += step
		if cur[t] > d[t].peak {
			d[t].peak = cur[t]
		}
	}
	for t := range d {
		d[t].net = cur[t]
	}
	return d
}

func indentWidth(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}

func lowerFirst(w string) byte {
	c := w[0]
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func lengthBucket(n int) byte {
	bucket := n / 2
	if bucket > 9 {
		bucket = 9
	}
	return byte('0' + bucket)
}
