package duplication

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vitruves/dupsense/internal/language"
)

const (
	sharedUtilityThreshold = 3
	highRiskFileThreshold  = 2
	maxListedFiles         = 5
)

// SuggestionGenerator turns duplications into ranked refactoring proposals.
type SuggestionGenerator struct{}

func NewSuggestionGenerator() *SuggestionGenerator {
	return &SuggestionGenerator{}
}

// priorityScore orders duplications for suggestion generation.
func priorityScore(d Duplication) float64 {
	score := d.Risk.weight() +
		float64(len(d.Blocks))*50 +
		float64(d.LineCount)*2 +
		d.SimilarityScore*100
	if d.Type == CrossFile {
		score += 200
	}
	return score
}

// Generate returns one suggestion per duplication, highest priority first,
// followed by aggregate suggestions when their thresholds are met.
func (g *SuggestionGenerator) Generate(dups []Duplication) []Suggestion {
	ordered := append([]Duplication(nil), dups...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return priorityScore(ordered[i]) > priorityScore(ordered[j])
	})

	suggestions := make([]Suggestion, 0, len(ordered)+2)
	for _, d := range ordered {
		suggestions = append(suggestions, g.suggest(d))
	}

	if s, ok := sharedUtilitySuggestion(ordered); ok {
		suggestions = append(suggestions, s)
	}
	if s, ok := highRiskFilesSuggestion(ordered); ok {
		suggestions = append(suggestions, s)
	}
	return suggestions
}

// bestPattern picks the table entry that fits the duplication best. Ties go
// to the earlier entry.
func bestPattern(table []refactoringPattern, d Duplication) refactoringPattern {
	best, bestScore := table[0], table[0].mismatch(d.Type, d.LineCount)
	for _, p := range table[1:] {
		if score := p.mismatch(d.Type, d.LineCount); score < bestScore {
			best, bestScore = p, score
		}
	}
	return best
}

func duplicationLanguage(d Duplication) language.Language {
	for _, b := range d.Blocks {
		if lang := language.FromPath(b.FilePath); lang != language.Unknown {
			return lang
		}
	}
	return language.Unknown
}

func (g *SuggestionGenerator) suggest(d Duplication) Suggestion {
	lang := duplicationLanguage(d)
	pattern := bestPattern(patternTable(lang), d)
	text := textFor(lang, pattern.suggestion)
	fill := placeholders(d, lang, len(d.Blocks), d.Files())

	return Suggestion{
		ID:            suggestionID(d.ID, pattern.suggestion),
		DuplicationID: d.ID,
		Type:          pattern.suggestion,
		Title:         fill.Replace(text.title),
		Description:   fill.Replace(text.description),
		Approach:      fill.Replace(text.approach),
		Benefits:      benefits(d, pattern.suggestion),
		Complexity:    pattern.complexity(d.LineCount, d.SimilarityScore, len(d.Blocks)),
		CodeExample:   exampleFor(lang, pattern.suggestion),
		ResourceLinks: linksFor(lang, pattern.suggestion),
	}
}

func placeholders(d Duplication, lang language.Language, blocks int, files []string) *strings.Replacer {
	return strings.NewReplacer(
		"{lines}", strconv.Itoa(d.LineCount),
		"{blocks}", strconv.Itoa(blocks),
		"{files}", describeFiles(files),
		"{similarity}", fmt.Sprintf("%.0f%%", d.SimilarityScore*100),
		"{kind}", d.Type.String(),
		"{language}", lang.DisplayName(),
	)
}

func describeFiles(files []string) string {
	switch {
	case len(files) == 0:
		return "no files"
	case len(files) == 1:
		return files[0]
	case len(files) <= maxListedFiles:
		return strings.Join(files[:len(files)-1], ", ") + " and " + files[len(files)-1]
	default:
		return fmt.Sprintf("%s and %d more files", strings.Join(files[:maxListedFiles], ", "), len(files)-maxListedFiles)
	}
}

func suggestionID(dupID string, typ SuggestionType) string {
	return uuid.NewSHA1(idNamespace, []byte("suggestion|"+dupID+"|"+string(typ))).String()
}

func benefits(d Duplication, typ SuggestionType) []string {
	out := []string{
		fmt.Sprintf("Removes %d redundant copies of the same logic", len(d.Blocks)-1),
		"Bug fixes and changes apply in one place",
	}

	switch d.Type {
	case Exact:
		out = append(out, "Deletes byte-identical code with no behaviour change")
	case Structural:
		out = append(out, "Makes the shared algorithm explicit instead of implied by similar shapes")
	case CrossFile:
		out = append(out, fmt.Sprintf("Decouples %d files that currently change together", len(d.Files())))
	}

	switch typ {
	case IntroduceGeneric, IntroduceInterface:
		out = append(out, "Lets the compiler check every type that uses the shared code")
	case ExtractModule, ExtractSharedUtility:
		out = append(out, "Gives the shared code a single home with its own tests")
	case ExtractMacro:
		out = append(out, "Keeps repetitive declarations consistent")
	}

	switch d.Risk {
	case RiskCritical:
		out = append(out, "Eliminates a critical source of divergent bug fixes")
	case RiskHigh:
		out = append(out, "Reduces the chance that a fix misses one of the copies")
	case RiskMedium:
		out = append(out, "Shrinks the code that has to be reviewed for each change")
	}
	return out
}

func sharedUtilitySuggestion(ordered []Duplication) (Suggestion, bool) {
	var crossFile []Duplication
	for _, d := range ordered {
		if d.Type == CrossFile {
			crossFile = append(crossFile, d)
		}
	}
	if len(crossFile) < sharedUtilityThreshold {
		return Suggestion{}, false
	}

	seen := make(map[string]bool)
	var files []string
	for _, d := range crossFile {
		for _, f := range d.Files() {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	sort.Strings(files)

	lead := crossFile[0]
	return aggregateSuggestion(lead, ExtractSharedUtility, len(crossFile), files, []string{
		fmt.Sprintf("Consolidates %d cross-file duplications", len(crossFile)),
		"Gives the shared code a single home with its own tests",
		"Reduces the cost of onboarding to the affected files",
	}), true
}

func highRiskFilesSuggestion(ordered []Duplication) (Suggestion, bool) {
	var lead *Duplication
	seen := make(map[string]bool)
	var files []string
	for i, d := range ordered {
		if d.Risk < RiskHigh {
			continue
		}
		if lead == nil {
			lead = &ordered[i]
		}
		for _, f := range d.Files() {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	if len(files) < highRiskFileThreshold {
		return Suggestion{}, false
	}
	sort.Strings(files)

	return aggregateSuggestion(*lead, RefactorHighRiskFiles, len(files), files, []string{
		fmt.Sprintf("Lowers the maintenance risk of %d files", len(files)),
		"Reduces the chance that a fix misses one of the copies",
	}), true
}

func aggregateSuggestion(lead Duplication, typ SuggestionType, count int, files []string, gains []string) Suggestion {
	text := textFor(language.Unknown, typ)
	fill := placeholders(lead, language.Unknown, count, files)

	complexity := ComplexityMedium
	if len(files) > maxListedFiles {
		complexity = ComplexityHigh
	}

	return Suggestion{
		ID:            suggestionID(lead.ID, typ),
		DuplicationID: lead.ID,
		Type:          typ,
		Title:         fill.Replace(text.title),
		Description:   fill.Replace(text.description),
		Approach:      fill.Replace(text.approach),
		Benefits:      gains,
		Complexity:    complexity,
		ResourceLinks: linksFor(language.Unknown, typ),
	}
}
