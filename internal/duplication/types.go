package duplication

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("invalid duplication config")
	// ErrInvariant marks an internal consistency failure inside a detector.
	ErrInvariant = errors.New("duplication invariant violated")
)

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/vitruves/dupsense"))

// DuplicationType names the detector that produced a finding.
type DuplicationType int

const (
	Exact DuplicationType = iota
	Structural
	CrossFile
)

func (t DuplicationType) String() string {
	switch t {
	case Exact:
		return "exact"
	case Structural:
		return "structural"
	case CrossFile:
		return "cross_file"
	default:
		return fmt.Sprintf("DuplicationType(%d)", int(t))
	}
}

func (t DuplicationType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *DuplicationType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "exact":
		*t = Exact
	case "structural":
		*t = Structural
	case "cross_file":
		*t = CrossFile
	default:
		return fmt.Errorf("unknown duplication type %q", text)
	}
	return nil
}

// CodeBlock is a located span of a source file. Lines are 1-based and refer
// to the original file; columns are zero when unknown.
type CodeBlock struct {
	FilePath    string `json:"file_path" yaml:"file_path"`
	StartLine   int    `json:"start_line" yaml:"start_line"`
	EndLine     int    `json:"end_line" yaml:"end_line"`
	StartColumn int    `json:"start_column,omitempty" yaml:"start_column,omitempty"`
	EndColumn   int    `json:"end_column,omitempty" yaml:"end_column,omitempty"`
	ContentHash string `json:"content_hash" yaml:"content_hash"`
}

// Lines is the number of original lines spanned by the block.
func (b CodeBlock) Lines() int {
	return b.EndLine - b.StartLine + 1
}

func (b CodeBlock) String() string {
	return fmt.Sprintf("%s:%d-%d", b.FilePath, b.StartLine, b.EndLine)
}

// Duplication is one finding: a set of locations sharing the same code.
type Duplication struct {
	ID                    string          `json:"id" yaml:"id"`
	Type                  DuplicationType `json:"duplication_type" yaml:"duplication_type"`
	Blocks                []CodeBlock     `json:"code_blocks" yaml:"code_blocks"`
	RepresentativeContent string          `json:"representative_content" yaml:"representative_content"`
	LineCount             int             `json:"line_count" yaml:"line_count"`
	SimilarityScore       float64         `json:"similarity_score" yaml:"similarity_score"`
	Risk                  RiskLevel       `json:"risk_level" yaml:"risk_level"`
	Priority              Priority        `json:"refactoring_priority" yaml:"refactoring_priority"`
}

// Files returns the distinct file paths referenced by the duplication, sorted.
func (d Duplication) Files() []string {
	seen := make(map[string]bool, len(d.Blocks))
	var files []string
	for _, b := range d.Blocks {
		if !seen[b.FilePath] {
			seen[b.FilePath] = true
			files = append(files, b.FilePath)
		}
	}
	sort.Strings(files)
	return files
}

// newDuplication builds a Duplication and enforces the invariants every
// detector must respect. A failure here is a detector bug.
func newDuplication(typ DuplicationType, blocks []CodeBlock, content string, lineCount int, similarity float64) (Duplication, error) {
	if len(blocks) < 2 {
		return Duplication{}, fmt.Errorf("%w: %s duplication needs at least 2 blocks, got %d", ErrInvariant, typ, len(blocks))
	}
	if similarity < 0 || similarity > 1 {
		return Duplication{}, fmt.Errorf("%w: similarity %.4f out of range", ErrInvariant, similarity)
	}
	if typ == Exact && similarity != 1.0 {
		return Duplication{}, fmt.Errorf("%w: exact duplication with similarity %.4f", ErrInvariant, similarity)
	}

	seen := make(map[string]bool, len(blocks))
	files := make(map[string]bool, len(blocks))
	var key strings.Builder
	key.WriteString(typ.String())
	for _, b := range blocks {
		if b.EndLine < b.StartLine {
			return Duplication{}, fmt.Errorf("%w: block %s ends before it starts", ErrInvariant, b)
		}
		loc := b.String()
		if seen[loc] {
			return Duplication{}, fmt.Errorf("%w: block %s listed twice", ErrInvariant, loc)
		}
		seen[loc] = true
		files[b.FilePath] = true
		key.WriteByte('|')
		key.WriteString(loc)
	}
	if typ == CrossFile && len(files) < 2 {
		return Duplication{}, fmt.Errorf("%w: cross-file duplication spans a single file", ErrInvariant)
	}

	risk := AssessRisk(lineCount, similarity)
	return Duplication{
		ID:                    uuid.NewSHA1(idNamespace, []byte(key.String())).String(),
		Type:                  typ,
		Blocks:                blocks,
		RepresentativeContent: content,
		LineCount:             lineCount,
		SimilarityScore:       similarity,
		Risk:                  risk,
		Priority:              AssessPriority(risk, len(blocks)),
	}, nil
}

// SuggestionType identifies the kind of refactoring proposed.
type SuggestionType string

const (
	ExtractFunction       SuggestionType = "extract_function"
	ExtractModule         SuggestionType = "extract_module"
	IntroduceInterface    SuggestionType = "introduce_interface"
	IntroduceGeneric      SuggestionType = "introduce_generic"
	TemplateMethod        SuggestionType = "template_method"
	ParameterizeFunction  SuggestionType = "parameterize_function"
	ExtractMacro          SuggestionType = "extract_macro"
	ExtractSharedUtility  SuggestionType = "extract_shared_utility"
	RefactorHighRiskFiles SuggestionType = "refactor_high_risk_files"
)

// Complexity estimates the effort needed to apply a suggestion.
type Complexity int

const (
	ComplexityLow Complexity = iota
	ComplexityMedium
	ComplexityHigh
)

func (c Complexity) String() string {
	switch c {
	case ComplexityLow:
		return "low"
	case ComplexityMedium:
		return "medium"
	case ComplexityHigh:
		return "high"
	default:
		return fmt.Sprintf("Complexity(%d)", int(c))
	}
}

func (c Complexity) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Complexity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "low":
		*c = ComplexityLow
	case "medium":
		*c = ComplexityMedium
	case "high":
		*c = ComplexityHigh
	default:
		return fmt.Errorf("unknown complexity %q", text)
	}
	return nil
}

// CodeExample is an illustrative before/after pair.
type CodeExample struct {
	Language string `json:"language" yaml:"language"`
	Before   string `json:"before" yaml:"before"`
	After    string `json:"after" yaml:"after"`
}

// Suggestion is an actionable refactoring proposal tied to a duplication.
type Suggestion struct {
	ID            string         `json:"id" yaml:"id"`
	DuplicationID string         `json:"duplication_id" yaml:"duplication_id"`
	Type          SuggestionType `json:"suggestion_type" yaml:"suggestion_type"`
	Title         string         `json:"title" yaml:"title"`
	Description   string         `json:"description" yaml:"description"`
	Approach      string         `json:"refactoring_approach" yaml:"refactoring_approach"`
	Benefits      []string       `json:"expected_benefits" yaml:"expected_benefits"`
	Complexity    Complexity     `json:"implementation_complexity" yaml:"implementation_complexity"`
	CodeExample   *CodeExample   `json:"code_example,omitempty" yaml:"code_example,omitempty"`
	ResourceLinks []string       `json:"resource_links" yaml:"resource_links"`
}

// CacheStats reports the size and effectiveness of a detector cache.
type CacheStats struct {
	Entries int `json:"entries" yaml:"entries"`
	Hits    int `json:"hits" yaml:"hits"`
	Misses  int `json:"misses" yaml:"misses"`
}

// CrossFileStats describes the work done by the last cross-file run.
type CrossFileStats struct {
	FilePairsAnalyzed int           `json:"file_pairs_analyzed" yaml:"file_pairs_analyzed"`
	BlocksExtracted   int           `json:"blocks_extracted" yaml:"blocks_extracted"`
	DuplicationsFound int           `json:"duplications_found" yaml:"duplications_found"`
	Elapsed           time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Summary aggregates counters for one run.
type Summary struct {
	FilesAnalyzed   int            `json:"files_analyzed" yaml:"files_analyzed"`
	FilesSkipped    int            `json:"files_skipped" yaml:"files_skipped"`
	TotalLines      int            `json:"total_lines" yaml:"total_lines"`
	ExactCount      int            `json:"exact_count" yaml:"exact_count"`
	StructuralCount int            `json:"structural_count" yaml:"structural_count"`
	CrossFileCount  int            `json:"cross_file_count" yaml:"cross_file_count"`
	ByRisk          map[string]int `json:"by_risk" yaml:"by_risk"`
	SuggestionCount int            `json:"suggestion_count" yaml:"suggestion_count"`
	CrossFile       CrossFileStats `json:"cross_file_stats" yaml:"cross_file_stats"`
	Duration        time.Duration  `json:"duration" yaml:"duration"`
}

// Result is the output of one DetectDuplications call.
type Result struct {
	ProjectPath  string        `json:"project_path" yaml:"project_path"`
	Duplications []Duplication `json:"duplications" yaml:"duplications"`
	Suggestions  []Suggestion  `json:"suggestions" yaml:"suggestions"`
	Summary      Summary       `json:"summary" yaml:"summary"`
}

// OfType returns the duplications produced by one detector, in result order.
func (r *Result) OfType(typ DuplicationType) []Duplication {
	var out []Duplication
	for _, d := range r.Duplications {
		if d.Type == typ {
			out = append(out, d)
		}
	}
	return out
}
