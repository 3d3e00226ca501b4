package duplication

import (
	"regexp"
	"strings"
	"sync"

	"github.com/vitruves/dupsense/internal/language"
)

// CallKind classifies a call site.
type CallKind int

const (
	CallUser CallKind = iota
	CallStdlib
	CallConstructor
)

func (k CallKind) String() string {
	switch k {
	case CallStdlib:
		return "stdlib"
	case CallConstructor:
		return "constructor"
	default:
		return "user"
	}
}

type declarationRule struct {
	re    *regexp.Regexp
	class string
}

// languagePatterns holds the compiled tables for one language.
type languagePatterns struct {
	keywords    map[string]bool
	controlFlow map[string]string
	// declarationKeywords start a function declaration; the first call-like
	// match on such a line is the declared name, not a call.
	declarationKeywords []string
	declarations        []declarationRule
	stringLiteral       *regexp.Regexp
	stdlib              map[string]bool
	capitalizedIsCtor   bool
	constructs          []*regexp.Regexp
	commentPrefixes     []string
}

type patternSet struct {
	word     *regexp.Regexp
	call     *regexp.Regexp
	operator *regexp.Regexp
	byLang   map[language.Language]*languagePatterns
	fallback *languagePatterns
}

var (
	patternsOnce sync.Once
	compiled     *patternSet
)

// patterns returns the process-wide compiled tables, building them on first use.
func patterns() *patternSet {
	patternsOnce.Do(func() {
		compiled = buildPatterns()
	})
	return compiled
}

func (p *patternSet) forLanguage(lang language.Language) *languagePatterns {
	if lp, ok := p.byLang[lang]; ok {
		return lp
	}
	return p.fallback
}

var operatorWeights = map[string]float64{
	"&&": 1.5, "||": 1.5, "!": 1.0,
	"==": 1.0, "!=": 1.0, "<": 1.0, ">": 1.0, "<=": 1.0, ">=": 1.0,
	"+": 1.0, "-": 1.0, "*": 1.0, "/": 1.0, "%": 1.0,
	"&": 1.0, "|": 1.0, "^": 1.0, "<<": 1.0, ">>": 1.0,
	"=": 0.5, ":=": 0.5, "+=": 0.5, "-=": 0.5, "*=": 0.5, "/=": 0.5,
	"++": 0.5, "--": 0.5, "->": 0.5, "=>": 0.5,
}

// Python-like languages spell their logical operators as words.
var wordOperators = map[string]float64{"and": 1.5, "or": 1.5, "not": 1.0}

func words(s string) map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		m[w] = true
	}
	return m
}

func mustCompileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func buildPatterns() *patternSet {
	cString := regexp.MustCompile(`"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'|` + "`[^`]*`")
	rustString := regexp.MustCompile(`"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])'`)
	hashString := regexp.MustCompile(`"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`)

	baseFlow := map[string]string{
		"if": "if", "else": "else", "for": "for", "while": "while",
		"switch": "switch", "try": "try", "catch": "catch",
	}
	flow := func(extra map[string]string) map[string]string {
		m := make(map[string]string, len(baseFlow)+len(extra))
		for k, v := range baseFlow {
			m[k] = v
		}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}

	goLang := &languagePatterns{
		keywords:            words("break case chan const continue default defer else fallthrough for func go goto if import interface map package range return select struct switch type var nil true false"),
		controlFlow:         flow(map[string]string{"select": "switch", "try": "", "catch": ""}),
		declarationKeywords: []string{"func "},
		declarations: []declarationRule{
			{regexp.MustCompile(`^\s*var\s`), "var"},
			{regexp.MustCompile(`^\s*const\s`), "const"},
			{regexp.MustCompile(`:=`), "short"},
		},
		stringLiteral:   cString,
		stdlib:          words("fmt strings strconv os io bufio errors sort time math bytes filepath path sync context json http log regexp unicode utf8 atomic reflect slices maps len cap make new append copy delete panic recover print println close min max clear int int64 int32 float64 string byte rune bool uint uint64 error"),
		constructs:      mustCompileAll(`\bfunc\b`, `\binterface\b`, `\bgo\s+\w`, `\bchan\b|\bselect\b`, `\bdefer\b`),
		commentPrefixes: []string{"//", "/*", "* ", "*/"},
	}

	rust := &languagePatterns{
		keywords:            words("as break const continue crate else enum extern false fn for if impl in let loop match mod move mut pub ref return self Self static struct super trait true type unsafe use where while async await dyn"),
		controlFlow:         flow(map[string]string{"match": "switch", "loop": "for", "try": "", "catch": ""}),
		declarationKeywords: []string{"fn ", "pub fn ", "async fn ", "pub async fn ", "pub(crate) fn "},
		declarations: []declarationRule{
			{regexp.MustCompile(`\blet\s+mut\s`), "mutable"},
			{regexp.MustCompile(`\blet\s`), "immutable"},
			{regexp.MustCompile(`^\s*(pub\s+)?(const|static)\s`), "const"},
		},
		stringLiteral:   rustString,
		stdlib:          words("std core alloc println! print! eprintln! format! vec! panic! assert! assert_eq! write! writeln! Vec String Box Rc Arc HashMap HashSet Option Result Some Ok Err"),
		constructs:      mustCompileAll(`\bfn\b`, `\bstruct\b|\benum\b`, `\bmatch\b`, `\bimpl\b|\btrait\b`),
		commentPrefixes: []string{"//", "/*", "* ", "*/"},
	}

	python := &languagePatterns{
		keywords:            words("False None True and as assert async await break class continue def del elif else except finally for from global if import in is lambda nonlocal not or pass raise return try while with yield"),
		controlFlow:         flow(map[string]string{"elif": "if", "except": "catch", "switch": "", "match": "switch"}),
		declarationKeywords: []string{"def ", "async def ", "class "},
		declarations: []declarationRule{
			{regexp.MustCompile(`^\s*(global|nonlocal)\s`), "scope"},
			{regexp.MustCompile(`^\s*[A-Za-z_][\w.]*(\s*,\s*[A-Za-z_][\w.]*)*\s*(:\s*[\w\[\], .]+)?\s*=[^=]`), "assign"},
		},
		stringLiteral:   hashString,
		stdlib:          words("print len range open str int float dict list set tuple isinstance sorted enumerate zip map filter sum min max abs any all super getattr setattr hasattr type repr os sys json re math time datetime logging itertools collections functools subprocess pathlib"),
		constructs:      mustCompileAll(`\bdef\b`, `\bclass\b`, `\basync\b|\bawait\b`, `\byield\b`),
		commentPrefixes: []string{"#"},
	}

	js := &languagePatterns{
		keywords:            words("break case catch class const continue debugger default delete do else export extends finally for function if import in instanceof new return super switch this throw try typeof var void while with yield let static async await of null undefined true false interface type enum implements"),
		controlFlow:         flow(map[string]string{"do": "while"}),
		declarationKeywords: []string{"function ", "async function ", "export function ", "export async function "},
		declarations: []declarationRule{
			{regexp.MustCompile(`\blet\s`), "mutable"},
			{regexp.MustCompile(`\bconst\s`), "immutable"},
			{regexp.MustCompile(`\bvar\s`), "function_scope"},
		},
		stringLiteral:     cString,
		stdlib:            words("console Math JSON Object Array Promise Number String Date parseInt parseFloat setTimeout setInterval fetch require"),
		capitalizedIsCtor: true,
		constructs:        mustCompileAll(`\bfunction\b|=>`, `\bclass\b`, `\basync\b|\bawait\b`),
		commentPrefixes:   []string{"//", "/*", "* ", "*/"},
	}

	jvm := &languagePatterns{
		keywords:            words("abstract boolean break byte case catch char class const continue default do double else enum extends final finally float for if implements import instanceof int interface long new package private protected public return short static super switch this throw throws try void volatile while null true false var val fun when object override func let guard struct protocol extension using namespace foreach in is"),
		controlFlow:         flow(map[string]string{"foreach": "for", "when": "switch", "guard": "if", "repeat": "while", "do": "while"}),
		declarationKeywords: []string{"fun ", "func ", "def "},
		declarations: []declarationRule{
			{regexp.MustCompile(`\b(val|let|final)\s`), "immutable"},
			{regexp.MustCompile(`\bvar\s`), "mutable"},
			{regexp.MustCompile(`^\s*(?:[A-Z]\w*|int|long|double|float|boolean|char|byte|short|string|bool)(?:<[^>]*>)?(?:\[\])?\s+\w+\s*(=|;)`), "typed"},
		},
		stringLiteral:     cString,
		stdlib:            words("System Math String Integer List Arrays Collections Objects Optional Console Map Set println print listOf mapOf"),
		capitalizedIsCtor: true,
		constructs:        mustCompileAll(`\bclass\b`, `\binterface\b|\bprotocol\b`, `\bnew\b`),
		commentPrefixes:   []string{"//", "/*", "* ", "*/"},
	}

	cFamily := &languagePatterns{
		keywords:    words("auto break case char const continue default do double else enum extern float for goto if int long register return short signed sizeof static struct switch typedef union unsigned void volatile while class namespace template typename public private protected virtual new delete try catch throw using bool true false nullptr this"),
		controlFlow: flow(map[string]string{"do": "while"}),
		declarations: []declarationRule{
			{regexp.MustCompile(`^\s*(static\s+)?const(expr)?\s`), "const"},
			{regexp.MustCompile(`^\s*(?:static\s+)?(?:unsigned\s+|signed\s+)?(?:int|long|char|float|double|short|size_t|bool|auto|std::\w+(?:<[^>]*>)?|[A-Z]\w*)\s*[*&]?\s*\w+\s*(=|;|\[|\{)`), "typed"},
		},
		stringLiteral:     cString,
		stdlib:            words("printf fprintf sprintf snprintf malloc calloc realloc free memcpy memset memmove strlen strcmp strcpy strncpy fopen fclose fread fwrite sizeof exit assert std"),
		capitalizedIsCtor: true,
		constructs:        mustCompileAll(`\bstruct\b|\bclass\b`, `\btemplate\b`, `\bnew\b|\bmalloc\b`),
		commentPrefixes:   []string{"//", "/*", "* ", "*/"},
	}

	ruby := &languagePatterns{
		keywords:            words("begin end def class module if elsif else unless while until for in do return yield rescue ensure case when then nil true false self and or not"),
		controlFlow:         flow(map[string]string{"elsif": "if", "unless": "if", "until": "while", "case": "switch", "begin": "try", "rescue": "catch"}),
		declarationKeywords: []string{"def "},
		declarations: []declarationRule{
			{regexp.MustCompile(`^\s*@{0,2}[a-z_]\w*\s*=[^=~]`), "assign"},
		},
		stringLiteral:   hashString,
		stdlib:          words("puts print p require raise attr_accessor attr_reader format"),
		constructs:      mustCompileAll(`\bdef\b`, `\bclass\b|\bmodule\b`, `\byield\b|\bdo\b`),
		commentPrefixes: []string{"#"},
	}

	php := &languagePatterns{
		keywords:            words("function class if else elseif while for foreach as return new try catch finally switch case break continue public private protected static null true false echo array"),
		controlFlow:         flow(map[string]string{"elseif": "if", "foreach": "for"}),
		declarationKeywords: []string{"function ", "public function ", "private function ", "protected function ", "public static function "},
		declarations: []declarationRule{
			{regexp.MustCompile(`^\s*\$\w+\s*=[^=]`), "assign"},
		},
		stringLiteral:     hashString,
		stdlib:            words("strlen count array_map array_filter in_array explode implode json_encode json_decode sprintf printf isset empty str_replace"),
		capitalizedIsCtor: true,
		constructs:        mustCompileAll(`\bfunction\b`, `\bclass\b|\binterface\b`, `\bnew\b`),
		commentPrefixes:   []string{"//", "/*", "* ", "*/", "#"},
	}

	shell := &languagePatterns{
		keywords:            words("if then else elif fi for while until do done case esac function in return local export"),
		controlFlow:         map[string]string{"if": "if", "elif": "if", "else": "else", "for": "for", "while": "while", "until": "while", "case": "switch"},
		declarationKeywords: []string{"function "},
		declarations: []declarationRule{
			{regexp.MustCompile(`^\s*(local\s+|export\s+)?[A-Za-z_]\w*=`), "assign"},
		},
		stringLiteral:   hashString,
		stdlib:          words("echo printf read cd test exit"),
		constructs:      mustCompileAll(`\bfunction\b|\(\)\s*\{`, `\bcase\b`, `\|`),
		commentPrefixes: []string{"#"},
	}

	fallback := &languagePatterns{
		keywords:        words("if else for while switch case return function class def func fn try catch"),
		controlFlow:     baseFlow,
		stringLiteral:   cString,
		stdlib:          map[string]bool{},
		constructs:      mustCompileAll(`\bfunction\b|\bfunc\b|\bdef\b|\bfn\b`, `\bclass\b`),
		commentPrefixes: []string{"//", "#", "/*", "* ", "*/"},
	}

	return &patternSet{
		word:     regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`),
		call:     regexp.MustCompile(`([A-Za-z_]\w*(?:(?:\.|::)[A-Za-z_]\w*)*)(!?)\s*\(`),
		operator: regexp.MustCompile(`&&|\|\||==|!=|<=|>=|:=|\+=|-=|\*=|/=|<<|>>|->|=>|\+\+|--|[-+*/%<>=!&|^]`),
		byLang: map[language.Language]*languagePatterns{
			language.Go:         goLang,
			language.Rust:       rust,
			language.Python:     python,
			language.JavaScript: js,
			language.TypeScript: js,
			language.Java:       jvm,
			language.Kotlin:     jvm,
			language.Scala:      jvm,
			language.CSharp:     jvm,
			language.Swift:      jvm,
			language.C:          cFamily,
			language.Cpp:        cFamily,
			language.Ruby:       ruby,
			language.PHP:        php,
			language.Shell:      shell,
		},
		fallback: fallback,
	}
}

// classifyCall decides whether name is a standard-library, constructor-like
// or user-defined call.
func (lp *languagePatterns) classifyCall(name string, macro bool) CallKind {
	qualifier := name
	if i := strings.IndexAny(name, ".:"); i >= 0 {
		qualifier = name[:i]
	}
	last := name
	if i := strings.LastIndexAny(name, ".:"); i >= 0 {
		last = name[i+1:]
	}

	if lp.stdlib[qualifier] || (macro && lp.stdlib[name+"!"]) {
		return CallStdlib
	}
	if last == "new" || strings.HasPrefix(last, "New") || strings.HasPrefix(last, "new") ||
		strings.HasPrefix(last, "create") || strings.HasPrefix(last, "make") {
		return CallConstructor
	}
	if lp.capitalizedIsCtor && last != "" && last[0] >= 'A' && last[0] <= 'Z' {
		return CallConstructor
	}
	return CallUser
}

func (lp *languagePatterns) isComment(trimmed string) bool {
	if trimmed == "*" {
		return true
	}
	for _, prefix := range lp.commentPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

func (lp *languagePatterns) startsDeclaration(trimmed string) bool {
	for _, kw := range lp.declarationKeywords {
		if strings.HasPrefix(trimmed, kw) {
			return true
		}
	}
	return false
}
