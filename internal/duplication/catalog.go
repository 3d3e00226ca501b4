package duplication

import "github.com/vitruves/dupsense/internal/language"

// refactoringPattern is one entry of a language's pattern table. maxLines
// of zero means unbounded.
type refactoringPattern struct {
	name       string
	types      []DuplicationType
	minLines   int
	maxLines   int
	suggestion SuggestionType
	complexity func(lines int, similarity float64, blocks int) Complexity
}

func (p refactoringPattern) accepts(typ DuplicationType) bool {
	for _, t := range p.types {
		if t == typ {
			return true
		}
	}
	return false
}

// mismatch is how far lines fall outside the pattern's range, plus a large
// penalty when the duplication type is not one the pattern handles.
func (p refactoringPattern) mismatch(typ DuplicationType, lines int) int {
	distance := 0
	switch {
	case lines < p.minLines:
		distance = p.minLines - lines
	case p.maxLines > 0 && lines > p.maxLines:
		distance = lines - p.maxLines
	}
	if !p.accepts(typ) {
		distance += 1000
	}
	return distance
}

func bySize(lines int, _ float64, _ int) Complexity {
	switch {
	case lines < 20:
		return ComplexityLow
	case lines < 50:
		return ComplexityMedium
	default:
		return ComplexityHigh
	}
}

func byCopies(lines int, _ float64, blocks int) Complexity {
	switch {
	case blocks > 4 || lines >= 80:
		return ComplexityHigh
	case blocks > 2 || lines >= 30:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}

// byVariance rates structural refactorings: the less alike the copies are,
// the more has to be parameterized.
func byVariance(lines int, similarity float64, _ int) Complexity {
	switch {
	case similarity < 0.85 || lines >= 60:
		return ComplexityHigh
	case similarity < 0.95 || lines >= 25:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}

func alwaysHigh(int, float64, int) Complexity { return ComplexityHigh }

var (
	anyType       = []DuplicationType{Exact, Structural, CrossFile}
	textual       = []DuplicationType{Exact, CrossFile}
	shapeOnly     = []DuplicationType{Structural}
	shapeAndFiles = []DuplicationType{Structural, CrossFile}
	acrossFiles   = []DuplicationType{CrossFile}
)

var patternTables = map[language.Language][]refactoringPattern{
	language.Rust: {
		{"extract function", textual, 5, 40, ExtractFunction, bySize},
		{"declarative macro", anyType, 5, 30, ExtractMacro, byCopies},
		{"generic function", shapeOnly, 10, 100, IntroduceGeneric, byVariance},
		{"shared trait", shapeAndFiles, 20, 0, IntroduceInterface, byVariance},
		{"shared module", acrossFiles, 30, 0, ExtractModule, alwaysHigh},
	},
	language.Go: {
		{"extract function", textual, 5, 50, ExtractFunction, bySize},
		{"type parameters", shapeOnly, 8, 80, IntroduceGeneric, byVariance},
		{"small interface", shapeAndFiles, 15, 0, IntroduceInterface, byVariance},
		{"function parameter", shapeOnly, 5, 30, ParameterizeFunction, byVariance},
		{"internal package", acrossFiles, 30, 0, ExtractModule, alwaysHigh},
	},
	language.Python: {
		{"extract function", textual, 5, 40, ExtractFunction, bySize},
		{"keyword arguments", shapeOnly, 5, 30, ParameterizeFunction, byVariance},
		{"template method", shapeAndFiles, 15, 0, TemplateMethod, byVariance},
		{"shared module", acrossFiles, 25, 0, ExtractModule, byCopies},
	},
	language.JavaScript: {
		{"extract function", textual, 5, 40, ExtractFunction, bySize},
		{"options object", shapeOnly, 5, 40, ParameterizeFunction, byVariance},
		{"shared module", acrossFiles, 20, 0, ExtractModule, byCopies},
		{"higher-order function", shapeAndFiles, 30, 0, TemplateMethod, byVariance},
	},
	language.TypeScript: {
		{"extract function", textual, 5, 40, ExtractFunction, bySize},
		{"generic function", shapeOnly, 8, 60, IntroduceGeneric, byVariance},
		{"shared interface", shapeAndFiles, 20, 0, IntroduceInterface, byVariance},
		{"shared module", acrossFiles, 25, 0, ExtractModule, byCopies},
	},
	language.Unknown: {
		{"extract function", textual, 5, 40, ExtractFunction, bySize},
		{"parameterize", shapeOnly, 5, 40, ParameterizeFunction, byVariance},
		{"template method", shapeAndFiles, 25, 0, TemplateMethod, byVariance},
		{"shared module", acrossFiles, 30, 0, ExtractModule, alwaysHigh},
	},
}

func patternTable(lang language.Language) []refactoringPattern {
	if table, ok := patternTables[lang]; ok {
		return table
	}
	return patternTables[language.Unknown]
}

// suggestionText holds templates with {lines}, {blocks}, {files},
// {similarity}, {kind} and {language} placeholders.
type suggestionText struct {
	title       string
	description string
	approach    string
}

type textKey struct {
	lang language.Language
	typ  SuggestionType
}

var suggestionTexts = map[textKey]suggestionText{
	{language.Unknown, ExtractFunction}: {
		"Extract {lines} duplicated lines into a function",
		"The same {lines}-line block appears {blocks} times in {files}. Every copy must be kept in sync by hand.",
		"Move the block into a single function, pass the values that differ as parameters and replace each copy with a call.",
	},
	{language.Unknown, ExtractModule}: {
		"Move shared code into a common module",
		"{blocks} copies of a {lines}-line block are spread over {files}. The logic belongs in one place that all of these files import.",
		"Create a module for the shared logic, move the code there once and import it from each file.",
	},
	{language.Unknown, IntroduceInterface}: {
		"Introduce a common interface",
		"{blocks} blocks with the same structure ({similarity} similar) implement the same behaviour against different types.",
		"Describe the operations the blocks rely on as an interface, implement it for each type and write the shared logic once against the interface.",
	},
	{language.Unknown, IntroduceGeneric}: {
		"Replace copies with a generic implementation",
		"{blocks} structurally identical blocks ({similarity} similar) differ mostly in the types they handle.",
		"Write the logic once with a type parameter and instantiate it for each type that needs it.",
	},
	{language.Unknown, TemplateMethod}: {
		"Apply the template method pattern",
		"{blocks} blocks share the same {lines}-line skeleton ({similarity} similar) but vary in a few steps.",
		"Keep the common skeleton in one place and let callers supply only the steps that differ.",
	},
	{language.Unknown, ParameterizeFunction}: {
		"Parameterize the duplicated logic",
		"{blocks} near-identical {kind} blocks ({similarity} similar) differ only in a few values.",
		"Turn the differing values into parameters of a single function and call it from each location.",
	},
	{language.Unknown, ExtractMacro}: {
		"Generate the repeated code",
		"{blocks} copies of a {lines}-line pattern repeat with small syntactic differences.",
		"Capture the pattern once with the language's code generation facility and expand it at each site.",
	},
	{language.Unknown, ExtractSharedUtility}: {
		"Extract a shared utility package",
		"{blocks} cross-file duplications were found across {files}. The repeated logic is a utility in disguise.",
		"Collect the duplicated helpers into one utility package with tests and migrate the call sites one file at a time.",
	},
	{language.Unknown, RefactorHighRiskFiles}: {
		"Refactor files with high-risk duplication",
		"{files} each contain high or critical risk duplications. Changes to these files are likely to miss a copy.",
		"Start with the largest duplications in these files, consolidate them and add tests before further changes.",
	},

	{language.Rust, ExtractMacro}: {
		"Extract a declarative macro",
		"The same {lines}-line pattern appears {blocks} times in {files} with only token-level differences.",
		"Write a macro_rules! macro that captures the varying parts as fragments and invoke it at each site.",
	},
	{language.Rust, IntroduceGeneric}: {
		"Introduce a generic function with trait bounds",
		"{blocks} blocks ({similarity} similar) perform the same steps on different types.",
		"Write one generic function bounded by the traits the blocks use and call it with each concrete type.",
	},
	{language.Rust, IntroduceInterface}: {
		"Introduce a shared trait",
		"{blocks} blocks with the same shape ({similarity} similar) implement one behaviour for several types.",
		"Define a trait for the behaviour, implement it for each type and move the shared logic into a default method or generic function.",
	},
	{language.Go, IntroduceInterface}: {
		"Introduce a small interface",
		"{blocks} blocks with the same shape ({similarity} similar) repeat one algorithm for different concrete types.",
		"Declare an interface with the methods the algorithm needs, accept it in one function and delete the per-type copies.",
	},
	{language.Go, IntroduceGeneric}: {
		"Use type parameters",
		"{blocks} blocks ({similarity} similar) differ mainly in the element types they operate on.",
		"Write one function with a type parameter constrained to the needed operations and instantiate it at each call site.",
	},
	{language.Go, ExtractModule}: {
		"Move shared code into an internal package",
		"{blocks} copies of a {lines}-line block live in {files}.",
		"Create a package under internal/ for the shared logic, export one function and import it from each file.",
	},
	{language.Python, TemplateMethod}: {
		"Apply the template method pattern",
		"{blocks} blocks share the same {lines}-line skeleton ({similarity} similar) with different steps.",
		"Put the skeleton in a base class method and override only the differing steps in subclasses, or pass them in as callables.",
	},
	{language.Python, ParameterizeFunction}: {
		"Parameterize with keyword arguments",
		"{blocks} near-identical blocks ({similarity} similar) differ only in a few values.",
		"Write one function taking the differing values as keyword arguments with sensible defaults.",
	},
	{language.JavaScript, ExtractModule}: {
		"Extract a shared ES module",
		"{blocks} copies of a {lines}-line block are spread over {files}.",
		"Move the code into a module, export it and import it where the copies used to be.",
	},
	{language.TypeScript, IntroduceInterface}: {
		"Introduce a shared TypeScript interface",
		"{blocks} blocks ({similarity} similar) handle objects with the same shape.",
		"Declare an interface for the shape and write the shared function against it.",
	},
}

func textFor(lang language.Language, typ SuggestionType) suggestionText {
	if text, ok := suggestionTexts[textKey{lang, typ}]; ok {
		return text
	}
	return suggestionTexts[textKey{language.Unknown, typ}]
}

var codeExamples = map[textKey]CodeExample{
	{language.Go, ExtractFunction}: {
		Language: "go",
		Before: `func (s *Store) SaveUser(u User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return s.db.Put("users/"+u.ID, data)
}

func (s *Store) SaveOrder(o Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return s.db.Put("orders/"+o.ID, data)
}`,
		After: `func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return s.db.Put(key, data)
}

func (s *Store) SaveUser(u User) error   { return s.put("users/"+u.ID, u) }
func (s *Store) SaveOrder(o Order) error { return s.put("orders/"+o.ID, o) }`,
	},
	{language.Go, IntroduceGeneric}: {
		Language: "go",
		Before: `func SumInts(xs []int) int {
	var total int
	for _, x := range xs {
		total += x
	}
	return total
}

func SumFloats(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}`,
		After: `func Sum[T int | float64](xs []T) T {
	var total T
	for _, x := range xs {
		total += x
	}
	return total
}`,
	},
	{language.Rust, ExtractMacro}: {
		Language: "rust",
		Before: `impl From<io::Error> for AppError {
    fn from(e: io::Error) -> Self { AppError::Io(e) }
}
impl From<ParseIntError> for AppError {
    fn from(e: ParseIntError) -> Self { AppError::Parse(e) }
}`,
		After: `macro_rules! impl_from {
    ($src:ty => $variant:ident) => {
        impl From<$src> for AppError {
            fn from(e: $src) -> Self { AppError::$variant(e) }
        }
    };
}

impl_from!(io::Error => Io);
impl_from!(ParseIntError => Parse);`,
	},
	{language.Rust, IntroduceGeneric}: {
		Language: "rust",
		Before: `fn largest_i32(list: &[i32]) -> i32 {
    let mut largest = list[0];
    for &item in list {
        if item > largest { largest = item; }
    }
    largest
}

fn largest_char(list: &[char]) -> char {
    let mut largest = list[0];
    for &item in list {
        if item > largest { largest = item; }
    }
    largest
}`,
		After: `fn largest<T: PartialOrd + Copy>(list: &[T]) -> T {
    let mut largest = list[0];
    for &item in list {
        if item > largest { largest = item; }
    }
    largest
}`,
	},
	{language.Python, ExtractFunction}: {
		Language: "python",
		Before: `def load_users(path):
    with open(path) as f:
        rows = [line.strip().split(",") for line in f if line.strip()]
    return [User(*row) for row in rows]

def load_orders(path):
    with open(path) as f:
        rows = [line.strip().split(",") for line in f if line.strip()]
    return [Order(*row) for row in rows]`,
		After: `def read_rows(path):
    with open(path) as f:
        return [line.strip().split(",") for line in f if line.strip()]

def load_users(path):
    return [User(*row) for row in read_rows(path)]

def load_orders(path):
    return [Order(*row) for row in read_rows(path)]`,
	},
	{language.Python, TemplateMethod}: {
		Language: "python",
		Before: `class CsvExport:
    def run(self, rows):
        self.open()
        for row in rows:
            self.out.write(",".join(row))
        self.close()

class TsvExport:
    def run(self, rows):
        self.open()
        for row in rows:
            self.out.write("\t".join(row))
        self.close()`,
		After: `class Export:
    separator = ","

    def run(self, rows):
        self.open()
        for row in rows:
            self.out.write(self.separator.join(row))
        self.close()

class TsvExport(Export):
    separator = "\t"`,
	},
	{language.JavaScript, ExtractModule}: {
		Language: "javascript",
		Before: `// users.js
function formatDate(d) {
  return d.toISOString().slice(0, 10);
}

// orders.js
function formatDate(d) {
  return d.toISOString().slice(0, 10);
}`,
		After: `// dates.js
export function formatDate(d) {
  return d.toISOString().slice(0, 10);
}

// users.js, orders.js
import { formatDate } from "./dates.js";`,
	},
	{language.TypeScript, IntroduceInterface}: {
		Language: "typescript",
		Before: `function describeCat(c: Cat): string { return c.name + " (" + c.age + ")"; }
function describeDog(d: Dog): string { return d.name + " (" + d.age + ")"; }`,
		After: `interface Named { name: string; age: number; }

function describe(p: Named): string { return p.name + " (" + p.age + ")"; }`,
	},
}

func exampleFor(lang language.Language, typ SuggestionType) *CodeExample {
	if ex, ok := codeExamples[textKey{lang, typ}]; ok {
		return &ex
	}
	return nil
}

var resourceLinks = map[SuggestionType][]string{
	ExtractFunction: {
		"https://refactoring.guru/extract-method",
		"https://refactoring.guru/smells/duplicate-code",
	},
	ExtractModule: {
		"https://refactoring.guru/extract-class",
		"https://refactoring.guru/smells/duplicate-code",
	},
	IntroduceInterface: {
		"https://refactoring.guru/extract-interface",
		"https://refactoring.guru/design-patterns/strategy",
	},
	IntroduceGeneric: {
		"https://refactoring.guru/smells/duplicate-code",
	},
	TemplateMethod: {
		"https://refactoring.guru/design-patterns/template-method",
		"https://refactoring.guru/form-template-method",
	},
	ParameterizeFunction: {
		"https://refactoring.guru/parameterize-method",
	},
	ExtractMacro: {
		"https://doc.rust-lang.org/book/ch19-06-macros.html",
	},
	ExtractSharedUtility: {
		"https://refactoring.guru/extract-class",
		"https://refactoring.guru/smells/duplicate-code",
	},
	RefactorHighRiskFiles: {
		"https://refactoring.guru/refactoring/when",
		"https://refactoring.guru/smells/duplicate-code",
	},
}

var languageLinks = map[textKey][]string{
	{language.Go, IntroduceGeneric}:         {"https://go.dev/doc/tutorial/generics"},
	{language.Go, IntroduceInterface}:       {"https://go.dev/doc/effective_go#interfaces"},
	{language.Rust, IntroduceGeneric}:       {"https://doc.rust-lang.org/book/ch10-01-syntax.html"},
	{language.Rust, IntroduceInterface}:     {"https://doc.rust-lang.org/book/ch10-02-traits.html"},
	{language.TypeScript, IntroduceGeneric}: {"https://www.typescriptlang.org/docs/handbook/2/generics.html"},
}

func linksFor(lang language.Language, typ SuggestionType) []string {
	links := append([]string(nil), languageLinks[textKey{lang, typ}]...)
	return append(links, resourceLinks[typ]...)
}
