package language

import (
	"path/filepath"
	"strings"
	"sync"
)

// Language identifies the source language of a file.
type Language string

const (
	Unknown    Language = "unknown"
	Go         Language = "go"
	Rust       Language = "rust"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Java       Language = "java"
	Kotlin     Language = "kotlin"
	Scala      Language = "scala"
	C          Language = "c"
	Cpp        Language = "cpp"
	CSharp     Language = "csharp"
	Swift      Language = "swift"
	PHP        Language = "php"
	Ruby       Language = "ruby"
	Shell      Language = "shell"
)

// CommentStyle describes which comment syntax a language uses.
type CommentStyle int

const (
	CommentNone CommentStyle = iota
	CommentCStyle
	CommentHash
)

var extensionMap = map[Language][]string{
	Go:         {".go"},
	Rust:       {".rs"},
	Python:     {".py", ".pyw", ".pyi"},
	JavaScript: {".js", ".jsx", ".mjs", ".cjs"},
	TypeScript: {".ts", ".tsx"},
	Java:       {".java"},
	Kotlin:     {".kt", ".kts"},
	Scala:      {".scala"},
	C:          {".c", ".h"},
	Cpp:        {".cpp", ".cxx", ".cc", ".hpp", ".hxx", ".hh"},
	CSharp:     {".cs"},
	Swift:      {".swift"},
	PHP:        {".php", ".phtml"},
	Ruby:       {".rb"},
	Shell:      {".sh", ".bash", ".zsh"},
}

var aliases = map[string]Language{
	"golang":     Go,
	"rs":         Rust,
	"py":         Python,
	"js":         JavaScript,
	"ts":         TypeScript,
	"c++":        Cpp,
	"cs":         CSharp,
	"c#":         CSharp,
	"rb":         Ruby,
	"sh":         Shell,
	"bash":       Shell,
	"kt":         Kotlin,
	"javascript": JavaScript,
	"typescript": TypeScript,
}

var byExtension = func() map[string]Language {
	m := make(map[string]Language)
	for lang, exts := range extensionMap {
		for _, ext := range exts {
			m[ext] = lang
		}
	}
	return m
}()

// Parse resolves a user-supplied language name or alias.
func Parse(name string) Language {
	name = strings.ToLower(strings.TrimSpace(name))
	if lang, ok := aliases[name]; ok {
		return lang
	}
	if _, ok := extensionMap[Language(name)]; ok {
		return Language(name)
	}
	return Unknown
}

// FromPath guesses the language from the file extension.
func FromPath(path string) Language {
	if lang, ok := byExtension[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return Unknown
}

// Extensions returns the file extensions for lang.
func Extensions(lang Language) []string {
	return extensionMap[lang]
}

func (l Language) CommentStyle() CommentStyle {
	switch l {
	case Python, Ruby, Shell:
		return CommentHash
	case Unknown:
		return CommentNone
	default:
		return CommentCStyle
	}
}

// DisplayName is the human readable name used in reports and suggestions.
func (l Language) DisplayName() string {
	switch l {
	case Go:
		return "Go"
	case Rust:
		return "Rust"
	case Python:
		return "Python"
	case JavaScript:
		return "JavaScript"
	case TypeScript:
		return "TypeScript"
	case Java:
		return "Java"
	case Kotlin:
		return "Kotlin"
	case Scala:
		return "Scala"
	case C:
		return "C"
	case Cpp:
		return "C++"
	case CSharp:
		return "C#"
	case Swift:
		return "Swift"
	case PHP:
		return "PHP"
	case Ruby:
		return "Ruby"
	case Shell:
		return "Shell"
	default:
		return "Unknown"
	}
}

// Detector determines the language of a file.
type Detector interface {
	Detect(path string, content []byte) Language
}

// ExtensionDetector detects languages by file extension and falls back to a shebang check.
type ExtensionDetector struct{}

func (ExtensionDetector) Detect(path string, content []byte) Language {
	if lang := FromPath(path); lang != Unknown {
		return lang
	}
	return fromShebang(content)
}

func fromShebang(content []byte) Language {
	if len(content) < 3 || content[0] != '#' || content[1] != '!' {
		return Unknown
	}
	line := string(content)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	switch {
	case strings.Contains(line, "python"):
		return Python
	case strings.Contains(line, "ruby"):
		return Ruby
	case strings.Contains(line, "node"):
		return JavaScript
	case strings.Contains(line, "sh"):
		return Shell
	}
	return Unknown
}

// Shared guards a Detector with a mutex so one instance can be reused across goroutines.
type Shared struct {
	mu       sync.Mutex
	detector Detector
}

func NewShared(detector Detector) *Shared {
	if detector == nil {
		detector = ExtensionDetector{}
	}
	return &Shared{detector: detector}
}

func (s *Shared) Detect(path string, content []byte) Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector.Detect(path, content)
}
