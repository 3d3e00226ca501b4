package preprocess

import (
	"regexp"
	"strings"

	"github.com/vitruves/dupsense/internal/language"
)

var (
	csharpUsingRegex = regexp.MustCompile(`^using\s+(static\s+)?[\w.]+(\s*=\s*[\w.<>]+)?\s*;`)
	requireRegex     = regexp.MustCompile(`^(const|let|var)\s+[\w{}\s,]+=\s*require\(`)
)

// importFilter recognizes import-like statements line by line. It keeps
// state so multi-line import blocks are removed as a whole.
type importFilter struct {
	lang language.Language
	// terminator ends the multi-line import currently being skipped.
	terminator string
}

func newImportFilter(lang language.Language) *importFilter {
	return &importFilter{lang: lang}
}

func (f *importFilter) skip(line string) bool {
	trimmed := strings.TrimSpace(line)

	if f.terminator != "" {
		if strings.Contains(trimmed, f.terminator) {
			f.terminator = ""
		}
		return true
	}

	switch f.lang {
	case language.Go:
		if trimmed == "import (" {
			f.terminator = ")"
			return true
		}
		return strings.HasPrefix(trimmed, "import ")
	case language.Python:
		if strings.HasPrefix(trimmed, "import ") || (strings.HasPrefix(trimmed, "from ") && strings.Contains(trimmed, " import ")) {
			if strings.HasSuffix(trimmed, "(") {
				f.terminator = ")"
			}
			return true
		}
	case language.Rust:
		if strings.HasPrefix(trimmed, "use ") || strings.HasPrefix(trimmed, "pub use ") || strings.HasPrefix(trimmed, "extern crate ") {
			if !strings.Contains(trimmed, ";") {
				f.terminator = ";"
			}
			return true
		}
	case language.JavaScript, language.TypeScript:
		if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "import{") {
			if strings.Contains(trimmed, "{") && !strings.Contains(trimmed, "}") {
				f.terminator = "}"
			}
			return true
		}
		if strings.HasPrefix(trimmed, "export ") && strings.Contains(trimmed, " from ") {
			return true
		}
		return requireRegex.MatchString(trimmed)
	case language.Java, language.Kotlin, language.Scala, language.Swift:
		return strings.HasPrefix(trimmed, "import ")
	case language.C, language.Cpp:
		return strings.HasPrefix(trimmed, "#include") || strings.HasPrefix(trimmed, "# include")
	case language.CSharp:
		return csharpUsingRegex.MatchString(trimmed)
	case language.PHP:
		for _, prefix := range []string{"use ", "require ", "require_once", "include ", "include_once"} {
			if strings.HasPrefix(trimmed, prefix) {
				return true
			}
		}
	case language.Ruby:
		return strings.HasPrefix(trimmed, "require ") || strings.HasPrefix(trimmed, "require_relative ")
	case language.Shell:
		return strings.HasPrefix(trimmed, "source ") || strings.HasPrefix(trimmed, ". ")
	}

	return false
}
