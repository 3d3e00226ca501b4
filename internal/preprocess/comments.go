package preprocess

import (
	"strings"

	"github.com/vitruves/dupsense/internal/language"
)

// RemoveComments strips the comment syntax of lang from content. Newlines
// inside removed block comments are kept so line numbers stay stable.
func RemoveComments(content string, lang language.Language) string {
	switch lang.CommentStyle() {
	case language.CommentCStyle:
		return removeCStyleComments(content, lang)
	case language.CommentHash:
		return removeHashComments(content, lang)
	default:
		return content
	}
}

func removeCStyleComments(src string, lang language.Language) string {
	backtickStrings := lang == language.Go || lang == language.JavaScript || lang == language.TypeScript
	backtickEscapes := lang != language.Go

	var b strings.Builder
	b.Grow(len(src))

	for i := 0; i < len(src); {
		c := src[i]
		next := byte(0)
		if i+1 < len(src) {
			next = src[i+1]
		}

		switch {
		case c == '/' && next == '/':
			if j := strings.IndexByte(src[i:], '\n'); j >= 0 {
				i += j
			} else {
				i = len(src)
			}
		case c == '/' && next == '*':
			end := strings.Index(src[i+2:], "*/")
			var comment string
			if end < 0 {
				comment = src[i:]
				i = len(src)
			} else {
				comment = src[i : i+end+4]
				i += end + 4
			}
			b.WriteString(strings.Repeat("\n", strings.Count(comment, "\n")))
		case c == '"':
			j := scanString(src, i, '"', true, false)
			b.WriteString(src[i:j])
			i = j
		case c == '`' && backtickStrings:
			j := scanString(src, i, '`', backtickEscapes, true)
			b.WriteString(src[i:j])
			i = j
		case c == '\'' && lang == language.Rust:
			// Rust uses single quotes for lifetimes as well as char literals.
			j := rustCharLiteral(src, i)
			b.WriteString(src[i:j])
			i = j
		case c == '\'':
			j := scanString(src, i, '\'', true, false)
			b.WriteString(src[i:j])
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String()
}

func removeHashComments(src string, lang language.Language) string {
	python := lang == language.Python
	shellLike := lang == language.Shell

	var b strings.Builder
	b.Grow(len(src))
	lineStart := true

	for i := 0; i < len(src); {
		c := src[i]

		switch {
		case python && (strings.HasPrefix(src[i:], `"""`) || strings.HasPrefix(src[i:], `'''`)):
			delim := src[i : i+3]
			end := strings.Index(src[i+3:], delim)
			j := len(src)
			if end >= 0 {
				j = i + 3 + end + 3
			}
			if lineStart {
				// A string opening a statement is a docstring.
				b.WriteString(strings.Repeat("\n", strings.Count(src[i:j], "\n")))
			} else {
				b.WriteString(src[i:j])
			}
			i = j
			lineStart = false
			continue
		case c == '"' || c == '\'':
			j := scanString(src, i, c, true, false)
			b.WriteString(src[i:j])
			i = j
		case c == '#' && (!shellLike || i == 0 || isSpace(src[i-1]) || src[i-1] == ';'):
			if j := strings.IndexByte(src[i:], '\n'); j >= 0 {
				i += j
			} else {
				i = len(src)
			}
			continue
		default:
			b.WriteByte(c)
			i++
		}

		switch {
		case c == '\n':
			lineStart = true
		case !isSpace(c):
			lineStart = false
		}
	}

	return b.String()
}

// scanString returns the index just past the literal opened at src[i].
// Single-line literals end at an unescaped quote or at the end of the line.
func scanString(src string, i int, quote byte, escapes, multiline bool) int {
	j := i + 1
	for j < len(src) {
		switch c := src[j]; {
		case escapes && c == '\\':
			j += 2
			continue
		case c == quote:
			return j + 1
		case c == '\n' && !multiline:
			return j
		}
		j++
	}
	return len(src)
}

func rustCharLiteral(src string, i int) int {
	if i+2 < len(src) && src[i+1] == '\\' {
		if end := strings.IndexByte(src[i+2:], '\''); end >= 0 && end <= 8 {
			return i + 2 + end + 1
		}
	}
	if i+2 < len(src) && src[i+2] == '\'' && src[i+1] != '\n' {
		return i + 3
	}
	return i + 1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
