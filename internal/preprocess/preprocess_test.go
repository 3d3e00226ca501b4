package preprocess

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitruves/dupsense/internal/language"
)

func allOptions() Options {
	return Options{StripComments: true, StripBlankLines: true, StripImports: true}
}

func TestProcessGo(t *testing.T) {
	src := `package main

import (
	"fmt"
	"strings"
)

// greet prints a greeting.
func greet(name string) {
	/* block
	   comment */
	msg := "hello // not a comment"
	fmt.Println(strings.ToUpper(msg), name) // trailing
}
`
	got := Process("main.go", src, language.Go, allOptions())

	want := strings.Join([]string{
		"package main",
		"func greet(name string) {",
		`	msg := "hello // not a comment"`,
		"	fmt.Println(strings.ToUpper(msg), name)",
		"}",
	}, "\n")
	assert.Equal(t, want, got.Processed)
	assert.Equal(t, []int{1, 9, 12, 13, 14}, got.LineMap)
	assert.Equal(t, 12, got.OriginalLine(3))
	assert.Equal(t, src, got.Original)
	assert.Equal(t, 14, got.OriginalLineCount())
}

func TestProcessPython(t *testing.T) {
	src := `import os
from typing import (
    List,
    Dict,
)

def load(path):
    """Load a file."""
    data = open(path).read()  # read it
    url = "http://example.com/#anchor"
    return data
`
	got := Process("load.py", src, language.Python, allOptions())

	want := strings.Join([]string{
		"def load(path):",
		"    data = open(path).read()",
		`    url = "http://example.com/#anchor"`,
		"    return data",
	}, "\n")
	assert.Equal(t, want, got.Processed)
}

func TestProcessRustAndCpp(t *testing.T) {
	rust := "use std::collections::{\n    HashMap,\n};\nfn longest<'a>(x: &'a str) -> char {\n    let q = '\"'; // quote\n    q\n}\n"
	got := Process("lib.rs", rust, language.Rust, allOptions())
	assert.Equal(t, "fn longest<'a>(x: &'a str) -> char {\n    let q = '\"';\n    q\n}", got.Processed)

	cpp := "#include <vector>\nint add(int a, int b) { /* sum */ return a + b; }\n"
	got = Process("add.cpp", cpp, language.Cpp, allOptions())
	assert.Equal(t, "int add(int a, int b) {  return a + b; }", got.Processed)
}

func TestProcessKeepsBlankLinesAndImportsWhenDisabled(t *testing.T) {
	src := "import os\n\nx = 1  \n"
	got := Process("a.py", src, language.Python, Options{})
	assert.Equal(t, "import os\n\nx = 1", got.Processed)
	assert.Equal(t, []int{1, 2, 3}, got.LineMap)
}

func TestProcessIgnoreCode(t *testing.T) {
	opts := allOptions()
	opts.IgnoreCode = []*regexp.Regexp{regexp.MustCompile(`log\.Debug`)}

	src := "func f() {\n\tlog.Debug(\"x\")\n\treturn\n}\n"
	got := Process("f.go", src, language.Go, opts)
	assert.Equal(t, "func f() {\n\treturn\n}", got.Processed)
}

func TestProcessIsIdempotent(t *testing.T) {
	samples := []struct {
		path string
		lang language.Language
		src  string
	}{
		{"a.go", language.Go, "package a\n\nimport \"fmt\"\n\n/* x */ func A() { fmt.Println(\"/* keep */\") } // y\n\n\n"},
		{"a.py", language.Python, "# header\nimport sys\n\ndef a():\n    '''doc\n    more'''\n    return sys.argv  # args\n"},
		{"a.js", language.JavaScript, "import {\n  a,\n} from './a';\nconst b = require('b');\nconst s = `// tpl`; // c\n"},
		{"a.sh", language.Shell, "#!/bin/sh\nsource ./env.sh\necho \"$#\" # count\n"},
		{"a.rb", language.Ruby, "require 'json'\nputs \"#{name}\" # hi\n"},
	}

	optionSets := []Options{allOptions(), {StripComments: true}, {}}

	for _, s := range samples {
		for _, opts := range optionSets {
			first := Process(s.path, s.src, s.lang, opts)
			second := Process(s.path, first.Processed, s.lang, opts)
			require.Equal(t, first.Processed, second.Processed, "%s with %+v", s.path, opts)
		}
	}
}

func TestRemoveCommentsKeepsLineCount(t *testing.T) {
	src := "a /* one\ntwo\nthree */ b\nc // d\n"
	out := RemoveComments(src, language.C)
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(out, "\n"))
	assert.Equal(t, "a \n\n b\nc \n", out)
}

func TestShellHashInsideWord(t *testing.T) {
	out := RemoveComments("echo ${#arr[@]} # size\n", language.Shell)
	assert.Equal(t, "echo ${#arr[@]} \n", out)
}

func TestLinesEmpty(t *testing.T) {
	assert.Nil(t, Content{}.Lines())
	assert.Equal(t, 0, Content{}.OriginalLineCount())
}
