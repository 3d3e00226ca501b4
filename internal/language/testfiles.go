package language

import (
	"path/filepath"
	"strings"
)

var testFilePatterns = map[Language][]string{
	Go:         {"*_test.go"},
	Rust:       {"*_test.rs", "test_*.rs"},
	Python:     {"test_*.py", "*_test.py", "conftest.py"},
	JavaScript: {"*.test.js", "*.spec.js", "*.test.jsx", "*.spec.jsx"},
	TypeScript: {"*.test.ts", "*.spec.ts", "*.test.tsx", "*.spec.tsx"},
	Java:       {"*Test.java", "*Tests.java"},
	Kotlin:     {"*Test.kt"},
	C:          {"test_*.c", "*_test.c"},
	Cpp:        {"test_*.cpp", "*_test.cpp", "*_test.cc"},
	CSharp:     {"*Tests.cs", "*Test.cs"},
	Ruby:       {"*_spec.rb", "*_test.rb"},
	PHP:        {"*Test.php"},
	Swift:      {"*Tests.swift"},
}

var testDirs = []string{"tests", "test", "__tests__", "spec", "testdata"}

// IsTestFile reports whether path looks like test code for its language.
func IsTestFile(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, dir := range testDirs {
		if strings.HasPrefix(slashed, dir+"/") || strings.Contains(slashed, "/"+dir+"/") {
			return true
		}
	}

	name := filepath.Base(path)
	for _, pattern := range testFilePatterns[FromPath(path)] {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
