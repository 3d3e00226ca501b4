package normalize

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitruves/dupsense/internal/logging"
	"github.com/vitruves/dupsense/internal/preprocess"
)

const goSource = `package main

import "fmt"

// greet prints a greeting.
func greet(name string) {

	fmt.Println("hello", name) // inline
}
`

const pySource = `import os

def size(path):
    # count bytes
    return os.path.getsize(path)
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	return root
}

var stripAll = preprocess.Options{StripComments: true, StripBlankLines: true, StripImports: true}

func TestRunLineNumbersReferToOriginal(t *testing.T) {
	root := writeFiles(t, map[string]string{"main.go": goSource})

	var buf bytes.Buffer
	err := Run(context.Background(), Config{
		Root:           root,
		Files:          []string{"main.go"},
		Jobs:           2,
		Preprocess:     stripAll,
		AddLineNumbers: true,
	}, &buf, logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, "   1: package main\n"+
		"   6: func greet(name string) {\n"+
		"   8: \tfmt.Println(\"hello\", name)\n"+
		"   9: }\n", buf.String())
}

func TestRunHeadersKeepInputOrder(t *testing.T) {
	root := writeFiles(t, map[string]string{"main.go": goSource, "size.py": pySource})

	var buf bytes.Buffer
	err := Run(context.Background(), Config{
		Root:       root,
		Files:      []string{"size.py", "main.go"},
		Jobs:       4,
		Preprocess: stripAll,
		AddHeaders: true,
	}, &buf, logging.Discard())
	require.NoError(t, err)

	out := buf.String()
	pyHeader := bytes.Index(buf.Bytes(), []byte("# === size.py ==="))
	goHeader := bytes.Index(buf.Bytes(), []byte("// === main.go ==="))
	require.GreaterOrEqual(t, pyHeader, 0)
	require.Greater(t, goHeader, pyHeader)
	assert.Contains(t, out, "# Language: Python\n")
	assert.Contains(t, out, "    return os.path.getsize(path)\n")
	assert.NotContains(t, out, "count bytes")
	assert.NotContains(t, out, "import")
}

func TestRunSkipsBadFiles(t *testing.T) {
	root := writeFiles(t, map[string]string{"main.go": goSource, "notes.txt": "hello\n"})

	var logs, buf bytes.Buffer
	err := Run(context.Background(), Config{
		Root:       root,
		Files:      []string{"missing.go", "notes.txt", "main.go"},
		Jobs:       1,
		Preprocess: stripAll,
	}, &buf, logging.New(&logs, false))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "func greet(name string) {")
	assert.Contains(t, logs.String(), "missing.go")
	assert.Contains(t, logs.String(), "notes.txt")
}

func TestRunNoFiles(t *testing.T) {
	var logs, buf bytes.Buffer
	require.NoError(t, Run(context.Background(), Config{}, &buf, logging.New(&logs, false)))
	assert.Empty(t, buf.String())
	assert.Contains(t, logs.String(), "No files found")
}

func TestRunCancelled(t *testing.T) {
	root := writeFiles(t, map[string]string{"main.go": goSource})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := Run(ctx, Config{Root: root, Files: []string{"main.go"}, Jobs: 1}, &buf, logging.Discard())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.String())
}
