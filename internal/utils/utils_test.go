package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitruves/dupsense/internal/language"
)

func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
	}
	return root
}

func TestCollectFiles(t *testing.T) {
	root := writeTree(t,
		"main.go",
		"README.md",
		"pkg/a.go",
		"pkg/a_test.go",
		"pkg/deep/b.py",
		"vendor/lib/c.go",
		"node_modules/x/index.js",
		"gen/api.pb.go",
	)

	tests := []struct {
		name string
		opts CollectOptions
		want []string
	}{
		{
			name: "all languages",
			opts: CollectOptions{Depth: -1},
			want: []string{"gen/api.pb.go", "main.go", "pkg/a.go", "pkg/a_test.go", "pkg/deep/b.py"},
		},
		{
			name: "go only",
			opts: CollectOptions{Depth: -1, Languages: []language.Language{language.Go}},
			want: []string{"gen/api.pb.go", "main.go", "pkg/a.go", "pkg/a_test.go"},
		},
		{
			name: "depth limited",
			opts: CollectOptions{Depth: 1},
			want: []string{"gen/api.pb.go", "main.go", "pkg/a.go", "pkg/a_test.go"},
		},
		{
			name: "root only",
			opts: CollectOptions{Depth: 0},
			want: []string{"main.go"},
		},
		{
			name: "excludes",
			opts: CollectOptions{Depth: -1, Excludes: []string{"gen", "**/*_test.go"}},
			want: []string{"main.go", "pkg/a.go", "pkg/deep/b.py"},
		},
		{
			name: "skip tests",
			opts: CollectOptions{Depth: -1, SkipTests: true},
			want: []string{"gen/api.pb.go", "main.go", "pkg/a.go", "pkg/deep/b.py"},
		},
		{
			name: "no default excludes",
			opts: CollectOptions{Depth: -1, Languages: []language.Language{language.Go}, NoDefaultExcludes: true},
			want: []string{"gen/api.pb.go", "main.go", "pkg/a.go", "pkg/a_test.go", "vendor/lib/c.go"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := CollectFiles(root, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, files)
		})
	}
}

func TestCollectSingleFile(t *testing.T) {
	root := writeTree(t, "main.go", "notes.txt")

	files, err := CollectFiles(filepath.Join(root, "main.go"), CollectOptions{Depth: -1})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, files)

	_, err = CollectFiles(filepath.Join(root, "notes.txt"), CollectOptions{Depth: -1})
	assert.Error(t, err)

	_, err = CollectFiles(filepath.Join(root, "missing"), CollectOptions{Depth: -1})
	assert.Error(t, err)
}

func TestParseLanguages(t *testing.T) {
	langs, err := ParseLanguages([]string{"go,py", "rs", "go"})
	require.NoError(t, err)
	assert.Equal(t, []language.Language{language.Go, language.Python, language.Rust}, langs)

	langs, err = ParseLanguages([]string{"go", "all"})
	require.NoError(t, err)
	assert.Nil(t, langs)

	_, err = ParseLanguages([]string{"cobol"})
	assert.Error(t, err)
}

func TestRemoveDuplicates(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, RemoveDuplicates([]string{"b", "a", "b", "c", "a"}))
	assert.Empty(t, RemoveDuplicates(nil))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Microsecond, "250 µs"},
		{1500 * time.Microsecond, "1.50 ms"},
		{2500 * time.Millisecond, "2.50 sec"},
		{3*time.Minute + 7*time.Second, "3 min 7 sec"},
		{2*time.Hour + 5*time.Minute, "2 hr 5 min"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}
