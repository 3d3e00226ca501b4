package duplication

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDuplicationInvariants(t *testing.T) {
	a := CodeBlock{FilePath: "a.go", StartLine: 1, EndLine: 6}
	b := CodeBlock{FilePath: "b.go", StartLine: 10, EndLine: 15}
	a2 := CodeBlock{FilePath: "a.go", StartLine: 20, EndLine: 25}

	tests := []struct {
		name       string
		typ        DuplicationType
		blocks     []CodeBlock
		similarity float64
	}{
		{"no blocks", Exact, nil, 1.0},
		{"single block", Structural, []CodeBlock{a}, 0.9},
		{"similarity above one", Structural, []CodeBlock{a, b}, 1.2},
		{"negative similarity", Structural, []CodeBlock{a, b}, -0.1},
		{"inexact exact", Exact, []CodeBlock{a, b}, 0.99},
		{"repeated location", Exact, []CodeBlock{a, a}, 1.0},
		{"reversed block", Exact, []CodeBlock{a, {FilePath: "b.go", StartLine: 9, EndLine: 3}}, 1.0},
		{"cross-file in one file", CrossFile, []CodeBlock{a, a2}, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newDuplication(tt.typ, tt.blocks, "", 6, tt.similarity)
			assert.ErrorIs(t, err, ErrInvariant)
		})
	}
}

func TestNewDuplicationDerivesFields(t *testing.T) {
	blocks := []CodeBlock{
		{FilePath: "a.go", StartLine: 1, EndLine: 60},
		{FilePath: "b.go", StartLine: 1, EndLine: 60},
	}

	d, err := newDuplication(Structural, blocks, "body", 60, 0.9)
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, d.Risk)
	assert.Equal(t, PriorityHigh, d.Priority)
	assert.Len(t, d.ID, 36)

	again, err := newDuplication(Structural, blocks, "other body", 60, 0.9)
	require.NoError(t, err)
	assert.Equal(t, d.ID, again.ID)

	exact, err := newDuplication(Exact, blocks, "body", 60, 1.0)
	require.NoError(t, err)
	assert.NotEqual(t, d.ID, exact.ID)
}

func TestDuplicationJSON(t *testing.T) {
	d, err := newDuplication(CrossFile, []CodeBlock{
		{FilePath: "a.go", StartLine: 3, EndLine: 8, ContentHash: "00ff"},
		{FilePath: "b.go", StartLine: 3, EndLine: 8, ContentHash: "00ff"},
	}, "body", 6, 1.0)
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duplication_type":"cross_file"`)
	assert.Contains(t, string(data), `"risk_level":"low"`)
	assert.Contains(t, string(data), `"refactoring_priority":"low"`)
	assert.NotContains(t, string(data), "start_column")

	var typ DuplicationType
	require.NoError(t, typ.UnmarshalText([]byte("structural")))
	assert.Equal(t, Structural, typ)
	assert.Error(t, typ.UnmarshalText([]byte("fuzzy")))

	var decoded Duplication
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, d, decoded)
}

func TestResultOfType(t *testing.T) {
	r := &Result{Duplications: []Duplication{{Type: Exact}, {Type: CrossFile}, {Type: Exact}}}
	assert.Len(t, r.OfType(Exact), 2)
	assert.Len(t, r.OfType(CrossFile), 1)
	assert.Empty(t, r.OfType(Structural))
}
