package duplication

import (
	"github.com/agnivade/levenshtein"
)

// maxPatternLength bounds the strings handed to the edit-distance metric.
const maxPatternLength = 256

// levenshteinRatio returns 1 - distance/longest, in [0,1].
func levenshteinRatio(a, b string) float64 {
	if len(a) > maxPatternLength {
		a = a[:maxPatternLength]
	}
	if len(b) > maxPatternLength {
		b = b[:maxPatternLength]
	}
	if a == b {
		return 1.0
	}
	longest := max(len(a), len(b))
	distance := levenshtein.ComputeDistance(a, b)
	return clamp01(1.0 - float64(distance)/float64(longest))
}

// lcsRatio is the longest common subsequence of two line sequences divided
// by the length of the longer one.
func lcsRatio(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return float64(prev[len(b)]) / float64(max(len(a), len(b)))
}

// ratio returns min/max of two counts, 1 when both are zero.
func ratio(a, b int) float64 {
	if a == b {
		return 1.0
	}
	return float64(min(a, b)) / float64(max(a, b))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// constructSimilarity compares counts of language-specific constructs.
// Matching non-zero counts score 1.0, differing counts 0.5, and a construct
// absent from both blocks 0.7.
func constructSimilarity(a, b []int) float64 {
	if len(a) == 0 {
		return 0.7
	}
	total := 0.0
	for i := range a {
		switch {
		case a[i] == 0 && b[i] == 0:
			total += 0.7
		case a[i] == b[i]:
			total += 1.0
		default:
			total += 0.5
		}
	}
	return total / float64(len(a))
}
