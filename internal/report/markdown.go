package report

import (
	"fmt"
	"strings"

	"github.com/vitruves/dupsense/internal/duplication"
	"github.com/vitruves/dupsense/internal/language"
	"github.com/vitruves/dupsense/internal/utils"
)

var sections = []struct {
	typ   duplication.DuplicationType
	title string
}{
	{duplication.Exact, "Exact Duplicates"},
	{duplication.Structural, "Structural Duplicates"},
	{duplication.CrossFile, "Cross-File Duplicates"},
}

var riskOrder = []duplication.RiskLevel{
	duplication.RiskCritical,
	duplication.RiskHigh,
	duplication.RiskMedium,
	duplication.RiskLow,
}

func writeMarkdown(sb *strings.Builder, result *duplication.Result, opts Options) {
	fmt.Fprintf(sb, "# Duplication Report\n\n")
	if !opts.GeneratedAt.IsZero() {
		fmt.Fprintf(sb, "*Generated on %s*\n\n", opts.GeneratedAt.Format("2006-01-02 15:04:05"))
	}

	writeSummary(sb, result, opts)

	if len(result.Duplications) == 0 {
		fmt.Fprintf(sb, "No duplicates found with the current settings.\n")
		return
	}

	for _, section := range sections {
		dups := result.OfType(section.typ)
		if len(dups) == 0 {
			continue
		}

		fmt.Fprintf(sb, "## %s\n\n", section.title)
		fmt.Fprintf(sb, "Found %d duplications of this kind.\n\n", len(dups))

		shown := min(opts.maxPerSection(), len(dups))
		for i, d := range dups[:shown] {
			writeDuplication(sb, i+1, d, opts.Short)
		}
		if len(dups) > shown {
			fmt.Fprintf(sb, "*%d more duplications of this kind not shown.*\n\n", len(dups)-shown)
		}
	}

	writeSuggestions(sb, result.Suggestions)
}

func writeSummary(sb *strings.Builder, result *duplication.Result, opts Options) {
	s := result.Summary
	fmt.Fprintf(sb, "## Summary\n\n")
	fmt.Fprintf(sb, "- **Files Analyzed:** %d\n", s.FilesAnalyzed)
	if s.FilesSkipped > 0 {
		fmt.Fprintf(sb, "- **Files Skipped:** %d\n", s.FilesSkipped)
	}
	fmt.Fprintf(sb, "- **Lines Analyzed:** %d\n", s.TotalLines)
	fmt.Fprintf(sb, "- **Duplications Found:** %d (%d exact, %d structural, %d cross-file)\n",
		len(result.Duplications), s.ExactCount, s.StructuralCount, s.CrossFileCount)
	if len(s.ByRisk) > 0 {
		var parts []string
		for _, risk := range riskOrder {
			if n := s.ByRisk[risk.String()]; n > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", n, risk))
			}
		}
		if len(parts) > 0 {
			fmt.Fprintf(sb, "- **By Risk:** %s\n", strings.Join(parts, ", "))
		}
	}
	fmt.Fprintf(sb, "- **Suggestions:** %d\n", s.SuggestionCount)
	if opts.Threshold > 0 {
		fmt.Fprintf(sb, "- **Similarity Threshold:** %.0f%%\n", opts.Threshold*100)
	}
	if opts.MinLines > 0 {
		fmt.Fprintf(sb, "- **Minimum Block Size:** %d lines\n", opts.MinLines)
	}
	fmt.Fprintf(sb, "- **Analysis Time:** %s\n\n", utils.FormatDuration(s.Duration))
}

func writeDuplication(sb *strings.Builder, n int, d duplication.Duplication, short bool) {
	fmt.Fprintf(sb, "### Duplication %d (%.1f%% similar, %d lines)\n\n", n, d.SimilarityScore*100, d.LineCount)
	fmt.Fprintf(sb, "**Risk:** %s | **Priority:** %s | **ID:** `%s`\n\n", d.Risk, d.Priority, d.ID)

	for _, b := range d.Blocks {
		fmt.Fprintf(sb, "- `%s` (lines %d-%d)\n", b.FilePath, b.StartLine, b.EndLine)
	}
	sb.WriteString("\n")

	content := d.RepresentativeContent
	if content == "" {
		return
	}
	fence := ""
	if len(d.Blocks) > 0 {
		if lang := language.FromPath(d.Blocks[0].FilePath); lang != language.Unknown {
			fence = string(lang)
		}
	}
	if short {
		fmt.Fprintf(sb, "```%s\n%s...\n```\n\n", fence, snippet(content, 3))
	} else {
		fmt.Fprintf(sb, "```%s\n%s\n```\n\n", fence, strings.TrimRight(content, "\n"))
	}
	sb.WriteString("---\n\n")
}

func writeSuggestions(sb *strings.Builder, suggestions []duplication.Suggestion) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintf(sb, "## Refactoring Suggestions\n\n")

	for i, s := range suggestions {
		fmt.Fprintf(sb, "### %d. %s\n\n", i+1, s.Title)
		fmt.Fprintf(sb, "*%s, %s complexity*\n\n", strings.ReplaceAll(string(s.Type), "_", " "), s.Complexity)
		fmt.Fprintf(sb, "%s\n\n", s.Description)
		if s.Approach != "" {
			fmt.Fprintf(sb, "**Approach:** %s\n\n", s.Approach)
		}
		if len(s.Benefits) > 0 {
			sb.WriteString("**Benefits:**\n\n")
			for _, b := range s.Benefits {
				fmt.Fprintf(sb, "- %s\n", b)
			}
			sb.WriteString("\n")
		}
		if ex := s.CodeExample; ex != nil {
			fmt.Fprintf(sb, "Before:\n\n```%s\n%s\n```\n\n", ex.Language, strings.TrimRight(ex.Before, "\n"))
			fmt.Fprintf(sb, "After:\n\n```%s\n%s\n```\n\n", ex.Language, strings.TrimRight(ex.After, "\n"))
		}
		if len(s.ResourceLinks) > 0 {
			sb.WriteString("**Further reading:**\n\n")
			for _, link := range s.ResourceLinks {
				fmt.Fprintf(sb, "- <%s>\n", link)
			}
			sb.WriteString("\n")
		}
	}
}

// snippet returns the first n lines of content.
func snippet(content string, n int) string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
