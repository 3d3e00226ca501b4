// Package report renders duplication results for people and tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vitruves/dupsense/internal/duplication"
)

// Format selects the output encoding.
type Format string

const (
	Markdown Format = "markdown"
	JSON     Format = "json"
	YAML     Format = "yaml"
	Terminal Format = "terminal"
)

// ParseFormat accepts a format name or a common short form.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "markdown", "md":
		return Markdown, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "terminal", "term", "text", "":
		return Terminal, nil
	default:
		return "", fmt.Errorf("unknown report format %q", name)
	}
}

// Options controls how much of a result is rendered.
type Options struct {
	Format Format
	// Short replaces code blocks with a few-line snippet.
	Short bool
	// MaxPerSection caps the duplications listed per type. Zero means 10.
	MaxPerSection int
	// GeneratedAt is printed in the markdown header when set.
	GeneratedAt time.Time
	Threshold   float64
	MinLines    int
	// Style is the glamour style for terminal output. Empty picks one from the terminal.
	Style string
	Width int
}

func (o Options) maxPerSection() int {
	if o.MaxPerSection <= 0 {
		return 10
	}
	return o.MaxPerSection
}

// Write renders result to w in the requested format.
func Write(w io.Writer, result *duplication.Result, opts Options) error {
	if result == nil {
		return fmt.Errorf("no result to report")
	}
	switch opts.Format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("error encoding yaml report: %w", err)
		}
		return enc.Close()
	case Markdown:
		var sb strings.Builder
		writeMarkdown(&sb, result, opts)
		_, err := io.WriteString(w, sb.String())
		return err
	case Terminal, "":
		return writeTerminal(w, result, opts)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}
