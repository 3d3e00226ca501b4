package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vitruves/dupsense/internal/duplication"
	"github.com/vitruves/dupsense/internal/utils"
)

const defaultConfigName = ".dupsense.yaml"

// detection holds the flags that override config file and environment settings.
var detection struct {
	minLines     int
	minChars     int
	threshold    float64
	noExact      bool
	noStructural bool
	noCrossFile  bool
	ignore       []string
	whitelist    []string
	keepComments bool
	keepImports  bool
}

func addDetectionFlags(cmd *cobra.Command) {
	defaults := duplication.DefaultConfig()
	cmd.Flags().IntVar(&detection.minLines, "min-lines", defaults.MinDuplicateLines, "Minimum lines for a duplicate block")
	cmd.Flags().IntVar(&detection.minChars, "min-chars", defaults.MinDuplicateChars, "Minimum characters for a duplicate block")
	cmd.Flags().Float64VarP(&detection.threshold, "threshold", "t", defaults.StructuralSimilarityThreshold, "Structural similarity threshold (0-1)")
	cmd.Flags().BoolVar(&detection.noExact, "no-exact", false, "Disable exact duplicate detection")
	cmd.Flags().BoolVar(&detection.noStructural, "no-structural", false, "Disable structural duplicate detection")
	cmd.Flags().BoolVar(&detection.noCrossFile, "no-cross-file", false, "Disable cross-file duplicate detection")
	cmd.Flags().StringSliceVar(&detection.ignore, "ignore", nil, "Glob patterns of files to ignore")
	cmd.Flags().StringSliceVar(&detection.whitelist, "whitelist", nil, "Paths or globs never reported")
	cmd.Flags().BoolVar(&detection.keepComments, "keep-comments", false, "Compare comments as code")
	cmd.Flags().BoolVar(&detection.keepImports, "keep-imports", false, "Compare import statements as code")
}

// resolveConfig builds the effective config. Precedence is flags, then
// DUPSENSE_* environment variables, then the config file, then defaults.
func resolveConfig(cmd *cobra.Command, projectDir string) (duplication.Config, error) {
	cfg := duplication.DefaultConfig()

	path := configFile
	if path == "" {
		candidate := filepath.Join(projectDir, defaultConfigName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		loaded, err := duplication.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
		log.Info("Loaded config from %s", path)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	applyFlags(cmd, &cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *duplication.Config, lookup func(string) (string, bool)) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"DUPSENSE_MIN_LINES", &cfg.MinDuplicateLines},
		{"DUPSENSE_MIN_CHARS", &cfg.MinDuplicateChars},
		{"DUPSENSE_JOBS", &cfg.Jobs},
	}
	for _, v := range ints {
		raw, ok := lookup(v.name)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", duplication.ErrInvalidConfig, v.name, raw)
		}
		*v.dst = n
	}

	if raw, ok := lookup("DUPSENSE_THRESHOLD"); ok && strings.TrimSpace(raw) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%w: DUPSENSE_THRESHOLD=%q is not a number", duplication.ErrInvalidConfig, raw)
		}
		cfg.StructuralSimilarityThreshold = f
	}
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *duplication.Config) {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("min-lines") {
		cfg.MinDuplicateLines = detection.minLines
	}
	if changed("min-chars") {
		cfg.MinDuplicateChars = detection.minChars
	}
	if changed("threshold") {
		cfg.StructuralSimilarityThreshold = detection.threshold
	}
	if changed("jobs") {
		cfg.Jobs = jobs
	}
	if detection.noExact {
		cfg.EnableExact = false
	}
	if detection.noStructural {
		cfg.EnableStructural = false
	}
	if detection.noCrossFile {
		cfg.EnableCrossFile = false
	}
	if detection.keepComments {
		cfg.StripComments = false
	}
	if detection.keepImports {
		cfg.StripImports = false
	}
	cfg.IgnorePatterns = utils.RemoveDuplicates(append(cfg.IgnorePatterns, detection.ignore...))
	cfg.Whitelist = utils.RemoveDuplicates(append(cfg.Whitelist, detection.whitelist...))
}

// collect resolves the scan target into a project directory and its files.
func collect(target string) (string, []string, error) {
	langs, err := utils.ParseLanguages(languages)
	if err != nil {
		return "", nil, err
	}

	info, err := os.Stat(target)
	if err != nil {
		return "", nil, fmt.Errorf("error reading %s: %w", target, err)
	}
	projectDir := target
	if !info.IsDir() {
		projectDir = filepath.Dir(target)
	}

	files, err := utils.CollectFiles(target, utils.CollectOptions{
		Languages: langs,
		Depth:     depth,
		Excludes:  excludes,
		SkipTests: skipTests,
	})
	if err != nil {
		return "", nil, err
	}
	return projectDir, files, nil
}
