package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/vitruves/dupsense/internal/duplication"
	"github.com/vitruves/dupsense/internal/report"
	"github.com/vitruves/dupsense/internal/utils"
)

var (
	outputFile    string
	format        string
	shortOutput   bool
	maxPerSection int
	noProgress    bool
	failOn        string
)

// ErrFindings is returned by scan when --fail-on finds a duplication at or above the given risk.
var ErrFindings = errors.New("duplications at or above the failure risk level")

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Detect duplicated code and print refactoring suggestions",
	Long: `Scan a directory (default ".") or a single file for duplicated code.

Exact, structural and cross-file detection run in sequence; each finding is
rated by risk and paired with a refactoring suggestion.

Examples:
  # Scan the current directory and print a terminal report
  dupsense scan

  # Scan only Go and Rust sources, writing markdown to a file
  dupsense scan ./src -l go,rs -f markdown -o duplicates.md

  # Fail a CI job when a high risk duplication is found
  dupsense scan --fail-on high -f json -o report.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (if not specified, output to console)")
	scanCmd.Flags().StringVarP(&format, "format", "f", "terminal", "Report format: terminal, markdown, json or yaml")
	scanCmd.Flags().BoolVarP(&shortOutput, "short", "s", false, "Show only a short snippet of each duplicate")
	scanCmd.Flags().IntVar(&maxPerSection, "max", 10, "Maximum duplications listed per type")
	scanCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	scanCmd.Flags().StringVar(&failOn, "fail-on", "", "Exit with an error when a duplication reaches this risk (low, medium, high, critical)")
	addDetectionFlags(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	reportFormat, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	var failRisk duplication.RiskLevel
	if failOn != "" {
		if err := failRisk.UnmarshalText([]byte(failOn)); err != nil {
			return err
		}
	}

	projectDir, files, err := collect(target)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Warn("No files found to analyze. Please check your path and language filters.")
		return nil
	}
	log.Info("Found %d files to process", len(files))

	cfg, err := resolveConfig(cmd, projectDir)
	if err != nil {
		return err
	}

	opts := []duplication.Option{duplication.WithLogger(log)}
	var bar *progressbar.ProgressBar
	if !noProgress && !verbose {
		bar = newScanProgress(len(files))
		opts = append(opts, duplication.WithProgress(func(stage string, done, total int) {
			if stage == duplication.StageLoad {
				bar.Set(done)
				return
			}
			bar.Describe("Detecting: " + stage)
			bar.Add(1)
		}))
	}

	engine, err := duplication.NewEngine(cfg, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result, err := engine.DetectDuplications(ctx, projectDir, files)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	if err := writeReport(result, cfg, reportFormat); err != nil {
		return err
	}

	log.Success("Duplicate analysis completed in %s: %d duplications, %d suggestions",
		utils.FormatDuration(result.Summary.Duration), len(result.Duplications), len(result.Suggestions))

	if failOn != "" && reachesRisk(result, failRisk) {
		return fmt.Errorf("%w (%s)", ErrFindings, failRisk)
	}
	return nil
}

func newScanProgress(files int) *progressbar.ProgressBar {
	// one step per file plus the three detectors and the suggestion pass
	return progressbar.NewOptions(files+4,
		progressbar.OptionSetDescription("Loading files"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

func writeReport(result *duplication.Result, cfg duplication.Config, reportFormat report.Format) error {
	opts := report.Options{
		Format:        reportFormat,
		Short:         shortOutput,
		MaxPerSection: maxPerSection,
		Threshold:     cfg.StructuralSimilarityThreshold,
		MinLines:      cfg.MinDuplicateLines,
	}

	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("error creating output file: %w", err)
		}
		defer f.Close()
		w = f
		opts.GeneratedAt = time.Now()
		if reportFormat == report.Terminal {
			opts.Format = report.Markdown
		}
	}

	if err := report.Write(w, result, opts); err != nil {
		return err
	}
	if outputFile != "" {
		log.Success("Report written to %s", outputFile)
	}
	return nil
}

func reachesRisk(result *duplication.Result, level duplication.RiskLevel) bool {
	for _, d := range result.Duplications {
		if d.Risk >= level {
			return true
		}
	}
	return false
}
