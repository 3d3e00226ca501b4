package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitruves/dupsense/internal/normalize"
)

var (
	addLineNumbers bool
	addHeaders     bool
	normalizeOut   string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [path]",
	Short: "Print source files as the duplicate detectors see them",
	Long: `Print every source file after comment, blank line and import stripping.

Line numbers, when requested, refer to the original file so they can be
matched against scan reports.

Examples:
  # Show the normalized form of one file with original line numbers
  dupsense normalize internal/server/handler.go -L

  # Normalize a whole tree with file headers into one text file
  dupsense normalize ./src -H -o normalized.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().BoolVarP(&addLineNumbers, "add-line-numbers", "L", false, "Prefix lines with their original line number")
	normalizeCmd.Flags().BoolVarP(&addHeaders, "add-headers", "H", false, "Add a header before each file")
	normalizeCmd.Flags().StringVarP(&normalizeOut, "output", "o", "", "Output file (if not specified, output to console)")
	addDetectionFlags(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	projectDir, files, err := collect(target)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd, projectDir)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if normalizeOut != "" {
		f, err := os.Create(normalizeOut)
		if err != nil {
			return fmt.Errorf("error creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	err = normalize.Run(cmd.Context(), normalize.Config{
		Root:           projectDir,
		Files:          files,
		Jobs:           cfg.Jobs,
		Preprocess:     cfg.PreprocessOptions(),
		AddLineNumbers: addLineNumbers,
		AddHeaders:     addHeaders,
		Progress:       normalizeOut != "" && !verbose,
	}, w, log)
	if err != nil {
		return err
	}
	if normalizeOut != "" {
		log.Success("Output written to %s", normalizeOut)
	}
	return nil
}
