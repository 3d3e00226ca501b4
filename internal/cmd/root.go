package cmd

import (
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vitruves/dupsense/internal/logging"
)

var (
	configFile string
	languages  []string
	excludes   []string
	depth      int
	jobs       int
	skipTests  bool
	verbose    bool

	log = logging.New(os.Stderr, false)
)

var rootCmd = &cobra.Command{
	Use:   "dupsense",
	Short: "Find duplicated code and suggest how to refactor it",
	Long: `dupsense scans a source tree for exact, structural and cross-file code
duplication, rates every finding by risk and proposes refactorings suited to
the language it was found in.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logging.New(os.Stderr, verbose)
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Warn("Could not load .env: %v", err)
		}
		return nil
	},
}

// Execute runs the command line and returns the first error.
func Execute() error {
	return rootCmd.Execute()
}

// Logger is the logger configured by the last command run.
func Logger() *logging.Logger {
	return log
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default .dupsense.yaml in the scanned directory)")
	rootCmd.PersistentFlags().StringSliceVarP(&languages, "languages", "l", []string{"all"}, "Languages to analyze (e.g. go,rust,python)")
	rootCmd.PersistentFlags().StringSliceVarP(&excludes, "excludes", "e", []string{}, "Directories, files or globs to exclude")
	rootCmd.PersistentFlags().IntVar(&depth, "depth", -1, "Maximum depth for directory traversal (-1 for unlimited)")
	rootCmd.PersistentFlags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "Number of concurrent jobs for processing")
	rootCmd.PersistentFlags().BoolVar(&skipTests, "skip-tests", false, "Skip test files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(configCmd)
}
