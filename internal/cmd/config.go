package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config [path]",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration a scan of path would use, after merging the
config file, DUPSENSE_* environment variables and flags.

Redirect the output to .dupsense.yaml to start a project config:
  dupsense config > .dupsense.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		cfg, err := resolveConfig(cmd, dir)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("error encoding config: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	addDetectionFlags(configCmd)
}
