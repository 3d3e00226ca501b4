package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const usageTemplate = `{{bold "Usage:"}}{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

{{bold "Aliases:"}}
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

{{bold "Examples:"}}
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

{{bold "Available Commands:"}}{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{cyan (rpad .Name .NamePadding)}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

{{bold "Flags:"}}
{{yellow (.LocalFlags.FlagUsages | trimTrailingWhitespaces)}}{{end}}{{if .HasAvailableInheritedFlags}}

{{bold "Global Flags:"}}
{{yellow (.InheritedFlags.FlagUsages | trimTrailingWhitespaces)}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`

func init() {
	cobra.AddTemplateFunc("bold", color.New(color.Bold).SprintFunc())
	cobra.AddTemplateFunc("cyan", func(s string) string { return color.CyanString("%s", s) })
	cobra.AddTemplateFunc("yellow", func(s string) string { return color.YellowString("%s", s) })
	cobra.AddTemplateFunc("rpad", rpad)

	rootCmd.SetUsageTemplate(usageTemplate)
}

// rpad adds padding to the right of a string
func rpad(s string, padding int) string {
	return fmt.Sprintf("%-*s", padding, s)
}
