package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gusdev/gus/pkg/gus/output"
)

var autoSwitchCmd = &cobra.Command{
	Use:   "auto-switch",
	Short: "Switch identity by working directory",
	Long: `Manage directory rules that switch the terminal's identity on cd.

Patterns are globs: * and ? match within one path segment, ** matches any
number of segments, {a,b} expands alternatives and a leading ~ is the home
directory. A rule matching a parent directory also matches everything below
it. Rules are tried in the order they were added; the first match wins.`,
}

var autoSwitchEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable auto-switch",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitWithError(mustCLI().EnableAutoSwitch())
	},
}

var autoSwitchDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable auto-switch (rules are kept)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitWithError(mustCLI().DisableAutoSwitch())
	},
}

var autoSwitchAddCmd = &cobra.Command{
	Use:     "add PATTERN ID",
	Short:   "Add a rule",
	Example: `  gus auto-switch add '~/work/**' work`,
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		exitWithError(mustCLI().AddRule(args[0], args[1]))
	},
}

var autoSwitchRemoveCmd = &cobra.Command{
	Use:     "remove PATTERN",
	Aliases: []string{"rm"},
	Short:   "Remove a rule",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitWithError(mustCLI().RemoveRule(args[0]))
	},
}

var autoSwitchListJSON bool

var autoSwitchListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List rules in evaluation order",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cli := mustCLI()
		cli.SetJSONMode(autoSwitchListJSON)
		exitWithError(cli.ListRules())
	},
}

var autoSwitchCheckQuiet bool

var autoSwitchCheckCmd = &cobra.Command{
	Use:   "check [DIR]",
	Short: "Apply the rules to a directory (default: current)",
	Long: `Apply the rules to a directory and switch this terminal's identity when
one matches. The cd hook installed by 'gus setup' runs this on every
directory change.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cli := mustCLI()
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		} else {
			wd, err := os.Getwd()
			if err != nil {
				exitWithError(output.NewErrorf(output.CodeGeneralError, "failed to get working directory: %v", err))
			}
			dir = wd
		}
		exitWithError(cli.CheckAutoSwitch(dir, autoSwitchCheckQuiet))
	},
}

func init() {
	autoSwitchListCmd.Flags().BoolVar(&autoSwitchListJSON, "json", false, "Output as JSON")
	autoSwitchCheckCmd.Flags().BoolVarP(&autoSwitchCheckQuiet, "quiet", "q", false, "Only print errors")

	autoSwitchCmd.AddCommand(autoSwitchEnableCmd)
	autoSwitchCmd.AddCommand(autoSwitchDisableCmd)
	autoSwitchCmd.AddCommand(autoSwitchAddCmd)
	autoSwitchCmd.AddCommand(autoSwitchRemoveCmd)
	autoSwitchCmd.AddCommand(autoSwitchListCmd)
	autoSwitchCmd.AddCommand(autoSwitchCheckCmd)
}
