package main

import (
	"github.com/spf13/cobra"

	clilib "github.com/gusdev/gus/internal/cli"
)

var setupAppPath string

var setupCmd = &cobra.Command{
	Use:   "setup [bash|zsh|sh]",
	Short: "Print the shell integration script",
	Long: `Print the script that integrates gus with the shell. Add this to your
shell rc file:

  eval "$(gus setup)"

The script gives the terminal its own session id, defines a gus function that
applies identity changes to the shell, routes git through 'gus git' and, when
auto-switch is enabled, hooks cd. The shell defaults to $SHELL.`,
	ValidArgs: []string{"bash", "zsh", "sh"},
	Args:      cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		shellName := ""
		if len(args) == 1 {
			shellName = args[0]
		}
		exitWithError(mustCLI().Setup(shellName, setupAppPath))
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration file",
	Long: `Create a configuration file with default settings at the XDG config
location (or -c / GUS_CONFIG) together with the gus key and session
directories.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitWithError(clilib.InitConfig(globalOpts.ConfigPath, cmd.OutOrStdout(), cmd.ErrOrStderr()))
	},
}

func init() {
	setupCmd.Flags().StringVar(&setupAppPath, "app-path", "", "gus binary the script calls (default: this executable)")
}
