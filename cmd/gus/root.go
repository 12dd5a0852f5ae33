package main

import (
	"github.com/spf13/cobra"
)

var (
	version = "unknown"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "gus",
	Short: "Per-terminal Git identity switcher",
	Long: `gus: per-terminal Git identity switcher.

Each terminal gets its own active Git identity (author name, email and SSH
key). Network git commands run through gus refuse to push or fetch when the
repository's configured author differs from the identity of the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		checkSUIDMode(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand, show help
		_ = cmd.Help()
	},
}

func init() {
	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&globalOpts.ConfigPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.Silent, "silent", "s", false, "Silent mode (suppress warnings)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(unsetCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(autoSwitchCmd)
	rootCmd.AddCommand(gitCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}
