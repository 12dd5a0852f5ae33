package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	clilib "github.com/gusdev/gus/internal/cli"
	"github.com/gusdev/gus/pkg/gus/output"
)

// GlobalOptions holds the global configuration flags
type GlobalOptions struct {
	ConfigPath string
	Silent     bool
}

// globalOpts is the shared global options instance
var globalOpts = &GlobalOptions{}

// isSUID returns true if the binary is running with SUID privileges
func isSUID() bool {
	return os.Getuid() != os.Geteuid()
}

// suidAllowedCommands are harmless without access to the invoking user's
// keys. Everything else reads or writes private key material.
var suidAllowedCommands = map[string]bool{
	"version":    true,
	"completion": true,
}

// checkSUIDMode refuses to run key-handling commands with SUID privileges.
func checkSUIDMode(cmd *cobra.Command) {
	if !isSUID() || suidAllowedCommands[cmd.Name()] {
		return
	}
	fmt.Fprintf(os.Stderr, "error: '%s' is not allowed in SUID mode\n", cmd.CommandPath())
	os.Exit(int(clilib.ExitGeneralError))
}

// createCLI creates a CLI instance for the current process
func createCLI() (*clilib.CLI, *output.Error) {
	return clilib.NewCLI(globalOpts.ConfigPath, globalOpts.Silent, os.Stdin, os.Stdout, os.Stderr)
}

// mustCLI creates the CLI or exits with the matching code.
func mustCLI() *clilib.CLI {
	c, err := createCLI()
	exitWithError(err)
	return c
}

// exitWithError prints an error and exits with the appropriate code
func exitWithError(err *output.Error) {
	if err != nil {
		os.Exit(int(clilib.PrintError(os.Stderr, err)))
	}
}
