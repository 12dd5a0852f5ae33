package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var gitCmd = &cobra.Command{
	Use:   "git -- [GIT ARGS...]",
	Short: "Run git with the terminal's identity enforced",
	Long: `Run git through gus. The shell integration installs a git function that
calls this for every git command.

Network commands (clone, fetch, pull, push, ls-remote, remote, submodule) need
an active identity whose name and email match the repository's user.name and
user.email, and then use that identity's SSH key. Other commands run
unchanged. With force_use_gus disabled nothing is checked.

git's own exit status is passed through.`,
	Example: `  gus git -- push origin main`,
	Run: func(cmd *cobra.Command, args []string) {
		cli := mustCLI()

		// The terminal delivers Ctrl-C to git as well; gus waits for it so
		// git's exit status is the one reported.
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt)
		defer signal.Stop(sigs)

		exitWithError(cli.Git(context.Background(), "", args))
	},
}

var pruneOlderThan time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Forget idle terminal sessions",
	Long: `Remove sessions that have not been used for --older-than (default: the
configured session_ttl). Sessions are also pruned whenever an identity is
activated.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitWithError(mustCLI().Prune(pruneOlderThan))
	},
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "Idle time after which a session is removed (e.g. 720h)")
}
