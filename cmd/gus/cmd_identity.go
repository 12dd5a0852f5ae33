package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// pathValue is a custom pflag.Value that rejects flag-like values
type pathValue struct {
	flag  string
	value *string
}

func (p *pathValue) String() string {
	if p.value == nil {
		return ""
	}
	return *p.value
}

func (p *pathValue) Set(s string) error {
	if len(s) > 0 && s[0] == '-' {
		return fmt.Errorf("--%s requires a path argument", p.flag)
	}
	*p.value = s
	return nil
}

func (p *pathValue) Type() string {
	return "string"
}

var addKeyPath string

var addCmd = &cobra.Command{
	Use:   "add ID NAME EMAIL",
	Short: "Add a Git identity",
	Long: `Add a Git identity with its own SSH key.

Without --key a new key pair is generated under the gus data directory. The
passphrase is read from the terminal, or from the first line of stdin when
it is not a terminal. With --key an existing private key is registered; gus
never deletes or regenerates imported keys.`,
	Example: `  gus add work "Alice Doe" alice@corp.example
  gus add oss Alice alice@users.noreply.example --key ~/.ssh/id_ed25519`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		cli := mustCLI()
		exitWithError(cli.AddIdentity(context.Background(), args[0], args[1], args[2], addKeyPath))
	},
}

var removeForce bool

var removeCmd = &cobra.Command{
	Use:     "remove ID",
	Aliases: []string{"rm"},
	Short:   "Remove a Git identity",
	Long: `Remove a Git identity and, if gus generated it, its SSH key.

Removal fails while a terminal has the identity active or an auto-switch rule
points at it. --force clears those sessions and drops those rules.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cli := mustCLI()
		exitWithError(cli.RemoveIdentity(args[0], removeForce))
	},
}

var editOpts struct {
	Name  string
	Email string
}

var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change the name or email of an identity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cli := mustCLI()
		exitWithError(cli.EditIdentity(args[0], editOpts.Name, editOpts.Email))
	},
}

var setCmd = &cobra.Command{
	Use:   "set ID",
	Short: "Activate an identity in this terminal",
	Long: `Activate an identity in this terminal.

With shell integration loaded (see 'gus setup') the gus shell function
exports GIT_AUTHOR_* and GIT_COMMITTER_* afterwards. Without it the export
script is printed so it can be eval'd.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cli := mustCLI()
		exitWithError(cli.SetIdentity(args[0]))
	},
}

var unsetCmd = &cobra.Command{
	Use:   "unset",
	Short: "Clear the active identity of this terminal",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cli := mustCLI()
		exitWithError(cli.UnsetIdentity())
	},
}

var currentJSON bool

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the active identity of this terminal",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cli := mustCLI()
		cli.SetJSONMode(currentJSON)
		exitWithError(cli.CurrentIdentity())
	},
}

var listOpts struct {
	Simple bool
	JSON   bool
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List identities",
	Long:    `List identities. The active identity of this terminal is marked with *.`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cli := mustCLI()
		cli.SetJSONMode(listOpts.JSON)
		exitWithError(cli.ListIdentities(listOpts.Simple))
	},
}

var keyOpts struct {
	Fingerprint bool
	Regenerate  bool
	Yes         bool
}

var keyCmd = &cobra.Command{
	Use:   "key ID",
	Short: "Show or regenerate the SSH key of an identity",
	Long: `Print the public key of an identity, ready to paste into a Git host.

--fingerprint prints the SHA256 fingerprint instead. --regenerate replaces a
key gus generated with a new one; the old key stops working everywhere it was
registered.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if keyOpts.Fingerprint && keyOpts.Regenerate {
			return fmt.Errorf("--fingerprint and --regenerate cannot be used together")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cli := mustCLI()
		if keyOpts.Regenerate {
			exitWithError(cli.RegenerateKey(context.Background(), args[0], keyOpts.Yes))
			return
		}
		exitWithError(cli.ShowKey(args[0], keyOpts.Fingerprint))
	},
}

func init() {
	addCmd.Flags().Var(&pathValue{flag: "key", value: &addKeyPath}, "key", "Register an existing private key instead of generating one")

	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "Remove even if sessions or rules still use the identity")

	editCmd.Flags().StringVar(&editOpts.Name, "name", "", "New author name")
	editCmd.Flags().StringVar(&editOpts.Email, "email", "", "New author email")

	currentCmd.Flags().BoolVar(&currentJSON, "json", false, "Output as JSON")

	listCmd.Flags().BoolVar(&listOpts.Simple, "simple", false, "Print identity ids only")
	listCmd.Flags().BoolVar(&listOpts.JSON, "json", false, "Output as JSON")

	keyCmd.Flags().BoolVar(&keyOpts.Fingerprint, "fingerprint", false, "Print the key fingerprint")
	keyCmd.Flags().BoolVar(&keyOpts.Regenerate, "regenerate", false, "Replace the key with a new one")
	keyCmd.Flags().BoolVarP(&keyOpts.Yes, "yes", "y", false, "Do not ask for confirmation")
}
