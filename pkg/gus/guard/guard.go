// Package guard enforces that git network operations run under the
// terminal's active identity and with that identity's key.
//
// The guard only reads state. In permissive mode it lets everything
// through untouched; in enforced mode a network operation needs an active
// identity whose name and email match the repository's git config, and the
// identity's private key is selected for that single git process.
package guard

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"

	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/output"
	"github.com/gusdev/gus/pkg/gus/sshkey"
	"github.com/gusdev/gus/pkg/gus/store"
)

// Mode is the enforcement state derived from force_use_gus.
type Mode string

const (
	Permissive Mode = "permissive"
	Enforced   Mode = "enforced"
)

// Identities is the read side of the identity catalog.
type Identities interface {
	sshkey.KeyLookup
	Get(id string) (config.Identity, error)
}

// Decision is the outcome of checking one git invocation.
type Decision struct {
	Mode       Mode
	Invocation Invocation
	// Guarded is set when the invocation is a network operation checked
	// under enforcement.
	Guarded  bool
	Identity config.Identity
	Key      config.KeyPair
	Override *sshkey.KeyOverride
	Program  string
}

// Guard checks git invocations against the enforcement policy.
type Guard struct {
	store      *store.Store
	sessions   sshkey.ActiveLookup
	identities Identities
	broker     *sshkey.Broker
	readUser   func(dir, gitDir string) GitUser
}

// New creates a guard.
func New(st *store.Store, sessions sshkey.ActiveLookup, identities Identities, broker *sshkey.Broker) *Guard {
	return &Guard{
		store:      st,
		sessions:   sessions,
		identities: identities,
		broker:     broker,
		readUser:   ReadGitUser,
	}
}

// Check decides whether `git args...` may run from repoDir in the given
// session. It fails with NO_ACTIVE_IDENTITY or IDENTITY_MISMATCH when an
// enforced network operation must be blocked.
func (g *Guard) Check(ctx context.Context, sessionID, repoDir string, args []string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	var (
		force   bool
		program string
	)
	err := g.store.View(func(cfg *config.Config) error {
		force, program = cfg.ForceUseGus, cfg.GitProgram
		return nil
	})
	if err != nil {
		return Decision{}, err
	}
	if program == "" {
		program = "git"
	}

	d := Decision{Mode: Permissive, Invocation: ParseArgs(repoDir, args), Program: program}
	if !force {
		return d, nil
	}
	d.Mode = Enforced
	if !d.Invocation.IsNetwork() {
		return d, nil
	}
	d.Guarded = true

	identityID, ok, err := g.sessions.Lookup(sessionID)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Decision{}, output.NewErrorf(output.CodeNoActiveIdentity,
			"git %s blocked: no identity is active in this terminal; run `gus set <id>` first", d.Invocation.Subcommand).
			WithDetail("session", sessionID)
	}
	ident, err := g.identities.Get(identityID)
	if err != nil {
		return Decision{}, err
	}
	d.Identity = ident

	// clone has no repository config to compare against yet.
	if d.Invocation.Subcommand != "clone" {
		if err := compare(ident, g.readUser(d.Invocation.Dir, d.Invocation.GitDir)); err != nil {
			return Decision{}, err
		}
	}

	key, err := g.broker.ResolveForSession(sessionID, g.sessions, g.identities)
	if err != nil {
		return Decision{}, err
	}
	override := g.broker.Override(key)
	d.Key, d.Override = key, &override
	return d, nil
}

// Stdio are the streams handed to the git child process.
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run checks the invocation and, if allowed, runs git with the decision
// applied. The key override lives only in the child's environment, so there
// is nothing to restore afterwards whether git succeeds, fails or is killed.
func (g *Guard) Run(ctx context.Context, sessionID, repoDir string, args []string, stdio Stdio) (Decision, error) {
	d, err := g.Check(ctx, sessionID, repoDir, args)
	if err != nil {
		return d, err
	}

	cmd := exec.CommandContext(ctx, d.Program, args...)
	cmd.Dir = repoDir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = stdio.Stdin, stdio.Stdout, stdio.Stderr
	if d.Override != nil {
		d.Override.Apply(cmd)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return d, output.NewErrorf(output.CodeGitError, "git exited with status %d", exitErr.ExitCode()).
				WithDetail("exit_code", exitErr.ExitCode()).
				WithCause(err)
		}
		return d, output.NewErrorf(output.CodeGitError, "failed to run %s: %v", d.Program, err).WithCause(err)
	}
	return d, nil
}

// compare fails when the repository would record a different author than
// the active identity. Emails compare case-insensitively.
func compare(ident config.Identity, user GitUser) error {
	if ident.Name == user.Name && strings.EqualFold(ident.Email, user.Email) {
		return nil
	}
	return output.NewErrorf(output.CodeIdentityMismatch,
		"active identity %q expects %s <%s>, but this repository is configured as %s <%s>",
		ident.ID, ident.Name, ident.Email, orUnset(user.Name), orUnset(user.Email)).
		WithDetail("identity", ident.ID).
		WithDetail("expected_name", ident.Name).
		WithDetail("expected_email", ident.Email).
		WithDetail("configured_name", user.Name).
		WithDetail("configured_email", user.Email)
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
