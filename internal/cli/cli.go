package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/gusdev/gus/internal/xdg"

	"github.com/gusdev/gus/pkg/gus/autoswitch"
	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/guard"
	"github.com/gusdev/gus/pkg/gus/identity"
	"github.com/gusdev/gus/pkg/gus/output"
	"github.com/gusdev/gus/pkg/gus/session"
	"github.com/gusdev/gus/pkg/gus/sshkey"
	"github.com/gusdev/gus/pkg/gus/store"
)

// ResolveConfigPath returns the effective config path considering:
// 1. Explicit configPath argument (highest priority, e.g. -c flag)
// 2. GUS_CONFIG env var
// 3. XDG default path
// If configPath is specified and GUS_CONFIG is set, prints a warning to stderr (unless silent).
func ResolveConfigPath(configPath string, silent bool, stderr io.Writer) string {
	if configPath != "" {
		if !silent && os.Getenv(xdg.EnvConfig) != "" {
			_, _ = fmt.Fprintf(stderr, "warning: %s environment variable ignored because -c flag was specified\n", xdg.EnvConfig)
		}
		return configPath
	}
	xdgPaths, _ := xdg.NewPaths()
	return xdgPaths.ConfigPath()
}

// CLI wires the gus components together for one command invocation.
type CLI struct {
	configPath string
	xdgPaths   xdg.Paths
	sessionID  string
	stdin      io.Reader
	Silent     bool
	output     *output.Handler

	store      *store.Store
	broker     *sshkey.Broker
	identities *identity.Store
	sessions   *session.Tracker
	matcher    *autoswitch.Matcher
	guard      *guard.Guard
}

// Option customizes a CLI, mainly for tests.
type Option func(*options)

type options struct {
	sessionID string
	generator sshkey.Generator
	home      string
	paths     *xdg.Paths
}

// WithSessionID pins the session id instead of deriving it from the terminal.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

// WithGenerator overrides the key generator.
func WithGenerator(gen sshkey.Generator) Option {
	return func(o *options) { o.generator = gen }
}

// WithHome sets the directory `~` expands to in auto-switch patterns.
func WithHome(home string) Option {
	return func(o *options) { o.home = home }
}

// WithPaths overrides the XDG directories.
func WithPaths(paths xdg.Paths) Option {
	return func(o *options) { o.paths = &paths }
}

// NewCLI creates a new CLI instance
func NewCLI(configPath string, silent bool, stdin io.Reader, stdout, stderr io.Writer, opts ...Option) (*CLI, *output.Error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	xdgPaths := xdg.Paths{}
	if o.paths != nil {
		xdgPaths = *o.paths
	} else {
		var err error
		if xdgPaths, err = xdg.NewPaths(); err != nil {
			return nil, output.NewErrorf(output.CodeConfigNotFound, "failed to get XDG paths: %v", err)
		}
	}
	configPath = ResolveConfigPath(configPath, silent, stderr)

	st := store.New(configPath, config.DefaultConfig(xdgPaths.KeyDir()))
	cfg, err := st.Load()
	if err != nil {
		return nil, output.AsError(err)
	}

	gen := o.generator
	if gen == nil {
		gen = sshkey.DefaultGenerator(cfg.KeygenProgram)
	}
	broker := sshkey.NewBroker(gen)

	sessionID := o.sessionID
	if sessionID == "" {
		sessionID = session.CurrentID()
	}

	var matcherOpts []autoswitch.Option
	if o.home != "" {
		matcherOpts = append(matcherOpts, autoswitch.WithHome(o.home))
	}

	identities := identity.New(st, broker)
	sessions := session.New(st)
	return &CLI{
		configPath: configPath,
		xdgPaths:   xdgPaths,
		sessionID:  sessionID,
		stdin:      stdin,
		Silent:     silent,
		output:     output.NewHandler(stdout, stderr, output.WithSilent(silent)),
		store:      st,
		broker:     broker,
		identities: identities,
		sessions:   sessions,
		matcher:    autoswitch.New(st, matcherOpts...),
		guard:      guard.New(st, sessions, identities, broker),
	}, nil
}

// Output returns the unified output handler for this CLI instance.
func (c *CLI) Output() *output.Handler {
	return c.output
}

// SetJSONMode enables or disables JSON output mode for the current command.
// This creates a new handler with fresh warning collection.
func (c *CLI) SetJSONMode(enabled bool) {
	c.output = c.output.WithJSONMode(enabled)
}

// SessionID returns the session this invocation acts on.
func (c *CLI) SessionID() string {
	return c.sessionID
}

// ConfigPath returns the state file in use.
func (c *CLI) ConfigPath() string {
	return c.configPath
}

// warnWithoutShellIntegration tells the user that exports only reach the
// terminal through the gus() wrapper installed by `gus setup`.
func (c *CLI) warnWithoutShellIntegration() {
	c.output.Warn(output.NewWarningf(output.WarnSessionFromParent,
		"shell integration is not loaded in this terminal; add `eval \"$(gus setup)\"` to your shell rc so GIT_AUTHOR_* follow the active identity").
		WithDetail("session", c.sessionID))
}
