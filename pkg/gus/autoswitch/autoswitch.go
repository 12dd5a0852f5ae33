// Package autoswitch picks an identity from the working directory.
//
// Rules are directory globs bound to identities and are evaluated in the
// order they were added; the first match wins. There is no specificity
// ranking: reorder rules to change precedence.
package autoswitch

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/output"
	"github.com/gusdev/gus/pkg/gus/session"
	"github.com/gusdev/gus/pkg/gus/store"
)

// Matcher manages the rule list of a store and evaluates it.
type Matcher struct {
	store *store.Store
	home  string
	now   func() time.Time
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithHome sets the directory `~` expands to.
func WithHome(home string) Option {
	return func(m *Matcher) {
		m.home = home
	}
}

// WithClock overrides the time source used when Check switches a session.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) {
		m.now = now
	}
}

// New creates a matcher backed by st. `~` expands to the user's home
// directory unless WithHome is given.
func New(st *store.Store, opts ...Option) *Matcher {
	home, _ := os.UserHomeDir()
	m := &Matcher{store: st, home: home, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Result is the outcome of Check.
type Result struct {
	Enabled    bool
	Matched    bool
	Pattern    string
	IdentityID string
	// Switched is set when the session's active identity changed.
	Switched bool
}

// Evaluate returns the identity of the first rule matching cwd. It does not
// consult the enabled flag.
func (m *Matcher) Evaluate(cwd string) (string, bool, error) {
	var (
		id string
		ok bool
	)
	err := m.store.View(func(cfg *config.Config) error {
		rule, found, err := m.evaluate(cfg, cwd)
		id, ok = rule.IdentityID, found
		return err
	})
	return id, ok, err
}

// Add appends a rule. The pattern must be absolute (or start with ~/) and
// must not already exist; the identity must exist.
func (m *Matcher) Add(pattern, identityID string) error {
	if _, err := Compile(pattern, m.home); err != nil {
		return output.NewErrorf(output.CodeInvalidPattern, "invalid pattern %q: %v", pattern, err).WithCause(err)
	}
	return m.store.Update(func(cfg *config.Config) error {
		if cfg.FindIdentity(identityID) < 0 {
			return output.NewErrorf(output.CodeNotFound, "identity %q does not exist", identityID).
				WithDetail("identity", identityID)
		}
		if cfg.FindRule(pattern) >= 0 {
			return output.NewErrorf(output.CodeDuplicatePattern, "pattern %q already exists", pattern).
				WithDetail("pattern", pattern)
		}
		cfg.Rules = append(cfg.Rules, config.Rule{Pattern: pattern, IdentityID: identityID})
		return nil
	})
}

// Remove deletes the rule with exactly this pattern. The order of the
// remaining rules is unchanged.
func (m *Matcher) Remove(pattern string) error {
	return m.store.Update(func(cfg *config.Config) error {
		i := cfg.FindRule(pattern)
		if i < 0 {
			return output.NewErrorf(output.CodeNotFound, "no rule with pattern %q", pattern).
				WithDetail("pattern", pattern)
		}
		cfg.Rules = append(cfg.Rules[:i], cfg.Rules[i+1:]...)
		return nil
	})
}

// List returns the rules in evaluation order.
func (m *Matcher) List() ([]config.Rule, error) {
	var rules []config.Rule
	err := m.store.View(func(cfg *config.Config) error {
		rules = append(rules, cfg.Rules...)
		return nil
	})
	return rules, err
}

// Enable turns on switching from the directory-change hook.
func (m *Matcher) Enable() error {
	return m.setEnabled(true)
}

// Disable turns off switching. Rules are kept.
func (m *Matcher) Disable() error {
	return m.setEnabled(false)
}

func (m *Matcher) setEnabled(on bool) error {
	return m.store.Update(func(cfg *config.Config) error {
		cfg.AutoSwitchEnabled = on
		return nil
	})
}

// Enabled reports whether auto-switch is on.
func (m *Matcher) Enabled() (bool, error) {
	var on bool
	err := m.store.View(func(cfg *config.Config) error {
		on = cfg.AutoSwitchEnabled
		return nil
	})
	return on, err
}

// Check is the directory-change hook: when auto-switch is enabled and a rule
// matches cwd, the session switches to that rule's identity. Otherwise the
// session keeps whatever it had. The state file is only written when the
// active identity actually changes.
func (m *Matcher) Check(sessionID, cwd string) (Result, error) {
	var res Result
	err := m.store.View(func(cfg *config.Config) error {
		res.Enabled = cfg.AutoSwitchEnabled
		if !res.Enabled {
			return nil
		}
		rule, ok, err := m.evaluate(cfg, cwd)
		if err != nil || !ok {
			return err
		}
		res.Matched, res.Pattern, res.IdentityID = true, rule.Pattern, rule.IdentityID
		active, _ := session.Active(cfg, sessionID)
		res.Switched = active != rule.IdentityID
		return nil
	})
	if err != nil || !res.Switched {
		return res, err
	}

	err = m.store.Update(func(cfg *config.Config) error {
		return session.Assign(cfg, sessionID, res.IdentityID, m.now())
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// evaluate walks cfg's rules in order. Rules whose pattern no longer compiles
// or whose identity is gone are skipped.
func (m *Matcher) evaluate(cfg *config.Config, cwd string) (config.Rule, bool, error) {
	dir, err := filepath.Abs(cwd)
	if err != nil {
		return config.Rule{}, false, output.NewErrorf(output.CodeInvalidInput, "invalid directory %q: %v", cwd, err)
	}
	for _, rule := range cfg.Rules {
		p, err := Compile(rule.Pattern, m.home)
		if err != nil || cfg.FindIdentity(rule.IdentityID) < 0 {
			continue
		}
		if p.Match(dir) {
			return rule, true, nil
		}
	}
	return config.Rule{}, false, nil
}
