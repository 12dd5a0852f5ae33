// Package session tracks which identity is active in each terminal.
//
// Sessions are keyed by an opaque id that is stable for the lifetime of one
// terminal and distinct across terminals. There is no reliable signal when a
// terminal closes, so entries are created lazily and pruned by age.
package session

import (
	"time"

	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/output"
	"github.com/gusdev/gus/pkg/gus/store"
)

// Tracker reads and writes the session table of a store.
type Tracker struct {
	store *store.Store
	now   func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source used for last_updated and pruning.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// New creates a tracker backed by st.
func New(st *store.Store, opts ...Option) *Tracker {
	t := &Tracker{store: st, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetActive returns the session's active identity. The first query from a
// new session id registers it; a reference to an identity that no longer
// exists is cleared.
func (t *Tracker) GetActive(sessionID string) (string, bool, error) {
	var (
		active string
		ok     bool
	)
	err := t.store.Update(func(cfg *config.Config) error {
		s := touch(cfg, sessionID, t.now())
		if s.IdentityID != "" && cfg.FindIdentity(s.IdentityID) < 0 {
			s.IdentityID = ""
		}
		active, ok = s.IdentityID, s.IdentityID != ""
		return nil
	})
	return active, ok, err
}

// Lookup is GetActive without side effects. Policy code uses it so that
// checking a session never writes the state file.
func (t *Tracker) Lookup(sessionID string) (string, bool, error) {
	var (
		active string
		ok     bool
	)
	err := t.store.View(func(cfg *config.Config) error {
		active, ok = Active(cfg, sessionID)
		return nil
	})
	return active, ok, err
}

// SetActive makes identityID the active identity of the session.
func (t *Tracker) SetActive(sessionID, identityID string) error {
	return t.store.Update(func(cfg *config.Config) error {
		return Assign(cfg, sessionID, identityID, t.now())
	})
}

// Clear resets the session to unset. Clearing an unknown session is a no-op.
func (t *Tracker) Clear(sessionID string) error {
	return t.store.Update(func(cfg *config.Config) error {
		if i := cfg.FindSession(sessionID); i >= 0 {
			cfg.Sessions[i].IdentityID = ""
			cfg.Sessions[i].LastUpdated = t.now().UTC()
		}
		return nil
	})
}

// Prune removes sessions not updated within olderThan and reports how many
// were dropped.
func (t *Tracker) Prune(olderThan time.Duration) (int, error) {
	removed := 0
	err := t.store.Update(func(cfg *config.Config) error {
		removed = PruneBefore(cfg, t.now().Add(-olderThan))
		return nil
	})
	return removed, err
}

// List returns all known sessions.
func (t *Tracker) List() ([]config.Session, error) {
	var sessions []config.Session
	err := t.store.View(func(cfg *config.Config) error {
		sessions = append(sessions, cfg.Sessions...)
		return nil
	})
	return sessions, err
}

// Active reports the identity of sessionID in cfg, treating dangling
// references as unset.
func Active(cfg *config.Config, sessionID string) (string, bool) {
	i := cfg.FindSession(sessionID)
	if i < 0 {
		return "", false
	}
	id := cfg.Sessions[i].IdentityID
	if id == "" || cfg.FindIdentity(id) < 0 {
		return "", false
	}
	return id, true
}

// Assign sets the active identity of a session inside an open transaction.
// Sessions older than the configured TTL are pruned on the way.
func Assign(cfg *config.Config, sessionID, identityID string, now time.Time) error {
	if cfg.FindIdentity(identityID) < 0 {
		return output.NewErrorf(output.CodeNotFound, "identity %q does not exist", identityID).
			WithDetail("identity", identityID)
	}
	s := touch(cfg, sessionID, now)
	s.IdentityID = identityID
	if cfg.SessionTTL > 0 {
		PruneBefore(cfg, now.Add(-cfg.SessionTTL))
	}
	return nil
}

// PruneBefore drops sessions last updated before cutoff.
func PruneBefore(cfg *config.Config, cutoff time.Time) int {
	kept := cfg.Sessions[:0]
	for _, s := range cfg.Sessions {
		if s.LastUpdated.Before(cutoff) {
			continue
		}
		kept = append(kept, s)
	}
	removed := len(cfg.Sessions) - len(kept)
	cfg.Sessions = kept
	return removed
}

// ClearIdentity unsets every session that has identityID active and returns
// the affected session ids.
func ClearIdentity(cfg *config.Config, identityID string) []string {
	var cleared []string
	for i := range cfg.Sessions {
		if cfg.Sessions[i].IdentityID == identityID {
			cfg.Sessions[i].IdentityID = ""
			cleared = append(cleared, cfg.Sessions[i].ID)
		}
	}
	return cleared
}

// touch returns the session entry, creating it if needed, with last_updated
// set to now.
func touch(cfg *config.Config, sessionID string, now time.Time) *config.Session {
	i := cfg.FindSession(sessionID)
	if i < 0 {
		cfg.Sessions = append(cfg.Sessions, config.Session{ID: sessionID})
		i = len(cfg.Sessions) - 1
	}
	cfg.Sessions[i].LastUpdated = now.UTC()
	return &cfg.Sessions[i]
}
