package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/output"
	"github.com/gusdev/gus/pkg/gus/store"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T, identities ...string) (*Tracker, *store.Store, *clock) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "config.yaml"), config.DefaultConfig(t.TempDir()))
	err := st.Update(func(cfg *config.Config) error {
		for _, id := range identities {
			cfg.Keys = append(cfg.Keys, config.KeyPair{ID: "key-" + id, Type: config.KeyTypeEd25519})
			cfg.Identities = append(cfg.Identities, config.Identity{ID: id, Name: id, Email: id + "@example.com", KeyID: "key-" + id})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New(st, WithClock(c.now)), st, c
}

func TestGetActiveRegistersNewSession(t *testing.T) {
	tr, _, _ := setup(t, "work")

	id, ok, err := tr.GetActive("s1")
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if ok || id != "" {
		t.Errorf("new session should be unset, got %q", id)
	}

	sessions, err := tr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Errorf("expected s1 to be registered, got %+v", sessions)
	}
}

func TestSessionIsolation(t *testing.T) {
	tr, _, _ := setup(t, "work", "personal")

	if err := tr.SetActive("s1", "work"); err != nil {
		t.Fatal(err)
	}
	if err := tr.SetActive("s2", "personal"); err != nil {
		t.Fatal(err)
	}

	tests := map[string]string{"s1": "work", "s2": "personal"}
	for sid, want := range tests {
		got, ok, err := tr.GetActive(sid)
		if err != nil || !ok || got != want {
			t.Errorf("GetActive(%s) = %q, %v, %v; want %q", sid, got, ok, err, want)
		}
	}

	if err := tr.Clear("s1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := tr.GetActive("s1"); ok {
		t.Error("s1 should be unset after Clear")
	}
	if got, _, _ := tr.GetActive("s2"); got != "personal" {
		t.Errorf("clearing s1 affected s2: %q", got)
	}
}

func TestSetActiveUnknownIdentity(t *testing.T) {
	tr, st, _ := setup(t, "work")

	err := tr.SetActive("s1", "ghost")
	if !output.IsCode(err, output.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	cfg, _ := st.Load()
	if len(cfg.Sessions) != 0 {
		t.Errorf("failed SetActive must not write: %+v", cfg.Sessions)
	}
}

func TestDanglingReferenceClearedLazily(t *testing.T) {
	tr, st, _ := setup(t, "work")
	if err := tr.SetActive("s1", "work"); err != nil {
		t.Fatal(err)
	}

	err := st.Update(func(cfg *config.Config) error {
		cfg.Identities = cfg.Identities[:0]
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := tr.Lookup("s1"); ok {
		t.Error("Lookup should treat a dangling reference as unset")
	}
	cfg, _ := st.Load()
	if cfg.Sessions[0].IdentityID != "work" {
		t.Error("Lookup must not write")
	}

	if _, ok, _ := tr.GetActive("s1"); ok {
		t.Error("GetActive should report unset")
	}
	cfg, _ = st.Load()
	if cfg.Sessions[0].IdentityID != "" {
		t.Errorf("dangling reference not cleared: %+v", cfg.Sessions[0])
	}
}

func TestPrune(t *testing.T) {
	tr, _, c := setup(t, "work")

	if err := tr.SetActive("old", "work"); err != nil {
		t.Fatal(err)
	}
	c.t = c.t.Add(48 * time.Hour)
	if err := tr.SetActive("new", "work"); err != nil {
		t.Fatal(err)
	}

	removed, err := tr.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed %d sessions, want 1", removed)
	}
	sessions, _ := tr.List()
	if len(sessions) != 1 || sessions[0].ID != "new" {
		t.Errorf("unexpected sessions after prune: %+v", sessions)
	}
}

func TestSetActivePrunesExpired(t *testing.T) {
	tr, st, c := setup(t, "work")
	err := st.Update(func(cfg *config.Config) error {
		cfg.SessionTTL = time.Hour
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := tr.SetActive("stale", "work"); err != nil {
		t.Fatal(err)
	}
	c.t = c.t.Add(2 * time.Hour)
	if err := tr.SetActive("fresh", "work"); err != nil {
		t.Fatal(err)
	}

	sessions, _ := tr.List()
	if len(sessions) != 1 || sessions[0].ID != "fresh" {
		t.Errorf("expired session survived: %+v", sessions)
	}
}

func TestClearIdentity(t *testing.T) {
	cfg := config.DefaultConfig("/keys")
	cfg.Sessions = []config.Session{
		{ID: "a", IdentityID: "work"},
		{ID: "b", IdentityID: "home"},
		{ID: "c", IdentityID: "work"},
	}

	cleared := ClearIdentity(&cfg, "work")
	if len(cleared) != 2 || cleared[0] != "a" || cleared[1] != "c" {
		t.Errorf("cleared = %v", cleared)
	}
	if cfg.Sessions[1].IdentityID != "home" {
		t.Error("unrelated session changed")
	}
}

func TestCurrentIDFromEnv(t *testing.T) {
	t.Setenv(EnvSessionID, "term-42")
	if got := CurrentID(); got != "term-42" {
		t.Errorf("CurrentID = %q", got)
	}
	if !FromEnv() {
		t.Error("FromEnv should be true")
	}

	t.Setenv(EnvSessionID, "")
	if got := CurrentID(); got == "" || got == "term-42" {
		t.Errorf("platform session id not used: %q", got)
	}
	if CurrentID() != CurrentID() {
		t.Error("CurrentID must be stable within one process")
	}
}
