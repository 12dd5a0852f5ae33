package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/output"
	"github.com/gusdev/gus/pkg/gus/session"
	"github.com/gusdev/gus/pkg/gus/sshkey"
	"github.com/gusdev/gus/pkg/gus/store"
)

const passphrase = "correct horse battery"

type fixture struct {
	ids    *Store
	st     *store.Store
	keyDir string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	keyDir := filepath.Join(dir, "keys")
	st := store.New(filepath.Join(dir, "config.yaml"), config.DefaultConfig(keyDir))
	return fixture{
		ids:    New(st, sshkey.NewBroker(sshkey.NativeGenerator{})),
		st:     st,
		keyDir: keyDir,
	}
}

func (f fixture) add(t *testing.T, id string) config.Identity {
	t.Helper()
	ident, err := f.ids.Add(context.Background(), id, "User "+id, id+"@example.com", AddOptions{Passphrase: passphrase})
	if err != nil {
		t.Fatalf("Add(%s) failed: %v", id, err)
	}
	return ident
}

func TestAddThenGet(t *testing.T) {
	f := newFixture(t)

	added, err := f.ids.Add(context.Background(), "work", "Alice Doe", "alice@corp.example", AddOptions{Passphrase: passphrase})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := f.ids.Get("work")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != added || got.Name != "Alice Doe" || got.Email != "alice@corp.example" {
		t.Errorf("Get returned %+v, added %+v", got, added)
	}

	key, err := f.ids.KeyFor("work")
	if err != nil {
		t.Fatalf("KeyFor failed: %v", err)
	}
	if key.PrivatePath != KeyPath(f.keyDir, "work") || key.PublicPath != key.PrivatePath+".pub" {
		t.Errorf("unexpected key paths: %+v", key)
	}
	for _, p := range []string{key.PrivatePath, key.PublicPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("key file missing: %v", err)
		}
	}
}

func TestAddValidation(t *testing.T) {
	f := newFixture(t)
	f.add(t, "work")

	tests := []struct {
		name  string
		id    string
		email string
		pass  string
		code  output.Code
	}{
		{"duplicate", "work", "x@example.com", passphrase, output.CodeDuplicateID},
		{"bad id", "-work", "x@example.com", passphrase, output.CodeInvalidInput},
		{"missing email", "home", " ", passphrase, output.CodeInvalidInput},
		{"short passphrase", "home", "x@example.com", "short", output.CodePassphraseTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ids.Add(context.Background(), tt.id, "Name", tt.email, AddOptions{Passphrase: tt.pass})
			if !output.IsCode(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}

	list, _ := f.ids.List()
	if len(list) != 1 {
		t.Errorf("failed adds must not persist anything: %+v", list)
	}
	if _, err := os.Stat(KeyPath(f.keyDir, "home")); !os.IsNotExist(err) {
		t.Error("failed add left a key file behind")
	}
}

func TestAddImportsExistingKey(t *testing.T) {
	f := newFixture(t)
	broker := sshkey.NewBroker(sshkey.NativeGenerator{})
	existing, err := broker.Generate(context.Background(), sshkey.GenerateRequest{
		Type:        config.KeyTypeEd25519,
		PrivatePath: filepath.Join(t.TempDir(), "id_mine"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.ids.Add(context.Background(), "mine", "Me", "me@example.com", AddOptions{KeyPath: existing.PrivatePath}); err != nil {
		t.Fatalf("Add with key failed: %v", err)
	}
	key, _ := f.ids.KeyFor("mine")
	if key.Managed || key.PrivatePath != existing.PrivatePath {
		t.Errorf("imported key: %+v", key)
	}

	if _, err := f.ids.Remove("mine", false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(existing.PrivatePath); err != nil {
		t.Error("removing an identity must not delete an imported key")
	}
}

func TestListKeepsInsertionOrder(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"zeta", "alpha", "mid"} {
		f.add(t, id)
	}

	list, err := f.ids.List()
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, ident := range list {
		got = append(got, ident.ID)
	}
	if len(got) != 3 || got[0] != "zeta" || got[1] != "alpha" || got[2] != "mid" {
		t.Errorf("List order = %v", got)
	}
}

func TestRemoveInUse(t *testing.T) {
	f := newFixture(t)
	f.add(t, "work")
	f.add(t, "home")
	tr := session.New(f.st)
	if err := tr.SetActive("s1", "work"); err != nil {
		t.Fatal(err)
	}
	if err := tr.SetActive("s2", "home"); err != nil {
		t.Fatal(err)
	}

	_, err := f.ids.Remove("work", false)
	if !output.IsCode(err, output.CodeIdentityInUse) {
		t.Fatalf("expected IDENTITY_IN_USE, got %v", err)
	}

	key, _ := f.ids.KeyFor("work")
	refs, err := f.ids.Remove("work", true)
	if err != nil {
		t.Fatalf("forced Remove failed: %v", err)
	}
	if len(refs.Sessions) != 1 || refs.Sessions[0] != "s1" {
		t.Errorf("references = %+v", refs)
	}

	if _, err := f.ids.Get("work"); !output.IsCode(err, output.CodeNotFound) {
		t.Errorf("expected NOT_FOUND after removal, got %v", err)
	}
	if _, ok, _ := tr.GetActive("s1"); ok {
		t.Error("s1 should read unset after its identity was removed")
	}
	if got, _, _ := tr.GetActive("s2"); got != "home" {
		t.Errorf("unrelated session changed: %q", got)
	}
	if _, err := os.Stat(key.PrivatePath); !os.IsNotExist(err) {
		t.Error("managed key file not deleted")
	}
}

func TestRemoveReferencedByRule(t *testing.T) {
	f := newFixture(t)
	f.add(t, "work")
	f.add(t, "home")
	err := f.st.Update(func(cfg *config.Config) error {
		cfg.Rules = append(cfg.Rules,
			config.Rule{Pattern: "/w", IdentityID: "work"},
			config.Rule{Pattern: "/h", IdentityID: "home"},
		)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.ids.Remove("work", false); !output.IsCode(err, output.CodeIdentityInUse) {
		t.Fatalf("a rule reference should block removal, got %v", err)
	}
	if _, err := f.ids.Remove("work", true); err != nil {
		t.Fatal(err)
	}

	cfg, _ := f.st.Load()
	if len(cfg.Rules) != 1 || cfg.Rules[0].Pattern != "/h" {
		t.Errorf("rules after forced removal: %+v", cfg.Rules)
	}
	if len(cfg.Keys) != 1 {
		t.Errorf("key record not removed: %+v", cfg.Keys)
	}
}

func TestRemoveUnused(t *testing.T) {
	f := newFixture(t)
	f.add(t, "work")

	if _, err := f.ids.Remove("work", false); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := f.ids.Remove("work", true); !output.IsCode(err, output.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestEdit(t *testing.T) {
	f := newFixture(t)
	f.add(t, "work")

	got, err := f.ids.Edit("work", "", "new@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "User work" || got.Email != "new@example.com" {
		t.Errorf("Edit = %+v", got)
	}
	if _, err := f.ids.Edit("nope", "x", ""); !output.IsCode(err, output.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestRegenerateKey(t *testing.T) {
	f := newFixture(t)
	f.add(t, "work")
	broker := sshkey.NewBroker(sshkey.NativeGenerator{})

	before, _ := f.ids.KeyFor("work")
	oldPrint, _ := broker.Fingerprint(before)

	after, err := f.ids.RegenerateKey(context.Background(), "work", passphrase+"!")
	if err != nil {
		t.Fatalf("RegenerateKey failed: %v", err)
	}
	newPrint, _ := broker.Fingerprint(after)
	if after.ID != before.ID || oldPrint == newPrint {
		t.Errorf("regenerated key: id %s -> %s, fingerprint unchanged=%v", before.ID, after.ID, oldPrint == newPrint)
	}

	stored, _ := f.ids.KeyFor("work")
	if !stored.CreatedAt.Equal(after.CreatedAt) {
		t.Error("regenerated key record not persisted")
	}
}

type brokenGenerator struct{}

func (brokenGenerator) Generate(context.Context, sshkey.GenerateRequest) error {
	return errors.New("ssh-keygen: boom")
}

func TestRegenerateKeyFailureKeepsIdentityUsable(t *testing.T) {
	f := newFixture(t)
	f.add(t, "work")
	before, _ := f.ids.KeyFor("work")

	broken := New(f.st, sshkey.NewBroker(brokenGenerator{}))
	if _, err := broken.RegenerateKey(context.Background(), "work", passphrase+"!"); err == nil {
		t.Fatal("RegenerateKey should fail with a broken generator")
	}

	after, err := f.ids.KeyFor("work")
	if err != nil {
		t.Fatal(err)
	}
	if after.PrivatePath != before.PrivatePath {
		t.Errorf("key record changed: %s -> %s", before.PrivatePath, after.PrivatePath)
	}
	for _, p := range []string{after.PrivatePath, after.PublicPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("key file %s lost after failed regeneration: %v", p, err)
		}
	}
}
