// Package identity is the catalog of Git identities and the key pairs bound
// to them. It owns the identities and keys sections of the state file.
package identity

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/output"
	"github.com/gusdev/gus/pkg/gus/session"
	"github.com/gusdev/gus/pkg/gus/sshkey"
	"github.com/gusdev/gus/pkg/gus/store"
)

// Store manages identities on top of a state store and a key broker.
type Store struct {
	store  *store.Store
	broker *sshkey.Broker
}

// New creates an identity store.
func New(st *store.Store, broker *sshkey.Broker) *Store {
	return &Store{store: st, broker: broker}
}

// AddOptions controls how the key pair of a new identity is obtained.
type AddOptions struct {
	// Passphrase protects a generated key. Ignored when KeyPath is set.
	Passphrase string
	// KeyPath names an existing private key to import instead of generating one.
	KeyPath string
}

// References lists what still points at an identity.
type References struct {
	Sessions []string
	Rules    []string
}

// InUse reports whether anything references the identity.
func (r References) InUse() bool {
	return len(r.Sessions) > 0 || len(r.Rules) > 0
}

// KeyPath returns where a generated key for identity id is written.
func KeyPath(keyDir, id string) string {
	return filepath.Join(keyDir, "id_"+id)
}

// Add creates an identity together with its key pair.
func (s *Store) Add(ctx context.Context, id, name, email string, opts AddOptions) (config.Identity, error) {
	if err := config.ValidateIdentityID(id); err != nil {
		return config.Identity{}, output.NewError(output.CodeInvalidInput, err.Error())
	}
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" {
		return config.Identity{}, output.NewError(output.CodeInvalidInput, "name and email are required")
	}

	var (
		ident     config.Identity
		generated *config.KeyPair
	)
	err := s.store.Update(func(cfg *config.Config) error {
		if cfg.FindIdentity(id) >= 0 {
			return output.NewErrorf(output.CodeDuplicateID, "identity %q already exists", id).WithDetail("identity", id)
		}

		var (
			key config.KeyPair
			err error
		)
		if opts.KeyPath != "" {
			key, err = s.broker.Import(opts.KeyPath)
		} else {
			key, err = s.broker.Generate(ctx, sshkey.GenerateRequest{
				Type:                cfg.DefaultKeyType,
				Rounds:              cfg.DefaultKeyRounds,
				Passphrase:          opts.Passphrase,
				Comment:             email,
				PrivatePath:         KeyPath(cfg.DefaultKeyDir, id),
				MinPassphraseLength: cfg.MinPassphraseLength,
			})
			if err == nil {
				generated = &key
			}
		}
		if err != nil {
			return err
		}

		ident = config.Identity{ID: id, Name: name, Email: email, KeyID: key.ID}
		cfg.Keys = append(cfg.Keys, key)
		cfg.Identities = append(cfg.Identities, ident)
		return nil
	})
	if err != nil {
		if generated != nil {
			_ = s.broker.Remove(*generated)
		}
		return config.Identity{}, err
	}
	return ident, nil
}

// Remove deletes an identity. Unless force is set it fails while a session
// has it active or a rule points at it. A forced removal drops those rules
// and unsets those sessions. Key files are deleted only if gus created them.
func (s *Store) Remove(id string, force bool) (References, error) {
	var (
		dropped config.KeyPair
		used    References
	)
	err := s.store.Update(func(cfg *config.Config) error {
		i := cfg.FindIdentity(id)
		if i < 0 {
			return notFound(id)
		}
		used = references(cfg, id)
		if used.InUse() && !force {
			return output.NewErrorf(output.CodeIdentityInUse,
				"identity %q is in use by %d session(s) and %d rule(s); use --force to remove it anyway",
				id, len(used.Sessions), len(used.Rules)).
				WithDetail("sessions", used.Sessions).
				WithDetail("rules", used.Rules)
		}

		if k := cfg.FindKey(cfg.Identities[i].KeyID); k >= 0 {
			dropped = cfg.Keys[k]
			cfg.Keys = append(cfg.Keys[:k], cfg.Keys[k+1:]...)
		}
		cfg.Identities = append(cfg.Identities[:i], cfg.Identities[i+1:]...)

		rules := cfg.Rules[:0]
		for _, r := range cfg.Rules {
			if r.IdentityID != id {
				rules = append(rules, r)
			}
		}
		cfg.Rules = rules
		session.ClearIdentity(cfg, id)
		return nil
	})
	if err != nil {
		return References{}, err
	}

	// The record is gone; files are removed after the commit so a failed
	// write never leaves an identity without its key.
	if err := s.broker.Remove(dropped); err != nil {
		return used, err
	}
	return used, nil
}

// Edit changes the name and/or email of an identity. Empty values keep the
// current ones.
func (s *Store) Edit(id, name, email string) (config.Identity, error) {
	var ident config.Identity
	err := s.store.Update(func(cfg *config.Config) error {
		i := cfg.FindIdentity(id)
		if i < 0 {
			return notFound(id)
		}
		if name = strings.TrimSpace(name); name != "" {
			cfg.Identities[i].Name = name
		}
		if email = strings.TrimSpace(email); email != "" {
			cfg.Identities[i].Email = email
		}
		ident = cfg.Identities[i]
		return nil
	})
	return ident, err
}

// Get returns one identity.
func (s *Store) Get(id string) (config.Identity, error) {
	var ident config.Identity
	err := s.store.View(func(cfg *config.Config) error {
		i := cfg.FindIdentity(id)
		if i < 0 {
			return notFound(id)
		}
		ident = cfg.Identities[i]
		return nil
	})
	return ident, err
}

// List returns all identities in the order they were added.
func (s *Store) List() ([]config.Identity, error) {
	var out []config.Identity
	err := s.store.View(func(cfg *config.Config) error {
		out = append(out, cfg.Identities...)
		return nil
	})
	return out, err
}

// KeyFor returns the key pair bound to an identity.
func (s *Store) KeyFor(id string) (config.KeyPair, error) {
	var key config.KeyPair
	err := s.store.View(func(cfg *config.Config) error {
		var err error
		key, err = keyOf(cfg, id)
		return err
	})
	return key, err
}

// References reports which sessions and rules point at an identity.
func (s *Store) References(id string) (References, error) {
	var refs References
	err := s.store.View(func(cfg *config.Config) error {
		if cfg.FindIdentity(id) < 0 {
			return notFound(id)
		}
		refs = references(cfg, id)
		return nil
	})
	return refs, err
}

// RegenerateKey replaces the managed key pair of an identity with a fresh
// one at the same location. This is destructive: the old public key stops
// working everywhere it was registered.
func (s *Store) RegenerateKey(ctx context.Context, id, passphrase string) (config.KeyPair, error) {
	var fresh config.KeyPair
	err := s.store.Update(func(cfg *config.Config) error {
		key, err := keyOf(cfg, id)
		if err != nil {
			return err
		}
		i := cfg.Identities[cfg.FindIdentity(id)]
		fresh, err = s.broker.Regenerate(ctx, key, sshkey.GenerateRequest{
			Type:                key.Type,
			Rounds:              cfg.DefaultKeyRounds,
			Passphrase:          passphrase,
			Comment:             i.Email,
			MinPassphraseLength: cfg.MinPassphraseLength,
		})
		if err != nil {
			return err
		}
		cfg.Keys[cfg.FindKey(key.ID)] = fresh
		return nil
	})
	return fresh, err
}

func keyOf(cfg *config.Config, id string) (config.KeyPair, error) {
	i := cfg.FindIdentity(id)
	if i < 0 {
		return config.KeyPair{}, notFound(id)
	}
	k := cfg.FindKey(cfg.Identities[i].KeyID)
	if k < 0 {
		return config.KeyPair{}, output.NewErrorf(output.CodeKeyError, "identity %q has no key pair", id)
	}
	return cfg.Keys[k], nil
}

func references(cfg *config.Config, id string) References {
	var refs References
	for _, s := range cfg.Sessions {
		if s.IdentityID == id {
			refs.Sessions = append(refs.Sessions, s.ID)
		}
	}
	for _, r := range cfg.Rules {
		if r.IdentityID == id {
			refs.Rules = append(refs.Rules, r.Pattern)
		}
	}
	return refs
}

func notFound(id string) error {
	return output.NewErrorf(output.CodeNotFound, "identity %q does not exist", id).WithDetail("identity", id)
}
