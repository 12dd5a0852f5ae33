// Package sshkey generates, imports and resolves the SSH key pairs bound to
// identities, and builds the per-operation override that makes git use one
// specific private key.
package sshkey

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"

	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/output"
)

// ActiveLookup reports a session's active identity without modifying state.
type ActiveLookup interface {
	Lookup(sessionID string) (identityID string, ok bool, err error)
}

// KeyLookup returns the key pair bound to an identity.
type KeyLookup interface {
	KeyFor(identityID string) (config.KeyPair, error)
}

// Broker owns key files on disk. It never keeps private key material after
// generation; only paths are handed back.
type Broker struct {
	gen   Generator
	now   func() time.Time
	newID func() string
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) BrokerOption {
	return func(b *Broker) {
		b.now = now
	}
}

// NewBroker creates a broker that creates keys with gen.
func NewBroker(gen Generator, opts ...BrokerOption) *Broker {
	b := &Broker{
		gen:   gen,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Generate creates a new managed key pair. It refuses short passphrases and
// never overwrites existing files.
func (b *Broker) Generate(ctx context.Context, req GenerateRequest) (config.KeyPair, error) {
	if !req.Type.Valid() {
		return config.KeyPair{}, output.NewErrorf(output.CodeInvalidInput, "unsupported key type %q", req.Type)
	}
	if len(req.Passphrase) < req.MinPassphraseLength {
		return config.KeyPair{}, output.NewErrorf(output.CodePassphraseTooShort,
			"ssh key passphrase must be at least %d characters (got %d)", req.MinPassphraseLength, len(req.Passphrase))
	}

	for _, p := range []string{req.PrivatePath, req.PublicPath()} {
		if _, err := os.Lstat(p); err == nil {
			return config.KeyPair{}, output.NewErrorf(output.CodeKeyExists,
				"refusing to overwrite existing key file %s", p).WithDetail("path", p)
		}
	}

	if err := os.MkdirAll(filepath.Dir(req.PrivatePath), 0o700); err != nil {
		return config.KeyPair{}, output.NewErrorf(output.CodeKeyError, "failed to create key directory: %v", err).WithCause(err)
	}

	if err := b.gen.Generate(ctx, req); err != nil {
		if errors.Is(err, os.ErrExist) {
			return config.KeyPair{}, output.NewErrorf(output.CodeKeyExists, "key file appeared at %s during generation", req.PrivatePath).WithCause(err)
		}
		return config.KeyPair{}, output.NewErrorf(output.CodeKeygenFailed, "failed to generate ssh key: %v", err).WithCause(err)
	}

	return config.KeyPair{
		ID:                  b.newID(),
		Type:                req.Type,
		PrivatePath:         req.PrivatePath,
		PublicPath:          req.PublicPath(),
		PassphraseProtected: req.Passphrase != "",
		Managed:             true,
		CreatedAt:           b.now().UTC(),
	}, nil
}

// Import registers an existing key pair. The files stay owned by the user:
// gus never deletes or regenerates an imported key.
func (b *Broker) Import(privatePath string) (config.KeyPair, error) {
	abs, err := filepath.Abs(privatePath)
	if err != nil {
		return config.KeyPair{}, output.NewErrorf(output.CodeInvalidInput, "invalid key path %q: %v", privatePath, err)
	}
	pubPath := abs + ".pub"

	privData, err := os.ReadFile(abs)
	if err != nil {
		return config.KeyPair{}, output.NewErrorf(output.CodeKeyFileMissing, "cannot read private key %s: %v", abs, err).WithCause(err)
	}
	pubData, err := os.ReadFile(pubPath)
	if err != nil {
		return config.KeyPair{}, output.NewErrorf(output.CodeKeyFileMissing, "cannot read public key %s: %v", pubPath, err).WithCause(err)
	}

	pub, _, _, _, err := ssh.ParseAuthorizedKey(pubData)
	if err != nil {
		return config.KeyPair{}, output.NewErrorf(output.CodeKeyError, "invalid public key %s: %v", pubPath, err).WithCause(err)
	}
	keyType, err := keyTypeOf(pub)
	if err != nil {
		return config.KeyPair{}, output.NewErrorf(output.CodeKeyError, "%s: %v", pubPath, err)
	}

	protected := false
	if _, err := ssh.ParseRawPrivateKey(privData); err != nil {
		var missing *ssh.PassphraseMissingError
		if !errors.As(err, &missing) {
			return config.KeyPair{}, output.NewErrorf(output.CodeKeyError, "invalid private key %s: %v", abs, err).WithCause(err)
		}
		protected = true
	}

	return config.KeyPair{
		ID:                  b.newID(),
		Type:                keyType,
		PrivatePath:         abs,
		PublicPath:          pubPath,
		PassphraseProtected: protected,
		Managed:             false,
		CreatedAt:           b.now().UTC(),
	}, nil
}

// Regenerate replaces a managed key pair with a new one at the same paths.
// The new pair is generated next to the old one and only moved into place
// once generation succeeded, so a failure leaves the old key intact. The
// returned record keeps the original key id.
func (b *Broker) Regenerate(ctx context.Context, key config.KeyPair, req GenerateRequest) (config.KeyPair, error) {
	if !key.Managed {
		return config.KeyPair{}, output.NewErrorf(output.CodeKeyError,
			"key %s was imported, not generated by gus; refusing to regenerate it", key.PrivatePath)
	}

	staged := config.KeyPair{Managed: true, PrivatePath: key.PrivatePath + ".new"}
	staged.PublicPath = staged.PrivatePath + ".pub"
	// Leftovers of an interrupted regeneration.
	if err := b.Remove(staged); err != nil {
		return config.KeyPair{}, err
	}

	req.PrivatePath = staged.PrivatePath
	fresh, err := b.Generate(ctx, req)
	if err != nil {
		_ = b.Remove(staged)
		return config.KeyPair{}, err
	}

	for _, mv := range [][2]string{
		{fresh.PrivatePath, key.PrivatePath},
		{fresh.PublicPath, key.PublicPath},
	} {
		if err := os.Rename(mv[0], mv[1]); err != nil {
			_ = b.Remove(staged)
			return config.KeyPair{}, output.NewErrorf(output.CodeKeyError,
				"failed to move new key into place at %s: %v", mv[1], err).WithCause(err)
		}
	}

	fresh.ID = key.ID
	fresh.PrivatePath, fresh.PublicPath = key.PrivatePath, key.PublicPath
	return fresh, nil
}

// Remove deletes the files of a managed key pair. Imported keys and files
// that are already gone are left alone.
func (b *Broker) Remove(key config.KeyPair) error {
	if !key.Managed {
		return nil
	}
	for _, p := range []string{key.PrivatePath, key.PublicPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return output.NewErrorf(output.CodeKeyError, "failed to remove key file %s: %v", p, err).WithCause(err)
		}
	}
	return nil
}

// PublicKey returns the public key line of key.
func (b *Broker) PublicKey(key config.KeyPair) (string, error) {
	data, err := os.ReadFile(key.PublicPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", output.NewErrorf(output.CodeKeyFileMissing,
			"public key %s no longer exists (deleted outside gus?)", key.PublicPath).WithDetail("path", key.PublicPath)
	}
	if err != nil {
		return "", output.NewErrorf(output.CodeKeyError, "failed to read public key: %v", err).WithCause(err)
	}
	return string(data), nil
}

// Fingerprint returns the SHA256 fingerprint of key's public half.
func (b *Broker) Fingerprint(key config.KeyPair) (string, error) {
	line, err := b.PublicKey(key)
	if err != nil {
		return "", err
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return "", output.NewErrorf(output.CodeKeyError, "invalid public key %s: %v", key.PublicPath, err).WithCause(err)
	}
	return ssh.FingerprintSHA256(pub), nil
}

// ResolveForSession returns the key pair a session must present: the key of
// its active identity.
func (b *Broker) ResolveForSession(sessionID string, sessions ActiveLookup, identities KeyLookup) (config.KeyPair, error) {
	identityID, ok, err := sessions.Lookup(sessionID)
	if err != nil {
		return config.KeyPair{}, err
	}
	if !ok {
		return config.KeyPair{}, output.NewErrorf(output.CodeNoActiveIdentity,
			"no active identity in this terminal; run `gus set <id>`").WithDetail("session", sessionID)
	}
	key, err := identities.KeyFor(identityID)
	if err != nil {
		return config.KeyPair{}, err
	}
	if _, err := os.Stat(key.PrivatePath); err != nil {
		return config.KeyPair{}, output.NewErrorf(output.CodeKeyFileMissing,
			"private key %s for identity %q is missing", key.PrivatePath, identityID).WithCause(err)
	}
	return key, nil
}

func keyTypeOf(pub ssh.PublicKey) (config.KeyType, error) {
	switch t := pub.Type(); {
	case t == ssh.KeyAlgoED25519:
		return config.KeyTypeEd25519, nil
	case t == ssh.KeyAlgoRSA:
		return config.KeyTypeRSA, nil
	case strings.HasPrefix(t, "ecdsa-sha2-"):
		return config.KeyTypeECDSA, nil
	default:
		return "", fmt.Errorf("unsupported key algorithm %s", t)
	}
}
