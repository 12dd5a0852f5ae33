package sshkey

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/gusdev/gus/pkg/gus/config"
)

// DefaultRSABits is used when a request asks for an RSA key without a size.
const DefaultRSABits = 3072

// GenerateRequest describes one key pair to create.
type GenerateRequest struct {
	Type       config.KeyType
	Bits       int // RSA only; 0 = DefaultRSABits
	Rounds     int // KDF rounds for the passphrase
	Passphrase string
	Comment    string

	// PrivatePath is the target private key file; the public key is written
	// next to it with a ".pub" suffix.
	PrivatePath string

	// MinPassphraseLength is the policy minimum in effect when the key is made.
	MinPassphraseLength int
}

// PublicPath returns the public key path for the request.
func (r GenerateRequest) PublicPath() string {
	return r.PrivatePath + ".pub"
}

// Generator writes a new key pair to disk. Implementations must never
// overwrite existing files.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) error
}

// KeygenGenerator shells out to OpenSSH's ssh-keygen.
type KeygenGenerator struct {
	Program string
}

// Generate runs ssh-keygen non-interactively.
func (g KeygenGenerator) Generate(ctx context.Context, req GenerateRequest) error {
	args := []string{"-q", "-t", string(req.Type), "-N", req.Passphrase, "-C", req.Comment, "-f", req.PrivatePath}
	if req.Rounds > 0 {
		args = append(args, "-a", strconv.Itoa(req.Rounds))
	}
	if req.Type == config.KeyTypeRSA {
		bits := req.Bits
		if bits == 0 {
			bits = DefaultRSABits
		}
		args = append(args, "-b", strconv.Itoa(bits))
	}

	cmd := exec.CommandContext(ctx, g.Program, args...)
	// ssh-keygen asks before overwriting; a closed stdin answers "no".
	cmd.Stdin = nil
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%s failed: %s", g.Program, msg)
	}
	return nil
}

// NativeGenerator creates OpenSSH-format keys in process with
// golang.org/x/crypto/ssh. The library applies its own fixed bcrypt KDF
// round count, so Rounds is not honoured.
type NativeGenerator struct{}

// Generate creates the key pair and writes both files exclusively.
func (NativeGenerator) Generate(ctx context.Context, req GenerateRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	priv, err := newPrivateKey(req)
	if err != nil {
		return err
	}

	var block *pem.Block
	if req.Passphrase != "" {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, req.Comment, []byte(req.Passphrase))
	} else {
		block, err = ssh.MarshalPrivateKey(priv, req.Comment)
	}
	if err != nil {
		return fmt.Errorf("failed to encode private key: %w", err)
	}

	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return fmt.Errorf("failed to derive public key: %w", err)
	}
	pubLine := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(signer.PublicKey())))
	if req.Comment != "" {
		pubLine += " " + req.Comment
	}

	if err := writeExclusive(req.PrivatePath, pem.EncodeToMemory(block), 0o600); err != nil {
		return err
	}
	if err := writeExclusive(req.PublicPath(), []byte(pubLine+"\n"), 0o644); err != nil {
		_ = os.Remove(req.PrivatePath)
		return err
	}
	return nil
}

func newPrivateKey(req GenerateRequest) (crypto.PrivateKey, error) {
	switch req.Type {
	case config.KeyTypeEd25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		return priv, err
	case config.KeyTypeRSA:
		bits := req.Bits
		if bits == 0 {
			bits = DefaultRSABits
		}
		return rsa.GenerateKey(rand.Reader, bits)
	case config.KeyTypeECDSA:
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	default:
		return nil, fmt.Errorf("unsupported key type %q", req.Type)
	}
}

func writeExclusive(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// DefaultGenerator prefers ssh-keygen (configured path or PATH lookup) and
// falls back to the in-process generator when it is not installed.
func DefaultGenerator(configuredProgram string) Generator {
	if program := ResolveKeygenProgram(configuredProgram); program != "" {
		return KeygenGenerator{Program: program}
	}
	return NativeGenerator{}
}
