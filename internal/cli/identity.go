package cli

import (
	"context"
	"os"
	"strings"

	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/identity"
	"github.com/gusdev/gus/pkg/gus/output"
	"github.com/gusdev/gus/pkg/gus/session"
	"github.com/gusdev/gus/pkg/gus/shell"
)

// IdentityInfo is the JSON shape of one identity.
type IdentityInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	KeyType     string `json:"key_type,omitempty"`
	PrivateKey  string `json:"private_key,omitempty"`
	PublicKey   string `json:"public_key,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Active      bool   `json:"active"`
}

// AddIdentity creates an identity. Without keyPath a new key pair is
// generated and its passphrase is read from stdin.
func (c *CLI) AddIdentity(ctx context.Context, id, name, email, keyPath string) *output.Error {
	opts := identity.AddOptions{KeyPath: keyPath}
	if keyPath == "" {
		passphrase, err := c.ReadPassphrase("Passphrase for the new SSH key: ")
		if err != nil {
			return err
		}
		opts.Passphrase = passphrase
	}

	ident, err := c.identities.Add(ctx, id, name, email, opts)
	if err != nil {
		return output.AsError(err)
	}
	key, err := c.identities.KeyFor(ident.ID)
	if err != nil {
		return output.AsError(err)
	}

	c.output.Successf("Added identity %s", ident)
	if pub, err := c.broker.PublicKey(key); err == nil {
		c.output.Infof("Public key (%s):\n%s", key.PublicPath, pub)
	}
	return nil
}

// RemoveIdentity deletes an identity. Sessions and auto-switch rules that
// still reference it block removal unless force is set.
func (c *CLI) RemoveIdentity(id string, force bool) *output.Error {
	refs, err := c.identities.Remove(id, force)
	if err != nil {
		return output.AsError(err)
	}
	if len(refs.Sessions) > 0 {
		c.output.Infof("Cleared identity from %d session(s)", len(refs.Sessions))
	}
	if len(refs.Rules) > 0 {
		c.output.Infof("Removed auto-switch rule(s): %s", strings.Join(refs.Rules, ", "))
	}
	c.output.Successf("Removed identity %s", id)
	return nil
}

// EditIdentity changes the name and/or email of an identity. Empty values
// are left unchanged.
func (c *CLI) EditIdentity(id, name, email string) *output.Error {
	if name == "" && email == "" {
		return output.NewError(output.CodeInvalidInput, "nothing to change; pass --name and/or --email")
	}
	ident, err := c.identities.Edit(id, name, email)
	if err != nil {
		return output.AsError(err)
	}
	c.output.Infof("Updated identity %s", ident)

	if active, ok, err := c.sessions.Lookup(c.sessionID); err == nil && ok && active == ident.ID {
		return c.writeSessionScript(shell.ExportScript(ident))
	}
	return nil
}

// ListIdentities prints the identity catalog. The active identity of this
// terminal is marked with "*"; simple prints one id per line.
func (c *CLI) ListIdentities(simple bool) *output.Error {
	idents, err := c.identities.List()
	if err != nil {
		return output.AsError(err)
	}
	active, _, err := c.sessions.Lookup(c.sessionID)
	if err != nil {
		return output.AsError(err)
	}

	infos := make([]IdentityInfo, 0, len(idents))
	for _, ident := range idents {
		info := IdentityInfo{ID: ident.ID, Name: ident.Name, Email: ident.Email, Active: ident.ID == active}
		if key, err := c.identities.KeyFor(ident.ID); err == nil {
			info.KeyType = string(key.Type)
			info.PrivateKey = key.PrivatePath
			info.PublicKey = key.PublicPath
			if _, statErr := os.Stat(key.PrivatePath); statErr != nil {
				c.output.Warn(output.NewWarningf(output.WarnKeyFileMissing,
					"private key of %s is missing: %s", ident.ID, key.PrivatePath).
					WithDetail("identity", ident.ID))
			}
		}
		infos = append(infos, info)
	}

	if c.output.IsJSON() {
		return jsonError(c.output.WriteJSON(infos, nil))
	}
	if len(infos) == 0 {
		c.output.Infof("No identities configured. Add one with: gus add <id> <name> <email>")
		return nil
	}
	for _, info := range infos {
		switch {
		case simple:
			c.output.WriteLine(info.ID)
		case info.Active:
			c.output.WriteData("* %s: %s <%s>\n", info.ID, info.Name, info.Email)
		default:
			c.output.WriteData("  %s: %s <%s>\n", info.ID, info.Name, info.Email)
		}
	}
	return nil
}

// CurrentIdentity prints the active identity of this terminal.
func (c *CLI) CurrentIdentity() *output.Error {
	if stale := c.staleReference(); stale != "" {
		c.output.Warn(output.NewWarningf(output.WarnStaleSession,
			"session referenced identity %s which no longer exists; it was cleared", stale).
			WithDetail("identity", stale))
	}
	if cfg, err := c.store.Load(); err == nil && !cfg.ForceUseGus {
		c.output.Warnf(output.WarnPermissive, "force_use_gus is off; git network commands are not checked")
	}

	id, ok, err := c.sessions.GetActive(c.sessionID)
	if err != nil {
		return output.AsError(err)
	}
	if !ok {
		e := output.NewError(output.CodeNoActiveIdentity, "no active identity in this terminal; run: gus set <id>").
			WithDetail("session", c.sessionID)
		if c.output.IsJSON() {
			_ = c.output.WriteJSON(nil, e)
		}
		return e
	}
	ident, err := c.identities.Get(id)
	if err != nil {
		return output.AsError(err)
	}

	info := IdentityInfo{ID: ident.ID, Name: ident.Name, Email: ident.Email, Active: true}
	if key, err := c.identities.KeyFor(ident.ID); err == nil {
		info.KeyType = string(key.Type)
		info.PrivateKey = key.PrivatePath
		info.PublicKey = key.PublicPath
		if fp, err := c.broker.Fingerprint(key); err == nil {
			info.Fingerprint = fp
		}
	}

	if c.output.IsJSON() {
		return jsonError(c.output.WriteJSON(info, nil))
	}
	c.output.WriteLine(ident.String())
	return nil
}

// SetIdentity activates an identity for this terminal and exports it.
func (c *CLI) SetIdentity(id string) *output.Error {
	if err := c.sessions.SetActive(c.sessionID, id); err != nil {
		return output.AsError(err)
	}
	ident, err := c.identities.Get(id)
	if err != nil {
		return output.AsError(err)
	}
	if err := c.writeSessionScript(shell.ExportScript(ident)); err != nil {
		return err
	}
	c.output.Infof("Switched to %s", ident)
	return nil
}

// UnsetIdentity clears the active identity of this terminal.
func (c *CLI) UnsetIdentity() *output.Error {
	if err := c.sessions.Clear(c.sessionID); err != nil {
		return output.AsError(err)
	}
	if err := c.writeSessionScript(shell.UnsetScript()); err != nil {
		return err
	}
	c.output.Infof("Cleared active identity")
	return nil
}

// ShowKey prints the public key or fingerprint of an identity's key.
func (c *CLI) ShowKey(id string, fingerprint bool) *output.Error {
	key, err := c.identities.KeyFor(id)
	if err != nil {
		return output.AsError(err)
	}
	var out string
	if fingerprint {
		out, err = c.broker.Fingerprint(key)
	} else {
		out, err = c.broker.PublicKey(key)
	}
	if err != nil {
		return output.AsError(err)
	}
	c.output.WriteLine(out)
	return nil
}

// RegenerateKey replaces a managed key pair. Unless yes is set the user has
// to confirm on the terminal, since the old key stops working everywhere.
func (c *CLI) RegenerateKey(ctx context.Context, id string, yes bool) *output.Error {
	if _, err := c.identities.Get(id); err != nil {
		return output.AsError(err)
	}
	if !yes {
		ok, e := PromptConfirm("Replace the SSH key of "+id+"? Remotes must be given the new public key.", c.output.Stderr())
		if e != nil {
			return e
		}
		if !ok {
			return output.NewError(output.CodeGeneralError, "key regeneration aborted")
		}
	}
	passphrase, e := c.ReadPassphrase("Passphrase for the new SSH key: ")
	if e != nil {
		return e
	}
	key, err := c.identities.RegenerateKey(ctx, id, passphrase)
	if err != nil {
		return output.AsError(err)
	}
	c.output.Successf("Regenerated key of %s", id)
	if pub, err := c.broker.PublicKey(key); err == nil {
		c.output.Infof("New public key (%s):\n%s", key.PublicPath, pub)
	}
	return nil
}

// staleReference returns the identity this session points at if that
// identity no longer exists.
func (c *CLI) staleReference() string {
	var stale string
	_ = c.store.View(func(cfg *config.Config) error {
		if i := cfg.FindSession(c.sessionID); i >= 0 {
			if id := cfg.Sessions[i].IdentityID; id != "" && cfg.FindIdentity(id) < 0 {
				stale = id
			}
		}
		return nil
	})
	return stale
}

// writeSessionScript stores the script the gus() shell function sources
// after this process exits. Without shell integration it is printed
// instead so it can be eval'd by hand.
func (c *CLI) writeSessionScript(script string) *output.Error {
	if !session.FromEnv() {
		c.warnWithoutShellIntegration()
		c.output.WriteData("%s", script)
		return nil
	}
	path := shell.ScriptPath(c.xdgPaths.SessionDir(), c.sessionID)
	if err := shell.WriteSessionScript(path, script); err != nil {
		return output.NewErrorf(output.CodeOperationFailed, "%v", err).WithCause(err)
	}
	return nil
}

func jsonError(err error) *output.Error {
	if err != nil {
		return output.NewErrorf(output.CodeOperationFailed, "failed to write JSON: %v", err).WithCause(err)
	}
	return nil
}
