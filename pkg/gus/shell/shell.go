// Package shell renders the scripts that tie gus into an interactive shell.
//
// A gus process cannot change its parent's environment, so commands that
// switch identity write a small session script and the gus() shell function
// sources it after every successful call.
package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gusdev/gus/pkg/gus/config"
)

// Environment variables exported into the terminal.
const (
	EnvUserID         = "GUS_USER_ID"
	EnvAuthorName     = "GIT_AUTHOR_NAME"
	EnvAuthorEmail    = "GIT_AUTHOR_EMAIL"
	EnvCommitterName  = "GIT_COMMITTER_NAME"
	EnvCommitterEmail = "GIT_COMMITTER_EMAIL"
)

// Supported lists the shells Setup can target.
var Supported = []string{"bash", "zsh", "sh"}

// IsSupported reports whether name is a supported shell.
func IsSupported(name string) bool {
	for _, s := range Supported {
		if s == name {
			return true
		}
	}
	return false
}

// Quote quotes s for a POSIX shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// ScriptPath returns the session script location for a session id.
func ScriptPath(dir, sessionID string) string {
	return filepath.Join(dir, "session-"+unsafeName.ReplaceAllString(sessionID, "_")+".sh")
}

// ExportScript sets the terminal's author and committer to ident.
func ExportScript(ident config.Identity) string {
	var b strings.Builder
	for _, kv := range [][2]string{
		{EnvUserID, ident.ID},
		{EnvAuthorName, ident.Name},
		{EnvAuthorEmail, ident.Email},
		{EnvCommitterName, ident.Name},
		{EnvCommitterEmail, ident.Email},
	} {
		fmt.Fprintf(&b, "export %s=%s\n", kv[0], Quote(kv[1]))
	}
	return b.String()
}

// UnsetScript removes everything ExportScript sets.
func UnsetScript() string {
	return fmt.Sprintf("unset %s %s %s %s %s\n",
		EnvUserID, EnvAuthorName, EnvAuthorEmail, EnvCommitterName, EnvCommitterEmail)
}

// WriteSessionScript replaces the session script atomically so a shell never
// sources a half-written file.
func WriteSessionScript(path, script string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(script), 0o600); err != nil {
		return fmt.Errorf("failed to write session script: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace session script: %w", err)
	}
	return nil
}

// SetupOptions parameterizes the init script.
type SetupOptions struct {
	// AppPath is the absolute path of the gus binary.
	AppPath string
	// Name is the function name the user types, normally "gus".
	Name       string
	SessionID  string
	ScriptPath string
	// AutoSwitch hooks cd so every directory change runs the matcher.
	AutoSwitch bool
}

// Setup renders the init script for eval in a shell rc file. It is guarded
// so sourcing it twice in one shell is harmless.
func Setup(opts SetupOptions) string {
	name := opts.Name
	if name == "" {
		name = "gus"
	}
	app := Quote(opts.AppPath)
	script := Quote(opts.ScriptPath)

	var b strings.Builder
	fmt.Fprintf(&b, "if [ -z \"${__GUS_LOADED:-}\" ]; then\n")
	fmt.Fprintf(&b, "__GUS_LOADED=1\n")
	fmt.Fprintf(&b, "export GUS_SESSION_ID=%s\n", Quote(opts.SessionID))
	fmt.Fprintf(&b, "rm -f %s\n", script)
	fmt.Fprintf(&b, "%s() {\n", name)
	fmt.Fprintf(&b, "    %s \"$@\"\n", app)
	fmt.Fprintf(&b, "    __gus_status=$?\n")
	fmt.Fprintf(&b, "    if [ $__gus_status -ne 0 ]; then\n")
	fmt.Fprintf(&b, "        return $__gus_status\n")
	fmt.Fprintf(&b, "    fi\n")
	fmt.Fprintf(&b, "    if [ -f %s ]; then\n", script)
	fmt.Fprintf(&b, "        . %s\n", script)
	fmt.Fprintf(&b, "    fi\n")
	fmt.Fprintf(&b, "}\n")
	fmt.Fprintf(&b, "git() {\n")
	fmt.Fprintf(&b, "    %s git -- \"$@\"\n", app)
	fmt.Fprintf(&b, "}\n")
	if opts.AutoSwitch {
		fmt.Fprintf(&b, "cd() {\n")
		fmt.Fprintf(&b, "    command cd \"$@\" || return\n")
		fmt.Fprintf(&b, "    %s auto-switch check --quiet\n", name)
		fmt.Fprintf(&b, "}\n")
	}
	fmt.Fprintf(&b, "fi\n")
	return b.String()
}
