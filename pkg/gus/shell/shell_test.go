package shell

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gusdev/gus/pkg/gus/config"
)

func TestQuote(t *testing.T) {
	tests := map[string]string{
		"plain":       "'plain'",
		"O'Brien":     `'O'\''Brien'`,
		"$(rm -rf /)": "'$(rm -rf /)'",
		"":            "''",
		"two words":   "'two words'",
	}
	for in, want := range tests {
		if got := Quote(in); got != want {
			t.Errorf("Quote(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestExportScript(t *testing.T) {
	script := ExportScript(config.Identity{ID: "work", Name: "Ann O'Neil", Email: "ann@corp.example"})

	for _, want := range []string{
		"export GUS_USER_ID='work'\n",
		`export GIT_AUTHOR_NAME='Ann O'\''Neil'` + "\n",
		"export GIT_AUTHOR_EMAIL='ann@corp.example'\n",
		`export GIT_COMMITTER_NAME='Ann O'\''Neil'` + "\n",
		"export GIT_COMMITTER_EMAIL='ann@corp.example'\n",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}

	unset := UnsetScript()
	for _, name := range []string{EnvUserID, EnvAuthorName, EnvCommitterEmail} {
		if !strings.Contains(unset, name) {
			t.Errorf("unset script misses %s", name)
		}
	}
}

func TestScriptPathSanitizes(t *testing.T) {
	got := ScriptPath("/run/gus", "../../etc/x y")
	if filepath.Dir(got) != "/run/gus" {
		t.Errorf("session id escaped the directory: %s", got)
	}
	if strings.ContainsAny(filepath.Base(got), "/ ") {
		t.Errorf("unsafe characters kept: %s", got)
	}
}

func TestWriteSessionScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions", "session-1.sh")

	if err := WriteSessionScript(path, "export A=1\n"); err != nil {
		t.Fatalf("WriteSessionScript failed: %v", err)
	}
	if err := WriteSessionScript(path, UnsetScript()); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != UnsetScript() {
		t.Errorf("script = %q", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestSetup(t *testing.T) {
	opts := SetupOptions{
		AppPath:    "/usr/local/bin/gus",
		SessionID:  "sid-42",
		ScriptPath: "/run/gus/session-sid-42.sh",
	}

	script := Setup(opts)
	for _, want := range []string{
		"export GUS_SESSION_ID='sid-42'",
		"gus() {",
		". '/run/gus/session-sid-42.sh'",
		"'/usr/local/bin/gus' git -- \"$@\"",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("setup script missing %q:\n%s", want, script)
		}
	}
	if strings.Contains(script, "cd()") {
		t.Error("cd hook present with auto-switch disabled")
	}

	opts.AutoSwitch = true
	hooked := Setup(opts)
	if !strings.Contains(hooked, "gus auto-switch check") {
		t.Error("cd hook missing with auto-switch enabled")
	}
	// dash and other plain POSIX shells have no `builtin`.
	if strings.Contains(hooked, "builtin ") || !strings.Contains(hooked, `command cd "$@"`) {
		t.Errorf("cd hook must call the real cd portably:\n%s", hooked)
	}

	if !IsSupported("zsh") || IsSupported("fish") {
		t.Error("unexpected shell support")
	}
}
