package main_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests
	tmpDir, err := os.MkdirTemp("", "gus-test")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	binaryPath = filepath.Join(tmpDir, "gus")

	buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
	if output, err := buildCmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build binary: %v\n%s\n", err, output)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// sandbox is an isolated HOME with its own XDG directories and session id.
type sandbox struct {
	home       string
	configPath string
	env        []string
}

func newSandbox(t *testing.T, sessionID string) *sandbox {
	t.Helper()
	home := t.TempDir()
	s := &sandbox{
		home:       home,
		configPath: filepath.Join(home, ".config", "gus", "config.yaml"),
	}
	s.env = append(filteredEnv(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"XDG_DATA_HOME="+filepath.Join(home, ".local", "share"),
		"XDG_RUNTIME_DIR="+filepath.Join(home, "run"),
		"GUS_SESSION_ID="+sessionID,
		"GIT_CONFIG_NOSYSTEM=1",
	)
	return s
}

// filteredEnv returns os.Environ() without variables that would leak the
// developer's gus or git setup into the tests.
func filteredEnv() []string {
	baseEnv := os.Environ()
	filtered := make([]string, 0, len(baseEnv))
	for _, e := range baseEnv {
		switch {
		case strings.HasPrefix(e, "GUS_"),
			strings.HasPrefix(e, "GIT_"),
			strings.HasPrefix(e, "XDG_"),
			strings.HasPrefix(e, "HOME="):
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func (s *sandbox) run(stdin string, args ...string) (string, string, int) {
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = s.env
	cmd.Dir = s.home
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if err != nil {
		code = -1
	}
	return stdout.String(), stderr.String(), code
}

func (s *sandbox) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	stdout, stderr, code := s.run(stdin, args...)
	if code != 0 {
		t.Fatalf("gus %s exited %d\nstdout: %s\nstderr: %s", strings.Join(args, " "), code, stdout, stderr)
	}
	return stdout
}

func (s *sandbox) writeRepo(t *testing.T, name, email string) string {
	t.Helper()
	repo := filepath.Join(s.home, "repo")
	if err := os.MkdirAll(filepath.Join(repo, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := fmt.Sprintf("[core]\n\trepositoryformatversion = 0\n[user]\n\tname = %s\n\temail = %s\n", name, email)
	if err := os.WriteFile(filepath.Join(repo, ".git", "config"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return repo
}

func TestVersion(t *testing.T) {
	s := newSandbox(t, "t1")
	stdout := s.mustRun(t, "", "version", "--json")
	var info struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("version --json is not JSON: %v\n%s", err, stdout)
	}
	if info.Version != "unknown" {
		t.Errorf("version = %q, want unknown for a dev build", info.Version)
	}
}

func TestIdentityLifecycle(t *testing.T) {
	s := newSandbox(t, "t1")
	s.mustRun(t, "correct horse battery\n", "add", "work", "Alice Doe", "alice@corp.example")

	if _, err := os.Stat(filepath.Join(s.home, ".local", "share", "gus", "sshkeys", "id_work")); err != nil {
		t.Fatalf("private key not generated: %v", err)
	}

	// Duplicate ids are rejected with the identity exit code.
	if _, _, code := s.run("correct horse battery\n", "add", "work", "Other", "o@example.com"); code != 3 {
		t.Errorf("duplicate add exit code = %d, want 3", code)
	}

	s.mustRun(t, "", "set", "work")
	stdout := s.mustRun(t, "", "current")
	if strings.TrimSpace(stdout) != "work: Alice Doe <alice@corp.example>" {
		t.Errorf("current = %q", stdout)
	}

	stdout = s.mustRun(t, "", "list", "--simple")
	if stdout != "work\n" {
		t.Errorf("list --simple = %q", stdout)
	}

	if _, _, code := s.run("", "remove", "work"); code != 3 {
		t.Errorf("removing an active identity exit code = %d, want 3", code)
	}
	s.mustRun(t, "", "remove", "work", "--force")

	if _, _, code := s.run("", "current"); code != 7 {
		t.Errorf("current after removal exit code = %d, want 7", code)
	}
}

func TestShortPassphrase(t *testing.T) {
	s := newSandbox(t, "t1")
	_, stderr, code := s.run("too short\n", "add", "work", "Alice Doe", "alice@corp.example")
	if code != 4 {
		t.Errorf("exit code = %d, want 4 (stderr: %s)", code, stderr)
	}
	if !strings.Contains(stderr, "at least 10 characters") {
		t.Errorf("unexpected error: %s", stderr)
	}
}

func TestTerminalsAreIsolated(t *testing.T) {
	s := newSandbox(t, "t1")
	s.mustRun(t, "correct horse battery\n", "add", "work", "Alice Doe", "alice@corp.example")
	s.mustRun(t, "", "set", "work")

	other := *s
	other.env = append(append([]string{}, s.env...), "GUS_SESSION_ID=t2")
	if _, _, code := other.run("", "current"); code != 7 {
		t.Errorf("second terminal should have no identity, exit code = %d", code)
	}
}

func TestGitEnforcement(t *testing.T) {
	s := newSandbox(t, "t1")
	s.mustRun(t, "correct horse battery\n", "add", "work", "Alice Doe", "alice@corp.example")
	repo := s.writeRepo(t, "Someone Else", "else@example.com")

	_, stderr, code := s.run("", "git", "--", "-C", repo, "push", "origin", "main")
	if code != 7 {
		t.Errorf("push without identity exit code = %d, want 7 (stderr: %s)", code, stderr)
	}

	s.mustRun(t, "", "set", "work")
	_, stderr, code = s.run("", "git", "--", "-C", repo, "push", "origin", "main")
	if code != 8 {
		t.Errorf("push with mismatched author exit code = %d, want 8 (stderr: %s)", code, stderr)
	}
	if !strings.Contains(stderr, "Alice Doe") || !strings.Contains(stderr, "Someone Else") {
		t.Errorf("mismatch error should name both authors: %s", stderr)
	}
}

func TestGitPermissive(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	s := newSandbox(t, "t1")
	s.mustRun(t, "", "init")
	cfg, err := os.ReadFile(s.configPath)
	if err != nil {
		t.Fatal(err)
	}
	relaxed := strings.Replace(string(cfg), "force_use_gus: true", "force_use_gus: false", 1)
	if err := os.WriteFile(s.configPath, []byte(relaxed), 0o600); err != nil {
		t.Fatal(err)
	}

	// ls-remote against a missing path fails inside git, not in gus.
	_, _, code := s.run("", "git", "--", "ls-remote", filepath.Join(s.home, "missing"))
	if code == 0 || code == 7 || code == 8 {
		t.Errorf("expected git's own failure status, got %d", code)
	}
}

func TestAutoSwitchEndToEnd(t *testing.T) {
	s := newSandbox(t, "t1")
	s.mustRun(t, "correct horse battery\n", "add", "work", "Alice Doe", "alice@corp.example")
	s.mustRun(t, "correct horse battery\n", "add", "secret", "Agent A", "a@secret.example")
	s.mustRun(t, "", "auto-switch", "add", "~/work/*", "work")
	s.mustRun(t, "", "auto-switch", "add", "~/work/secret/*", "secret")
	s.mustRun(t, "", "auto-switch", "enable")

	dir := filepath.Join(s.home, "work", "secret", "x")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	s.mustRun(t, "", "auto-switch", "check", "--quiet", dir)

	stdout := s.mustRun(t, "", "current")
	if !strings.HasPrefix(stdout, "work:") {
		t.Errorf("first matching rule should win, current = %q", stdout)
	}

	if _, _, code := s.run("", "auto-switch", "add", "~/[work", "work"); code != 2 {
		t.Errorf("invalid pattern exit code = %d, want 2", code)
	}
}

func TestConfigFlagPlacement(t *testing.T) {
	s := newSandbox(t, "t1")
	custom := filepath.Join(s.home, "custom.yaml")
	s.mustRun(t, "", "-c", custom, "init")

	cases := []struct {
		name string
		args []string
	}{
		{name: "flag before command", args: []string{"-c", custom, "list", "--simple"}},
		{name: "flag after command", args: []string{"list", "--simple", "-c", custom}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s.mustRun(t, "", tc.args...)
		})
	}

	if _, _, code := s.run("", "-c", custom, "init"); code != 2 {
		t.Errorf("init over an existing file exit code = %d, want 2", code)
	}
}

func TestCorruptConfigIsNotRepaired(t *testing.T) {
	s := newSandbox(t, "t1")
	if err := os.MkdirAll(filepath.Dir(s.configPath), 0o700); err != nil {
		t.Fatal(err)
	}
	broken := []byte("identities:\n  - id: work\n    name: [unterminated\n")
	if err := os.WriteFile(s.configPath, broken, 0o600); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := s.run("", "list")
	if code != 2 {
		t.Errorf("exit code = %d, want 2 (stderr: %s)", code, stderr)
	}
	after, err := os.ReadFile(s.configPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(broken) {
		t.Errorf("corrupt config was modified")
	}
}

func TestSetupScript(t *testing.T) {
	s := newSandbox(t, "t1")
	stdout := s.mustRun(t, "", "setup", "bash", "--app-path", "/usr/local/bin/gus")
	for _, want := range []string{"gus() {", "git() {", "'/usr/local/bin/gus' git -- \"$@\""} {
		if !strings.Contains(stdout, want) {
			t.Errorf("setup script missing %q:\n%s", want, stdout)
		}
	}
	if _, _, code := s.run("", "setup", "fish"); code != 1 {
		t.Errorf("unsupported shell exit code = %d, want 1", code)
	}
}
