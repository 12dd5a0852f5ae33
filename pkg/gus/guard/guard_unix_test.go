//go:build unix

package guard

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gusdev/gus/pkg/gus/config"
	"github.com/gusdev/gus/pkg/gus/output"
)

// fakeGit installs a script that records its arguments and GIT_SSH_COMMAND.
func fakeGit(t *testing.T, e env, exitCode string) string {
	t.Helper()
	dir := t.TempDir()
	record := filepath.Join(dir, "record")
	script := "#!/bin/sh\n" +
		"printf '%s\\n' \"$*\" > " + record + "\n" +
		"printf '%s\\n' \"${GIT_SSH_COMMAND:-none}\" >> " + record + "\n" +
		"echo from-git\n" +
		"exit " + exitCode + "\n"
	program := filepath.Join(dir, "git")
	if err := os.WriteFile(program, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := e.st.Update(func(cfg *config.Config) error {
		cfg.GitProgram = program
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return record
}

func TestRunAppliesKeyToChildOnly(t *testing.T) {
	e := newEnv(t, true)
	if err := e.sessions.SetActive("s1", "work"); err != nil {
		t.Fatal(err)
	}
	record := fakeGit(t, e, "0")
	repo := writeRepo(t, "Alice Doe", "alice@corp.example")
	t.Setenv("GIT_SSH_COMMAND", "ssh -i /wrong/key")

	var stdout bytes.Buffer
	if _, err := e.guard.Run(context.Background(), "s1", repo, []string{"push", "origin"}, Stdio{Stdout: &stdout}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(record)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	key, _ := e.ids.KeyFor("work")
	if lines[0] != "push origin" || !strings.Contains(lines[1], key.PrivatePath) || !strings.Contains(lines[1], "IdentitiesOnly=yes") {
		t.Errorf("child saw %q", lines)
	}
	if stdout.String() != "from-git\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if os.Getenv("GIT_SSH_COMMAND") != "ssh -i /wrong/key" {
		t.Error("override leaked into the parent environment")
	}
}

func TestRunPermissivePassesThrough(t *testing.T) {
	e := newEnv(t, false)
	record := fakeGit(t, e, "0")
	t.Setenv("GIT_SSH_COMMAND", "")

	if _, err := e.guard.Run(context.Background(), "s1", t.TempDir(), []string{"fetch"}, Stdio{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	data, _ := os.ReadFile(record)
	if !strings.HasSuffix(strings.TrimSpace(string(data)), "none") {
		t.Errorf("permissive run should not set a key: %q", data)
	}
}

func TestRunReportsGitExitStatus(t *testing.T) {
	e := newEnv(t, false)
	fakeGit(t, e, "3")

	_, err := e.guard.Run(context.Background(), "s1", t.TempDir(), []string{"status"}, Stdio{})
	if !output.IsCode(err, output.CodeGitError) {
		t.Fatalf("expected GIT_ERROR, got %v", err)
	}
	var oe *output.Error
	if errors.As(err, &oe) && oe.Details["exit_code"] != 3 {
		t.Errorf("exit_code detail = %v", oe.Details["exit_code"])
	}
}
